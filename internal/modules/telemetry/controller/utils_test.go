package controller

import (
	"net/http/httptest"
	"testing"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		lo      int
		want    int
		wantErr bool
	}{
		{name: "default", query: "", lo: 0, want: 240},
		{name: "zero allowed", query: "?limit=0", lo: 0, want: 0},
		{name: "zero rejected", query: "?limit=0", lo: 1, wantErr: true},
		{name: "max", query: "?limit=1000", lo: 0, want: 1000},
		{name: "over max", query: "?limit=1001", lo: 0, wantErr: true},
		{name: "negative", query: "?limit=-5", lo: 0, wantErr: true},
		{name: "not a number", query: "?limit=ten", lo: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/telemetry"+tt.query, nil)
			got, err := parseLimit(r, 240, tt.lo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLimit() = %d; want %d", got, tt.want)
			}
		})
	}
}
