package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"siot-dashboard/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()
	return ln.Addr().String()
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		AppEnv:             "dev",
		LogLevel:           slog.LevelInfo,
		HTTPAddr:           freeAddr(t),
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "app.db"),
		SQLiteMaxOpenConns: 1,
		DataLimit:          config.DefaultDataLimit,
		StoreTimeout:       time.Second,
		// nothing listens here, so the gauge shows placeholders
		WaterURL:            "http://127.0.0.1:1/water",
		SoilTempURL:         "http://127.0.0.1:1/temp",
		GaugeTimeout:        200 * time.Millisecond,
		GaugeStartTimestamp: config.DefaultGaugeStartTimestamp,
		MQTTTopic:           "siot/weather_data",
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, logger) }()

	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(5 * time.Second)
	healthy := false
	for time.Now().Before(deadline) {
		resp, err := client.Get("http://" + cfg.HTTPAddr + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				healthy = true
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !healthy {
		cancel()
		t.Fatalf("server not healthy at %s", cfg.HTTPAddr)
	}

	resp, err := client.Get("http://" + cfg.HTTPAddr + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d; want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v; want context.Canceled", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_BadDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLiteDriver = "no-such-driver"

	err := Run(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("Run() = nil; want db open error")
	}
}
