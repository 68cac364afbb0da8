package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang/packets"

	"siot-dashboard/internal/config"
	"siot-dashboard/internal/modules/telemetry/types"
)

func newTestSubscriber(t *testing.T) *Subscriber {
	t.Helper()
	s, err := NewSubscriber(config.Config{
		MQTTBroker:   "127.0.0.1",
		MQTTPort:     1,
		MQTTTopic:    "siot/weather_data",
		MQTTClientID: "test",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewSubscriber() error = %v", err)
	}
	return s
}

func TestNewSubscriber_RequiresBroker(t *testing.T) {
	if _, err := NewSubscriber(config.Config{}, nil); err == nil {
		t.Fatal("NewSubscriber() error = nil, want error without broker")
	}
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantHandled bool
	}{
		{name: "full document", payload: `{"timestamp": 1604318400, "temp": 11.5, "humidity": 80}`, wantHandled: true},
		{name: "bare document", payload: `{"timestamp": 1604318400.25, "datetime": "2020-11-02T12:00:00Z"}`, wantHandled: true},
		{name: "not json", payload: `temp=11`, wantHandled: false},
		{name: "missing timestamp", payload: `{"temp": 11.5}`, wantHandled: false},
		{name: "wrong type", payload: `{"timestamp": "yesterday"}`, wantHandled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSubscriber(t)
			var got []types.Reading
			s.SetMessageHandler(func(_ context.Context, r types.Reading) error {
				got = append(got, r)
				return nil
			})

			s.handleMessage("siot/weather_data", []byte(tt.payload))

			if handled := len(got) == 1; handled != tt.wantHandled {
				t.Fatalf("handled = %v, want %v", handled, tt.wantHandled)
			}
		})
	}
}

func TestHandleMessage_DecodesFields(t *testing.T) {
	s := newTestSubscriber(t)
	var got types.Reading
	s.SetMessageHandler(func(ctx context.Context, r types.Reading) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("handler context has no deadline")
		}
		got = r
		return nil
	})

	s.handleMessage("siot/weather_data", []byte(`{"timestamp": 1604318400, "rain_1h": 0.4, "local_soil_humidity": 1200, "is_test": true}`))

	if got.Rain1h == nil || *got.Rain1h != 0.4 {
		t.Errorf("Rain1h = %v, want 0.4", got.Rain1h)
	}
	if got.LocalSoilHumidity == nil || *got.LocalSoilHumidity != 1200 {
		t.Errorf("LocalSoilHumidity = %v, want 1200", got.LocalSoilHumidity)
	}
	if !got.IsTest {
		t.Error("IsTest = false, want true")
	}
	if got.Temp != nil {
		t.Errorf("Temp = %v, want nil", *got.Temp)
	}
}

func TestHandleMessage_HandlerErrorIsContained(t *testing.T) {
	s := newTestSubscriber(t)
	calls := 0
	s.SetMessageHandler(func(context.Context, types.Reading) error {
		calls++
		return errors.New("insert failed")
	})

	s.handleMessage("siot/weather_data", []byte(`{"timestamp": 1}`))
	s.handleMessage("siot/weather_data", []byte(`{"timestamp": 2}`))

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestHandleMessage_NoHandler(t *testing.T) {
	s := newTestSubscriber(t)
	s.handleMessage("siot/weather_data", []byte(`{"timestamp": 1}`))
}

func TestConnect_StoppedOrCancelled(t *testing.T) {
	t.Run("after disconnect", func(t *testing.T) {
		s := newTestSubscriber(t)
		s.Disconnect()
		if err := s.Connect(context.Background()); !errors.Is(err, ErrStopped) {
			t.Fatalf("Connect() error = %v, want ErrStopped", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		s := newTestSubscriber(t)
		t.Cleanup(s.Disconnect)
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		// nothing listens on port 1 and connect retry keeps the token pending
		if err := s.Connect(ctx); err == nil {
			t.Fatal("Connect() error = nil, want error")
		}
	})
}

// serveBroker accepts connections on ln and answers CONNECT, SUBSCRIBE and
// PINGREQ, enough for a subscriber to come up.
func serveBroker(t *testing.T, ln net.Listener) {
	t.Helper()
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					cp, err := packets.ReadPacket(conn)
					if err != nil {
						return
					}
					var reply packets.ControlPacket
					switch p := cp.(type) {
					case *packets.ConnectPacket:
						reply = packets.NewControlPacket(packets.Connack)
					case *packets.SubscribePacket:
						ack := packets.NewControlPacket(packets.Suback).(*packets.SubackPacket)
						ack.MessageID = p.MessageID
						ack.ReturnCodes = p.Qoss
						reply = ack
					case *packets.UnsubscribePacket:
						ack := packets.NewControlPacket(packets.Unsuback).(*packets.UnsubackPacket)
						ack.MessageID = p.MessageID
						reply = ack
					case *packets.PingreqPacket:
						reply = packets.NewControlPacket(packets.Pingresp)
					case *packets.DisconnectPacket:
						return
					}
					if reply != nil {
						if err := reply.Write(conn); err != nil {
							return
						}
					}
				}
			}(conn)
		}
	}()
}

func TestConnect_RecoversWhenBrokerStartsLate(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	s, err := NewSubscriber(config.Config{
		MQTTBroker:   "127.0.0.1",
		MQTTPort:     addr.Port,
		MQTTTopic:    "siot/weather_data",
		MQTTClientID: "late-broker",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewSubscriber() error = %v", err)
	}
	t.Cleanup(s.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	err = s.Connect(ctx)
	cancel()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() error = %v; want context.DeadlineExceeded", err)
	}

	ln, err = net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(addr.Port)))
	if err != nil {
		t.Skipf("port %d taken before the broker could start: %v", addr.Port, err)
	}
	serveBroker(t, ln)

	// the retry interval is 5s, so allow two attempts
	deadline := time.Now().Add(12 * time.Second)
	for !s.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatal("subscriber did not connect after the broker came up")
		}
		time.Sleep(100 * time.Millisecond)
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Errorf("Connect() after recovery = %v; want nil", err)
	}
}
