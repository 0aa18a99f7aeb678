package location

import (
	"context"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialDevice(t *testing.T, d *WebSocketDevice) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestWebSocketDeviceStreamsFixes(t *testing.T) {
	d := NewWebSocketDevice()
	conn := dialDevice(t, d)

	var hello optionsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read options: %v", err)
	}
	if hello.Type != "options" || !hello.HighAccuracy || hello.MaximumAgeMs != 1000 {
		t.Fatalf("options = %+v", hello)
	}

	if err := conn.WriteJSON(map[string]any{"lat": 51.5, "lng": -0.12, "accuracy": 8}); err != nil {
		t.Fatalf("write fix: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	f, err := d.CurrentFix(ctx, ports.FixOptions{HighAccuracy: true, MaximumAge: time.Second})
	if err != nil {
		t.Fatalf("current fix: %v", err)
	}
	want := domain.Coordinate{Lat: 51.5, Lng: -0.12}
	if f.Coordinate != want || f.AccuracyMeters != 8 {
		t.Fatalf("fix = %+v, want %v", f, want)
	}
}

func TestWebSocketDeviceReportsInvalidFix(t *testing.T) {
	d := NewWebSocketDevice()
	conn := dialDevice(t, d)

	var hello optionsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read options: %v", err)
	}

	if err := conn.WriteJSON(map[string]any{"lat": 95, "lng": 0}); err != nil {
		t.Fatalf("write fix: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply errorMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply.Type != "error" || !strings.Contains(reply.Error, "invalid coordinate") {
		t.Fatalf("reply = %+v", reply)
	}
}
