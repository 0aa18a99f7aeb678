package api

import (
	"bytes"
	"context"
	"encoding/json"
	"live-navigation-service/internal/adapters/location"
	"live-navigation-service/internal/adapters/routing"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"live-navigation-service/internal/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var bakerStreet = domain.Coordinate{Lat: 51.523, Lng: -0.1586}

type staticSource struct{ origin domain.Coordinate }

func (s staticSource) GetOnce(ctx context.Context) (domain.Coordinate, error) { return s.origin, nil }

func (s staticSource) Subscribe(func(context.Context, domain.Coordinate)) (ports.Subscription, error) {
	return noopSubscription{}, nil
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

func newTestServer(t *testing.T) (*httptest.Server, *routing.MockNavigationBackend) {
	t.Helper()

	backend := routing.NewMockNavigationBackend(map[string]domain.Place{
		"221B Baker St": {Coordinate: bakerStreet, DisplayName: "221B Baker Street, London"},
	})
	source := staticSource{origin: domain.Coordinate{Lat: 51.5237, Lng: -0.1576}}
	ctrl := services.NewNavigationController(backend, source, services.ControllerConfig{})

	srv := httptest.NewServer(NewRouter(ctrl, location.NewWebSocketDevice(), nil))
	t.Cleanup(srv.Close)
	return srv, backend
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("%s %s: missing request id header", method, path)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, "/health", "")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", status, body)
	}

	if status, _ := call(t, srv, http.MethodPost, "/health", ""); status != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health = %d, want 405", status)
	}
}

func TestStartErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "blank address", body: `{"address": "  "}`, want: http.StatusBadRequest},
		{name: "unknown mode", body: `{"address": "221B Baker St", "mode": "walk"}`, want: http.StatusBadRequest},
		{name: "unknown field", body: `{"address": "221B Baker St", "zoom": 3}`, want: http.StatusBadRequest},
		{name: "bad origin", body: `{"address": "221B Baker St", "from": {"lat": 91, "lng": 0}}`, want: http.StatusBadRequest},
		{name: "unknown address", body: `{"address": "Nowhere"}`, want: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, srv, http.MethodPost, "/navigate", tc.body)
			if status != tc.want {
				t.Fatalf("status = %d, want %d (body %v)", status, tc.want, body)
			}
			if _, ok := body["error"]; !ok {
				t.Fatalf("error body missing: %v", body)
			}
		})
	}
}

func TestDemoNavigationFlow(t *testing.T) {
	srv, backend := newTestServer(t)

	status, body := call(t, srv, http.MethodPost, "/navigate", `{"address": "221B Baker St", "mode": "demo", "speed_mps": 5}`)
	if status != http.StatusCreated {
		t.Fatalf("start = %d %v", status, body)
	}
	if body["status"] != "active" || body["mode"] != "demo" {
		t.Fatalf("session = %v", body)
	}

	route := body["route"].(map[string]any)
	geometry := route["geometry"].(map[string]any)
	if geometry["type"] != "LineString" {
		t.Fatalf("geometry = %v", geometry)
	}
	first := geometry["coordinates"].([]any)[0].([]any)
	path := route["display_path"].([]any)[0].([]any)
	if first[0] != path[1] || first[1] != path[0] {
		t.Fatalf("geojson %v and display path %v should be swapped", first, path)
	}

	status, body = call(t, srv, http.MethodPost, "/navigate/step", `{"steps": 3}`)
	if status != http.StatusOK || body["demo_cursor"] != float64(3) {
		t.Fatalf("step = %d %v", status, body)
	}
	if body["live"] == nil {
		t.Fatalf("step should populate live metrics: %v", body)
	}

	status, body = call(t, srv, http.MethodPost, "/navigate/step", "")
	if status != http.StatusOK || body["demo_cursor"] != float64(4) {
		t.Fatalf("default step = %d %v", status, body)
	}

	status, body = call(t, srv, http.MethodPost, "/navigate/position", `{"lat": 51.5, "lng": -0.1}`)
	if status != http.StatusOK {
		t.Fatalf("position in demo mode should be ignored, got %d %v", status, body)
	}

	status, body = call(t, srv, http.MethodPost, "/navigate/reroute", "")
	if status != http.StatusOK || body["demo_cursor"] != float64(0) {
		t.Fatalf("reroute = %d %v", status, body)
	}

	status, body = call(t, srv, http.MethodPost, "/navigate/stop", "")
	if status != http.StatusOK || body["status"] != "idle" {
		t.Fatalf("stop = %d %v", status, body)
	}

	status, body = call(t, srv, http.MethodPost, "/navigate/reroute", "")
	if status != http.StatusConflict {
		t.Fatalf("reroute while idle = %d %v, want 409", status, body)
	}

	status, body = call(t, srv, http.MethodGet, "/addresses", "")
	if status != http.StatusOK {
		t.Fatalf("addresses = %d %v", status, body)
	}
	if got := body["addresses"].([]any); len(got) != 1 {
		t.Fatalf("addresses = %v, want one entry", got)
	}

	if resolve, _, _ := backend.Calls(); resolve != 1 {
		t.Fatalf("resolve calls = %d, want 1", resolve)
	}
}

func TestLiveSessionEndpoints(t *testing.T) {
	srv, backend := newTestServer(t)

	status, body := call(t, srv, http.MethodPost, "/navigate", `{"address": "221B Baker St", "from": {"lat": 51.52, "lng": -0.15}}`)
	if status != http.StatusCreated || body["mode"] != "live" {
		t.Fatalf("start = %d %v", status, body)
	}
	origin := body["origin"].(map[string]any)
	if origin["lat"] != 51.52 {
		t.Fatalf("origin hint ignored: %v", origin)
	}

	if status, _ := call(t, srv, http.MethodPost, "/navigate/step", `{}`); status != http.StatusConflict {
		t.Fatalf("step in live mode = %d, want 409", status)
	}

	status, body = call(t, srv, http.MethodPost, "/navigate/position", `{"lat": 51.521, "lng": -0.151}`)
	if status != http.StatusOK || body["live"] == nil {
		t.Fatalf("position = %d %v", status, body)
	}

	if status, _ := call(t, srv, http.MethodPost, "/navigate/position", `{"lat": 91, "lng": 0}`); status != http.StatusBadRequest {
		t.Fatalf("invalid position = %d, want 400", status)
	}

	backend.SetErrors(domain.ErrServiceUnavailable, nil)
	if status, _ := call(t, srv, http.MethodPost, "/navigate/reroute", ""); status != http.StatusServiceUnavailable {
		t.Fatalf("failed reroute = %d, want 503", status)
	}

	status, body = call(t, srv, http.MethodGet, "/navigate/session", "")
	if status != http.StatusOK || body["status"] != "active" {
		t.Fatalf("session = %d %v", status, body)
	}
}

func TestFixStreamUpgradesThroughMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/navigate/position/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read options: %v", err)
	}
	if hello["type"] != "options" {
		t.Fatalf("hello = %v", hello)
	}
}
