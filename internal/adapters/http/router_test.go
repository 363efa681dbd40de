package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/callrelay/internal/app"
	"github.com/dkeye/callrelay/internal/app/orch"
	"github.com/dkeye/callrelay/internal/config"
	"github.com/dkeye/callrelay/internal/core/coretest"
	"github.com/dkeye/callrelay/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:   "test",
		Port:   8080,
		Secret: "test-secret",
		HTTP: config.HTTPConfig{
			StaticPath: t.TempDir(),
			CORSAllow:  []string{"http://allowed.example"},
		},
		WS: config.WSConfig{
			ReadLimit:  1 << 16,
			PingPeriod: 30 * time.Second,
			PongWait:   60 * time.Second,
			WriteWait:  5 * time.Second,
		},
		Signal: config.SignalConfig{SendBuffer: 16, Backpressure: "drop"},
		WebRTC: config.WebRTCConfig{ICEServers: []string{"stun:stun.example.org:3478"}},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	o := orch.New(orch.Options{}, app.SimplePolicy{}, metrics.New(reg))
	return SetupRouter(context.Background(), testConfig(t), o, reg), o
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(t, r, "/healthz")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", w.Code, w.Body)
	}
}

func TestPresence(t *testing.T) {
	r, o := newTestRouter(t)
	sess := o.Connect(coretest.NewConn())
	if err := o.Register(sess, "u1"); err != nil {
		t.Fatal(err)
	}

	var resp PresenceResponse
	w := get(t, r, "/api/presence/u1")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body)
	}
	if !resp.Online || resp.UserID != "u1" {
		t.Fatalf("unexpected presence %+v", resp)
	}

	w = get(t, r, "/api/presence/u2")
	if w.Body.String() != `{"userId":"u2","online":false}` {
		t.Fatalf("offline presence: %s", w.Body)
	}

	o.Disconnect(sess)
	w = get(t, r, "/api/presence/u1")
	if w.Body.String() != `{"userId":"u1","online":false}` {
		t.Fatalf("after disconnect: %s", w.Body)
	}
}

func TestPresence_TooLong(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(t, r, "/api/presence/"+strings.Repeat("x", 200))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRooms(t *testing.T) {
	r, o := newTestRouter(t)

	if w := get(t, r, "/api/rooms"); w.Body.String() != `{"rooms":[]}` {
		t.Fatalf("empty rooms: %s", w.Body)
	}

	for i := 0; i < 2; i++ {
		sess := o.Connect(coretest.NewConn())
		if err := o.Join(sess, "room-42"); err != nil {
			t.Fatal(err)
		}
	}
	if w := get(t, r, "/api/rooms"); w.Body.String() != `{"rooms":[{"room":"room-42","memberCount":2}]}` {
		t.Fatalf("rooms: %s", w.Body)
	}
	if w := get(t, r, "/api/rooms/room-42"); w.Body.String() != `{"room":"room-42","memberCount":2}` {
		t.Fatalf("room: %s", w.Body)
	}
	if w := get(t, r, "/api/rooms/nobody"); w.Body.String() != `{"room":"nobody","memberCount":0}` {
		t.Fatalf("unknown room: %s", w.Body)
	}
}

func TestICEServers(t *testing.T) {
	r, _ := newTestRouter(t)
	var resp struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	w := get(t, r, "/api/ice-servers")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body)
	}
	if len(resp.ICEServers) != 1 || resp.ICEServers[0].URLs[0] != "stun:stun.example.org:3478" {
		t.Fatalf("unexpected ice servers %s", w.Body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, o := newTestRouter(t)
	o.Connect(coretest.NewConn())

	w := get(t, r, "/metrics")
	if !strings.Contains(w.Body.String(), "callrelay_connections 1") {
		t.Fatalf("metrics output missing connection gauge:\n%s", w.Body)
	}
}

func TestClientTokenCookie(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(t, r, "/healthz")
	if !strings.Contains(w.Header().Get("Set-Cookie"), "RelaySessions=") {
		t.Fatalf("expected a session cookie, got %q", w.Header().Get("Set-Cookie"))
	}

	// A returning client keeps its session and is not issued a new cookie.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if w2.Header().Get("Set-Cookie") != "" {
		t.Fatalf("unexpected new cookie %q", w2.Header().Get("Set-Cookie"))
	}
}

func TestWithCORS(t *testing.T) {
	r, _ := newTestRouter(t)
	h := WithCORS(testConfig(t), r)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://allowed.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://allowed.example" {
		t.Fatalf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin got %q", got)
	}
}

func TestSignalEndpoint(t *testing.T) {
	r, o := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"event":"register","data":"u1"}`)); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"event":"ping","id":1}`)); err != nil {
		t.Fatal(err)
	}
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != `{"event":"pong","id":1}` {
		t.Fatalf("unexpected frame %s", msg)
	}
	if !o.Registry.Online("u1") {
		t.Fatal("u1 should be online")
	}
}

func TestSignalEndpoint_Origin(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(WithCORS(testConfig(t), r))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"

	header := http.Header{}
	header.Set("Origin", "http://allowed.example")
	c, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("listed origin rejected: %v", err)
	}
	_ = c.Close()

	header.Set("Origin", "http://evil.example")
	c, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		_ = c.Close()
		t.Fatal("cross-origin upgrade accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unlisted origin: resp=%v err=%v", resp, err)
	}
}
