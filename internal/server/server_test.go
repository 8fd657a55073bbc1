package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/normanking/zara/internal/bus"
	"github.com/normanking/zara/internal/orchestrator"
)

// newTestServer wires a server with a hub but no OS listener.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	b := bus.New()
	orch := orchestrator.New(orchestrator.Config{Bus: b})
	s := New(":0", orch, b, nil)
	s.startHub()

	ts := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		ts.Close()
		s.cancel()
		b.Close()
	})
	return s, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) outboundMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg outboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

// A new subscriber gets the current state and the welcome message, replayed
// to it alone.
func TestConnect_GreetsSubscriber(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialWS(t, ts)

	first := readMessage(t, conn)
	if first.Event != "state_change" || first.State != "ready" {
		t.Errorf("first message %+v, want ready state_change", first)
	}

	second := readMessage(t, conn)
	if second.Event != "speak_text" || second.Text != orchestrator.DefaultWelcomeMessage {
		t.Errorf("second message %+v, want welcome speak_text", second)
	}
}

func TestVoiceCommand_FullTurn(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialWS(t, ts)

	// Drain the greeting.
	readMessage(t, conn)
	readMessage(t, conn)

	err := conn.WriteJSON(inboundMessage{Event: "voice_command", Command: "hello"})
	if err != nil {
		t.Fatalf("write command: %v", err)
	}

	var states []string
	var speech *outboundMessage
	for len(states) < 3 || speech == nil {
		msg := readMessage(t, conn)
		switch msg.Event {
		case "state_change":
			states = append(states, msg.State)
		case "speak_text":
			m := msg
			speech = &m
		}
	}

	want := []string{"processing", "speaking", "ready"}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state sequence %v, want %v", states, want)
		}
	}

	// No upstream is configured, so the reply is the offline responder's and
	// carries the degraded-mode flag.
	if !speech.IsFallback {
		t.Error("expected degraded-mode flag on offline reply")
	}
	if !strings.Contains(speech.Text, "ஜாரா") {
		t.Errorf("unexpected reply text: %q", speech.Text)
	}
}

func TestBrowserState_ForcesState(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialWS(t, ts)
	readMessage(t, conn)
	readMessage(t, conn)

	if err := conn.WriteJSON(inboundMessage{Event: "browser_state", State: "speaking"}); err != nil {
		t.Fatalf("write browser_state: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Event != "state_change" || msg.State != "speaking" {
		t.Errorf("got %+v, want forced speaking state", msg)
	}
	if got := s.orch.CurrentState(); got != orchestrator.StateSpeaking {
		t.Errorf("orchestrator state %v, want speaking", got)
	}

	// Unknown states are rejected without a broadcast.
	if err := conn.WriteJSON(inboundMessage{Event: "browser_state", State: "confused"}); err != nil {
		t.Fatalf("write browser_state: %v", err)
	}
	if got := s.orch.CurrentState(); got != orchestrator.StateSpeaking {
		t.Errorf("invalid state was applied: %v", got)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("status %q, want ready", body["status"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	dialWS(t, ts)

	// The client registers asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("GET /health: %v", err)
		}
		var body struct {
			Status  string `json:"status"`
			Clients int    `json:"clients"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode health: %v", err)
		}
		if body.Status != "healthy" {
			t.Fatalf("status %q, want healthy", body.Status)
		}
		if body.Clients == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want 1", body.Clients)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Clients that disconnect while broadcasts are in flight must be dropped
// silently. Channel close and channel send both live on the client manager
// goroutine, so the disconnect can never turn into a send on a closed
// channel.
func TestBroadcast_ClientDisconnectUnderLoad(t *testing.T) {
	s, ts := newTestServer(t)

	stop := make(chan struct{})
	var pub sync.WaitGroup
	pub.Add(1)
	go func() {
		defer pub.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.bus.Publish(bus.NewStateEvent("ready"))
			}
		}
	}()

	for i := 0; i < 15; i++ {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketEndpoint
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		conn.ReadMessage()
		conn.Close()
	}

	close(stop)
	pub.Wait()

	// The hub survived; a fresh client still gets the greeting.
	conn := dialWS(t, ts)
	first := readMessage(t, conn)
	if first.Event != "state_change" {
		t.Errorf("first message %+v, want a state_change", first)
	}
}

// Stop may run while command goroutines are still publishing. The manager
// closes every client as its final act, after broadcasts can no longer
// reach the send channels.
func TestStop_WhileBroadcasting(t *testing.T) {
	b := bus.New()
	defer b.Close()
	orch := orchestrator.New(orchestrator.Config{Bus: b})
	s := New(":0", orch, b, nil)
	s.startHub()

	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	for i := 0; i < 3; i++ {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketEndpoint
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		defer conn.Close()
	}

	stop := make(chan struct{})
	var pub sync.WaitGroup
	pub.Add(1)
	go func() {
		defer pub.Done()
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish(bus.NewSpeechEvent("shutdown load", false))
			}
		}
	}()

	s.runningMu.Lock()
	s.running = true
	s.runningMu.Unlock()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	close(stop)
	pub.Wait()

	if got := s.ClientCount(); got != 0 {
		t.Errorf("clients after Stop = %d, want 0", got)
	}
}

// A connection upgraded after shutdown has begun must be closed, not parked
// forever on the register channel.
func TestConnect_DuringShutdownDoesNotHang(t *testing.T) {
	s, ts := newTestServer(t)

	s.cancel()
	// Let the client manager exit.
	time.Sleep(20 * time.Millisecond)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		// The handler refused the connection outright; that is fine too.
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed during shutdown")
	}
}

func TestIndexServesOrbPage(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type %q, want text/html", ct)
	}
}
