package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/pkg/protocol"
)

type fakeSender struct {
	Mu   sync.Mutex
	Sent []protocol.WSRequest
}

func (f *fakeSender) Send(req protocol.WSRequest) error {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	f.Sent = append(f.Sent, req)
	return nil
}

func (f *fakeSender) last(t *testing.T) protocol.WSRequest {
	t.Helper()
	f.Mu.Lock()
	defer f.Mu.Unlock()
	if len(f.Sent) == 0 {
		t.Fatal("Nothing was sent")
	}
	return f.Sent[len(f.Sent)-1]
}

func frame(t *testing.T, section string, view interface{}) Message {
	t.Helper()
	raw, err := json.Marshal(protocol.NewFrame(section, view))
	if err != nil {
		t.Fatal(err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestBoard_RendersSections(t *testing.T) {
	b := NewBoard()
	mustApply := func(section string, v interface{}) {
		raw, _ := json.Marshal(v)
		if err := b.Apply(section, raw); err != nil {
			t.Fatalf("Apply %s: %v", section, err)
		}
	}

	mustApply("status", map[string]string{"last_update": "12 sec ago"})
	mustApply("watchlist", map[string]interface{}{
		"state": "ready", "aggregate": "+0.33% today ↑", "color": "favorable",
		"cards": []map[string]string{{"symbol": "NVDA", "name": "NVIDIA", "price": "$181.25", "percent": "+1.40%", "arrow": "↑", "color": "favorable"}},
	})
	mustApply("summary", map[string]string{"state": "unavailable", "text": "Summary temporarily unavailable"})
	mustApply("feed", map[string]interface{}{"items": []map[string]interface{}{{"handle": "@fed", "text": "Rates held", "age": "2h ago", "featured": true}}})

	out := b.Render()
	for _, want := range []string{"Last update: 12 sec ago", "+0.33% today ↑", "NVDA", "$181.25", "+1.40%", "Summary temporarily unavailable", "@fed", "Rates held"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render missing %q:\n%s", want, out)
		}
	}
}

func TestBoard_BeforeAnyFrame(t *testing.T) {
	out := NewBoard().Render()
	if !strings.Contains(out, "updating...") {
		t.Errorf("Expected updating label, got %q", out)
	}
}

func TestBoard_RejectsUnknownSection(t *testing.T) {
	if err := NewBoard().Apply("weather", json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for unknown section")
	}
	if err := NewBoard().Apply("watchlist", json.RawMessage(`[`)); err == nil {
		t.Error("Expected decode error")
	}
}

func TestSession_Commands(t *testing.T) {
	sender := &fakeSender{}
	s := NewSession(&bytes.Buffer{}, sender, NewBoard(), zap.NewNop())

	if _, err := s.HandleLine("add  amd "); err != nil {
		t.Fatal(err)
	}
	req := sender.last(t)
	if req.Action != protocol.ActionAdd || req.Payload.Symbol != "amd" {
		t.Errorf("Unexpected add request %+v", req)
	}

	s.HandleLine("rm NVDA")
	if req := sender.last(t); req.Action != protocol.ActionRemove || req.Payload.Symbol != "NVDA" {
		t.Errorf("Unexpected remove request %+v", req)
	}

	quit, _ := s.HandleLine("quit")
	if !quit {
		t.Error("Expected quit")
	}

	sender.Mu.Lock()
	ids := []string{sender.Sent[0].ID, sender.Sent[1].ID}
	sender.Mu.Unlock()
	if ids[0] == ids[1] {
		t.Errorf("Request ids must differ, got %v", ids)
	}
}

func TestSession_UnknownCommandPrintsHelp(t *testing.T) {
	out := &bytes.Buffer{}
	sender := &fakeSender{}
	s := NewSession(out, sender, NewBoard(), zap.NewNop())

	s.HandleLine("buy NVDA")
	if !strings.Contains(out.String(), "add SYMBOL") {
		t.Errorf("Expected help, got %q", out.String())
	}
	if len(sender.Sent) != 0 {
		t.Errorf("Nothing should be sent, got %+v", sender.Sent)
	}
}

func TestSession_ConfirmAnswer(t *testing.T) {
	cases := map[string]bool{"y": true, "YES": true, "n": false, "": false, "maybe": false}
	for answer, want := range cases {
		out := &bytes.Buffer{}
		sender := &fakeSender{}
		s := NewSession(out, sender, NewBoard(), zap.NewNop())

		s.HandleMessage(Message{WSResponse: protocol.WSResponse{Type: protocol.TypeConfirm, Token: "tok", Message: "Remove NVDA from watchlist?"}})
		if !s.Pending() {
			t.Fatal("Expected pending removal")
		}
		if !strings.Contains(out.String(), "Remove NVDA from watchlist? [y/N]") {
			t.Errorf("Expected prompt, got %q", out.String())
		}

		if _, err := s.HandleLine(answer); err != nil {
			t.Fatal(err)
		}
		req := sender.last(t)
		if req.Action != protocol.ActionConfirm || req.Payload.Token != "tok" || req.Payload.Confirmed != want {
			t.Errorf("answer %q: unexpected request %+v", answer, req)
		}
		if s.Pending() {
			t.Errorf("answer %q: pending must clear", answer)
		}
	}
}

func TestSession_FrameRedrawsAndNotices(t *testing.T) {
	out := &bytes.Buffer{}
	s := NewSession(out, &fakeSender{}, NewBoard(), zap.NewNop())

	s.HandleMessage(frame(t, "status", map[string]string{"last_update": "3 min ago"}))
	if !strings.Contains(out.String(), "Last update: 3 min ago") {
		t.Errorf("Expected redraw, got %q", out.String())
	}

	s.HandleMessage(Message{WSResponse: protocol.WSResponse{Type: protocol.TypeNotice, Message: "AMD is already in your watchlist"}})
	if !strings.Contains(out.String(), "AMD is already in your watchlist") {
		t.Errorf("Expected notice, got %q", out.String())
	}
}

func TestConn_SendAndListen(t *testing.T) {
	upgrader := websocket.Upgrader{}
	got := make(chan protocol.WSRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		var req protocol.WSRequest
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		got <- req
		ws.WriteJSON(protocol.NewFrame("status", map[string]string{"last_update": "1 sec ago"}))
		ws.ReadMessage() // wait for the client to go away
	}))
	defer srv.Close()

	conn, err := Dial(testContext(t), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.Send(protocol.WSRequest{Action: protocol.ActionSubscribe}); err != nil {
		t.Fatal(err)
	}
	select {
	case req := <-got:
		if req.Action != protocol.ActionSubscribe {
			t.Errorf("Unexpected request %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Server never got the request")
	}

	msgs := make(chan Message, 1)
	go conn.Listen(func(m Message) { msgs <- m })

	select {
	case m := <-msgs:
		if m.Type != protocol.TypeFrame || m.Section != "status" || !strings.Contains(string(m.Data), "1 sec ago") {
			t.Errorf("Unexpected message %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No frame received")
	}
}

// testContext returns a context cancelled when the test finishes
// (equivalent of testing.T.Context, Go 1.24+).
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
