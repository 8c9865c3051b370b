package hub_test

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/hub"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/render"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/testutils"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/watchlist"
	"github.com/noemamarkets/pulse/pkg/protocol"
)

type fixture struct {
	hub   *hub.Hub
	store *testutils.MockFrameStore
	list  *testutils.MockListStore
	ctrl  *watchlist.Controller
}

func setup(t *testing.T, symbols ...string) fixture {
	store := testutils.NewMockFrameStore()
	list := testutils.NewMockListStore(symbols...)
	ctrl := watchlist.NewController(context.Background(), list, testutils.NewMockQuoteSource(), &testutils.MockPublisher{}, zap.NewNop())
	h := hub.NewHub(store, ctrl, render.Sections, zap.NewNop())
	t.Cleanup(h.Shutdown)
	return fixture{hub: h, store: store, list: list, ctrl: ctrl}
}

func TestHub_Subscribe_Success(t *testing.T) {
	f := setup(t)
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action:  "subscribe",
		Payload: protocol.RequestPayload{Sections: []string{"watchlist"}},
		ID:      "req-1",
	})

	if client.LastMsgType() != "ack" {
		t.Errorf("Expected ack, got %s", client.LastMsgType())
	}

	f.hub.Broadcast("watchlist", `{"type":"frame","section":"watchlist"}`)
	f.hub.Broadcast("indices", `{"type":"frame","section":"indices"}`)
	if client.RawCount() != 1 {
		t.Errorf("Expected only the watchlist frame, got %d", client.RawCount())
	}
}

func TestHub_Subscribe_AllSections(t *testing.T) {
	f := setup(t)
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{Action: "subscribe"})

	msg := client.LastMsg()
	for _, s := range render.Sections {
		if !strings.Contains(msg.Message, s) {
			t.Errorf("Expected %s in %q", s, msg.Message)
		}
	}
}

func TestHub_Subscribe_MixedValidity(t *testing.T) {
	f := setup(t)
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action:  "subscribe",
		Payload: protocol.RequestPayload{Sections: []string{"summary", "weather"}},
		ID:      "req-2",
	})

	lastMsg := client.LastMsg()
	if lastMsg.Status != "success" {
		t.Errorf("Expected success for partial valid subscription")
	}
	if !strings.Contains(lastMsg.Message, "summary") {
		t.Errorf("Response should contain accepted section")
	}
	if strings.Contains(lastMsg.Message, "weather") {
		t.Errorf("Response should NOT contain invalid section")
	}
}

func TestHub_Subscribe_Idempotency(t *testing.T) {
	f := setup(t)
	client := testutils.NewMockClient("c1")
	req := protocol.WSRequest{
		Action: "subscribe", Payload: protocol.RequestPayload{Sections: []string{"feed"}},
	}

	f.hub.HandleCommand(client, req)
	f.hub.HandleCommand(client, req)

	if client.LastMsgType() != "error" {
		t.Errorf("Second subscribe should report nothing new, got %s", client.LastMsgType())
	}
	f.hub.Broadcast("feed", "x")
	if client.RawCount() != 1 {
		t.Errorf("Client must receive each frame once, got %d", client.RawCount())
	}
}

func TestHub_Unsubscribe_NotSubscribed(t *testing.T) {
	f := setup(t)
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action: "unsubscribe", Payload: protocol.RequestPayload{Sections: []string{"feed"}},
		ID: "err-check",
	})

	if client.LastMsgType() != "error" {
		t.Errorf("Expected error response for unsubscribing non-watched section")
	}
}

func TestHub_Unsubscribe_StopsFrames(t *testing.T) {
	f := setup(t)
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action: "subscribe", Payload: protocol.RequestPayload{Sections: []string{"feed", "status"}},
	})
	f.hub.HandleCommand(client, protocol.WSRequest{
		Action: "unsubscribe", Payload: protocol.RequestPayload{Sections: []string{"feed"}},
	})

	f.hub.Broadcast("feed", "x")
	f.hub.Broadcast("status", "y")
	if client.RawCount() != 1 {
		t.Errorf("Expected only the status frame, got %d", client.RawCount())
	}
}

func TestHub_Add(t *testing.T) {
	f := setup(t, "NVDA")
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action: "add", Payload: protocol.RequestPayload{Symbol: " aapl "}, ID: "a1",
	})
	if msg := client.LastMsg(); msg.Type != "ack" || msg.Message != "Added AAPL" {
		t.Errorf("Unexpected reply %+v", msg)
	}

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action: "add", Payload: protocol.RequestPayload{Symbol: "nvda"}, ID: "a2",
	})
	if msg := client.LastMsg(); msg.Type != "notice" || msg.Message != "NVDA is already in your watchlist" {
		t.Errorf("Expected duplicate notice, got %+v", msg)
	}
}

func TestHub_RemoveNeedsConfirmation(t *testing.T) {
	f := setup(t, "NVDA", "AAPL")
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action: "remove", Payload: protocol.RequestPayload{Symbol: "aapl"}, ID: "r1",
	})
	prompt := client.LastMsg()
	if prompt.Type != "confirm" || prompt.Token == "" {
		t.Fatalf("Expected confirmation prompt, got %+v", prompt)
	}
	if f.list.SaveCount() != 0 {
		t.Fatalf("Nothing may be written before the answer")
	}

	f.hub.HandleCommand(client, protocol.WSRequest{
		Action: "confirm", Payload: protocol.RequestPayload{Token: prompt.Token, Confirmed: true}, ID: "r1",
	})
	if msg := client.LastMsg(); msg.Type != "ack" || msg.Message != "Removed AAPL" {
		t.Errorf("Unexpected reply %+v", msg)
	}
	if got := f.list.Last(); len(got) != 1 || got[0] != "NVDA" {
		t.Errorf("Unexpected saved list %v", got)
	}
	if f.hub.Pending() != 0 {
		t.Errorf("Token should be consumed")
	}
}

func TestHub_RemoveDeclined(t *testing.T) {
	f := setup(t, "NVDA")
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{Action: "remove", Payload: protocol.RequestPayload{Symbol: "NVDA"}})
	token := client.LastMsg().Token
	f.hub.HandleCommand(client, protocol.WSRequest{Action: "confirm", Payload: protocol.RequestPayload{Token: token}})

	if msg := client.LastMsg(); msg.Status != "declined" {
		t.Errorf("Expected declined ack, got %+v", msg)
	}
	if f.list.SaveCount() != 0 || len(f.ctrl.Symbols()) != 1 {
		t.Errorf("Declined removal changed the list")
	}
}

func TestHub_RemoveMissingSymbol(t *testing.T) {
	f := setup(t, "NVDA")
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{Action: "remove", Payload: protocol.RequestPayload{Symbol: "MSFT"}})
	if msg := client.LastMsg(); msg.Type != "notice" || msg.Message != "MSFT is not in your watchlist" {
		t.Errorf("Unexpected reply %+v", msg)
	}
	if f.hub.Pending() != 0 {
		t.Errorf("No confirmation should be pending")
	}
}

func TestHub_ConfirmTokenBelongsToClient(t *testing.T) {
	f := setup(t, "NVDA")
	owner := testutils.NewMockClient("c1")
	other := testutils.NewMockClient("c2")

	f.hub.HandleCommand(owner, protocol.WSRequest{Action: "remove", Payload: protocol.RequestPayload{Symbol: "NVDA"}})
	token := owner.LastMsg().Token

	f.hub.HandleCommand(other, protocol.WSRequest{Action: "confirm", Payload: protocol.RequestPayload{Token: token, Confirmed: true}})
	if other.LastMsgType() != "error" {
		t.Errorf("Foreign token must be rejected")
	}
	if len(f.ctrl.Symbols()) != 1 {
		t.Errorf("List changed through a foreign token")
	}
}

func TestHub_UnregisterDropsPending(t *testing.T) {
	f := setup(t, "NVDA")
	client := testutils.NewMockClient("c1")

	f.hub.HandleCommand(client, protocol.WSRequest{Action: "subscribe"})
	f.hub.HandleCommand(client, protocol.WSRequest{Action: "remove", Payload: protocol.RequestPayload{Symbol: "NVDA"}})
	f.hub.Unregister(client)

	if f.hub.Pending() != 0 {
		t.Errorf("Pending confirmation should be dropped")
	}
	client.Mu.Lock()
	closed := client.Closed
	client.Mu.Unlock()
	if !closed {
		t.Errorf("Client should be closed")
	}
	before := client.RawCount()
	f.hub.Broadcast("status", "x")
	if client.RawCount() != before {
		t.Errorf("Unregistered client still receives frames")
	}
}

func TestHub_UnknownAction(t *testing.T) {
	f := setup(t)
	client := testutils.NewMockClient("c1")
	f.hub.HandleCommand(client, protocol.WSRequest{Action: "dance"})
	if msg := client.LastMsg(); msg.Type != "error" || !strings.Contains(msg.Message, "dance") {
		t.Errorf("Unexpected reply %+v", msg)
	}
}

func TestHub_RaceCondition(t *testing.T) {
	// Run with `go test -race ./...`
	f := setup(t, "NVDA")
	client := testutils.NewMockClient("c1")
	done := make(chan struct{}, 3)

	go func() {
		f.hub.HandleCommand(client, protocol.WSRequest{Action: "subscribe", Payload: protocol.RequestPayload{Sections: []string{"watchlist"}}})
		done <- struct{}{}
	}()
	go func() {
		f.hub.HandleCommand(client, protocol.WSRequest{Action: "remove", Payload: protocol.RequestPayload{Symbol: "NVDA"}})
		done <- struct{}{}
	}()
	go func() {
		f.hub.Unregister(client)
		done <- struct{}{}
	}()
	for i := 0; i < 3; i++ {
		<-done
	}
}
