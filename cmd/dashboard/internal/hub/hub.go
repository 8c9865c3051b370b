package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/repository"
	"github.com/noemamarkets/pulse/cmd/dashboard/internal/watchlist"
	"github.com/noemamarkets/pulse/pkg/protocol"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Commander is the watchlist as seen by viewers.
type Commander interface {
	Symbols() []string
	Add(ctx context.Context, raw string) error
	Remove(ctx context.Context, raw string, confirmer watchlist.Confirmer) (bool, error)
}

// pendingRemoval is a remove request waiting for the viewer's answer.
type pendingRemoval struct {
	client ClientInterface
	symbol string
	reqID  string
}

type Hub struct {
	subscribers map[string]map[ClientInterface]bool // section -> clients
	clientSubs  map[ClientInterface]map[string]bool
	pending     map[string]pendingRemoval // token -> removal

	store     repository.FrameStore
	commander Commander
	sections  map[string]bool
	order     []string
	logger    *zap.Logger
	mu        sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(store repository.FrameStore, commander Commander, sections []string, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		subscribers: make(map[string]map[ClientInterface]bool),
		clientSubs:  make(map[ClientInterface]map[string]bool),
		pending:     make(map[string]pendingRemoval),
		store:       store,
		commander:   commander,
		sections:    make(map[string]bool, len(sections)),
		order:       append([]string(nil), sections...),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, s := range sections {
		h.sections[s] = true
	}

	go h.store.RunPubSub(ctx, h.Broadcast)

	return h
}

// Shutdown stops the frame fan-out.
func (h *Hub) Shutdown() {
	h.cancel()
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req)
	case protocol.ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case protocol.ActionAdd:
		h.handleAdd(client, req)
	case protocol.ActionRemove:
		h.handleRemove(client, req)
	case protocol.ActionConfirm:
		h.handleConfirm(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

// handleSubscribe registers the client for sections. An empty section list
// means all of them. The latest frame of each new section is sent right away.
func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	requested := req.Payload.Sections
	if len(requested) == 0 {
		requested = h.order
	}

	var valid []string
	for _, s := range requested {
		if h.sections[s] {
			// Idempotency: Ignore if already subscribed
			if h.clientSubs[client] != nil && h.clientSubs[client][s] {
				continue
			}
			valid = append(valid, s)
		}
	}

	if len(valid) == 0 {
		h.sendError(client, req.ID, "No valid/new sections provided")
		return
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}
	for _, s := range valid {
		h.clientSubs[client][s] = true
		if h.subscribers[s] == nil {
			h.subscribers[s] = make(map[ClientInterface]bool)
		}
		h.subscribers[s][client] = true
	}

	h.sendAck(client, req.ID, "success", fmt.Sprintf("Subscribed to %v", valid))

	// Send Snapshots (Async to avoid blocking lock)
	go func(targets []string) {
		snapshots, err := h.store.GetSnapshots(h.ctx, targets)
		if err != nil {
			h.logger.Warn("Snapshot read failed", zap.Strings("sections", targets), zap.Error(err))
			return
		}
		for _, snap := range snapshots {
			client.SendBytes([]byte(snap))
		}
	}(valid)
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []string
	if subs, ok := h.clientSubs[client]; ok {
		for _, s := range req.Payload.Sections {
			if subs[s] {
				delete(subs, s)
				delete(h.subscribers[s], client)
				removed = append(removed, s)
			}
		}
	}

	if len(removed) > 0 {
		h.sendAck(client, req.ID, "success", fmt.Sprintf("Unsubscribed from %v", removed))
	} else {
		h.sendError(client, req.ID, fmt.Sprintf("Not subscribed to: %v", req.Payload.Sections))
	}
}

// handleAdd runs outside the hub lock: the controller refreshes quotes
// before it returns.
func (h *Hub) handleAdd(client ClientInterface, req protocol.WSRequest) {
	sym := watchlist.Normalize(req.Payload.Symbol)
	if err := h.commander.Add(h.ctx, sym); err != nil {
		h.sendCommandError(client, req.ID, err)
		return
	}
	h.sendAck(client, req.ID, "success", "Added "+sym)
}

// handleRemove does not remove anything yet: it asks the client to confirm
// and parks the request under a fresh token.
func (h *Hub) handleRemove(client ClientInterface, req protocol.WSRequest) {
	sym := watchlist.Normalize(req.Payload.Symbol)
	if sym == "" {
		h.sendNotice(client, req.ID, "Please enter a stock symbol")
		return
	}
	if !contains(h.commander.Symbols(), sym) {
		h.sendNotice(client, req.ID, sym+" is not in your watchlist")
		return
	}

	token := uuid.NewString()
	h.mu.Lock()
	h.pending[token] = pendingRemoval{client: client, symbol: sym, reqID: req.ID}
	h.mu.Unlock()

	client.SendJSON(protocol.WSResponse{
		Type:    protocol.TypeConfirm,
		ID:      req.ID,
		Token:   token,
		Message: fmt.Sprintf("Remove %s from watchlist?", sym),
	})
}

func (h *Hub) handleConfirm(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	p, ok := h.pending[req.Payload.Token]
	if ok && p.client == client {
		delete(h.pending, req.Payload.Token)
	}
	h.mu.Unlock()

	if !ok || p.client != client {
		h.sendError(client, req.ID, "Unknown or expired confirmation")
		return
	}

	removed, err := h.commander.Remove(h.ctx, p.symbol, watchlist.Answer(req.Payload.Confirmed))
	switch {
	case err != nil:
		h.sendCommandError(client, req.ID, err)
	case removed:
		h.sendAck(client, req.ID, "success", "Removed "+p.symbol)
	default:
		h.sendAck(client, req.ID, "declined", "Kept "+p.symbol)
	}
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for s := range subs {
			delete(h.subscribers[s], client)
		}
		delete(h.clientSubs, client)
	}
	for token, p := range h.pending {
		if p.client == client {
			delete(h.pending, token)
		}
	}
	client.Close()
}

// Broadcast sends a frame to every client subscribed to its section.
func (h *Hub) Broadcast(section string, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.subscribers[section]; ok {
		msgBytes := []byte(payload)
		for client := range clients {
			client.SendBytes(msgBytes)
		}
	}
}

// Pending reports how many confirmations are outstanding.
func (h *Hub) Pending() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pending)
}

func (h *Hub) sendCommandError(c ClientInterface, id string, err error) {
	var uerr *watchlist.UserInputError
	if errors.As(err, &uerr) {
		h.sendNotice(c, id, uerr.Error())
		return
	}
	h.logger.Error("Watchlist command failed", zap.String("client", c.ID()), zap.Error(err))
	h.sendError(c, id, "Command failed")
}

func (h *Hub) sendAck(c ClientInterface, id, status, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: status, Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Message: msg})
}

func (h *Hub) sendNotice(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeNotice, ID: id, Message: msg})
}

func contains(list []string, sym string) bool {
	for _, s := range list {
		if s == sym {
			return true
		}
	}
	return false
}
