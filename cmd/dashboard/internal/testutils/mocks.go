package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/noemamarkets/pulse/pkg/models"
	"github.com/noemamarkets/pulse/pkg/protocol"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // Stores JSON messages
	RawBytes []string              // Stores raw bytes (frames)
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsg() protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return protocol.WSResponse{}
	}
	return m.Messages[len(m.Messages)-1]
}

func (m *MockClient) LastMsgType() string { return m.LastMsg().Type }

func (m *MockClient) RawCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.RawBytes)
}

// MockFrameStore keeps frames in memory.
type MockFrameStore struct {
	Frames    map[string]string // section -> latest payload
	Published []string          // sections, in publish order
	Err       error
	Mu        sync.Mutex
}

func NewMockFrameStore() *MockFrameStore {
	return &MockFrameStore{Frames: make(map[string]string)}
}

func (m *MockFrameStore) GetSnapshots(ctx context.Context, sections []string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []string
	for _, s := range sections {
		if f, ok := m.Frames[s]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MockFrameStore) PublishFrame(ctx context.Context, section string, payload []byte) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Frames[section] = string(payload)
	m.Published = append(m.Published, section)
	return nil
}

func (m *MockFrameStore) RunPubSub(ctx context.Context, onMessage func(section string, payload string)) {
	// No-op for unit tests
}

func (m *MockFrameStore) Close() error { return nil }

// Frame decodes the latest frame of a section.
func (m *MockFrameStore) Frame(t *testing.T, section string, into interface{}) bool {
	t.Helper()
	m.Mu.Lock()
	raw, ok := m.Frames[section]
	m.Mu.Unlock()
	if !ok {
		return false
	}
	resp := protocol.WSResponse{Data: into}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Bad frame for %s: %v", section, err)
	}
	return true
}

// MockListStore records every save.
type MockListStore struct {
	Initial []string
	Saves   [][]string
	SaveErr error
	Mu      sync.Mutex
}

func NewMockListStore(initial ...string) *MockListStore {
	return &MockListStore{Initial: initial}
}

func (m *MockListStore) Load(ctx context.Context) []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]string(nil), m.Initial...)
}

func (m *MockListStore) Save(ctx context.Context, symbols []string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves = append(m.Saves, append([]string{}, symbols...))
	return nil
}

// Last returns the most recently saved list, or nil if nothing was saved.
func (m *MockListStore) Last() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Saves) == 0 {
		return nil
	}
	return m.Saves[len(m.Saves)-1]
}

func (m *MockListStore) SaveCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Saves)
}

var ErrMockUpstream = errors.New("mock upstream down")

// MockQuoteSource answers from a fixed table. Symbols missing from Quotes are
// left out of the result, like the real upstream does.
type MockQuoteSource struct {
	Quotes  map[string]models.Quote
	Indices map[string]models.IndexSnapshot
	Summary *models.Summary
	Err     error
	Calls   int
	// Block, when set, holds every fetch until it is closed.
	Block chan struct{}
	Mu    sync.Mutex
}

func NewMockQuoteSource(quotes ...models.Quote) *MockQuoteSource {
	m := &MockQuoteSource{Quotes: make(map[string]models.Quote)}
	for _, q := range quotes {
		m.Quotes[q.Symbol] = q
	}
	return m
}

func (m *MockQuoteSource) FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]models.Quote)
	for _, s := range symbols {
		if q, ok := m.Quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (m *MockQuoteSource) FetchIndices(ctx context.Context) (map[string]models.IndexSnapshot, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Indices, nil
}

func (m *MockQuoteSource) FetchSummary(ctx context.Context) (*models.Summary, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Summary, nil
}

func (m *MockQuoteSource) SetErr(err error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Err = err
}

func (m *MockQuoteSource) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Calls
}

// MockPublisher records rendered views per section.
type MockPublisher struct {
	Sections []string
	Views    []interface{}
	Mu       sync.Mutex
}

func (m *MockPublisher) Publish(ctx context.Context, section string, view interface{}) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Sections = append(m.Sections, section)
	m.Views = append(m.Views, view)
	return nil
}

// Last returns the latest view published for a section.
func (m *MockPublisher) Last(section string) (interface{}, bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for i := len(m.Sections) - 1; i >= 0; i-- {
		if m.Sections[i] == section {
			return m.Views[i], true
		}
	}
	return nil, false
}

func (m *MockPublisher) Count(section string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := 0
	for _, s := range m.Sections {
		if s == section {
			n++
		}
	}
	return n
}

func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("Assertion failed: %s", msg)
	}
}
