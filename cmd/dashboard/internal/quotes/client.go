package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noemamarkets/pulse/pkg/models"
)

const maxBodySize = 1 << 20

// LastUpdate is the process-wide "last successful update" timestamp. It is
// written by whichever fetch finished last and read by the age label.
type LastUpdate struct {
	mu sync.RWMutex
	t  time.Time
}

// Observe records t as the latest update. Zero values are ignored.
func (l *LastUpdate) Observe(t time.Time) {
	if t.IsZero() {
		return
	}
	l.mu.Lock()
	l.t = t
	l.mu.Unlock()
}

// Get returns the latest update and whether one was ever observed.
func (l *LastUpdate) Get() (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.t, !l.t.IsZero()
}

// Client reads the quote API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	lastUpdate *LastUpdate
	group      singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		lastUpdate: &LastUpdate{},
	}
}

// LastUpdate exposes the shared timestamp.
func (c *Client) LastUpdate() *LastUpdate { return c.lastUpdate }

// FetchQuotes looks up all symbols in one request. On any failure the whole
// batch is unavailable and the map is nil. Symbols the upstream does not know
// are absent from the result.
func (c *Client) FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	joined := strings.Join(symbols, ",")

	// Identical in-flight lookups (timer tick racing a watchlist edit) share
	// one round trip. The shared request must not die with whichever caller
	// started it; it stays bounded by the client timeout, and each caller
	// stops waiting when its own ctx is done.
	shareCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(joined, func() (interface{}, error) {
		var body models.QuotesResponse
		if err := c.get(shareCtx, "/api/quotes?symbols="+url.QueryEscape(joined), &body); err != nil {
			return nil, err
		}
		c.lastUpdate.Observe(body.LastUpdate.Time)

		out := make(map[string]models.Quote, len(body.Quotes))
		for key, q := range body.Quotes {
			if q.Symbol == "" {
				q.Symbol = key
			}
			out[strings.ToUpper(q.Symbol)] = q
		}
		return out, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: /api/quotes: %w", ErrTransport, ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.logger.Debug("Shared quote lookup", zap.String("symbols", joined))
	}

	// Each caller gets its own map.
	src := res.Val.(map[string]models.Quote)
	out := make(map[string]models.Quote, len(src))
	for k, q := range src {
		out[k] = q
	}
	return out, nil
}

// FetchIndices returns the market index snapshot, all or nothing.
func (c *Client) FetchIndices(ctx context.Context) (map[string]models.IndexSnapshot, error) {
	var body models.IndicesResponse
	if err := c.get(ctx, "/api/market-indices", &body); err != nil {
		return nil, err
	}
	c.lastUpdate.Observe(body.LastUpdate.Time)

	if body.Indices == nil {
		body.Indices = map[string]models.IndexSnapshot{}
	}
	return body.Indices, nil
}

// FetchSummary returns the market summary. A response without summary text
// means "temporarily unavailable" and yields (nil, nil). The summary does not
// touch the last-update timestamp.
func (c *Client) FetchSummary(ctx context.Context) (*models.Summary, error) {
	var body models.SummaryResponse
	if err := c.get(ctx, "/api/market-summary", &body); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body.Summary) == "" {
		return nil, nil
	}
	return &models.Summary{Text: body.Summary, GeneratedAt: body.Updated.Time}, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	endpoint := strings.SplitN(path, "?", 2)[0]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
	}
	return nil
}
