package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const defaultMaxPieces = 7

// Client queries a Lichess-style tablebase HTTP API (GET /standard?fen=...).
type Client struct {
	baseURL string
	http    *fasthttp.Client
	logger  *zap.Logger

	maxPieces      int
	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithMaxPieces(n int) Option {
	return func(c *Client) { c.maxPieces = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		logger:         zap.NewNop(),
		maxPieces:      defaultMaxPieces,
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxPieces returns the supported piece-count ceiling.
func (c *Client) MaxPieces() int { return c.maxPieces }

func (c *Client) Evaluate(ctx context.Context, fen string) (Evaluation, error) {
	resp, err := c.probe(ctx, fen)
	if err != nil {
		return Evaluation{}, err
	}
	return resp.evaluation(), nil
}

func (c *Client) TopMoves(ctx context.Context, fen string, limit int) ([]Move, error) {
	resp, err := c.probe(ctx, fen)
	if err != nil {
		return nil, err
	}
	moves := resp.moves()
	return TopN(moves, limit), nil
}

// wire format of the tablebase API

type wireMove struct {
	UCI      string `json:"uci"`
	San      string `json:"san"`
	Category string `json:"category"`
	DTZ      *int   `json:"dtz"`
	DTM      *int   `json:"dtm"`
}

type wireResponse struct {
	Category string     `json:"category"`
	DTZ      *int       `json:"dtz"`
	DTM      *int       `json:"dtm"`
	Moves    []wireMove `json:"moves"`
}

func (r *wireResponse) evaluation() Evaluation {
	cat := parseCategory(r.Category)
	return Evaluation{Category: cat, Score: cat.Score(), DTZ: r.DTZ, DTM: r.DTM}
}

// moves converts candidates to the mover's perspective. The API reports each
// move's category for the side to move afterwards, i.e. the opponent.
func (r *wireResponse) moves() []Move {
	out := make([]Move, 0, len(r.Moves))
	for _, wm := range r.Moves {
		after := Evaluation{Category: parseCategory(wm.Category), DTZ: wm.DTZ, DTM: wm.DTM}
		after.Score = after.Category.Score()
		mine := after.Negate()
		out = append(out, Move{
			UCI:      strings.ToLower(strings.TrimSpace(wm.UCI)),
			SAN:      wm.San,
			Category: mine.Category,
			Score:    mine.Score,
			DTZ:      mine.DTZ,
			DTM:      mine.DTM,
		})
	}
	return out
}

func parseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return CategoryWin
	case "cursed-win", "maybe-win":
		return CategoryCursedWin
	case "draw":
		return CategoryDraw
	case "blessed-loss", "maybe-loss":
		return CategoryBlessedLoss
	case "loss":
		return CategoryLoss
	default:
		return CategoryUnknown
	}
}

func (c *Client) probe(ctx context.Context, fen string) (*wireResponse, error) {
	if n := countPieces(fen); n == 0 || n > c.maxPieces {
		return nil, ErrUnavailable
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + "/standard?fen=" + url.QueryEscape(fen))
	req.Header.Set("Accept", "application/json")

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("tablebase request: %w", err)
			if attempt == attempts {
				break
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				break
			}
			continue
		}

		status := resp.StatusCode()
		switch {
		case status >= 200 && status < 300:
			var wire wireResponse
			if err := json.Unmarshal(resp.Body(), &wire); err != nil {
				c.logger.Warn("tablebase response not decodable",
					zap.Error(err), zap.String("body", truncate(string(resp.Body()), 256)))
				return nil, ErrUnavailable
			}
			if parseCategory(wire.Category) == CategoryUnknown {
				return nil, ErrUnavailable
			}
			return &wire, nil
		case status == fasthttp.StatusNotFound || status == fasthttp.StatusBadRequest:
			// Position outside tablebase coverage.
			return nil, ErrUnavailable
		default:
			lastErr = fmt.Errorf("tablebase api error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if attempt == attempts || !shouldRetryStatus(status) {
				break
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				break
			}
			continue
		}
		break
	}

	c.logger.Warn("tablebase lookup failed", zap.Error(lastErr))
	return nil, ErrUnavailable
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusTooManyRequests, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// countPieces counts occupied squares in the FEN board field.
func countPieces(fen string) int {
	board, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	count := 0
	for _, r := range board {
		switch {
		case r == '/' || (r >= '1' && r <= '8'):
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			count++
		}
	}
	return count
}
