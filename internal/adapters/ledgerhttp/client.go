// Package ledgerhttp implements the ledger client over the gateway's JSON
// HTTP surface.
package ledgerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/okian/ledgerboard/internal/domain/model"
	"github.com/okian/ledgerboard/internal/domain/types"
	"github.com/okian/ledgerboard/internal/ledger"
	"github.com/okian/ledgerboard/pkg/logger"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultReadAttempts = 3
	defaultRetryDelay   = 100 * time.Millisecond
	maxErrorBody        = 1 << 12
)

// Client talks to a ledger gateway.
type Client struct {
	base         *url.URL
	http         *http.Client
	timeout      time.Duration
	readAttempts uint
	retryDelay   time.Duration
	logger       logger.Logger
}

var (
	_ ledger.Client = (*Client)(nil)
	_ ledger.Admin  = (*Client)(nil)
)

// New returns a client for the gateway at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ledgerhttp: invalid base url %q", baseURL)
	}
	c := &Client{
		base:         u,
		timeout:      defaultTimeout,
		readAttempts: defaultReadAttempts,
		retryDelay:   defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("ledgerhttp")
	}
	return c, nil
}

// TopScores implements ledger.Reader.
func (c *Client) TopScores(ctx context.Context, count int) ([]model.ScoreEntry, error) {
	const op = "ledgerhttp.top_scores"
	if err := ledger.CheckCount(op, count); err != nil {
		return nil, err
	}
	var wire []types.Entry
	q := url.Values{"count": {strconv.Itoa(count)}}
	if err := c.get(ctx, op, "/v1/scores/top", q, &wire); err != nil {
		return nil, err
	}
	out := make([]model.ScoreEntry, len(wire))
	for i, e := range wire {
		entry, err := e.Model()
		if err != nil {
			return nil, model.Unavailable(op, err)
		}
		out[i] = entry
	}
	return out, nil
}

// PlayerBestScore implements ledger.Reader.
func (c *Client) PlayerBestScore(ctx context.Context, player model.Player) (uint64, error) {
	const op = "ledgerhttp.player_best_score"
	var wire types.BestScore
	if err := c.get(ctx, op, "/v1/players/"+player.Hex()+"/best", nil, &wire); err != nil {
		return 0, err
	}
	return wire.BestScore, nil
}

// PlayerRank implements ledger.Reader.
func (c *Client) PlayerRank(ctx context.Context, player model.Player) (model.Rank, error) {
	const op = "ledgerhttp.player_rank"
	var wire types.Rank
	if err := c.get(ctx, op, "/v1/players/"+player.Hex()+"/rank", nil, &wire); err != nil {
		return model.Unranked, err
	}
	return wire.Model(), nil
}

// TopScoresCount implements ledger.Reader.
func (c *Client) TopScoresCount(ctx context.Context) (int, error) {
	const op = "ledgerhttp.top_scores_count"
	var wire types.Count
	if err := c.get(ctx, op, "/v1/scores/count", nil, &wire); err != nil {
		return 0, err
	}
	return wire.Count, nil
}

// Capacity implements ledger.Admin.
func (c *Client) Capacity(ctx context.Context) (int, error) {
	const op = "ledgerhttp.capacity"
	var wire types.Count
	if err := c.get(ctx, op, "/v1/scores/count", nil, &wire); err != nil {
		return 0, err
	}
	return wire.Capacity, nil
}

// SubmitScore implements ledger.Writer. It is never retried.
func (c *Client) SubmitScore(ctx context.Context, from model.Player, req model.SubmissionRequest) (model.Reference, error) {
	const op = "ledgerhttp.submit_score"
	if err := ledger.CheckSubmission(op, from, req); err != nil {
		return model.Reference{}, err
	}
	body := types.SubmitRequest{From: from.Hex(), Score: req.Score, GameName: req.GameName}
	var ack types.SubmitResponse
	if err := c.once(ctx, op, http.MethodPost, "/v1/transactions", nil, body, &ack); err != nil {
		return model.Reference{}, err
	}
	ref, err := types.ParseReference(ack.Reference)
	if err != nil {
		return model.Reference{}, model.Unavailable(op, err)
	}
	return ref, nil
}

// Settlement implements ledger.Writer.
func (c *Client) Settlement(ctx context.Context, ref model.Reference) (model.Receipt, error) {
	const op = "ledgerhttp.settlement"
	var wire types.Receipt
	if err := c.get(ctx, op, "/v1/transactions/"+ref.Hex(), nil, &wire); err != nil {
		return model.Receipt{}, err
	}
	r, err := wire.Model()
	if err != nil {
		return model.Receipt{}, model.Unavailable(op, err)
	}
	return r, nil
}

// Reset implements ledger.Admin.
func (c *Client) Reset(ctx context.Context, caller model.Player) error {
	const op = "ledgerhttp.reset"
	return c.once(ctx, op, http.MethodPost, "/v1/admin/reset", nil, types.ResetRequest{Caller: caller.Hex()}, nil)
}

// Stats returns the gateway's statistics document.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	const op = "ledgerhttp.stats"
	var out map[string]any
	if err := c.get(ctx, op, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// get performs an idempotent read, retrying while the gateway is
// unavailable.
func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	err := retry.Do(
		func() error { return c.once(ctx, op, http.MethodGet, path, q, nil, out) },
		retry.Context(ctx),
		retry.Attempts(c.readAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, model.ErrUnavailable) }),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug(ctx, "retrying read",
				logger.String("op", op), logger.Int("attempt", int(n)+1), logger.Error(err))
		}),
	)
	if err != nil && model.KindOf(err) == nil {
		// context ended between attempts
		err = model.Unavailable(op, err)
	}
	return err
}

func (c *Client) once(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	u := *c.base
	u.Path += path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return model.InvalidArgument(op, err.Error())
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return model.Unavailable(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Unavailable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var wire types.Error
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err := json.Unmarshal(raw, &wire); err != nil || wire.Code == "" {
			return model.Unavailable(op, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw))))
		}
		return wire.Err(op)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.Unavailable(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
