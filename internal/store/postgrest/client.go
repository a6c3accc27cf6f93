// Package postgrest implements store.Store against a PostgREST endpoint.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/planrollup/internal/store"
	"github.com/go-faster/errors"
	"github.com/sethvargo/go-retry"
)

const DefaultPageSize = 1000

type Config struct {
	// BaseURL is the REST root, e.g. https://host/rest/v1.
	BaseURL string
	Key     string

	// Timeout bounds each attempt, not the whole retried call.
	Timeout  time.Duration
	Retries  uint64
	Backoff  time.Duration
	PageSize int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *store.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to PostgREST with the anon/service key in both the apikey
// and bearer headers.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *store.Metrics
	logger  *slog.Logger
}

var _ store.Store = (*Client)(nil)

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg.withDefaults(),
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	table  string
	op     string
	method string
	query  url.Values
	body   any
	prefer string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) Insert(ctx context.Context, table string, rows []store.Row) ([]store.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	t, err := store.Lookup(table)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := t.CheckRow(r); err != nil {
			return nil, err
		}
	}
	res, err := c.do(ctx, request{
		table:  table,
		op:     "insert",
		method: http.MethodPost,
		body:   encodeRows(rows),
		prefer: "return=representation",
	})
	if err != nil {
		return nil, err
	}
	return decodeRows(res.body)
}

// Select pages through results PageSize rows at a time until a short page
// arrives or q.Limit is reached.
func (c *Client) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	t, err := store.Lookup(table)
	if err != nil {
		return nil, err
	}
	if err := t.CheckQuery(q); err != nil {
		return nil, err
	}
	base, err := filterValues(q.Filters)
	if err != nil {
		return nil, err
	}
	if len(q.Columns) > 0 {
		base.Set("select", strings.Join(q.Columns, ","))
	}
	base.Set("order", orderParam(q.Order, t.Key))

	var out []store.Row
	offset := q.Offset
	for {
		size := c.cfg.PageSize
		if q.Limit > 0 {
			size = min(size, q.Limit-len(out))
			if size <= 0 {
				break
			}
		}
		params := cloneValues(base)
		params.Set("limit", strconv.Itoa(size))
		if offset > 0 {
			params.Set("offset", strconv.Itoa(offset))
		}
		res, err := c.do(ctx, request{table: table, op: "select", method: http.MethodGet, query: params})
		if err != nil {
			return nil, err
		}
		page, err := decodeRows(res.body)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < size {
			break
		}
		offset += len(page)
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, table string, filters []store.Filter, patch store.Row) (int, error) {
	t, err := store.Lookup(table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, errors.Wrapf(store.ErrUnfiltered, "update %s", table)
	}
	if err := t.CheckFilters(filters); err != nil {
		return 0, err
	}
	if err := t.CheckRow(patch); err != nil {
		return 0, err
	}
	params, err := filterValues(filters)
	if err != nil {
		return 0, err
	}
	res, err := c.do(ctx, request{
		table:  table,
		op:     "update",
		method: http.MethodPatch,
		query:  params,
		body:   encodeRow(patch),
		prefer: "return=minimal,count=exact",
	})
	if err != nil {
		return 0, err
	}
	return affected(res.header), nil
}

func (c *Client) Delete(ctx context.Context, table string, filters []store.Filter) (int, error) {
	t, err := store.Lookup(table)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, errors.Wrapf(store.ErrUnfiltered, "delete from %s", table)
	}
	if err := t.CheckFilters(filters); err != nil {
		return 0, err
	}
	params, err := filterValues(filters)
	if err != nil {
		return 0, err
	}
	res, err := c.do(ctx, request{
		table:  table,
		op:     "delete",
		method: http.MethodDelete,
		query:  params,
		prefer: "return=minimal,count=exact",
	})
	if err != nil {
		return 0, err
	}
	return affected(res.header), nil
}

// do retries network failures, 5xx and 429 with constant backoff. Other
// 4xx responses fail immediately with store.ErrRejected.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
	}

	var (
		res     *response
		attempt int
	)
	backoff := retry.WithMaxRetries(c.cfg.Retries, retry.NewConstant(c.cfg.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			c.metrics.Retry(req.table, req.op)
		}
		attempt++
		r, err := c.attempt(ctx, req, payload)
		if err != nil {
			c.logger.Debug("postgrest attempt failed",
				"table", req.table, "op", req.op, "attempt", attempt, "error", err)
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.op, req.table)
	}
	return res, nil
}

func (c *Client) attempt(ctx context.Context, req request, payload []byte) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := c.cfg.BaseURL + "/" + req.table
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("apikey", c.cfg.Key)
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Key)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.prefer != "" {
		httpReq.Header.Set("Prefer", req.prefer)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("%w: %v", store.ErrTransport, err))
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("%w: reading response: %v", store.ErrTransport, err))
	}

	switch code := httpResp.StatusCode; {
	case code >= 500 || code == http.StatusTooManyRequests:
		return nil, retry.RetryableError(fmt.Errorf("%w: status %d: %s", store.ErrTransport, code, snippet(data)))
	case code >= 400:
		return nil, fmt.Errorf("%w: status %d: %s", store.ErrRejected, code, snippet(data))
	}
	return &response{status: httpResp.StatusCode, header: httpResp.Header, body: data}, nil
}

func snippet(b []byte) string {
	const limit = 300
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// affected reads the total from a Content-Range header such as "0-4/5"
// or "*/0".
func affected(h http.Header) int {
	cr := h.Get("Content-Range")
	i := strings.LastIndexByte(cr, '/')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(cr[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
