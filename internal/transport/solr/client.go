// Package solr is the HTTP transport to a Solr core: select and mlt queries,
// document updates and ping.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/solrq/internal/domain/search/params"
	"github.com/kailas-cloud/solrq/internal/domain/search/response"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
	"github.com/kailas-cloud/solrq/internal/metrics"
)

const maxErrorBody = 4 << 10

// Config holds the Solr connection settings.
type Config struct {
	URL  string
	Core string
	// Timeout bounds one request; 0 leaves it to the context.
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests; 0 disables the limit.
	RequestsPerSecond float64
	Burst             int
	// Gzip asks Solr for compressed responses.
	Gzip       bool
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to one Solr core.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	gzip    bool
	logger  *zap.Logger
}

// New creates a client for cfg.URL/cfg.Core.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("solr url is required")
	}
	if cfg.Core == "" {
		return nil, fmt.Errorf("solr core is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		base:   strings.TrimRight(cfg.URL, "/") + "/" + strings.Trim(cfg.Core, "/"),
		http:   hc,
		gzip:   cfg.Gzip,
		logger: logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Query posts p to handler (select, mlt) and decodes the JSON response.
func (c *Client) Query(ctx context.Context, handler string, p params.Params) (*response.Response, error) {
	values, err := p.Values()
	if err != nil {
		return nil, &Error{Op: handler, Msg: "encode params", Err: err}
	}
	values.Set("wt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+handler,
		strings.NewReader(values.Encode()))
	if err != nil {
		return nil, &Error{Op: handler, Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, handler)
}

// Add indexes docs without committing.
func (c *Client) Add(ctx context.Context, docs []setup.Document) error {
	body := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		body = append(body, d.Map())
	}
	return c.update(ctx, "add", body)
}

// Delete removes documents by index id.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.update(ctx, "delete", map[string]any{"delete": ids})
}

// Commit makes pending updates visible.
func (c *Client) Commit(ctx context.Context) error {
	return c.update(ctx, "commit", map[string]any{"commit": map[string]any{}})
}

// Ping checks the core answers its ping handler.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/admin/ping?wt=json", http.NoBody)
	if err != nil {
		return &Error{Op: "ping", Msg: "build request", Err: err}
	}
	_, err = c.do(req, "ping")
	return err
}

func (c *Client) update(ctx context.Context, op string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Msg: "encode body", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/update?wt=json", bytes.NewReader(b))
	if err != nil {
		return &Error{Op: op, Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req, op)
	return err
}

func (c *Client) do(req *http.Request, op string) (*response.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, &Error{Op: op, Msg: "rate limit wait", Err: err}
		}
	}
	if c.gzip {
		// Setting the header disables the transport's transparent decompression.
		req.Header.Set("Accept-Encoding", "gzip")
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.SolrRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, &Error{Op: op, Msg: "request failed", Err: err}
	}
	defer func() { _ = res.Body.Close() }()
	metrics.SolrRequestDuration.WithLabelValues(op, strconv.Itoa(res.StatusCode)).
		Observe(time.Since(start).Seconds())

	body := io.Reader(res.Body)
	if strings.EqualFold(res.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, &Error{Op: op, Status: res.StatusCode, Msg: "gzip body", Err: err}
		}
		defer func() { _ = zr.Close() }()
		body = zr
	}

	if res.StatusCode >= http.StatusMultipleChoices {
		return nil, c.statusError(op, res.StatusCode, body)
	}

	resp, err := response.Decode(body)
	if err != nil {
		return nil, &Error{Op: op, Status: res.StatusCode, Msg: "decode response", Err: err}
	}
	c.logger.Debug("solr request",
		zap.String("op", op),
		zap.Int("status", res.StatusCode),
		zap.Int("qtime_ms", resp.Header.QTime),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

// statusError reads Solr's error envelope when the body carries one.
func (c *Client) statusError(op string, status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	msg := http.StatusText(status)
	if resp, err := response.DecodeBytes(raw); err == nil && resp.Error != nil && resp.Error.Msg != "" {
		msg = resp.Error.Msg
	} else if s := strings.TrimSpace(string(raw)); s != "" && !strings.HasPrefix(s, "<") {
		msg = s
	}
	c.logger.Warn("solr request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("msg", msg),
	)
	return &Error{Op: op, Status: status, Msg: msg}
}
