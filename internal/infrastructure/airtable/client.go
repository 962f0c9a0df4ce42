package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/tablesched/internal/domain/reservation"
)

const DefaultAPIURL = "https://api.airtable.com/v0"

type Options struct {
	APIURL string
	Token  string
	BaseID string

	// Timeout bounds each HTTP call, including reads of paginated lists.
	Timeout time.Duration
	// ReadRetries is how often a failed GET is retried. Writes are never retried.
	ReadRetries int
	// RatePerSecond paces outgoing calls; Airtable allows 5 per base.
	RatePerSecond float64

	HTTPClient *http.Client
	Log        *zap.Logger
}

// Client is a small Airtable REST client. Every transport failure, timeout
// and unexpected status is returned wrapped in ErrRepositoryUnavailable.
type Client struct {
	hc      *http.Client
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger
}

func New(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 5
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		hc:      hc,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		log:     log,
	}
}

type record struct {
	ID          string         `json:"id"`
	CreatedTime time.Time      `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

// statusError is an HTTP status outside 2xx returned by the API.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: %s (status=%d)", e.Message, e.Status)
	}
	return fmt.Sprintf("airtable: status=%d", e.Status)
}

func (e *statusError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// list fetches every record of table matching formula, following offsets.
func (c *Client) list(ctx context.Context, table, formula string, extra url.Values) ([]record, error) {
	var out []record
	offset := ""
	for {
		q := url.Values{}
		for k, vs := range extra {
			q[k] = vs
		}
		if formula != "" {
			q.Set("filterByFormula", formula)
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		var page listResponse
		if err := c.read(ctx, c.tableURL(table), q, &page); err != nil {
			return nil, unavailable(http.MethodGet, c.tableURL(table), err)
		}
		out = append(out, page.Records...)
		if page.Offset == "" || extra.Get("maxRecords") != "" {
			return out, nil
		}
		offset = page.Offset
	}
}

func (c *Client) getRecord(ctx context.Context, table, id string) (record, error) {
	var r record
	u := c.tableURL(table) + "/" + url.PathEscape(id)
	if err := c.read(ctx, u, nil, &r); err != nil {
		return record{}, classify(http.MethodGet, u, err)
	}
	return r, nil
}

func (c *Client) createRecord(ctx context.Context, table string, fields map[string]any) (record, error) {
	body, err := json.Marshal(map[string]any{"fields": fields, "typecast": true})
	if err != nil {
		return record{}, err
	}
	var r record
	if err := c.write(ctx, http.MethodPost, c.tableURL(table), body, &r); err != nil {
		return record{}, unavailable(http.MethodPost, c.tableURL(table), err)
	}
	return r, nil
}

func (c *Client) patchRecord(ctx context.Context, table, id string, fields map[string]any) error {
	body, err := json.Marshal(map[string]any{"fields": fields, "typecast": true})
	if err != nil {
		return err
	}
	u := c.tableURL(table) + "/" + url.PathEscape(id)
	if err := c.write(ctx, http.MethodPatch, u, body, nil); err != nil {
		return classify(http.MethodPatch, u, err)
	}
	return nil
}

func (c *Client) tableURL(table string) string {
	return strings.TrimRight(c.opts.APIURL, "/") + "/" + url.PathEscape(c.opts.BaseID) + "/" + url.PathEscape(table)
}

// read performs a GET, retrying transport errors, 429 and 5xx. The returned
// error is unclassified.
func (c *Client) read(ctx context.Context, rawURL string, q url.Values, out any) error {
	var err error
	for attempt := 0; attempt <= c.opts.ReadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
			c.log.Debug("retrying airtable read", zap.Int("attempt", attempt), zap.Error(err))
		}
		var body []byte
		body, err = c.do(ctx, http.MethodGet, rawURL, q, nil)
		if err == nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
	}
	return err
}

func (c *Client) write(ctx context.Context, method, rawURL string, payload []byte, out any) error {
	body, err := c.do(ctx, method, rawURL, nil, payload)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug("airtable call", zap.String("method", method), zap.String("path", req.URL.Path),
		zap.Int("status", res.StatusCode), zap.Duration("latency", time.Since(start)))

	if res.StatusCode >= 300 {
		return nil, &statusError{Status: res.StatusCode, Message: errorMessage(b)}
	}
	return b, nil
}

// errorMessage extracts the message from {"error":{"type","message"}} or {"error":"TYPE"}.
func errorMessage(body []byte) string {
	var r struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &r) != nil || len(r.Error) == 0 {
		return ""
	}
	var typed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(r.Error, &typed) == nil {
		if typed.Message != "" {
			return typed.Message
		}
		return typed.Type
	}
	var s string
	_ = json.Unmarshal(r.Error, &s)
	return s
}

func classify(method, rawURL string, err error) error {
	var se *statusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %w", reservation.ErrNotFound, err)
	}
	return unavailable(method, rawURL, err)
}

func unavailable(method, rawURL string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", reservation.ErrRepositoryUnavailable, method, redact(rawURL), err)
}

// redact drops the query so formulas with phone numbers stay out of logs.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
