// Package client is a small Supabase client covering PostgREST table access
// and the GoTrue auth endpoints used by the portal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/video_portal/internal/httputil"
)

// maxResponseBytes bounds any single Supabase response body.
const maxResponseBytes = 8 << 20

// Client is a Supabase REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// New creates a new Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// WithToken returns a shallow copy that authenticates as the user owning
// accessToken, so row level security applies to its queries.
func (c *Client) WithToken(accessToken string) *Client {
	cp := *c
	cp.token = accessToken
	return &cp
}

// BaseURL returns the project URL.
func (c *Client) BaseURL() string { return c.baseURL }

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client: c,
		table:  table,
	}
}

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client     *Client
	table      string
	columns    string
	filters    url.Values
	orders     []string
	limit      int
	single     bool
	upsert     bool
	onConflict string
}

func (q *QueryBuilder) filter(column, op string, value any) *QueryBuilder {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, op+"."+fmt.Sprint(value))
	return q
}

// Select specifies columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.filter(column, "eq", value)
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, fmt.Sprintf("%s.%s", column, dir))
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single expects exactly one row. PostgREST answers 406 with code PGRST116
// when there is none.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Upsert turns the next ExecuteInsert into an upsert resolving conflicts on
// the given comma separated columns.
func (q *QueryBuilder) Upsert(onConflict string) *QueryBuilder {
	q.upsert = true
	q.onConflict = onConflict
	return q
}

func (q *QueryBuilder) endpoint(withReadParams bool) string {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)

	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if withReadParams {
		if len(q.orders) > 0 {
			params.Set("order", strings.Join(q.orders, ","))
		}
		if q.limit > 0 {
			params.Set("limit", strconv.Itoa(q.limit))
		}
	}
	if q.upsert && q.onConflict != "" {
		params.Set("on_conflict", q.onConflict)
	}

	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

// Execute executes a SELECT query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint(true), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(req)
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}

	return q.client.do(req)
}

// ExecuteInsert executes an INSERT (or upsert) of data, returning the rows.
func (q *QueryBuilder) ExecuteInsert(ctx context.Context, data any) (*Response, error) {
	req, err := q.client.newJSONRequest(ctx, http.MethodPost, q.endpoint(false), data)
	if err != nil {
		return nil, err
	}

	prefer := "return=representation"
	if q.upsert {
		prefer = "resolution=merge-duplicates," + prefer
	}
	req.Header.Set("Prefer", prefer)

	return q.client.do(req)
}

// ExecuteUpdate executes an UPDATE of the filtered rows.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	req, err := q.client.newJSONRequest(ctx, http.MethodPatch, q.endpoint(false), data)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "return=representation")

	return q.client.do(req)
}

// ExecuteDelete executes a DELETE of the filtered rows.
func (q *QueryBuilder) ExecuteDelete(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, q.endpoint(false), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q.client.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	return q.client.do(req)
}

// Response is a generic API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Error returns an *APIError if the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	return parseAPIError(r.StatusCode, r.Body)
}

// Decode checks the status and unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := r.Error(); err != nil {
		return err
	}
	if v == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := r.JSON(v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, reqURL string, data any) (*http.Request, error) {
	var body io.Reader
	var raw []byte
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal data: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) setHeaders(req *http.Request) {
	bearer := c.apiKey
	if c.token != "" {
		bearer = c.token
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := httputil.ReadAllStrict(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
