package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// RESTClient implements Client against a hosted PostgREST-compatible
// backend (table CRUD under /rest/v1, procedures under /rest/v1/rpc).
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRESTClient creates a client for the backend at baseURL. The apiKey is
// sent both as the apikey header and as a bearer token.
func NewRESTClient(baseURL, apiKey string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Close is a no-op for the HTTP backend.
func (c *RESTClient) Close() error {
	return nil
}

// Select returns the rows of table matching filter.
func (c *RESTClient) Select(
	ctx context.Context,
	table string,
	filter Filter,
	order Order,
) ([]json.RawMessage, error) {
	query := filterQuery(filter)
	if order.Column != "" {
		direction := "asc"
		if order.Desc {
			direction = "desc"
		}
		query.Set("order", order.Column+"."+direction)
	}

	body, err := c.do(ctx, http.MethodGet, c.tableURL(table, query), nil, "")
	if err != nil {
		return nil, wrapTable(err, table)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &Error{Kind: KindFatal, Table: table, Message: "decoding rows: " + err.Error(), Err: err}
	}
	return rows, nil
}

// Insert stores a single row and returns the server representation.
func (c *RESTClient) Insert(
	ctx context.Context,
	table string,
	row any,
) (json.RawMessage, error) {
	rows, err := c.InsertMany(ctx, table, []any{row})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{Kind: KindFatal, Table: table, Message: "insert returned no representation"}
	}
	return rows[0], nil
}

// InsertMany stores a batch of rows in one request.
func (c *RESTClient) InsertMany(
	ctx context.Context,
	table string,
	rows []any,
) ([]json.RawMessage, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	body, err := c.do(ctx, http.MethodPost, c.tableURL(table, nil), rows, "return=representation")
	if err != nil {
		return nil, wrapTable(err, table)
	}

	var stored []json.RawMessage
	if err := json.Unmarshal(body, &stored); err != nil {
		return nil, &Error{Kind: KindFatal, Table: table, Message: "decoding representation: " + err.Error(), Err: err}
	}
	if len(stored) != len(rows) {
		return nil, &Error{
			Kind:    KindFatal,
			Table:   table,
			Message: fmt.Sprintf("inserted %d rows, representation has %d", len(rows), len(stored)),
		}
	}
	return stored, nil
}

// Update applies patch to every row matching filter.
func (c *RESTClient) Update(
	ctx context.Context,
	table string,
	patch map[string]any,
	filter Filter,
) error {
	_, err := c.do(ctx, http.MethodPatch, c.tableURL(table, filterQuery(filter)), patch, "")
	return wrapTable(err, table)
}

// Delete removes every row matching filter.
func (c *RESTClient) Delete(
	ctx context.Context,
	table string,
	filter Filter,
) error {
	_, err := c.do(ctx, http.MethodDelete, c.tableURL(table, filterQuery(filter)), nil, "")
	return wrapTable(err, table)
}

// RPC invokes a stored procedure.
func (c *RESTClient) RPC(
	ctx context.Context,
	fn string,
	args map[string]any,
) error {
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/v1/rpc/"+fn, args, "")
	return err
}

// tableURL builds the REST endpoint for a table with an optional query.
func (c *RESTClient) tableURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do executes one HTTP request, handling auth headers, JSON bodies, and
// error classification.
func (c *RESTClient) do(
	ctx context.Context,
	method string,
	rawURL string,
	body any,
	prefer string,
) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindFatal, Message: "marshaling request body: " + err.Error(), Err: err}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, &Error{Kind: KindFatal, Message: "creating request: " + err.Error(), Err: err}
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Message: "executing request: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Message: "reading response: " + err.Error(), Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	return nil, classifyResponse(resp.StatusCode, respBody)
}

// restError is the error payload PostgREST returns.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes PostgREST uses for a missing relation or function in the
// schema cache. Matched alongside the message text so that older backend
// versions, which omit the code, still classify correctly.
const (
	codeMissingTable    = "PGRST205"
	codeMissingFunction = "PGRST202"
)

// classifyResponse maps a non-2xx response onto a typed error kind. This
// is the only place the backend's error prose is inspected.
func classifyResponse(status int, body []byte) *Error {
	var payload restError
	_ = json.Unmarshal(body, &payload)

	message := payload.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(status)
	}

	kind := KindFatal
	switch {
	case payload.Code == codeMissingTable,
		payload.Code == codeMissingFunction,
		strings.Contains(message, "Could not find the table"),
		strings.Contains(message, "Could not find the function"):
		kind = KindNotProvisioned
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		kind = KindTransient
	}

	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("HTTP %d: %s", status, message),
	}
}

// wrapTable attaches the table name to an adapter error for log context.
func wrapTable(err error, table string) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok && re.Table == "" {
		re.Table = table
	}
	return err
}

// filterQuery renders equality filters in the backend's eq. operator form.
func filterQuery(filter Filter) url.Values {
	query := url.Values{}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.Set(k, fmt.Sprintf("eq.%v", filter[k]))
	}
	return query
}
