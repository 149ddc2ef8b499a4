// Package api is the REST client for the recon server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/recon/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Recon/1.0"
	apiPrefix      = "/api/"

	// ProgramsPath serves the active program names for the run view.
	ProgramsPath = "shared/programs/dropdown"
)

var placeholder = regexp.MustCompile(`\{([^{}]+)\}`)

// Client implements domain.ResourceRepository and domain.ProgramRepository
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new recon API client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the server root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// doRequest performs an HTTP request against the API prefix. Only
// transport failures are returned as errors; callers inspect the status.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) (response, error) {
	reqURL := c.baseURL + apiPrefix + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return response{}, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return response{}, ctx.Err()
		}
		c.logger.Error("api request failed", "error", err)
		return response{}, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Error("api request error", "status", resp.StatusCode, "url", reqURL, "body", string(b))
	}
	return response{status: resp.StatusCode, body: b}, nil
}

// statusError converts a non-2xx list response into an error.
func statusError(r response) error {
	if r.status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	var body mutationResponse
	if err := decode(r.body, &body); err == nil {
		if msg := firstNonEmpty(body.Error, body.Message); msg != "" {
			return fmt.Errorf("server error (%d): %s", r.status, msg)
		}
	}
	return fmt.Errorf("unexpected status code: %d", r.status)
}

// List fetches one page of a resource.
func (c *Client) List(ctx context.Context, res domain.Resource, q domain.QueryParams) (domain.PageResult[domain.Record], error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(max(q.Page, 1)))
	if q.PageSize > 0 {
		query.Set("limit", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if cat := q.EffectiveCategory(); cat != "" {
		query.Set("category", cat)
	}

	r, err := c.doRequest(ctx, http.MethodGet, res.Path, query, nil)
	if err != nil {
		return domain.PageResult[domain.Record]{}, err
	}
	if !r.ok() {
		return domain.PageResult[domain.Record]{}, statusError(r)
	}

	var body listResponse
	trimmed := bytes.TrimSpace(r.body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = decode(trimmed, &body.Data)
	} else {
		err = decode(trimmed, &body)
	}
	if err != nil {
		c.logger.Error("failed to parse list response", "path", res.Path, "error", err)
		return domain.PageResult[domain.Record]{}, fmt.Errorf("%w: %v", domain.ErrBadResponse, err)
	}
	return mapPage(body, q.Page), nil
}

// Create posts a new record to the resource collection.
func (c *Client) Create(ctx context.Context, res domain.Resource, item domain.Record) (domain.Envelope[domain.Record], error) {
	payload := item.Clone()
	if payload.GetID() == "" {
		delete(payload, domain.IDField)
	}
	return c.mutate(ctx, http.MethodPost, res.Path, payload)
}

// Update puts the record to its item path.
func (c *Client) Update(ctx context.Context, res domain.Resource, item domain.Record) (domain.Envelope[domain.Record], error) {
	path, err := ItemPath(res, item)
	if err != nil {
		return domain.Envelope[domain.Record]{}, err
	}
	return c.mutate(ctx, http.MethodPut, path, item)
}

// Delete removes the record at its item path.
func (c *Client) Delete(ctx context.Context, res domain.Resource, item domain.Record) (domain.Envelope[domain.Record], error) {
	path, err := ItemPath(res, item)
	if err != nil {
		return domain.Envelope[domain.Record]{}, err
	}
	return c.mutate(ctx, http.MethodDelete, path, nil)
}

func (c *Client) mutate(ctx context.Context, method, path string, payload any) (domain.Envelope[domain.Record], error) {
	r, err := c.doRequest(ctx, method, path, nil, payload)
	if err != nil {
		return domain.Envelope[domain.Record]{}, err
	}

	var body mutationResponse
	var raw map[string]any
	if len(bytes.TrimSpace(r.body)) > 0 {
		if err := decode(r.body, &body); err != nil {
			c.logger.Warn("non-JSON mutation response", "method", method, "path", path, "status", r.status)
			body = mutationResponse{}
		} else {
			_ = decode(r.body, &raw)
		}
	}

	env := mapEnvelope(body, r.ok(), http.StatusText(r.status))
	if env.Success && env.Data == nil && env.ID == "" && method == http.MethodPost {
		env.ID = createdID(raw)
	}

	c.logger.Debug("api mutation", "method", method, "path", path, "success", env.Success, "error", env.Error)
	return env, nil
}

// ItemPath resolves the update/delete path of a record, filling
// placeholders from the record's fields.
func ItemPath(res domain.Resource, item domain.Record) (string, error) {
	tmpl := res.ItemPath
	if tmpl == "" {
		tmpl = "{" + domain.IDField + "}"
	}

	var missing []string
	filled := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		field := m[1 : len(m)-1]
		v := item.Text(field)
		if v == "" {
			missing = append(missing, field)
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("record is missing %s for %s: %w", strings.Join(missing, ", "), res.Key, domain.ErrNotFound)
	}
	return strings.TrimRight(res.Path, "/") + "/" + filled, nil
}

// ProgramNames returns the active program names, sorted by the server.
func (c *Client) ProgramNames(ctx context.Context) ([]string, error) {
	r, err := c.doRequest(ctx, http.MethodGet, ProgramsPath, nil, nil)
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, statusError(r)
	}

	var rows []map[string]any
	if err := decode(r.body, &rows); err != nil {
		var wrapped listResponse
		if err2 := decode(r.body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrBadResponse, errors.Join(err, err2))
		}
		rows = wrapped.Data
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name := domain.Record(row).Text("program"); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
