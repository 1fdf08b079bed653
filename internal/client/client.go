// Package client is a Go client for the menuforge REST API. The session token
// lives on the Client value; nothing is kept in package state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"menuforge/internal/menutree"
	"menuforge/internal/models"
)

// Sentinel errors for common HTTP error classes. *APIError unwraps to them.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// fetchRetries is the retry budget of the template list fetch. Writes are
// never retried.
const fetchRetries = 2

// DefaultBackoff is multiplied by the attempt number between retries.
const DefaultBackoff = 250 * time.Millisecond

// APIError is a non-2xx response.
type APIError struct {
	Status      int               `json:"-"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Errors      []string          `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	details := slices.Clone(e.Errors)
	for _, field := range slices.Sorted(maps.Keys(e.FieldErrors)) {
		details = append(details, field+": "+e.FieldErrors[field])
	}
	if len(details) > 0 {
		msg += " (" + strings.Join(details, "; ") + ")"
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, msg)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Client calls the API at BaseURL with an optional bearer Token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	// OnUnauthorized runs whenever an authenticated call gets a 401, so the
	// caller can drop its stored session.
	OnUnauthorized func()
	// Backoff overrides DefaultBackoff.
	Backoff time.Duration
}

// New creates a client. token may be empty for register and login.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Backoff: DefaultBackoff,
	}
}

// Session is returned by Register and Login.
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// --- Auth ---

// Register creates an account and stores the returned token on c.
func (c *Client) Register(ctx context.Context, username, password string) (*Session, error) {
	return c.authenticate(ctx, "/auth/register", username, password)
}

// Login stores the returned token on c.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	return c.authenticate(ctx, "/auth/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*Session, error) {
	body := map[string]string{"username": username, "password": password}
	var s Session
	if err := c.doNoAuth(ctx, http.MethodPost, path, body, &s); err != nil {
		return nil, err
	}
	c.Token = s.Token
	return &s, nil
}

// Me returns the user behind the current token.
func (c *Client) Me(ctx context.Context) (*models.PublicUser, error) {
	var resp struct {
		User models.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// --- Menus ---

// MenuQuery filters ListMenus. UserID is honored for the admin only.
type MenuQuery struct {
	UserID string
	Name   string
	Sort   string
}

func (q MenuQuery) encode() string {
	v := url.Values{}
	if q.UserID != "" {
		v.Set("userId", q.UserID)
	}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) ListMenus(ctx context.Context, q MenuQuery) ([]models.MenuSummary, error) {
	var resp []models.MenuSummary
	if err := c.do(ctx, http.MethodGet, "/menus"+q.encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetMenu(ctx context.Context, id string) (*models.MenuSummary, error) {
	var resp models.MenuSummary
	if err := c.do(ctx, http.MethodGet, menuPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateMenu returns the id assigned by the server.
func (c *Client) CreateMenu(ctx context.Context, name string, items []menutree.Item) (string, error) {
	body := menuBody(name, items)
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/menus", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ReplaceMenu overwrites (or creates) the menu with the given id.
func (c *Client) ReplaceMenu(ctx context.Context, id, name string, items []menutree.Item) (*models.MenuSummary, error) {
	var resp struct {
		Menu models.MenuSummary `json:"menu"`
	}
	if err := c.do(ctx, http.MethodPut, menuPath(id), menuBody(name, items), &resp); err != nil {
		return nil, err
	}
	return &resp.Menu, nil
}

func (c *Client) DeleteMenu(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, menuPath(id), nil, nil)
}

func menuPath(id string) string {
	return "/menus/" + url.PathEscape(id)
}

func menuBody(name string, items []menutree.Item) map[string]any {
	if items == nil {
		items = []menutree.Item{}
	}
	return map[string]any{"name": name, "items": items}
}

// --- Export / import ---

// ExportOptions are the query parameters of the export endpoints.
type ExportOptions struct {
	Template    string
	VisibleOnly bool
}

// Export is a downloaded artifact.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export downloads /menus/{id}/export.<format> (json or php).
func (c *Client) Export(ctx context.Context, id, format string, opts ExportOptions) (*Export, error) {
	v := url.Values{}
	if opts.Template != "" {
		v.Set("template", opts.Template)
	}
	if opts.VisibleOnly {
		v.Set("visibleOnly", "true")
	}
	path := menuPath(id) + "/export." + format
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	resp, err := c.send(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	if err := c.check(resp, true); err != nil {
		return nil, err
	}

	out := &Export{ContentType: resp.header.Get("Content-Type"), Body: resp.body}
	if _, params, err := mime.ParseMediaType(resp.header.Get("Content-Disposition")); err == nil {
		out.Filename = params["filename"]
	}
	if out.Filename == "" {
		out.Filename = id + "." + format
	}
	return out, nil
}

// ImportRequest is the body of POST /menus/import.
type ImportRequest struct {
	Name    string `json:"name,omitempty"`
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Import creates a menu from csv, json or a Google Sheets URL.
func (c *Client) Import(ctx context.Context, req ImportRequest) (*models.MenuSummary, error) {
	var resp models.MenuSummary
	if err := c.do(ctx, http.MethodPost, "/menus/import", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Templates ---

// ListTemplates is retried on transient failures.
func (c *Client) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var resp []models.Template
	if err := c.doRetry(ctx, fetchRetries, http.MethodGet, "/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ReplaceTemplates swaps the whole registry and returns the stored list.
func (c *Client) ReplaceTemplates(ctx context.Context, list []models.Template) ([]models.Template, error) {
	if list == nil {
		list = []models.Template{}
	}
	var resp struct {
		Templates []models.Template `json:"templates"`
	}
	body := map[string]any{"templates": list}
	if err := c.do(ctx, http.MethodPost, "/templates/bulk", body, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

func (c *Client) DeleteTemplate(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/templates/"+url.PathEscape(name), nil, nil)
}

// --- Publish ---

// Publish queues an asynchronous export of the menu.
func (c *Client) Publish(ctx context.Context, menuID, format string, opts ExportOptions) (*models.PublishJob, error) {
	body := map[string]any{"format": format}
	if opts.Template != "" {
		body["template"] = opts.Template
	}
	if opts.VisibleOnly {
		body["visibleOnly"] = true
	}
	var resp struct {
		Job models.PublishJob `json:"job"`
	}
	if err := c.do(ctx, http.MethodPost, menuPath(menuID)+"/publish", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

func (c *Client) PublishJob(ctx context.Context, jobID string) (*models.PublishJob, error) {
	var resp struct {
		Job models.PublishJob `json:"job"`
	}
	if err := c.do(ctx, http.MethodGet, "/publish/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// --- Internal helpers ---

type response struct {
	status int
	header http.Header
	body   []byte
}

// do executes an authenticated request without retries.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doRetry(ctx, 0, method, path, body, result)
}

// doNoAuth executes an unauthenticated request.
func (c *Client) doNoAuth(ctx context.Context, method, path string, body, result any) error {
	resp, err := c.send(ctx, method, path, body, false)
	if err != nil {
		return err
	}
	return c.decode(resp, false, result)
}

// doRetry retries up to retries times when no response arrived or the
// server answered 5xx, sleeping Backoff*attempt in between.
func (c *Client) doRetry(ctx context.Context, retries int, method, path string, body, result any) error {
	var (
		resp *response
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = c.send(ctx, method, path, body, true)
		transient := err != nil || resp.status >= http.StatusInternalServerError
		if !transient || attempt >= retries || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff() * time.Duration(attempt+1)):
		}
	}
	if err != nil {
		return err
	}
	return c.decode(resp, true, result)
}

func (c *Client) backoff() time.Duration {
	if c.Backoff <= 0 {
		return DefaultBackoff
	}
	return c.Backoff
}

func (c *Client) send(ctx context.Context, method, path string, body any, auth bool) (*response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: respBody}, nil
}

func (c *Client) decode(resp *response, auth bool, result any) error {
	if err := c.check(resp, auth); err != nil {
		return err
	}
	if result != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// check turns a non-2xx response into *APIError.
func (c *Client) check(resp *response, auth bool) error {
	if resp.status < http.StatusBadRequest {
		return nil
	}
	apiErr := &APIError{Status: resp.status}
	if json.Unmarshal(resp.body, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(resp.body))
	}
	if auth && resp.status == http.StatusUnauthorized && c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
	return apiErr
}
