// Package client is a typed HTTP and websocket client for the registry API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/splax/modulehub/internal/domain"
)

const defaultBaseURL = "http://localhost:5001"

// Client provides typed access to the registry API for interactive tools.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken authenticates every request with token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, v any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("x-auth-token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Msg   string `json:"msg"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if payload.Msg != "" {
		return strings.TrimSpace(payload.Msg)
	}
	return strings.TrimSpace(payload.Error)
}

// AuthResponse is returned by Login and Register.
type AuthResponse struct {
	Token       string             `json:"token"`
	User        domain.UserProfile `json:"user"`
	AccountType string             `json:"accountType"`
	CompanyCode string             `json:"companyCode,omitempty"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	return resp, err
}

// Register creates an account. fields follows the register payload keys.
func (c *Client) Register(ctx context.Context, fields map[string]string) (AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", fields, &resp)
	return resp, err
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (domain.UserProfile, error) {
	var profile domain.UserProfile
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &profile)
	return profile, err
}

// PublishRequest is the body of a package publish.
type PublishRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Version       string   `json:"version,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Dependencies  []string `json:"dependencies,omitempty"`
}

// Publish creates a package in the caller's company.
func (c *Client) Publish(ctx context.Context, req PublishRequest) (domain.Package, error) {
	var pkg domain.Package
	err := c.do(ctx, http.MethodPost, "/api/packages/publish", req, &pkg)
	return pkg, err
}

// Release appends a version to an existing package.
func (c *Client) Release(ctx context.Context, packageID, version, changelog string) (domain.Package, error) {
	var pkg domain.Package
	err := c.do(ctx, http.MethodPost, "/api/packages/version", map[string]string{
		"packageId": packageID,
		"version":   version,
		"changelog": changelog,
	}, &pkg)
	return pkg, err
}

// ListPackages returns the caller's company catalog.
func (c *Client) ListPackages(ctx context.Context) ([]domain.Package, error) {
	var pkgs []domain.Package
	err := c.do(ctx, http.MethodGet, "/api/packages", nil, &pkgs)
	return pkgs, err
}

// Search ranks the caller's company catalog against query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.PackageWithCompany, error) {
	var pkgs []domain.PackageWithCompany
	err := c.do(ctx, http.MethodGet, "/api/packages/search?q="+url.QueryEscape(query), nil, &pkgs)
	return pkgs, err
}

// QuickSearch filters the caller's company catalog by substring.
func (c *Client) QuickSearch(ctx context.Context, query string) ([]domain.PackageWithCompany, error) {
	var pkgs []domain.PackageWithCompany
	err := c.do(ctx, http.MethodGet, "/api/packages/search?mode=quick&q="+url.QueryEscape(query), nil, &pkgs)
	return pkgs, err
}

// Subscribe follows a package and returns the updated subscription ids.
func (c *Client) Subscribe(ctx context.Context, packageID string) ([]string, error) {
	var ids []string
	err := c.do(ctx, http.MethodPost, "/api/packages/"+url.PathEscape(packageID)+"/subscribe", nil, &ids)
	return ids, err
}

// Unsubscribe stops following a package.
func (c *Client) Unsubscribe(ctx context.Context, packageID string) ([]string, error) {
	var ids []string
	err := c.do(ctx, http.MethodDelete, "/api/packages/"+url.PathEscape(packageID)+"/subscribe", nil, &ids)
	return ids, err
}

// Subscribed lists followed packages.
func (c *Client) Subscribed(ctx context.Context) ([]domain.PackageWithCompany, error) {
	var pkgs []domain.PackageWithCompany
	err := c.do(ctx, http.MethodGet, "/api/packages/subscribed", nil, &pkgs)
	return pkgs, err
}

// Notifications returns the most recent inbox entries.
func (c *Client) Notifications(ctx context.Context) ([]domain.NotificationView, error) {
	var items []domain.NotificationView
	err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &items)
	return items, err
}

// MarkRead marks every inbox entry as read.
func (c *Client) MarkRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/read", nil, nil)
}
