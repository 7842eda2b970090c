package rest

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

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client implements domain.WindowStore against a remote Handler.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. timeout <= 0 uses a default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client sending requests through httpClient.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) CreateWindow(ctx context.Context, scope domain.EntityScope, rule domain.WindowRule) (*domain.WindowRule, error) {
	var out WindowDTO
	if err := c.do(ctx, http.MethodPost, c.windowsURL(scope), fromRule(rule), &out); err != nil {
		return nil, err
	}
	return decodeRule(out)
}

func (c *Client) ModifyWindow(ctx context.Context, scope domain.EntityScope, id domain.Identifier, update domain.WindowUpdate) (*domain.WindowRule, error) {
	var out WindowDTO
	if err := c.do(ctx, http.MethodPatch, c.windowURL(scope, id), fromUpdate(update), &out); err != nil {
		return nil, err
	}
	return decodeRule(out)
}

func (c *Client) DeleteWindow(ctx context.Context, scope domain.EntityScope, id domain.Identifier) error {
	return c.do(ctx, http.MethodDelete, c.windowURL(scope, id), nil, nil)
}

func (c *Client) GetWindow(ctx context.Context, scope domain.EntityScope, id domain.Identifier) (*domain.WindowRule, error) {
	var out WindowDTO
	if err := c.do(ctx, http.MethodGet, c.windowURL(scope, id), nil, &out); err != nil {
		return nil, err
	}
	return decodeRule(out)
}

func (c *Client) ListWindows(ctx context.Context, scope domain.EntityScope) ([]domain.WindowRule, error) {
	var out ListResponse
	if err := c.do(ctx, http.MethodGet, c.windowsURL(scope), nil, &out); err != nil {
		return nil, err
	}
	rules := make([]domain.WindowRule, 0, len(out.Windows))
	for _, dto := range out.Windows {
		rule, err := dto.toRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (c *Client) windowsURL(scope domain.EntityScope) string {
	return fmt.Sprintf("%s%s/scopes/%s/%s/windows",
		c.baseURL, basePath, url.PathEscape(string(scope.Kind)), url.PathEscape(scope.Ref))
}

func (c *Client) windowURL(scope domain.EntityScope, id domain.Identifier) string {
	return c.windowsURL(scope) + "/" + identifierPath(id)
}

// do sends body as JSON and decodes a 2xx answer into out. Non-2xx answers are
// mapped back onto domain sentinels.
func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrStoreUnavailable, method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", domain.ErrStoreUnavailable, err)
		}
		return nil
	}

	return responseError(resp)
}

func responseError(resp *http.Response) error {
	var body ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(data))
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = domain.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		kind = domain.ErrAlreadyExists
	case resp.StatusCode == http.StatusUnprocessableEntity && body.Error == "invalid_time_range":
		kind = domain.ErrInvalidTimeRange
	case resp.StatusCode == http.StatusUnprocessableEntity:
		kind = domain.ErrUnknownEnumValue
	case resp.StatusCode >= http.StatusInternalServerError:
		kind = domain.ErrStoreUnavailable
	default:
		return fmt.Errorf("store rejected request (%d): %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("%w: %s", kind, body.Message)
}

// decodeRule converts a response body, rejecting enum values this build does not know.
func decodeRule(dto WindowDTO) (*domain.WindowRule, error) {
	rule, err := dto.toRule()
	if err != nil {
		return nil, fmt.Errorf("store returned rule %d: %w", dto.RuleID, err)
	}
	return &rule, nil
}

// Ensure Client implements domain.WindowStore.
var _ domain.WindowStore = (*Client)(nil)
