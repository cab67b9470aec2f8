// Package client is a Go client for the CoinKong bot API, used by chat
// gateways, the operator CLI and the load simulation.
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

	"github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/commands"
	"github.com/ksred/coinkong/internal/types"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the API
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Observer is told how long each call took, keyed by route name
type Observer func(route string, d time.Duration, err error)

// Client calls the bot API on behalf of a gateway
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	observer Observer
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a 10s timeout
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithToken skips Authenticate when a token is already known
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token
func (c *Client) Token() string {
	return c.token
}

// Authenticate exchanges gateway credentials for a token used by every
// later call.
func (c *Client) Authenticate(ctx context.Context, apiKey, apiSecret string) error {
	var result struct {
		Token      string    `json:"jwt_token"`
		Expiration time.Time `json:"expiration"`
	}
	body := map[string]string{"api_key": apiKey, "api_secret": apiSecret}
	if err := c.do(ctx, "auth", http.MethodPost, "/api/v1/auth/token", "", body, &result); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if result.Token == "" {
		return fmt.Errorf("no token in auth response")
	}
	c.token = result.Token
	return nil
}

// CreatedSwap is the answer to a swap request
type CreatedSwap struct {
	Swap types.Swap        `json:"swap"`
	View commands.SwapView `json:"view"`
}

func (c *Client) CreateSwap(ctx context.Context, userID string, usdAmount float64, from, to string) (*CreatedSwap, error) {
	req := commands.SwapRequest{USDAmount: usdAmount, FromCurrency: from, ToCurrency: to}
	var out CreatedSwap
	if err := c.do(ctx, "create_swap", http.MethodPost, "/api/v1/swaps", userID, req, &out); err != nil {
		return nil, err
	}
	if out.Swap.ID == "" {
		return nil, fmt.Errorf("no swap ID in response")
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, userID, swapID string) (*commands.SwapView, error) {
	var out commands.SwapView
	if err := c.do(ctx, "status", http.MethodGet, "/api/v1/swaps/"+url.PathEscape(swapID), userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Tokens(ctx context.Context, userID string) ([]types.Token, error) {
	var out []types.Token
	err := c.do(ctx, "tokens", http.MethodGet, "/api/v1/tokens", userID, nil, &out)
	return out, err
}

func (c *Client) Support(ctx context.Context, userID string) (*commands.SupportInfo, error) {
	var out commands.SupportInfo
	if err := c.do(ctx, "support", http.MethodGet, "/api/v1/support", userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Help(ctx context.Context, userID string) (*commands.HelpInfo, error) {
	var out commands.HelpInfo
	if err := c.do(ctx, "help", http.MethodGet, "/api/v1/help", userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetFee(ctx context.Context, userID string, percentage float64) (*commands.Settings, error) {
	var out commands.Settings
	body := commands.FeeRequest{Percentage: &percentage}
	if err := c.do(ctx, "set_fee", http.MethodPut, "/api/v1/admin/fee", userID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Pause(ctx context.Context, userID string) (*commands.Settings, error) {
	var out commands.Settings
	if err := c.do(ctx, "pause", http.MethodPost, "/api/v1/admin/pause", userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Resume(ctx context.Context, userID string) (*commands.Settings, error) {
	var out commands.Settings
	if err := c.do(ctx, "resume", http.MethodPost, "/api/v1/admin/resume", userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Whitelist(ctx context.Context, userID, target string) (*commands.ListChange, error) {
	var out commands.ListChange
	body := commands.UserRequest{UserID: target}
	if err := c.do(ctx, "whitelist", http.MethodPost, "/api/v1/admin/whitelist", userID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Blacklist(ctx context.Context, userID, target string) (*commands.ListChange, error) {
	var out commands.ListChange
	body := commands.UserRequest{UserID: target}
	if err := c.do(ctx, "blacklist", http.MethodPost, "/api/v1/admin/blacklist", userID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ShowOrder(ctx context.Context, userID, swapID string) (*commands.OrderDetails, error) {
	var out commands.OrderDetails
	if err := c.do(ctx, "show_order", http.MethodGet, "/api/v1/admin/swaps/"+url.PathEscape(swapID), userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserOrders(ctx context.Context, userID, target string) ([]commands.SwapView, error) {
	var out []commands.SwapView
	err := c.do(ctx, "user_orders", http.MethodGet, "/api/v1/admin/users/"+url.PathEscape(target)+"/swaps", userID, nil, &out)
	return out, err
}

// Health calls the unauthenticated health endpoint
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/healthz", "", nil, nil)
}

// WebsocketURL is the notification stream endpoint, optionally narrowed to
// one user
func (c *Client) WebsocketURL(userID string) string {
	u := c.baseURL + "/api/v1/notifications/ws"
	u = "ws" + strings.TrimPrefix(u, "http")
	if userID != "" {
		u += "?user_id=" + url.QueryEscape(userID)
	}
	return u
}

// envelope mirrors pkg/response.Response with a typed payload
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, route, method, path, userID string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer(route, time.Since(start), err)
		}
	}()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("route", route).Int("status", resp.StatusCode).Str("response", string(respBody)).Msg("api response")

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", route, err)
	}
	return nil
}
