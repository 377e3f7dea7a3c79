package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/wonny/ibdash/pkg/config"
	"github.com/wonny/ibdash/pkg/httputil"
	"github.com/wonny/ibdash/pkg/logger"
	"github.com/wonny/ibdash/pkg/redis"
)

var (
	// ErrNotAuthenticated is returned when the gateway has no brokerage session
	ErrNotAuthenticated = errors.New("gateway: brokerage session not authenticated")

	// ErrNotFound is returned when the gateway does not know the requested entity
	ErrNotFound = errors.New("gateway: not found")

	// ErrNoAccount is returned when no account is configured or visible
	ErrNoAccount = errors.New("gateway: no brokerage account available")
)

// APIError is a failure reported by the gateway itself
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Message)
}

// Client talks to the Client Portal gateway REST API
// ⭐ SSOT: every gateway call goes through this client
type Client struct {
	http    *httputil.Client
	logger  *logger.Logger
	baseURL string
	cache   *redis.Cache

	accountMu sync.Mutex
	accountID string
}

// NewClient creates a gateway client. cache may be nil.
func NewClient(cfg config.GatewayConfig, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	if cache == nil {
		cache = redis.NewCache(redis.Disabled(), "ibdash")
	}
	return &Client{
		http:      httpClient,
		logger:    log.WithField("component", "gateway"),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		cache:     cache,
		accountID: cfg.AccountID,
	}
}

// AccountID returns the configured account, or the first account the
// gateway reports when none is configured
func (c *Client) AccountID(ctx context.Context) (string, error) {
	c.accountMu.Lock()
	defer c.accountMu.Unlock()

	if c.accountID != "" {
		return c.accountID, nil
	}

	accounts, err := c.Accounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", ErrNoAccount
	}

	c.accountID = accounts[0].ID
	c.logger.WithField("account", c.accountID).Info("Using first gateway account")
	return c.accountID, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	return c.call(ctx, op, http.MethodGet, c.endpoint(path, query), nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, in, out interface{}) error {
	return c.call(ctx, op, http.MethodPost, c.endpoint(path, nil), in, out)
}

func (c *Client) delete(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	return c.call(ctx, op, http.MethodDelete, c.endpoint(path, query), nil, out)
}

func (c *Client) call(ctx context.Context, op, method, target string, in, out interface{}) error {
	err := c.http.DoJSON(ctx, method, target, in, out)
	if err == nil {
		return nil
	}

	var serr *httputil.StatusError
	if errors.As(err, &serr) {
		msg := serr.Body
		if m := decodeAPIError([]byte(serr.Body)); m != "" {
			msg = m
		}
		apiErr := &APIError{Op: op, Status: serr.StatusCode, Message: msg}
		switch serr.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", ErrNotAuthenticated, apiErr)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
		}
		return apiErr
	}
	return fmt.Errorf("gateway %s: %w", op, err)
}
