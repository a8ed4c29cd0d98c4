package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Credentials holds the in-memory access token. Implementations must be safe
// for concurrent use.
type Credentials interface {
	AccessToken() string
	SetAccessToken(token string)
	Clear()
}

// MemoryCredentials is the default in-memory [Credentials] implementation.
type MemoryCredentials struct {
	mu    sync.RWMutex
	token string
}

func (c *MemoryCredentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *MemoryCredentials) SetAccessToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *MemoryCredentials) Clear() {
	c.SetAccessToken("")
}

// Config configures a [Client].
type Config struct {
	// HTTPClient performs the actual requests. Defaults to
	// http.DefaultClient. Point its cookie jar at the relay so the
	// refresh cookie travels automatically.
	HTTPClient *http.Client

	// Credentials stores the access token. Defaults to a fresh
	// MemoryCredentials.
	Credentials Credentials

	// Refresh performs one refresh round-trip. Required; see
	// NewRelayRefresher.
	Refresh RefreshFunc

	// RefreshTimeout bounds each refresh attempt. Zero means the
	// coordinator default.
	RefreshTimeout time.Duration

	// OnSessionExpired runs once per terminal refresh failure, after the
	// credentials have been cleared. Optional.
	OnSessionExpired func()
}

// Client is an HTTP client that attaches the access token to every request
// and transparently recovers from access token expiry: one coordinated
// refresh, one replay, then give up.
type Client struct {
	http        *http.Client
	creds       Credentials
	coordinator *Coordinator
	onExpired   func()
}

// NewClient builds a Client from cfg. It returns an error when cfg.Refresh
// is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Refresh == nil {
		return nil, errors.New("refresh func required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = &MemoryCredentials{}
	}

	return &Client{
		http:        httpClient,
		creds:       creds,
		coordinator: NewCoordinator(cfg.Refresh, cfg.RefreshTimeout),
		onExpired:   cfg.OnSessionExpired,
	}, nil
}

// Do sends the request with the current access token attached. On a 401 it
// runs one coordinated refresh and replays the request exactly once; replay
// requires req.GetBody when the request has a body.
//
// A refresh that settles with any error, or a replay that still comes back
// 401, ends the session on this side: credentials are cleared, the expiry
// hook fires, and the returned error wraps [ErrSessionExpired].
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.send(req, c.creds.AccessToken())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	token, err := c.coordinator.Refresh(req.Context())
	if err != nil {
		// The caller abandoning its own context is not a verdict on the
		// session; only a settled refresh failure is.
		if req.Context().Err() != nil {
			return nil, err
		}
		return nil, c.forceLogout(err)
	}
	c.creds.SetAccessToken(token)

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err = c.send(retry, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, c.forceLogout(errors.New("replay still unauthorized"))
	}
	return resp, nil
}

// forceLogout clears credential state, fires the expiry hook, and returns a
// terminal error wrapping [ErrSessionExpired].
func (c *Client) forceLogout(cause error) error {
	c.creds.Clear()
	if c.onExpired != nil {
		c.onExpired()
	}
	if errors.Is(cause, ErrSessionExpired) {
		return cause
	}
	return fmt.Errorf("%w: %v", ErrSessionExpired, cause)
}

func (c *Client) send(req *http.Request, token string) (*http.Response, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("cannot replay request without GetBody")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

// NewRelayRefresher returns a RefreshFunc that calls the relay's refresh
// endpoint. 401 and 403 are terminal; they mean the relay had no usable
// credential or rejected the one it had. Everything else is retryable.
func NewRelayRefresher(httpClient *http.Client, refreshURL string) RefreshFunc {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, strings.NewReader("{}"))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var body struct {
				AccessToken string `json:"access_token"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return "", err
			}
			if body.AccessToken == "" {
				return "", errors.New("refresh response missing access token")
			}
			return body.AccessToken, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", fmt.Errorf("%w: relay returned %d", ErrSessionExpired, resp.StatusCode)

		default:
			return "", fmt.Errorf("refresh failed with status %d", resp.StatusCode)
		}
	}
}
