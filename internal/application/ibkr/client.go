package ibkr

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the IBKR Client Portal Gateway. The gateway runs locally,
// proxies requests to IBKR servers and serves HTTPS with a self-signed cert,
// so certificate verification is disabled for this one collaborator.
type Client struct {
	Host    string
	Port    string
	BaseURL string
	HTTP    *http.Client
}

// StatusError means the gateway was reachable but answered with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway responded with status %d", e.StatusCode)
}

// NewClient builds a gateway client with a short overall timeout and an even
// shorter connect timeout; the gateway is a synchronous dependency on the
// request path.
func NewClient(host, port string, timeoutSec int) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: 2 * time.Second,
		}).DialContext,
	}
	return &Client{
		Host:    host,
		Port:    port,
		BaseURL: fmt.Sprintf("https://%s:%s/v1/api", host, port),
		HTTP: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(timeoutSec) * time.Second,
		},
	}
}

// CheckAuthStatus asks the gateway whether the user session is authenticated.
func (c *Client) CheckAuthStatus(ctx context.Context) (map[string]interface{}, error) {
	raw, err := c.request(ctx, http.MethodPost, "/iserver/auth/status", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("gateway response decode: %w", err)
	}
	return out, nil
}

// InitBrokerageSession performs the second-tier authentication required for
// trading and market data access.
func (c *Client) InitBrokerageSession(ctx context.Context) (map[string]interface{}, error) {
	raw, err := c.request(ctx, http.MethodPost, "/iserver/auth/ssodh/init", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("gateway response decode: %w", err)
	}
	return out, nil
}

// GetAccounts lists the available brokerage accounts. The gateway returns
// either a bare list or an object with an "accounts" key.
func (c *Client) GetAccounts(ctx context.Context) ([]map[string]interface{}, error) {
	raw, err := c.request(ctx, http.MethodGet, "/portfolio/accounts", nil)
	if err != nil {
		return nil, err
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Accounts []map[string]interface{} `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("gateway response decode: %w", err)
	}
	return wrapped.Accounts, nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// IsTimeout reports whether the error is a connect/read timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout()
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
