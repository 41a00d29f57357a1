package ibkr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated   = errors.New("Not authenticated with IBKR Gateway. Please login through the gateway first.")
	ErrGatewayUnreachable = errors.New("Cannot connect to IBKR Gateway. Make sure the Client Portal Gateway is running.")
)

// StatusResult is the user-facing connection status. Transport failures are
// folded into it rather than propagated, because the UI must distinguish "not
// authenticated with broker" from "broker offline".
type StatusResult struct {
	Authenticated bool                   `json:"authenticated"`
	Connected     bool                   `json:"connected"`
	Message       string                 `json:"message"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// Account is one brokerage account as reported by the gateway.
type Account struct {
	AccountID    string  `json:"account_id"`
	AccountTitle *string `json:"account_title"`
	AccountType  *string `json:"account_type"`
}

// Service wraps the gateway client and translates its failures into the small
// set of status categories the frontend renders.
type Service struct {
	Client *Client
}

// Status checks gateway reachability and authentication. It never returns a
// transport error; every outcome is a StatusResult.
func (s *Service) Status(ctx context.Context) StatusResult {
	resp, err := s.Client.CheckAuthStatus(ctx)
	if err == nil {
		authenticated, _ := resp["authenticated"].(bool)
		message := "Gateway connected but not authenticated"
		if authenticated {
			message = "Connected to IBKR Gateway"
			// An authenticated user session can still lack the brokerage
			// session. Reopening it here saves the user a full re-login;
			// failures are reported in the details, not as an error.
			if connected, ok := resp["connected"].(bool); ok && !connected {
				initResp, initErr := s.Client.InitBrokerageSession(ctx)
				if initErr != nil {
					resp["brokerage_session_error"] = initErr.Error()
				} else {
					resp["brokerage_session"] = initResp
				}
			}
		}
		return StatusResult{
			Authenticated: authenticated,
			Connected:     true,
			Message:       message,
			Details:       resp,
		}
	}

	var statusErr *StatusError
	switch {
	case IsTimeout(err):
		return StatusResult{
			Connected: false,
			Message:   fmt.Sprintf("Connection to IBKR Gateway timed out at %s:%s", s.Client.Host, s.Client.Port),
			Details:   map[string]interface{}{"error_type": "Timeout", "error": err.Error()},
		}
	case errors.As(err, &statusErr):
		return StatusResult{
			Connected: true,
			Message:   fmt.Sprintf("Gateway responded with error: %d", statusErr.StatusCode),
			Details: map[string]interface{}{
				"status_code":   statusErr.StatusCode,
				"error":         err.Error(),
				"response_text": truncate(statusErr.Body, 200),
			},
		}
	default:
		return StatusResult{
			Connected: false,
			Message:   fmt.Sprintf("Cannot connect to Client Portal Gateway at %s:%s. Make sure the Client Portal Gateway is running.", s.Client.Host, s.Client.Port),
			Details: map[string]interface{}{
				"error_type": "ConnectError",
				"error":      err.Error(),
				"host":       s.Client.Host,
				"port":       s.Client.Port,
			},
		}
	}
}

// Accounts lists brokerage accounts; the caller must be authenticated with the
// gateway first.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	status, err := s.Client.CheckAuthStatus(ctx)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}
		return nil, ErrGatewayUnreachable
	}
	if authenticated, _ := status["authenticated"].(bool); !authenticated {
		return nil, ErrNotAuthenticated
	}

	raw, err := s.Client.GetAccounts(ctx)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}
		return nil, ErrGatewayUnreachable
	}

	accounts := make([]Account, 0, len(raw))
	for _, a := range raw {
		id, _ := a["accountId"].(string)
		if id == "" {
			id, _ = a["id"].(string)
		}
		acct := Account{AccountID: id}
		if title, ok := a["accountTitle"].(string); ok {
			acct.AccountTitle = &title
		}
		if typ, ok := a["accountType"].(string); ok {
			acct.AccountType = &typ
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
