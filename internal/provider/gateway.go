package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/config"
)

// Gateway is the HTTP implementation of Adapter. Every call goes through the
// per-instance circuit breaker and comes back as either a result or *Error.
type Gateway struct {
	cfg        *config.ProviderConfig
	httpClient *http.Client
	breakers   *breakerSet
	logger     *zap.Logger
}

func NewGateway(cfg *config.ProviderConfig, logger *zap.Logger) *Gateway {
	return &Gateway{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		breakers: newBreakerSet(&cfg.CircuitBreaker, logger),
		logger:   logger,
	}
}

type connectResponse struct {
	PairingCode string `json:"pairing_code"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Connect implements Adapter.
func (g *Gateway) Connect(ctx context.Context, instanceID int64) (*Credential, error) {
	var resp connectResponse
	err := g.breakers.execute(ctx, instanceID, func() error {
		return g.call(ctx, http.MethodPost, fmt.Sprintf("/instances/%d/connect", instanceID), nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	if resp.PairingCode == "" {
		return nil, nil
	}
	return &Credential{PairingCode: resp.PairingCode}, nil
}

// Disconnect implements Adapter.
func (g *Gateway) Disconnect(ctx context.Context, instanceID int64) error {
	return g.breakers.execute(ctx, instanceID, func() error {
		return g.call(ctx, http.MethodPost, fmt.Sprintf("/instances/%d/disconnect", instanceID), nil, nil)
	})
}

// Credential implements Adapter.
func (g *Gateway) Credential(ctx context.Context, instanceID int64) (*Credential, error) {
	var resp connectResponse
	err := g.breakers.execute(ctx, instanceID, func() error {
		return g.call(ctx, http.MethodGet, fmt.Sprintf("/instances/%d/credential", instanceID), nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	if resp.PairingCode == "" {
		return nil, nil
	}
	return &Credential{PairingCode: resp.PairingCode}, nil
}

// Send implements Adapter.
func (g *Gateway) Send(ctx context.Context, instanceID int64, req SendRequest) (string, error) {
	var resp sendResponse
	err := g.breakers.execute(ctx, instanceID, func() error {
		return g.call(ctx, http.MethodPost, fmt.Sprintf("/instances/%d/messages", instanceID), req, &resp)
	})
	if err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

// RemoveSession implements Adapter.
func (g *Gateway) RemoveSession(ctx context.Context, instanceID int64) error {
	return g.breakers.execute(ctx, instanceID, func() error {
		return g.call(ctx, http.MethodDelete, fmt.Sprintf("/instances/%d", instanceID), nil, nil)
	})
}

// BreakerState exposes the instance's breaker state for health reporting.
func (g *Gateway) BreakerState(instanceID int64) BreakerState {
	return g.breakers.state(instanceID)
}

// call performs one HTTP round-trip and translates failures into *Error.
func (g *Gateway) call(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.AuthToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// A cancelled request surfaces as the context error, keeping it out
		// of the breaker counts and the retry bookkeeping.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return Timeout(err.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode >= 400 {
		return g.translateStatus(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Timeout(fmt.Sprintf("failed to decode response: %v", err))
		}
	}

	return nil
}

// translateStatus maps provider HTTP statuses onto the error taxonomy:
// 5xx, 408 and 429 are retryable, everything else in the 4xx range is a
// permanent rejection.
func (g *Gateway) translateStatus(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	message := body.Message
	if message == "" {
		message = resp.Status
	}

	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests:
		return Timeout(message)
	case body.Error == "invalid_recipient":
		return Rejected(CodeInvalidRecipient, message)
	default:
		return Rejected(CodeRejected, message)
	}
}
