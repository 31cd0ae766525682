// Package notify delivers SMS messages through the external gateway. The
// account flows treat delivery as best-effort where the original operation
// can still proceed (OTP issuance records the failure) and as fire-once
// where it cannot be retried (lockout notices).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "greengate/pkg/domain-errors"
)

// Gateway sends a message to a mobile number.
type Gateway interface {
	SendSMS(ctx context.Context, mobile, message string) error
}

// HTTPGateway posts messages to the SMS provider's JSON API.
type HTTPGateway struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPGateway(baseURL, token string, logger *slog.Logger) *HTTPGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPGateway{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type smsRequest struct {
	Mobile  string `json:"mobile"`
	Message string `json:"message"`
}

func (g *HTTPGateway) SendSMS(ctx context.Context, mobile, message string) error {
	body, err := json.Marshal(smsRequest{Mobile: mobile, Message: message})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode sms request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/sms", bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build sms request")
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "send sms")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.WarnContext(ctx, "sms gateway rejected message", "status", resp.StatusCode, "mobile", mobile)
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("sms gateway returned %d", resp.StatusCode))
	}
	return nil
}

// NoopGateway swallows messages. Used when no gateway is configured, so
// local development does not need a provider account.
type NoopGateway struct {
	logger *slog.Logger
}

func NewNoop(logger *slog.Logger) *NoopGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopGateway{logger: logger}
}

func (g *NoopGateway) SendSMS(ctx context.Context, mobile, message string) error {
	g.logger.InfoContext(ctx, "sms suppressed (noop gateway)", "mobile", mobile)
	return nil
}
