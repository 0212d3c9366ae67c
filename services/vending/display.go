package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// DisplaySink recebe as mensagens de dispensa de uma sessão finalizada
type DisplaySink interface {
	Show(ctx context.Context, sessionID string, messages []string) error
}

// LogDisplay escreve as mensagens no log
type LogDisplay struct {
	logger *zap.Logger
}

// NewLogDisplay cria uma nova instância de LogDisplay
func NewLogDisplay(logger *zap.Logger) *LogDisplay {
	return &LogDisplay{logger: logger}
}

func (d *LogDisplay) Show(_ context.Context, sessionID string, messages []string) error {
	for _, msg := range messages {
		d.logger.Info("[DISPLAY] "+msg, zap.String("session_id", sessionID))
	}
	return nil
}

type displayPayload struct {
	SessionID string   `json:"session_id"`
	Messages  []string `json:"messages"`
}

// HTTPDisplay envia as mensagens para um painel externo
type HTTPDisplay struct {
	client *resty.Client
	url    string
}

// NewHTTPDisplay cria uma nova instância de HTTPDisplay
func NewHTTPDisplay(url string, timeout time.Duration, retries int) *HTTPDisplay {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(100 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		}).
		SetHeader("Content-Type", "application/json")

	return &HTTPDisplay{
		client: client,
		url:    url,
	}
}

func (d *HTTPDisplay) Show(ctx context.Context, sessionID string, messages []string) error {
	if len(messages) == 0 {
		return nil
	}

	req := d.client.R().
		SetContext(ctx).
		SetBody(displayPayload{SessionID: sessionID, Messages: messages})
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := req.Post(d.url)
	if err != nil {
		return fmt.Errorf("failed to push dispense messages: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("display endpoint returned %s", resp.Status())
	}
	return nil
}
