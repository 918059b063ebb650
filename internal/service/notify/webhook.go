package notify

import (
	"context"
	"fmt"
	"time"

	"TrendSeg/internal/domain/models"
	xhttp "TrendSeg/pkg/http"
)

// Webhook posts signal verdicts to an external HTTP endpoint, for alert
// bots and dashboards that do not consume the Kafka topic.
type Webhook struct {
	url      string
	attempts int
	client   *xhttp.Client
}

// NewWebhook builds a webhook notifier. attempts <= 1 disables retries.
func NewWebhook(url string, timeout time.Duration, attempts int) *Webhook {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Webhook{
		url:      url,
		attempts: attempts,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// Publish implements repository.VerdictPublisher over HTTP.
func (w *Webhook) Publish(ctx context.Context, v *models.SignalVerdict) error {
	if w.client == nil || w.url == "" {
		return fmt.Errorf("webhook not initialized")
	}
	var err error
	for i := 1; i <= w.attempts || i == 1; i++ {
		err = w.post(ctx, v)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (w *Webhook) post(ctx context.Context, v *models.SignalVerdict) error {
	var ack struct {
		OK bool `json:"ok"`
	}
	err := w.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    w.url,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: v,
	}, &ack)
	if err != nil {
		return fmt.Errorf("post verdict: %w", err)
	}
	return nil
}

func (w *Webhook) Close() error { return nil }
