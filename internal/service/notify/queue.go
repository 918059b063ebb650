package notify

import (
	"context"

	"TrendSeg/internal/domain/models"
	"TrendSeg/pkg/queue"
)

// MsgTypeVerdict is the queue message type for verdict notifications.
const MsgTypeVerdict = "verdict.notify"

// WebhookJob delivers queued verdicts to the webhook, with the queue's
// retry policy taking over from the webhook's inline retries.
type WebhookJob struct {
	wh *Webhook
}

func NewWebhookJob(wh *Webhook) *WebhookJob { return &WebhookJob{wh: wh} }

func (j *WebhookJob) Name() string { return "webhook-verdict" }
func (j *WebhookJob) Type() string { return MsgTypeVerdict }

func (j *WebhookJob) Handle(ctx context.Context, payload interface{}) error {
	v, err := queue.ParsePayload[models.SignalVerdict](payload)
	if err != nil {
		return err
	}
	return j.wh.Publish(ctx, v)
}

// QueuedPublisher implements repository.VerdictPublisher by enqueueing
// verdicts for asynchronous webhook delivery.
type QueuedPublisher struct {
	q queue.QueueService
}

func NewQueuedPublisher(q queue.QueueService) *QueuedPublisher {
	return &QueuedPublisher{q: q}
}

func (p *QueuedPublisher) Publish(ctx context.Context, v *models.SignalVerdict) error {
	return p.q.PublishMessage(ctx, MsgTypeVerdict, v)
}

func (p *QueuedPublisher) Close() error { return nil }
