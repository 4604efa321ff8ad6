package reporting

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
)

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Publisher dispatches report jobs onto the reporting topic.
type Publisher struct {
	topic topicPublisher
}

// NewPublisher builds the job publisher.
func NewPublisher(topic topicPublisher) (*Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("reporting topic publisher required")
	}
	return &Publisher{topic: topic}, nil
}

// PublishReportJob enqueues one refund upload job with at-least-once delivery.
func (p *Publisher) PublishReportJob(ctx context.Context, job ReportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal report job")
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish report job")
	}
	return nil
}
