package reporting

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

type subscription interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type messageProcessor interface {
	Process(ctx context.Context, data []byte) error
}

// Consumer pumps report-job messages from the subscription into the worker.
// Processor errors nack the message for redelivery; anything the worker
// already settled in the database acks.
type Consumer struct {
	subscription subscription
	processor    messageProcessor
	log          *logger.Logger
}

// NewConsumer builds the reporting consumer.
func NewConsumer(sub subscription, processor messageProcessor, log *logger.Logger) (*Consumer, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{subscription: sub, processor: processor, log: log}, nil
}

// Run receives until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		msgCtx = c.log.WithField(msgCtx, "message_id", msg.ID)
		if err := c.processor.Process(msgCtx, msg.Data); err != nil {
			c.log.Error(msgCtx, "report job processing failed, nacking", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
