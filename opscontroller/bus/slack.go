package bus

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/opsplatform/core/pkg/apierr"
)

// SlackBus posts incident and runbook events to a configured channel. It
// satisfies ports.IntegrationBus alongside InMemoryBus, which tests use
// instead.
type SlackBus struct {
	client  *slack.Client
	channel string
}

func NewSlackBus(token, channel string) *SlackBus {
	return &SlackBus{client: slack.New(token), channel: channel}
}

func (b *SlackBus) Publish(ctx context.Context, topic string, payload map[string]any) error {
	text := fmt.Sprintf("*%s*", topic)
	for k, v := range payload {
		text += fmt.Sprintf("\n• %s: %v", k, v)
	}
	_, _, err := b.client.PostMessageContext(ctx, b.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return apierr.Externalf(err, "publishing %s to slack", topic)
	}
	return nil
}
