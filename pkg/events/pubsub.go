package events

import (
	"context"
	"fmt"
	"time"

	"chattrix-backend/pkg/logger"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// PubSub publishes events to a Cloud Pub/Sub topic and can consume them back
// through a subscription named "<topic>-sub".
type PubSub struct {
	client    *pubsub.Client
	topic     *pubsub.Topic
	topicName string
	subName   string
	log       zerolog.Logger
}

func NewPubSub(ctx context.Context, projectID, topicName, credentialsFile string) (*PubSub, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &PubSub{
		client:    client,
		topic:     client.Topic(topicName),
		topicName: topicName,
		subName:   topicName + "-sub", // Convention: topic-sub
		log:       logger.Component("pubsub"),
	}, nil
}

func (p *PubSub) Publish(ctx context.Context, evt Event) error {
	data, err := Encode(evt)
	if err != nil {
		return err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": evt.Type, "owner": evt.Owner},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.Type, err)
	}
	return nil
}

// Receive creates the subscription when missing and feeds every message to
// handle until ctx is done.
func (p *PubSub) Receive(ctx context.Context, handle Handler) error {
	sub := p.client.Subscription(p.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check subscription: %w", err)
	}

	if !exists {
		topicExists, err := p.topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check topic: %w", err)
		}
		if !topicExists {
			return fmt.Errorf("topic %s does not exist", p.topicName)
		}
		sub, err = p.client.CreateSubscription(ctx, p.subName, pubsub.SubscriptionConfig{
			Topic:       p.topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		p.log.Info().Str("subscription", p.subName).Msg("created pubsub subscription")
	}

	p.log.Info().Str("subscription", p.subName).Msg("listening for events")
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		evt, err := Decode(msg.Data)
		if err != nil {
			p.log.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed event")
			msg.Ack()
			return
		}
		handle(ctx, evt)
		msg.Ack()
	})
}

func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
