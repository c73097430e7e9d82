// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package events carries behavior events from the API to the log via a
// Watermill pipeline, so recording an interaction never blocks feed
// computation. Transport is an in-process channel by default and NATS
// JetStream when configured.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/gvarikaa/reelfeed/internal/config"
)

// PubSub bundles the publisher and subscriber ends of the transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close shuts down both ends of the transport. With the in-process
// channel both fields are one object; closing twice is harmless there.
func (p *PubSub) Close() error {
	pubErr := p.Publisher.Close()
	if err := p.Subscriber.Close(); err != nil {
		return err
	}
	return pubErr
}

// NewPubSub builds the event transport per configuration.
func NewPubSub(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	if !cfg.Enabled {
		return newChannelPubSub(logger), nil
	}
	return newNATSPubSub(cfg, logger)
}

// newChannelPubSub creates the in-process transport. Messages are not
// durable; a restart loses anything unprocessed.
func newChannelPubSub(logger watermill.LoggerAdapter) *PubSub {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	return &PubSub{Publisher: ch, Subscriber: ch}
}

// newNATSPubSub creates the JetStream transport, auto-provisioning the
// stream on first use.
func newNATSPubSub(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("reelfeed"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	jetStream := wmnats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: true,
		DurablePrefix: "reelfeed",
		PublishOptions: []natsgo.PubOpt{
			natsgo.RetryAttempts(3),
			natsgo.RetryWait(100 * time.Millisecond),
		},
	}

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmnats.NATSMarshaler{},
		JetStream:   jetStream,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Unmarshaler: &wmnats.NATSMarshaler{},
		JetStream:   jetStream,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &PubSub{Publisher: pub, Subscriber: sub}, nil
}
