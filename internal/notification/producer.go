package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/config"
	"github.com/useraccounts/backend/internal/common/logger"
)

// PasswordResetEvent is the message consumed by the mailer service. The
// reset token travels only through this channel.
type PasswordResetEvent struct {
	Email       string    `json:"email"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requestedAt"`
}

// KafkaProducer publishes password-reset events keyed by email so retries
// for the same account land on the same partition.
type KafkaProducer struct {
	writer *kafka.Writer
	clock  clock.Clock
	log    *logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, clk clock.Clock, log *logger.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.ResetTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: writer, clock: clk, log: log}
}

func (p *KafkaProducer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	event := PasswordResetEvent{
		Email:       email,
		Token:       resetToken,
		RequestedAt: p.clock.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reset event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(email),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish reset event: %w", err)
	}

	p.log.WithFields(ctx, logger.Fields{
		"topic": p.writer.Topic,
	}).Info("password reset event published")
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
