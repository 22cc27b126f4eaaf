package changefeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ReviewMind/internal/config"
)

const readBackoff = time.Second

// Handler processes a batch of messages and returns one error per message,
// in the same order. A nil error acknowledges the message.
type Handler func(ctx context.Context, msgs []Message) []error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the message goes to the DLQ.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RedisConsumer reads a stream through a consumer group and settles every
// message with an ack, a requeue or a move to the DLQ.
type RedisConsumer struct {
	client *redis.Client
	cfg    config.StreamConfig
	logger *zap.Logger
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg config.StreamConfig, logger *zap.Logger) (*RedisConsumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("stream", cfg.Stream), zap.String("group", cfg.Group)),
	}
	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}
	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Start from "0" so entries added before the group existed are not lost.
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Read fetches up to BatchSize entries. Use ">" for new entries and "0" for
// entries already delivered to this consumer but not acknowledged.
func (c *RedisConsumer) Read(ctx context.Context, from string) ([]Message, error) {
	block := c.cfg.Block
	if from != ">" {
		block = -1
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, from},
		Count:    c.cfg.BatchSize,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stream %s: %w", c.cfg.Stream, err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, raw := range stream.Messages {
			msg, parseErr := ParseMessage(raw)
			if parseErr != nil {
				c.logger.Error("unparseable message", zap.String("message_id", raw.ID), zap.Error(parseErr))
				if dlqErr := c.SendDLQ(ctx, Message{ID: raw.ID, Attempt: 1, Values: raw.Values}, parseErr.Error()); dlqErr != nil {
					c.logger.Error("dead-letter unparseable message",
						zap.String("message_id", raw.ID),
						zap.Error(dlqErr))
				}
				continue
			}
			messages = append(messages, msg)
		}
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

// Requeue acknowledges msg and appends a copy with the attempt incremented.
func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("ack before requeue: %w", err)
	}

	values := copyValues(msg.Values)
	values[FieldAttempt] = msg.Attempt + 1
	if errMsg != "" {
		values[FieldLastError] = errMsg
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.Stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	c.logger.Info("message requeued",
		zap.String("message_id", msg.ID),
		zap.Int("next_attempt", msg.Attempt+1),
		zap.String("reason", errMsg))
	return nil
}

// SendDLQ acknowledges msg and appends it to the dead letter stream.
func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("ack before dlq: %w", err)
	}

	values := copyValues(msg.Values)
	values[FieldAttempt] = msg.Attempt
	values[FieldError] = errMsg

	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.DLQStream, Values: values}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	c.logger.Error("message sent to DLQ",
		zap.String("message_id", msg.ID),
		zap.String("dlq_stream", c.cfg.DLQStream),
		zap.String("final_error", errMsg))
	return nil
}

// Settle applies the outcome of handling msg.
func (c *RedisConsumer) Settle(ctx context.Context, msg Message, handleErr error) error {
	switch {
	case handleErr == nil:
		return c.Ack(ctx, msg)
	case IsPermanent(handleErr), msg.Attempt >= c.cfg.MaxAttempts:
		return c.SendDLQ(ctx, msg, handleErr.Error())
	default:
		return c.Requeue(ctx, msg, handleErr.Error())
	}
}

// Listen drains this consumer's pending entries, then blocks on new ones
// until ctx is cancelled.
func (c *RedisConsumer) Listen(ctx context.Context, handle Handler) error {
	c.logger.Info("consumer started", zap.String("consumer", c.cfg.Consumer))

	for from := "0"; ; {
		msgs, err := c.Read(ctx, from)
		if err != nil {
			c.logger.Warn("drain pending entries", zap.Error(err))
			break
		}
		if len(msgs) == 0 {
			break
		}
		c.dispatch(ctx, msgs, handle)
		from = msgs[len(msgs)-1].ID
	}

	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return nil
		}

		msgs, err := c.Read(ctx, ">")
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("read failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(readBackoff):
			}
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		c.dispatch(ctx, msgs, handle)
	}
}

func (c *RedisConsumer) dispatch(ctx context.Context, msgs []Message, handle Handler) {
	errs := handle(ctx, msgs)

	// Settle with a fresh context so a shutdown mid-batch still acks.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	for i, msg := range msgs {
		var handleErr error
		if i < len(errs) {
			handleErr = errs[i]
		}
		if err := c.Settle(settleCtx, msg, handleErr); err != nil {
			c.logger.Error("settle message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values)+2)
	for k, v := range values {
		out[k] = v
	}
	return out
}
