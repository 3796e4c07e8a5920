package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type HandlerFunc func(context.Context, kafka.Message) error

type Consumer struct {
	l        *slog.Logger
	r        *kafka.Reader
	wg       sync.WaitGroup
	handlers map[string]HandlerFunc
}

func NewConsumer(brokers []string, groupID string, topics ...string) *Consumer {
	l := slog.Default().WithGroup("kafka").With("group_id", groupID)

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		Logger:      &infoLogger{l: l},
		ErrorLogger: &errorLogger{l: l},
	})

	return &Consumer{
		l:        l,
		r:        r,
		handlers: make(map[string]HandlerFunc),
	}
}

func (c *Consumer) Handle(topic string, h HandlerFunc) *Consumer {
	c.handlers[topic] = h
	return c
}

// Consume reads in the background until ctx is done or the reader closes.
// Handler errors are logged and the message is committed anyway.
func (c *Consumer) Consume(ctx context.Context) *Consumer {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var wait time.Duration
		for {
			m, err := c.r.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
					c.l.Info("consumer stopped")
					return
				}
				wait = nextBackoff(wait)
				c.l.Error("read kafka message", "error", err, "retry_in", wait.String())
				if !sleep(ctx, wait) {
					c.l.Info("consumer stopped")
					return
				}
				continue
			}
			wait = 0

			handler, ok := c.handlers[m.Topic]
			if !ok {
				c.l.Warn("kafka handler not found", "topic", m.Topic)
				continue
			}

			if err := handler(ctx, m); err != nil {
				c.l.Error("handle kafka message", "topic", m.Topic, "offset", m.Offset, "error", err)
			}
		}
	}()

	return c
}

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// nextBackoff doubles the previous wait, starting at minBackoff and capped
// at maxBackoff.
func nextBackoff(prev time.Duration) time.Duration {
	if prev < minBackoff {
		return minBackoff
	}
	if next := prev * 2; next < maxBackoff {
		return next
	}
	return maxBackoff
}

// sleep waits d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Consumer) Close() {
	if err := c.r.Close(); err != nil {
		c.l.Error(fmt.Sprintf("close kafka reader: %s", err))
	}
	c.wg.Wait()
}
