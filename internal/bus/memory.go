package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

const memoryBuffer = 256

type memorySub struct {
	pattern string
	handler Handler
	ch      chan []byte
}

// Memory is an in-process Bus with the same topic-pattern semantics as the
// broker-backed client. It backs tests and single-process local runs.
type Memory struct {
	mu     sync.RWMutex
	subs   []*memorySub
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	ctx, cancel := context.WithCancel(context.Background())
	return &Memory{ctx: ctx, cancel: cancel}
}

func (m *Memory) Publish(_ context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(errs.KindValidation, "bus.Publish", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errs.New(errs.KindBusUnavailable, "bus.Publish", "bus closed")
	}

	for _, sub := range m.subs {
		if !topicMatch(sub.pattern, routingKey) {
			continue
		}
		select {
		case sub.ch <- body:
		default:
			// A full subscriber queue drops the event rather than stalling
			// the publisher; consumers must tolerate at-least-once anyway.
			logger.Warn("memory bus dropping event for slow subscriber",
				zap.String("routing_key", routingKey),
				zap.String("pattern", sub.pattern))
		}
	}
	return nil
}

func (m *Memory) Subscribe(routingKey string, handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errs.New(errs.KindBusUnavailable, "bus.Subscribe", "bus closed")
	}

	sub := &memorySub{pattern: routingKey, handler: handler, ch: make(chan []byte, memoryBuffer)}
	m.subs = append(m.subs, sub)

	m.wg.Add(1)
	go m.consume(sub)
	return nil
}

// consume mirrors the broker client: one delivery at a time, failures logged
// and contained.
func (m *Memory) consume(sub *memorySub) {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case body := <-sub.ch:
			m.dispatch(sub, body)
		}
	}
}

func (m *Memory) dispatch(sub *memorySub, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panic",
				zap.String("pattern", sub.pattern), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(m.ctx, handlerTimeout)
	defer cancel()
	if err := sub.handler(ctx, body); err != nil {
		logger.Error("event handler failed",
			zap.String("pattern", sub.pattern), zap.Error(err))
	}
}

// Close stops all consumption loops.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	return nil
}
