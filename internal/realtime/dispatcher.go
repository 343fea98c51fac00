package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetryPolicy decides how often and how patiently a failed publish is retried
type RetryPolicy struct {
	Retries int
	BackOff func() backoff.BackOff
}

// ExponentialRetry waits base, 2*base, 4*base, ... between attempts
func ExponentialRetry(retries int, base time.Duration) RetryPolicy {
	return RetryPolicy{
		Retries: retries,
		BackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = base
			b.Multiplier = 2
			b.RandomizationFactor = 0
			b.MaxInterval = base << retries
			return b
		},
	}
}

// Dispatcher publishes updates in the background with retries
type Dispatcher struct {
	pub     Publisher
	policy  RetryPolicy
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil publisher turns every dispatch
// into a no-op.
func NewDispatcher(pub Publisher, policy RetryPolicy, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if pub == nil {
		pub = Noop{}
	}
	if policy.BackOff == nil {
		policy.BackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{pub: pub, policy: policy, timeout: timeout, log: log}
}

// Dispatch publishes update on its task topic without blocking the caller.
// Dispatches after Close are dropped.
func (d *Dispatcher) Dispatch(update LocationUpdate) {
	if _, ok := d.pub.(Noop); ok {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("Dispatcher closed, dropping location update",
			zap.Int64("agent_id", update.AgentID),
			zap.Int64("task_id", update.TaskID))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				d.log.Error("Realtime publish panicked", zap.Any("panic", p))
			}
		}()

		if err := d.Publish(context.Background(), update); err != nil {
			d.log.Warn("Dropping location update after retries",
				zap.Int64("agent_id", update.AgentID),
				zap.Int64("task_id", update.TaskID),
				zap.Error(err))
		}
	}()
}

// Publish sends update synchronously, retrying per the policy
func (d *Dispatcher) Publish(ctx context.Context, update LocationUpdate) error {
	if update.MessageID == "" {
		update.MessageID = uuid.NewString()
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode location update: %w", err)
	}
	topic := Topic(update.AgentID, update.TaskID)

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		pctx := ctx
		if d.timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		return struct{}{}, d.pub.Publish(pctx, topic, payload)
	},
		backoff.WithBackOff(d.policy.BackOff()),
		backoff.WithMaxTries(uint(d.policy.Retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.log.Debug("Realtime publish failed, retrying",
				zap.String("topic", topic),
				zap.Int("attempt", attempt),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("publish to %s failed after %d attempts: %w", topic, attempt, err)
	}
	return nil
}

// Close stops accepting updates and waits for in-flight publishes
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
