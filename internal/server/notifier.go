package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/simulation"
)

// DefaultStepChannel is the Redis channel step summaries go to.
const DefaultStepChannel = "simulation.step"

const publishTimeout = 2 * time.Second

// Publisher is the slice of a Redis client the notifier needs. *redis.Client
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NewRedisPublisher connects to Redis at addr and pings it.
func NewRedisPublisher(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}

// StepSummary is the compact message published per step.
type StepSummary struct {
	Frame       uint64  `json:"frame"`
	SimTime     float64 `json:"sim_time"`
	Bodies      int     `json:"bodies"`
	Energy      float64 `json:"energy"`
	Fingerprint uint64  `json:"fingerprint"`
}

func summarize(snap simulation.Snapshot) StepSummary {
	return StepSummary{
		Frame:       snap.Frame,
		SimTime:     snap.SimTime,
		Bodies:      len(snap.Bodies),
		Energy:      snap.Energy.Total,
		Fingerprint: snap.Fingerprint,
	}
}

// StepNotifier publishes a StepSummary to Redis for step events. Publishing
// happens on the goroutine running Run; steps arriving faster than Redis
// accepts them are coalesced to the newest.
type StepNotifier struct {
	publisher Publisher
	channel   string
	logger    log.Log
	sub       bus.Subscription
	inbox     mailbox

	published atomic.Uint64
	failed    atomic.Uint64
}

func NewStepNotifier(publisher Publisher, channel string, eventBus bus.EventBus, logger log.Log) (*StepNotifier, error) {
	if publisher == nil || eventBus == nil {
		return nil, ErrNilDependency
	}
	if channel == "" {
		channel = DefaultStepChannel
	}
	if logger == nil {
		logger = log.NewNop()
	}

	n := &StepNotifier{
		publisher: publisher,
		channel:   channel,
		logger:    logger.With(log.String("component", "step_notifier"), log.String("channel", channel)),
		inbox:     newMailbox(),
	}
	sub, err := eventBus.Subscribe(simulation.EventStep, func(e bus.Event) error {
		snap, err := snapshotOf(e)
		if err != nil {
			return err
		}
		n.inbox.offer(snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	n.sub = sub
	return n, nil
}

// Run publishes queued steps until ctx is done.
func (n *StepNotifier) Run(ctx context.Context) error {
	defer func() { _ = n.sub.Cancel() }()
	for {
		select {
		case <-ctx.Done():
			n.logger.Info("step notifier stopped",
				log.Uint64("published", n.published.Load()),
				log.Uint64("failed", n.failed.Load()))
			return ctx.Err()
		case snap := <-n.inbox:
			if err := n.Notify(ctx, snap); err != nil {
				n.logger.Warn("step publish failed", log.Uint64("frame", snap.Frame), log.Error(err))
			}
		}
	}
}

// Notify publishes one summary synchronously.
func (n *StepNotifier) Notify(ctx context.Context, snap simulation.Snapshot) error {
	payload, err := json.Marshal(summarize(snap))
	if err != nil {
		n.failed.Add(1)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := n.publisher.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.failed.Add(1)
		return fmt.Errorf("publish %s: %w", n.channel, err)
	}
	n.published.Add(1)
	return nil
}

func (n *StepNotifier) Published() uint64 { return n.published.Load() }
func (n *StepNotifier) Failed() uint64    { return n.failed.Load() }
