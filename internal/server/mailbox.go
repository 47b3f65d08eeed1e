package server

import (
	"fmt"

	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/simulation"
)

// mailbox holds at most one pending snapshot. Offering replaces whatever the
// consumer has not picked up yet, so a slow viewer skips frames instead of
// stalling the simulation loop.
type mailbox chan simulation.Snapshot

func newMailbox() mailbox { return make(mailbox, 1) }

func (m mailbox) offer(snap simulation.Snapshot) {
	select {
	case <-m:
	default:
	}
	select {
	case m <- snap:
	default:
	}
}

func snapshotOf(e bus.Event) (simulation.Snapshot, error) {
	snap, ok := e.Data().(simulation.Snapshot)
	if !ok {
		return simulation.Snapshot{}, fmt.Errorf("%w: %T", ErrUnexpectedPayload, e.Data())
	}
	return snap, nil
}
