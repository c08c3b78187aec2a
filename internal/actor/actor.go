// Package actor provides the base every squad actor (signal, position,
// risk, executor) embeds: declared subscriptions, filter-before-receive,
// and the one-handler-at-a-time guarantee (spec.md §4.2).
package actor

import (
	"context"
	"sync"

	"github.com/atlas-desktop/squad-engine/internal/bus"
)

// Actor is the lifecycle contract every squad member satisfies.
type Actor interface {
	Start(b *bus.Bus)
	Stop(b *bus.Bus)
}

// Receive is the actor's own handler signature: it never sees ctx or
// reports concurrency concerns, since Base already serializes calls and
// the bus already ran PreReceive.
type Receive func(msg bus.Message) (any, error)

type subscription struct {
	kind bus.Kind
	sub  *bus.Subscription
}

// Base is embedded by every concrete actor. It is not itself an Actor —
// concrete types provide Start/Stop and call Subscribe/Unsubscribe from
// within them — but it supplies the serialization and bookkeeping spec.md
// §4.2 requires of every actor.
type Base struct {
	mu   sync.Mutex
	subs []subscription
}

// Subscribe registers onReceive for typeName on the given pool, wrapping it
// so at most one invocation runs at a time for this actor (spec.md §4.2:
// "Exactly one on_receive may run at a time per actor"). preReceive is the
// actor's filter; a nil filter accepts everything.
func (a *Base) Subscribe(b *bus.Bus, kind bus.Kind, typeName string, preReceive bus.Filter, onReceive Receive) {
	wrapped := func(ctx context.Context, msg bus.Message) (any, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return onReceive(msg)
	}

	var sub *bus.Subscription
	switch kind {
	case bus.KindEvent:
		sub = b.On(typeName, wrapped, preReceive)
	case bus.KindCommand:
		sub = b.OnCommand(typeName, wrapped, preReceive)
	case bus.KindQuery:
		sub = b.OnQuery(typeName, wrapped, preReceive)
	}

	a.mu.Lock()
	a.subs = append(a.subs, subscription{kind: kind, sub: sub})
	a.mu.Unlock()
}

// UnsubscribeAll tears down every subscription this actor made, mirroring
// the declared set it subscribed to on Start (spec.md §4.2).
func (a *Base) UnsubscribeAll(b *bus.Bus) {
	a.mu.Lock()
	subs := a.subs
	a.subs = nil
	a.mu.Unlock()

	for _, s := range subs {
		b.Off(s.kind, s.sub)
	}
}
