package workers

import (
	"chat-pulse/contract"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/runtime"
	"context"
	"log/slog"
	"time"
)

// Ensure *HeartbeatWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*HeartbeatWorker)(nil)

// Evictor runs the offline path of a connection.
type Evictor interface {
	Disconnect(ctx context.Context, conn *runtime.Connection) bool
}

// PresenceRefresher keeps a shared presence entry alive.
type PresenceRefresher interface {
	Refresh(ctx context.Context, identity domain.UserID)
}

// HeartbeatWorker probes every registered connection once per interval.
// A connection that did not answer the previous probe is evicted, so an
// ungraceful disconnect is detected within one interval of its last probe.
type HeartbeatWorker struct {
	log       *slog.Logger
	registry  *runtime.Registry
	evictor   Evictor
	refresher PresenceRefresher
	interval  time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, registry *runtime.Registry, evictor Evictor,
	refresher PresenceRefresher, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:       log,
		registry:  registry,
		evictor:   evictor,
		refresher: refresher,
		interval:  interval,
	}
}

// Run executes the main loop of the worker, probing connections every interval.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			probed, evicted := w.Tick(ctx)
			if evicted > 0 {
				w.log.Info("Heartbeat evicted stale connections", "evicted", evicted, "probed", probed)
			}
		}
	}
}

// Tick runs one probe round and reports how many connections were probed
// and how many were evicted.
func (w *HeartbeatWorker) Tick(ctx context.Context) (probed, evicted int) {
	w.registry.ForEach(func(conn *runtime.Connection) {
		if !conn.IsLive() {
			return
		}
		if !conn.ResetAlive() {
			if w.evictor.Disconnect(ctx, conn) {
				w.log.Debug("Connection missed its heartbeat", "identity", conn.Identity, "connection_id", conn.ID)
				evicted++
			}
			return
		}
		if err := conn.Send(ctx, event.PingEvent{}); err != nil {
			w.log.Warn("Failed to send ping", "identity", conn.Identity, "error", err)
		}
		if w.refresher != nil {
			w.refresher.Refresh(ctx, conn.Identity)
		}
		probed++
	})
	return probed, evicted
}
