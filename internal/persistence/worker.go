package persistence

import (
	"StakeLedger/internal/core"
	"StakeLedger/internal/observability"
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxWriteAttempts = 5
	initialBackoff   = 100 * time.Millisecond
	maxBackoff       = 5 * time.Second
)

// Worker drains state snapshots from the core and writes them to a BlobStore.
// Snapshots are full-state, so the worker coalesces: if several arrive while
// a write is in flight, only the newest one is written.
type Worker struct {
	store   BlobStore
	input   <-chan *core.SnapshotState
	log     zerolog.Logger
	metrics *observability.Metrics
	done    chan struct{}
}

func NewWorker(store BlobStore, input <-chan *core.SnapshotState, log zerolog.Logger, metrics *observability.Metrics) *Worker {
	return &Worker{
		store:   store,
		input:   input,
		log:     log,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Run consumes snapshots until ctx is cancelled, then flushes whatever is
// still queued with a background context so shutdown never loses the last
// state.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.flushRemaining()
			return
		case snap := <-w.input:
			snap = w.coalesce(snap)
			w.write(context.Background(), snap)
		}
	}
}

// Done is closed once Run has flushed and returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// coalesce drains any queued snapshots and keeps the newest.
func (w *Worker) coalesce(snap *core.SnapshotState) *core.SnapshotState {
	for {
		select {
		case next := <-w.input:
			if w.metrics != nil {
				w.metrics.PersistCoalesced.Inc()
			}
			snap = next
		default:
			return snap
		}
	}
}

func (w *Worker) flushRemaining() {
	select {
	case snap := <-w.input:
		snap = w.coalesce(snap)
		w.write(context.Background(), snap)
	default:
	}
}

// write encodes and saves one snapshot, retrying transient store failures
// with exponential backoff. Encoding failures are terminal for the snapshot;
// a later mutation will produce a fresh one.
func (w *Worker) write(ctx context.Context, snap *core.SnapshotState) {
	start := time.Now()

	data, err := Encode(snap, start)
	if err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("encode").Inc()
		}
		w.log.Error().Err(err).Msg("snapshot encode failed")
		return
	}

	rec := Record{SchemaVersion: SchemaVersion, Data: data, CreatedAt: start}
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err = w.store.Save(ctx, rec)
		if err == nil {
			break
		}
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("save").Inc()
		}
		if attempt >= maxWriteAttempts {
			w.log.Error().Err(err).Int("attempts", attempt).Msg("snapshot write abandoned")
			return
		}
		w.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("snapshot write failed, retrying")
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	if w.metrics != nil {
		w.metrics.PersistWrites.Inc()
		w.metrics.PersistDuration.Observe(time.Since(start).Seconds())
		w.metrics.SnapshotSizeBytes.Set(float64(len(data)))
	}
	w.log.Debug().
		Int("size_bytes", len(data)).
		Int64("seq_watermark", snap.SeqWatermark).
		Dur("elapsed", time.Since(start)).
		Msg("snapshot written")
}

// Restore loads the latest snapshot from the store into the core. A missing
// snapshot is not an error: the service starts empty.
func Restore(ctx context.Context, store BlobStore, c *core.Core, log zerolog.Logger) error {
	rec, err := store.Load(ctx)
	if err != nil {
		if err == ErrNoSnapshot {
			log.Info().Msg("no snapshot found, starting with empty state")
			return nil
		}
		return err
	}
	state, err := Decode(rec.Data)
	if err != nil {
		return err
	}
	c.RestoreFromSnapshot(state)
	log.Info().
		Int("schema_version", rec.SchemaVersion).
		Time("snapshot_created_at", rec.CreatedAt).
		Int("systems", len(state.Systems)).
		Int("players", len(state.Players)).
		Int("transactions", len(state.Transactions)).
		Int("settlements", len(state.Settlements)).
		Msg("state restored from snapshot")
	return nil
}
