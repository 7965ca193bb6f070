package reconcile

import (
	"context"

	"asset-reconciler/core/lansweeper"

	"go.uber.org/zap"
)

// Dispatcher sends the accumulated updates for one identity as a single remote
// call and owns the monotonic request counter behind the continuation gate.
// Failures are returned, never retried; the gate is the only backpressure.
type Dispatcher struct {
	client   lansweeper.Client
	gate     Gate
	every    int
	requests int
	log      *zap.Logger
}

// NewDispatcher creates a dispatcher. every is the gate interval in requests;
// zero disables the gate.
func NewDispatcher(client lansweeper.Client, gate Gate, every int, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		gate:   gate,
		every:  every,
		log:    log,
	}
}

// Requests returns the number of update calls issued so far.
func (d *Dispatcher) Requests() int {
	return d.requests
}

// Dispatch issues one update call carrying the entire batch for one identity.
// The call always completes before the gate is consulted, so an in-flight
// update is never interrupted. proceed is false when the gate declined;
// the caller treats that as an abort at the next boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, batch UpdateBatch) (proceed bool, err error) {
	d.requests++

	err = d.client.EditAsset(ctx, key, batch)
	if err != nil {
		d.log.Error("Update dispatch failed",
			zap.String("asset_key", key),
			zap.Int("fields", len(batch)),
			zap.Error(err),
		)
	} else {
		d.log.Info("Update dispatched",
			zap.String("asset_key", key),
			zap.Int("fields", len(batch)),
			zap.Int("requests", d.requests),
		)
	}

	proceed = true
	if d.every > 0 && d.requests%d.every == 0 {
		proceed = d.gate.Continue(d.requests)
		if !proceed {
			d.log.Warn("Continuation declined, stopping after current identity",
				zap.Int("requests", d.requests))
		}
	}

	return proceed, err
}
