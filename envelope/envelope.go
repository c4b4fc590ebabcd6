// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package envelope

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/errs"
	"github.com/danielhkuo/votechain/models"
	"github.com/danielhkuo/votechain/notify"
)

// Session hands out the binding of the active, supported session.
type Session interface {
	Active() (*contract.Binding, error)
	Generation() uint64
}

// Refresher reloads derived state after a confirmed mutation.
type Refresher interface {
	Refresh(ctx context.Context, gen uint64) error
}

// Call submits one contract transaction.
type Call func(ctx context.Context, b *contract.Binding) (*contract.Tx, error)

// Envelope runs state-changing contract calls: submit, wait for one
// confirmation, refresh, notify. It keeps no state between calls.
type Envelope struct {
	session   Session
	refresher Refresher
	notifier  notify.Notifier
	now       func() time.Time
}

func New(session Session, refresher Refresher, notifier notify.Notifier) *Envelope {
	return &Envelope{session: session, refresher: refresher, notifier: notifier, now: time.Now}
}

// Execute runs call against the active session. label names the operation in
// logs and notifications; args are recorded with the pending operation.
//
// Without an active, supported session call is never invoked. Any failure is
// categorized, reported as "Failed to <label> because <reason>" and returned
// with a nil result; the session is left untouched.
func (e *Envelope) Execute(ctx context.Context, label string, call Call, args ...any) (*models.TransactionResult, error) {
	binding, err := e.session.Active()
	if err != nil {
		return nil, e.fail(label, err)
	}

	op := models.PendingOperation{
		ID:        uuid.NewString(),
		Kind:      label,
		Args:      args,
		Status:    models.OpRunning,
		StartedAt: e.now(),
	}
	slog.Info("operation started", "id", op.ID, "operation", label, "from", binding.From().Hex(), "args", args)

	tx, err := call(ctx, binding)
	if err != nil {
		op.Status = models.OpFailed
		return nil, e.fail(label, contract.Classify(label, err))
	}
	slog.Info("transaction submitted", "id", op.ID, "operation", label, "tx", tx.Hash.Hex())

	receipt, err := tx.Wait(ctx)
	if err != nil {
		op.Status = models.OpFailed
		return nil, e.fail(label, contract.Classify(label, err))
	}
	op.Status = models.OpConfirmed

	result := &models.TransactionResult{
		OperationID: op.ID,
		Label:       label,
		TxHash:      tx.Hash,
		GasUsed:     receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	slog.Info("operation confirmed",
		"id", op.ID,
		"operation", label,
		"tx", tx.Hash.Hex(),
		"block", result.BlockNumber,
		"duration", e.now().Sub(op.StartedAt),
	)

	if e.refresher != nil {
		if err := e.refresher.Refresh(ctx, e.session.Generation()); err != nil {
			slog.Warn("refresh after operation failed", "id", op.ID, "operation", label, "error", err)
		}
	}

	e.notifier.Notify(notify.Success("Transaction confirmed: " + label))
	return result, nil
}

func (e *Envelope) fail(label string, err error) error {
	slog.Warn("operation failed", "operation", label, "kind", errs.KindOf(err), "error", err)
	e.notifier.Notify(notify.Failure(notify.SourceUser, "Failed to "+label, err))
	return err
}
