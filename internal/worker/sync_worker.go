// Package worker exports ledger rows to the spreadsheet. It is driven two
// ways: AMQP change notifications for low latency, and a periodic
// pending-sync scan that recovers anything a lost message left behind.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spentee/internal/amqp"
	"spentee/internal/core"
	"spentee/internal/sheets"
	"spentee/internal/storage"
)

type SyncWorker struct {
	store     storage.LedgerStore
	writer    sheets.RowWriter
	batchSize int
}

func NewSyncWorker(store storage.LedgerStore, writer sheets.RowWriter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single change notification from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"kind", msg.Kind,
		"id", msg.ID,
		"deleted", msg.Deleted)

	if msg.Deleted {
		// The row is already gone from the store; the sheet is an
		// append-only log, so there is nothing to retract.
		slog.InfoContext(ctx, "Skipping deleted row", "kind", msg.Kind, "id", msg.ID)
		return nil
	}

	row, err := w.loadRow(ctx, msg.Kind, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted between publish and delivery.
			slog.WarnContext(ctx, "Row vanished before export", "kind", msg.Kind, "id", msg.ID)
			return nil
		}
		return fmt.Errorf("load row: %w", err)
	}

	return w.export(ctx, msg.Kind, msg.ID, row)
}

// ProcessPending exports rows whose sync message never arrived. It is the
// backup path behind AMQP.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger pending backlog once at worker start,
// recovering from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize*5)
}

// Run scans for pending rows on a fixed interval until ctx ends.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sync scan failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) processPendingBatch(ctx context.Context, limit int) error {
	pending, err := w.store.PendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending rows", "count", len(pending))

	synced, failed := 0, 0
	for _, item := range pending {
		row, err := w.loadRow(ctx, item.Kind, item.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending row",
				"kind", item.Kind, "id", item.ID, "error", err)
			if markErr := w.store.MarkSyncError(ctx, item.Kind, item.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"kind", item.Kind, "id", item.ID, "error", markErr)
			}
			failed++
			continue
		}
		if err := w.export(ctx, item.Kind, item.ID, row); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending row",
				"kind", item.Kind, "id", item.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sync batch completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

// loadRow fetches the current row and flattens it to a sheet row. The
// worker sees all owners: export is per-instance, not per-user.
func (w *SyncWorker) loadRow(ctx context.Context, kind, id string) (sheets.Row, error) {
	all := core.AllOwners()
	switch kind {
	case storage.SyncKindExpense:
		e, err := w.store.GetExpense(ctx, all, id)
		if err != nil {
			return sheets.Row{}, err
		}
		return sheets.Row{
			Date:        e.Date.Format("2006-01-02"),
			Kind:        kind,
			Description: e.Description,
			Category:    string(e.Category),
			Amount:      "-" + e.Amount.String(),
			Reference:   e.ID,
		}, nil
	case storage.SyncKindIncome:
		in, err := w.store.GetIncome(ctx, all, id)
		if err != nil {
			return sheets.Row{}, err
		}
		desc := in.Description
		if desc == "" {
			desc = in.Source
		}
		return sheets.Row{
			Date:        in.Date.Format("2006-01-02"),
			Kind:        kind,
			Description: desc,
			Category:    string(in.Type),
			Amount:      in.Amount.String(),
			Reference:   in.ID,
		}, nil
	case storage.SyncKindSaving:
		sv, err := w.store.GetSaving(ctx, all, id)
		if err != nil {
			return sheets.Row{}, err
		}
		return sheets.Row{
			Date:        sv.Date.Format("2006-01-02"),
			Kind:        kind,
			Description: sv.Description,
			Category:    "Savings",
			Amount:      "-" + sv.Amount.String(),
			Reference:   sv.ID,
		}, nil
	case storage.SyncKindUPI:
		u, err := w.store.GetUPIPayment(ctx, all, id)
		if err != nil {
			return sheets.Row{}, err
		}
		return sheets.Row{
			Date:        u.Date.Format("2006-01-02"),
			Kind:        kind,
			Description: fmt.Sprintf("%s - %s [%s]", u.App, u.RecipientName, u.Status),
			Category:    string(u.Category),
			Amount:      "-" + u.Amount.String(),
			Reference:   u.ID,
		}, nil
	default:
		return sheets.Row{}, fmt.Errorf("unknown sync kind: %s", kind)
	}
}

func (w *SyncWorker) export(ctx context.Context, kind, id string, row sheets.Row) error {
	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, kind, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"kind", kind, "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkSynced(ctx, kind, id); err != nil {
		// The export itself succeeded; the row will be re-exported on
		// the next scan, which is harmless but noisy.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"kind", kind, "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Exported row",
		"kind", kind,
		"id", id,
		"sheets_ref", ref)
	return nil
}

// Consume pumps AMQP sync messages into the worker, reconnecting with
// backoff when the broker connection drops.
func Consume(ctx context.Context, connect func() (*amqp.Client, error), w *SyncWorker) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		client, err := connect()
		if err != nil {
			wait := backoffWait(attempt)
			attempt++
			slog.ErrorContext(ctx, "AMQP connect failed, retrying",
				"error", err, "wait", wait, "attempt", attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		err = client.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
			return w.HandleSyncMessage(ctx, msg)
		})
		client.Close()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err != nil && !amqp.IsConnectionError(err) {
			return err
		}
		slog.WarnContext(ctx, "AMQP consumption stopped, reconnecting", "error", err)
	}
}

func backoffWait(attempt int) time.Duration {
	wait := time.Second << attempt
	if attempt >= 5 || wait > 30*time.Second {
		return 30 * time.Second
	}
	return wait
}
