// Package ledger is the append-only log of stock operations.
package ledger

import (
	"context"

	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/port"
)

// Ledger is not safe for concurrent use. InventoryService serializes access.
type Ledger struct {
	records []domain.OperationRecord
	saver   port.OperationSaver
}

// New restores a ledger from records already in insertion order. A record
// without a sequence number, or with one not above its predecessor's, is
// renumbered to follow the previous record.
func New(saver port.OperationSaver, records []domain.OperationRecord) *Ledger {
	l := &Ledger{
		records: make([]domain.OperationRecord, 0, len(records)),
		saver:   saver,
	}
	var prev int64
	for _, r := range records {
		if r.Sequence <= prev {
			r.Sequence = prev + 1
		}
		prev = r.Sequence
		l.records = append(l.records, r)
	}
	return l
}

// Append stores record at the end of the log and returns it with its
// sequence number. It never rejects a record; a failed snapshot write is
// returned as a *domain.PersistError after the append.
func (l *Ledger) Append(ctx context.Context, record domain.OperationRecord) (domain.OperationRecord, error) {
	record.Sequence = l.nextSequence()
	l.records = append(l.records, record)

	if l.saver == nil {
		return record, nil
	}
	if err := l.saver.SaveOperations(ctx, l.ListAll()); err != nil {
		return record, &domain.PersistError{Collection: "operations", Err: err}
	}
	return record, nil
}

func (l *Ledger) ListAll() []domain.OperationRecord {
	out := make([]domain.OperationRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) ListBySKU(sku string) []domain.OperationRecord {
	var out []domain.OperationRecord
	for _, r := range l.records {
		if r.SKU == sku {
			out = append(out, r)
		}
	}
	return out
}

func (l *Ledger) Len() int { return len(l.records) }

func (l *Ledger) nextSequence() int64 {
	if len(l.records) == 0 {
		return 1
	}
	return l.records[len(l.records)-1].Sequence + 1
}
