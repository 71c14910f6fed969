package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
	"geoscan/pkg/store"
)

const ledgerTimeout = 5 * time.Second

// ArchiveStore is the persistence an Archive writes to.
type ArchiveStore interface {
	store.BundleStore
	store.EnergyLedger
}

// Archive persists every bundle as a Consumer. As an Observer it appends each
// completed scan to the energy ledger, including scans of groups that later fault.
type Archive struct {
	store  ArchiveStore
	logger *slog.Logger
}

// NewArchive creates an archive writing to st.
func NewArchive(st ArchiveStore) *Archive {
	return &Archive{store: st, logger: slog.With("component", "archive")}
}

// Consume implements Consumer.
func (a *Archive) Consume(ctx context.Context, b *Bundle) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle %s: %w", b.ID, err)
	}
	rec := &store.BundleRecord{
		ID:             b.ID,
		Sequence:       b.Sequence,
		Started:        b.Started,
		Completed:      b.Completed,
		Mode:           string(b.Mode),
		Detections:     b.Detections(),
		EnergyUAh:      b.EnergyUAh,
		TotalEnergyUAh: b.TotalEnergyUAh,
		Payload:        payload,
	}
	if err := a.store.SaveBundle(ctx, rec); err != nil {
		return fmt.Errorf("save bundle %s: %w", b.ID, err)
	}
	return nil
}

// ScanFinished implements Observer.
func (a *Archive) ScanFinished(tech radio.Technology, out scan.Outcome, set *scan.ResultSet) {
	if set.ScanID == "" {
		return
	}
	entry := store.EnergyEntry{
		ScanID:     set.ScanID,
		Technology: string(tech),
		EnergyUAh:  set.EnergyUAh,
		RecordedAt: set.Timestamp,
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := a.store.AppendEnergy(ctx, entry); err != nil {
		a.logger.Warn("Energy ledger write failed", "scan", set.ScanID, "error", err)
	}
}

func (a *Archive) StateChanged(st State)                          {}
func (a *Archive) ScanFailed(tech radio.Technology, err error)    {}
func (a *Archive) GroupFinished(b *Bundle, elapsed time.Duration) {}

// LatestBundle keeps a deep copy of the most recent bundle for readers.
type LatestBundle struct {
	b atomic.Pointer[Bundle]
}

// Consume implements Consumer.
func (l *LatestBundle) Consume(ctx context.Context, b *Bundle) error {
	l.b.Store(b.Clone())
	return nil
}

// Get returns the latest bundle, or nil before the first group completed.
func (l *LatestBundle) Get() *Bundle {
	return l.b.Load()
}
