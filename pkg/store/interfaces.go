package store

import (
	"context"
	"time"
)

// BundleRecord is a persisted scan group outcome. Payload holds the JSON bundle.
type BundleRecord struct {
	ID             string
	Sequence       uint64
	Started        time.Time
	Completed      time.Time
	Mode           string
	Detections     int
	EnergyUAh      uint64
	TotalEnergyUAh uint64
	Payload        []byte
}

// BundleStore handles scan group history.
type BundleStore interface {
	SaveBundle(ctx context.Context, rec *BundleRecord) error
	GetBundle(ctx context.Context, id string) (*BundleRecord, error)
	LatestBundles(ctx context.Context, limit int) ([]*BundleRecord, error)
}

// EnergyEntry is one scan's consumption in the ledger.
type EnergyEntry struct {
	ScanID     string
	Technology string
	EnergyUAh  uint32
	RecordedAt time.Time
}

// EnergyLedger handles the lifetime energy ledger, keyed by scan ID.
type EnergyLedger interface {
	AppendEnergy(ctx context.Context, e EnergyEntry) error
	SumEnergy(ctx context.Context) (total uint64, scans int, err error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
