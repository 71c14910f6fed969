package core

import (
	"sync/atomic"

	"geoscan/pkg/radio"
	"geoscan/pkg/scan"
)

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

// Running reports whether the job holds its lock.
func (b *BaseJob) Running() bool {
	return atomic.LoadInt32(&b.running) == 1
}

// ScanJob binds one technology to its executor and its result buffer.
// The buffer is allocated once and overwritten by every scan.
type ScanJob struct {
	tech radio.Technology
	exec *scan.Executor
	set  scan.ResultSet
}

// NewScanJob creates the job of one technology.
func NewScanJob(tech radio.Technology, exec *scan.Executor) *ScanJob {
	return &ScanJob{tech: tech, exec: exec}
}

// Technology returns the scanned technology.
func (j *ScanJob) Technology() radio.Technology { return j.tech }
