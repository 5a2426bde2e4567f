//go:build deadlock

// Package sync aliases the mutex types used by warden so a build with
// -tags deadlock swaps them for go-deadlock's instrumented versions.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex reports lock acquisitions that wait longer than the deadlock timeout.
type Mutex = deadlock.Mutex

// RWMutex is the instrumented reader/writer lock.
type RWMutex = deadlock.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once

// lockTimeout must exceed the longest lock hold in warden. The RCON
// transport mutex is held for a whole map change round trip.
const lockTimeout = 150 * time.Second

func init() {
	deadlock.Opts.DeadlockTimeout = lockTimeout

	if os.Getenv("WARDEN_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	deadlock.Opts.PrintAllCurrentGoroutines = true
	println("[warden] deadlock detection enabled")
}
