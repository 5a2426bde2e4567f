//go:build !deadlock

// Package sync aliases the mutex types used by warden so a build with
// -tags deadlock swaps them for go-deadlock's instrumented versions.
package sync

import "sync"

// Mutex is the standard sync.Mutex.
type Mutex = sync.Mutex

// RWMutex is the standard sync.RWMutex.
type RWMutex = sync.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once
