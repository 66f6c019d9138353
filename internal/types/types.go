// Package types provides shared types used across the mala codebase.
package types

import "time"

// Sample is a concrete file on disk identified canonically by its SHA-256.
// Created on first sight; immutable thereafter.
type Sample struct {
	ID       int64
	MD5      string
	SHA1     string
	SHA256   string
	Basename string
	Path     string
	Size     int64
}

// Package is an archive file (typically .7z, password "infected") holding
// many Samples. Keyed by MD5 uniqueness.
type Package struct {
	ID            int64
	MD5           string
	Basename      string
	Path          string
	Size          int64
	DateIngested  time.Time
	DeclaredCount int
}

// Execution is one row per invocation of the pipeline.
type Execution struct {
	ID             int64
	UUID           string
	CmdLine        string
	FileCount      int
	StartTime      time.Time
	FinishTime     time.Time
	Toolchain      string
	WorkerCount    int
	ShrCutoff      int
	SanityCount    int
	HandledCount   int
	VerifiedCount  int
}

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
