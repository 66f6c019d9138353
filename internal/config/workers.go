package config

import "runtime"

// DefaultWorkerCount mirrors constants.py's THREAD_LIMIT = os.cpu_count():
// one worker partition per logical CPU.
func DefaultWorkerCount() int {
	return runtime.NumCPU()
}
