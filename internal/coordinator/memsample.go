package coordinator

import "runtime"

// sampleHeapBytes is the default MemorySampler, read by maybeCleanup to check
// whether current process memory exceeds the threshold. No per-request
// start memory/CPU sample is taken for metrics. No dependency in the corpus wraps
// runtime.MemStats; this is the one place the core reads process memory
// and the standard library is the only applicable source.
func sampleHeapBytes() int64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.HeapAlloc)
}
