// Package csync provides the small concurrent containers the dispatch core
// shares between its worker goroutines.
//
// Today that is one type: a generic RWMutex-guarded map, used for the
// in-flight request registry (exchange ID to cancel func). Operations take
// the lock per call; Range holds the read lock for the whole iteration, so
// callbacks must not call back into the map.
//
// Example usage:
//
//	inflight := csync.NewMap[string, context.CancelFunc]()
//	inflight.Set(id, cancel)
//	if cancel, ok := inflight.Get(id); ok {
//		cancel()
//	}
package csync
