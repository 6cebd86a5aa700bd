// Package ledger tracks the objects a single request borrowed from shared
// pools so they can all be returned when the request ends.
//
// Each Record appends an entry under a new Key. Keys increase monotonically
// and are never reused within a request. Drain returns every outstanding
// object to the pool it came from, in the order the objects were recorded,
// and leaves the ledger empty.
//
// # Usage
//
//	l := ledger.New(logger)
//
//	buf, _ := buffers.Acquire()
//	key, err := l.Record(buf, buffers)
//	if err != nil {
//	    return err
//	}
//
//	// ... use buf ...
//
//	result := l.Drain() // buf is back in buffers
//
// A release failure never stops a drain: the failure is logged, the entry is
// dropped, and the remaining entries are still returned.
//
// A Ledger belongs to one request and is not safe for concurrent use by
// several requests. Its methods are guarded by a mutex so that an abort path
// and the completion path may race on Drain.
package ledger
