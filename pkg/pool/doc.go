// Package pool provides reusable-instance pools shared by every request in a
// worker.
//
// A Pool hands out instances built by a factory and takes them back when a
// request is done with them. The pool, not the borrower, owns idle instances:
// Release transfers ownership back, and releasing an instance that is not
// currently borrowed fails with a *ReleaseError instead of storing it twice.
//
// # Usage
//
//	buffers := pool.New("buffers", func() (*bytes.Buffer, error) {
//	    return new(bytes.Buffer), nil
//	}, pool.Config{MaxIdle: 64})
//
//	buf, err := buffers.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer buffers.Release(buf)
//
// Instances implementing Resetter are reset on release. Instances implementing
// io.Closer are closed when the pool discards them (over MaxIdle, expired, or
// on Close).
//
// # Thread Safety
//
// All Pool and Manager methods are safe for concurrent use. Two concurrent
// callers never receive the same instance.
package pool
