// Package recorder writes audit records in the background.
//
// A Recorder is registered as a controller.Observer. Each teardown summary
// becomes an audit.Record with a fresh UUID and is queued on a buffered
// channel; a single worker stores queued records with a per-write timeout.
// A full queue drops the record rather than delay the request, and Close
// writes everything still queued before returning.
package recorder
