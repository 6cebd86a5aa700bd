// Package audit keeps a trail of finished requests. Each request torn down by
// a controller.Dispatcher becomes one Record describing how it ended: its
// failure category and code, how many pooled objects it borrowed and how
// many of those could not be returned.
//
// # Architecture
//
// The audit system consists of three layers:
//
//  1. Recorder - turns teardown summaries into records and writes them
//     asynchronously (package audit/recorder)
//  2. Storage - persists records in memory, SQLite or MySQL
//     (package audit/storage)
//  3. Retention - deletes records by age and count (package audit/retention)
//
// Table renders records for the command line.
//
// Recording never blocks a request. When the recorder queue is full the
// record is dropped and counted.
//
// # Basic Usage
//
//	store, err := storage.Open(cfg.Audit)
//	if err != nil {
//		return err
//	}
//	rec := recorder.New(store, recorder.ConfigFrom(cfg.Audit.Recorder))
//	defer rec.Close()
//
//	dispatcher := controller.NewDispatcher(controllers, logger, rec)
package audit
