// Package audit persists decision records for compliance review.
//
// Records are written asynchronously through the Recorder so that persistence
// never blocks the decision path. The SQLite backend keeps records queryable
// by time range and verdict; the retention scheduler prunes old records on a
// cron schedule.
package audit
