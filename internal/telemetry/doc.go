// Package telemetry persists location samples in SQLite until an uploader
// confirms delivery to the remote collector.
//
// The Store owns the on-disk telemetry_queue table and exposes the handoff
// contract used by producers and uploaders: Insert appends a pending record,
// Unsent peeks at the oldest batch without mutating it, Delete acknowledges a
// delivered record, and Count reports queue depth for backpressure decisions.
// Writes run in their own short transactions; reads are single statements.
//
// Retrieval never claims rows, so the same record may be returned repeatedly
// until it is deleted. Consumers get at-least-once delivery and must tolerate
// duplicates downstream.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package telemetry
