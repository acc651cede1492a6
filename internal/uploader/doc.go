// Package uploader drains the telemetry buffer into a remote collector.
//
// A flush pass peeks at the oldest batch of pending records, sends them to a
// Sink in order, and acknowledges each record only after the Sink reports
// durable delivery. The pass stops at the first delivery failure so later
// samples are never acknowledged ahead of earlier ones. A crash between a
// successful send and its acknowledgment re-sends the record on the next pass;
// collectors must treat duplicates as idempotent.
package uploader
