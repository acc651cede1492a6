// Package daemon coordinates the long-running trackbuf process.
//
// It wires configuration, the telemetry store, and the uploader into a single
// lifecycle with flock-based locking so only one process drains a given data
// directory at a time. Producers may still insert from other processes; the
// lock only serializes uploaders.
//
// Keep orchestration here: delivery logic belongs in the uploader package and
// storage rules in telemetry.
package daemon
