// Command trackbuf is the operator CLI for the offline telemetry buffer.
//
// Subcommands open the buffer database directly, so they work whether or not
// the uploader daemon (`trackbuf run`) is active; SQLite WAL mode lets the
// CLI read and write alongside it.
package main
