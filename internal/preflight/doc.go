// Package preflight provides readiness checks for the filesystem paths and
// collector endpoint that trackbuf depends on.
//
// The CLI "queue health" command prints these results next to the database
// diagnostics, and the daemon runs them once at start-up so misconfiguration
// shows up in the log before the first flush pass.
//
// The collector check only runs when the uploader is enabled.
package preflight
