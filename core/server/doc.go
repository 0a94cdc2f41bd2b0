// Package server holds the HTTP server configuration.
//
// The serve command builds the Fiber app from it: listen port, API key,
// whether the diagnostics routes are mounted and how long a graceful
// shutdown may take.
package server
