// Package main (cmd/httpserver) runs the split-session service.
//
// The server persists sessions in the store named by --store-uri and splits
// secrets with the built-in Shamir splitter or a remote splitting service.
//
// Example usage with an in-memory store:
//
//	httpserver --listen-addr 127.0.0.1:8080
//
// With a SQLite store, sessions that never expire and a remote splitter:
//
//	httpserver \
//	  --store-uri sqlite:///var/lib/split/sessions.db \
//	  --session-ttl -1 \
//	  --splitter remote --splitter-url http://127.0.0.1:9000
//
// Every flag can also be set through its environment variable, e.g. STORE_URI.
// The server shuts down gracefully on SIGINT or SIGTERM.
package main
