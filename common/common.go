// Package common holds process-wide constants and the logger setup shared by
// the split-session binaries.
package common

var (
	// PackageName is the metrics namespace and default log service name.
	PackageName = "split_session"

	// Version is set at build time with -ldflags "-X .../common.Version=...".
	Version = "dev"
)
