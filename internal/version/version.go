// Package version provides build-time version information for the taskhub
// binaries.
package version

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)
