// Package cli holds build-time values injected by release scripts, e.g.:
//
//	-ldflags "-X 'github.com/flarebyte/deopt-sweep/cli.Version=1.2.3' -X 'github.com/flarebyte/deopt-sweep/cli.Date=2026-10-18'"
package cli

var (
	Version string
	Date    string
)
