// Package version holds build information injected at link time.
package version

import "runtime"

// Build information. Populated at build time via -ldflags:
//
//	-X github.com/readaloud/readaloud/version.GitRelease=v0.1.0
//	-X github.com/readaloud/readaloud/version.GitCommit=abc1234
//	-X github.com/readaloud/readaloud/version.GitCommitDate=2026-01-01
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = runtime.Version()
)
