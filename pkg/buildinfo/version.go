// Package buildinfo holds the version stamped into the storyline binary.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/storyline/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/storyline/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/storyline/pkg/buildinfo.Date=$(date -u +%Y-%m-%d)" ./cmd/storyline
//
// Development builds report "dev".
package buildinfo

import "fmt"

// Stamped at link time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template returns the output of `storyline --version`.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}
