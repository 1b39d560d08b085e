// Package contracts holds the build identity shared by the server, the CLI
// and outbound requests. The HTTP payloads live in api/v1.
package contracts

import (
	"fmt"
	"runtime"
)

// Version is the release of the dashboard
const Version = "1.0.0"

// Set with -ldflags "-X ergopulse/pkg/contracts.BuildTime=... -X ergopulse/pkg/contracts.GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GetVersionString is the one line version shown by the CLI and the logs
func GetVersionString() string {
	if GitCommit == "unknown" {
		return fmt.Sprintf("ergopulse v%s", Version)
	}
	return fmt.Sprintf("ergopulse v%s (%s)", Version, shortCommit(GitCommit))
}

// UserAgent identifies the dashboard to the spreadsheet hosts it fetches from
func UserAgent() string {
	return fmt.Sprintf("ergopulse/%s (%s; %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
