package contracts

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionString(t *testing.T) {
	original := GitCommit
	t.Cleanup(func() { GitCommit = original })

	GitCommit = "unknown"
	assert.Equal(t, "ergopulse v"+Version, GetVersionString())

	GitCommit = "3f9c2d1a7b4e"
	assert.Equal(t, "ergopulse v"+Version+" (3f9c2d1)", GetVersionString())

	GitCommit = "abc"
	assert.Equal(t, "ergopulse v"+Version+" (abc)", GetVersionString())
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	assert.True(t, strings.HasPrefix(ua, "ergopulse/"+Version+" ("))
	assert.Contains(t, ua, runtime.GOOS+"/"+runtime.GOARCH)
}
