package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "seekwell")
	assert.Contains(t, info.String(), "Go Version:")
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{
		Version:    "v0.3.0",
		BuildDate:  "2024-01-01T00:00:00Z",
		GitCommit:  "abc123def456-dirty",
		GoVersion:  "go1.24.4",
		Dirty:      true,
		ModulePath: "github.com/paveg/seekwell",
	}

	str := info.String()
	assert.Contains(t, str, "Version: v0.3.0 (dirty)")
	assert.Contains(t, str, "Build Date: 2024-01-01T00:00:00Z")
	assert.Contains(t, str, "Git Commit: abc123d")
	assert.Contains(t, str, "Module: github.com/paveg/seekwell")
}

func TestBuildInfoStringUnknown(t *testing.T) {
	info := BuildInfo{Version: "dev", BuildDate: unknownValue, GitCommit: unknownValue, GoVersion: "go1.24.4"}

	str := info.String()
	assert.NotContains(t, str, "Build Date")
	assert.NotContains(t, str, "Git Commit")
}

func TestIsRelease(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	tests := []struct {
		version string
		want    bool
	}{
		{"dev", false},
		{"v1.0.0", true},
		{"v1.0.0-rc.1", false},
	}
	for _, tt := range tests {
		Version = tt.version
		assert.Equal(t, tt.want, IsRelease(), tt.version)
	}
}
