package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	previous := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = previous })
}

func fakeBuildInfo() *debug.BuildInfo {
	return &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/paveg/polyframe"},
		Deps: []*debug.Module{
			{Path: "github.com/apache/arrow-go/v18", Version: "v18.3.1"},
			{Path: "modernc.org/sqlite", Version: "v1.40.0", Replace: &debug.Module{Path: "modernc.org/sqlite", Version: "v1.42.2"}},
			{Path: "golang.org/x/exp", Version: "v0.0.0-20240909161429-701f63a606c0"},
		},
	}
}

func TestInfo(t *testing.T) {
	withBuildInfo(t, fakeBuildInfo())

	info := Info("github.com/apache/arrow-go/v18", "example.com/absent")
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, "github.com/paveg/polyframe", info.Module)
	require.Len(t, info.Engines, 2)
	assert.Equal(t, Module{Path: "github.com/apache/arrow-go/v18", Version: "v18.3.1"}, info.Engines[0])
	assert.Equal(t, "", info.Engines[1].Version)

	str := info.String()
	assert.Contains(t, str, "Version:")
	assert.Contains(t, str, "Engine: github.com/apache/arrow-go/v18 v18.3.1")
	assert.Contains(t, str, "Engine: example.com/absent (not in build info)")
}

func TestBuildInfoString(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		want    []string
		notWant []string
	}{
		{
			name: "release",
			info: BuildInfo{
				Version:   "v1.0.0",
				BuildDate: "2024-01-01T00:00:00Z",
				GitCommit: "abc123def456",
				GoVersion: "go1.24.4",
			},
			want: []string{"Version: v1.0.0\n", "Build Date: 2024-01-01T00:00:00Z", "Git Commit: abc123d\n", "Go Version: go1.24.4"},
		},
		{
			name: "dirty",
			info: BuildInfo{Version: "v1.0.0", GitCommit: "abc123def-dirty", Dirty: true},
			want: []string{"Version: v1.0.0 (dirty)", "Git Commit: abc123d\n"},
		},
		{
			name:    "unknown fields are omitted",
			info:    BuildInfo{Version: "dev", BuildDate: unknownValue, GitCommit: unknownValue},
			want:    []string{"Version: dev"},
			notWant: []string{"Build Date", "Git Commit", "Module:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.info.String()
			for _, w := range tt.want {
				assert.Contains(t, str, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, str, w)
			}
		})
	}
}

func TestParseTriple(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{input: "v18.3.1", want: []int{18, 3, 1}},
		{input: "1.42.2", want: []int{1, 42, 2}},
		{input: "v2.1.3-alpha.1", want: []int{2, 1, 3}},
		{input: "v1.0.0+build.7", want: []int{1, 0, 0}},
		{input: "v0.0.0-20240909161429-701f63a606c0", want: []int{0, 0, 0}},
		{input: "", wantErr: true},
		{input: "v1.2", wantErr: true},
		{input: "v1.x.3", wantErr: true},
		{input: "(devel)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTriple(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModuleVersion(t *testing.T) {
	withBuildInfo(t, fakeBuildInfo())

	v, ok := ModuleVersion("github.com/apache/arrow-go/v18")
	assert.True(t, ok)
	assert.Equal(t, "v18.3.1", v)

	v, ok = ModuleVersion("modernc.org/sqlite")
	assert.True(t, ok)
	assert.Equal(t, "v1.42.2", v, "replacement version wins")

	_, ok = ModuleVersion("example.com/absent")
	assert.False(t, ok)
	_, ok = ModuleVersion("")
	assert.False(t, ok)
}

func TestBackendVersion(t *testing.T) {
	fallback := []int{9, 9, 9}

	t.Run("from build info", func(t *testing.T) {
		withBuildInfo(t, fakeBuildInfo())
		assert.Equal(t, []int{18, 3, 1}, BackendVersion("github.com/apache/arrow-go/v18", fallback))
		assert.Equal(t, []int{0, 0, 0}, BackendVersion("golang.org/x/exp", fallback))
	})

	t.Run("fallback without build info", func(t *testing.T) {
		withBuildInfo(t, nil)
		got := BackendVersion("github.com/apache/arrow-go/v18", fallback)
		assert.Equal(t, fallback, got)
		got[0] = 0
		assert.Equal(t, 9, fallback[0], "fallback is copied")
	})

	t.Run("fallback for unparsable versions", func(t *testing.T) {
		info := fakeBuildInfo()
		info.Deps = append(info.Deps, &debug.Module{Path: "example.com/devel", Version: "(devel)"})
		withBuildInfo(t, info)
		assert.Equal(t, fallback, BackendVersion("example.com/devel", fallback))
	})
}
