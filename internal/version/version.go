// Package version provides build information for polyframe and the
// versions of the native engines it links against.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// readBuildInfo is swapped in tests
var readBuildInfo = debug.ReadBuildInfo

// BuildInfo describes the running binary and the engines it links
type BuildInfo struct {
	Version   string   `json:"version"`
	BuildDate string   `json:"build_date"`
	GitCommit string   `json:"git_commit"`
	GoVersion string   `json:"go_version"`
	Dirty     bool     `json:"dirty"`
	Module    string   `json:"module"`
	Engines   []Module `json:"engines"`
}

// Module is a linked dependency. Version is empty when the binary carries
// no build info for it.
type Module struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// Info returns the build information, resolving the version of each engine
// module path through the binary's build info.
func Info(engines ...string) BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.HasSuffix(GitCommit, "-dirty"),
	}
	if bi, ok := readBuildInfo(); ok {
		info.Module = bi.Main.Path
	}
	for _, path := range engines {
		v, _ := ModuleVersion(path)
		info.Engines = append(info.Engines, Module{Path: path, Version: v})
	}
	return info
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("polyframe\n")
	sb.WriteString("Version: " + b.Version)
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue && b.BuildDate != "" {
		sb.WriteString(fmt.Sprintf("Build Date: %s\n", b.BuildDate))
	}
	if b.GitCommit != unknownValue && b.GitCommit != "" {
		commit := strings.TrimSuffix(b.GitCommit, "-dirty")
		if len(commit) > commitHashLength {
			commit = commit[:commitHashLength]
		}
		sb.WriteString(fmt.Sprintf("Git Commit: %s\n", commit))
	}
	sb.WriteString(fmt.Sprintf("Go Version: %s\n", b.GoVersion))
	if b.Module != "" {
		sb.WriteString(fmt.Sprintf("Module: %s\n", b.Module))
	}
	for _, m := range b.Engines {
		v := m.Version
		if v == "" {
			v = "(not in build info)"
		}
		sb.WriteString(fmt.Sprintf("Engine: %s %s\n", m.Path, v))
	}
	return sb.String()
}

// ModuleVersion returns the version of a linked dependency from the build info.
// It reports false when the binary carries no build info or does not link path.
func ModuleVersion(path string) (string, bool) {
	info, ok := readBuildInfo()
	if !ok || path == "" {
		return "", false
	}
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version, true
		}
		return dep.Version, true
	}
	return "", false
}

// BackendVersion returns the major, minor and patch numbers of a linked module,
// or fallback when the module version cannot be determined.
func BackendVersion(path string, fallback []int) []int {
	v, ok := ModuleVersion(path)
	if !ok {
		return append([]int(nil), fallback...)
	}
	parts, err := ParseTriple(v)
	if err != nil {
		return append([]int(nil), fallback...)
	}
	return parts
}

// ParseTriple reads MAJOR.MINOR.PATCH from a module version such as
// "v1.42.2" or "v0.0.0-20240909161429-701f63a606c0". Pre-release and build
// suffixes are ignored.
func ParseTriple(version string) ([]int, error) {
	if version == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}
	core := strings.TrimPrefix(version, "v")
	if idx := strings.IndexAny(core, "-+"); idx != -1 {
		core = core[:idx]
	}

	fields := strings.Split(core, ".")
	if len(fields) != 3 {
		return nil, fmt.Errorf("invalid version format: %s", version)
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version component %q in %s", f, version)
		}
		out[i] = n
	}
	return out, nil
}
