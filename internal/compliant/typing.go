// Package compliant defines the protocol every backend implements so one
// expression language can run unchanged over eager and lazy engines.
//
// The package holds interfaces and the shared behaviour that backends embed:
// namespaces that turn expression-language calls into backend expressions,
// the expression metadata that tracks output names and call depth, the
// when/then builder, group-by helpers and selectors. Concrete engines live
// in internal/eager and internal/lazy.
package compliant

import (
	"fmt"
	"strings"

	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/validation"
	"github.com/paveg/polyframe/internal/version"
)

// Implementation identifies a backend
type Implementation int

const (
	ImplUnknown Implementation = iota
	ImplArrow
	ImplSQLite
)

// String returns the implementation tag
func (i Implementation) String() string {
	switch i {
	case ImplArrow:
		return "arrow"
	case ImplSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// ModulePath returns the Go module that provides the native engine
func (i Implementation) ModulePath() string {
	switch i {
	case ImplArrow:
		return "github.com/apache/arrow-go/v18"
	case ImplSQLite:
		return "modernc.org/sqlite"
	default:
		return ""
	}
}

// pinned versions used when build info is unavailable (tests, stripped binaries)
var pinnedBackendVersions = map[Implementation][]int{
	ImplArrow:  {18, 3, 1},
	ImplSQLite: {1, 42, 2},
}

// BackendVersion returns the version of the native engine as integer parts
func (i Implementation) BackendVersion() []int {
	return version.BackendVersion(i.ModulePath(), pinnedBackendVersions[i])
}

// ParseImplementation maps a tag back onto an Implementation
func ParseImplementation(s string) (Implementation, error) {
	switch strings.ToLower(s) {
	case "arrow":
		return ImplArrow, nil
	case "sqlite":
		return ImplSQLite, nil
	default:
		return ImplUnknown, errors.NewInvalidInputError("implementation", fmt.Sprintf("unknown backend %q", s))
	}
}

// Version is the API dialect a namespace speaks
type Version int

const (
	V1 Version = iota + 1
	Main
)

// String returns the dialect name
func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case Main:
		return "main"
	default:
		return "unknown"
	}
}

// ParseVersion maps a dialect name onto a Version
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(s) {
	case "v1":
		return V1, nil
	case "main", "":
		return Main, nil
	default:
		return 0, errors.NewInvalidInputError("version", fmt.Sprintf("unknown API version %q", s))
	}
}

// ConcatMethod selects how frames are concatenated
type ConcatMethod string

const (
	ConcatVertical   ConcatMethod = "vertical"
	ConcatHorizontal ConcatMethod = "horizontal"
	ConcatDiagonal   ConcatMethod = "diagonal"
)

// Valid reports whether the method belongs to the closed set
func (m ConcatMethod) Valid() bool {
	switch m {
	case ConcatVertical, ConcatHorizontal, ConcatDiagonal:
		return true
	default:
		return false
	}
}

// EvalNames resolves the output column names of an expression against a frame.
// Column names are late-bound: they are only known once a frame is at hand.
type EvalNames[F any] func(df F) ([]string, error)

// AliasNames rewrites resolved output names
type AliasNames func(names []string) ([]string, error)

// Field is a named column type
type Field struct {
	Name  string
	DType dtypes.DType
}

// Schema is an ordered list of fields
type Schema []Field

// Names returns the field names in order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Lookup finds a field by name
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NamedFrame is any frame that can list its columns
type NamedFrame interface {
	Columns() []string
}

// SchemaFrame is a frame that knows its column types
type SchemaFrame interface {
	NamedFrame
	Schema() Schema
}

// AllColumnNames resolves to every column of the frame
func AllColumnNames[F NamedFrame](df F) ([]string, error) {
	return df.Columns(), nil
}

// PassthroughColumnNames resolves to the given names regardless of the frame
func PassthroughColumnNames[F any](names []string) EvalNames[F] {
	fixed := append([]string(nil), names...)
	return func(F) ([]string, error) {
		return fixed, nil
	}
}

// ExcludeColumnNames resolves to every column except the excluded ones
func ExcludeColumnNames[F NamedFrame](excluded []string) EvalNames[F] {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}
	return func(df F) ([]string, error) {
		cols := df.Columns()
		out := make([]string, 0, len(cols))
		for _, name := range cols {
			if !skip[name] {
				out = append(out, name)
			}
		}
		return out, nil
	}
}

// IndexedColumnNames resolves column positions to names.
// Negative indices count from the end.
func IndexedColumnNames[F NamedFrame](indices []int) EvalNames[F] {
	fixed := append([]int(nil), indices...)
	return func(df F) ([]string, error) {
		cols := df.Columns()
		out := make([]string, len(fixed))
		for i, idx := range fixed {
			pos, err := validation.ResolveIndex(idx, len(cols), "nth")
			if err != nil {
				return nil, err
			}
			out[i] = cols[pos]
		}
		return out, nil
	}
}
