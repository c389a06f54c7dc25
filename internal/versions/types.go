// Package versions is the version ledger: the authoritative history of
// each application's generations, its active and generating versions,
// and the on-disk layout of every version.
//
// The package is split the same way the rest of the pipeline is:
// - types.go: generation types and status enums
// - state.go: lifecycle rules
// - paths.go: directory layout and preview URLs
// - ledger.go: the Ledger and its caches
package versions

import (
	"fmt"
	"strings"
)

// --- Generation type enum ---

// GenType is the kind of artifact a generation produces.
type GenType string

const (
	GenHTML      GenType = "html"
	GenMultiFile GenType = "multi_file"
	GenVue       GenType = "vue_project"
)

// validGenTypes is the set of allowed generation types.
var validGenTypes = map[GenType]bool{
	GenHTML:      true,
	GenMultiFile: true,
	GenVue:       true,
}

// ParseGenType accepts the canonical value and the hyphenated spelling
// used by older clients ("multi-file", "vue-project").
func ParseGenType(s string) (GenType, error) {
	g := GenType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !validGenTypes[g] {
		return "", fmt.Errorf("invalid generation type %q: must be one of: html, multi_file, vue_project", s)
	}
	return g, nil
}

// RequiresBuild reports whether the output must be bundled before it
// can be served. Build-requiring projects are also edited incrementally
// by the agent, so their version directories are seeded from the
// previous version.
func (g GenType) RequiresBuild() bool {
	return g == GenVue
}

// --- App status enum ---

// AppStatus is the aggregate status mirrored onto the application.
type AppStatus string

const (
	AppNotGenerated AppStatus = "not_generated"
	AppGenerating   AppStatus = "generating"
	AppReady        AppStatus = "ready"
	AppFailed       AppStatus = "failed"
)

// --- Version status enum ---

// VersionStatus is the lifecycle state of one version.
type VersionStatus string

const (
	VersionGenerating VersionStatus = "generating"
	VersionReady      VersionStatus = "ready"
	VersionFailed     VersionStatus = "failed"
)

// Version is one generation attempt.
type Version struct {
	AppID     int64         `json:"app_id"`
	Number    int           `json:"version"`
	GenType   GenType       `json:"gen_type"`
	CodeDir   string        `json:"code_dir"`
	Status    VersionStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	CreatedBy int64         `json:"created_by"`
	CreatedAt string        `json:"created_at"`
}
