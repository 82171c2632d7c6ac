// Package project loads crossbind.toml manifests and resolves workspaces:
// which modules exist, where their declaration graphs and dependency key
// tables live, and in what order they can be generated.
package project

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// Manifest is one parsed crossbind.toml.
type Manifest struct {
	Module    ModuleSection     `toml:"module"`
	Deps      map[string]string `toml:"deps"`
	Features  FeaturesSection   `toml:"features"`
	Bindings  BindingsSection   `toml:"bindings"`
	Workspace WorkspaceSection  `toml:"workspace"`
}

// ModuleSection names the module and its inputs.
type ModuleSection struct {
	Name      string `toml:"name"`
	Direction string `toml:"direction"`
	// Declgraph is the frontend-produced declaration graph file, relative
	// to the manifest directory.
	Declgraph string `toml:"declgraph"`
	// Headers are passed through to the glue emitter: origin header files
	// for cc-to-rs runs, the origin crate name for rs-to-cc runs.
	Headers []string `toml:"headers"`
	// Out is the artifact directory, relative to the manifest directory.
	// Empty means the manifest directory itself.
	Out string `toml:"out"`
}

// FeaturesSection gates unstable behavior.
type FeaturesSection struct {
	Experimental bool `toml:"experimental"`
}

// BindingsSection overrides per-item eligibility by qualified name.
type BindingsSection struct {
	Allow []string `toml:"allow"`
	Deny  []string `toml:"deny"`
	// PublicByDefault binds every public item unless denied. Defaults to
	// true when the key is absent.
	PublicByDefault *bool `toml:"public_by_default"`
}

// WorkspaceSection lists member module directories, relative to the
// manifest directory. Only the workspace root manifest carries it.
type WorkspaceSection struct {
	Members []string `toml:"members"`
}

// IsValidModuleName reports whether a module name is usable as an
// identifier stem in both emitted languages.
func IsValidModuleName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// LoadManifest parses and validates one crossbind.toml. Workspace root
// manifests may omit the [module] section entirely.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if len(m.Workspace.Members) > 0 && !meta.IsDefined("module") {
		return m, nil
	}
	if !meta.IsDefined("module") {
		return Manifest{}, fmt.Errorf("%s: missing [module] section", path)
	}
	if !IsValidModuleName(m.Module.Name) {
		return Manifest{}, fmt.Errorf("%s: invalid module name %q", path, m.Module.Name)
	}
	switch m.Module.Direction {
	case "cc-to-rs", "rs-to-cc":
	case "":
		return Manifest{}, fmt.Errorf("%s: missing module.direction", path)
	default:
		return Manifest{}, fmt.Errorf("%s: unknown module.direction %q", path, m.Module.Direction)
	}
	if strings.TrimSpace(m.Module.Declgraph) == "" {
		return Manifest{}, fmt.Errorf("%s: missing module.declgraph", path)
	}
	return m, nil
}

// IsWorkspace reports whether the manifest is a workspace root.
func (m Manifest) IsWorkspace() bool { return len(m.Workspace.Members) > 0 }

// HasModule reports whether the manifest describes a module of its own.
func (m Manifest) HasModule() bool { return m.Module.Name != "" }
