// Package job loads generation job files.
//
// A job names the template, the output path, the directory of CUE
// descriptors and the ordered plugin chain:
//
//	template: arith.tmpl.hpp
//	output: arith.hpp
//	specs: specs
//	plugins:
//	  - kind: inst
//	    members: [constructor, getter, write]
//	  - kind: builder
//
// Relative paths are resolved against the job file's directory.
package job

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lwir/internal/emit"
	"github.com/roach88/lwir/internal/ir"
)

// Plugin kinds accepted in a job file.
const (
	KindInst    = "inst"
	KindBuilder = "builder"
	KindCAPI    = "capi"
)

// Member names accepted by an inst plugin, in default order.
var MemberNames = []string{"constructor", "getter", "setter", "hash", "equality", "write"}

// Job is one generation run.
type Job struct {
	// Template is the template document path.
	Template string `yaml:"template"`

	// Output is the generated document path.
	Output string `yaml:"output"`

	// Specs is the directory holding the CUE descriptor.
	Specs string `yaml:"specs"`

	// Plugins is the ordered plugin chain.
	Plugins []PluginConfig `yaml:"plugins"`
}

// PluginConfig configures one plugin. Which fields apply depends on Kind.
type PluginConfig struct {
	// Kind is "inst", "builder" or "capi".
	Kind string `yaml:"kind"`

	// Members lists inst members in emission order. Empty means all
	// members in MemberNames order.
	Members []string `yaml:"members,omitempty"`

	// Formatters maps a scalar type name to the C++ callable the write
	// member uses for it (inst).
	Formatters map[string]string `yaml:"formatters,omitempty"`

	// Overrides maps an instruction name to a replacement write body (inst).
	Overrides map[string]string `yaml:"overrides,omitempty"`

	// Allocator is the raw-storage callable for placement construction
	// (builder).
	Allocator string `yaml:"allocator,omitempty"`

	// Prefix is the exported symbol prefix (capi).
	Prefix string `yaml:"prefix,omitempty"`

	// Builder is the C++ builder type behind the opaque handle (capi).
	Builder string `yaml:"builder,omitempty"`

	// Value is the C representation of value references (capi).
	Value string `yaml:"value,omitempty"`

	// Types maps scalar type names to C representations (capi).
	Types map[string]string `yaml:"types,omitempty"`
}

// Load reads and parses a job file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read job file")
	}

	// Strict field validation catches typos like "plugin:" vs "plugins:"
	var job Job
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&job); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	// Resolve paths relative to the job file BEFORE validation
	base := filepath.Dir(path)
	for _, p := range []*string{&job.Template, &job.Output, &job.Specs} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	if err := job.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid job")
	}
	return &job, nil
}

// Validate checks that required fields are present and every plugin entry
// only carries options of its kind.
func (j *Job) Validate() error {
	if j.Template == "" {
		return fmt.Errorf("template is required")
	}
	if j.Output == "" {
		return fmt.Errorf("output is required")
	}
	if j.Specs == "" {
		return fmt.Errorf("specs is required")
	}
	if len(j.Plugins) == 0 {
		return fmt.Errorf("plugins list is required and must be non-empty")
	}

	for i, p := range j.Plugins {
		if err := p.validate(); err != nil {
			return fmt.Errorf("plugins[%d]: %w", i, err)
		}
	}
	return nil
}

func (p *PluginConfig) validate() error {
	instOnly := len(p.Members) > 0 || len(p.Formatters) > 0 || len(p.Overrides) > 0
	builderOnly := p.Allocator != ""
	capiOnly := p.Prefix != "" || p.Builder != "" || p.Value != "" || len(p.Types) > 0

	switch p.Kind {
	case KindInst:
		if builderOnly || capiOnly {
			return fmt.Errorf("inst plugin accepts only members, formatters and overrides")
		}
		seen := make(map[string]bool)
		for _, m := range p.Members {
			if !slices.Contains(MemberNames, m) {
				return fmt.Errorf("unknown member %q, must be one of %v", m, MemberNames)
			}
			if seen[m] {
				return fmt.Errorf("member %q listed twice", m)
			}
			seen[m] = true
		}
	case KindBuilder:
		if instOnly || capiOnly {
			return fmt.Errorf("builder plugin accepts only allocator")
		}
	case KindCAPI:
		if instOnly || builderOnly {
			return fmt.Errorf("capi plugin accepts only prefix, builder, value and types")
		}
		if p.Prefix == "" || p.Builder == "" || p.Value == "" {
			return fmt.Errorf("capi plugin requires prefix, builder and value")
		}
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown plugin kind %q", p.Kind)
	}
	return nil
}

// BuildPlugins constructs the plugin chain in job order.
func (j *Job) BuildPlugins() ([]emit.Plugin, error) {
	plugins := make([]emit.Plugin, 0, len(j.Plugins))
	for i, cfg := range j.Plugins {
		plugin, err := cfg.build()
		if err != nil {
			return nil, fmt.Errorf("plugins[%d]: %w", i, err)
		}
		plugins = append(plugins, plugin)
	}
	return plugins, nil
}

func (p *PluginConfig) build() (emit.Plugin, error) {
	switch p.Kind {
	case KindInst:
		names := p.Members
		if len(names) == 0 {
			names = MemberNames
		}
		members := make([]emit.InstMember, 0, len(names))
		for _, name := range names {
			member, err := p.member(name)
			if err != nil {
				return nil, err
			}
			members = append(members, member)
		}
		return emit.NewInstPlugin(members...), nil
	case KindBuilder:
		return &emit.BuilderPlugin{Allocator: p.Allocator}, nil
	case KindCAPI:
		types := map[ir.Type]string{ir.SingleValue(): p.Value}
		for name, repr := range p.Types {
			types[ir.Scalar(name)] = repr
		}
		return &emit.CAPIPlugin{Prefix: p.Prefix, Builder: p.Builder, Types: types}, nil
	default:
		return nil, fmt.Errorf("unknown plugin kind %q", p.Kind)
	}
}

func (p *PluginConfig) member(name string) (emit.InstMember, error) {
	switch name {
	case "constructor":
		return emit.Constructor{}, nil
	case "getter":
		return emit.Getter{}, nil
	case "setter":
		return emit.Setter{}, nil
	case "hash":
		return emit.Hash{}, nil
	case "equality":
		return emit.Equality{}, nil
	case "write":
		formatters := make(map[ir.Type]string, len(p.Formatters))
		for typeName, fn := range p.Formatters {
			formatters[ir.Scalar(typeName)] = fn
		}
		return &emit.Write{Formatters: formatters, Overrides: p.Overrides}, nil
	default:
		return nil, fmt.Errorf("unknown member %q", name)
	}
}

// CanonicalPlugins returns the plugin chain configuration in the generic
// form accepted by ir.MarshalCanonical, for input fingerprints.
func (j *Job) CanonicalPlugins() []any {
	out := make([]any, len(j.Plugins))
	for i, p := range j.Plugins {
		members := p.Members
		if p.Kind == KindInst && len(members) == 0 {
			members = MemberNames
		}
		out[i] = map[string]any{
			"kind":       p.Kind,
			"members":    nonNil(members),
			"formatters": stringMap(p.Formatters),
			"overrides":  stringMap(p.Overrides),
			"allocator":  p.Allocator,
			"prefix":     p.Prefix,
			"builder":    p.Builder,
			"value":      p.Value,
			"types":      stringMap(p.Types),
		}
	}
	return out
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
