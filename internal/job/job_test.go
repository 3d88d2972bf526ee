package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lwir/internal/emit"
	"github.com/roach88/lwir/internal/ir"
	"github.com/roach88/lwir/internal/testutil"
)

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ArithJob(t *testing.T) {
	dir := testutil.ArithDir()
	j, err := Load(filepath.Join(dir, "arith.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "arith.tmpl.hpp"), j.Template)
	assert.Equal(t, filepath.Join(dir, "arith.hpp"), j.Output)
	assert.Equal(t, filepath.Join(dir, "specs"), j.Specs)
	require.Len(t, j.Plugins, 2)
	assert.Equal(t, KindInst, j.Plugins[0].Kind)
	assert.Equal(t, []string{"constructor", "getter", "write"}, j.Plugins[0].Members)
	assert.Equal(t, KindBuilder, j.Plugins[1].Kind)
}

func TestLoad_AbsolutePathsKept(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "out.hpp")
	path := writeJob(t, "template: t.hpp\noutput: "+abs+"\nspecs: specs\nplugins:\n  - kind: builder\n")

	j, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, abs, j.Output)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "t.hpp"), j.Template)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "template: t\noutput: o\nspecs: s\nplugin:\n  - kind: inst\n", "plugin"},
		{"unknown plugin field", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: inst\n    member: [hash]\n", "member"},
		{"malformed", "template: [\n", "failed to parse YAML"},
		{"missing template", "output: o\nspecs: s\nplugins:\n  - kind: inst\n", "template is required"},
		{"missing output", "template: t\nspecs: s\nplugins:\n  - kind: inst\n", "output is required"},
		{"missing specs", "template: t\noutput: o\nplugins:\n  - kind: inst\n", "specs is required"},
		{"no plugins", "template: t\noutput: o\nspecs: s\n", "plugins list is required"},
		{"missing kind", "template: t\noutput: o\nspecs: s\nplugins:\n  - allocator: a\n", "plugins[0]: kind is required"},
		{"unknown kind", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: python\n", `unknown plugin kind "python"`},
		{"unknown member", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: inst\n    members: [dump]\n", `unknown member "dump"`},
		{"duplicate member", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: inst\n    members: [hash, hash]\n", `member "hash" listed twice`},
		{"option of other kind", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: builder\n    prefix: x\n", "builder plugin accepts only allocator"},
		{"inst with allocator", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: inst\n    allocator: a\n", "inst plugin accepts only"},
		{"capi with members", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: capi\n    prefix: p\n    builder: B\n    value: v\n    members: [hash]\n", "capi plugin accepts only"},
		{"capi incomplete", "template: t\noutput: o\nspecs: s\nplugins:\n  - kind: builder\n  - kind: capi\n    prefix: p\n", "plugins[1]: capi plugin requires prefix, builder and value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeJob(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read job file")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildPlugins_Full(t *testing.T) {
	j, err := Load(filepath.Join(testutil.ArithDir(), "full.yaml"))
	require.NoError(t, err)

	plugins, err := j.BuildPlugins()
	require.NoError(t, err)
	require.Len(t, plugins, 3)

	inst, ok := plugins[0].(*emit.InstPlugin)
	require.True(t, ok)
	require.Len(t, inst.Members, len(MemberNames))
	for i, m := range inst.Members {
		assert.Equal(t, MemberNames[i], m.Name())
	}
	write, ok := inst.Members[5].(*emit.Write)
	require.True(t, ok)
	assert.Equal(t, map[ir.Type]string{ir.Scalar("bool"): "write_bool"}, write.Formatters)
	assert.Contains(t, write.Overrides, "ConstInt")

	builder, ok := plugins[1].(*emit.BuilderPlugin)
	require.True(t, ok)
	assert.Equal(t, "arena_alloc", builder.Allocator)

	capi, ok := plugins[2].(*emit.CAPIPlugin)
	require.True(t, ok)
	assert.Equal(t, "arith", capi.Prefix)
	assert.Equal(t, "arith::Builder", capi.Builder)
	assert.Equal(t, map[ir.Type]string{
		ir.SingleValue():  "void*",
		ir.Scalar("int"):  "int64_t",
		ir.Scalar("bool"): "bool",
	}, capi.Types)
}

func TestBuildPlugins_MemberOrderFromJob(t *testing.T) {
	j := &Job{Plugins: []PluginConfig{{Kind: KindInst, Members: []string{"write", "constructor"}}}}
	plugins, err := j.BuildPlugins()
	require.NoError(t, err)

	inst := plugins[0].(*emit.InstPlugin)
	require.Len(t, inst.Members, 2)
	assert.Equal(t, "write", inst.Members[0].Name())
	assert.Equal(t, "constructor", inst.Members[1].Name())
}

func TestCanonicalPlugins(t *testing.T) {
	implicit := &Job{Plugins: []PluginConfig{{Kind: KindInst}}}
	explicit := &Job{Plugins: []PluginConfig{{Kind: KindInst, Members: MemberNames}}}

	a, err := ir.MarshalCanonical(implicit.CanonicalPlugins())
	require.NoError(t, err)
	b, err := ir.MarshalCanonical(explicit.CanonicalPlugins())
	require.NoError(t, err)

	// Spelling out the default members does not change the fingerprint.
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"members":["constructor","getter","setter","hash","equality","write"]`)

	other := &Job{Plugins: []PluginConfig{{Kind: KindInst, Members: []string{"write"}}}}
	c, err := ir.MarshalCanonical(other.CanonicalPlugins())
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(c))
}

func TestCanonicalPlugins_MapOrderIndependent(t *testing.T) {
	j := &Job{Plugins: []PluginConfig{{Kind: KindCAPI, Prefix: "p", Builder: "B", Value: "v",
		Types: map[string]string{"int": "int64_t", "bool": "bool", "float": "double"}}}}

	first, err := ir.MarshalCanonical(j.CanonicalPlugins())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ir.MarshalCanonical(j.CanonicalPlugins())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}
