package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goldenOutput(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "render", "testdata", "golden", name+".golden"))
	require.NoError(t, err)
	return string(data)
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate_Arith(t *testing.T) {
	dir := copyArith(t)

	stdout, _, err := execute(t, "generate", filepath.Join(dir, "arith.yaml"))
	require.NoError(t, err)

	output := filepath.Join(dir, "arith.hpp")
	assert.Contains(t, stdout, "✓ Generated "+output+" (6 instruction(s))")
	assert.NotContains(t, stdout, "unresolved")
	assert.Equal(t, goldenOutput(t, "arith"), readOutput(t, output))
}

func TestGenerate_Full(t *testing.T) {
	dir := copyArith(t)

	_, _, err := execute(t, "generate", filepath.Join(dir, "full.yaml"))
	require.NoError(t, err)
	assert.Equal(t, goldenOutput(t, "full"), readOutput(t, filepath.Join(dir, "full.hpp")))
}

func TestGenerate_JSON(t *testing.T) {
	dir := copyArith(t)

	stdout, _, err := execute(t, "--format", "json", "generate", "--ledger", filepath.Join(dir, "runs.db"), filepath.Join(dir, "arith.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 6, resp.Data.Insts)
	assert.Len(t, resp.Data.IRHash, 64)
	assert.Len(t, resp.Data.TemplateHash, 64)
	assert.Len(t, resp.Data.InputsHash, 64)
	assert.Len(t, resp.Data.OutputHash, 64)
	assert.NotEmpty(t, resp.Data.RunID)
	assert.False(t, resp.Data.Skipped)
}

func TestGenerate_Echo(t *testing.T) {
	dir := copyArith(t)

	stdout, _, err := execute(t, "generate", "--echo", filepath.Join(dir, "arith.yaml"))
	require.NoError(t, err)
	assert.Contains(t, stdout, goldenOutput(t, "arith"))
}

func TestGenerate_EchoJSONGoesToStderr(t *testing.T) {
	dir := copyArith(t)

	stdout, stderr, err := execute(t, "--format", "json", "generate", "--echo", filepath.Join(dir, "arith.yaml"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "class AddInst final")

	// stdout still holds exactly one JSON document
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
}

func TestGenerate_Check(t *testing.T) {
	dir := copyArith(t)
	jobPath := filepath.Join(dir, "arith.yaml")
	output := filepath.Join(dir, "arith.hpp")

	// Missing output is stale.
	stdout, _, err := execute(t, "generate", "--check", jobPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeStale+"]")
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "--check must not write")

	_, _, err = execute(t, "generate", jobPath)
	require.NoError(t, err)

	stdout, _, err = execute(t, "generate", "--check", jobPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is up to date")

	// A hand edit makes it stale again.
	writeFile(t, output, readOutput(t, output)+"// edited\n")
	_, _, err = execute(t, "generate", "--check", jobPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGenerate_SkipUnchanged(t *testing.T) {
	dir := copyArith(t)
	jobPath := filepath.Join(dir, "arith.yaml")
	ledger := filepath.Join(dir, "runs.db")
	output := filepath.Join(dir, "arith.hpp")

	stdout, _, err := execute(t, "generate", "--ledger", ledger, "--skip-unchanged", jobPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Generated")

	stdout, _, err = execute(t, "generate", "--ledger", ledger, "--skip-unchanged", jobPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "unchanged, skipped")

	// The file on disk no longer matches the recorded output.
	writeFile(t, output, "// clobbered\n")
	stdout, _, err = execute(t, "generate", "--ledger", ledger, "--skip-unchanged", jobPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Generated")
	assert.Equal(t, goldenOutput(t, "arith"), readOutput(t, output))

	// A template change alters the inputs fingerprint.
	template := filepath.Join(dir, "arith.tmpl.hpp")
	writeFile(t, template, "// v2\n"+readOutput(t, template))
	stdout, _, err = execute(t, "generate", "--ledger", ledger, "--skip-unchanged", jobPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Generated")
	assert.Contains(t, readOutput(t, output), "// v2\n")
}

func TestGenerate_SkipUnchangedRequiresLedger(t *testing.T) {
	dir := copyArith(t)

	stdout, _, err := execute(t, "generate", "--skip-unchanged", filepath.Join(dir, "arith.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "--skip-unchanged requires --ledger")
}

func TestGenerate_UnresolvedPlaceholders(t *testing.T) {
	dir := copyArith(t)
	writeFile(t, filepath.Join(dir, "partial.tmpl.hpp"), "${builder}\n${insts}\n${extra}\n")
	writeFile(t, filepath.Join(dir, "partial.yaml"),
		"template: partial.tmpl.hpp\noutput: partial.hpp\nspecs: specs\nplugins:\n  - kind: builder\n")

	stdout, _, err := execute(t, "generate", filepath.Join(dir, "partial.yaml"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "unresolved: ${insts} ${extra}")
	assert.Contains(t, readOutput(t, filepath.Join(dir, "partial.hpp")), "\n${insts}\n${extra}\n")
}

func TestGenerate_SpecificationError(t *testing.T) {
	dir := copyArith(t)
	writeFile(t, filepath.Join(dir, "capi.yaml"),
		"template: full.tmpl.hpp\noutput: capi.hpp\nspecs: specs\nplugins:\n"+
			"  - kind: capi\n    prefix: arith\n    builder: arith::Builder\n    value: void*\n    types:\n      bool: bool\n")

	stdout, _, err := execute(t, "--format", "json", "generate", filepath.Join(dir, "capi.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeSpecification, resp.Error.Code)
	assert.Equal(t, map[string]string{"plugin": "capi", "inst": "ConstInt", "arg": "value"}, resp.Error.Details)

	_, statErr := os.Stat(filepath.Join(dir, "capi.hpp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_InvalidDescriptor(t *testing.T) {
	dir := copyArith(t)
	writeFile(t, filepath.Join(dir, "specs", "extra.cue"), "package arith\n\nir: value_type: \"\"\n")

	stdout, _, err := execute(t, "generate", filepath.Join(dir, "arith.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Validation failed")
}

func TestGenerate_CommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
		code  string
	}{
		{"missing job", func(t *testing.T, dir string) string {
			return filepath.Join(dir, "missing.yaml")
		}, ErrCodeInvalidJob},
		{"invalid job", func(t *testing.T, dir string) string {
			path := filepath.Join(dir, "bad.yaml")
			writeFile(t, path, "template: arith.tmpl.hpp\noutput: o.hpp\nspecs: specs\nplugins:\n  - kind: rust\n")
			return path
		}, ErrCodeInvalidJob},
		{"missing template", func(t *testing.T, dir string) string {
			path := filepath.Join(dir, "notmpl.yaml")
			writeFile(t, path, "template: gone.hpp\noutput: o.hpp\nspecs: specs\nplugins:\n  - kind: builder\n")
			return path
		}, ErrCodeTemplate},
		{"missing specs", func(t *testing.T, dir string) string {
			path := filepath.Join(dir, "nospecs.yaml")
			writeFile(t, path, "template: arith.tmpl.hpp\noutput: o.hpp\nspecs: nowhere\nplugins:\n  - kind: builder\n")
			return path
		}, ErrCodeNotFound},
		{"unwritable output", func(t *testing.T, dir string) string {
			path := filepath.Join(dir, "nodir.yaml")
			writeFile(t, path, "template: arith.tmpl.hpp\noutput: missing/o.hpp\nspecs: specs\nplugins:\n  - kind: builder\n")
			return path
		}, ErrCodeWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := copyArith(t)
			stdout, _, err := execute(t, "generate", tt.setup(t, dir))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error ["+tt.code+"]")
		})
	}
}
