package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgen/internal/ecgen"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestCountCommand(t *testing.T) {
	out, err := execute(t, "count", "--p", "17", "--a", "6", "--format", "json")
	require.NoError(t, err)
	var rep ecgen.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "count", rep.Command)
	assert.Equal(t, "10", rep.GroupOrder)
	assert.True(t, rep.Cyclic)
}

func TestPointsCommand(t *testing.T) {
	out, err := execute(t, "points", "--p", "5", "--a", "1")
	require.NoError(t, err)
	assert.Equal(t, "-1 -1\n0 0\n2 0\n3 0\n", out)
}

func TestGenerateCommand(t *testing.T) {
	out, err := execute(t, "generate", "--bits", "8", "--seed", "3", "--max-attempts", "20", "--format", "json")
	require.NoError(t, err)
	var rep ecgen.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "generate", rep.Command)
	assert.True(t, rep.Cyclic)
	assert.Equal(t, rep.GroupOrder, rep.BaseOrder)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("p: 17\na: 6\nformat: yaml\n"), 0o600))
	out, err := execute(t, "count", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "groupOrder: \"10\"")
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "count", "--a", "6")
	assert.EqualError(t, err, "missing required --p")

	_, err = execute(t, "points", "--p", "17", "--a", "6", "extra")
	assert.Error(t, err)

	_, err = execute(t, "generate", "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "count", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
