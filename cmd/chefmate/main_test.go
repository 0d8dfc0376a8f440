package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "chefmate version "))
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", "start", "over")
	require.NoError(t, err)

	var in domain.Intent
	require.NoError(t, json.Unmarshal([]byte(out), &in))
	assert.Equal(t, domain.IntentReset, in.Kind)
}

func TestCatalogValidate(t *testing.T) {
	out, err := run(t, "catalog", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog is valid!")
	assert.Contains(t, out, "digest: ")
}

func TestSessionCommands(t *testing.T) {
	dir := t.TempDir()
	store := []string{"--store", "file", "--store-path", dir}

	out, err := run(t, append([]string{"session", "ls"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "No stored sessions found.")

	_, err = run(t, append([]string{"session", "inspect", "missing"}, store...)...)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = run(t, append([]string{"session", "rm"}, store...)...)
	assert.Error(t, err, "rm needs IDs or --all")
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "version", "--store", "sqlite")
	assert.ErrorContains(t, err, "unknown store driver")
}
