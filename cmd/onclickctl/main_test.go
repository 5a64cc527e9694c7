package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestHandleSanitize(t *testing.T) {
	out, errOut, err := run(t, "handle", "sanitize", "Green Fund!")
	require.NoError(t, err)
	assert.Equal(t, "greenfund\n", out)
	assert.Empty(t, errOut)

	out, errOut, err = run(t, "handle", "sanitize", "Admin")
	require.NoError(t, err)
	assert.Equal(t, "admin\n", out)
	assert.Contains(t, errOut, "reserved")
}

func TestHandleCheckReportsReserved(t *testing.T) {
	out, _, err := run(t, "--env-file", "", "--backend", "memory", "handle", "check", "support")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "unavailable", res["status"])
	assert.Equal(t, "reserved", res["reason"])
}

func TestDraftShowMissing(t *testing.T) {
	_, _, err := run(t, "--env-file", "", "--backend", "memory", "draft", "show", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")
}

func TestShareUsesBase(t *testing.T) {
	out, _, err := run(t, "--env-file", "", "--backend", "memory", "share", "greenfund", "--base", "https://onclick.test")
	require.NoError(t, err)

	var links map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &links))
	assert.Equal(t, "https://onclick.test/greenfund", links["url"])
	assert.Equal(t, "/greenfund/qr.png", links["qr"])
}

func TestQRWritesPNG(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "page.png")
	out, _, err := run(t, "qr", "greenfund", "--base", "https://onclick.test", "-o", dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wrote "))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, _, err = run(t, "qr", "ab", "--base", "https://onclick.test", "-o", dest)
	assert.Error(t, err)
}
