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

	"github.com/HerbHall/stampd/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stampd "))
}

func TestCreateStampCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	hash := testutil.Hash("cli")

	out, err := run(t, "create-stamp", "--dsn", "cli.db", "--hash", hash)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{
		"id":       "1",
		"protocol": "opentimestamps",
		"type":     "sha256",
		"hash":     hash,
	}, got)

	_, err = run(t, "create-stamp", "--dsn", "cli.db", "--hash", hash, "--type", "md5")
	assert.ErrorContains(t, err, "type")

	_, err = run(t, "create-stamp", "--dsn", "cli.db")
	assert.Error(t, err, "--hash is required")
}

func TestSeedCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	doc := "stamps:\n  - hash: " + testutil.Hash("a") + "\n  - hash: " + testutil.Hash("b") + "\n    type: sha256\n"
	require.NoError(t, os.WriteFile("seed.yaml", []byte(doc), 0o600))

	out, err := run(t, "seed", "--dsn", "seed.db", "seed.yaml")
	require.NoError(t, err)
	assert.Equal(t, "created 2 stamps\n", out)

	out, err = run(t, "create-stamp", "--dsn", "seed.db", "--hash", testutil.Hash("c"))
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "3"`)

	require.NoError(t, os.WriteFile("bad.yaml", []byte("stamps:\n  - type: sha256\n"), 0o600))
	_, err = run(t, "seed", "--dsn", "seed.db", "bad.yaml")
	assert.Error(t, err)
}

func TestBackupRestoreCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "create-stamp", "--dsn", "stampd.db", "--hash", testutil.Hash("keep"))
	require.NoError(t, err)

	out, err := run(t, "backup", "--dsn", "stampd.db", "-o", "b.tar.gz")
	require.NoError(t, err)
	assert.Contains(t, out, "b.tar.gz")

	restored := "restored"
	out, err = run(t, "restore", "-i", "b.tar.gz", "--data-dir", restored)
	require.NoError(t, err)
	assert.Contains(t, out, "1 files")
	_, err = os.Stat(filepath.Join(restored, "stampd.db"))
	require.NoError(t, err)

	_, err = run(t, "backup", "--driver", "postgres", "--dsn", "postgres://x")
	assert.ErrorContains(t, err, "sqlite")
}
