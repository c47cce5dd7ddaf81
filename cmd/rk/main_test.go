package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordkeep/internal/server"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "recordkeep.yml"), "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusClassifyJSON(t *testing.T) {
	out, err := runCLI(t, "status", "classify", "running", "--progress", "51", "--json")
	require.NoError(t, err)
	var res server.ClassifyResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, server.ClassifyResponse{State: "running", Category: "almost done", Display: "Running: 51%"}, res)
}

func TestStatusClassifyTable(t *testing.T) {
	out, err := runCLI(t, "status", "classify", "failed", "--code", "-4", "--message", "disk full", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Failed [-4]: disk full")
	assert.Contains(t, out, "critical error")

	_, err = runCLI(t, "status", "classify", "running", "--progress", "101")
	require.Error(t, err)
}

func TestRecordImportFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: Alice
  contact: alice@example.com
  record_id: 41
  roles: [admin, user]
- name: Bob
  contact: bob@example.com
`), 0o644))

	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			out, err := runCLI(t, "record", "import", path, "--backend", backend, "--json")
			require.NoError(t, err)
			var items []server.RecordResponse
			require.NoError(t, json.Unmarshal([]byte(out), &items))
			require.Len(t, items, 2)
			byName := map[string]server.RecordResponse{}
			for _, r := range items {
				byName[r.Name] = r
			}
			assert.Equal(t, []string{"admin", "user"}, byName["Alice"].Roles)
			assert.NotEqual(t, byName["Alice"].ID, byName["Bob"].ID)
			assert.Equal(t, uint64(41), byName["Alice"].RecordID)
			assert.Zero(t, byName["Bob"].RecordID)
		})
	}
}

func TestRecordDemoTable(t *testing.T) {
	out, err := runCLI(t, "record", "demo", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "admin,user")
	assert.Contains(t, out, "team=core")
	assert.Contains(t, out, "1001")
}

func TestConfigInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordkeep.yml")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--config", path})
	require.NoError(t, cmd.Execute())

	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "check", "--config", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "backend=memory")
	assert.NotContains(t, out.String(), "schema=")

	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "check", "--config", path, "--backend", "sqlite"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "backend=sqlite")
	assert.Contains(t, out.String(), "schema=1")
}

func TestFormatAttributesSorted(t *testing.T) {
	assert.Equal(t, "a=1 b=2", formatAttributes(map[string]string{"b": "2", "a": "1"}))
	assert.Equal(t, "", formatAttributes(nil))
}
