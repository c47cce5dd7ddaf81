package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordkeep/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
store:
  backend: sqlite
  name: people
  first_id: 100
seed:
  - name: Alice
    contact: alice@example.com
    roles: [admin, user]
    attributes: {team: core}
`))
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, uint64(100), cfg.Store.FirstID)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	require.Len(t, cfg.Seed, 1)
	assert.Equal(t, []string{"admin", "user"}, cfg.Seed[0].Roles)
	assert.Equal(t, "core", cfg.Seed[0].Attributes["team"])
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"backend":   "store: {backend: disk}",
		"base path": "server: {base_path: v0}",
		"log level": "log: {level: loud}",
		"seed name": "seed: [{contact: x@y}]",
		"sql name":  "store: {backend: sqlite, name: ' '}",
		"yaml":      "server: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(config.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = config.Load(config.Path(dir))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "recordkeep.yml"), []byte("log: {level: debug}\n"), 0o644))
	cfg, err = config.Load(config.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseSeed(t *testing.T) {
	seed, err := config.ParseSeed([]byte(`[{"name":"Bob","contact":"b@x","roles":["user"]}]`))
	require.NoError(t, err)
	require.Len(t, seed, 1)
	assert.Equal(t, "Bob", seed[0].Name)

	_, err = config.ParseSeed([]byte(`- contact: nobody`))
	require.Error(t, err)
}
