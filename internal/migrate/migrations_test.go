package migrate_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordkeep/internal/db"
	"recordkeep/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Name: "migrate-" + uuid.NewString()})
	require.NoError(t, err)
	defer conn.Close()

	v, err := migrate.Version(ctx, conn)
	require.Error(t, err, "schema_version should not exist before migrating")
	assert.Zero(t, v)

	require.NoError(t, migrate.Migrate(ctx, conn))
	require.NoError(t, migrate.Migrate(ctx, conn))

	latest, err := migrate.Latest()
	require.NoError(t, err)
	v, err = migrate.Version(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, latest, v)
	assert.Equal(t, 1, latest)

	var rows int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&rows))
	assert.Equal(t, 1, rows)

	_, err = conn.ExecContext(ctx, `INSERT INTO records(kind,id,payload,created_at) VALUES ('t',1,'{}','now')`)
	require.NoError(t, err)
}
