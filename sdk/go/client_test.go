package recordkeepsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordkeep/internal/domain"
	"recordkeep/internal/ident"
	"recordkeep/internal/repo"
	"recordkeep/internal/server"
	recordkeepsdk "recordkeep/sdk/go"
)

func newClient(t *testing.T, secret string) *recordkeepsdk.Client {
	t.Helper()
	records := repo.NewMemoryStore(ident.NewCounter(0), repo.WithCloner(domain.Record.Clone))
	handler, err := server.New(server.Config{Records: records, Auth: server.AuthConfig{JWTSecret: secret}})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return recordkeepsdk.New(srv.URL)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, "")

	alice, err := c.CreateRecord(ctx, recordkeepsdk.NewRecord{
		RecordID: 500,
		Name:     "Alice",
		Contact:  "alice@example.com",
		Roles:    []string{"admin", "user"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), alice.ID)
	assert.Equal(t, uint64(500), alice.RecordID)

	got, ok, err := c.GetRecord(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "user"}, got.Roles)

	_, ok, err = c.GetRecord(ctx, 77)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.CreateRecord(ctx, recordkeepsdk.NewRecord{Name: "Bob"})
	require.NoError(t, err)
	n, err := c.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	list, err := c.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bob", list[1].Name)
	assert.Equal(t, uint64(1), list[1].ID)

	cl, err := c.Classify(ctx, recordkeepsdk.Status{State: "failed", Code: -1, Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "critical error", cl.Category)
	assert.Equal(t, "Failed [-1]: x", cl.Display)
}

func TestClientBearerToken(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, "sdk-secret")

	_, err := c.ListRecords(ctx)
	var apiErr *recordkeepsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	token, err := server.IssueToken("sdk-secret", "sdk")
	require.NoError(t, err)
	c.BearerToken = token
	_, err = c.ListRecords(ctx)
	require.NoError(t, err)
}
