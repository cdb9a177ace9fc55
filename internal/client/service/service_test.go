package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/smallbiznis/billfold/internal/client/domain"
	"github.com/smallbiznis/billfold/internal/client/repository"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/pkg/db"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
	"github.com/smallbiznis/billfold/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Client{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantctx.WithTenantID(context.Background(), "tenant-a")

	created, err := svc.Create(ctx, domain.CreateClientRequest{
		Name:  "  Acme Corp ",
		Email: "Billing@Acme.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", created.Name)
	assert.Equal(t, "billing@acme.test", created.Email)

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	other := tenantctx.WithTenantID(context.Background(), "tenant-b")
	_, err = svc.GetByID(other, created.ID.String())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantctx.WithTenantID(context.Background(), "tenant-a")

	_, err := svc.Create(ctx, domain.CreateClientRequest{Name: "", Email: "a@b.test"})
	assert.True(t, errors.Is(err, domain.ErrInvalidName))

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "A", Email: "not-an-email"})
	assert.True(t, errors.Is(err, domain.ErrInvalidEmail))

	_, err = svc.Create(context.Background(), domain.CreateClientRequest{Name: "A", Email: "a@b.test"})
	assert.True(t, errors.Is(err, domain.ErrInvalidTenant))
}

func TestListPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantctx.WithTenantID(context.Background(), "tenant-a")

	for _, name := range []string{"One", "Two", "Three"} {
		_, err := svc.Create(ctx, domain.CreateClientRequest{Name: name, Email: "x@y.test"})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListClientRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Clients, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Three", first.Clients[0].Name)

	second, err := svc.List(ctx, domain.ListClientRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Clients, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "One", second.Clients[0].Name)
}
