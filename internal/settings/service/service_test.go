package service

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billfold/internal/clock"
	"github.com/smallbiznis/billfold/internal/config"
	"github.com/smallbiznis/billfold/internal/settings/domain"
	"github.com/smallbiznis/billfold/internal/settings/repository"
	"github.com/smallbiznis/billfold/pkg/db"
	"github.com/smallbiznis/billfold/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Settings{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fakeClock := clock.NewFakeClock(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		Clock:     fakeClock,
		Config:    config.Config{DefaultCurrency: "USD"},
		Invoicing: config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
		Repo:      repository.Provide(),
	}), fakeClock
}

func ptr[T any](v T) *T { return &v }

func TestGetReturnsDefaultsBeforeFirstSave(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantctx.WithTenantID(context.Background(), "tenant-a")

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV", got.InvoicePrefix)
	assert.Equal(t, 30, got.PaymentTermsDays)
	assert.Equal(t, "USD", got.Currency)
	assert.Nil(t, got.HourlyRate)

	_, err = svc.Get(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInvalidTenant))
}

func TestUpdateIsPartialAndTenantScoped(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := tenantctx.WithTenantID(context.Background(), "tenant-a")

	saved, err := svc.Update(ctx, domain.UpdateSettingsRequest{
		BusinessName:  ptr("  Studio North "),
		InvoicePrefix: ptr("SN"),
		Currency:      ptr("eur"),
		HourlyRate:    ptr(decimal.RequireFromString("85.50")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Studio North", saved.BusinessName)
	assert.Equal(t, "SN", saved.InvoicePrefix)
	assert.Equal(t, "EUR", saved.Currency)
	assert.Equal(t, 30, saved.PaymentTermsDays)
	created := saved.CreatedAt

	fakeClock.Advance(time.Hour)
	saved, err = svc.Update(ctx, domain.UpdateSettingsRequest{PaymentTermsDays: ptr(14)})
	require.NoError(t, err)
	assert.Equal(t, "SN", saved.InvoicePrefix)
	assert.Equal(t, 14, saved.PaymentTermsDays)
	assert.True(t, saved.CreatedAt.Equal(created))
	assert.True(t, saved.UpdatedAt.After(created))

	got, err := svc.ForTenant(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "Studio North", got.BusinessName)
	assert.Equal(t, 14, got.PaymentTermsDays)
	require.NotNil(t, got.HourlyRate)
	assert.True(t, got.HourlyRate.Equal(decimal.RequireFromString("85.5")))

	other, err := svc.ForTenant(context.Background(), "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, "INV", other.InvoicePrefix)
	assert.Empty(t, other.BusinessName)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantctx.WithTenantID(context.Background(), "tenant-a")

	cases := map[string]domain.UpdateSettingsRequest{
		"prefix too long":   {InvoicePrefix: ptr("ABCDEFGHIJK")},
		"prefix empty":      {InvoicePrefix: ptr(" ")},
		"prefix symbols":    {InvoicePrefix: ptr("IN-V")},
		"terms zero":        {PaymentTermsDays: ptr(0)},
		"terms over a year": {PaymentTermsDays: ptr(366)},
		"currency":          {Currency: ptr("EURO")},
		"logo":              {LogoURL: ptr("not a url")},
		"negative rate":     {HourlyRate: ptr(decimal.RequireFromString("-1"))},
		"sub-cent rate":     {HourlyRate: ptr(decimal.RequireFromString("10.005"))},
	}
	for name, req := range cases {
		_, err := svc.Update(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrInvalidField), "%s: %v", name, err)
	}

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV", got.InvoicePrefix)

	saved, err := svc.Update(ctx, domain.UpdateSettingsRequest{InvoicePrefix: ptr("ABCDEFGHIJ"), LogoURL: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", saved.InvoicePrefix)
}
