package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dariomontes/vendortax-backend/pkg/enums"
)

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestServiceRemitterModeDefaultsToMarketplace(t *testing.T) {
	svc, err := NewService(setupSettingsTestDB(t))
	require.NoError(t, err)

	mode, err := svc.RemitterMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, enums.RemitterMarketplace, mode)
}

func TestServiceRemitterModeReadsStoredValue(t *testing.T) {
	svc, err := NewService(setupSettingsTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, KeyRemitterMode, "vendor"))

	mode, err := svc.RemitterMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.RemitterVendor, mode)
}

func TestServiceReportingEnabled(t *testing.T) {
	svc, err := NewService(setupSettingsTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	enabled, err := svc.ReportingEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, svc.Set(ctx, KeyReportingEnabled, "true"))
	enabled, err = svc.ReportingEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestServiceReportingStartDateRoundTrip(t *testing.T) {
	svc, err := NewService(setupSettingsTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	watermark, err := svc.ReportingStartDate(ctx)
	require.NoError(t, err)
	assert.Nil(t, watermark)

	at := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.SetReportingStartDate(ctx, at))

	watermark, err = svc.ReportingStartDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, watermark)
	assert.True(t, watermark.Equal(at))
}

func TestServiceStoreBaseAddress(t *testing.T) {
	svc, err := NewService(setupSettingsTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	addr, err := svc.StoreBaseAddress(ctx)
	require.NoError(t, err)
	assert.Nil(t, addr)

	raw := `{"street":"1 Market St","city":"San Francisco","state":"CA","postal_code":"94107","country":"US"}`
	require.NoError(t, svc.Set(ctx, KeyStoreBaseAddress, raw))

	addr, err = svc.StoreBaseAddress(ctx)
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "CA", addr.State)
	assert.Equal(t, "94107", addr.PostalCode)
}
