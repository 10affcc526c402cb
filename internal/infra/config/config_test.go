package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := LoadFiles()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Fees.FreeListings)
	assert.Equal(t, int64(500000), cfg.Fees.Monthly.Amount)
	assert.Equal(t, int64(6000000), cfg.Fees.Yearly.Amount)
	assert.Equal(t, int64(300000), cfg.Fees.Laundry.Amount)
	assert.Equal(t, int64(200000), cfg.Fees.Food.Amount)
	assert.Equal(t, "NGN", cfg.Fees.Monthly.Currency)
	assert.Equal(t, "*/15 * * * *", cfg.Sweep.Cron)
	assert.Equal(t, 72*time.Hour, cfg.Sweep.ReminderWindow)
	assert.Equal(t, int64(5<<20), cfg.Files.MaxUploadBytes())
	assert.False(t, cfg.S3.Enabled())
	assert.NotEmpty(t, cfg.Auth.SessionSecret)
}

func TestLegacyListingFeeAlias(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LISTING_FEE", "7500.50")
	cfg, err := LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, int64(750050), cfg.Fees.Monthly.Amount)
	assert.Equal(t, int64(9006600), cfg.Fees.Yearly.Amount)

	t.Setenv("LISTING_FEE_MONTHLY", "4000")
	t.Setenv("LISTING_FEE_YEARLY", "40000")
	cfg, err = LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, int64(400000), cfg.Fees.Monthly.Amount)
	assert.Equal(t, int64(4000000), cfg.Fees.Yearly.Amount)
}

func TestInvalidValuesAreReported(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LAUNDRY_PRICE", "cheap")
	_, err := LoadFiles()
	assert.ErrorContains(t, err, "LAUNDRY_PRICE")

	t.Setenv("LAUNDRY_PRICE", "")
	t.Setenv("SWEEP_INTERVAL", "soon")
	_, err = LoadFiles()
	assert.ErrorContains(t, err, "SWEEP_INTERVAL")
}

func TestSessionSecretRequiredOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadFiles()
	assert.Error(t, err)
}

func TestDotenvFileIsOptional(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FREE_LISTINGS=3\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FREE_LISTINGS") })

	cfg, err := LoadFiles(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Fees.FreeListings)
}
