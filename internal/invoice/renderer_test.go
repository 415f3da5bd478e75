package invoice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomops/storefront/internal/invoice"
)

func TestRender_WritesDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "invoices")
	r := invoice.NewPDFRenderer(dir)

	path, err := r.Render("cs_test_123", decimal.RequireFromString("99.99"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "invoice_cs_test_123.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRender_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "invoices")
	r := invoice.NewPDFRenderer(dir)

	_, err := r.Render("cs_1", decimal.NewFromInt(5))
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRender_SameInputsSamePath(t *testing.T) {
	r := invoice.NewPDFRenderer(t.TempDir())

	first, err := r.Render("cs_same", decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	second, err := r.Render("cs_same", decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_WriteFailure(t *testing.T) {
	// A regular file where the output directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	r := invoice.NewPDFRenderer(blocker)
	_, err := r.Render("cs_fail", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, invoice.ErrRender)
}
