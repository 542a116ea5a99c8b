package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/coupons"
	"github.com/artpar/coupons/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupImporter(t *testing.T) (*Importer, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewImporter(coupons.NewCreateCoupon(s, coupons.Options{}, nil), nil), s
}

func seedYAML(entries ...string) string {
	return "coupons:\n" + strings.Join(entries, "")
}

func entryYAML(code, discount string, expires time.Time) string {
	return fmt.Sprintf(`  - code: %q
    description: Seeded coupon
    discount_value: %q
    expiration_date: %s
    published: true
`, code, discount, expires.UTC().Format(time.RFC3339))
}

func TestImport_CreatesCoupons(t *testing.T) {
	im, s := setupImporter(t)
	future := time.Now().Add(30 * 24 * time.Hour)

	res, err := im.Import(context.Background(), strings.NewReader(seedYAML(
		entryYAML("ABC123", "10.50", future),
		entryYAML("XYZ-789", "0.5", future),
	)))
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, res)

	c, err := s.FindByCode(context.Background(), "XYZ789")
	require.NoError(t, err)
	assert.Equal(t, "0.5", c.Discount().String())
	assert.True(t, c.Published())
}

func TestImport_SkipsDuplicates(t *testing.T) {
	im, _ := setupImporter(t)
	future := time.Now().Add(time.Hour)
	doc := seedYAML(entryYAML("ABC123", "5", future))

	_, err := im.Import(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)

	res, err := im.Import(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 1}, res)
}

func TestImport_StopsOnInvalidEntry(t *testing.T) {
	im, _ := setupImporter(t)
	future := time.Now().Add(time.Hour)

	res, err := im.Import(context.Background(), strings.NewReader(seedYAML(
		entryYAML("ABC123", "5", future),
		entryYAML("BAD", "5", future),
		entryYAML("DEF456", "5", future),
	)))
	require.Error(t, err)
	assert.ErrorIs(t, err, coupon.ErrInvalidCode)
	assert.Contains(t, err.Error(), "entry 1 (BAD)")
	assert.Equal(t, Result{Created: 1}, res)
}

func TestImport_BadDiscount(t *testing.T) {
	im, _ := setupImporter(t)

	_, err := im.Import(context.Background(), strings.NewReader(seedYAML(
		entryYAML("ABC123", "ten", time.Now().Add(time.Hour)),
	)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discount_value")
}

func TestImport_UnknownField(t *testing.T) {
	im, _ := setupImporter(t)

	_, err := im.Import(context.Background(), strings.NewReader("coupons:\n  - code: ABC123\n    colour: red\n"))
	assert.ErrorContains(t, err, "decode seed file")
}

func TestImport_EmptyFile(t *testing.T) {
	im, _ := setupImporter(t)

	res, err := im.Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestImportFile(t *testing.T) {
	im, _ := setupImporter(t)
	path := filepath.Join(t.TempDir(), "coupons.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML(entryYAML("ABC123", "1", time.Now().Add(time.Hour)))), 0o600))

	res, err := im.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	_, err = im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "open seed file")
}
