package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadTaxTableFallsBackToBuiltIn(t *testing.T) {
	holder, err := LoadTaxTable(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"CO", "IL", "TX"}, holder.Table().Regions())
}

func TestLoadTaxTableFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
taxrates:
  federal:
    - name: Federal Income Tax
      rate: 0.1
  regions:
    NV: []
    ny:
      - name: NY State Tax
        rate: 0.05
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taxrates.yml"), []byte(content), 0o600))

	holder, err := LoadTaxTable(zap.NewNop(), dir)
	require.NoError(t, err)

	table := holder.Table()
	assert.Equal(t, []string{"NV", "NY"}, table.Regions())

	rates, err := table.Lookup("ny")
	require.NoError(t, err)
	require.Len(t, rates.Lines, 2)
	assert.Equal(t, "Federal Income Tax", rates.Lines[0].Name)
	assert.True(t, rates.Lines[1].Rate.Equal(decimal.RequireFromString("0.05")))
}

func TestLoadTaxTableRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	content := `
taxrates:
  federal: []
  regions:
    TX: []
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taxrates.yml"), []byte(content), 0o600))

	_, err := LoadTaxTable(zap.NewNop(), dir)
	assert.ErrorIs(t, err, taxdomain.ErrEmptyFederal)
}

func TestTaxTableConfigRejectsRateOutOfRange(t *testing.T) {
	cfg := TaxTableConfig{
		Federal: []TaxLineConfig{{Name: "Federal Income Tax", Rate: 1.2}},
		Regions: map[string][]TaxLineConfig{"TX": {}},
	}

	_, err := cfg.Build()
	assert.ErrorIs(t, err, taxdomain.ErrInvalidTaxRate)
}
