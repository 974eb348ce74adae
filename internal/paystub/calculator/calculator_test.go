package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestCalculateFederalOnlyRegion(t *testing.T) {
	res, err := ForRegion(taxdomain.DefaultTable(), "tx", nil, Input{
		HourlyRate:    dec("20"),
		RegularHours:  dec("40"),
		OvertimeHours: dec("5"),
	})
	require.NoError(t, err)

	assertDec(t, "800", res.RegularPay)
	assertDec(t, "150", res.OvertimePay)
	assertDec(t, "950", res.GrossPayPeriod)
	assertDec(t, "158.175", res.TotalTaxPeriod)
	assertDec(t, "791.825", res.NetPayPeriod)

	require.Len(t, res.Taxes, 3)
	assert.Equal(t, taxdomain.FederalIncomeTax, res.Taxes[0].Name)
	assert.Equal(t, taxdomain.SocialSecurityTax, res.Taxes[1].Name)
	assert.Equal(t, taxdomain.MedicareTax, res.Taxes[2].Name)
}

func TestCalculateScenarioWithCombinedRate(t *testing.T) {
	res, err := Calculate(Input{
		HourlyRate:    dec("20"),
		RegularHours:  dec("40"),
		OvertimeHours: dec("5"),
		Lines: []taxdomain.Line{
			{Name: taxdomain.FederalIncomeTax, Rate: dec("0.088")},
			{Name: taxdomain.SocialSecurityTax, Rate: dec("0.062")},
			{Name: taxdomain.MedicareTax, Rate: dec("0.0145")},
		},
	})
	require.NoError(t, err)

	assertDec(t, "950", res.GrossPayPeriod)
	assertDec(t, "156.275", res.TotalTaxPeriod)
	assertDec(t, "793.725", res.NetPayPeriod)
}

func TestCalculateSumsAndAccumulates(t *testing.T) {
	table := taxdomain.DefaultTable()
	prior := Totals{Regular: dec("1000"), Overtime: dec("250.5"), TotalTaxes: dec("99")}

	res, err := ForRegion(table, "CO", nil, Input{
		HourlyRate:    dec("18.75"),
		RegularHours:  dec("37.5"),
		OvertimeHours: dec("2.25"),
		Prior:         prior,
	})
	require.NoError(t, err)

	sum := decimal.Zero
	sumYTD := decimal.Zero
	for _, row := range res.Taxes {
		assert.True(t, row.Amount.Equal(res.GrossPayPeriod.Mul(row.Rate)))
		assert.True(t, row.YTDAmount.Equal(res.GrossPayYTD.Mul(row.Rate)))
		sum = sum.Add(row.Amount)
		sumYTD = sumYTD.Add(row.YTDAmount)
	}
	assert.True(t, sum.Equal(res.TotalTaxPeriod))
	assert.True(t, res.NetPayPeriod.Add(res.TotalTaxPeriod).Equal(res.GrossPayPeriod))

	expectedGross := dec("18.75").Mul(dec("37.5")).Add(dec("18.75").Mul(dec("1.5")).Mul(dec("2.25")))
	assert.True(t, expectedGross.Equal(res.GrossPayPeriod))

	assert.True(t, res.YTD.Regular.Equal(prior.Regular.Add(res.RegularPay)))
	assert.True(t, res.YTD.Overtime.Equal(prior.Overtime.Add(res.OvertimePay)))
	assert.True(t, res.GrossPayYTD.Equal(res.YTD.Gross()))
	assert.True(t, res.YTD.TotalTaxes.Equal(sumYTD))
	assert.Len(t, res.TaxYTD(), 6)
}

func TestCalculateSelectionOrderAndEmptySelection(t *testing.T) {
	table := taxdomain.DefaultTable()

	res, err := ForRegion(table, "IL", []string{"CHICAGO Local Tax", taxdomain.MedicareTax}, Input{
		HourlyRate:   dec("10"),
		RegularHours: dec("10"),
	})
	require.NoError(t, err)
	require.Len(t, res.Taxes, 2)
	assert.Equal(t, taxdomain.MedicareTax, res.Taxes[0].Name)
	assert.Equal(t, "CHICAGO Local Tax", res.Taxes[1].Name)

	res, err = ForRegion(table, "IL", []string{}, Input{
		HourlyRate:   dec("10"),
		RegularHours: dec("10"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Taxes)
	assertDec(t, "0", res.TotalTaxPeriod)
	assertDec(t, "100", res.NetPayPeriod)
	assertDec(t, "0", res.YTD.TotalTaxes)
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	table := taxdomain.DefaultTable()
	base := Input{HourlyRate: dec("20"), RegularHours: dec("40")}

	_, err := ForRegion(table, "ZZ", nil, base)
	assert.ErrorIs(t, err, taxdomain.ErrInvalidRegion)

	_, err = ForRegion(table, "TX", []string{"CO PFML"}, base)
	assert.ErrorIs(t, err, taxdomain.ErrInvalidTaxLine)

	in := base
	in.RegularHours = decimal.Zero
	_, err = Calculate(in)
	assert.ErrorIs(t, err, ErrInvalidRegularHours)

	in = base
	in.OvertimeHours = dec("-1")
	_, err = Calculate(in)
	assert.ErrorIs(t, err, ErrInvalidOvertimeHours)

	in = base
	in.HourlyRate = decimal.Zero
	_, err = Calculate(in)
	assert.ErrorIs(t, err, ErrInvalidHourlyRate)
}

func TestCalculateMonotonicOverPeriods(t *testing.T) {
	table := taxdomain.DefaultTable()
	prior := Totals{Regular: decimal.Zero, Overtime: decimal.Zero, TotalTaxes: decimal.Zero}
	regularSum, overtimeSum := decimal.Zero, decimal.Zero

	for i := 0; i < 5; i++ {
		res, err := ForRegion(table, "CO", nil, Input{
			HourlyRate:    dec("22"),
			RegularHours:  dec("40"),
			OvertimeHours: decimal.NewFromInt(int64(i)),
			Prior:         prior,
		})
		require.NoError(t, err)

		assert.True(t, res.YTD.Regular.GreaterThanOrEqual(prior.Regular))
		assert.True(t, res.YTD.Overtime.GreaterThanOrEqual(prior.Overtime))
		assert.True(t, res.YTD.TotalTaxes.GreaterThanOrEqual(prior.TotalTaxes))

		regularSum = regularSum.Add(res.RegularPay)
		overtimeSum = overtimeSum.Add(res.OvertimePay)
		assert.True(t, res.YTD.Regular.Equal(regularSum))
		assert.True(t, res.YTD.Overtime.Equal(overtimeSum))
		prior = res.YTD
	}

	assertDec(t, "4400", prior.Regular)
	assertDec(t, "330", prior.Overtime)
}
