package amortization

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPayment_RegularInstallment(t *testing.T) {
	paid := date(2024, 1, 15)
	res, err := ApplyPayment(dec("120000"), dec("12"), StatusActive, Payment{
		Date:   paid,
		Amount: dec("10661.85"),
		Method: "bank_transfer",
	})
	require.NoError(t, err)

	assertDecimal(t, "1200.00", res.Record.InterestDue)
	assertDecimal(t, "1200.00", res.Record.InterestPaid)
	assertDecimal(t, "9461.85", res.Record.PrincipalPaid)
	assertDecimal(t, "0", res.Record.InterestShortfall)
	assertDecimal(t, "0", res.Record.ExcessAmount)
	assertDecimal(t, "110538.15", res.RemainingBalance)
	assertDecimal(t, "110538.15", res.Record.RemainingBalanceAfter)
	assert.Equal(t, "bank_transfer", res.Record.PaymentMethod)
	assert.Equal(t, StatusActive, res.Status)
	require.NotNil(t, res.NextPaymentDate)
	assert.Equal(t, date(2024, 2, 15), *res.NextPaymentDate)
}

func TestApplyPayment_Underpayment(t *testing.T) {
	res, err := ApplyPayment(dec("120000"), dec("12"), StatusActive, Payment{
		Date:   date(2024, 1, 15),
		Amount: dec("500"),
	})
	require.NoError(t, err)

	assertDecimal(t, "500", res.Record.InterestPaid)
	assertDecimal(t, "700.00", res.Record.InterestShortfall)
	assertDecimal(t, "0", res.Record.PrincipalPaid)
	assertDecimal(t, "120000", res.RemainingBalance)
	assert.Equal(t, StatusActive, res.Status)
}

func TestApplyPayment_PayoffCompletesLoan(t *testing.T) {
	res, err := ApplyPayment(dec("1000"), dec("12"), StatusActive, Payment{
		Date:   date(2024, 1, 15),
		Amount: dec("1010.00"),
	})
	require.NoError(t, err)

	assertDecimal(t, "10.00", res.Record.InterestPaid)
	assertDecimal(t, "1000", res.Record.PrincipalPaid)
	assertDecimal(t, "0", res.RemainingBalance)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Nil(t, res.NextPaymentDate)
}

func TestApplyPayment_OverpaymentRecordsExcess(t *testing.T) {
	res, err := ApplyPayment(dec("1000"), dec("12"), StatusActive, Payment{
		Date:   date(2024, 1, 15),
		Amount: dec("1500"),
	})
	require.NoError(t, err)

	assertDecimal(t, "1000", res.Record.PrincipalPaid)
	assertDecimal(t, "490.00", res.Record.ExcessAmount)
	assertDecimal(t, "0", res.RemainingBalance)
	assert.Equal(t, StatusCompleted, res.Status)
}

func TestApplyPayment_ZeroRateHasNoInterest(t *testing.T) {
	res, err := ApplyPayment(dec("10000"), decimal.Zero, StatusActive, Payment{
		Date:   date(2024, 1, 15),
		Amount: dec("1000"),
	})
	require.NoError(t, err)

	assertDecimal(t, "0", res.Record.InterestDue)
	assertDecimal(t, "0", res.Record.InterestPaid)
	assertDecimal(t, "1000", res.Record.PrincipalPaid)
	assertDecimal(t, "9000", res.RemainingBalance)
}

func TestApplyPayment_DefaultedKeepsStatusWithoutNextDate(t *testing.T) {
	res, err := ApplyPayment(dec("5000"), dec("6"), StatusDefaulted, Payment{
		Date:   date(2024, 1, 15),
		Amount: dec("1000"),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDefaulted, res.Status)
	assert.Nil(t, res.NextPaymentDate)
	assertDecimal(t, "4025.00", res.RemainingBalance)
}

func TestApplyPayment_MonthEndNextDate(t *testing.T) {
	res, err := ApplyPayment(dec("5000"), dec("6"), StatusActive, Payment{
		Date:   date(2023, 1, 31),
		Amount: dec("100"),
	})
	require.NoError(t, err)

	require.NotNil(t, res.NextPaymentDate)
	assert.Equal(t, date(2023, 3, 3), *res.NextPaymentDate)
}

func TestApplyPayment_InvalidInput(t *testing.T) {
	_, err := ApplyPayment(dec("1000"), dec("10"), StatusActive, Payment{Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidPayment)

	_, err = ApplyPayment(dec("1000"), dec("10"), StatusActive, Payment{Amount: dec("-5")})
	assert.ErrorIs(t, err, ErrInvalidPayment)

	_, err = ApplyPayment(dec("-1"), dec("10"), StatusActive, Payment{Amount: dec("5")})
	assert.ErrorIs(t, err, ErrInvalidPayment)

	_, err = ApplyPayment(dec("1000"), dec("101"), StatusActive, Payment{Amount: dec("5")})
	assert.ErrorIs(t, err, ErrInvalidLoanTerms)
}

func TestApplyPayment_BalanceNeverNegative(t *testing.T) {
	amounts := []string{"0.01", "1", "99.99", "250", "1000000"}
	balances := []string{"0", "0.01", "100", "12345.67"}

	for _, b := range balances {
		for _, a := range amounts {
			res, err := ApplyPayment(dec(b), dec("24"), StatusActive, Payment{Date: date(2024, 1, 1), Amount: dec(a)})
			require.NoError(t, err)
			assert.False(t, res.RemainingBalance.IsNegative(), "balance %s amount %s", b, a)
			assert.True(t, res.RemainingBalance.LessThanOrEqual(dec(b)))
			assert.False(t, res.Record.PrincipalPaid.IsNegative())
			assert.False(t, res.Record.ExcessAmount.IsNegative())
			assert.True(t, res.Record.InterestPaid.Add(res.Record.PrincipalPaid).Add(res.Record.ExcessAmount).Equal(dec(a)))
			if res.RemainingBalance.IsZero() {
				assert.Equal(t, StatusCompleted, res.Status)
				assert.Nil(t, res.NextPaymentDate)
			}
		}
	}
}
