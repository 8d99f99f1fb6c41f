package analyze

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourorg/clearscrub/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestClassify(t *testing.T) {
	cases := []struct {
		amount      string
		description string
		want        domain.TransactionType
	}{
		{"150.00", "ACH DEPOSIT PAYROLL", domain.TransactionDeposit},
		{"-45.50", "CHECK 1042", domain.TransactionWithdrawal},
		{"-35.00", "NSF RETURNED ITEM", domain.TransactionFee},
		{"-12.00", "Monthly Service Charge", domain.TransactionFee},
		{"-29.00", "OVERDRAFT PROTECTION TRANSFER", domain.TransactionFee},
		{"-5.00", "wire transfer fee", domain.TransactionFee},
		{"-100.00", "ATM WITHDRAWAL", domain.TransactionWithdrawal},
		{"0", "ADJUSTMENT", domain.TransactionDeposit}, // zero amount policy
	}
	for _, c := range cases {
		if got := Classify(dec(c.amount), c.description); got != c.want {
			t.Errorf("Classify(%s, %q) = %s, want %s", c.amount, c.description, got, c.want)
		}
	}
}

func txn(amount, balance, description string) domain.Transaction {
	return domain.Transaction{
		Date:           time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Description:    description,
		Amount:         dec(amount),
		RunningBalance: dec(balance),
		Type:           Classify(dec(amount), description),
	}
}

func TestComputeMetrics(t *testing.T) {
	txns := []domain.Transaction{
		txn("1000.00", "1000.00", "ACH DEPOSIT CUSTOMER A"),
		txn("250.50", "1250.50", "DEPOSIT CUSTOMER B"),
		txn("-300.00", "950.50", "RENT PAYMENT"),
		txn("-35.00", "915.50", "NSF FEE"),
		txn("-1000.00", "-84.50", "LOAN PAYMENT"),
		txn("-29.00", "-113.50", "INSUFFICIENT FUNDS CHARGE"),
		txn("0", "-113.50", "MEMO ADJUSTMENT"),
	}

	m := ComputeMetrics(txns)

	if m.DepositCount != 2 {
		t.Errorf("DepositCount = %d, want 2", m.DepositCount)
	}
	if m.NSFCount != 2 {
		t.Errorf("NSFCount = %d, want 2", m.NSFCount)
	}
	if m.NegativeBalanceDays != 3 {
		t.Errorf("NegativeBalanceDays = %d, want 3", m.NegativeBalanceDays)
	}
	if want := dec("1250.50"); !m.TrueRevenue.Equal(want) {
		t.Errorf("TrueRevenue = %s, want %s", m.TrueRevenue, want)
	}
	if want := dec("1250.50"); !m.TotalDeposits.Equal(want) {
		t.Errorf("TotalDeposits = %s, want %s", m.TotalDeposits, want)
	}
	if want := dec("1364.00"); !m.TotalWithdrawals.Equal(want) {
		t.Errorf("TotalWithdrawals = %s, want %s", m.TotalWithdrawals, want)
	}
	if m.TransactionCount != 7 {
		t.Errorf("TransactionCount = %d, want 7", m.TransactionCount)
	}
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil)
	if m.TransactionCount != 0 || m.DepositCount != 0 || m.NSFCount != 0 {
		t.Fatalf("expected zero metrics for empty list, got %+v", m)
	}
	if !m.TrueRevenue.IsZero() {
		t.Fatalf("TrueRevenue = %s, want 0", m.TrueRevenue)
	}
}

// Zero-amount rows classify as deposits but do not count toward the
// deposit aggregates, which require a strictly positive amount.
func TestZeroAmountExcludedFromDepositAggregates(t *testing.T) {
	m := ComputeMetrics([]domain.Transaction{txn("0", "100.00", "MEMO")})
	if m.DepositCount != 0 {
		t.Errorf("DepositCount = %d, want 0", m.DepositCount)
	}
	if !m.TrueRevenue.IsZero() {
		t.Errorf("TrueRevenue = %s, want 0", m.TrueRevenue)
	}
}
