package analyze

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/yourorg/clearscrub/internal/domain"
)

// nsfPattern matches descriptions counted toward nsf_count. Matched directly
// against the description, independent of the classifier's fee label.
var nsfPattern = regexp.MustCompile(`(?i)\b(nsf|insufficient|overdraft|returned item)\b`)

// ComputeMetrics reduces a classified transaction list to the statement
// aggregates. The list is assumed to be in source (chronological) order;
// no reordering is performed.
func ComputeMetrics(transactions []domain.Transaction) domain.StatementMetrics {
	m := domain.StatementMetrics{
		TrueRevenue:      decimal.Zero,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TransactionCount: len(transactions),
	}

	for _, txn := range transactions {
		if txn.Amount.Sign() > 0 {
			m.DepositCount++
			m.TrueRevenue = m.TrueRevenue.Add(txn.Amount)
			m.TotalDeposits = m.TotalDeposits.Add(txn.Amount)
		} else if txn.Amount.Sign() < 0 {
			m.TotalWithdrawals = m.TotalWithdrawals.Add(txn.Amount.Abs())
		}
		if nsfPattern.MatchString(txn.Description) {
			m.NSFCount++
		}
		if txn.RunningBalance.Sign() < 0 {
			m.NegativeBalanceDays++
		}
	}
	return m
}
