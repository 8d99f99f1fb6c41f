// Package analyze derives transaction labels and per-statement aggregates
// from validated transaction lists. Everything here is pure: no clock, no
// storage, no side effects.
package analyze

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/yourorg/clearscrub/internal/domain"
)

// feePattern is the classifier vocabulary for negative amounts that are fees
// rather than ordinary withdrawals.
//
// NOTE: this is intentionally a different keyword set than nsfPattern in
// metrics.go. The two predicates feed different numbers (transaction label vs
// the nsf_count aggregate) and are maintained separately.
var feePattern = regexp.MustCompile(`(?i)\b(nsf|fee|fees|overdraft|service charge|insufficient)\b`)

// Classify labels a single transaction from its sign and description.
// Positive amounts are deposits, negative amounts matching the fee
// vocabulary are fees, any other negative amount is a withdrawal. A zero
// amount classifies as deposit.
func Classify(amount decimal.Decimal, description string) domain.TransactionType {
	if amount.Sign() >= 0 {
		return domain.TransactionDeposit
	}
	if feePattern.MatchString(description) {
		return domain.TransactionFee
	}
	return domain.TransactionWithdrawal
}
