// Package calculator derives read models from a group's running ledger.
package calculator

import "github.com/owemate/owemate/internal/models"

// MemberBalance is the balance view for one group member.
type MemberBalance struct {
	UserID     string
	Name       string
	TotalLent  float64 // Amount fronted and not yet reimbursed
	TotalOwed  float64 // Unsettled share owed into the group
	NetBalance float64 // Positive = owed money, negative = owes money
}

// DebtEdge is a suggested payment from one member to another.
type DebtEdge struct {
	FromUserID string
	ToUserID   string
	Amount     float64
}

// epsilon suppresses floating point noise in debt matching.
const epsilon = 0.01

// GroupBalances computes each member's net position from the running
// amountLent/amountOwed ledger and a simplified who-pays-whom matrix.
//
// The debt matrix is built greedily: debtors and creditors are walked in
// member join order, matching each debtor against creditors until both
// sides are exhausted. This minimizes transaction count without reordering
// members, so the output is deterministic.
func GroupBalances(g *models.Group) ([]MemberBalance, []DebtEdge) {
	balances := make([]MemberBalance, len(g.Members))
	var debtors, creditors []int
	for i := range g.Members {
		m := &g.Members[i]
		balances[i] = MemberBalance{
			UserID:     m.UserID,
			Name:       m.Name,
			TotalLent:  m.AmountLent,
			TotalOwed:  m.AmountOwed,
			NetBalance: m.Balance(),
		}
		switch {
		case balances[i].NetBalance < -epsilon:
			debtors = append(debtors, i)
		case balances[i].NetBalance > epsilon:
			creditors = append(creditors, i)
		}
	}

	// Remaining amounts owed/expected per matched member.
	owes := make(map[int]float64, len(debtors))
	expects := make(map[int]float64, len(creditors))
	for _, i := range debtors {
		owes[i] = -balances[i].NetBalance
	}
	for _, j := range creditors {
		expects[j] = balances[j].NetBalance
	}

	var edges []DebtEdge
	di, ci := 0, 0
	for di < len(debtors) && ci < len(creditors) {
		d, c := debtors[di], creditors[ci]

		amount := owes[d]
		if expects[c] < amount {
			amount = expects[c]
		}
		if amount > epsilon {
			edges = append(edges, DebtEdge{
				FromUserID: balances[d].UserID,
				ToUserID:   balances[c].UserID,
				Amount:     amount,
			})
		}

		owes[d] -= amount
		expects[c] -= amount
		if owes[d] < epsilon {
			di++
		}
		if expects[c] < epsilon {
			ci++
		}
	}

	return balances, edges
}
