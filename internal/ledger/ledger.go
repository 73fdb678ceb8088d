// Package ledger implements the group ledger engine: pure state transitions
// over a Group aggregate that keep each member's amountOwed/amountLent
// consistent as expenses are added and deleted, balances are settled, and
// membership and ownership change.
//
// The engine performs no I/O. Every operation validates its preconditions
// before mutating the aggregate and either applies all of its changes or
// none; persistence is the caller's job (see internal/service).
package ledger

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/owemate/owemate/internal/models"
)

const (
	// DefaultExpenseDescription is used when an expense is recorded
	// without a description.
	DefaultExpenseDescription = "Group Expense"

	// DefaultExpenseCategory is used when an expense is recorded without
	// a category.
	DefaultExpenseCategory = "other"

	// amountEpsilon absorbs float noise when comparing money amounts.
	amountEpsilon = 0.01
)

// NewGroup builds a group with the creator as its only member. The ID,
// invite code, and timestamps are assigned at persistence time.
func NewGroup(name, description string, creator *models.User) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrValidation)
	}

	return &models.Group{
		Name:        name,
		Description: description,
		CreatedBy:   creator.ID,
		Members: []models.Member{{
			UserID: creator.ID,
			Name:   creator.DisplayName,
			Email:  creator.Email,
		}},
	}, nil
}

// Join appends the user to the group with zero balances.
func Join(g *models.Group, user *models.User) error {
	if g.HasMember(user.ID) {
		return fmt.Errorf("%w: %s already belongs to group %s", ErrAlreadyMember, user.ID, g.ID)
	}
	g.Members = append(g.Members, models.Member{
		UserID: user.ID,
		Name:   user.DisplayName,
		Email:  user.Email,
	})
	return nil
}

// AddMember appends the user to the group on behalf of an existing member.
// Duplicate detection matches on user ID or email, so the same person
// cannot be added twice under different accounts sharing an email.
func AddMember(g *models.Group, requesterID string, user *models.User) error {
	if !g.HasMember(requesterID) {
		return fmt.Errorf("%w: %s is not a member of group %s", ErrForbidden, requesterID, g.ID)
	}
	for i := range g.Members {
		if g.Members[i].UserID == user.ID || g.Members[i].Email == user.Email {
			return fmt.Errorf("%w: %s already belongs to group %s", ErrAlreadyMember, user.ID, g.ID)
		}
	}
	g.Members = append(g.Members, models.Member{
		UserID: user.ID,
		Name:   user.DisplayName,
		Email:  user.Email,
	})
	return nil
}

// Leave removes the requester from the group. The owner must transfer
// ownership or delete the group before leaving while other members remain.
// Removal of the last member empties the group; the returned deleted flag
// tells the caller to destroy the aggregate instead of persisting it.
func Leave(g *models.Group, requesterID string) (deleted bool, err error) {
	idx := -1
	for i := range g.Members {
		if g.Members[i].UserID == requesterID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, fmt.Errorf("%w: %s does not belong to group %s", ErrNotAMember, requesterID, g.ID)
	}
	if g.CreatedBy == requesterID && len(g.Members) > 1 {
		return false, fmt.Errorf("%w: owner must transfer ownership or delete the group before leaving", ErrInvalidOperation)
	}

	g.Members = append(g.Members[:idx], g.Members[idx+1:]...)
	return len(g.Members) == 0, nil
}

// AuthorizeDelete checks that the requester may delete the group. Only the
// current owner can.
func AuthorizeDelete(g *models.Group, requesterID string) error {
	if g.CreatedBy != requesterID {
		return fmt.Errorf("%w: only the group owner can delete group %s", ErrForbidden, g.ID)
	}
	return nil
}

// TransferOwnership hands the group to another current member.
func TransferOwnership(g *models.Group, requesterID, newOwnerID string) error {
	if g.CreatedBy != requesterID {
		return fmt.Errorf("%w: only the group owner can transfer ownership", ErrForbidden)
	}
	if !g.HasMember(newOwnerID) {
		return fmt.Errorf("%w: new owner %s is not a member of group %s", ErrValidation, newOwnerID, g.ID)
	}
	g.CreatedBy = newOwnerID
	return nil
}

// ExpenseInput carries the caller-supplied fields of a new expense.
type ExpenseInput struct {
	PaidBy      string
	Amount      float64
	Description string
	Category    string
	Splits      []models.Split
}

// AddExpense records an expense and applies it to the running balances:
// each split member's amountOwed grows by their share, and the payer's
// amountLent grows by the full amount.
//
// Every split member and the payer must be current members, each member may
// appear in at most one split, each share must be positive, and the shares
// must sum to the expense amount. Historic
// balances are never retroactively adjusted by later membership changes.
func AddExpense(g *models.Group, requesterID string, in ExpenseInput) (*models.Expense, error) {
	if !g.HasMember(requesterID) {
		return nil, fmt.Errorf("%w: %s is not a member of group %s", ErrForbidden, requesterID, g.ID)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: expense amount must be positive", ErrValidation)
	}
	if len(in.Splits) == 0 {
		return nil, fmt.Errorf("%w: expense requires at least one split", ErrValidation)
	}

	payer := g.Member(in.PaidBy)
	if payer == nil {
		return nil, fmt.Errorf("%w: payer %s is not a member of group %s", ErrValidation, in.PaidBy, g.ID)
	}

	var splitSum float64
	seen := make(map[string]bool, len(in.Splits))
	splits := make([]models.Split, 0, len(in.Splits))
	for _, s := range in.Splits {
		if s.Amount <= 0 {
			return nil, fmt.Errorf("%w: split amount must be positive", ErrValidation)
		}
		m := g.Member(s.MemberID)
		if m == nil {
			return nil, fmt.Errorf("%w: split member %s is not a member of group %s", ErrValidation, s.MemberID, g.ID)
		}
		if seen[m.UserID] {
			return nil, fmt.Errorf("%w: duplicate split for member %s", ErrValidation, m.UserID)
		}
		seen[m.UserID] = true
		splitSum += s.Amount
		splits = append(splits, models.Split{
			MemberID:   m.UserID,
			MemberName: m.Name,
			Amount:     s.Amount,
		})
	}
	if math.Abs(splitSum-in.Amount) > amountEpsilon {
		return nil, fmt.Errorf("%w: splits sum to %.2f, expense amount is %.2f", ErrValidation, splitSum, in.Amount)
	}

	expense := models.Expense{
		ID:          uuid.New().String(),
		PaidBy:      payer.UserID,
		PaidByName:  payer.Name,
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		Splits:      splits,
		Date:        time.Now().Unix(),
	}
	if expense.Description == "" {
		expense.Description = DefaultExpenseDescription
	}
	if expense.Category == "" {
		expense.Category = DefaultExpenseCategory
	}

	for _, s := range splits {
		g.Member(s.MemberID).AmountOwed += s.Amount
	}
	payer.AmountLent += in.Amount

	g.Expenses = append(g.Expenses, expense)
	return &g.Expenses[len(g.Expenses)-1], nil
}

// DeleteExpense removes an expense and reverses its balance effects.
//
// Splits whose member has since left the group are skipped, and decrements
// clamp at zero rather than going negative, so deletion is an exact inverse
// of AddExpense only while membership has been stable and no clamping
// occurred. Truncations are counted in the clamp metric.
func DeleteExpense(g *models.Group, requesterID, expenseID string) error {
	if !g.HasMember(requesterID) {
		return fmt.Errorf("%w: %s is not a member of group %s", ErrForbidden, requesterID, g.ID)
	}

	idx := -1
	for i := range g.Expenses {
		if g.Expenses[i].ID == expenseID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: expense %s in group %s", ErrNotFound, expenseID, g.ID)
	}
	expense := &g.Expenses[idx]

	for _, s := range expense.Splits {
		if m := g.Member(s.MemberID); m != nil {
			clamp(&m.AmountOwed, s.Amount, "amount_owed")
		}
	}
	if payer := g.Member(expense.PaidBy); payer != nil {
		clamp(&payer.AmountLent, expense.Amount, "amount_lent")
	}

	g.Expenses = append(g.Expenses[:idx], g.Expenses[idx+1:]...)
	return nil
}

// SettleUp records a direct payment from one member to another by reducing
// the payer's amountOwed and the receiver's amountLent, both clamped at
// zero. The settlement itself is not part of the aggregate; the caller may
// append an audit record separately.
func SettleUp(g *models.Group, requesterID, fromUserID, toUserID string, amount float64) error {
	if !g.HasMember(requesterID) {
		return fmt.Errorf("%w: %s is not a member of group %s", ErrForbidden, requesterID, g.ID)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: settlement amount must be positive", ErrValidation)
	}
	if fromUserID == toUserID {
		return fmt.Errorf("%w: cannot settle with yourself", ErrValidation)
	}

	from := g.Member(fromUserID)
	if from == nil {
		return fmt.Errorf("%w: %s is not a member of group %s", ErrValidation, fromUserID, g.ID)
	}
	to := g.Member(toUserID)
	if to == nil {
		return fmt.Errorf("%w: %s is not a member of group %s", ErrValidation, toUserID, g.ID)
	}

	clamp(&from.AmountOwed, amount, "amount_owed")
	clamp(&to.AmountLent, amount, "amount_lent")
	return nil
}
