package models

// Member is one user's participation record within a group.
// Name and Email are snapshots of the user's profile at join time.
type Member struct {
	// UserID is the stable identity of the user, unique within the group.
	UserID string

	// Name is the display name copied from the user at join time.
	Name string

	// Email is the email copied from the user at join time.
	Email string

	// AmountOwed is the accumulated unsettled share this member owes to
	// the group. Never negative.
	AmountOwed float64

	// AmountLent is the accumulated amount this member has fronted for the
	// group and not yet been reimbursed for. Never negative.
	AmountLent float64
}

// Balance returns the member's net position: positive means the member is
// owed money, negative means the member owes money.
func (m *Member) Balance() float64 {
	return m.AmountLent - m.AmountOwed
}

// Split is one member's assigned share of a single expense.
type Split struct {
	// MemberID is the user ID of the member owing this share.
	MemberID string

	// MemberName is the member's display name at recording time.
	MemberName string

	// Amount is this member's share of the expense total.
	Amount float64
}

// Expense is a recorded cost within a group. Expenses are append/remove
// only; there is no in-place edit.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// PaidBy is the user ID of the member who fronted the money.
	PaidBy string

	// PaidByName is the payer's display name at recording time.
	PaidByName string

	// Amount is the positive total cost of the expense.
	Amount float64

	// Description is a short human-readable label.
	Description string

	// Category is a free-form tag (e.g. "food", "rent").
	Category string

	// Splits assigns a share of Amount to each owing member.
	Splits []Split

	// Date is the Unix timestamp when the expense was recorded.
	Date int64
}

// Group is the shared-ledger aggregate root.
//
// Invariants maintained by the ledger engine:
//   - Members is never empty while the group exists; a group emptied by the
//     last member leaving is deleted, not persisted empty.
//   - CreatedBy always references a user present in Members.
//   - InviteCode is six characters over [A-Z0-9], stored uppercase, globally
//     unique, immutable once assigned.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g. "Roommates").
	Name string

	// Description is an optional free-form description.
	Description string

	// ImageURL is an optional group picture URL.
	ImageURL string

	// Members is the member list in join order.
	Members []Member

	// Expenses is the expense log in creation order.
	Expenses []Expense

	// CreatedBy is the user ID of the current owner. Changes only via
	// ownership transfer.
	CreatedBy string

	// InviteCode is the six-character join code.
	InviteCode string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last persisted change.
	UpdatedAt int64

	// Version is the optimistic-concurrency token. The store increments it
	// on every successful save and rejects saves built from a stale read.
	Version int64
}

// Member returns the member with the given user ID, or nil if absent.
func (g *Group) Member(userID string) *Member {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// HasMember reports whether the user is a current member of the group.
func (g *Group) HasMember(userID string) bool {
	return g.Member(userID) != nil
}

// Expense returns the expense with the given ID, or nil if absent.
func (g *Group) Expense(expenseID string) *Expense {
	for i := range g.Expenses {
		if g.Expenses[i].ID == expenseID {
			return &g.Expenses[i]
		}
	}
	return nil
}

// TotalExpenses returns the sum of all expense amounts in the group.
func (g *Group) TotalExpenses() float64 {
	var sum float64
	for i := range g.Expenses {
		sum += g.Expenses[i].Amount
	}
	return sum
}

// MemberBalance returns the net balance for the given user, or 0 if the
// user is not a member.
func (g *Group) MemberBalance(userID string) float64 {
	m := g.Member(userID)
	if m == nil {
		return 0
	}
	return m.Balance()
}
