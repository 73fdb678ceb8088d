package service

import (
	"context"
	"errors"
	"math"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/owemate/owemate/internal/ledger"
	"github.com/owemate/owemate/internal/models"
	"github.com/owemate/owemate/internal/storage/sqlite"
)

var (
	alice = Caller{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	bob   = Caller{ID: "bob", DisplayName: "Bob", Email: "bob@example.com"}
	carol = Caller{ID: "carol", DisplayName: "Carol", Email: "carol@example.com"}
)

func setupService(t *testing.T) (*GroupService, *sqlite.SQLiteStore) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return NewGroupService(store), store
}

func TestCreateGroupAssignsInviteCode(t *testing.T) {
	svc, _ := setupService(t)

	group, err := svc.CreateGroup(context.Background(), alice, "Roommates", "rent")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if group.ID == "" {
		t.Error("expected non-empty group ID")
	}
	if ok, _ := regexp.MatchString(`^[A-Z0-9]{6}$`, group.InviteCode); !ok {
		t.Errorf("invite code %q does not match [A-Z0-9]{6}", group.InviteCode)
	}
	if len(group.Members) != 1 || group.Members[0].UserID != "alice" {
		t.Fatalf("expected creator as sole member, got %+v", group.Members)
	}
	if group.CreatedBy != "alice" {
		t.Errorf("createdBy = %q, want alice", group.CreatedBy)
	}
	if group.Version != 1 {
		t.Errorf("version = %d, want 1", group.Version)
	}
}

func TestCreateGroupUniqueCodes(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	codes := make(map[string]bool)
	for i := 0; i < 10; i++ {
		group, err := svc.CreateGroup(ctx, alice, "Group", "")
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if codes[group.InviteCode] {
			t.Fatalf("duplicate invite code %q", group.InviteCode)
		}
		codes[group.InviteCode] = true
	}
}

func TestJoinGroupByCode(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, alice, "Trip", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	// Codes are case-insensitive on input.
	joined, err := svc.JoinGroup(ctx, bob, "  "+strings.ToLower(group.InviteCode)+" ")
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if len(joined.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(joined.Members))
	}

	// Joining twice yields AlreadyMember and no duplicate entry.
	_, err = svc.JoinGroup(ctx, bob, group.InviteCode)
	if !errors.Is(err, ledger.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	reloaded, err := svc.GetGroup(ctx, bob, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(reloaded.Members) != 2 {
		t.Errorf("members = %d after duplicate join, want 2", len(reloaded.Members))
	}
}

func TestJoinGroupUnknownCode(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.JoinGroup(context.Background(), bob, "ZZZZZ9")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddMemberByEmail(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if err := store.CreateUser(ctx, &models.User{
		ID: "carol", Email: "carol@example.com", DisplayName: "Carol",
		PasswordHash: "x", CreatedAt: 1, UpdatedAt: 1,
	}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	group, err := svc.CreateGroup(ctx, alice, "Trip", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	updated, err := svc.AddMember(ctx, alice, group.ID, "carol@example.com")
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if len(updated.Members) != 2 || updated.Members[1].Name != "Carol" {
		t.Fatalf("unexpected members: %+v", updated.Members)
	}

	// Unregistered email resolves to nothing.
	_, err = svc.AddMember(ctx, alice, group.ID, "nobody@example.com")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Same person again, rejected by email match.
	_, err = svc.AddMember(ctx, alice, group.ID, "carol@example.com")
	if !errors.Is(err, ledger.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestGetGroupMembersOnly(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, alice, "Private", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	_, err = svc.GetGroup(ctx, bob, group.ID)
	if !errors.Is(err, ledger.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLeaveGroupFlow(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, alice, "Trip", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := svc.JoinGroup(ctx, bob, group.InviteCode); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	// Owner is stuck while bob remains.
	_, _, err = svc.LeaveGroup(ctx, alice, group.ID)
	if !errors.Is(err, ledger.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}

	if _, deleted, err := svc.LeaveGroup(ctx, bob, group.ID); err != nil || deleted {
		t.Fatalf("bob leave: deleted=%v err=%v", deleted, err)
	}

	// Alice is alone now; leaving deletes the group.
	_, deleted, err := svc.LeaveGroup(ctx, alice, group.ID)
	if err != nil {
		t.Fatalf("alice leave failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected group deletion on last leave")
	}
	if _, err := store.GetGroup(ctx, group.ID); err == nil {
		t.Fatal("group should be gone from the store")
	}
}

func TestDeleteGroupOwnerOnly(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, alice, "Trip", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := svc.JoinGroup(ctx, bob, group.InviteCode); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	if err := svc.DeleteGroup(ctx, bob, group.ID); !errors.Is(err, ledger.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteGroup(ctx, alice, group.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	if _, err := svc.GetGroup(ctx, alice, group.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestExpenseAndSettleScenario(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, alice, "Dinner club", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, c := range []Caller{bob, carol} {
		if _, err := svc.JoinGroup(ctx, c, group.InviteCode); err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", c.ID, err)
		}
	}

	updated, err := svc.AddExpense(ctx, alice, group.ID, ledger.ExpenseInput{
		PaidBy: "alice",
		Amount: 100,
		Splits: []models.Split{
			{MemberID: "bob", Amount: 50},
			{MemberID: "carol", Amount: 50},
		},
	})
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if got := updated.Member("bob").AmountOwed; math.Abs(got-50) > 0.001 {
		t.Errorf("bob owed = %v, want 50", got)
	}
	if got := updated.Member("alice").AmountLent; math.Abs(got-100) > 0.001 {
		t.Errorf("alice lent = %v, want 100", got)
	}

	settled, err := svc.SettleUp(ctx, bob, group.ID, "bob", "alice", 50, "cash")
	if err != nil {
		t.Fatalf("SettleUp failed: %v", err)
	}
	if got := settled.Member("bob").AmountOwed; math.Abs(got) > 0.001 {
		t.Errorf("bob owed = %v, want 0", got)
	}
	if got := settled.Member("alice").AmountLent; math.Abs(got-50) > 0.001 {
		t.Errorf("alice lent = %v, want 50", got)
	}

	// Settlement audit row was appended.
	settlements, err := store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListSettlementsByGroup failed: %v", err)
	}
	if len(settlements) != 1 || settlements[0].Note != "cash" || settlements[0].CreatedBy != "bob" {
		t.Fatalf("unexpected settlements: %+v", settlements)
	}

	// The audit row is history only; balances are whatever the ledger says.
	reloaded, err := svc.GetGroup(ctx, carol, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got := reloaded.Member("carol").AmountOwed; math.Abs(got-50) > 0.001 {
		t.Errorf("carol owed = %v, want 50", got)
	}

	// Deleting the expense reverses what is left to reverse.
	expenseID := reloaded.Expenses[0].ID
	afterDelete, err := svc.DeleteExpense(ctx, alice, group.ID, expenseID)
	if err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if len(afterDelete.Expenses) != 0 {
		t.Errorf("expenses = %d, want 0", len(afterDelete.Expenses))
	}
	if got := afterDelete.Member("carol").AmountOwed; math.Abs(got) > 0.001 {
		t.Errorf("carol owed = %v, want 0", got)
	}
}

func TestTransferOwnershipThroughService(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, alice, "Trip", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := svc.JoinGroup(ctx, bob, group.InviteCode); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	_, err = svc.TransferOwnership(ctx, alice, group.ID, "carol")
	if !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("transfer to non-member: expected ErrValidation, got %v", err)
	}

	updated, err := svc.TransferOwnership(ctx, alice, group.ID, "bob")
	if err != nil {
		t.Fatalf("TransferOwnership failed: %v", err)
	}
	if updated.CreatedBy != "bob" {
		t.Errorf("createdBy = %q, want bob", updated.CreatedBy)
	}

	// The previous owner can leave now.
	if _, deleted, err := svc.LeaveGroup(ctx, alice, group.ID); err != nil || deleted {
		t.Fatalf("alice leave: deleted=%v err=%v", deleted, err)
	}
}

func TestGroupBalancesThroughService(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, alice, "Trip", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if _, err := svc.JoinGroup(ctx, bob, group.InviteCode); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if _, err := svc.AddExpense(ctx, alice, group.ID, ledger.ExpenseInput{
		PaidBy: "alice",
		Amount: 80,
		Splits: []models.Split{{MemberID: "bob", Amount: 80}},
	}); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	balances, edges, err := svc.GroupBalances(ctx, bob, group.ID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %d, want 2", len(balances))
	}
	if len(edges) != 1 || edges[0].FromUserID != "bob" || edges[0].ToUserID != "alice" {
		t.Fatalf("unexpected edges: %+v", edges)
	}
	if math.Abs(edges[0].Amount-80) > 0.001 {
		t.Errorf("edge amount = %v, want 80", edges[0].Amount)
	}

	// Non-members cannot read balances.
	if _, _, err := svc.GroupBalances(ctx, carol, group.ID); !errors.Is(err, ledger.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
