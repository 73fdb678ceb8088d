package sqlite

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/owemate/owemate/internal/models"
	"github.com/owemate/owemate/internal/storage"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return store
}

func sampleGroup(code string) *models.Group {
	return &models.Group{
		Name:       "Trip",
		CreatedBy:  "alice",
		InviteCode: code,
		Members: []models.Member{
			{UserID: "alice", Name: "Alice", Email: "alice@example.com", AmountLent: 100},
			{UserID: "bob", Name: "Bob", Email: "bob@example.com", AmountOwed: 100},
		},
		Expenses: []models.Expense{{
			PaidBy:      "alice",
			PaidByName:  "Alice",
			Amount:      100,
			Description: "Dinner",
			Category:    "food",
			Splits: []models.Split{
				{MemberID: "bob", MemberName: "Bob", Amount: 100},
			},
		}},
	}
}

func TestCreateAndGetGroup(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	group := sampleGroup("ABC123")
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.ID == "" {
		t.Fatal("expected backfilled group ID")
	}
	if group.Version != 1 {
		t.Errorf("version = %d, want 1", group.Version)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.Name != "Trip" || got.InviteCode != "ABC123" || got.CreatedBy != "alice" {
		t.Errorf("unexpected group: %+v", got)
	}
	if len(got.Members) != 2 || got.Members[0].UserID != "alice" || got.Members[1].UserID != "bob" {
		t.Fatalf("members out of order or missing: %+v", got.Members)
	}
	if got.Members[0].AmountLent != 100 || got.Members[1].AmountOwed != 100 {
		t.Errorf("balances not persisted: %+v", got.Members)
	}
	if len(got.Expenses) != 1 {
		t.Fatalf("expenses = %d, want 1", len(got.Expenses))
	}
	expense := got.Expenses[0]
	if expense.ID == "" || expense.Date == 0 {
		t.Errorf("expense id/date not backfilled: %+v", expense)
	}
	if len(expense.Splits) != 1 || expense.Splits[0].MemberID != "bob" || expense.Splits[0].Amount != 100 {
		t.Errorf("splits not persisted: %+v", expense.Splits)
	}
}

func TestGetGroupManyExpenses(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	group := sampleGroup("EXP001")
	group.Expenses = []models.Expense{
		{
			PaidBy: "alice", PaidByName: "Alice", Amount: 60,
			Description: "Lunch", Category: "food",
			Splits: []models.Split{
				{MemberID: "alice", MemberName: "Alice", Amount: 30},
				{MemberID: "bob", MemberName: "Bob", Amount: 30},
			},
		},
		{
			PaidBy: "bob", PaidByName: "Bob", Amount: 20,
			Description: "Coffee", Category: "food",
			Splits: []models.Split{
				{MemberID: "alice", MemberName: "Alice", Amount: 20},
			},
		},
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(got.Expenses) != 2 {
		t.Fatalf("expenses = %d, want 2", len(got.Expenses))
	}

	// Splits must attach to their own expense, in insertion order.
	first, second := got.Expenses[0], got.Expenses[1]
	if len(first.Splits) != 2 || first.Splits[0].MemberID != "alice" || first.Splits[1].MemberID != "bob" {
		t.Errorf("first expense splits wrong: %+v", first.Splits)
	}
	if len(second.Splits) != 1 || second.Splits[0].MemberID != "alice" || second.Splits[0].Amount != 20 {
		t.Errorf("second expense splits wrong: %+v", second.Splits)
	}
}

func TestGetGroupNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetGroup(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInviteCodeUniqueness(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.CreateGroup(ctx, sampleGroup("SAME00")); err != nil {
		t.Fatalf("first CreateGroup failed: %v", err)
	}

	err := store.CreateGroup(ctx, sampleGroup("SAME00"))
	if !errors.Is(err, storage.ErrInviteCodeTaken) {
		t.Fatalf("expected ErrInviteCodeTaken, got %v", err)
	}

	got, err := store.GetGroupByInviteCode(ctx, "SAME00")
	if err != nil {
		t.Fatalf("GetGroupByInviteCode failed: %v", err)
	}
	if got.Name != "Trip" {
		t.Errorf("unexpected group: %+v", got)
	}
}

func TestUpdateGroupVersionConflict(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	group := sampleGroup("VRS001")
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	// Two readers load the same version.
	first, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	second, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}

	first.Name = "Trip 2024"
	if err := store.UpdateGroup(ctx, first); err != nil {
		t.Fatalf("first UpdateGroup failed: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("version = %d, want 2", first.Version)
	}

	// The second writer's state is stale; its save must not clobber.
	second.Name = "Trip 2025"
	err = store.UpdateGroup(ctx, second)
	if !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.Name != "Trip 2024" {
		t.Errorf("name = %q, want the first writer's value", got.Name)
	}
}

func TestUpdateGroupReplacesAggregate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	group := sampleGroup("RPL001")
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	group.Members = group.Members[:1]
	group.Expenses = nil
	if err := store.UpdateGroup(ctx, group); err != nil {
		t.Fatalf("UpdateGroup failed: %v", err)
	}

	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(got.Members) != 1 || len(got.Expenses) != 0 {
		t.Errorf("aggregate not replaced: members=%d expenses=%d", len(got.Members), len(got.Expenses))
	}
}

func TestDeleteGroup(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	group := sampleGroup("DEL001")
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := store.DeleteGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	_, err := store.GetGroup(ctx, group.ID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := store.DeleteGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestListGroupsByMember(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := sampleGroup("LST001")
	a.CreatedAt = 100
	b := sampleGroup("LST002")
	b.CreatedAt = 200
	other := sampleGroup("LST003")
	other.CreatedAt = 300
	other.Members = []models.Member{{UserID: "carol", Name: "Carol", Email: "carol@example.com"}}

	for _, g := range []*models.Group{a, b, other} {
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
	}

	groups, err := store.ListGroupsByMember(ctx, "alice")
	if err != nil {
		t.Fatalf("ListGroupsByMember failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	// Newest first.
	if groups[0].InviteCode != "LST002" || groups[1].InviteCode != "LST001" {
		t.Errorf("wrong order: %s, %s", groups[0].InviteCode, groups[1].InviteCode)
	}

	none, err := store.ListGroupsByMember(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListGroupsByMember failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("groups = %d, want 0", len(none))
	}
}

func TestUsers(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	dup := models.NewUser("alice@example.com", "Other Alice", "hash2")
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID == nil || byID.DisplayName != "Alice" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}
}

func TestSettlements(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	s1 := &models.Settlement{
		GroupID:    "g1",
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     50,
		CreatedBy:  "bob",
		CreatedAt:  100,
		Note:       "venmo",
	}
	s2 := &models.Settlement{
		GroupID:    "g1",
		FromUserID: "carol",
		ToUserID:   "alice",
		Amount:     25,
		CreatedBy:  "carol",
		CreatedAt:  200,
	}
	for _, s := range []*models.Settlement{s1, s2} {
		if err := store.CreateSettlement(ctx, s); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}
		if s.ID == "" {
			t.Fatal("expected backfilled settlement ID")
		}
	}

	settlements, err := store.ListSettlementsByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ListSettlementsByGroup failed: %v", err)
	}
	if len(settlements) != 2 {
		t.Fatalf("settlements = %d, want 2", len(settlements))
	}
	// Newest first.
	if settlements[0].FromUserID != "carol" {
		t.Errorf("wrong order: first is %s", settlements[0].FromUserID)
	}
	if settlements[1].Note != "venmo" {
		t.Errorf("note not persisted: %+v", settlements[1])
	}
	if settlements[0].Note != "" {
		t.Errorf("empty note should round-trip empty, got %q", settlements[0].Note)
	}
}
