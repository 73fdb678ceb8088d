// Package service orchestrates ledger operations against durable storage:
// each call loads the group aggregate, runs a pure engine transition, and
// writes the result back as one unit.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/owemate/owemate/internal/calculator"
	"github.com/owemate/owemate/internal/ledger"
	"github.com/owemate/owemate/internal/models"
	"github.com/owemate/owemate/internal/storage"
)

// Caller is the authenticated identity the request layer resolved for the
// current operation.
type Caller struct {
	ID          string
	DisplayName string
	Email       string
}

func (c Caller) user() *models.User {
	return &models.User{ID: c.ID, DisplayName: c.DisplayName, Email: c.Email}
}

// GroupService exposes the ledger operations over a storage backend.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a group with the caller as owner and sole member,
// assigning a globally unique invite code. Code candidates are probed
// against the store and the insert retried on a lost uniqueness race, up to
// the retry budget.
func (s *GroupService) CreateGroup(ctx context.Context, caller Caller, name, description string) (*models.Group, error) {
	group, err := ledger.NewGroup(name, description, caller.user())
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < ledger.MaxInviteCodeAttempts; attempt++ {
		code, err := ledger.NewInviteCode()
		if err != nil {
			return nil, err
		}

		// Probe first to skip most collisions cheaply; the unique index
		// on invite_code is the actual guard.
		_, err = s.store.GetGroupByInviteCode(ctx, code)
		if err == nil {
			ledger.InviteCodeRetried()
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}

		group.InviteCode = code
		err = s.store.CreateGroup(ctx, group)
		if errors.Is(err, storage.ErrInviteCodeTaken) {
			ledger.InviteCodeRetried()
			continue
		}
		if err != nil {
			return nil, err
		}

		slog.Info("group created",
			"group_id", group.ID,
			"owner", caller.ID,
			"invite_code", group.InviteCode,
			"attempts", attempt+1,
		)
		return group, nil
	}

	slog.Error("invite code budget exhausted", "owner", caller.ID)
	return nil, fmt.Errorf("%w: gave up after %d attempts", ledger.ErrCodeSpaceExhausted, ledger.MaxInviteCodeAttempts)
}

// GetGroup retrieves a group; only members may read it.
func (s *GroupService) GetGroup(ctx context.Context, caller Caller, groupID string) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(caller.ID) {
		return nil, fmt.Errorf("%w: %s is not a member of group %s", ledger.ErrForbidden, caller.ID, groupID)
	}
	return group, nil
}

// ListGroups retrieves all groups the caller belongs to, newest first.
func (s *GroupService) ListGroups(ctx context.Context, caller Caller) ([]*models.Group, error) {
	return s.store.ListGroupsByMember(ctx, caller.ID)
}

// JoinGroup adds the caller to the group addressed by an invite code.
func (s *GroupService) JoinGroup(ctx context.Context, caller Caller, inviteCode string) (*models.Group, error) {
	code, err := ledger.NormalizeInviteCode(inviteCode)
	if err != nil {
		return nil, err
	}

	group, err := s.store.GetGroupByInviteCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: invite code %s", ledger.ErrNotFound, code)
	}
	if err != nil {
		return nil, err
	}

	if err := ledger.Join(group, caller.user()); err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("member joined", "group_id", group.ID, "user_id", caller.ID)
	return group, nil
}

// AddMember adds a registered user to the group by email, on behalf of an
// existing member.
func (s *GroupService) AddMember(ctx context.Context, caller Caller, groupID, email string) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: no user with email %s", ledger.ErrNotFound, email)
	}

	if err := ledger.AddMember(group, caller.ID, user); err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("member added", "group_id", group.ID, "user_id", user.ID, "added_by", caller.ID)
	return group, nil
}

// LeaveGroup removes the caller from the group. If the caller was the last
// member, the group is deleted and the returned group is nil.
func (s *GroupService) LeaveGroup(ctx context.Context, caller Caller, groupID string) (*models.Group, bool, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, false, err
	}

	deleted, err := ledger.Leave(group, caller.ID)
	if err != nil {
		return nil, false, err
	}

	if deleted {
		if err := s.store.DeleteGroup(ctx, groupID); err != nil {
			return nil, false, err
		}
		slog.Info("group deleted on last leave", "group_id", groupID, "user_id", caller.ID)
		return nil, true, nil
	}

	if err := s.saveGroup(ctx, group); err != nil {
		return nil, false, err
	}
	slog.Info("member left", "group_id", groupID, "user_id", caller.ID)
	return group, false, nil
}

// DeleteGroup deletes the group and all embedded expenses. Owner only.
func (s *GroupService) DeleteGroup(ctx context.Context, caller Caller, groupID string) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := ledger.AuthorizeDelete(group, caller.ID); err != nil {
		return err
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	slog.Info("group deleted", "group_id", groupID, "user_id", caller.ID)
	return nil
}

// TransferOwnership hands the group to another current member. Owner only.
func (s *GroupService) TransferOwnership(ctx context.Context, caller Caller, groupID, newOwnerID string) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := ledger.TransferOwnership(group, caller.ID, newOwnerID); err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, group); err != nil {
		return nil, err
	}
	slog.Info("ownership transferred", "group_id", groupID, "from", caller.ID, "to", newOwnerID)
	return group, nil
}

// AddExpense records an expense and applies it to the running balances.
func (s *GroupService) AddExpense(ctx context.Context, caller Caller, groupID string, in ledger.ExpenseInput) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	expense, err := ledger.AddExpense(group, caller.ID, in)
	if err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("expense added",
		"group_id", groupID,
		"expense_id", expense.ID,
		"paid_by", expense.PaidBy,
		"amount", expense.Amount,
		"splits", len(expense.Splits),
	)
	return group, nil
}

// DeleteExpense removes an expense and reverses its balance effects.
func (s *GroupService) DeleteExpense(ctx context.Context, caller Caller, groupID, expenseID string) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if err := ledger.DeleteExpense(group, caller.ID, expenseID); err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("expense deleted", "group_id", groupID, "expense_id", expenseID, "user_id", caller.ID)
	return group, nil
}

// SettleUp records a direct payment between two members and appends a
// settlement audit row. The audit row is best-effort: the balance change is
// already durable, so a failed audit insert is logged, not surfaced.
func (s *GroupService) SettleUp(ctx context.Context, caller Caller, groupID, fromUserID, toUserID string, amount float64, note string) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if err := ledger.SettleUp(group, caller.ID, fromUserID, toUserID, amount); err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, group); err != nil {
		return nil, err
	}

	settlement := &models.Settlement{
		GroupID:    groupID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
		CreatedBy:  caller.ID,
		Note:       note,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Warn("settlement audit record failed", "group_id", groupID, "error", err)
	}

	slog.Info("settled up",
		"group_id", groupID,
		"from", fromUserID,
		"to", toUserID,
		"amount", amount,
	)
	return group, nil
}

// GroupBalances computes the member balance view and the simplified debt
// matrix. Members only.
func (s *GroupService) GroupBalances(ctx context.Context, caller Caller, groupID string) ([]calculator.MemberBalance, []calculator.DebtEdge, error) {
	group, err := s.GetGroup(ctx, caller, groupID)
	if err != nil {
		return nil, nil, err
	}
	balances, edges := calculator.GroupBalances(group)
	return balances, edges, nil
}

// ListSettlements retrieves the group's settlement history. Members only.
func (s *GroupService) ListSettlements(ctx context.Context, caller Caller, groupID string) ([]*models.Settlement, error) {
	if _, err := s.GetGroup(ctx, caller, groupID); err != nil {
		return nil, err
	}
	return s.store.ListSettlementsByGroup(ctx, groupID)
}

// loadGroup maps storage not-found onto the engine's error kind so callers
// deal with a single error vocabulary.
func (s *GroupService) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: group %s", ledger.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

// saveGroup maps a stale-version save onto the engine's conflict kind. The
// caller re-reads and retries; the service never replays a transition onto
// state the engine did not see.
func (s *GroupService) saveGroup(ctx context.Context, group *models.Group) error {
	err := s.store.UpdateGroup(ctx, group)
	if errors.Is(err, storage.ErrVersionConflict) {
		return fmt.Errorf("%w: group %s was modified concurrently", ledger.ErrConflict, group.ID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: group %s", ledger.ErrNotFound, group.ID)
	}
	return err
}
