package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/owemate/owemate/internal/models"
	"github.com/owemate/owemate/internal/storage"
)

// CreateGroup persists a new group aggregate. ID, timestamps, and version
// are backfilled on the model. An invite-code uniqueness race surfaces as
// storage.ErrInviteCodeTaken so the caller can retry with a fresh code.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	group.UpdatedAt = group.CreatedAt
	group.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, image_url, created_by, invite_code, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.ImageURL,
		group.CreatedBy, group.InviteCode, group.CreatedAt, group.UpdatedAt, group.Version,
	)
	if isUniqueViolation(err, "groups.invite_code") {
		return storage.ErrInviteCodeTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group); err != nil {
		return err
	}
	if err := insertExpenses(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateGroup replaces the stored aggregate, guarded by the version token.
// A save built from a stale read returns storage.ErrVersionConflict and
// leaves the stored state untouched.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE groups
		 SET name = ?, description = ?, image_url = ?, created_by = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		group.Name, group.Description, group.ImageURL, group.CreatedBy, now,
		group.ID, group.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", group.ID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: group %s", storage.ErrNotFound, group.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to check group existence: %w", err)
		}
		return fmt.Errorf("%w: group %s at version %d", storage.ErrVersionConflict, group.ID, group.Version)
	}

	// Replace the embedded members and expenses wholesale. Split rows go
	// with their expenses via the cascade.
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear expenses: %w", err)
	}
	if err := insertMembers(ctx, tx, group); err != nil {
		return err
	}
	if err := insertExpenses(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	group.Version++
	group.UpdatedAt = now
	return nil
}

// DeleteGroup removes the group and all embedded members, expenses, and
// splits in one cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	return nil
}

// GetGroup retrieves a full group aggregate by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.getGroupWhere(ctx, "id = ?", groupID)
}

// GetGroupByInviteCode retrieves a full group aggregate by invite code.
// Codes are stored uppercase; the caller normalizes input.
func (s *SQLiteStore) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	return s.getGroupWhere(ctx, "invite_code = ?", code)
}

// ListGroupsByMember retrieves all groups the user belongs to, newest first.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at DESC, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *SQLiteStore) getGroupWhere(ctx context.Context, where string, arg any) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, image_url, created_by, invite_code, created_at, updated_at, version
		 FROM groups WHERE `+where,
		arg,
	).Scan(&group.ID, &group.Name, &group.Description, &group.ImageURL,
		&group.CreatedBy, &group.InviteCode, &group.CreatedAt, &group.UpdatedAt, &group.Version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: group", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if err := s.loadMembers(ctx, group); err != nil {
		return nil, err
	}
	if err := s.loadExpenses(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, group *models.Group) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, email, amount_owed, amount_lent
		 FROM group_members WHERE group_id = ? ORDER BY position`,
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.AmountOwed, &m.AmountLent); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		group.Members = append(group.Members, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadExpenses(ctx context.Context, group *models.Group) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, paid_by, paid_by_name, amount, description, category, date
		 FROM expenses WHERE group_id = ? ORDER BY position`,
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.PaidBy, &e.PaidByName, &e.Amount, &e.Description, &e.Category, &e.Date); err != nil {
			return fmt.Errorf("failed to scan expense: %w", err)
		}
		group.Expenses = append(group.Expenses, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if len(group.Expenses) == 0 {
		return nil
	}

	// One query for all splits instead of one per expense.
	byID := make(map[string]*models.Expense, len(group.Expenses))
	args := make([]any, len(group.Expenses))
	for i := range group.Expenses {
		byID[group.Expenses[i].ID] = &group.Expenses[i]
		args[i] = group.Expenses[i].ID
	}

	splitRows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, member_id, member_name, amount
		 FROM expense_splits
		 WHERE expense_id IN (?`+repeatPlaceholder(len(args)-1)+`)
		 ORDER BY expense_id, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to get splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID string
		var sp models.Split
		if err := splitRows.Scan(&expenseID, &sp.MemberID, &sp.MemberName, &sp.Amount); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if expense := byID[expenseID]; expense != nil {
			expense.Splits = append(expense.Splits, sp)
		}
	}
	if err := splitRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}
	return nil
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	result := ""
	for i := 0; i < n; i++ {
		result += ", ?"
	}
	return result
}

func insertMembers(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	for i, m := range group.Members {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, name, email, amount_owed, amount_lent, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			group.ID, m.UserID, m.Name, m.Email, m.AmountOwed, m.AmountLent, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

func insertExpenses(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	for i := range group.Expenses {
		expense := &group.Expenses[i]
		if expense.ID == "" {
			expense.ID = uuid.New().String()
		}
		if expense.Date == 0 {
			expense.Date = time.Now().Unix()
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (id, group_id, paid_by, paid_by_name, amount, description, category, date, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, group.ID, expense.PaidBy, expense.PaidByName,
			expense.Amount, expense.Description, expense.Category, expense.Date, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		for j, sp := range expense.Splits {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO expense_splits (expense_id, member_id, member_name, amount, position)
				 VALUES (?, ?, ?, ?, ?)`,
				expense.ID, sp.MemberID, sp.MemberName, sp.Amount, j,
			)
			if err != nil {
				return fmt.Errorf("failed to insert split: %w", err)
			}
		}
	}
	return nil
}
