// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/owemate/owemate/internal/models"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the addressed record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInviteCodeTaken indicates a group insert lost the race on the
	// invite-code uniqueness constraint. The caller should retry with a
	// fresh code.
	ErrInviteCodeTaken = errors.New("invite code already in use")

	// ErrVersionConflict indicates a save was built from a stale read of
	// the group aggregate. The caller must re-read and retry.
	ErrVersionConflict = errors.New("group version conflict")

	// ErrEmailTaken indicates a user insert collided on the email
	// uniqueness constraint.
	ErrEmailTaken = errors.New("email already registered")
)

// Store defines the persistence operations the ledger service requires.
// The group aggregate (members and expenses included) is always read and
// written whole. This abstraction allows swapping storage backends without
// changing the service layer.
type Store interface {
	// CreateGroup persists a new group aggregate. ID, CreatedAt, and
	// Version are populated by the store. Returns ErrInviteCodeTaken if
	// the invite code lost a uniqueness race.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a full group aggregate by ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByInviteCode retrieves a full group aggregate by its
	// (uppercase) invite code.
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsByMember retrieves all groups the user belongs to, newest
	// first.
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// UpdateGroup replaces the stored aggregate with the given state. The
	// write succeeds only if group.Version matches the stored version;
	// otherwise ErrVersionConflict is returned. On success the version is
	// incremented both in the store and on the passed group.
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup removes the group and everything embedded in it.
	DeleteGroup(ctx context.Context, groupID string) error

	// CreateSettlement appends a settlement audit record.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlementsByGroup retrieves a group's settlement history,
	// newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) when no
	// user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns (nil, nil) when absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
