package service

import (
	"context"
	"time"

	"receipt-ledger/internal/models"
)

type ProfileStore interface {
	CreateIfAbsent(ctx context.Context, p *models.UserProfile) (bool, error)
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	List(ctx context.Context, status models.UserStatus, limit int) ([]*models.UserProfile, error)
	SetStatus(ctx context.Context, userID string, status models.UserStatus, at time.Time) error
	SetGroup(ctx context.Context, userID, groupID string, at time.Time) error
	ClearGroup(ctx context.Context, userID, groupID string, at time.Time) (bool, error)
}

type GroupStore interface {
	Create(ctx context.Context, g *models.Group) error
	Get(ctx context.Context, id string) (*models.Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type ReceiptStore interface {
	Create(ctx context.Context, r *models.Receipt) error
	Get(ctx context.Context, id string) (*models.Receipt, error)
	Replace(ctx context.Context, r *models.Receipt) error
	Delete(ctx context.Context, id string) error
	ListRecent(ctx context.Context, scope models.Scope, limit int) ([]*models.Receipt, error)
	ListInRange(ctx context.Context, scope models.Scope, start, end string) ([]*models.Receipt, error)
}

// Notifier delivers a plain-text message to a user outside the current reply.
type Notifier interface {
	Notify(ctx context.Context, userID, text string) error
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time
