package repository

import (
	"context"
	"time"

	"receipt-ledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var profileColumns = []string{
	"telegram_user_id", "status", "group_id", "requested_at", "created_at",
	"status_updated_at", "group_joined_at", "group_left_at",
}

type ProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProfileRepository(db *pgxpool.Pool, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// CreateIfAbsent inserts the profile unless one already exists and reports whether it did.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *models.UserProfile) (bool, error) {
	query := squirrel.Insert("user_profiles").
		Columns("telegram_user_id", "status", "requested_at", "created_at").
		Values(p.TelegramUserID, p.Status, p.RequestedAt, p.CreatedAt).
		Suffix("ON CONFLICT (telegram_user_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := squirrel.Select(profileColumns...).
		From("user_profiles").
		Where(squirrel.Eq{"telegram_user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	p, err := scanProfile(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *ProfileRepository) List(ctx context.Context, status models.UserStatus, limit int) ([]*models.UserProfile, error) {
	query := squirrel.Select(profileColumns...).
		From("user_profiles").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)
	if status != "" {
		query = query.Where(squirrel.Eq{"status": status})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var profiles []*models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, mapError(rows.Err())
}

func (r *ProfileRepository) SetStatus(ctx context.Context, userID string, status models.UserStatus, at time.Time) error {
	query := squirrel.Update("user_profiles").
		Set("status", status).
		Set("status_updated_at", at).
		Where(squirrel.Eq{"telegram_user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	return r.execOne(ctx, query)
}

// SetGroup points the profile at a group without touching any other field.
func (r *ProfileRepository) SetGroup(ctx context.Context, userID, groupID string, at time.Time) error {
	query := squirrel.Update("user_profiles").
		Set("group_id", groupID).
		Set("group_joined_at", at).
		Where(squirrel.Eq{"telegram_user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	return r.execOne(ctx, query)
}

// ClearGroup removes the profile's group reference only while it still equals groupID.
func (r *ProfileRepository) ClearGroup(ctx context.Context, userID, groupID string, at time.Time) (bool, error) {
	query := squirrel.Update("user_profiles").
		Set("group_id", nil).
		Set("group_left_at", at).
		Where(squirrel.Eq{"telegram_user_id": userID, "group_id": groupID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ProfileRepository) execOne(ctx context.Context, query squirrel.UpdateBuilder) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := row.Scan(
		&p.TelegramUserID, &p.Status, &p.GroupID, &p.RequestedAt, &p.CreatedAt,
		&p.StatusUpdatedAt, &p.GroupJoinedAt, &p.GroupLeftAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
