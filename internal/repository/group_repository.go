package repository

import (
	"context"

	"receipt-ledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type GroupRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewGroupRepository(db *pgxpool.Pool, logger *zap.Logger) *GroupRepository {
	return &GroupRepository{
		db:     db,
		logger: logger,
	}
}

func (r *GroupRepository) Create(ctx context.Context, g *models.Group) error {
	members := g.MemberUserIDs
	if members == nil {
		members = []string{}
	}

	query := squirrel.Insert("groups").
		Columns("id", "group_name", "owner_id", "created_at", "member_user_ids").
		Values(g.ID, g.GroupName, g.OwnerID, g.CreatedAt, members).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *GroupRepository) Get(ctx context.Context, id string) (*models.Group, error) {
	query := squirrel.Select("id", "group_name", "owner_id", "created_at", "member_user_ids").
		From("groups").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var g models.Group
	err = r.db.QueryRow(ctx, sql, args...).Scan(&g.ID, &g.GroupName, &g.OwnerID, &g.CreatedAt, &g.MemberUserIDs)
	if err != nil {
		return nil, mapError(err)
	}
	return &g, nil
}

// AddMember appends userID to the member set unless it is already present.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	query := squirrel.Update("groups").
		Set("member_user_ids", squirrel.Expr("array_append(member_user_ids, ?::text)", userID)).
		Where(squirrel.Eq{"id": groupID}).
		Where(squirrel.Expr("NOT (?::text = ANY(member_user_ids))", userID)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		// either already a member or no such group
		if _, err := r.Get(ctx, groupID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMember drops userID from the member set and returns how many members remain.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) (int, error) {
	query := squirrel.Update("groups").
		Set("member_user_ids", squirrel.Expr("array_remove(member_user_ids, ?::text)", userID)).
		Where(squirrel.Eq{"id": groupID}).
		Suffix("RETURNING cardinality(member_user_ids)").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var remaining int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&remaining); err != nil {
		return 0, mapError(err)
	}
	return remaining, nil
}

func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	query := squirrel.Delete("groups").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}
