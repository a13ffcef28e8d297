package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"receipt-ledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var receiptColumns = []string{
	"id", "store_name", "to_char(date, 'YYYY-MM-DD')", "total_price::text", "COALESCE(currency_code, '')",
	"items", "telegram_user_id", "group_id", "upload_timestamp", "last_updated_at",
	"is_verified_by_user", "edited_by",
}

type ReceiptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReceiptRepository(db *pgxpool.Pool, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReceiptRepository) Create(ctx context.Context, rc *models.Receipt) error {
	items, err := marshalItems(rc.Items)
	if err != nil {
		return err
	}

	query := squirrel.Insert("receipts").
		Columns("id", "store_name", "date", "total_price", "currency_code", "items",
			"telegram_user_id", "group_id", "upload_timestamp", "last_updated_at",
			"is_verified_by_user", "edited_by").
		Values(rc.ID, rc.StoreName,
			squirrel.Expr("?::date", rc.Date),
			squirrel.Expr("?::numeric", decimalText(rc.TotalPrice)),
			nullableString(rc.CurrencyCode),
			squirrel.Expr("?::jsonb", items),
			rc.TelegramUserID, rc.GroupID, rc.UploadTimestamp, rc.LastUpdatedAt,
			rc.IsVerifiedByUser, rc.EditedBy).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *ReceiptRepository) Get(ctx context.Context, id string) (*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rc, err := scanReceipt(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return rc, nil
}

// Replace overwrites the mutable fields. Uploader, upload time and group stay as stored.
func (r *ReceiptRepository) Replace(ctx context.Context, rc *models.Receipt) error {
	items, err := marshalItems(rc.Items)
	if err != nil {
		return err
	}

	query := squirrel.Update("receipts").
		Set("store_name", rc.StoreName).
		Set("date", squirrel.Expr("?::date", rc.Date)).
		Set("total_price", squirrel.Expr("?::numeric", decimalText(rc.TotalPrice))).
		Set("currency_code", nullableString(rc.CurrencyCode)).
		Set("items", squirrel.Expr("?::jsonb", items)).
		Set("last_updated_at", rc.LastUpdatedAt).
		Set("is_verified_by_user", rc.IsVerifiedByUser).
		Set("edited_by", rc.EditedBy).
		Where(squirrel.Eq{"id": rc.ID}).
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
		return ErrNotFound
	}
	return nil
}

func (r *ReceiptRepository) Delete(ctx context.Context, id string) error {
	query := squirrel.Delete("receipts").
		Where(squirrel.Eq{"id": id}).
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
		return ErrNotFound
	}
	return nil
}

// ListRecent returns the newest receipts in scope, by date then upload time.
func (r *ReceiptRepository) ListRecent(ctx context.Context, scope models.Scope, limit int) ([]*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(scopeFilter(scope)).
		OrderBy("date DESC", "upload_timestamp DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	return r.list(ctx, query)
}

// ListInRange returns every receipt in scope dated within [start, end].
func (r *ReceiptRepository) ListInRange(ctx context.Context, scope models.Scope, start, end string) ([]*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(scopeFilter(scope)).
		Where(squirrel.Expr("date >= ?::date", start)).
		Where(squirrel.Expr("date <= ?::date", end)).
		OrderBy("date ASC", "upload_timestamp ASC").
		PlaceholderFormat(squirrel.Dollar)

	return r.list(ctx, query)
}

func (r *ReceiptRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Receipt, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, rc)
	}
	return receipts, mapError(rows.Err())
}

func scopeFilter(scope models.Scope) squirrel.Sqlizer {
	if !scope.Personal() {
		return squirrel.Eq{"group_id": scope.GroupID}
	}
	return squirrel.Eq{"telegram_user_id": scope.UserID, "group_id": nil}
}

func scanReceipt(row pgx.Row) (*models.Receipt, error) {
	var (
		rc    models.Receipt
		total *string
		items []byte
	)
	if err := row.Scan(
		&rc.ID, &rc.StoreName, &rc.Date, &total, &rc.CurrencyCode,
		&items, &rc.TelegramUserID, &rc.GroupID, &rc.UploadTimestamp, &rc.LastUpdatedAt,
		&rc.IsVerifiedByUser, &rc.EditedBy,
	); err != nil {
		return nil, err
	}

	if total != nil {
		d, err := decimal.NewFromString(*total)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total of receipt %s: %w", rc.ID, err)
		}
		rc.TotalPrice = &d
	}

	rc.Items = []models.LineItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &rc.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of receipt %s: %w", rc.ID, err)
		}
	}
	return &rc, nil
}

func marshalItems(items []models.LineItem) (string, error) {
	if items == nil {
		items = []models.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	return string(data), nil
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
