package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"receipt-ledger/internal/dto"
	"receipt-ledger/internal/models"
	"receipt-ledger/internal/repository"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

const MaxListedReceipts = 20

const editUsage = "Usage: `/edit <RECEIPT_REF_ID>` followed by the corrected JSON data, " +
	"or the text format shown by /edithelp."

type ReceiptService struct {
	receipts ReceiptStore
	groups   *GroupService
	access   *ProfileService
	now      Clock
	logger   *zap.Logger
}

func NewReceiptService(receipts ReceiptStore, groups *GroupService, access *ProfileService, now Clock, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		receipts: receipts,
		groups:   groups,
		access:   access,
		now:      now,
		logger:   logger,
	}
}

// Save persists a draft as a new, unverified receipt. groupID may be empty.
func (s *ReceiptService) Save(ctx context.Context, draft *dto.ReceiptDraft, uploaderID, groupID string) (*models.Receipt, error) {
	now := s.now()
	receipt := &models.Receipt{
		ID:               ksuid.New().String(),
		StoreName:        draft.StoreName,
		Date:             draft.Date,
		TotalPrice:       draft.TotalPrice,
		CurrencyCode:     draft.CurrencyCode,
		Items:            draft.Items,
		TelegramUserID:   uploaderID,
		UploadTimestamp:  now,
		LastUpdatedAt:    now,
		IsVerifiedByUser: false,
	}
	if receipt.Items == nil {
		receipt.Items = []models.LineItem{}
	}
	if groupID != "" {
		receipt.GroupID = &groupID
	}

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, storeErr("save receipt", err)
	}
	s.logger.Info("Receipt saved",
		zap.String("receipt_id", receipt.ID),
		zap.String("user_id", uploaderID),
		zap.String("group_id", groupID))
	return receipt, nil
}

func (s *ReceiptService) Get(ctx context.Context, id string) (*models.Receipt, error) {
	r, err := s.receipts.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Receipt", ID: id}
	}
	if err != nil {
		return nil, storeErr("get receipt", err)
	}
	return r, nil
}

// View returns a receipt the actor may see: admin, uploader, or a member of the receipt's group.
func (s *ReceiptService) View(ctx context.Context, actorID, id string) (*models.Receipt, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeShared(ctx, actorID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// PrepareDelete checks that the actor may delete the receipt, without deleting it.
func (s *ReceiptService) PrepareDelete(ctx context.Context, actorID, id string) (*models.Receipt, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canDelete(actorID, r) {
		return nil, ErrForbidden
	}
	return r, nil
}

// Delete re-checks authorization at execution time, then removes the receipt.
func (s *ReceiptService) Delete(ctx context.Context, actorID, id string) (*models.Receipt, error) {
	r, err := s.PrepareDelete(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	err = s.receipts.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Receipt", ID: id}
	}
	if err != nil {
		return nil, storeErr("delete receipt", err)
	}
	s.logger.Info("Receipt deleted", zap.String("receipt_id", id), zap.String("actor_id", actorID))
	return r, nil
}

// Edit replaces the mutable fields of a receipt with draft. An empty draft date keeps the stored date.
func (s *ReceiptService) Edit(ctx context.Context, actorID, id string, draft *dto.ReceiptDraft) (*models.Receipt, error) {
	return s.replace(ctx, actorID, id, func(*models.Receipt) *dto.ReceiptDraft {
		return draft
	})
}

// EditFromArgs handles the text after /edit. "<id> {json}" (optionally fenced)
// is a full JSON replacement; anything else is parsed as the Ref:/Store:/... text format.
// Input is fully parsed before the receipt is read or written.
func (s *ReceiptService) EditFromArgs(ctx context.Context, actorID, args string) (*models.Receipt, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return nil, invalidf(editUsage)
	}

	id, body := args, ""
	if i := strings.IndexAny(args, " \t\r\n"); i >= 0 {
		id, body = args[:i], strings.TrimSpace(args[i+1:])
	}
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "```") {
		draft, err := dto.DecodeDraft([]byte(CleanJSONOutput(body)))
		if err != nil {
			if errors.Is(err, dto.ErrNotObject) {
				return nil, invalidf("Error: The corrected data must be a valid JSON object.")
			}
			return nil, invalidf("Error: The JSON data you provided is invalid. Please check the syntax.\nDetails: %v", err)
		}
		return s.Edit(ctx, actorID, id, draft)
	}

	edit, err := ParseTextEdit(args)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, actorID, edit.ReceiptID, edit.Apply)
}

func (s *ReceiptService) replace(ctx context.Context, actorID, id string, build func(*models.Receipt) *dto.ReceiptDraft) (*models.Receipt, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeShared(ctx, actorID, original); err != nil {
		return nil, err
	}

	draft := build(original)
	if draft.Date == "" {
		draft.Date = original.Date
	}
	if _, err := time.Parse(models.DateLayout, draft.Date); err != nil {
		return nil, invalidf("Invalid format for Date: '%s'. Must be YYYY-MM-DD.", draft.Date)
	}
	if len(draft.UnknownCategories) > 0 {
		s.logger.Info("Edited categories not in the predefined list, stored as Other",
			zap.String("receipt_id", id),
			zap.Strings("categories", draft.UnknownCategories))
	}

	editor := actorID
	updated := &models.Receipt{
		ID:               original.ID,
		StoreName:        draft.StoreName,
		Date:             draft.Date,
		TotalPrice:       draft.TotalPrice,
		CurrencyCode:     draft.CurrencyCode,
		Items:            draft.Items,
		TelegramUserID:   original.TelegramUserID,
		GroupID:          original.GroupID,
		UploadTimestamp:  original.UploadTimestamp,
		LastUpdatedAt:    s.now(),
		IsVerifiedByUser: true,
		EditedBy:         &editor,
	}
	if updated.Items == nil {
		updated.Items = []models.LineItem{}
	}

	err = s.receipts.Replace(ctx, updated)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Receipt", ID: id}
	}
	if err != nil {
		return nil, storeErr("update receipt", err)
	}
	s.logger.Info("Receipt edited", zap.String("receipt_id", id), zap.String("actor_id", actorID))
	return updated, nil
}

// ListRecent returns up to MaxListedReceipts receipts in the user's scope, newest first.
func (s *ReceiptService) ListRecent(ctx context.Context, userID string) ([]*models.Receipt, models.Scope, error) {
	scope, err := s.groups.ResolveScope(ctx, userID)
	if err != nil {
		return nil, scope, err
	}
	receipts, err := s.receipts.ListRecent(ctx, scope, MaxListedReceipts)
	if err != nil {
		return nil, scope, queryErr("list receipts", err)
	}
	return receipts, scope, nil
}

// AggregateRange reports over the closed date range [start, end] in the user's scope.
func (s *ReceiptService) AggregateRange(ctx context.Context, userID, start, end string, mode AggregationMode) (*Report, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	scope, err := s.groups.ResolveScope(ctx, userID)
	if err != nil {
		return nil, err
	}

	receipts, err := s.receipts.ListInRange(ctx, scope, start, end)
	if err != nil {
		return nil, queryErr("aggregate receipts", err)
	}

	report := Aggregate(receipts, mode)
	report.Scope = scope
	report.Start = start
	report.End = end
	if report.Skipped > 0 {
		s.logger.Warn("Skipped receipts with a non-numeric total",
			zap.String("user_id", userID),
			zap.Int("skipped", report.Skipped))
	}
	return report, nil
}

// AggregateMonth reports over one "YYYY-MM" month. An empty month means the current one.
func (s *ReceiptService) AggregateMonth(ctx context.Context, userID, month string, mode AggregationMode) (*Report, error) {
	if month == "" {
		month = CurrentMonth(s.now())
	}
	start, end, err := MonthRange(month)
	if err != nil {
		return nil, err
	}
	return s.AggregateRange(ctx, userID, start, end, mode)
}

func (s *ReceiptService) canDelete(actorID string, r *models.Receipt) bool {
	return s.access.IsAdmin(actorID) || r.TelegramUserID == actorID
}

func (s *ReceiptService) authorizeShared(ctx context.Context, actorID string, r *models.Receipt) error {
	if s.canDelete(actorID, r) {
		return nil
	}
	if r.GroupID == nil {
		return ErrForbidden
	}
	current, err := s.groups.CurrentGroupID(ctx, actorID)
	if err != nil {
		return err
	}
	if current != *r.GroupID {
		return ErrForbidden
	}
	return nil
}

func queryErr(op string, err error) error {
	if errors.Is(err, repository.ErrMissingIndex) {
		return fmt.Errorf("failed to %s: %w: %w", op, ErrMissingIndex, err)
	}
	return storeErr(op, err)
}
