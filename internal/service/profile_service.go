package service

import (
	"context"
	"errors"
	"fmt"

	"receipt-ledger/internal/models"
	"receipt-ledger/internal/repository"

	"go.uber.org/zap"
)

const MaxListedUsers = 50

const (
	ApprovedNotice = "Your account has been approved! You can now use the bot. Send /menu or an image."
	BannedNotice   = "Your account access has been restricted by the administrator."
)

// WelcomeNotice is sent once, when a non-admin profile is first created.
func WelcomeNotice(userID string) string {
	return fmt.Sprintf("Welcome! To use this service, your account needs approval.\n"+
		"Your User ID is: %s\n"+
		"Please send this ID to the administrator.", userID)
}

type ProfileService struct {
	profiles ProfileStore
	notifier Notifier
	adminID  string
	now      Clock
	logger   *zap.Logger
}

func NewProfileService(profiles ProfileStore, notifier Notifier, adminID string, now Clock, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		notifier: notifier,
		adminID:  adminID,
		now:      now,
		logger:   logger,
	}
}

// IsAdmin reports an exact match against the configured admin id. No admin id means no admin.
func (s *ProfileService) IsAdmin(userID string) bool {
	return s.adminID != "" && userID == s.adminID
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "User ID", ID: userID}
	}
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	return p, nil
}

// EnsureProfile returns the stored profile, creating it on first contact. The
// admin starts approved, everybody else pending. A newly created pending
// profile gets the welcome notice exactly once.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, storeErr("get profile", err)
	}

	status := models.StatusPendingApproval
	if s.IsAdmin(userID) {
		status = models.StatusApproved
	}
	now := s.now()
	p = &models.UserProfile{
		TelegramUserID: userID,
		Status:         status,
		RequestedAt:    now,
		CreatedAt:      now,
	}

	created, err := s.profiles.CreateIfAbsent(ctx, p)
	if err != nil {
		return nil, false, storeErr("create profile", err)
	}
	if !created {
		// lost a race with a concurrent first contact
		p, err = s.profiles.Get(ctx, userID)
		if err != nil {
			return nil, false, storeErr("get profile", err)
		}
		return p, false, nil
	}

	s.logger.Info("Created user profile", zap.String("user_id", userID), zap.String("status", string(status)))
	if status == models.StatusPendingApproval {
		s.notify(ctx, userID, WelcomeNotice(userID))
	}
	return p, true, nil
}

// IsApproved is true for the admin and for approved profiles.
func (s *ProfileService) IsApproved(ctx context.Context, userID string) (bool, error) {
	if s.IsAdmin(userID) {
		return true, nil
	}
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("get profile", err)
	}
	return p.Status == models.StatusApproved, nil
}

// SetStatus changes a user's status and notifies them on approval or ban. Notification failures are logged only.
func (s *ProfileService) SetStatus(ctx context.Context, userID, rawStatus string) (models.UserStatus, error) {
	status, ok := models.ParseUserStatus(rawStatus)
	if !ok {
		return "", invalidf("Invalid status. Use 'approved', 'banned', or 'pending_approval'.")
	}

	err := s.profiles.SetStatus(ctx, userID, status, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return "", &NotFoundError{Entity: "User ID", ID: userID}
	}
	if err != nil {
		return "", storeErr("set status", err)
	}

	s.logger.Info("User status changed", zap.String("user_id", userID), zap.String("status", string(status)))
	switch status {
	case models.StatusApproved:
		s.notify(ctx, userID, ApprovedNotice)
	case models.StatusBanned:
		s.notify(ctx, userID, BannedNotice)
	}
	return status, nil
}

// ListUsers returns up to MaxListedUsers profiles, newest first. An unrecognised
// filter lists everybody.
func (s *ProfileService) ListUsers(ctx context.Context, filter string) ([]*models.UserProfile, string, error) {
	status, ok := models.ParseUserStatus(filter)
	label := string(status)
	if !ok {
		status, label = "", "all"
	}

	profiles, err := s.profiles.List(ctx, status, MaxListedUsers)
	if err != nil {
		return nil, label, storeErr("list profiles", err)
	}
	return profiles, label, nil
}

func (s *ProfileService) notify(ctx context.Context, userID, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, text); err != nil {
		s.logger.Warn("Failed to notify user", zap.String("user_id", userID), zap.Error(err))
	}
}
