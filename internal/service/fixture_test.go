package service_test

import (
	"context"
	"testing"
	"time"

	"receipt-ledger/internal/models"
	"receipt-ledger/internal/service"
	"receipt-ledger/internal/service/servicetest"

	"go.uber.org/zap"
)

const adminID = "1000"

type fixture struct {
	profiles *servicetest.ProfileStore
	groups   *servicetest.GroupStore
	receipts *servicetest.ReceiptStore
	notifier *servicetest.Notifier

	access  *service.ProfileService
	group   *service.GroupService
	receipt *service.ReceiptService
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		profiles: servicetest.NewProfileStore(),
		groups:   servicetest.NewGroupStore(),
		receipts: servicetest.NewReceiptStore(),
		notifier: &servicetest.Notifier{},
		now:      time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
	}
	clock := servicetest.FixedClock(f.now)
	logger := zap.NewNop()

	f.access = service.NewProfileService(f.profiles, f.notifier, adminID, clock, logger)
	f.group = service.NewGroupService(f.groups, f.profiles, f.access, clock, logger)
	f.receipt = service.NewReceiptService(f.receipts, f.group, f.access, clock, logger)
	return f
}

func (f *fixture) user(id string, status models.UserStatus) {
	f.profiles.Put(&models.UserProfile{
		TelegramUserID: id,
		Status:         status,
		RequestedAt:    f.now,
		CreatedAt:      f.now,
	})
}

func (f *fixture) profile(t *testing.T, id string) *models.UserProfile {
	t.Helper()
	p, err := f.access.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get profile %s: %v", id, err)
	}
	return p
}
