package service_test

import (
	"context"
	"errors"
	"testing"

	"receipt-ledger/internal/models"
	"receipt-ledger/internal/service"
)

func TestEnsureProfileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.access.EnsureProfile(ctx, "42")
	if err != nil || !created {
		t.Fatalf("first EnsureProfile: created=%v err=%v", created, err)
	}
	second, created, err := f.access.EnsureProfile(ctx, "42")
	if err != nil || created {
		t.Fatalf("second EnsureProfile: created=%v err=%v", created, err)
	}

	if first.Status != models.StatusPendingApproval || second.Status != first.Status {
		t.Errorf("status = %s then %s", first.Status, second.Status)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("profile changed between calls")
	}
	if got := f.notifier.To("42"); len(got) != 1 || got[0] != service.WelcomeNotice("42") {
		t.Errorf("notifications = %v, want exactly one welcome notice", got)
	}
}

func TestEnsureProfileAdminStartsApproved(t *testing.T) {
	f := newFixture(t)

	p, created, err := f.access.EnsureProfile(context.Background(), adminID)
	if err != nil || !created {
		t.Fatalf("EnsureProfile: created=%v err=%v", created, err)
	}
	if p.Status != models.StatusApproved {
		t.Errorf("status = %s, want approved", p.Status)
	}
	if len(f.notifier.Sent) != 0 {
		t.Errorf("admin should not be notified, got %v", f.notifier.Sent)
	}
}

func TestIsApproved(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.user("2", models.StatusPendingApproval)
	f.user("3", models.StatusBanned)

	tests := []struct {
		id   string
		want bool
	}{
		{adminID, true},
		{"1", true},
		{"2", false},
		{"3", false},
		{"unknown", false},
	}
	for _, tt := range tests {
		got, err := f.access.IsApproved(context.Background(), tt.id)
		if err != nil {
			t.Fatalf("IsApproved(%s): %v", tt.id, err)
		}
		if got != tt.want {
			t.Errorf("IsApproved(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestIsAdminWithoutConfiguredAdmin(t *testing.T) {
	f := newFixture(t)
	if f.access.IsAdmin("") {
		t.Error("empty id must not be admin")
	}
	none := service.NewProfileService(f.profiles, nil, "", nil, nil)
	if none.IsAdmin("") || none.IsAdmin(adminID) {
		t.Error("nobody is admin when no admin id is configured")
	}
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user("7", models.StatusPendingApproval)

	status, err := f.access.SetStatus(ctx, "7", "approved")
	if err != nil || status != models.StatusApproved {
		t.Fatalf("SetStatus: %s %v", status, err)
	}
	if f.profile(t, "7").StatusUpdatedAt == nil {
		t.Error("status_updated_at not set")
	}

	if _, err := f.access.SetStatus(ctx, "7", "banned"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	want := []string{service.ApprovedNotice, service.BannedNotice}
	got := f.notifier.To("7")
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("notifications = %v, want %v", got, want)
	}

	if _, err := f.access.SetStatus(ctx, "7", "superuser"); err == nil {
		t.Error("invalid status accepted")
	}

	var nf *service.NotFoundError
	if _, err := f.access.SetStatus(ctx, "404", "approved"); !errors.As(err, &nf) {
		t.Errorf("unknown user: err = %v, want NotFoundError", err)
	}
}

func TestSetStatusSwallowsNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.user("7", models.StatusPendingApproval)
	f.notifier.Err = errors.New("bot was blocked by the user")

	if _, err := f.access.SetStatus(context.Background(), "7", "approved"); err != nil {
		t.Fatalf("notification failure leaked: %v", err)
	}
	if f.profile(t, "7").Status != models.StatusApproved {
		t.Error("status not changed")
	}
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	f.user("1", models.StatusApproved)
	f.user("2", models.StatusPendingApproval)
	f.user("3", models.StatusPendingApproval)

	users, label, err := f.access.ListUsers(context.Background(), "pending")
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if label != "pending_approval" || len(users) != 2 {
		t.Errorf("label=%q users=%d", label, len(users))
	}

	users, label, _ = f.access.ListUsers(context.Background(), "")
	if label != "all" || len(users) != 3 {
		t.Errorf("label=%q users=%d", label, len(users))
	}
}

func TestStoreFailureIsWrapped(t *testing.T) {
	f := newFixture(t)
	f.profiles.Err = errors.New("connection reset")

	_, _, err := f.access.EnsureProfile(context.Background(), "1")
	if !errors.Is(err, service.ErrStore) {
		t.Fatalf("err = %v, want ErrStore", err)
	}
}
