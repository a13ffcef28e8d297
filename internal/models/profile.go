package models

import "time"

type UserStatus string

const (
	StatusPendingApproval UserStatus = "pending_approval"
	StatusApproved        UserStatus = "approved"
	StatusBanned          UserStatus = "banned"
)

// ParseUserStatus accepts the stored status names plus "pending" as a shorthand.
func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(s) {
	case StatusPendingApproval, "pending":
		return StatusPendingApproval, true
	case StatusApproved:
		return StatusApproved, true
	case StatusBanned:
		return StatusBanned, true
	}
	return "", false
}

type UserProfile struct {
	TelegramUserID  string     `db:"telegram_user_id"`
	Status          UserStatus `db:"status"`
	GroupID         *string    `db:"group_id"`
	RequestedAt     time.Time  `db:"requested_at"`
	CreatedAt       time.Time  `db:"created_at"`
	StatusUpdatedAt *time.Time `db:"status_updated_at"`
	GroupJoinedAt   *time.Time `db:"group_joined_at"`
	GroupLeftAt     *time.Time `db:"group_left_at"`
}

func (p *UserProfile) CurrentGroup() string {
	if p == nil || p.GroupID == nil {
		return ""
	}
	return *p.GroupID
}
