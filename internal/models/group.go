package models

import "time"

type Group struct {
	ID            string    `db:"id"`
	GroupName     string    `db:"group_name"`
	OwnerID       string    `db:"owner_id"`
	CreatedAt     time.Time `db:"created_at"`
	MemberUserIDs []string  `db:"member_user_ids"`
}

func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Scope is the query boundary for a user: their group when GroupID is set, else their own uploads.
type Scope struct {
	UserID    string
	GroupID   string
	GroupName string
}

func (s Scope) Personal() bool {
	return s.GroupID == ""
}
