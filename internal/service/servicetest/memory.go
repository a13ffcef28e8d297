// Package servicetest provides in-memory stores and a recording notifier for
// tests of the service layer and the code built on it.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"receipt-ledger/internal/models"
	"receipt-ledger/internal/repository"
)

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type ProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	// Err, when set, is returned by every call.
	Err error
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: map[string]*models.UserProfile{}}
}

// Put stores a profile directly, bypassing CreateIfAbsent.
func (s *ProfileStore) Put(p *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.TelegramUserID] = &cp
}

func (s *ProfileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

func (s *ProfileStore) CreateIfAbsent(ctx context.Context, p *models.UserProfile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.profiles[p.TelegramUserID]; ok {
		return false, nil
	}
	cp := *p
	s.profiles[p.TelegramUserID] = &cp
	return true, nil
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *ProfileStore) List(ctx context.Context, status models.UserStatus, limit int) ([]*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*models.UserProfile
	for _, p := range s.profiles {
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ProfileStore) SetStatus(ctx context.Context, userID string, status models.UserStatus, at time.Time) error {
	return s.update(userID, func(p *models.UserProfile) {
		p.Status = status
		p.StatusUpdatedAt = &at
	})
}

func (s *ProfileStore) SetGroup(ctx context.Context, userID, groupID string, at time.Time) error {
	return s.update(userID, func(p *models.UserProfile) {
		p.GroupID = &groupID
		p.GroupJoinedAt = &at
	})
}

func (s *ProfileStore) ClearGroup(ctx context.Context, userID, groupID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	p, ok := s.profiles[userID]
	if !ok || p.CurrentGroup() != groupID {
		return false, nil
	}
	p.GroupID = nil
	p.GroupLeftAt = &at
	return true, nil
}

func (s *ProfileStore) update(userID string, fn func(*models.UserProfile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	fn(p)
	return nil
}

type GroupStore struct {
	mu     sync.Mutex
	groups map[string]*models.Group
	Err    error
}

func NewGroupStore() *GroupStore {
	return &GroupStore{groups: map[string]*models.Group{}}
}

// Len is the number of stored groups.
func (s *GroupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

func (s *GroupStore) Create(ctx context.Context, g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.groups[g.ID] = copyGroup(g)
	return nil
}

func (s *GroupStore) Get(ctx context.Context, id string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	g, ok := s.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyGroup(g), nil
}

func (s *GroupStore) AddMember(ctx context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	g, ok := s.groups[groupID]
	if !ok {
		return repository.ErrNotFound
	}
	if !g.HasMember(userID) {
		g.MemberUserIDs = append(g.MemberUserIDs, userID)
	}
	return nil
}

func (s *GroupStore) RemoveMember(ctx context.Context, groupID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	g, ok := s.groups[groupID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	kept := g.MemberUserIDs[:0]
	for _, id := range g.MemberUserIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	g.MemberUserIDs = kept
	return len(kept), nil
}

func (s *GroupStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.groups, id)
	return nil
}

func copyGroup(g *models.Group) *models.Group {
	cp := *g
	cp.MemberUserIDs = append([]string{}, g.MemberUserIDs...)
	return &cp
}

type ReceiptStore struct {
	mu       sync.Mutex
	receipts map[string]*models.Receipt
	Err      error
	// ListErr is returned by the list queries only.
	ListErr error
	Writes  int
}

func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{receipts: map[string]*models.Receipt{}}
}

// Put stores a receipt directly without counting a write.
func (s *ReceiptStore) Put(r *models.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[r.ID] = copyReceipt(r)
}

func (s *ReceiptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.receipts)
}

func (s *ReceiptStore) Create(ctx context.Context, r *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Writes++
	s.receipts[r.ID] = copyReceipt(r)
	return nil
}

func (s *ReceiptStore) Get(ctx context.Context, id string) (*models.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r, ok := s.receipts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyReceipt(r), nil
}

func (s *ReceiptStore) Replace(ctx context.Context, r *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.receipts[r.ID]; !ok {
		return repository.ErrNotFound
	}
	s.Writes++
	s.receipts[r.ID] = copyReceipt(r)
	return nil
}

func (s *ReceiptStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.receipts[id]; !ok {
		return repository.ErrNotFound
	}
	s.Writes++
	delete(s.receipts, id)
	return nil
}

func (s *ReceiptStore) ListRecent(ctx context.Context, scope models.Scope, limit int) ([]*models.Receipt, error) {
	out, err := s.filter(scope, func(*models.Receipt) bool { return true })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].UploadTimestamp.After(out[j].UploadTimestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ReceiptStore) ListInRange(ctx context.Context, scope models.Scope, start, end string) ([]*models.Receipt, error) {
	out, err := s.filter(scope, func(r *models.Receipt) bool {
		return r.Date >= start && r.Date <= end
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// filter applies the same scope rule as the Postgres store: the group's
// receipts, or the user's own receipts that carry no group.
func (s *ReceiptStore) filter(scope models.Scope, keep func(*models.Receipt) bool) ([]*models.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	var out []*models.Receipt
	for _, r := range s.receipts {
		if scope.Personal() {
			if r.TelegramUserID != scope.UserID || r.GroupID != nil {
				continue
			}
		} else if r.Group() != scope.GroupID {
			continue
		}
		if keep(r) {
			out = append(out, copyReceipt(r))
		}
	}
	return out, nil
}

func copyReceipt(r *models.Receipt) *models.Receipt {
	cp := *r
	cp.Items = append([]models.LineItem{}, r.Items...)
	return &cp
}

type Notification struct {
	UserID string
	Text   string
}

// Notifier records every notification. Err makes Notify fail after recording.
type Notifier struct {
	mu   sync.Mutex
	Sent []Notification
	Err  error
}

func (n *Notifier) Notify(ctx context.Context, userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, Notification{UserID: userID, Text: text})
	return n.Err
}

// To returns the texts sent to userID.
func (n *Notifier) To(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.Sent {
		if s.UserID == userID {
			out = append(out, s.Text)
		}
	}
	return out
}
