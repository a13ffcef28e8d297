package service

import (
	"context"
	"errors"
	"strings"

	"receipt-ledger/internal/models"
	"receipt-ledger/internal/repository"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

type CreateGroupResult struct {
	Group *models.Group
	// Added are the members whose profiles now point at the group.
	Added []string
	// Skipped are requested ids that do not exist or are not approved.
	Skipped []string
	// Failed are members whose profile update failed after the group was written.
	Failed []string
}

type LeaveResult struct {
	GroupID      string
	GroupName    string
	GroupDeleted bool
}

type AddMemberResult struct {
	Group         *models.Group
	AlreadyMember bool
	// Previous is the group the user was moved out of, if any.
	Previous *LeaveResult
}

type DeleteGroupResult struct {
	GroupName string
	Cleared   []string
}

type GroupService struct {
	groups   GroupStore
	profiles ProfileStore
	access   *ProfileService
	now      Clock
	logger   *zap.Logger
}

func NewGroupService(groups GroupStore, profiles ProfileStore, access *ProfileService, now Clock, logger *zap.Logger) *GroupService {
	return &GroupService{
		groups:   groups,
		profiles: profiles,
		access:   access,
		now:      now,
		logger:   logger,
	}
}

// CreateGroup creates a group owned by actorID. A regular user must be approved
// and not already grouped, and becomes the sole member. The admin may name
// initial members (unknown or unapproved ids are skipped) or none, and is not
// added to the group.
func (s *GroupService) CreateGroup(ctx context.Context, actorID, name string, initialMemberIDs []string) (*CreateGroupResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("Group name cannot be empty.")
	}

	result := &CreateGroupResult{}
	var members []string
	previous := map[string]string{}

	if s.access.IsAdmin(actorID) {
		seen := map[string]bool{}
		for _, id := range initialMemberIDs {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true

			p, err := s.profiles.Get(ctx, id)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, storeErr("get profile", err)
			}
			if p == nil || p.Status != models.StatusApproved {
				s.logger.Info("Skipping group member", zap.String("user_id", id))
				result.Skipped = append(result.Skipped, id)
				continue
			}
			if current := p.CurrentGroup(); current != "" {
				previous[id] = current
			}
			members = append(members, id)
		}
	} else {
		approved, err := s.access.IsApproved(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !approved {
			return nil, ErrForbidden
		}
		p, err := s.profiles.Get(ctx, actorID)
		if err != nil {
			return nil, storeErr("get profile", err)
		}
		if p.CurrentGroup() != "" {
			return nil, ErrAlreadyInGroup
		}
		members = []string{actorID}
	}

	group := &models.Group{
		ID:            ksuid.New().String(),
		GroupName:     name,
		OwnerID:       actorID,
		CreatedAt:     s.now(),
		MemberUserIDs: members,
	}
	if group.MemberUserIDs == nil {
		group.MemberUserIDs = []string{}
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, storeErr("create group", err)
	}
	result.Group = group

	for _, id := range members {
		if prev := previous[id]; prev != "" {
			s.logger.Info("Moving member out of previous group", zap.String("user_id", id), zap.String("group_id", prev))
			if _, err := s.detach(ctx, id, prev); err != nil && !isNotFound(err) {
				s.logger.Error("Failed to leave previous group", zap.String("user_id", id), zap.Error(err))
			}
		}
		if err := s.attach(ctx, id, group.ID); err != nil {
			s.logger.Error("Failed to attach member to new group",
				zap.String("user_id", id), zap.String("group_id", group.ID), zap.Error(err))
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Added = append(result.Added, id)
	}

	s.logger.Info("Group created",
		zap.String("group_id", group.ID),
		zap.String("owner_id", actorID),
		zap.Int("members", len(result.Added)),
	)
	return result, nil
}

// AddMember puts an approved user into an existing group, moving them out of
// any previous group first.
func (s *GroupService) AddMember(ctx context.Context, userID, groupID string) (*AddMemberResult, error) {
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "User ID", ID: userID}
	}
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	if p.Status != models.StatusApproved {
		return nil, invalidf("User %s is not approved (status: %s).", userID, p.Status)
	}

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	result := &AddMemberResult{Group: group}
	if current := p.CurrentGroup(); current == groupID {
		if group.HasMember(userID) {
			result.AlreadyMember = true
			return result, nil
		}
	} else if current != "" {
		prev, err := s.detach(ctx, userID, current)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		result.Previous = prev
	}

	if err := s.attach(ctx, userID, groupID); err != nil {
		return nil, err
	}
	group.MemberUserIDs = appendUnique(group.MemberUserIDs, userID)
	return result, nil
}

// LeaveGroup removes a regular user from their group. The admin manages groups through admin commands instead.
func (s *GroupService) LeaveGroup(ctx context.Context, userID string) (*LeaveResult, error) {
	if s.access.IsAdmin(userID) {
		return nil, ErrAdminAction
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotInGroup
		}
		return nil, storeErr("get profile", err)
	}
	groupID := p.CurrentGroup()
	if groupID == "" {
		return nil, ErrNotInGroup
	}

	result, err := s.detach(ctx, userID, groupID)
	if isNotFound(err) {
		// group vanished underneath; detach already cleared the reference
		return &LeaveResult{GroupID: groupID}, nil
	}
	return result, err
}

// RemoveMember takes userID out of groupID. The profile reference is cleared
// only if it still points at that group. Admin-only at the dispatch level.
func (s *GroupService) RemoveMember(ctx context.Context, userID, groupID string) (*LeaveResult, error) {
	if _, err := s.profiles.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "User ID", ID: userID}
		}
		return nil, storeErr("get profile", err)
	}
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.detach(ctx, userID, groupID)
}

// DeleteGroup clears the group reference of every member still pointing at it, then deletes the group.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) (*DeleteGroupResult, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	result := &DeleteGroupResult{GroupName: group.GroupName}
	now := s.now()
	for _, id := range group.MemberUserIDs {
		cleared, err := s.profiles.ClearGroup(ctx, id, groupID, now)
		if err != nil {
			return nil, storeErr("clear member group", err)
		}
		if cleared {
			result.Cleared = append(result.Cleared, id)
		}
	}

	if err := s.groups.Delete(ctx, groupID); err != nil {
		return nil, storeErr("delete group", err)
	}
	s.logger.Info("Group deleted", zap.String("group_id", groupID), zap.Int("cleared", len(result.Cleared)))
	return result, nil
}

// GroupInfo returns the user's current group. A reference to a missing group
// is cleared and reported as a ConsistencyError.
func (s *GroupService) GroupInfo(ctx context.Context, userID string) (*models.Group, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotInGroup
		}
		return nil, storeErr("get profile", err)
	}
	groupID := p.CurrentGroup()
	if groupID == "" {
		return nil, ErrNotInGroup
	}

	group, err := s.groups.Get(ctx, groupID)
	if errors.Is(err, repository.ErrNotFound) {
		if err := s.heal(ctx, userID, groupID); err != nil {
			return nil, err
		}
		return nil, &ConsistencyError{Msg: "Your group data was inconsistent. You've been removed from the non-existent group."}
	}
	if err != nil {
		return nil, storeErr("get group", err)
	}
	return group, nil
}

// ResolveScope picks the user's group when they have one, else personal scope.
// A dangling group reference is cleared and the personal scope returned.
func (s *GroupService) ResolveScope(ctx context.Context, userID string) (models.Scope, error) {
	scope := models.Scope{UserID: userID}

	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return scope, nil
	}
	if err != nil {
		return scope, storeErr("get profile", err)
	}
	groupID := p.CurrentGroup()
	if groupID == "" {
		return scope, nil
	}

	group, err := s.groups.Get(ctx, groupID)
	if errors.Is(err, repository.ErrNotFound) {
		return scope, s.heal(ctx, userID, groupID)
	}
	if err != nil {
		return scope, storeErr("get group", err)
	}
	scope.GroupID = group.ID
	scope.GroupName = group.GroupName
	return scope, nil
}

// CurrentGroupID is the raw group reference on the user's profile.
func (s *GroupService) CurrentGroupID(ctx context.Context, userID string) (string, error) {
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("get profile", err)
	}
	return p.CurrentGroup(), nil
}

func (s *GroupService) attach(ctx context.Context, userID, groupID string) error {
	if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Entity: "Group ID", ID: groupID}
		}
		return storeErr("add group member", err)
	}
	if err := s.profiles.SetGroup(ctx, userID, groupID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Entity: "User ID", ID: userID}
		}
		return storeErr("set profile group", err)
	}
	return nil
}

// detach removes the membership on both sides and deletes the group if it became empty.
func (s *GroupService) detach(ctx context.Context, userID, groupID string) (*LeaveResult, error) {
	result := &LeaveResult{GroupID: groupID}

	if _, err := s.profiles.ClearGroup(ctx, userID, groupID, s.now()); err != nil {
		return nil, storeErr("clear profile group", err)
	}

	group, err := s.groups.Get(ctx, groupID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Group ID", ID: groupID}
	}
	if err != nil {
		return nil, storeErr("get group", err)
	}
	result.GroupName = group.GroupName

	remaining, err := s.groups.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return nil, storeErr("remove group member", err)
	}
	if remaining == 0 {
		if err := s.groups.Delete(ctx, groupID); err != nil {
			return nil, storeErr("delete empty group", err)
		}
		result.GroupDeleted = true
		s.logger.Info("Deleted empty group", zap.String("group_id", groupID))
	}
	return result, nil
}

func (s *GroupService) heal(ctx context.Context, userID, groupID string) error {
	s.logger.Warn("Clearing dangling group reference", zap.String("user_id", userID), zap.String("group_id", groupID))
	if _, err := s.profiles.ClearGroup(ctx, userID, groupID, s.now()); err != nil {
		return storeErr("clear dangling group", err)
	}
	return nil
}

func (s *GroupService) getGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.groups.Get(ctx, groupID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Group ID", ID: groupID}
	}
	if err != nil {
		return nil, storeErr("get group", err)
	}
	return group, nil
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
