package presenter

import (
	"fmt"
	"strings"

	"receipt-ledger/internal/models"
	"receipt-ledger/internal/service"
)

func you(id, viewerID string) string {
	if id == viewerID {
		return " " + Escape("(You)")
	}
	return ""
}

func GroupInfo(g *models.Group, viewerID string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Group: %s \\(ID: %s\\)\n", Escape("'"+g.GroupName+"'"), Code(g.ID))
	fmt.Fprintf(&b, "Owner ID: %s%s\n", Code(g.OwnerID), you(g.OwnerID, viewerID))
	fmt.Fprintf(&b, "Members \\(%d\\):\n", len(g.MemberUserIDs))
	for _, id := range g.MemberUserIDs {
		fmt.Fprintf(&b, "  %s %s%s\n", Escape("-"), Code(id), you(id, viewerID))
	}
	return markdown(strings.TrimRight(b.String(), "\n"))
}

func idList(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = Code(id)
	}
	return strings.Join(parts, ", ")
}

func GroupCreated(result *service.CreateGroupResult, byAdmin bool) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s%s",
		Escape(fmt.Sprintf("Group '%s' created with ID:", result.Group.GroupName)),
		Code(result.Group.ID), Escape("."))

	if byAdmin {
		if len(result.Added) > 0 {
			fmt.Fprintf(&b, "\n%s %s%s", Escape("Added members:"), idList(result.Added), Escape("."))
		} else {
			b.WriteString("\n" + Escape("No initial members were added."))
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintf(&b, "\n%s %s%s", Escape("Skipped (unknown or not approved):"), idList(result.Skipped), Escape("."))
		}
	} else {
		b.WriteString("\n" + Escape("You have been added as the first member."))
	}
	if len(result.Failed) > 0 {
		fmt.Fprintf(&b, "\n%s %s%s", Escape("Warning: Failed to update profile for users:"), idList(result.Failed), Escape("."))
	}
	return markdown(b.String())
}

func LeftGroup(result *service.LeaveResult) Message {
	name := result.GroupName
	if name == "" {
		name = "your current group"
	}
	if result.GroupDeleted {
		return plain(fmt.Sprintf("You have left '%s'. The group is now empty and has been deleted.", name))
	}
	return plain(fmt.Sprintf("You have left '%s'.", name))
}

func MemberAdded(userID string, result *service.AddMemberResult) Message {
	g := result.Group
	if result.AlreadyMember {
		return markdown(fmt.Sprintf("User %s is already a member of %s%s",
			Code(userID), Escape("'"+g.GroupName+"'"), Escape(".")))
	}
	text := fmt.Sprintf("User %s added to group %s \\(ID: %s\\)%s",
		Code(userID), Escape("'"+g.GroupName+"'"), Code(g.ID), Escape("."))
	if prev := result.Previous; prev != nil {
		text += "\n" + Escape(fmt.Sprintf("They were moved out of '%s'.", prev.GroupName))
		if prev.GroupDeleted {
			text += " " + Escape("That group was left empty and has been deleted.")
		}
	}
	return markdown(text)
}

func MemberRemoved(userID string, result *service.LeaveResult) Message {
	text := fmt.Sprintf("User %s removed from group %s%s",
		Code(userID), Escape("'"+result.GroupName+"'"), Escape("."))
	if result.GroupDeleted {
		text += " " + Escape("The group was empty and has been deleted.")
	}
	return markdown(text)
}

func GroupDeleted(groupID string, result *service.DeleteGroupResult) Message {
	return markdown(fmt.Sprintf("Group %s \\(ID: %s\\) and its members' associations have been deleted%s",
		Escape("'"+result.GroupName+"'"), Code(groupID), Escape(".")))
}
