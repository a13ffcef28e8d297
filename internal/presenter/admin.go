package presenter

import (
	"fmt"
	"strings"

	"receipt-ledger/internal/bot/action"
	"receipt-ledger/internal/models"
)

const adminHelp = `Admin Commands:
/listusers [pending|approved|banned|all]
/approveuser <user_id>
/banuser <user_id>
/setuserstatus <user_id> <status>
/admincreategroup <group_name> [user_id1 user_id2 ...]
/addusertogroup <user_id> <group_id>
/removeuserfromgroup <user_id> <group_id>
/deletegroup <group_id>`

func AdminHelp() Message {
	return plain(adminHelp)
}

func UserList(profiles []*models.UserProfile, label string) Message {
	if len(profiles) == 0 {
		return plain(fmt.Sprintf("No users found with status '%s'.", label))
	}

	var b strings.Builder
	b.WriteString(Escape(fmt.Sprintf("Users (Status: %s):", label)))
	for _, p := range profiles {
		group := p.CurrentGroup()
		if group == "" {
			group = "None"
		}
		fmt.Fprintf(&b, "\n%s %s %s %s%s",
			Escape("- ID:"), Code(p.TelegramUserID),
			Escape(fmt.Sprintf("(Status: %s, Group:", p.Status)), Code(group), Escape(")"))
	}
	return markdown(b.String())
}

func StatusChanged(userID string, status models.UserStatus) Message {
	return markdown(fmt.Sprintf("User %s status set to %s%s", Code(userID), Escape("'"+string(status)+"'"), Escape(".")))
}

func Usage(text string) Message {
	return plain("Usage: " + text)
}

var adminPrompts = map[action.Kind]string{
	action.AdminApprovePrompt:         "/approveuser USER_ID_TO_APPROVE",
	action.AdminBanPrompt:             "/banuser USER_ID_TO_BAN",
	action.AdminCreateGroupPrompt:     `/admincreategroup "Group Name" OptionalUserID1 OptionalUserID2 ...`,
	action.AdminAddToGroupPrompt:      "/addusertogroup USER_ID_TO_ADD GROUP_ID",
	action.AdminRemoveFromGroupPrompt: "/removeuserfromgroup USER_ID_TO_REMOVE GROUP_ID",
	action.AdminDeleteGroupPrompt:     "/deletegroup GROUP_ID_TO_DELETE",
}

// AdminPrompt tells the admin which command to type for a menu button.
func AdminPrompt(kind action.Kind) Message {
	return markdown("Type: " + Code(adminPrompts[kind]))
}
