// Package action is the closed set of things a user can ask the bot to do,
// and the decoding of commands and button payloads into them.
package action

import (
	"regexp"
	"strings"
)

type Kind string

const (
	None    Kind = ""
	Unknown Kind = "unknown"

	// admin
	AdminHelp                  Kind = "admin_help"
	ListUsers                  Kind = "list_users"
	ApproveUser                Kind = "approve_user"
	BanUser                    Kind = "ban_user"
	SetUserStatus              Kind = "set_user_status"
	AdminCreateGroup           Kind = "admin_create_group"
	AddUserToGroup             Kind = "add_user_to_group"
	RemoveUserFromGroup        Kind = "remove_user_from_group"
	DeleteGroup                Kind = "delete_group"
	AdminMenu                  Kind = "admin_menu"
	AdminListPending           Kind = "admin_list_pending"
	AdminListApproved          Kind = "admin_list_approved"
	AdminListAll               Kind = "admin_list_all"
	AdminApprovePrompt         Kind = "admin_approve_prompt"
	AdminBanPrompt             Kind = "admin_ban_prompt"
	AdminCreateGroupPrompt     Kind = "admin_creategroup_prompt"
	AdminAddToGroupPrompt      Kind = "admin_addtogroup_prompt"
	AdminRemoveFromGroupPrompt Kind = "admin_removefromgroup_prompt"
	AdminDeleteGroupPrompt     Kind = "admin_deletegroup_prompt"

	// everyone
	Start           Kind = "start"
	MainMenu        Kind = "main_menu"
	GroupMenu       Kind = "group_menu"
	GroupInfo       Kind = "group_info"
	LeaveGroup      Kind = "leave_group"
	CreateGroup     Kind = "create_group"
	JoinGroup       Kind = "join_group"
	SummaryMonth    Kind = "summary_month"
	SummaryCategory Kind = "summary_category"
	SummaryStore    Kind = "summary_store"
	SummaryAverage  Kind = "summary_average"
	DateRangePrompt Kind = "date_range_prompt"
	DateRange       Kind = "date_range"
	ListReceipts    Kind = "list_receipts"
	DeleteReceipts  Kind = "delete_receipts"
	ViewReceipt     Kind = "view_receipt"
	DeleteRequest   Kind = "delete_request"
	DeleteExecute   Kind = "delete_execute"
	DeleteCancel    Kind = "delete_cancel"
	Edit            Kind = "edit"
	EditHelp        Kind = "edit_help"
)

// Button payloads.
const (
	TokenMainMenu        = "main_menu"
	TokenAdminMenu       = "admin_menu"
	TokenGroupMenu       = "group_menu_user"
	TokenGroupInfo       = "mygroup_info_action"
	TokenLeaveGroup      = "leavegroup_action_user"
	TokenSummaryMonth    = "summary_current_month"
	TokenSummaryCategory = "summary_category_current_month"
	TokenSummaryStore    = "summary_store_current_month"
	TokenSummaryAverage  = "summary_avg_receipt_current_month"
	TokenDateRangePrompt = "summary_date_range_prompt"
	TokenListReceipts    = "list_receipts_action"
	TokenDeleteReceipts  = "delete_receipts_action"

	TokenAdminListPending           = "admin_list_pending"
	TokenAdminListApproved          = "admin_list_approved"
	TokenAdminListAll               = "admin_list_all"
	TokenAdminApprovePrompt         = "admin_approve_prompt"
	TokenAdminBanPrompt             = "admin_ban_prompt"
	TokenAdminCreateGroupPrompt     = "admin_creategroup_prompt"
	TokenAdminAddToGroupPrompt      = "admin_addtogroup_prompt"
	TokenAdminRemoveFromGroupPrompt = "admin_removefromgroup_prompt"
	TokenAdminDeleteGroupPrompt     = "admin_deletegroup_prompt"

	prefixView          = "view_receipt_"
	prefixDeleteRequest = "del_confirm_req_"
	prefixDeleteExecute = "del_do_"
	prefixDeleteCancel  = "del_cancel_"
)

var callbacks = map[string]Kind{
	TokenMainMenu:        MainMenu,
	TokenAdminMenu:       AdminMenu,
	TokenGroupMenu:       GroupMenu,
	TokenGroupInfo:       GroupInfo,
	TokenLeaveGroup:      LeaveGroup,
	TokenSummaryMonth:    SummaryMonth,
	TokenSummaryCategory: SummaryCategory,
	TokenSummaryStore:    SummaryStore,
	TokenSummaryAverage:  SummaryAverage,
	TokenDateRangePrompt: DateRangePrompt,
	TokenListReceipts:    ListReceipts,
	TokenDeleteReceipts:  DeleteReceipts,

	TokenAdminListPending:           AdminListPending,
	TokenAdminListApproved:          AdminListApproved,
	TokenAdminListAll:               AdminListAll,
	TokenAdminApprovePrompt:         AdminApprovePrompt,
	TokenAdminBanPrompt:             AdminBanPrompt,
	TokenAdminCreateGroupPrompt:     AdminCreateGroupPrompt,
	TokenAdminAddToGroupPrompt:      AdminAddToGroupPrompt,
	TokenAdminRemoveFromGroupPrompt: AdminRemoveFromGroupPrompt,
	TokenAdminDeleteGroupPrompt:     AdminDeleteGroupPrompt,
}

var receiptCallbacks = []struct {
	prefix string
	kind   Kind
}{
	{prefixView, ViewReceipt},
	{prefixDeleteRequest, DeleteRequest},
	{prefixDeleteExecute, DeleteExecute},
	{prefixDeleteCancel, DeleteCancel},
}

var commands = map[string]Kind{
	"/adminhelp":           AdminHelp,
	"/listusers":           ListUsers,
	"/approveuser":         ApproveUser,
	"/banuser":             BanUser,
	"/setuserstatus":       SetUserStatus,
	"/admincreategroup":    AdminCreateGroup,
	"/addusertogroup":      AddUserToGroup,
	"/removeuserfromgroup": RemoveUserFromGroup,
	"/deletegroup":         DeleteGroup,

	"/start":          Start,
	"/menu":           MainMenu,
	"/mygroup":        GroupInfo,
	"/leavegroup":     LeaveGroup,
	"/creategroup":    CreateGroup,
	"/joingroup":      JoinGroup,
	"/daterange":      DateRange,
	"/listreceipts":   ListReceipts,
	"/deletereceipts": DeleteReceipts,
	"/edit":           Edit,
	"/edithelp":       EditHelp,
}

// Action is one decoded request.
type Action struct {
	Kind Kind
	// Token is the command word or button payload as received, for logging.
	Token string
	// Args are the whitespace-separated words after the command.
	Args []string
	// RawArgs is everything after the command word, newlines included.
	RawArgs      string
	ReceiptID    string
	FromCallback bool
}

// Decode classifies a text message or button payload. Plain text that is not
// a command decodes to Unknown; an empty payload to None.
func Decode(payload string, fromCallback bool) Action {
	payload = strings.TrimSpace(payload)
	a := Action{Token: payload, FromCallback: fromCallback}
	if payload == "" {
		return a
	}

	if fromCallback {
		if kind, ok := callbacks[payload]; ok {
			a.Kind = kind
			return a
		}
		for _, rc := range receiptCallbacks {
			if id, ok := strings.CutPrefix(payload, rc.prefix); ok && id != "" {
				a.Kind = rc.kind
				a.ReceiptID = id
				return a
			}
		}
		a.Kind = Unknown
		return a
	}

	if !strings.HasPrefix(payload, "/") {
		a.Kind = Unknown
		return a
	}

	word, rest := payload, ""
	if i := strings.IndexAny(payload, " \t\r\n"); i >= 0 {
		word, rest = payload[:i], strings.TrimSpace(payload[i+1:])
	}
	// "/cmd@SomeBot" in group chats
	word, _, _ = strings.Cut(word, "@")
	word = strings.ToLower(word)

	a.Token = word
	a.RawArgs = rest
	a.Args = strings.Fields(rest)
	if kind, ok := commands[word]; ok {
		a.Kind = kind
	} else {
		a.Kind = Unknown
	}
	return a
}

// IsAdmin reports whether the action is only available to the admin.
func (k Kind) IsAdmin() bool {
	switch k {
	case AdminHelp, ListUsers, ApproveUser, BanUser, SetUserStatus,
		AdminCreateGroup, AddUserToGroup, RemoveUserFromGroup, DeleteGroup,
		AdminMenu, AdminListPending, AdminListApproved, AdminListAll,
		AdminApprovePrompt, AdminBanPrompt, AdminCreateGroupPrompt,
		AdminAddToGroupPrompt, AdminRemoveFromGroupPrompt, AdminDeleteGroupPrompt:
		return true
	}
	return false
}

func ViewToken(receiptID string) string { return prefixView + receiptID }
func DeleteRequestToken(receiptID string) string { return prefixDeleteRequest + receiptID }
func DeleteExecuteToken(receiptID string) string { return prefixDeleteExecute + receiptID }
func DeleteCancelToken(receiptID string) string { return prefixDeleteCancel + receiptID }

var quotedName = regexp.MustCompile(`(?s)^["'](.*?)["']\s*(.*)$`)

// ParseGroupNameArgs splits `"Group Name" id1 id2` or `Name id1 id2` into the
// name and the member ids.
func ParseGroupNameArgs(raw string) (string, []string) {
	raw = strings.TrimSpace(raw)
	if m := quotedName.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), strings.Fields(m[2])
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
