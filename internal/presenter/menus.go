package presenter

import "receipt-ledger/internal/bot/action"

var backToMain = row(Button{Text: "⬅️ Back to Main Menu", Data: action.TokenMainMenu})

// MainMenu puts the admin panel first for the admin.
func MainMenu(isAdmin bool) Message {
	var rows [][]Button
	if isAdmin {
		rows = append(rows, row(Button{Text: "👑 Admin Panel", Data: action.TokenAdminMenu}))
	}
	rows = append(rows,
		row(Button{Text: "📊 Current Month Summary", Data: action.TokenSummaryMonth}),
		row(Button{Text: "📅 Custom Date Range Sum", Data: action.TokenDateRangePrompt}),
		row(Button{Text: "🏷️ Categories (This Month)", Data: action.TokenSummaryCategory}),
		row(Button{Text: "🏪 Stores (This Month)", Data: action.TokenSummaryStore}),
		row(Button{Text: "🧾 Avg. Receipt (This Month)", Data: action.TokenSummaryAverage}),
		row(Button{Text: "👥 Group Options", Data: action.TokenGroupMenu}),
		row(Button{Text: "📄 List Recent Receipts", Data: action.TokenListReceipts}),
		row(Button{Text: "🗑️ Delete Recent Receipt", Data: action.TokenDeleteReceipts}),
	)
	return plain("Main Menu:").WithKeyboard(rows...)
}

// GroupMenu offers leaving only to regular users who are in a group.
func GroupMenu(showLeave bool) Message {
	rows := [][]Button{row(Button{Text: "ℹ️ My Group Info", Data: action.TokenGroupInfo})}
	if showLeave {
		rows = append(rows, row(Button{Text: "🚪 Leave Current Group", Data: action.TokenLeaveGroup}))
	}
	rows = append(rows, backToMain)
	return plain("Group Options:").WithKeyboard(rows...)
}

func AdminMenu() Message {
	return plain("Admin Panel:").WithKeyboard(
		row(Button{Text: "List Pending Users", Data: action.TokenAdminListPending}),
		row(Button{Text: "List Approved Users", Data: action.TokenAdminListApproved}),
		row(Button{Text: "List All Users", Data: action.TokenAdminListAll}),
		row(Button{Text: "Approve User (Type: /approveuser <ID>)", Data: action.TokenAdminApprovePrompt}),
		row(Button{Text: "Ban User (Type: /banuser <ID>)", Data: action.TokenAdminBanPrompt}),
		row(Button{Text: "Create Group (Type: /admincreategroup <Name> [IDs...])", Data: action.TokenAdminCreateGroupPrompt}),
		row(Button{Text: "Add to Group (Type: /addusertogroup <User_ID> <Group_ID>)", Data: action.TokenAdminAddToGroupPrompt}),
		row(Button{Text: "Remove from Group (Type: /removeuserfromgroup <User_ID> <Group_ID>)", Data: action.TokenAdminRemoveFromGroupPrompt}),
		row(Button{Text: "Delete Group (Type: /deletegroup <Group_ID>)", Data: action.TokenAdminDeleteGroupPrompt}),
		backToMain,
	)
}
