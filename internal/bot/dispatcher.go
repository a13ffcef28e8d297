// Package bot turns chat updates into actions and replies. Every update gets
// at most one reply: a new message, or an edit of the message whose button
// was pressed.
package bot

import (
	"context"
	"errors"
	"strings"

	"receipt-ledger/internal/bot/action"
	"receipt-ledger/internal/metrics"
	"receipt-ledger/internal/models"
	"receipt-ledger/internal/presenter"
	"receipt-ledger/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type reply struct {
	msg  presenter.Message
	edit bool
}

func say(msg presenter.Message) *reply {
	return &reply{msg: msg}
}

func replace(msg presenter.Message) *reply {
	return &reply{msg: msg, edit: true}
}

type Dispatcher struct {
	profiles  *service.ProfileService
	groups    *service.GroupService
	receipts  *service.ReceiptService
	pipeline  *Pipeline
	messenger Messenger
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewDispatcher(
	profiles *service.ProfileService,
	groups *service.GroupService,
	receipts *service.ReceiptService,
	pipeline *Pipeline,
	messenger Messenger,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		profiles:  profiles,
		groups:    groups,
		receipts:  receipts,
		pipeline:  pipeline,
		messenger: messenger,
		metrics:   m,
		logger:    logger,
	}
}

// Handle processes one update to completion. Failures are reported to the
// user or logged, never returned.
func (d *Dispatcher) Handle(ctx context.Context, update tgbotapi.Update) {
	ev, ok := EventFromUpdate(update)
	d.metrics.Update(ev.Kind)
	if !ok {
		d.logger.Info("Ignoring update without chat or sender", zap.Int("update_id", update.UpdateID))
		return
	}

	if ev.CallbackID != "" {
		if err := d.messenger.AnswerCallback(ctx, ev.CallbackID); err != nil {
			d.logger.Warn("Failed to answer callback", zap.String("callback_id", ev.CallbackID), zap.Error(err))
		}
	}

	r := d.safeRoute(ctx, ev)
	if r == nil {
		return
	}
	d.deliver(ctx, ev, r)
}

func (d *Dispatcher) safeRoute(ctx context.Context, ev Event) (r *reply) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("Panic while handling update",
				zap.Any("panic", rec),
				zap.String("user_id", ev.UserID),
				zap.Stack("stack"))
			r = say(presenter.Text(presenter.Apology))
		}
	}()
	return d.route(ctx, ev)
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event, r *reply) {
	var err error
	if r.edit && ev.MessageID != 0 {
		err = d.messenger.Edit(ctx, ev.ChatID, ev.MessageID, r.msg)
	} else {
		err = d.messenger.Send(ctx, ev.ChatID, r.msg)
	}
	if err != nil {
		d.logger.Error("Failed to deliver reply",
			zap.Int64("chat_id", ev.ChatID),
			zap.Bool("edit", r.edit),
			zap.Error(err))
	}
}

func (d *Dispatcher) route(ctx context.Context, ev Event) *reply {
	profile, created, err := d.profiles.EnsureProfile(ctx, ev.UserID)
	if err != nil {
		return d.fail(ev, "ensure_profile", err)
	}

	a := action.Decode(ev.Payload, ev.FromCallback)
	isAdmin := d.profiles.IsAdmin(ev.UserID)
	d.metrics.Action(actionLabel(a.Kind))

	if a.Kind.IsAdmin() {
		if isAdmin {
			return d.admin(ctx, ev, a)
		}
		a.Kind = action.Unknown
	}

	if !isAdmin && profile.Status != models.StatusApproved {
		if profile.Status == models.StatusBanned {
			return say(presenter.BannedNotice())
		}
		// the welcome notice already went out on creation
		if created || a.Kind == action.Start {
			return nil
		}
		return say(presenter.PendingNotice(ev.UserID))
	}

	if ev.Image != nil {
		return say(d.pipeline.Process(ctx, ev))
	}
	if ev.NonImageDocument {
		return say(presenter.Text(presenter.NotAnImage))
	}
	return d.shared(ctx, ev, a, profile, isAdmin)
}

func (d *Dispatcher) shared(ctx context.Context, ev Event, a action.Action, profile *models.UserProfile, isAdmin bool) *reply {
	userID := ev.UserID

	switch a.Kind {
	case action.Start, action.MainMenu:
		return say(presenter.MainMenu(isAdmin))

	case action.GroupMenu:
		return say(presenter.GroupMenu(!isAdmin && profile.CurrentGroup() != ""))

	case action.GroupInfo:
		g, err := d.groups.GroupInfo(ctx, userID)
		if err != nil {
			return d.fail(ev, "group_info", err)
		}
		return say(presenter.GroupInfo(g, userID))

	case action.LeaveGroup:
		res, err := d.groups.LeaveGroup(ctx, userID)
		if err != nil {
			return d.fail(ev, "leave_group", err)
		}
		return say(presenter.LeftGroup(res))

	case action.CreateGroup:
		res, err := d.groups.CreateGroup(ctx, userID, a.RawArgs, nil)
		if err != nil {
			return d.fail(ev, "create_group", err)
		}
		return say(presenter.GroupCreated(res, isAdmin))

	case action.JoinGroup:
		return say(presenter.Text(presenter.JoinGroupNotice))

	case action.SummaryMonth, action.SummaryCategory, action.SummaryStore, action.SummaryAverage:
		report, err := d.receipts.AggregateMonth(ctx, userID, "", summaryModes[a.Kind])
		if err != nil {
			return d.fail(ev, "summary", err)
		}
		return say(presenter.Report(report))

	case action.DateRangePrompt:
		return say(presenter.DateRangePrompt())

	case action.DateRange:
		if len(a.Args) != 2 {
			return say(presenter.Usage(presenter.DateRangeUsage))
		}
		report, err := d.receipts.AggregateRange(ctx, userID, a.Args[0], a.Args[1], service.ModeTotal)
		if err != nil {
			return d.fail(ev, "date_range", err)
		}
		return say(presenter.Report(report))

	case action.ListReceipts, action.DeleteReceipts:
		receipts, scope, err := d.receipts.ListRecent(ctx, userID)
		if err != nil {
			return d.fail(ev, "list_receipts", err)
		}
		return say(presenter.ReceiptList(receipts, scope, a.Kind == action.DeleteReceipts))

	case action.ViewReceipt:
		r, err := d.receipts.View(ctx, userID, a.ReceiptID)
		if err != nil {
			return d.receiptFail(ev, a.ReceiptID, err)
		}
		return say(presenter.ReceiptView(r))

	case action.DeleteRequest:
		r, err := d.receipts.PrepareDelete(ctx, userID, a.ReceiptID)
		if err != nil {
			return d.receiptFail(ev, a.ReceiptID, err)
		}
		return say(presenter.DeleteConfirmation(r))

	case action.DeleteExecute:
		if _, err := d.receipts.Delete(ctx, userID, a.ReceiptID); err != nil {
			r := d.receiptFail(ev, a.ReceiptID, err)
			r.edit = true
			return r
		}
		return replace(presenter.ReceiptDeleted(a.ReceiptID))

	case action.DeleteCancel:
		return replace(presenter.DeleteCancelled(a.ReceiptID))

	case action.Edit:
		if a.RawArgs == "" {
			return say(presenter.EditHelp())
		}
		r, err := d.receipts.EditFromArgs(ctx, userID, a.RawArgs)
		if err != nil {
			return d.receiptFail(ev, editRef(a.RawArgs), err)
		}
		return say(presenter.ReceiptUpdated(r))

	case action.EditHelp:
		return say(presenter.EditHelp())

	case action.Unknown:
		if ev.FromCallback {
			d.logger.Info("Unhandled button payload", zap.String("user_id", userID), zap.String("payload", a.Token))
			return nil
		}
		return say(presenter.Text(presenter.NotUnderstood))
	}

	d.logger.Info("Update carried nothing to act on", zap.String("user_id", userID))
	return nil
}

func (d *Dispatcher) admin(ctx context.Context, ev Event, a action.Action) *reply {
	switch a.Kind {
	case action.AdminHelp:
		return say(presenter.AdminHelp())

	case action.AdminMenu:
		return say(presenter.AdminMenu())

	case action.ListUsers, action.AdminListPending, action.AdminListApproved, action.AdminListAll:
		filter := listFilters[a.Kind]
		if a.Kind == action.ListUsers && len(a.Args) > 0 {
			filter = a.Args[0]
		}
		profiles, label, err := d.profiles.ListUsers(ctx, filter)
		if err != nil {
			return d.fail(ev, "list_users", err)
		}
		return say(presenter.UserList(profiles, label))

	case action.ApproveUser, action.BanUser:
		status, usage := models.StatusApproved, "/approveuser <user_id>"
		if a.Kind == action.BanUser {
			status, usage = models.StatusBanned, "/banuser <user_id>"
		}
		if len(a.Args) < 1 {
			return say(presenter.Usage(usage))
		}
		return d.setStatus(ctx, ev, a.Args[0], string(status))

	case action.SetUserStatus:
		if len(a.Args) != 2 {
			return say(presenter.Usage("/setuserstatus <user_id> <approved|banned|pending_approval>"))
		}
		return d.setStatus(ctx, ev, a.Args[0], a.Args[1])

	case action.AdminCreateGroup:
		name, ids := action.ParseGroupNameArgs(a.RawArgs)
		if name == "" {
			return say(presenter.Usage(`/admincreategroup "Group Name" [UserID1 UserID2 ...]`))
		}
		res, err := d.groups.CreateGroup(ctx, ev.UserID, name, ids)
		if err != nil {
			return d.fail(ev, "admin_create_group", err)
		}
		return say(presenter.GroupCreated(res, true))

	case action.AddUserToGroup:
		if len(a.Args) != 2 {
			return say(presenter.Usage("/addusertogroup <user_id> <group_id>"))
		}
		res, err := d.groups.AddMember(ctx, a.Args[0], a.Args[1])
		if err != nil {
			return d.fail(ev, "add_member", err)
		}
		return say(presenter.MemberAdded(a.Args[0], res))

	case action.RemoveUserFromGroup:
		if len(a.Args) != 2 {
			return say(presenter.Usage("/removeuserfromgroup <user_id> <group_id>"))
		}
		res, err := d.groups.RemoveMember(ctx, a.Args[0], a.Args[1])
		if err != nil {
			return d.fail(ev, "remove_member", err)
		}
		return say(presenter.MemberRemoved(a.Args[0], res))

	case action.DeleteGroup:
		if len(a.Args) < 1 {
			return say(presenter.Usage("/deletegroup <group_id>"))
		}
		res, err := d.groups.DeleteGroup(ctx, a.Args[0])
		if err != nil {
			return d.fail(ev, "delete_group", err)
		}
		return say(presenter.GroupDeleted(a.Args[0], res))
	}

	return say(presenter.AdminPrompt(a.Kind))
}

func (d *Dispatcher) setStatus(ctx context.Context, ev Event, userID, status string) *reply {
	changed, err := d.profiles.SetStatus(ctx, userID, status)
	if err != nil {
		return d.fail(ev, "set_status", err)
	}
	return say(presenter.StatusChanged(userID, changed))
}

func (d *Dispatcher) fail(ev Event, op string, err error) *reply {
	d.logFailure(ev, op, err)
	return say(presenter.Error(err))
}

func (d *Dispatcher) receiptFail(ev Event, receiptID string, err error) *reply {
	d.logFailure(ev, "receipt", err)
	return say(presenter.ReceiptError(receiptID, err))
}

// logFailure logs store and unexpected failures as errors; user mistakes at info.
func (d *Dispatcher) logFailure(ev Event, op string, err error) {
	var valErr *service.ValidationError
	var nfErr *service.NotFoundError
	fields := []zap.Field{zap.String("op", op), zap.String("user_id", ev.UserID), zap.Error(err)}
	switch {
	case errors.As(err, &valErr), errors.As(err, &nfErr),
		errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotInGroup),
		errors.Is(err, service.ErrAlreadyInGroup), errors.Is(err, service.ErrAdminAction):
		d.logger.Info("Request rejected", fields...)
	default:
		d.logger.Error("Request failed", fields...)
	}
}

var summaryModes = map[action.Kind]service.AggregationMode{
	action.SummaryMonth:    service.ModeTotal,
	action.SummaryCategory: service.ModeByCategory,
	action.SummaryStore:    service.ModeByStore,
	action.SummaryAverage:  service.ModeAverage,
}

var listFilters = map[action.Kind]string{
	action.ListUsers:         "all",
	action.AdminListPending:  string(models.StatusPendingApproval),
	action.AdminListApproved: string(models.StatusApproved),
	action.AdminListAll:      "all",
}

func actionLabel(k action.Kind) string {
	if k == action.None {
		return "none"
	}
	return string(k)
}

// editRef finds the receipt id in /edit arguments: "Ref: <id>" on the first
// line for the text format, the first word for the JSON format.
func editRef(raw string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	first = strings.TrimSpace(first)
	if len(first) >= 4 && strings.EqualFold(first[:4], "ref:") {
		first = strings.TrimSpace(first[4:])
	}
	if f := strings.Fields(first); len(f) > 0 {
		return f[0]
	}
	return ""
}
