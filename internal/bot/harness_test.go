package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"receipt-ledger/internal/metrics"
	"receipt-ledger/internal/models"
	"receipt-ledger/internal/presenter"
	"receipt-ledger/internal/service"
	"receipt-ledger/internal/service/servicetest"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const adminID = "1000"

type outgoing struct {
	chatID    int64
	messageID int
	edit      bool
	msg       presenter.Message
}

type fakeMessenger struct {
	mu       sync.Mutex
	out      []outgoing
	answered []string
	fileURL  string
	fileIDs  []string
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, msg presenter.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, outgoing{chatID: chatID, msg: msg})
	return nil
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, msg presenter.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = append(m.out, outgoing{chatID: chatID, messageID: messageID, edit: true, msg: msg})
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, callbackID)
	return nil
}

func (m *fakeMessenger) FileURL(_ context.Context, fileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileIDs = append(m.fileIDs, fileID)
	return m.fileURL, nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, o := range m.out {
		out = append(out, o.msg.Text)
	}
	return out
}

func (m *fakeMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = nil
	m.answered = nil
}

type fakeVision struct {
	mu    sync.Mutex
	text  string
	panic bool
	calls int
}

func (f *fakeVision) Vision(ctx context.Context, image []byte, fileName, mimeType, prompt string) (*service.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panic {
		panic("vision exploded")
	}
	return &service.Completion{Choices: []service.CompletionChoice{{Text: f.text, FinishReason: "stop"}}}, nil
}

type harness struct {
	d        *Dispatcher
	msgr     *fakeMessenger
	vision   *fakeVision
	profiles *servicetest.ProfileStore
	groups   *servicetest.GroupStore
	receipts *servicetest.ReceiptStore
	notifier *servicetest.Notifier
	group    *service.GroupService
	now      time.Time
}

func newHarness(t *testing.T, loc *time.Location) *harness {
	t.Helper()

	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	}))
	t.Cleanup(images.Close)

	h := &harness{
		msgr:     &fakeMessenger{fileURL: images.URL + "/file/photo.jpg"},
		vision:   &fakeVision{},
		profiles: servicetest.NewProfileStore(),
		groups:   servicetest.NewGroupStore(),
		receipts: servicetest.NewReceiptStore(),
		notifier: &servicetest.Notifier{},
		now:      time.Date(2024, 6, 15, 22, 30, 0, 0, time.UTC),
	}
	clock := servicetest.FixedClock(h.now)
	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())

	profiles := service.NewProfileService(h.profiles, h.notifier, adminID, clock, logger)
	h.group = service.NewGroupService(h.groups, h.profiles, profiles, clock, logger)
	receipts := service.NewReceiptService(h.receipts, h.group, profiles, clock, logger)
	extractor := service.NewExtractionService(h.vision, time.Second, logger)
	pipeline := NewPipeline(extractor, receipts, h.group, h.msgr, clock, loc, m, logger)

	h.d = NewDispatcher(profiles, h.group, receipts, pipeline, h.msgr, m, logger)
	return h
}

func (h *harness) user(id string, status models.UserStatus) {
	h.profiles.Put(&models.UserProfile{TelegramUserID: id, Status: status, RequestedAt: h.now, CreatedAt: h.now})
}

func (h *harness) handle(u tgbotapi.Update) {
	h.d.Handle(context.Background(), u)
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: userID},
			Chat:      &tgbotapi.Chat{ID: userID},
			Text:      text,
		},
	}
}

func photoUpdate(userID int64) tgbotapi.Update {
	u := textUpdate(userID, "")
	u.Message.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90, Height: 120},
		{FileID: "large", Width: 960, Height: 1280},
		{FileID: "medium", Width: 320, Height: 427},
	}
	return u
}

func documentUpdate(userID int64, name, mime string) tgbotapi.Update {
	u := textUpdate(userID, "")
	u.Message.Document = &tgbotapi.Document{FileID: "doc-1", FileName: name, MimeType: mime}
	return u
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: 77,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	}
}
