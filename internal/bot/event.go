package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	EventMessage  = "message"
	EventCallback = "callback"
	EventOther    = "other"
)

const (
	photoFileName = "telegram_photo.jpg"
	photoMimeType = "image/jpeg"
)

// Image is an attachment to run through extraction.
type Image struct {
	FileID   string
	FileName string
	MimeType string
}

// Event is the part of a chat update the dispatcher acts on.
type Event struct {
	Kind       string
	ChatID     int64
	UserID     string
	MessageID  int
	CallbackID string
	// Payload is the message text or the button data.
	Payload      string
	FromCallback bool
	Image        *Image
	// NonImageDocument is set for documents whose declared type is not an image.
	NonImageDocument bool
}

// EventFromUpdate normalizes a message or a button press. ok is false when
// the chat or the sender cannot be determined.
func EventFromUpdate(u tgbotapi.Update) (Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return Event{Kind: EventCallback}, false
		}
		return Event{
			Kind:         EventCallback,
			ChatID:       cq.Message.Chat.ID,
			UserID:       strconv.FormatInt(cq.From.ID, 10),
			MessageID:    cq.Message.MessageID,
			CallbackID:   cq.ID,
			Payload:      cq.Data,
			FromCallback: true,
		}, true

	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Chat == nil {
			return Event{Kind: EventMessage}, false
		}
		ev := Event{
			Kind:      EventMessage,
			ChatID:    m.Chat.ID,
			UserID:    strconv.FormatInt(m.From.ID, 10),
			MessageID: m.MessageID,
			Payload:   m.Text,
		}
		switch {
		case len(m.Photo) > 0:
			ev.Image = &Image{FileID: largestPhoto(m.Photo).FileID, FileName: photoFileName, MimeType: photoMimeType}
		case m.Document != nil && strings.HasPrefix(m.Document.MimeType, "image/"):
			name := m.Document.FileName
			if name == "" {
				name = "telegram_document"
			}
			ev.Image = &Image{FileID: m.Document.FileID, FileName: name, MimeType: m.Document.MimeType}
		case m.Document != nil:
			ev.NonImageDocument = true
		}
		return ev, true
	}
	return Event{Kind: EventOther}, false
}

func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[len(sizes)-1]
	for _, s := range sizes {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}
