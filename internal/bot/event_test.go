package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		ok     bool
		check  func(t *testing.T, ev Event)
	}{
		{
			name:   "text",
			update: textUpdate(42, "/menu"),
			ok:     true,
			check: func(t *testing.T, ev Event) {
				if ev.UserID != "42" || ev.ChatID != 42 || ev.Payload != "/menu" || ev.FromCallback || ev.Kind != EventMessage {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name:   "callback",
			update: callbackUpdate(42, "main_menu"),
			ok:     true,
			check: func(t *testing.T, ev Event) {
				if !ev.FromCallback || ev.CallbackID != "cb-1" || ev.MessageID != 77 || ev.Payload != "main_menu" {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name:   "photo",
			update: photoUpdate(42),
			ok:     true,
			check: func(t *testing.T, ev Event) {
				if ev.Image == nil || ev.Image.FileID != "large" || ev.Image.MimeType != "image/jpeg" || ev.Image.FileName != "telegram_photo.jpg" {
					t.Errorf("image = %+v", ev.Image)
				}
			},
		},
		{
			name:   "unnamed image document",
			update: documentUpdate(42, "", "image/webp"),
			ok:     true,
			check: func(t *testing.T, ev Event) {
				if ev.Image == nil || ev.Image.FileName != "telegram_document" || ev.Image.MimeType != "image/webp" {
					t.Errorf("image = %+v", ev.Image)
				}
			},
		},
		{
			name:   "pdf document",
			update: documentUpdate(42, "a.pdf", "application/pdf"),
			ok:     true,
			check: func(t *testing.T, ev Event) {
				if ev.Image != nil || !ev.NonImageDocument {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name:   "callback without message",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x", From: &tgbotapi.User{ID: 1}}},
		},
		{
			name:   "channel post",
			update: tgbotapi.Update{ChannelPost: &tgbotapi.Message{Text: "hi"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := EventFromUpdate(tt.update)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

func TestEditRef(t *testing.T) {
	tests := map[string]string{
		"Ref: abc\nStore: X":      "abc",
		"ref:abc":                 "abc",
		"abc {\"store_name\": 1}": "abc",
		"abc\n```json\n{}\n```":   "abc",
		"":                        "",
	}
	for in, want := range tests {
		if got := editRef(in); got != want {
			t.Errorf("editRef(%q) = %q, want %q", in, got, want)
		}
	}
}
