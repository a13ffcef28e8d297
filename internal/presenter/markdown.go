// Package presenter renders domain results as chat messages: text, optional
// MarkdownV2 markup and inline keyboards. It has no side effects.
package presenter

import (
	"strings"
)

// MaxMessageLength leaves headroom under Telegram's 4096 character limit.
const MaxMessageLength = 4000

const rule = "------------------------------------"

type Button struct {
	Text string
	Data string
}

type Message struct {
	Text     string
	Keyboard [][]Button
	// Markdown marks Text as MarkdownV2.
	Markdown bool
}

func plain(text string) Message {
	return Message{Text: text}
}

func markdown(text string) Message {
	return Message{Text: text, Markdown: true}
}

func (m Message) WithKeyboard(rows ...[]Button) Message {
	m.Keyboard = rows
	return m
}

func row(buttons ...Button) []Button {
	return buttons
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

var codeEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

// Escape makes free text safe to embed in a MarkdownV2 message.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Code renders s as inline code.
func Code(s string) string {
	return "`" + codeEscaper.Replace(s) + "`"
}

func Bold(s string) string {
	return "*" + Escape(s) + "*"
}

// CodeBlock renders s as a fenced pre block with a language tag.
func CodeBlock(lang, s string) string {
	return "```" + lang + "\n" + codeEscaper.Replace(s) + "\n```"
}
