// Package chat abstracts the messaging platform behind a small capability
// set so the conversation engine never touches a platform SDK directly.
package chat

import (
	"context"
	"errors"
	"strings"
)

// ErrNotModified is returned by EditMessage when the platform rejects an
// edit because the content is unchanged. Callers treat it as benign.
var ErrNotModified = errors.New("chat: message not modified")

// Button is a single inline keyboard button carrying a callback payload.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard: rows of buttons.
type Keyboard [][]Button

// SendOpts holds optional parameters for sending or editing a message.
type SendOpts struct {
	Keyboard Keyboard
	Markdown bool // render as MarkdownV2; text must be pre-escaped
}

// Gateway is the outbound capability set the conversation engine needs:
// send, edit, delete, answer-callback, send-media-group, plus the photo
// helpers used by the notify server and the photo flows.
type Gateway interface {
	// SendMessage sends text to a chat and returns the new message ID.
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOpts) (int, error)

	// EditMessage replaces the text and keyboard of an existing message.
	// Returns ErrNotModified when the platform reports unchanged content.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, opts SendOpts) error

	// DeleteMessage removes a message. Deleting an already-deleted message
	// is an error; callers that don't care must ignore it.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// AnswerCallback acknowledges a button press, optionally with a toast
	// (alert=false) or a modal alert (alert=true).
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error

	// SendPhoto sends a single photo with an optional caption.
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) (int, error)

	// SendMediaGroup sends several photos as one album and returns the
	// message IDs of the album entries.
	SendMediaGroup(ctx context.Context, chatID int64, photos [][]byte) ([]int, error)

	// DownloadPhoto fetches the binary content of an inbound photo.
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)

	// CheckChat reports whether the platform knows the chat and the bot
	// can reach it. A nil error means reachable.
	CheckChat(ctx context.Context, chatID int64) error
}

// Source is the inbound side of a platform adapter.
type Source interface {
	// Connect establishes the platform connection.
	Connect(ctx context.Context) error

	// Updates returns a channel of inbound updates. The channel is closed
	// when the context is cancelled or the source is closed. Updates must
	// only be called after Connect.
	Updates(ctx context.Context) (<-chan Update, error)

	// Close shuts down the connection.
	Close() error
}

// Chat types as reported by the platform.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
)

// PhotoInput is an inbound photo reference. MediaGroupID groups the photos
// of one multi-photo submission; it is empty for a standalone photo.
type PhotoInput struct {
	FileID       string
	MediaGroupID string
}

// Callback is an inbound button press.
type Callback struct {
	ID        string // platform callback ID, for AnswerCallback
	Data      string // the button's payload
	MessageID int    // the message the button was attached to
}

// Update is a single inbound event: a command, a text message, a photo, or
// a button press. Exactly one of Text/Photo/Callback content applies.
type Update struct {
	ChatID    int64
	ChatTitle string
	ChatType  string
	UserID    int64
	UserName  string
	MessageID int
	Text      string
	Photo     *PhotoInput
	Callback  *Callback
}

// Command returns the bot command carried by this update ("start",
// "requests", ...) without the leading slash, or "" when the update is not
// a command. A trailing @botname suffix is stripped.
func (u Update) Command() string {
	if u.Callback != nil || !strings.HasPrefix(u.Text, "/") {
		return ""
	}
	cmd := strings.Fields(u.Text)[0][1:]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}
