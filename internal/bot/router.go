package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/vodchyts/repairdesk/internal/backend"
	"github.com/vodchyts/repairdesk/internal/chat"
	"github.com/vodchyts/repairdesk/internal/models"
)

// Bot is the conversation engine: it owns the session store and routes
// every inbound update to a state handler.
type Bot struct {
	api   backend.API
	gw    chat.Gateway
	store *SessionStore
	out   io.Writer

	mediaMu sync.Mutex
	media   map[string]*mediaBuffer
}

// Opts holds parameters for creating a Bot.
type Opts struct {
	API     backend.API
	Gateway chat.Gateway
	// Out receives operator-facing output. Defaults to os.Stdout.
	Out io.Writer
}

// New creates a Bot.
func New(opts Opts) (*Bot, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("bot: backend API is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("bot: chat gateway is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Bot{
		api:   opts.API,
		gw:    opts.Gateway,
		store: NewSessionStore(),
		out:   out,
		media: make(map[string]*mediaBuffer),
	}, nil
}

// Store exposes the session store for lifecycle management (sweeping).
func (b *Bot) Store() *SessionStore {
	return b.store
}

var quickOpenRe = regexp.MustCompile(`^\d+$`)

// Handle routes one inbound update. Errors are reported to the chat and
// logged; Handle itself never fails the daemon.
func (b *Bot) Handle(ctx context.Context, upd chat.Update) {
	if upd.Callback != nil {
		b.handleCallback(ctx, upd)
		return
	}

	if cmd := upd.Command(); cmd != "" {
		b.handleCommand(ctx, upd, cmd)
		return
	}

	if _, ok := b.store.Peek(upd.ChatID); !ok {
		return // no active conversation, nothing expects free text
	}
	sess := b.store.Get(upd.ChatID, upd.UserID)

	if upd.Photo != nil {
		if sess.State == StateAddPhoto {
			b.handleInboundPhoto(ctx, sess, upd)
		}
		return
	}

	switch sess.State {
	case StateSetSearchTerm:
		b.handleSearchInput(ctx, sess, upd)
	case StateAddComment:
		b.handleCommentInput(ctx, sess, upd)
	case StateInputText:
		b.handleTextInput(ctx, sess, upd)
	}
}

// handleCommand dispatches slash commands.
func (b *Bot) handleCommand(ctx context.Context, upd chat.Update, cmd string) {
	switch cmd {
	case "cancel":
		b.store.Clear(upd.ChatID)
		b.reply(ctx, upd.ChatID, "Cancelled. Use /requests to start over.")
		return
	case "chatid":
		b.reply(ctx, upd.ChatID, fmt.Sprintf("Chat ID: %d", upd.ChatID))
		return
	}

	sess := b.store.Get(upd.ChatID, upd.UserID)
	user, err := b.resolveUser(ctx, sess)
	if err != nil {
		b.reply(ctx, upd.ChatID, "You are not registered. Contact your administrator.")
		return
	}

	switch {
	case cmd == "start":
		b.reply(ctx, upd.ChatID, fmt.Sprintf(
			"Hello, %s. Use /requests to browse service requests or /newrequest to create one.", user.Login))
	case cmd == "requests":
		sess.State = StateMainMenu
		sess.ResetFilters()
		sess.MainMessageID = 0
		b.renderMainMenu(ctx, sess)
	case cmd == "newrequest":
		b.startCreate(ctx, sess, upd)
	case quickOpenRe.MatchString(cmd):
		id, err := strconv.ParseInt(cmd, 10, 64)
		if err != nil {
			return
		}
		sess.State = StateDetails
		sess.MainMessageID = 0
		b.renderDetails(ctx, sess, id)
	default:
		b.reply(ctx, upd.ChatID, "Unknown command. Try /requests or /newrequest.")
	}
}

// handleCallback parses the payload and dispatches by prefix, answering
// the callback so the client spinner always stops.
func (b *Bot) handleCallback(ctx context.Context, upd chat.Update) {
	cb := upd.Callback
	prefix, action, value := parseCallback(cb.Data)

	if prefix == "noop" {
		b.answer(ctx, cb.ID, "", false)
		return
	}

	sess := b.store.Get(upd.ChatID, upd.UserID)
	if _, err := b.resolveUser(ctx, sess); err != nil {
		b.answer(ctx, cb.ID, "You are not registered.", true)
		return
	}

	switch prefix {
	case "view":
		b.handleViewCallback(ctx, sess, cb, action, value)
	case "sort":
		b.handleSortCallback(ctx, sess, cb, action, value)
	case "act":
		b.handleActionCallback(ctx, sess, cb, action, value)
	case "edit":
		b.handleEditorCallback(ctx, sess, cb, action, value)
	case "shop", "contractor", "work", "urgency":
		b.handlePickerCallback(ctx, sess, cb, prefix, action, value)
	case "status":
		b.handleStatusCallback(ctx, sess, cb, action, value)
	default:
		log.Printf("bot: unknown callback payload %q in chat %d", cb.Data, upd.ChatID)
		b.answer(ctx, cb.ID, "", false)
	}
}

// parseCallback splits a payload of the form prefix_action_value. The
// value part may itself contain underscores; a "-" value means none.
func parseCallback(data string) (prefix, action, value string) {
	parts := strings.SplitN(data, "_", 3)
	prefix = parts[0]
	if len(parts) > 1 {
		action = parts[1]
	}
	if len(parts) > 2 {
		value = parts[2]
	}
	return prefix, action, value
}

// resolveUser fetches and caches the backend identity for the session.
func (b *Bot) resolveUser(ctx context.Context, sess *Session) (*models.UserInfo, error) {
	if sess.User != nil {
		return sess.User, nil
	}
	user, err := b.api.GetUserByTelegramID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("bot: resolve user %d: %w", sess.UserID, err)
	}
	sess.User = user
	return user, nil
}

// reply sends a plain (non-markdown) message, logging on failure.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.gw.SendMessage(ctx, chatID, text, chat.SendOpts{}); err != nil {
		log.Printf("bot: reply to chat %d: %v", chatID, err)
	}
}

// answer acknowledges a callback, logging on failure.
func (b *Bot) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := b.gw.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}
}

// deleteQuiet removes a message, ignoring failures: the message may
// already be gone.
func (b *Bot) deleteQuiet(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := b.gw.DeleteMessage(ctx, chatID, messageID); err != nil {
		log.Printf("bot: delete message %d in chat %d: %v", messageID, chatID, err)
	}
}
