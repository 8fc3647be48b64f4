// Package telegram implements the chat Gateway and Source for Telegram
// using long polling via the Bot API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vodchyts/repairdesk/internal/chat"
)

const (
	// pollTimeoutSec is the long-poll timeout passed to getUpdates.
	pollTimeoutSec = 30
	// downloadTimeout bounds file downloads from Telegram servers.
	downloadTimeout = 30 * time.Second
)

// api abstracts the tgbotapi.BotAPI methods we use, enabling test mocks.
type api interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// Adapter implements chat.Gateway and chat.Source for Telegram.
type Adapter struct {
	token    string
	download *http.Client

	mu        sync.Mutex
	bot       api
	connected bool
	closed    bool
	updates   chan chat.Update
}

var (
	_ chat.Gateway = (*Adapter)(nil)
	_ chat.Source  = (*Adapter)(nil)
)

// AdapterOpts holds parameters for creating a Telegram Adapter.
type AdapterOpts struct {
	Token string
	// For testing: inject a mock bot instead of the real Bot API.
	Bot api
	// For testing: override the file-download HTTP client.
	DownloadClient *http.Client
}

// New creates a Telegram Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Bot == nil && opts.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	dl := opts.DownloadClient
	if dl == nil {
		dl = &http.Client{Timeout: downloadTimeout}
	}
	return &Adapter{
		token:    opts.Token,
		bot:      opts.Bot,
		download: dl,
		updates:  make(chan chat.Update, 100),
	}, nil
}

// Connect authenticates against the Bot API.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}
	if a.bot == nil {
		bot, err := tgbotapi.NewBotAPI(a.token)
		if err != nil {
			return fmt.Errorf("telegram: authenticate: %w", err)
		}
		log.Printf("telegram: connected as @%s", bot.Self.UserName)
		a.bot = bot
	}
	a.connected = true
	return nil
}

// Updates starts long polling and returns the inbound update channel.
// Must be called after Connect.
func (a *Adapter) Updates(ctx context.Context) (<-chan chat.Update, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("telegram: not connected")
	}
	bot := a.bot
	a.mu.Unlock()

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSec
	raw := bot.GetUpdatesChan(cfg)

	go func() {
		defer close(a.updates)
		for {
			select {
			case <-ctx.Done():
				bot.StopReceivingUpdates()
				return
			case upd, ok := <-raw:
				if !ok {
					return
				}
				if converted, ok := convertUpdate(upd); ok {
					a.updates <- converted
				}
			}
		}
	}()

	return a.updates, nil
}

// Close shuts down polling.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.connected {
		a.bot.StopReceivingUpdates()
		a.connected = false
	}
	return nil
}

// convertUpdate translates a Telegram update into a chat.Update. Returns
// false for update kinds the bot does not handle (edits, channel posts,
// messages from other bots).
func convertUpdate(upd tgbotapi.Update) (chat.Update, bool) {
	if cb := upd.CallbackQuery; cb != nil && cb.Message != nil {
		return chat.Update{
			ChatID:    cb.Message.Chat.ID,
			ChatTitle: cb.Message.Chat.Title,
			ChatType:  cb.Message.Chat.Type,
			UserID:    cb.From.ID,
			UserName:  cb.From.UserName,
			MessageID: cb.Message.MessageID,
			Callback: &chat.Callback{
				ID:        cb.ID,
				Data:      cb.Data,
				MessageID: cb.Message.MessageID,
			},
		}, true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return chat.Update{}, false
	}

	out := chat.Update{
		ChatID:    msg.Chat.ID,
		ChatTitle: msg.Chat.Title,
		ChatType:  msg.Chat.Type,
		UserID:    msg.From.ID,
		UserName:  msg.From.UserName,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if len(msg.Photo) > 0 {
		// Telegram sends several sizes; the last is the largest.
		out.Photo = &chat.PhotoInput{
			FileID:       msg.Photo[len(msg.Photo)-1].FileID,
			MediaGroupID: msg.MediaGroupID,
		}
	}
	return out, true
}

// keyboardMarkup converts a chat.Keyboard to the Telegram inline markup.
func keyboardMarkup(kb chat.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SendMessage sends text to a chat and returns the new message ID.
func (a *Adapter) SendMessage(ctx context.Context, chatID int64, text string, opts chat.SendOpts) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if opts.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if len(opts.Keyboard) > 0 {
		msg.ReplyMarkup = keyboardMarkup(opts.Keyboard)
	}
	sent, err := a.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram: send message: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text and keyboard of an existing message.
func (a *Adapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string, opts chat.SendOpts) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if opts.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if len(opts.Keyboard) > 0 {
		markup := keyboardMarkup(opts.Keyboard)
		edit.ReplyMarkup = &markup
	}
	if _, err := a.bot.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return chat.ErrNotModified
		}
		return fmt.Errorf("telegram: edit message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message.
func (a *Adapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if _, err := a.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram: delete message %d: %w", messageID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press.
func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := a.bot.Request(cb); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

// SendPhoto sends a single photo with an optional caption.
func (a *Adapter) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) (int, error) {
	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "photo.jpg", Bytes: photo})
	cfg.Caption = caption
	sent, err := a.bot.Send(cfg)
	if err != nil {
		return 0, fmt.Errorf("telegram: send photo: %w", err)
	}
	return sent.MessageID, nil
}

// SendMediaGroup sends several photos as one album.
func (a *Adapter) SendMediaGroup(ctx context.Context, chatID int64, photos [][]byte) ([]int, error) {
	media := make([]interface{}, 0, len(photos))
	for i, p := range photos {
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{
			Name:  fmt.Sprintf("photo-%d.jpg", i),
			Bytes: p,
		}))
	}
	sent, err := a.bot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media))
	if err != nil {
		return nil, fmt.Errorf("telegram: send media group: %w", err)
	}
	ids := make([]int, len(sent))
	for i, m := range sent {
		ids[i] = m.MessageID
	}
	return ids, nil
}

// CheckChat probes whether the bot can see the chat.
func (a *Adapter) CheckChat(ctx context.Context, chatID int64) error {
	if _, err := a.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	}); err != nil {
		return fmt.Errorf("telegram: check chat %d: %w", chatID, err)
	}
	return nil
}

// DownloadPhoto fetches the binary content of an inbound photo.
func (a *Adapter) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	file, err := a.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("telegram: get file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(a.token), nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: download %s: %w", fileID, err)
	}
	resp, err := a.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: download %s: status %d", fileID, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: download %s: read: %w", fileID, err)
	}
	return data, nil
}
