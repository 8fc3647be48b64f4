package bot

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/vodchyts/repairdesk/internal/chat"
)

// renderMainMenu draws the request list for the session's current filters,
// editing the existing list message when one exists.
func (b *Bot) renderMainMenu(ctx context.Context, sess *Session) {
	records, err := b.sortedDataset(ctx, sess)
	if err != nil {
		log.Printf("bot: load requests for chat %d: %v", sess.ChatID, err)
		b.reply(ctx, sess.ChatID, "Failed to load requests. Try again later.")
		return
	}

	page, clamped, totalPages := pageSlice(records, sess.Filters.Page)
	sess.Filters.Page = clamped

	text := FormatRequestList(page, clamped, totalPages, sess.Filters)
	opts := chat.SendOpts{
		Markdown: true,
		Keyboard: mainMenuKeyboard(page, clamped, totalPages, sess.Filters),
	}
	b.showMain(ctx, sess, text, opts)
}

// showMain edits the tracked main message in place, falling back to a
// fresh send when there is none yet.
func (b *Bot) showMain(ctx context.Context, sess *Session, text string, opts chat.SendOpts) {
	if sess.MainMessageID != 0 {
		err := b.gw.EditMessage(ctx, sess.ChatID, sess.MainMessageID, text, opts)
		if err == nil || errors.Is(err, chat.ErrNotModified) {
			return
		}
		log.Printf("bot: edit main message in chat %d: %v", sess.ChatID, err)
		sess.MainMessageID = 0
	}
	id, err := b.gw.SendMessage(ctx, sess.ChatID, text, opts)
	if err != nil {
		log.Printf("bot: send main message to chat %d: %v", sess.ChatID, err)
		return
	}
	sess.MainMessageID = id
}

// handleViewCallback dispatches list-view button presses.
func (b *Bot) handleViewCallback(ctx context.Context, sess *Session, cb *chat.Callback, action, value string) {
	defer b.answer(ctx, cb.ID, "", false)

	switch action {
	case "page":
		// Page moves never invalidate the cache.
		switch value {
		case "prev":
			sess.Filters.Page--
		case "next":
			sess.Filters.Page++
		}
		sess.State = StateMainMenu
		b.renderMainMenu(ctx, sess)

	case "search":
		sess.State = StateSetSearchTerm
		id, err := b.gw.SendMessage(ctx, sess.ChatID, "Send a search term, or /cancel.", chat.SendOpts{})
		if err != nil {
			log.Printf("bot: send search prompt to chat %d: %v", sess.ChatID, err)
			return
		}
		sess.PromptMessageID = id

	case "sort":
		sess.State = StateSetSorting
		b.renderSortMenu(ctx, sess)

	case "archive":
		sess.Filters.Archived = !sess.Filters.Archived
		sess.Filters.Page = 0
		sess.InvalidateCache()
		sess.State = StateMainMenu
		b.renderMainMenu(ctx, sess)

	case "reset":
		sess.ResetFilters()
		sess.State = StateMainMenu
		b.renderMainMenu(ctx, sess)

	case "exit":
		b.deleteQuiet(ctx, sess.ChatID, sess.MainMessageID)
		sess.MainMessageID = 0
		sess.State = StateIdle

	case "open":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			log.Printf("bot: bad open payload %q in chat %d", value, sess.ChatID)
			return
		}
		sess.State = StateDetails
		b.renderDetails(ctx, sess, id)
	}
}

// renderSortMenu draws the sort-field menu into the main message.
func (b *Bot) renderSortMenu(ctx context.Context, sess *Session) {
	text := "*Sorting*\n" + FormatFilterSummary(sess.Filters) +
		"\n\nPick a field to add, change, or remove\\."
	b.showMain(ctx, sess, text, chat.SendOpts{
		Markdown: true,
		Keyboard: sortFieldKeyboard(sess.Filters),
	})
}

// handleSortCallback dispatches sort-menu button presses.
func (b *Bot) handleSortCallback(ctx context.Context, sess *Session, cb *chat.Callback, action, value string) {
	defer b.answer(ctx, cb.ID, "", false)

	switch action {
	case "field":
		text := "*Sorting by " + Escape(value) + "*"
		b.showMain(ctx, sess, text, chat.SendOpts{
			Markdown: true,
			Keyboard: sortDirectionKeyboard(value),
		})

	case "asc", "desc":
		sess.Filters.SetSort(value, action == "desc")
		sess.Filters.Page = 0
		sess.InvalidateCache()
		b.renderSortMenu(ctx, sess)

	case "remove":
		sess.Filters.RemoveSort(value)
		sess.Filters.Page = 0
		sess.InvalidateCache()
		b.renderSortMenu(ctx, sess)

	case "clear":
		current := sess.Filters
		sess.Filters = DefaultFilters()
		sess.Filters.Archived = current.Archived
		sess.Filters.SearchTerm = current.SearchTerm
		sess.InvalidateCache()
		b.renderSortMenu(ctx, sess)

	case "back":
		b.renderSortMenu(ctx, sess)

	case "done":
		sess.State = StateMainMenu
		b.renderMainMenu(ctx, sess)
	}
}

// handleSearchInput consumes the free-text search term. The user's
// message and the prompt are deleted to keep the chat tidy.
func (b *Bot) handleSearchInput(ctx context.Context, sess *Session, upd chat.Update) {
	b.deleteQuiet(ctx, sess.ChatID, upd.MessageID)
	b.deleteQuiet(ctx, sess.ChatID, sess.PromptMessageID)
	sess.PromptMessageID = 0

	sess.Filters.SearchTerm = upd.Text
	sess.Filters.Page = 0
	sess.InvalidateCache()
	sess.State = StateMainMenu
	b.renderMainMenu(ctx, sess)
}
