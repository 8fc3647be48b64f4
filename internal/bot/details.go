package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/vodchyts/repairdesk/internal/chat"
)

const (
	// photoViewLimit caps how many photos one viewing fetches and sends.
	photoViewLimit = 10
)

// renderDetails draws the request card into the main message.
func (b *Bot) renderDetails(ctx context.Context, sess *Session, requestID int64) {
	req, err := b.api.GetRequest(ctx, sess.UserID, requestID)
	if err != nil {
		log.Printf("bot: load request %d for chat %d: %v", requestID, sess.ChatID, err)
		b.reply(ctx, sess.ChatID, fmt.Sprintf("Request #%d could not be loaded.", requestID))
		return
	}
	sess.CurrentRequestID = requestID

	b.showMain(ctx, sess, FormatDetails(*req), chat.SendOpts{
		Markdown: true,
		Keyboard: detailsKeyboard(*req, sess.User),
	})
}

// handleActionCallback dispatches request-card button presses.
func (b *Bot) handleActionCallback(ctx context.Context, sess *Session, cb *chat.Callback, action, value string) {
	if action == "back" {
		b.answer(ctx, cb.ID, "", false)
		if value == "list" {
			sess.State = StateMainMenu
			sess.CurrentRequestID = 0
			b.renderMainMenu(ctx, sess)
			return
		}
		if id, err := strconv.ParseInt(value, 10, 64); err == nil {
			sess.State = StateDetails
			b.renderDetails(ctx, sess, id)
		}
		return
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("bot: bad action payload %s_%s in chat %d", action, value, sess.ChatID)
		b.answer(ctx, cb.ID, "", false)
		return
	}

	switch action {
	case "comments":
		b.answer(ctx, cb.ID, "", false)
		b.showComments(ctx, sess, id)
	case "photos":
		b.answer(ctx, cb.ID, "", false)
		b.showPhotos(ctx, sess, id)
	case "addcomment":
		b.answer(ctx, cb.ID, "", false)
		b.promptComment(ctx, sess, id)
	case "addphoto":
		b.answer(ctx, cb.ID, "", false)
		b.promptPhoto(ctx, sess, id)
	case "complete":
		b.completeRequest(ctx, sess, cb, id)
	case "edit":
		b.startEdit(ctx, sess, cb, id)
	default:
		b.answer(ctx, cb.ID, "", false)
	}
}

// showComments replaces the card with the comment thread.
func (b *Bot) showComments(ctx context.Context, sess *Session, requestID int64) {
	req, err := b.api.GetRequest(ctx, sess.UserID, requestID)
	if err != nil {
		log.Printf("bot: load request %d: %v", requestID, err)
		b.reply(ctx, sess.ChatID, "Failed to load comments.")
		return
	}
	comments, err := b.api.ListComments(ctx, requestID)
	if err != nil {
		log.Printf("bot: load comments for request %d: %v", requestID, err)
		b.reply(ctx, sess.ChatID, "Failed to load comments.")
		return
	}

	b.showMain(ctx, sess, FormatComments(*req, comments), chat.SendOpts{
		Markdown: true,
		Keyboard: chat.Keyboard{
			{btn("➕ Comment", fmt.Sprintf("act_addcomment_%d", requestID))},
			{btn("⬅️ Back", fmt.Sprintf("act_back_%d", requestID))},
		},
	})
}

// showPhotos sends the request's photos as an album and schedules the
// album (and its status line) for deferred cleanup, leaving the card
// intact above them.
func (b *Bot) showPhotos(ctx context.Context, sess *Session, requestID int64) {
	ids, err := b.api.ListPhotoIDs(ctx, requestID)
	if err != nil {
		log.Printf("bot: list photos for request %d: %v", requestID, err)
		b.reply(ctx, sess.ChatID, "Failed to load photos.")
		return
	}
	if len(ids) == 0 {
		b.notice(ctx, sess, "No photos attached.")
		return
	}
	if len(ids) > photoViewLimit {
		ids = ids[:photoViewLimit]
	}

	photos := make([][]byte, 0, len(ids))
	for _, photoID := range ids {
		data, err := b.api.GetPhoto(ctx, photoID)
		if err != nil {
			log.Printf("bot: fetch photo %d: %v", photoID, err)
			b.reply(ctx, sess.ChatID, "Failed to load photos.")
			return
		}
		photos = append(photos, data)
	}

	var cleanup []int
	if len(photos) == 1 {
		id, err := b.gw.SendPhoto(ctx, sess.ChatID, photos[0], "")
		if err != nil {
			log.Printf("bot: send photo to chat %d: %v", sess.ChatID, err)
			return
		}
		cleanup = append(cleanup, id)
	} else {
		ids, err := b.gw.SendMediaGroup(ctx, sess.ChatID, photos)
		if err != nil {
			log.Printf("bot: send album to chat %d: %v", sess.ChatID, err)
			return
		}
		cleanup = append(cleanup, ids...)
	}

	statusID, err := b.gw.SendMessage(ctx, sess.ChatID,
		fmt.Sprintf("Photos for request #%d. This message disappears shortly.", requestID),
		chat.SendOpts{})
	if err == nil {
		cleanup = append(cleanup, statusID)
	}

	b.scheduleCleanup(sess, cleanupDelay, cleanup...)
}

// notice flashes a short-lived status message under the card.
func (b *Bot) notice(ctx context.Context, sess *Session, text string) {
	id, err := b.gw.SendMessage(ctx, sess.ChatID, text, chat.SendOpts{})
	if err != nil {
		log.Printf("bot: send notice to chat %d: %v", sess.ChatID, err)
		return
	}
	b.scheduleCleanup(sess, cleanupDelay, id)
}

// promptComment asks for the comment text.
func (b *Bot) promptComment(ctx context.Context, sess *Session, requestID int64) {
	sess.State = StateAddComment
	sess.CurrentRequestID = requestID
	id, err := b.gw.SendMessage(ctx, sess.ChatID, "Send your comment, or /cancel.", chat.SendOpts{})
	if err != nil {
		log.Printf("bot: send comment prompt to chat %d: %v", sess.ChatID, err)
		return
	}
	sess.PromptMessageID = id
}

// handleCommentInput posts the comment and restores the card. Both the
// prompt and the user's message are deleted.
func (b *Bot) handleCommentInput(ctx context.Context, sess *Session, upd chat.Update) {
	b.deleteQuiet(ctx, sess.ChatID, upd.MessageID)
	b.deleteQuiet(ctx, sess.ChatID, sess.PromptMessageID)
	sess.PromptMessageID = 0

	if _, err := b.api.AddComment(ctx, sess.CurrentRequestID, sess.UserID, upd.Text); err != nil {
		log.Printf("bot: add comment to request %d: %v", sess.CurrentRequestID, err)
		b.reply(ctx, sess.ChatID, "Failed to post the comment.")
	}
	sess.State = StateDetails
	b.renderDetails(ctx, sess, sess.CurrentRequestID)
}

// promptPhoto asks for photos and arms the media-group debouncer state.
func (b *Bot) promptPhoto(ctx context.Context, sess *Session, requestID int64) {
	sess.State = StateAddPhoto
	sess.CurrentRequestID = requestID
	id, err := b.gw.SendMessage(ctx, sess.ChatID,
		"Send one or more photos, or /cancel.", chat.SendOpts{})
	if err != nil {
		log.Printf("bot: send photo prompt to chat %d: %v", sess.ChatID, err)
		return
	}
	sess.PromptMessageID = id
}

// completeRequest marks the request done, with the same gate the button
// itself was rendered under.
func (b *Bot) completeRequest(ctx context.Context, sess *Session, cb *chat.Callback, requestID int64) {
	req, err := b.api.GetRequest(ctx, sess.UserID, requestID)
	if err != nil {
		log.Printf("bot: load request %d: %v", requestID, err)
		b.answer(ctx, cb.ID, "Failed to load the request.", true)
		return
	}
	if !canComplete(*req, sess.User) {
		b.answer(ctx, cb.ID, "You cannot complete this request.", true)
		return
	}

	if _, err := b.api.CompleteRequest(ctx, sess.UserID, requestID); err != nil {
		log.Printf("bot: complete request %d: %v", requestID, err)
		b.answer(ctx, cb.ID, "Failed to complete the request.", true)
		return
	}

	b.answer(ctx, cb.ID, "Request completed.", false)
	sess.InvalidateCache()
	b.renderDetails(ctx, sess, requestID)
}
