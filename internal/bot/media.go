package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vodchyts/repairdesk/internal/chat"
)

// mediaDebounce is the quiet window after the last photo of a media
// group before the batch is flushed. Variable so tests can shorten it.
var mediaDebounce = 2 * time.Second

// maxPhotosPerRequest caps the total photos attached to one request.
const maxPhotosPerRequest = 10

// mediaBuffer accumulates the photos of one inbound media group until
// the debounce window closes.
type mediaBuffer struct {
	requestID  int64
	fileIDs    []string
	messageIDs []int
	lastAdd    time.Time
}

// handleInboundPhoto routes one photo arriving in the add-photo state.
// Standalone photos upload immediately; media-group photos are buffered
// until the group goes quiet.
func (b *Bot) handleInboundPhoto(ctx context.Context, sess *Session, upd chat.Update) {
	if upd.Photo.MediaGroupID == "" {
		b.uploadBatch(ctx, sess, sess.CurrentRequestID,
			[]string{upd.Photo.FileID}, []int{upd.MessageID})
		return
	}

	key := fmt.Sprintf("%d:%s", sess.ChatID, upd.Photo.MediaGroupID)

	b.mediaMu.Lock()
	buf, ok := b.media[key]
	if !ok {
		buf = &mediaBuffer{requestID: sess.CurrentRequestID}
		b.media[key] = buf
	}
	buf.fileIDs = append(buf.fileIDs, upd.Photo.FileID)
	buf.messageIDs = append(buf.messageIDs, upd.MessageID)
	buf.lastAdd = time.Now()
	b.mediaMu.Unlock()

	if ok {
		return // the goroutine armed on first sight handles the flush
	}

	sess.Go(func(ctx context.Context) {
		timer := time.NewTimer(mediaDebounce)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				b.dropBuffer(key)
				return
			case <-timer.C:
			}

			b.mediaMu.Lock()
			quiet := time.Since(buf.lastAdd)
			if quiet < mediaDebounce {
				b.mediaMu.Unlock()
				timer.Reset(mediaDebounce - quiet)
				continue
			}
			delete(b.media, key)
			fileIDs, messageIDs, requestID := buf.fileIDs, buf.messageIDs, buf.requestID
			b.mediaMu.Unlock()

			b.uploadBatch(ctx, sess, requestID, fileIDs, messageIDs)
			return
		}
	})
}

// dropBuffer discards a buffered media group without uploading.
func (b *Bot) dropBuffer(key string) {
	b.mediaMu.Lock()
	delete(b.media, key)
	b.mediaMu.Unlock()
}

// uploadBatch downloads the batch, enforces the per-request photo cap
// against what the backend already holds, uploads, and restores the
// request card. The user's photo messages and the prompt are deleted
// either way.
func (b *Bot) uploadBatch(ctx context.Context, sess *Session, requestID int64, fileIDs []string, messageIDs []int) {
	defer func() {
		for _, id := range messageIDs {
			b.deleteQuiet(ctx, sess.ChatID, id)
		}
		b.deleteQuiet(ctx, sess.ChatID, sess.PromptMessageID)
		sess.PromptMessageID = 0
	}()

	existing, err := b.api.ListPhotoIDs(ctx, requestID)
	if err != nil {
		log.Printf("bot: count photos on request %d: %v", requestID, err)
		b.reply(ctx, sess.ChatID, "Failed to attach photos. Try again later.")
		return
	}
	if len(existing)+len(fileIDs) > maxPhotosPerRequest {
		b.reply(ctx, sess.ChatID, fmt.Sprintf(
			"Cannot attach %d photos: the request already has %d of at most %d. Nothing was uploaded.",
			len(fileIDs), len(existing), maxPhotosPerRequest))
		sess.State = StateDetails
		b.renderDetails(ctx, sess, requestID)
		return
	}

	photos := make([][]byte, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		data, err := b.gw.DownloadPhoto(ctx, fileID)
		if err != nil {
			log.Printf("bot: download photo %s: %v", fileID, err)
			b.reply(ctx, sess.ChatID, "Failed to attach photos. Try again later.")
			return
		}
		photos = append(photos, data)
	}

	if err := b.api.UploadPhotos(ctx, requestID, sess.UserID, photos); err != nil {
		log.Printf("bot: upload %d photos to request %d: %v", len(photos), requestID, err)
		b.reply(ctx, sess.ChatID, "Failed to attach photos. Try again later.")
		return
	}

	sess.InvalidateCache()
	sess.State = StateDetails
	b.renderDetails(ctx, sess, requestID)
	b.notice(ctx, sess, fmt.Sprintf("%d photo(s) attached.", len(photos)))
}
