package bot

import (
	"context"
	"log"
	"time"
)

// cleanupDelay is how long transient messages (photo albums, notices)
// stay visible before deletion.
const cleanupDelay = 20 * time.Second

// scheduleCleanup deletes the given messages after delay. The timer runs
// on the session's background scope, so clearing the session cancels any
// pending deletions. Deletions are best effort.
func (b *Bot) scheduleCleanup(sess *Session, delay time.Duration, messageIDs ...int) {
	if len(messageIDs) == 0 {
		return
	}
	chatID := sess.ChatID
	sess.Go(func(ctx context.Context) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		for _, id := range messageIDs {
			if err := b.gw.DeleteMessage(ctx, chatID, id); err != nil {
				log.Printf("bot: cleanup message %d in chat %d: %v", id, chatID, err)
			}
		}
	})
}
