package bot

import (
	"context"
	"fmt"

	"github.com/vodchyts/repairdesk/internal/chat"
)

// Run connects the source and processes inbound updates until the
// context is cancelled or the update channel closes.
func (b *Bot) Run(ctx context.Context, src chat.Source) error {
	if err := src.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}
	updates, err := src.Updates(ctx)
	if err != nil {
		return fmt.Errorf("bot: subscribe: %w", err)
	}
	fmt.Fprintln(b.out, "bot: processing updates")

	for {
		select {
		case <-ctx.Done():
			if err := src.Close(); err != nil {
				return fmt.Errorf("bot: close source: %w", err)
			}
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.Handle(ctx, upd)
		}
	}
}
