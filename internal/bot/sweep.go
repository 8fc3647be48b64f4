package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// SweepIdleSessions runs the idle-session sweep on the given cron
// schedule until the context is cancelled. Sessions idle longer than ttl
// are cleared, cancelling their pending background work.
func (b *Bot) SweepIdleSessions(ctx context.Context, schedule string, ttl time.Duration) error {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("bot: parse sweep schedule %q: %w", schedule, err)
	}

	for {
		next := time.Until(sched.Next(time.Now()))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(next):
		}
		if n := b.store.SweepIdle(ttl); n > 0 {
			log.Printf("bot: swept %d idle session(s)", n)
		}
	}
}
