package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// StartDigest launches a goroutine sending a digest on the given 5-field
// cron schedule until ctx is cancelled. The expression is validated up
// front so a typo surfaces at startup, not at 9am the next day.
func (n *Notifier) StartDigest(ctx context.Context, expr string) error {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("notify: parse digest cron %q: %w", expr, err)
	}

	go func() {
		for {
			d := time.Until(sched.Next(time.Now()))
			if d <= 0 {
				d = time.Second
			}
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				n.Digest(ctx)
			}
		}
	}()

	return nil
}
