package chat

import (
	"context"
	"time"
)

// Reveal plays a reply back one rune at a time: a cancellable timed
// iterator producing a finite sequence of chunks. The channel is closed
// after the last rune or as soon as ctx is cancelled.
func Reveal(ctx context.Context, text string, interval time.Duration) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		runes := []rune(text)
		if len(runes) == 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, r := range runes {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			select {
			case <-ctx.Done():
				return
			case out <- string(r):
			}
		}
	}()

	return out
}
