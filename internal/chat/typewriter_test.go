package chat

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRevealEmitsWholeText(t *testing.T) {
	text := "héllo, wörld"

	var b strings.Builder
	count := 0
	for chunk := range Reveal(context.Background(), text, time.Millisecond) {
		b.WriteString(chunk)
		count++
	}

	if b.String() != text {
		t.Fatalf("reassembled %q, want %q", b.String(), text)
	}
	if count != len([]rune(text)) {
		t.Fatalf("expected %d chunks, got %d", len([]rune(text)), count)
	}
}

func TestRevealEmptyText(t *testing.T) {
	ch := Reveal(context.Background(), "", time.Millisecond)
	if _, ok := <-ch; ok {
		t.Fatalf("empty text must close without chunks")
	}
}

func TestRevealCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Reveal(ctx, strings.Repeat("a", 1000), 5*time.Millisecond)

	// take one chunk, then cancel
	if _, ok := <-ch; !ok {
		t.Fatalf("expected at least one chunk")
	}
	cancel()

	received := 1
	for range ch {
		received++
	}
	if received >= 1000 {
		t.Fatalf("cancellation did not stop the reveal")
	}
}
