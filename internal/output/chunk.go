package output

import (
	"context"
	"strings"
)

// Message size budgets, kept below the hard limits (Telegram 4096, Discord
// 2000) to leave room for the header.
const (
	telegramMessageLimit = 3800
	discordMessageLimit  = 1900
)

// splitMessages packs entries into messages of at most limit bytes, with
// header leading the first one. A message always carries at least one entry,
// so an entry larger than limit is sent on its own and the header never goes
// out alone. No entries means no messages.
func splitMessages(header string, entries []string, limit int) []string {
	var msgs []string
	var b strings.Builder
	b.WriteString(header)
	filled := false
	for _, e := range entries {
		if filled && b.Len()+len(e) > limit {
			msgs = append(msgs, b.String())
			b.Reset()
			filled = false
		}
		b.WriteString(e)
		filled = true
	}
	if filled {
		msgs = append(msgs, b.String())
	}
	return msgs
}

// sendEach stops at the first failed message.
func sendEach(ctx context.Context, msgs []string, send func(context.Context, string) error) error {
	for _, m := range msgs {
		if err := send(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
