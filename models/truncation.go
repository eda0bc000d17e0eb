package models

// TokenCounter is a provider's token approximation.
type TokenCounter func(text string) int

// CountMessages sums count over the text of every message.
func CountMessages(messages []Message, count TokenCounter) int {
	total := 0
	for _, m := range messages {
		total += count(m.Text())
	}
	return total
}

// KeepRecent is the priority-keep strategy: when messages exceed maxTokens it
// keeps every system message plus the last keep non-system messages, in their
// original order.
//
// The result is bounded by message count, not by tokens, and can still exceed
// maxTokens. Callers using this strategy accept that overshoot.
func KeepRecent(messages []Message, maxTokens, keep int, count TokenCounter) []Message {
	if CountMessages(messages, count) <= maxTokens {
		return messages
	}

	nonSystem := 0
	for _, m := range messages {
		if m.Role != RoleSystem {
			nonSystem++
		}
	}
	skip := nonSystem - keep

	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			out = append(out, m)
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, m)
	}
	return out
}

// FillFromNewest is the greedy-reverse-fill strategy: it walks from the newest
// message to the oldest, accumulating tokens, and stops at the first message
// that would exceed maxTokens. The result never exceeds maxTokens, which means
// older system messages are dropped when the budget fills before reaching them.
func FillFromNewest(messages []Message, maxTokens int, count TokenCounter) []Message {
	used := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		n := count(messages[i].Text())
		if used+n > maxTokens {
			break
		}
		used += n
		start = i
	}
	out := make([]Message, len(messages)-start)
	copy(out, messages[start:])
	return out
}
