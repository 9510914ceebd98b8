package llm

// historyTokenBudget bounds how much conversation history is sent upstream.
const historyTokenBudget = 4000

// EstimateTokens gives a rough token count for text, about 4 characters per
// token.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// TruncateMessages drops the oldest messages until the estimated token total
// fits the budget. The newest message is always kept, even when it alone
// exceeds the budget.
func TruncateMessages(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	if total <= maxTokens {
		return messages
	}

	var truncated []Message
	current := 0
	for i := len(messages) - 1; i >= 0; i-- {
		tokens := EstimateTokens(messages[i].Content)
		if current+tokens <= maxTokens {
			truncated = append([]Message{messages[i]}, truncated...)
			current += tokens
		} else if len(truncated) == 0 {
			truncated = []Message{messages[i]}
			break
		}
	}
	return truncated
}
