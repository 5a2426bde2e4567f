package events

// LogMessage is one line of server output handed to the consumer.
// Messages are values and are never mutated after creation.
type LogMessage struct {
	Content string `json:"content"`

	// IsBacklog marks lines that predate attachment. Consumers should not
	// re-trigger side effects (command handling, votes) for them.
	IsBacklog bool `json:"is_backlog"`
}

// NewLogMessage creates a live log message.
func NewLogMessage(content string) LogMessage {
	return LogMessage{Content: content}
}

// NewBacklogMessage creates a log message replayed from history.
func NewBacklogMessage(content string) LogMessage {
	return LogMessage{Content: content, IsBacklog: true}
}
