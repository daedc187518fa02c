// Package chat holds the conversation transcript for a browser tab and
// routes submitted input to the delegation flow.
package chat

// Role tags who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting seeds every new transcript.
const Greeting = "Greetings, seeker of wisdom. I am the Alchemist, your guide through the intricate realm of DAOs. " +
	"How may I illuminate your path today?"

// Message is one transcript entry. Messages are values and never change
// after they are appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-authored message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-authored message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Append returns t with m added at the end. The input slice is not modified
// and the result never shares its backing array.
func Append(t []Message, m Message) []Message {
	out := make([]Message, len(t), len(t)+1)
	copy(out, t)
	return append(out, m)
}
