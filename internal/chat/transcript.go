package chat

import "sync"

// Transcript is an append-only, ordered list of messages.
type Transcript struct {
	mu          sync.RWMutex
	messages    []Message
	subscribers map[int]func(int, Message)
	nextSubID   int
}

// NewTranscript returns a transcript seeded with the greeting.
func NewTranscript() *Transcript {
	return &Transcript{
		messages:    []Message{AssistantMessage(Greeting)},
		subscribers: make(map[int]func(int, Message)),
	}
}

// Append adds m and notifies subscribers with its index, in append order.
// Subscribers run while the transcript is locked and must not block or call
// back into it.
func (t *Transcript) Append(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = Append(t.messages, m)
	idx := len(t.messages) - 1
	for _, fn := range t.subscribers {
		fn(idx, m)
	}
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Transcript) Last() Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.messages[len(t.messages)-1]
}

// Since returns the messages appended after the first n.
func (t *Transcript) Since(n int) []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n >= len(t.messages) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return append([]Message(nil), t.messages[n:]...)
}

// Subscribe registers fn for future appends and returns the current
// messages atomically with the registration, so no message is missed or
// seen twice.
func (t *Transcript) Subscribe(fn func(index int, m Message)) (snapshot []Message, cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = fn
	snapshot = append([]Message(nil), t.messages...)
	return snapshot, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subscribers, id)
	}
}
