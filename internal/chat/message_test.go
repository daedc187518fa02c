package chat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	base := make([]Message, 1, 8)
	base[0] = AssistantMessage("hi")

	a := Append(base, UserMessage("one"))
	b := Append(base, UserMessage("two"))

	if len(base) != 1 {
		t.Fatalf("input modified: %v", base)
	}
	if a[1].Content != "one" || b[1].Content != "two" {
		t.Fatalf("appends interfered: a=%v b=%v", a, b)
	}
}

func TestTranscriptSeededWithGreeting(t *testing.T) {
	t.Parallel()

	tr := NewTranscript()
	want := []Message{{Role: RoleAssistant, Content: Greeting}}
	if diff := cmp.Diff(want, tr.Messages()); diff != "" {
		t.Fatalf("unexpected seed (-want +got):\n%s", diff)
	}
}

func TestTranscriptPreservesOrderAndNotifies(t *testing.T) {
	t.Parallel()

	tr := NewTranscript()
	var seen []Message
	snapshot, cancel := tr.Subscribe(func(_ int, m Message) { seen = append(seen, m) })
	if len(snapshot) != 1 {
		t.Fatalf("expected greeting in snapshot, got %v", snapshot)
	}

	tr.Append(UserMessage("a"))
	tr.Append(AssistantMessage("b"))
	cancel()
	tr.Append(UserMessage("c"))

	want := []Message{UserMessage("a"), AssistantMessage("b")}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("subscriber mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Message{AssistantMessage("b"), UserMessage("c")}, tr.Since(2)); diff != "" {
		t.Fatalf("Since mismatch (-want +got):\n%s", diff)
	}
	if tr.Last() != UserMessage("c") {
		t.Fatalf("unexpected last message %v", tr.Last())
	}

	msgs := tr.Messages()
	msgs[0].Content = "mutated"
	if tr.Messages()[0].Content != Greeting {
		t.Fatal("Messages returned shared storage")
	}
}
