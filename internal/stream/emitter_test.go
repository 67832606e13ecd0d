package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/pipeline"
	"github.com/mockmate/mockmate/internal/specialist"
)

type scriptGenerator struct {
	responses []scriptResponse
	calls     int
}

type scriptResponse struct {
	text string
	err  error
}

func (s *scriptGenerator) Generate(context.Context, []ai.Message) (string, error) {
	if s.calls >= len(s.responses) {
		return "", errors.New("unexpected call")
	}
	res := s.responses[s.calls]
	s.calls++
	return res.text, res.err
}

func newEmitter(t *testing.T, backend ai.Generator) *Emitter {
	t.Helper()
	registry, err := specialist.NewRegistry()
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	e := NewEmitter(pipeline.NewInterview(registry, backend, zap.NewNop()), zap.NewNop())
	e.eventDelay = 0
	e.chunkDelay = 0
	return e
}

func collect(t *testing.T, e *Emitter, state *pipeline.InterviewState) []Event {
	t.Helper()
	var events []Event
	if err := e.Stream(context.Background(), state, func(ev Event) error {
		events = append(events, ev)
		return nil
	}); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	return events
}

func eventTypes(events []Event) []Type {
	types := make([]Type, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestStreamHappyPathOrder(t *testing.T) {
	answer := strings.Repeat("Estimate the write volume before sharding anything. ", 4)
	e := newEmitter(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "system_design", "reasoning": "design scope", "confidence": 0.9}`},
		{text: answer},
		{text: `["How do you handle hot keys?", "What about replication lag?", "Which metrics matter?"]`},
	}})

	state := &pipeline.InterviewState{Question: "Design a URL shortener"}
	events := collect(t, e, state)

	types := eventTypes(events)
	if types[0] != TypeStart || types[1] != TypeRouting || types[2] != TypeProcessing {
		t.Fatalf("unexpected prefix: %v", types)
	}
	if types[len(types)-1] != TypeComplete {
		t.Fatalf("expected complete as terminal event, got %v", types)
	}

	var rebuilt strings.Builder
	finals := 0
	for i, ev := range events {
		switch ev.Type {
		case TypeContent:
			rebuilt.WriteString(ev.Data["chunk"].(string))
			if ev.Data["is_final"].(bool) {
				finals++
				if events[i+1].Type != TypeAnswerComplete {
					t.Fatalf("final chunk must precede answer_complete, got %v", events[i+1].Type)
				}
			}
		case TypeAnswerComplete:
			if ev.Data["full_answer"].(string) != answer {
				t.Fatal("answer_complete carries a different answer")
			}
		case TypeFollowUps:
			if n := len(ev.Data["questions"].([]string)); n != 3 {
				t.Fatalf("expected 3 follow-up questions, got %d", n)
			}
		}
	}
	if rebuilt.String() != answer {
		t.Fatalf("concatenated chunks do not reproduce the answer:\n%q\n%q", rebuilt.String(), answer)
	}
	if finals != 1 {
		t.Fatalf("expected exactly one final chunk, got %d", finals)
	}
}

func TestStreamAnswerFailureEndsWithErrorEvent(t *testing.T) {
	e := newEmitter(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "technical", "reasoning": "r", "confidence": 0.9}`},
		{err: errors.New("model exploded")},
	}})

	state := &pipeline.InterviewState{Question: "Explain binary search"}
	events := collect(t, e, state)

	last := events[len(events)-1]
	if last.Type != TypeError {
		t.Fatalf("expected terminal error event, got %v", eventTypes(events))
	}
	if !strings.Contains(last.Data["error"].(string), "model exploded") {
		t.Fatalf("error event must carry the failure: %+v", last.Data)
	}
	for _, ev := range events {
		switch ev.Type {
		case TypeContent, TypeAnswerComplete, TypeFollowUps, TypeComplete:
			t.Fatalf("unexpected %v event after answer failure", ev.Type)
		}
	}
}

func TestStreamExactlyOneTerminalEvent(t *testing.T) {
	scripts := [][]scriptResponse{
		{
			{text: `{"selected_specialist": "coding", "reasoning": "r", "confidence": 0.8}`},
			{text: "Use two pointers."},
			{text: `["a", "b", "c"]`},
		},
		{
			{err: errors.New("routing down")},
			{text: "Fallback answer body."},
			{err: errors.New("follow-ups down")},
		},
		{
			{text: `{"selected_specialist": "coding", "reasoning": "r", "confidence": 0.8}`},
			{err: errors.New("answer down")},
		},
	}

	for i, script := range scripts {
		e := newEmitter(t, &scriptGenerator{responses: script})
		events := collect(t, e, &pipeline.InterviewState{Question: "Some question"})

		terminals := 0
		for j, ev := range events {
			if ev.Type == TypeComplete || ev.Type == TypeError {
				terminals++
				if j != len(events)-1 {
					t.Fatalf("case %d: terminal event before end of stream: %v", i, eventTypes(events))
				}
			}
		}
		if terminals != 1 {
			t.Fatalf("case %d: expected exactly one terminal event, got %d in %v", i, terminals, eventTypes(events))
		}
	}
}

func TestStreamStopsOnSinkFailure(t *testing.T) {
	e := newEmitter(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "technical", "reasoning": "r", "confidence": 0.9}`},
		{text: "An answer that will never be delivered."},
		{text: `["a", "b", "c"]`},
	}})

	sent := 0
	errGone := errors.New("client gone")
	err := e.Stream(context.Background(), &pipeline.InterviewState{Question: "q"}, func(Event) error {
		sent++
		if sent == 2 {
			return errGone
		}
		return nil
	})
	if !errors.Is(err, errGone) {
		t.Fatalf("expected sink error to surface, got %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected no events after sink failure, got %d", sent)
	}
}

func TestSplitChunks(t *testing.T) {
	if got := splitChunks("", 50); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}

	multibyte := strings.Repeat("日本語のテキスト", 20)
	chunks := splitChunks(multibyte, 50)
	total := 0
	for i, chunk := range chunks {
		n := utf8.RuneCountInString(chunk)
		total += n
		if i < len(chunks)-1 && n != 50 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d split inside a rune", i)
		}
	}
	if total != utf8.RuneCountInString(multibyte) {
		t.Fatalf("chunks lost runes: %d != %d", total, utf8.RuneCountInString(multibyte))
	}
	if strings.Join(chunks, "") != multibyte {
		t.Fatal("joined chunks differ from input")
	}
}
