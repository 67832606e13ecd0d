package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/specialist"
)

// scriptGenerator returns queued responses in call order. The interview
// pipeline calls the backend three times: routing, answer, follow-ups.
type scriptGenerator struct {
	responses []scriptResponse
	calls     int
	prompts   []string
}

type scriptResponse struct {
	text string
	err  error
}

func (s *scriptGenerator) Generate(_ context.Context, messages []ai.Message) (string, error) {
	s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	if s.calls >= len(s.responses) {
		return "", errors.New("unexpected call")
	}
	res := s.responses[s.calls]
	s.calls++
	return res.text, res.err
}

func newInterview(t *testing.T, backend ai.Generator) *Interview {
	t.Helper()
	registry, err := specialist.NewRegistry()
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return NewInterview(registry, backend, zap.NewNop())
}

func TestInterviewHappyPath(t *testing.T) {
	backend := &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "system_design", "reasoning": "full system design", "confidence": 0.92}`},
		{text: strings.Repeat("Start with requirements and capacity estimates. ", 20)},
		{text: `["How would you shard the data?", "What about hot keys?", "How do you monitor it?"]`},
	}}
	p := newInterview(t, backend)

	state := &InterviewState{Question: "Design Twitter"}
	p.Run(context.Background(), state)

	if state.Err != nil {
		t.Fatalf("unexpected error marker: %v", state.Err)
	}
	if state.Decision.Specialist != "system_design" {
		t.Fatalf("unexpected routing: %+v", state.Decision)
	}
	if state.Decision.Confidence < 0.8 {
		t.Fatalf("expected high confidence, got %f", state.Decision.Confidence)
	}
	if state.Result.Answer == "" || state.Result.Confidence <= 0 {
		t.Fatalf("expected generated answer, got %+v", state.Result)
	}
	if len(state.FollowUps.Questions) != 3 || state.FollowUps.Generic {
		t.Fatalf("unexpected follow-ups: %+v", state.FollowUps)
	}
	if state.Timestamp.IsZero() {
		t.Fatal("expected finalize to set timestamp")
	}
	if backend.calls != 3 {
		t.Fatalf("expected 3 backend calls, got %d", backend.calls)
	}
}

func TestInterviewRoutingFailureStillAnswers(t *testing.T) {
	backend := &scriptGenerator{responses: []scriptResponse{
		{err: errors.New("backend down")},
		{text: "A binary search halves the range each step."},
		{err: errors.New("backend down")},
	}}
	p := newInterview(t, backend)

	state := &InterviewState{Question: "Explain binary search"}
	p.Run(context.Background(), state)

	if state.Err != nil {
		t.Fatalf("routing failure must not surface: %v", state.Err)
	}
	if state.Decision.Specialist != specialist.DefaultKey || !state.Decision.Fallback {
		t.Fatalf("expected default fallback decision, got %+v", state.Decision)
	}
	if state.Decision.Confidence < 0.6 || state.Decision.Confidence > 0.7 {
		t.Fatalf("fallback confidence out of range: %f", state.Decision.Confidence)
	}
	if !state.FollowUps.Generic || len(state.FollowUps.Questions) != 3 {
		t.Fatalf("expected generic follow-ups, got %+v", state.FollowUps)
	}
}

func TestInterviewAnswerFailureSurfaces(t *testing.T) {
	backend := &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "technical", "reasoning": "r", "confidence": 0.9}`},
		{err: errors.New("model exploded")},
	}}
	p := newInterview(t, backend)

	state := &InterviewState{Question: "Explain binary search"}
	p.Run(context.Background(), state)

	if state.Err == nil {
		t.Fatal("expected answer-stage failure to set the error marker")
	}
	if len(state.FollowUps.Questions) != 0 {
		t.Fatalf("expected follow-up stage to skip after failure, got %v", state.FollowUps.Questions)
	}
	if backend.calls != 2 {
		t.Fatalf("expected no follow-up call after failure, got %d calls", backend.calls)
	}
	if state.Timestamp.IsZero() {
		t.Fatal("finalize should still run")
	}
}

func TestInterviewSelectedSpecialistAlwaysRegistered(t *testing.T) {
	responses := [][]scriptResponse{
		{{text: `{"selected_specialist": "ghost", "confidence": 0.9}`}, {text: "answer"}, {text: `["a","b","c"]`}},
		{{text: "not json"}, {text: "answer"}, {text: `["a","b","c"]`}},
		{{err: errors.New("down")}, {text: "answer"}, {err: errors.New("down")}},
	}

	registry, err := specialist.NewRegistry()
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	for i, script := range responses {
		p := newInterview(t, &scriptGenerator{responses: script})
		state := &InterviewState{Question: "Some ambiguous question"}
		p.Run(context.Background(), state)

		if _, ok := registry.Get(state.Decision.Specialist); !ok {
			t.Fatalf("case %d: selected specialist %q not in registry", i, state.Decision.Specialist)
		}
		if state.Decision.Confidence < 0 || state.Decision.Confidence > 1 {
			t.Fatalf("case %d: confidence out of range: %f", i, state.Decision.Confidence)
		}
		if n := len(state.FollowUps.Questions); n > 3 {
			t.Fatalf("case %d: too many follow-ups: %d", i, n)
		}
	}
}
