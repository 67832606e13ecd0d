package followup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) Generate(_ context.Context, messages []ai.Message) (string, error) {
	s.lastPrompt = messages[len(messages)-1].Content
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestSuggestParsesArray(t *testing.T) {
	stub := &stubGenerator{response: `["q1", "q2", "q3"]`}
	gen := NewGenerator(stub, zap.NewNop())

	got := gen.Suggest(context.Background(), "Design Twitter", "answer text", "system_design")

	if got.Generic {
		t.Fatal("expected model-generated follow-ups")
	}
	if len(got.Questions) != 3 || got.Questions[0] != "q1" {
		t.Fatalf("unexpected questions: %v", got.Questions)
	}
}

func TestSuggestFencedArray(t *testing.T) {
	stub := &stubGenerator{response: "```json\n[\"a\", \"b\", \"c\"]\n```"}
	gen := NewGenerator(stub, zap.NewNop())

	got := gen.Suggest(context.Background(), "q", "a", "coding")
	if got.Generic || len(got.Questions) != 3 {
		t.Fatalf("unexpected suggestions: %+v", got)
	}
}

func TestSuggestTruncatesToThree(t *testing.T) {
	stub := &stubGenerator{response: `["q1", "q2", "q3", "q4", "q5"]`}
	gen := NewGenerator(stub, zap.NewNop())

	got := gen.Suggest(context.Background(), "q", "a", "technical")
	if len(got.Questions) != 3 {
		t.Fatalf("expected at most 3 questions, got %d", len(got.Questions))
	}
}

func TestSuggestModelErrorFallsBack(t *testing.T) {
	stub := &stubGenerator{err: errors.New("timeout")}
	gen := NewGenerator(stub, zap.NewNop())

	got := gen.Suggest(context.Background(), "q", "a", "behavioral")

	if !got.Generic {
		t.Fatal("expected generic fallback")
	}
	if len(got.Questions) != 3 {
		t.Fatalf("expected 3 generic questions, got %d", len(got.Questions))
	}
	if got.Questions[0] != "What did you learn from this experience?" {
		t.Fatalf("expected behavioral table entry, got %q", got.Questions[0])
	}
}

func TestSuggestNonArrayFallsBack(t *testing.T) {
	stub := &stubGenerator{response: `{"questions": ["q1"]}`}
	gen := NewGenerator(stub, zap.NewNop())

	got := gen.Suggest(context.Background(), "q", "a", "product_manager")
	if !got.Generic {
		t.Fatal("expected generic fallback for non-array payload")
	}
}

func TestGenericFollowUpsUnknownKey(t *testing.T) {
	got := GenericFollowUps("astrologer")
	if len(got) != 3 {
		t.Fatalf("expected generic triplet, got %v", got)
	}
	if got[0] != "Can you elaborate on that approach?" {
		t.Fatalf("unexpected generic entry: %q", got[0])
	}
}

func TestSuggestPromptQuotesAnswerPreview(t *testing.T) {
	stub := &stubGenerator{response: `["q1"]`}
	gen := NewGenerator(stub, zap.NewNop())

	long := strings.Repeat("x", 600)
	gen.Suggest(context.Background(), "the question", long, "technical")

	if strings.Contains(stub.lastPrompt, long) {
		t.Fatal("expected answer preview to be truncated")
	}
	if !strings.Contains(stub.lastPrompt, strings.Repeat("x", 400)+"...") {
		t.Fatal("expected 400-character answer preview")
	}
	if !strings.Contains(stub.lastPrompt, "the question") {
		t.Fatal("expected original question in prompt")
	}
}
