package specialist

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/utils"
)

const (
	// historyWindow is the number of most recent conversation turns
	// included when building model context.
	historyWindow = 3
	// historyAnswerLimit truncates each stored answer when condensing
	// history into the prompt.
	historyAnswerLimit = 200
)

// Turn is one prior question/answer exchange supplied by the caller. The
// answerer only ever reads the most recent turns; it never stores history.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Metadata describes the shape of a generated answer. Derived
// deterministically from the answer text, never model-reported.
type Metadata struct {
	WordCount    int  `json:"word_count"`
	CharCount    int  `json:"character_count"`
	HasExamples  bool `json:"has_examples"`
	HasStructure bool `json:"has_structure"`
}

// Result is the outcome of one answer generation. Err tags a result whose
// Answer is a locally manufactured error message rather than model output;
// callers branch on the tag, Process itself never fails.
type Result struct {
	Answer     string
	Confidence float64
	Metadata   Metadata
	Err        error
}

// Answerer generates answers in the voice of a single specialist profile.
// All specialists share this control flow; only the profile data differs.
type Answerer struct {
	profile   *Profile
	generator ai.Generator
	logger    *zap.Logger
}

// NewAnswerer creates an Answerer for the given profile.
func NewAnswerer(profile *Profile, generator ai.Generator, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{profile: profile, generator: generator, logger: logger}
}

// Profile returns the profile the answerer speaks for.
func (a *Answerer) Profile() *Profile {
	return a.profile
}

// Process answers the question in the specialist's voice. It never returns an
// error: a failed model call produces a human-readable error answer with
// confidence zero, and the caller decides how to surface that.
func (a *Answerer) Process(ctx context.Context, question, candidateContext string, history []Turn) Result {
	messages := []ai.Message{
		ai.System(a.profile.Persona),
		ai.User(buildUserPrompt(question, candidateContext, condenseHistory(history))),
	}

	answer, err := a.generator.Generate(ctx, messages)
	if err != nil {
		a.logger.Warn("answer generation failed",
			zap.String("specialist", a.profile.Key),
			zap.Error(err),
		)
		return Result{
			Answer:     fmt.Sprintf("Error generating response: %s", err),
			Confidence: 0.0,
			Err:        err,
		}
	}

	a.logger.Debug("answer generated",
		zap.String("specialist", a.profile.Key),
		zap.Int("answer_length", utf8.RuneCountInString(answer)),
		zap.String("answer_preview", utils.TruncateForLog(answer, historyAnswerLimit)),
	)

	return Result{
		Answer:     answer,
		Confidence: answerConfidence(answer),
		Metadata:   extractMetadata(answer),
	}
}

// condenseHistory renders the most recent turns into a compact context block.
// Answers are truncated so a long prior answer cannot crowd out the question.
func condenseHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for i, turn := range history {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, turn.Question)
		fmt.Fprintf(&b, "A%d: %s\n\n", i+1, utils.TruncateForLog(turn.Answer, historyAnswerLimit))
	}

	return strings.TrimRight(b.String(), "\n")
}

func buildUserPrompt(question, candidateContext, historyContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview Question: %q\n", question)

	if candidateContext != "" {
		fmt.Fprintf(&b, "\nCandidate Context: %s\n", candidateContext)
	}
	if historyContext != "" {
		b.WriteString("\n")
		b.WriteString(historyContext)
		b.WriteString("\n")
	}

	b.WriteString("\nProvide a comprehensive, well-structured answer that would impress in an interview.")
	return b.String()
}

// answerConfidence maps answer length to a coarse confidence tier. Longer
// answers correlate with fuller treatment of the question; the value is a
// heuristic, not a model signal.
func answerConfidence(answer string) float64 {
	switch length := utf8.RuneCountInString(answer); {
	case length < 100:
		return 0.6
	case length < 500:
		return 0.75
	case length < 1000:
		return 0.85
	default:
		return 0.9
	}
}

var structureMarkers = []string{"1.", "2.", "First", "Second", "•", "- "}

func extractMetadata(answer string) Metadata {
	lower := strings.ToLower(answer)

	hasStructure := false
	for _, marker := range structureMarkers {
		if strings.Contains(answer, marker) {
			hasStructure = true
			break
		}
	}

	return Metadata{
		WordCount:    len(strings.Fields(answer)),
		CharCount:    utf8.RuneCountInString(answer),
		HasExamples:  strings.Contains(lower, "example") || strings.Contains(lower, "for instance"),
		HasStructure: hasStructure,
	}
}
