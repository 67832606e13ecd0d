// Package followup suggests next interview questions derived from a prior
// answer. Generation is best-effort: any model or decoding failure falls back
// to a static specialist-keyed table, so callers always receive up to three
// usable questions.
package followup

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/utils"
)

const (
	// maxFollowUps caps the suggestions returned per request.
	maxFollowUps = 3
	// answerPreviewLimit bounds how much of the answer is quoted back to
	// the model when asking for follow-ups.
	answerPreviewLimit = 400
)

// Suggestions is the outcome of one follow-up generation. Generic tags lists
// taken from the static fallback table rather than generated by the model.
type Suggestions struct {
	Questions []string
	Generic   bool
}

// Generator produces follow-up questions via a single model call.
type Generator struct {
	backend ai.Generator
	logger  *zap.Logger
}

// NewGenerator creates a follow-up Generator over the given model backend.
func NewGenerator(backend ai.Generator, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{backend: backend, logger: logger}
}

// Suggest returns up to three follow-up questions for the answered question.
// It never returns an error; failures yield the static table for the
// specialist key.
func (g *Generator) Suggest(ctx context.Context, question, answer, specialistKey string) Suggestions {
	prompt := buildPrompt(question, answer, specialistKey)

	raw, err := g.backend.Generate(ctx, []ai.Message{ai.User(prompt)})
	if err != nil {
		g.logger.Warn("follow-up generation failed",
			zap.String("specialist", specialistKey),
			zap.Error(err),
		)
		return Suggestions{Questions: GenericFollowUps(specialistKey), Generic: true}
	}

	var questions []string
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &questions); err != nil {
		g.logger.Warn("follow-up response is not a JSON array",
			zap.String("specialist", specialistKey),
			zap.Error(err),
		)
		return Suggestions{Questions: GenericFollowUps(specialistKey), Generic: true}
	}

	if len(questions) > maxFollowUps {
		questions = questions[:maxFollowUps]
	}

	return Suggestions{Questions: questions}
}

func buildPrompt(question, answer, specialistKey string) string {
	return fmt.Sprintf(`Based on this interview question and answer, suggest 3 highly relevant follow-up questions an interviewer might ask.

Original Question: %s

Answer Summary: %s

Specialist: %s

Generate 3 follow-up questions that:
1. Dive deeper into the answer
2. Explore edge cases or alternatives
3. Test understanding of trade-offs

Respond with ONLY a JSON array: ["question 1", "question 2", "question 3"]`,
		question, utils.TruncateForLog(answer, answerPreviewLimit), specialistKey)
}

// genericFollowUps is the static fallback table keyed by specialist.
var genericFollowUps = map[string][]string{
	"product_manager": {
		"How would you measure the success of this approach?",
		"What trade-offs would you consider?",
		"How would you prioritize if resources were limited?",
	},
	"technical": {
		"Can you explain the time complexity?",
		"How would you handle edge cases?",
		"What are alternative approaches?",
	},
	"architect": {
		"How would you scale this to millions of users?",
		"What failure scenarios should we consider?",
		"What are the cost implications?",
	},
	"coding": {
		"How would you test this code?",
		"What edge cases need to be handled?",
		"How could this be optimized?",
	},
	"behavioral": {
		"What did you learn from this experience?",
		"How would you handle it differently now?",
		"What was the biggest challenge?",
	},
	"system_design": {
		"How would you handle data consistency?",
		"What caching strategy would you use?",
		"How would you monitor this system?",
	},
}

var defaultFollowUps = []string{
	"Can you elaborate on that approach?",
	"What alternatives did you consider?",
	"How would you validate this solution?",
}

// GenericFollowUps returns the static triplet for the specialist key, or the
// generic triplet for an unknown key.
func GenericFollowUps(specialistKey string) []string {
	if questions, ok := genericFollowUps[specialistKey]; ok {
		return append([]string(nil), questions...)
	}
	return append([]string(nil), defaultFollowUps...)
}
