package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/specialist"
	"github.com/mockmate/mockmate/internal/utils"
)

const maxPreviewRunes = 200

//go:embed prompt.md
var promptTemplate string

// Fallback confidence levels. A model or parse failure is less trustworthy
// than a decision that merely referenced an unknown specialist key.
const (
	errorFallbackConfidence   = 0.6
	invalidFallbackConfidence = 0.7
)

// Decision is the routing outcome for one question. The selected key is
// always a member of the registry; Fallback tags decisions manufactured
// locally instead of decoded from the model.
type Decision struct {
	Specialist string
	Reasoning  string
	Confidence float64
	Alternates []string
	Fallback   bool
}

// decisionPayload is the strict JSON object requested from the model.
type decisionPayload struct {
	SelectedSpecialist string   `json:"selected_specialist"`
	Reasoning          string   `json:"reasoning"`
	Confidence         float64  `json:"confidence"`
	Alternatives       []string `json:"alternatives"`
}

// Router classifies questions against the specialist registry via a single
// constrained model call. It never fails: every path out of Route produces a
// decision whose specialist key exists in the registry.
type Router struct {
	registry  *specialist.Registry
	generator ai.Generator
	logger    *zap.Logger
}

// NewRouter creates a Router over the given registry and model backend.
func NewRouter(registry *specialist.Registry, generator ai.Generator, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: registry, generator: generator, logger: logger}
}

// Route selects the specialist for the question. domainHint and
// candidateContext are optional and advisory only.
func (r *Router) Route(ctx context.Context, question, candidateContext, domainHint string) Decision {
	messages := []ai.Message{
		ai.System(r.systemPrompt()),
		ai.User(buildRoutingPrompt(question, candidateContext, domainHint)),
	}

	raw, err := r.generator.Generate(ctx, messages)
	if err != nil {
		r.logger.Warn("routing call failed", zap.Error(err))
		return r.fallback(fmt.Sprintf("Fallback routing due to error: %s", err), errorFallbackConfidence)
	}

	var payload decisionPayload
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &payload); err != nil {
		r.logger.Warn("routing response is not valid JSON",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, maxPreviewRunes)),
		)
		return r.fallback(fmt.Sprintf("Fallback routing due to unparseable decision: %s", err), errorFallbackConfidence)
	}

	if _, ok := r.registry.Get(payload.SelectedSpecialist); !ok {
		r.logger.Warn("routing selected unknown specialist",
			zap.String("selected", payload.SelectedSpecialist),
		)
		return r.fallback(
			fmt.Sprintf("Default routing: model selected unknown specialist %q", payload.SelectedSpecialist),
			invalidFallbackConfidence,
		)
	}

	decision := Decision{
		Specialist: payload.SelectedSpecialist,
		Reasoning:  strings.TrimSpace(payload.Reasoning),
		Confidence: clamp01(payload.Confidence),
		Alternates: r.knownAlternates(payload.Alternatives),
	}

	r.logger.Debug("question routed",
		zap.String("specialist", decision.Specialist),
		zap.Float64("confidence", decision.Confidence),
	)

	return decision
}

func (r *Router) fallback(reason string, confidence float64) Decision {
	return Decision{
		Specialist: r.registry.Default().Key,
		Reasoning:  reason,
		Confidence: confidence,
		Fallback:   true,
	}
}

// knownAlternates drops alternate keys absent from the registry, preserving
// the model's order.
func (r *Router) knownAlternates(keys []string) []string {
	var known []string
	for _, key := range keys {
		if _, ok := r.registry.Get(key); ok {
			known = append(known, key)
		}
	}
	return known
}

func (r *Router) systemPrompt() string {
	var catalog strings.Builder
	for _, profile := range r.registry.Profiles() {
		fmt.Fprintf(&catalog, "- %s: %s\n", profile.Key, strings.Join(profile.BestFor, "; "))
	}
	return strings.ReplaceAll(promptTemplate, "{{CATALOG}}", strings.TrimRight(catalog.String(), "\n"))
}

func buildRoutingPrompt(question, candidateContext, domainHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this interview question and route it to the most appropriate specialist.\n\nQuestion: %q\n", question)
	if domainHint != "" {
		fmt.Fprintf(&b, "\nInterview Type Hint: %s\n", domainHint)
	}
	if candidateContext != "" {
		fmt.Fprintf(&b, "\nCandidate Context: %s\n", candidateContext)
	}
	b.WriteString("\nDetermine the best specialist to handle this question.")
	return b.String()
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
