package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/followup"
	"github.com/mockmate/mockmate/internal/routing"
	"github.com/mockmate/mockmate/internal/specialist"
)

// InterviewState is the mutable value threaded through the interview
// pipeline. One state per request; destroyed when the request completes.
type InterviewState struct {
	// Input.
	Question   string
	DomainHint string
	Context    string
	History    []specialist.Turn

	// Decision.
	Decision routing.Decision

	// Output.
	Result    specialist.Result
	FollowUps followup.Suggestions
	Timestamp time.Time

	// Err marks a failed answer-generation stage — the single failure this
	// pipeline surfaces to the caller. Routing and follow-up failures are
	// recovered inside their stages and never reach here.
	Err error
}

// Interview is the question-answering pipeline:
// route → generate answer → generate follow-ups → finalize.
type Interview struct {
	router    *routing.Router
	answerers map[string]*specialist.Answerer
	followups *followup.Generator
	logger    *zap.Logger
	now       func() time.Time
}

// NewInterview wires the interview pipeline over a shared registry and model
// backend. One Answerer per specialist is built up front; they are stateless
// and shared across requests.
func NewInterview(registry *specialist.Registry, backend ai.Generator, logger *zap.Logger) *Interview {
	if logger == nil {
		logger = zap.NewNop()
	}

	answerers := make(map[string]*specialist.Answerer, registry.Len())
	for _, profile := range registry.Profiles() {
		answerers[profile.Key] = specialist.NewAnswerer(profile, backend, logger)
	}

	return &Interview{
		router:    routing.NewRouter(registry, backend, logger),
		answerers: answerers,
		followups: followup.NewGenerator(backend, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes the pipeline over the state.
func (p *Interview) Run(ctx context.Context, state *InterviewState) {
	Execute(ctx, p.logger, p.stages(), state)
}

// RunObserved executes the pipeline, invoking after at each stage boundary.
// The streaming emitter uses this to interleave event delivery with stage
// execution.
func (p *Interview) RunObserved(ctx context.Context, state *InterviewState, after func(name string, state *InterviewState) error) error {
	return ExecuteObserved(ctx, p.logger, p.stages(), state, after)
}

func (p *Interview) stages() []Stage[InterviewState] {
	return []Stage[InterviewState]{
		{Name: "route", Run: p.route},
		{Name: "generate_answer", Run: p.generateAnswer},
		{Name: "generate_follow_ups", Run: p.generateFollowUps},
		{Name: "finalize", Run: p.finalize},
	}
}

func (p *Interview) route(ctx context.Context, state *InterviewState) {
	state.Decision = p.router.Route(ctx, state.Question, state.Context, state.DomainHint)
}

func (p *Interview) generateAnswer(ctx context.Context, state *InterviewState) {
	answerer := p.answerers[state.Decision.Specialist]
	state.Result = answerer.Process(ctx, state.Question, state.Context, state.History)
	state.Err = state.Result.Err
}

func (p *Interview) generateFollowUps(ctx context.Context, state *InterviewState) {
	if state.Err != nil {
		return
	}
	state.FollowUps = p.followups.Suggest(ctx, state.Question, state.Result.Answer, state.Decision.Specialist)
}

func (p *Interview) finalize(_ context.Context, state *InterviewState) {
	state.Timestamp = p.now().UTC()
}
