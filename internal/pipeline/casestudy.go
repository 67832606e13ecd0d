package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
)

// Classification is the typed outcome of the classify stage.
type Classification struct {
	ProblemType   string   `json:"problem_type"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	KeyIndicators []string `json:"key_indicators"`
}

// ClarifyingQuestion is one suggested question a candidate should ask.
type ClarifyingQuestion struct {
	Question     string `json:"question"`
	WhyImportant string `json:"why_important"`
	Category     string `json:"category"`
}

// FrameworkRecommendation is the typed outcome of the framework stage.
type FrameworkRecommendation struct {
	Framework        string   `json:"framework"`
	Rationale        string   `json:"rationale"`
	ApplicationSteps []string `json:"application_steps"`
	KeyTips          []string `json:"key_tips"`
	CommonPitfalls   []string `json:"common_pitfalls"`
	Alternatives     []string `json:"alternatives"`
}

// ProposedSolution is one candidate solution inside a complete solution.
type ProposedSolution struct {
	SolutionName             string `json:"solution_name"`
	Description              string `json:"description"`
	UserImpact               string `json:"user_impact"`
	BusinessImpact           string `json:"business_impact"`
	Priority                 string `json:"priority"`
	ImplementationComplexity string `json:"implementation_complexity"`
}

// Recommendation is the prioritized pick among the proposed solutions.
type Recommendation struct {
	TopSolution            string   `json:"top_solution"`
	Rationale              string   `json:"rationale"`
	SuccessMetrics         []string `json:"success_metrics"`
	ImplementationTimeline string   `json:"implementation_timeline"`
	ResourceRequirements   string   `json:"resource_requirements"`
}

// TradeOff pairs a considered trade-off with the decision taken.
type TradeOff struct {
	TradeOff string `json:"tradeoff"`
	Decision string `json:"decision"`
}

// RiskMitigation pairs a risk with its mitigation.
type RiskMitigation struct {
	Risk       string `json:"risk"`
	Mitigation string `json:"mitigation"`
}

// Solution is the complete worked solution for a case study.
type Solution struct {
	ExecutiveSummary          string             `json:"executive_summary"`
	SituationAnalysis         map[string]any     `json:"situation_analysis"`
	UserAnalysis              map[string]any     `json:"user_analysis"`
	ProposedSolutions         []ProposedSolution `json:"proposed_solutions"`
	PrioritizedRecommendation Recommendation     `json:"prioritized_recommendation"`
	TradeOffsConsidered       []TradeOff         `json:"tradeoffs_considered"`
	RisksAndMitigations       []RiskMitigation   `json:"risks_and_mitigations"`
	NextSteps                 []string           `json:"next_steps"`
}

// Analysis is the compiled case-study result.
type Analysis struct {
	CaseStudy               string                  `json:"case_study"`
	Classification          Classification          `json:"classification"`
	ClarifyingQuestions     []ClarifyingQuestion    `json:"clarifying_questions,omitempty"`
	FrameworkRecommendation FrameworkRecommendation `json:"framework_recommendation"`
	CompleteSolution        *Solution               `json:"complete_solution,omitempty"`
}

// CaseState is the mutable value threaded through the case-study pipeline.
// Exclusively owned by one in-flight request.
type CaseState struct {
	// Input.
	CaseStudy         string
	AdditionalContext string
	IncludeClarifying bool
	IncludeSolution   bool

	// Intermediate.
	Classification Classification
	Clarifying     []ClarifyingQuestion
	Framework      FrameworkRecommendation
	Solution       *Solution

	// Output.
	Result *Analysis

	// Err marks the first stage failure. Later stages still run against
	// the degraded state and the result is still compiled; the marker is
	// informational, not a short circuit.
	Err error
}

// CaseStudy is the product-management case analysis pipeline:
// classify → clarify → recommend framework → solve → compile.
type CaseStudy struct {
	backend ai.Generator
	catalog *Catalog
	logger  *zap.Logger
}

// NewCaseStudy wires the case-study pipeline over the model backend and
// framework catalog.
func NewCaseStudy(backend ai.Generator, catalog *Catalog, logger *zap.Logger) *CaseStudy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseStudy{backend: backend, catalog: catalog, logger: logger}
}

// Catalog returns the framework catalog the pipeline classifies against.
func (p *CaseStudy) Catalog() *Catalog {
	return p.catalog
}

// Run executes the pipeline over the state.
func (p *CaseStudy) Run(ctx context.Context, state *CaseState) {
	Execute(ctx, p.logger, p.stages(), state)
}

func (p *CaseStudy) stages() []Stage[CaseState] {
	return []Stage[CaseState]{
		{Name: "classify_problem", Run: p.classifyProblem},
		{Name: "generate_clarifying_questions", Run: p.generateClarifyingQuestions},
		{Name: "recommend_framework", Run: p.recommendFramework},
		{Name: "generate_complete_solution", Run: p.generateCompleteSolution},
		{Name: "compile_result", Run: p.compileResult},
	}
}

// statement joins the case study with its optional additional context, the
// form every stage prompt quotes.
func (s *CaseState) statement() string {
	if s.AdditionalContext == "" {
		return s.CaseStudy
	}
	return s.CaseStudy + ". Additional context: " + s.AdditionalContext
}

func (p *CaseStudy) classifyProblem(ctx context.Context, state *CaseState) {
	categories := strings.Join(p.catalog.Categories(), "\n- ")

	prompt := fmt.Sprintf(`Analyze this case study and classify it.

Case Study: %q

Classify into ONE of these categories:
- %s

Respond in JSON format:
{
  "problem_type": "category name",
  "confidence": 0.95,
  "reasoning": "brief explanation",
  "key_indicators": ["keyword1", "keyword2"]
}`, state.statement(), categories)

	messages := []ai.Message{
		ai.System("You are a Product Management expert. Analyze case studies and classify them into PM problem categories."),
		ai.User(prompt),
	}

	var classification Classification
	if err := p.generateJSON(ctx, messages, &classification); err != nil {
		p.logger.Warn("case classification failed", zap.Error(err))
		state.Err = fmt.Errorf("classify problem: %w", err)
		state.Classification = Classification{
			ProblemType: p.catalog.First().Category,
			Confidence:  0.7,
			Reasoning:   "Default classification due to error",
		}
		return
	}

	classification.ProblemType = p.catalog.Resolve(classification.ProblemType).Category
	classification.Confidence = clampUnit(classification.Confidence)
	state.Classification = classification
}

func (p *CaseStudy) generateClarifyingQuestions(ctx context.Context, state *CaseState) {
	if !state.IncludeClarifying {
		return
	}

	prompt := fmt.Sprintf(`Given this case study, generate 5-7 clarifying questions that a PM should ask.

Case Study: %q
Problem Type: %s

Generate questions that cover constraints, target users and stakeholders, success criteria, current state, business goals, and technical constraints.

Respond in JSON format:
{
  "questions": [
    {
      "question": "What is the primary goal: user satisfaction or business metrics?",
      "why_important": "Helps prioritize solutions between user experience and revenue",
      "category": "Goals"
    }
  ]
}`, state.CaseStudy, state.Classification.ProblemType)

	messages := []ai.Message{
		ai.System("You are a senior Product Manager conducting a case study interview. Generate insightful clarifying questions that help understand the problem better."),
		ai.User(prompt),
	}

	var payload struct {
		Questions []ClarifyingQuestion `json:"questions"`
	}
	if err := p.generateJSON(ctx, messages, &payload); err != nil {
		p.logger.Warn("clarifying question generation failed", zap.Error(err))
		if state.Err == nil {
			state.Err = fmt.Errorf("generate clarifying questions: %w", err)
		}
		state.Clarifying = []ClarifyingQuestion{{
			Question:     "What are the main constraints?",
			WhyImportant: "Helps scope the solution",
			Category:     "Constraints",
		}}
		return
	}

	state.Clarifying = payload.Questions
}

func (p *CaseStudy) recommendFramework(ctx context.Context, state *CaseState) {
	info := p.catalog.Resolve(state.Classification.ProblemType)

	prompt := fmt.Sprintf(`Provide detailed guidance for this case study.

Case Study: %q
Problem Type: %s
Recommended Framework: %s
Framework Description: %s

Provide a detailed response in JSON format:
{
  "framework": %q,
  "rationale": "why this framework is perfect for this specific case",
  "application_steps": ["Step 1: specific actionable guidance", "Step 2: ...", "provide 5-7 steps"],
  "key_tips": ["tip 1", "tip 2", "tip 3"],
  "common_pitfalls": ["pitfall 1", "pitfall 2"]
}`, state.statement(), info.Category, info.Primary, info.Description, info.Primary)

	messages := []ai.Message{
		ai.System("You are a PM framework expert. Provide detailed, actionable guidance for applying product management frameworks."),
		ai.User(prompt),
	}

	var recommendation FrameworkRecommendation
	if err := p.generateJSON(ctx, messages, &recommendation); err != nil {
		p.logger.Warn("framework recommendation failed", zap.Error(err))
		if state.Err == nil {
			state.Err = fmt.Errorf("recommend framework: %w", err)
		}
		state.Framework = FrameworkRecommendation{
			Framework:        info.Primary,
			Rationale:        fmt.Sprintf("Standard framework for %s", info.Category),
			ApplicationSteps: []string{"Apply the framework systematically"},
			Alternatives:     info.Alternatives,
		}
		return
	}

	recommendation.Alternatives = info.Alternatives
	state.Framework = recommendation
}

func (p *CaseStudy) generateCompleteSolution(ctx context.Context, state *CaseState) {
	if !state.IncludeSolution {
		return
	}

	prompt := fmt.Sprintf(`Provide a COMPLETE SOLUTION for this PM case study.

Case Study: %q
Problem Type: %s
Framework: %s

Generate a comprehensive solution in JSON format with these sections:
{
  "executive_summary": "2-3 sentence overview of your recommended solution",
  "situation_analysis": {"current_state": "...", "key_challenges": ["..."], "opportunities": ["..."]},
  "user_analysis": {"user_segments": [{"segment": "...", "needs": "...", "pain_points": "..."}], "primary_persona": "..."},
  "proposed_solutions": [{"solution_name": "...", "description": "...", "user_impact": "...", "business_impact": "...", "priority": "High/Medium/Low", "implementation_complexity": "Low/Medium/High"}],
  "prioritized_recommendation": {"top_solution": "...", "rationale": "...", "success_metrics": ["..."], "implementation_timeline": "...", "resource_requirements": "..."},
  "tradeoffs_considered": [{"tradeoff": "...", "decision": "..."}],
  "risks_and_mitigations": [{"risk": "...", "mitigation": "..."}],
  "next_steps": ["step 1", "step 2", "step 3"]
}

Be specific, detailed, and actionable. Use real numbers and concrete examples where possible.`,
		state.statement(), state.Classification.ProblemType, state.Framework.Framework)

	messages := []ai.Message{
		ai.System("You are an expert Product Manager who excels at solving PM case studies. Provide comprehensive, detailed solutions that would impress in a PM interview."),
		ai.User(prompt),
	}

	var solution Solution
	if err := p.generateJSON(ctx, messages, &solution); err != nil {
		p.logger.Warn("complete solution generation failed", zap.Error(err))
		if state.Err == nil {
			state.Err = fmt.Errorf("generate complete solution: %w", err)
		}
		state.Solution = &Solution{ExecutiveSummary: "Solution generation failed"}
		return
	}

	state.Solution = &solution
}

func (p *CaseStudy) compileResult(_ context.Context, state *CaseState) {
	state.Result = &Analysis{
		CaseStudy:               state.CaseStudy,
		Classification:          state.Classification,
		ClarifyingQuestions:     state.Clarifying,
		FrameworkRecommendation: state.Framework,
		CompleteSolution:        state.Solution,
	}
}

// generateJSON performs one model call and decodes the fenced or bare JSON
// response into out.
func (p *CaseStudy) generateJSON(ctx context.Context, messages []ai.Message, out any) error {
	raw, err := p.backend.Generate(ctx, messages)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), out); err != nil {
		return fmt.Errorf("decoding model response: %w", err)
	}
	return nil
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
