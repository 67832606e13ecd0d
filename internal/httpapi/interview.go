package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/pipeline"
	"github.com/mockmate/mockmate/internal/specialist"
	"github.com/mockmate/mockmate/internal/stream"
)

const (
	questionMinLen = 5
	questionMaxLen = 1000
	contextMaxLen  = 500
)

// interviewRequest is the body of POST /api/interview.
type interviewRequest struct {
	Question            string            `json:"question"`
	InterviewType       string            `json:"interview_type"`
	UserContext         string            `json:"user_context"`
	ConversationHistory []specialist.Turn `json:"conversation_history"`
}

// interviewResponse mirrors the answer shape of POST /api/interview.
type interviewResponse struct {
	Question           string    `json:"question"`
	Answer             string    `json:"answer"`
	AgentUsed          string    `json:"agent_used"`
	RoutingReasoning   string    `json:"routing_reasoning"`
	ConfidenceScore    float64   `json:"confidence_score"`
	SuggestedFollowUps []string  `json:"suggested_follow_ups"`
	Timestamp          time.Time `json:"timestamp"`
}

// questionRequest is the body of the /api/agents answer endpoints.
type questionRequest struct {
	Question            string            `json:"question"`
	Context             string            `json:"context"`
	ConversationHistory []specialist.Turn `json:"conversation_history"`
}

func validateQuestion(question, candidateContext string) error {
	n := utf8.RuneCountInString(question)
	if n < questionMinLen {
		return fmt.Errorf("question must be at least %d characters", questionMinLen)
	}
	if n > questionMaxLen {
		return fmt.Errorf("question must be at most %d characters", questionMaxLen)
	}
	if utf8.RuneCountInString(candidateContext) > contextMaxLen {
		return fmt.Errorf("context must be at most %d characters", contextMaxLen)
	}
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func handleInterview(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req interviewRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := validateQuestion(req.Question, req.UserContext); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		state := &pipeline.InterviewState{
			Question:   req.Question,
			DomainHint: req.InterviewType,
			Context:    req.UserContext,
			History:    req.ConversationHistory,
		}
		deps.Interview.Run(r.Context(), state)

		if state.Err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error processing question: %v", state.Err)
			return
		}

		writeJSON(w, http.StatusOK, interviewResponse{
			Question:           req.Question,
			Answer:             state.Result.Answer,
			AgentUsed:          state.Decision.Specialist,
			RoutingReasoning:   state.Decision.Reasoning,
			ConfidenceScore:    state.Decision.Confidence,
			SuggestedFollowUps: state.FollowUps.Questions,
			Timestamp:          state.Timestamp,
		})
	}
}

func handleAgentAnswer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := validateQuestion(req.Question, req.Context); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		state := &pipeline.InterviewState{
			Question: req.Question,
			Context:  req.Context,
			History:  req.ConversationHistory,
		}
		deps.Interview.Run(r.Context(), state)

		if state.Err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "Error processing question: %v", state.Err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"timestamp": state.Timestamp,
			"question":  req.Question,
			"routing": map[string]any{
				"selected_agent": state.Decision.Specialist,
				"reasoning":      state.Decision.Reasoning,
				"confidence":     state.Decision.Confidence,
			},
			"answer":              state.Result.Answer,
			"metadata":            state.Result.Metadata,
			"follow_up_questions": state.FollowUps.Questions,
			"statistics": map[string]any{
				"word_count":      state.Result.Metadata.WordCount,
				"character_count": state.Result.Metadata.CharCount,
			},
		})
	}
}

func handleAgentAnswerStream(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := validateQuestion(req.Question, req.Context); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		state := &pipeline.InterviewState{
			Question: req.Question,
			Context:  req.Context,
			History:  req.ConversationHistory,
		}

		err := deps.Emitter.Stream(r.Context(), state, func(ev stream.Event) error {
			payload, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
		if err != nil {
			// Headers already went out; nothing to send but a log line.
			deps.Logger.Debug("answer stream aborted", zap.Error(err))
		}
	}
}

func handleAgentsAvailable(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		profiles := deps.Registry.Profiles()
		agents := make([]map[string]any, 0, len(profiles))
		for _, p := range profiles {
			agents = append(agents, map[string]any{
				"id":              p.Key,
				"name":            p.DisplayName,
				"specializations": p.Specializations,
				"best_for":        p.BestFor,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"total_agents": len(agents),
			"agents":       agents,
		})
	}
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":                   "healthy",
			"timestamp":                time.Now().UTC(),
			"specialists_loaded":       deps.Registry.Len(),
			"model_backend_configured": deps.ModelConfigured,
			"frameworks_loaded":        deps.CaseStudy.Catalog().Len(),
		})
	}
}

// caseStudyRequest is the body of POST /api/analyze. The include flags
// default to true when omitted.
type caseStudyRequest struct {
	CaseStudy                  string `json:"case_study"`
	AdditionalContext          string `json:"additional_context"`
	IncludeClarifyingQuestions *bool  `json:"include_clarifying_questions"`
	IncludeCompleteSolution    *bool  `json:"include_complete_solution"`
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req caseStudyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if utf8.RuneCountInString(req.CaseStudy) < questionMinLen {
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"case_study must be at least %d characters", questionMinLen)
			return
		}

		state := &pipeline.CaseState{
			CaseStudy:         req.CaseStudy,
			AdditionalContext: req.AdditionalContext,
			IncludeClarifying: req.IncludeClarifyingQuestions == nil || *req.IncludeClarifyingQuestions,
			IncludeSolution:   req.IncludeCompleteSolution == nil || *req.IncludeCompleteSolution,
		}
		deps.CaseStudy.Run(r.Context(), state)

		// Stage failures are recovered with fallback content inside the
		// pipeline; the compiled analysis is always returned.
		if state.Err != nil {
			deps.Logger.Warn("case analysis degraded", zap.Error(state.Err))
		}

		writeJSON(w, http.StatusOK, state.Result)
	}
}

func handleFrameworks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		catalog := deps.CaseStudy.Catalog()
		categories := catalog.Categories()

		frameworks := make(map[string]pipeline.FrameworkInfo, len(categories))
		for _, category := range categories {
			if info, ok := catalog.Get(category); ok {
				frameworks[category] = info
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"total_categories": len(categories),
			"categories":       categories,
			"frameworks":       frameworks,
		})
	}
}
