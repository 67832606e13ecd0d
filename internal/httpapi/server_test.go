package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/ai"
	"github.com/mockmate/mockmate/internal/pipeline"
	"github.com/mockmate/mockmate/internal/specialist"
	"github.com/mockmate/mockmate/internal/storage"
	"github.com/mockmate/mockmate/internal/stream"
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
		return "", errors.New("unexpected model call")
	}
	res := s.responses[s.calls]
	s.calls++
	return res.text, res.err
}

func newTestHandler(t *testing.T, backend ai.Generator, store *storage.Store) http.Handler {
	t.Helper()

	registry, err := specialist.NewRegistry()
	require.NoError(t, err)

	interview := pipeline.NewInterview(registry, backend, zap.NewNop())
	caseStudy := pipeline.NewCaseStudy(backend, pipeline.NewCatalog(), zap.NewNop())

	return NewHandler(Deps{
		Interview:       interview,
		CaseStudy:       caseStudy,
		Emitter:         stream.NewEmitter(interview, zap.NewNop()),
		Registry:        registry,
		Store:           store,
		Logger:          zap.NewNop(),
		ModelConfigured: true,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		var v any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
		decoded, _ = v.(map[string]any)
	}
	return rec, decoded
}

func errType(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["type"].(string)
	return s
}

func TestInterviewHappyPath(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "system_design", "reasoning": "design scope", "confidence": 0.9}`},
		{text: "Start from the read/write ratio before picking a store."},
		{text: `["How would you shard?", "What about caching?", "Which SLOs apply?"]`},
	}}, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/api/interview", map[string]any{
		"question": "Design a URL shortener",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "system_design", body["agent_used"])
	assert.Equal(t, "design scope", body["routing_reasoning"])
	assert.Equal(t, 0.9, body["confidence_score"])
	assert.Equal(t, "Start from the read/write ratio before picking a store.", body["answer"])
	assert.Len(t, body["suggested_follow_ups"], 3)
	assert.NotEmpty(t, body["timestamp"])
}

func TestInterviewValidation(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{}, nil)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"too short", map[string]any{"question": "hi"}},
		{"too long", map[string]any{"question": strings.Repeat("q", 1001)}},
		{"context too long", map[string]any{
			"question":     "Explain binary search",
			"user_context": strings.Repeat("c", 501),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := doJSON(t, h, http.MethodPost, "/api/interview", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_request_error", errType(body))
		})
	}
}

func TestInterviewMalformedBody(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/interview", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInterviewAnswerFailure(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "technical", "reasoning": "r", "confidence": 0.9}`},
		{err: errors.New("model exploded")},
	}}, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/api/interview", map[string]any{
		"question": "Explain quicksort",
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "api_error", errType(body))
}

func TestAgentAnswerShape(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "coding", "reasoning": "implementation question", "confidence": 0.85}`},
		{text: "Use two pointers moving toward the middle."},
		{text: `["What about duplicates?", "Can you do it in place?", "What is the complexity?"]`},
	}}, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/api/agents/answer", map[string]any{
		"question": "Reverse an array in place",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Reverse an array in place", body["question"])

	routing := body["routing"].(map[string]any)
	assert.Equal(t, "coding", routing["selected_agent"])
	assert.Equal(t, 0.85, routing["confidence"])

	stats := body["statistics"].(map[string]any)
	assert.Equal(t, float64(7), stats["word_count"])
	assert.Len(t, body["follow_up_questions"], 3)
}

func TestAgentAnswerStreamSSE(t *testing.T) {
	answer := strings.Repeat("Partition around a pivot and recurse on both halves. ", 3)
	h := newTestHandler(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"selected_specialist": "technical", "reasoning": "algorithms", "confidence": 0.9}`},
		{text: answer},
		{text: `["Why is the worst case quadratic?", "How do you pick pivots?", "When is it unstable?"]`},
	}}, nil)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{"question": "Explain quicksort"}))
	req := httptest.NewRequest(http.MethodPost, "/api/agents/answer-stream", &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var events []stream.Event
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev stream.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	require.NotEmpty(t, events)

	assert.Equal(t, stream.TypeStart, events[0].Type)
	assert.Equal(t, stream.TypeComplete, events[len(events)-1].Type)

	var rebuilt strings.Builder
	for _, ev := range events {
		switch ev.Type {
		case stream.TypeContent:
			rebuilt.WriteString(ev.Data["chunk"].(string))
		case stream.TypeAnswerComplete:
			assert.Equal(t, answer, ev.Data["full_answer"])
		}
	}
	assert.Equal(t, answer, rebuilt.String())
}

func TestAgentsAvailable(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{}, nil)

	rec, body := doJSON(t, h, http.MethodGet, "/api/agents/available", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(6), body["total_agents"])

	agents := body["agents"].([]any)
	require.Len(t, agents, 6)
	first := agents[0].(map[string]any)
	assert.Equal(t, "architect", first["id"])
	assert.NotEmpty(t, first["specializations"])
	assert.NotEmpty(t, first["best_for"])
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{}, nil)

	rec, body := doJSON(t, h, http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(6), body["specialists_loaded"])
	assert.Equal(t, float64(6), body["frameworks_loaded"])
	assert.Equal(t, true, body["model_backend_configured"])
}

func TestAnalyzeFlagsDisabled(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"problem_type": "Prioritization", "confidence": 0.9, "reasoning": "scoring features", "key_indicators": ["prioritize"]}`},
		{text: `{"framework": "RICE Framework", "rationale": "fits scoring", "application_steps": ["Score reach"], "key_tips": ["tip"], "common_pitfalls": ["pitfall"]}`},
	}}, nil)

	off := false
	rec, body := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]any{
		"case_study":                   "Prioritize the Q3 feature backlog for a fintech app",
		"include_clarifying_questions": off,
		"include_complete_solution":    off,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	classification := body["classification"].(map[string]any)
	assert.Equal(t, "Prioritization", classification["problem_type"])

	recommendation := body["framework_recommendation"].(map[string]any)
	assert.Equal(t, "RICE Framework", recommendation["framework"])
	assert.NotEmpty(t, recommendation["alternatives"])

	_, hasClarifying := body["clarifying_questions"]
	assert.False(t, hasClarifying, "clarifying_questions must be omitted when disabled")
	_, hasSolution := body["complete_solution"]
	assert.False(t, hasSolution, "complete_solution must be omitted when disabled")
}

func TestAnalyzeFlagsDefaultOn(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{responses: []scriptResponse{
		{text: `{"problem_type": "Product Design", "confidence": 0.8, "reasoning": "new surface", "key_indicators": ["design"]}`},
		{text: `{"questions": [{"question": "Who is the target user?", "why_important": "scopes the design", "category": "Users"}]}`},
		{text: `{"framework": "Design Thinking", "rationale": "r", "application_steps": ["Empathize"], "key_tips": ["t"], "common_pitfalls": ["p"]}`},
		{text: `{"executive_summary": "Ship a focused MVP.", "next_steps": ["Prototype", "Test"]}`},
	}}, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]any{
		"case_study": "Design a journaling feature for a meditation app",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, body, "clarifying_questions")
	assert.Len(t, body["clarifying_questions"], 1)

	solution := body["complete_solution"].(map[string]any)
	assert.Equal(t, "Ship a focused MVP.", solution["executive_summary"])
}

func TestAnalyzeDegradedStillSucceeds(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{responses: []scriptResponse{
		{err: errors.New("classify down")},
		{err: errors.New("clarify down")},
		{err: errors.New("framework down")},
		{err: errors.New("solution down")},
	}}, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]any{
		"case_study": "Improve retention for a food delivery app",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	classification := body["classification"].(map[string]any)
	assert.NotEmpty(t, classification["problem_type"])
	recommendation := body["framework_recommendation"].(map[string]any)
	assert.NotEmpty(t, recommendation["framework"])
}

func TestAnalyzeTooShort(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{}, nil)

	rec, body := doJSON(t, h, http.MethodPost, "/api/analyze", map[string]any{"case_study": "hm"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", errType(body))
}

func TestFrameworksCatalog(t *testing.T) {
	h := newTestHandler(t, &scriptGenerator{}, nil)

	rec, body := doJSON(t, h, http.MethodGet, "/api/frameworks", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(6), body["total_categories"])
	assert.Len(t, body["categories"], 6)

	frameworks := body["frameworks"].(map[string]any)
	prioritization := frameworks["Prioritization"].(map[string]any)
	assert.Equal(t, "RICE Framework", prioritization["primary"])
}

func openTrackingHandler(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newTestHandler(t, &scriptGenerator{}, store)
}

func TestTrackingCompanyCRUD(t *testing.T) {
	h := openTrackingHandler(t)

	rec, created := doJSON(t, h, http.MethodPost, "/api/companies", map[string]any{
		"company_name": "Acme",
		"industry":     "Robotics",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := created["company_id"].(string)
	require.NotEmpty(t, id)

	rec, body := doJSON(t, h, http.MethodPost, "/api/companies", map[string]any{"company_name": "Acme"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", errType(body))

	rec, body = doJSON(t, h, http.MethodPost, "/api/companies", map[string]any{"industry": "Energy"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", errType(body))

	rec, got := doJSON(t, h, http.MethodGet, "/api/companies/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme", got["company_name"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/companies/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errType(body))
}

func TestTrackingInterviewLifecycle(t *testing.T) {
	h := openTrackingHandler(t)

	rec, company := doJSON(t, h, http.MethodPost, "/api/companies", map[string]any{"company_name": "Globex"})
	require.Equal(t, http.StatusCreated, rec.Code)
	companyID := company["company_id"].(string)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/interviews", map[string]any{
		"seniority_level": "senior",
		"company_id":      "missing",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := doJSON(t, h, http.MethodPost, "/api/interviews", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", errType(body))

	rec, created := doJSON(t, h, http.MethodPost, "/api/interviews", map[string]any{
		"seniority_level": "senior",
		"company_id":      companyID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := created["interview_id"].(string)
	assert.Equal(t, "scheduled", created["interview_status"])

	rec, list := doJSON(t, h, http.MethodGet, "/api/interviews?interview_status=scheduled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), list["total"])
	assert.Len(t, list["data"], 1)

	created["interview_status"] = "in_progress"
	rec, updated := doJSON(t, h, http.MethodPut, "/api/interviews/"+id, created)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "in_progress", updated["interview_status"])

	rec, round := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/interviews/%s/rounds", id), map[string]any{
		"round_number": 1,
		"round_name":   "Phone screen",
		"round_type":   "technical",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, id, round["interview_id"])

	rec, _ = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/interviews/%s/rounds", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/interviews/"+id, nil)
	del := httptest.NewRecorder()
	h.ServeHTTP(del, req)
	require.Equal(t, http.StatusNoContent, del.Code)

	rec, got := doJSON(t, h, http.MethodGet, "/api/interviews/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", got["interview_status"])
}

func TestTrackingQuestionCRUD(t *testing.T) {
	h := openTrackingHandler(t)

	rec, body := doJSON(t, h, http.MethodPost, "/api/questions", map[string]any{
		"question_text": "Design a rate limiter",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", errType(body))

	rec, created := doJSON(t, h, http.MethodPost, "/api/questions", map[string]any{
		"question_text":     "Design a rate limiter",
		"question_category": "system_design",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := created["question_id"].(string)
	assert.Equal(t, "medium", created["question_difficulty"])

	rec, list := doJSON(t, h, http.MethodGet, "/api/questions?category=system_design", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), list["total"])

	req := httptest.NewRequest(http.MethodDelete, "/api/questions/"+id, nil)
	del := httptest.NewRecorder()
	h.ServeHTTP(del, req)
	require.Equal(t, http.StatusNoContent, del.Code)

	rec, list = doJSON(t, h, http.MethodGet, "/api/questions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), list["total"])
}
