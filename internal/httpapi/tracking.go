package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockmate/mockmate/internal/storage"
)

// mountTracking adds the interview tracking CRUD routes. All records live in
// the SQLite store; the routes are thin translation layers over it.
func mountTracking(r chi.Router, deps Deps) {
	r.Route("/api/companies", func(r chi.Router) {
		r.Get("/", handleListCompanies(deps))
		r.Post("/", handleCreateCompany(deps))
		r.Get("/{id}", handleGetCompany(deps))
	})

	r.Route("/api/roles", func(r chi.Router) {
		r.Get("/", handleListRoles(deps))
		r.Post("/", handleCreateRole(deps))
		r.Get("/{id}", handleGetRole(deps))
	})

	r.Route("/api/skills", func(r chi.Router) {
		r.Get("/", handleListSkills(deps))
		r.Post("/", handleCreateSkill(deps))
		r.Get("/{id}", handleGetSkill(deps))
	})

	r.Route("/api/interviews", func(r chi.Router) {
		r.Get("/", handleListInterviews(deps))
		r.Post("/", handleCreateInterview(deps))
		r.Get("/{id}", handleGetInterview(deps))
		r.Put("/{id}", handleUpdateInterview(deps))
		r.Delete("/{id}", handleDeleteInterview(deps))
		r.Get("/{id}/rounds", handleListRounds(deps))
		r.Post("/{id}/rounds", handleCreateRound(deps))
	})

	r.Route("/api/questions", func(r chi.Router) {
		r.Get("/", handleListQuestions(deps))
		r.Post("/", handleCreateQuestion(deps))
		r.Get("/{id}", handleGetQuestion(deps))
		r.Put("/{id}", handleUpdateQuestion(deps))
		r.Delete("/{id}", handleDeleteQuestion(deps))
	})
}

// storeError maps storage sentinel errors onto HTTP responses.
func storeError(w http.ResponseWriter, err error, kind string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%s not found", kind)
	case errors.Is(err, storage.ErrDuplicate):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s with this name already exists", kind)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%s operation failed: %v", kind, err)
	}
}

// --- Companies ---

func handleListCompanies(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companies, err := deps.Store.ListCompanies(
			queryInt(r, "skip", 0), queryInt(r, "limit", 50), r.URL.Query().Get("search"))
		if err != nil {
			storeError(w, err, "company")
			return
		}
		if companies == nil {
			companies = []storage.Company{}
		}
		writeJSON(w, http.StatusOK, companies)
	}
}

func handleCreateCompany(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c storage.Company
		if !decodeBody(w, r, &c) {
			return
		}
		if c.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "company_name is required")
			return
		}
		created, err := deps.Store.CreateCompany(c)
		if err != nil {
			storeError(w, err, "company")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGetCompany(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Store.GetCompany(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "company")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// --- Roles ---

func handleListRoles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := deps.Store.ListRoles(
			queryInt(r, "skip", 0), queryInt(r, "limit", 50),
			r.URL.Query().Get("search"), r.URL.Query().Get("category"))
		if err != nil {
			storeError(w, err, "role")
			return
		}
		if roles == nil {
			roles = []storage.Role{}
		}
		writeJSON(w, http.StatusOK, roles)
	}
}

func handleCreateRole(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var role storage.Role
		if !decodeBody(w, r, &role) {
			return
		}
		if role.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "role_name is required")
			return
		}
		created, err := deps.Store.CreateRole(role)
		if err != nil {
			storeError(w, err, "role")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGetRole(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := deps.Store.GetRole(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "role")
			return
		}
		writeJSON(w, http.StatusOK, role)
	}
}

// --- Skills ---

func handleListSkills(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var trending *bool
		switch r.URL.Query().Get("is_trending") {
		case "true":
			v := true
			trending = &v
		case "false":
			v := false
			trending = &v
		}

		skills, err := deps.Store.ListSkills(
			queryInt(r, "skip", 0), queryInt(r, "limit", 50),
			r.URL.Query().Get("search"), r.URL.Query().Get("category"), trending)
		if err != nil {
			storeError(w, err, "skill")
			return
		}
		if skills == nil {
			skills = []storage.Skill{}
		}
		writeJSON(w, http.StatusOK, skills)
	}
}

func handleCreateSkill(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sk storage.Skill
		if !decodeBody(w, r, &sk) {
			return
		}
		if sk.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "skill_name is required")
			return
		}
		created, err := deps.Store.CreateSkill(sk)
		if err != nil {
			storeError(w, err, "skill")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGetSkill(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sk, err := deps.Store.GetSkill(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "skill")
			return
		}
		writeJSON(w, http.StatusOK, sk)
	}
}

// --- Interviews ---

func handleListInterviews(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := storage.InterviewFilter{
			CompanyID: q.Get("company_id"),
			RoleID:    q.Get("role_id"),
			Type:      q.Get("interview_type"),
			Status:    q.Get("interview_status"),
			Result:    q.Get("interview_result"),
			Seniority: q.Get("seniority_level"),
			Skip:      queryInt(r, "skip", 0),
			Limit:     queryInt(r, "limit", 20),
		}

		interviews, total, err := deps.Store.ListInterviews(filter)
		if err != nil {
			storeError(w, err, "interview")
			return
		}
		if interviews == nil {
			interviews = []storage.Interview{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total": total,
			"skip":  filter.Skip,
			"limit": filter.Limit,
			"data":  interviews,
		})
	}
}

// validateInterviewRefs checks that referenced company/role records exist.
func validateInterviewRefs(w http.ResponseWriter, deps Deps, iv storage.Interview) bool {
	if iv.CompanyID != "" {
		if _, err := deps.Store.GetCompany(iv.CompanyID); err != nil {
			storeError(w, err, "company")
			return false
		}
	}
	if iv.RoleID != "" {
		if _, err := deps.Store.GetRole(iv.RoleID); err != nil {
			storeError(w, err, "role")
			return false
		}
	}
	return true
}

func handleCreateInterview(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var iv storage.Interview
		if !decodeBody(w, r, &iv) {
			return
		}
		if iv.SeniorityLevel == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "seniority_level is required")
			return
		}
		if !validateInterviewRefs(w, deps, iv) {
			return
		}
		created, err := deps.Store.CreateInterview(iv)
		if err != nil {
			storeError(w, err, "interview")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGetInterview(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iv, err := deps.Store.GetInterview(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "interview")
			return
		}
		writeJSON(w, http.StatusOK, iv)
	}
}

func handleUpdateInterview(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var iv storage.Interview
		if !decodeBody(w, r, &iv) {
			return
		}
		iv.ID = chi.URLParam(r, "id")
		if !validateInterviewRefs(w, deps, iv) {
			return
		}
		updated, err := deps.Store.UpdateInterview(iv)
		if err != nil {
			storeError(w, err, "interview")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteInterview(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.CancelInterview(chi.URLParam(r, "id")); err != nil {
			storeError(w, err, "interview")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListRounds(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetInterview(id); err != nil {
			storeError(w, err, "interview")
			return
		}
		rounds, err := deps.Store.ListRounds(id)
		if err != nil {
			storeError(w, err, "round")
			return
		}
		if rounds == nil {
			rounds = []storage.InterviewRound{}
		}
		writeJSON(w, http.StatusOK, rounds)
	}
}

func handleCreateRound(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetInterview(id); err != nil {
			storeError(w, err, "interview")
			return
		}

		var round storage.InterviewRound
		if !decodeBody(w, r, &round) {
			return
		}
		if round.Type == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "round_type is required")
			return
		}
		round.InterviewID = id

		created, err := deps.Store.CreateRound(round)
		if err != nil {
			storeError(w, err, "round")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// --- Questions ---

func handleListQuestions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := storage.QuestionFilter{
			Category:   q.Get("category"),
			Difficulty: q.Get("difficulty"),
			Search:     q.Get("search"),
			Skip:       queryInt(r, "skip", 0),
			Limit:      queryInt(r, "limit", 20),
		}

		questions, total, err := deps.Store.ListQuestions(filter)
		if err != nil {
			storeError(w, err, "question")
			return
		}
		if questions == nil {
			questions = []storage.Question{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total": total,
			"skip":  filter.Skip,
			"limit": filter.Limit,
			"data":  questions,
		})
	}
}

func handleCreateQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q storage.Question
		if !decodeBody(w, r, &q) {
			return
		}
		if q.Text == "" || q.Category == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question_text and question_category are required")
			return
		}
		created, err := deps.Store.CreateQuestion(q)
		if err != nil {
			storeError(w, err, "question")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleGetQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := deps.Store.GetQuestion(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err, "question")
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func handleUpdateQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q storage.Question
		if !decodeBody(w, r, &q) {
			return
		}
		q.ID = chi.URLParam(r, "id")
		updated, err := deps.Store.UpdateQuestion(q)
		if err != nil {
			storeError(w, err, "question")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeactivateQuestion(chi.URLParam(r, "id")); err != nil {
			storeError(w, err, "question")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
