package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultInterviewType   = "actual"
	defaultInterviewStatus = "scheduled"
	defaultInterviewResult = "pending"
	defaultRoundStatus     = "scheduled"
	defaultRoundResult     = "pending"
	defaultDifficulty      = "medium"
)

// --- Companies ---

func (s *Store) CreateCompany(c Company) (Company, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.db.Exec(`
		INSERT INTO companies (id, name, industry, size, headquarters, website, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Industry, c.Size, c.Headquarters, c.Website, c.Description,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return Company{}, fmt.Errorf("company %q: %w", c.Name, ErrDuplicate)
	}
	if err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *Store) GetCompany(id string) (Company, error) {
	var c Company
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, name, industry, size, headquarters, website, description, created_at, updated_at
		FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Industry, &c.Size, &c.Headquarters, &c.Website, &c.Description, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Company{}, ErrNotFound
	}
	if err != nil {
		return Company{}, err
	}
	if err := parseTimes(&c.CreatedAt, createdAt, &c.UpdatedAt, updatedAt); err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *Store) ListCompanies(skip, limit int, search string) ([]Company, error) {
	query := `SELECT id, name, industry, size, headquarters, website, description, created_at, updated_at FROM companies`
	args := []any{}
	if search != "" {
		query += ` WHERE name LIKE ? OR industry LIKE ?`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, pageLimit(limit), skip)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Company
	for rows.Next() {
		var c Company
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Industry, &c.Size, &c.Headquarters, &c.Website, &c.Description, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := parseTimes(&c.CreatedAt, createdAt, &c.UpdatedAt, updatedAt); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// --- Roles ---

func (s *Store) CreateRole(r Role) (Role, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := s.db.Exec(`
		INSERT INTO roles (id, name, category, description, typical_skills, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Category, r.Description, encodeList(r.TypicalSkills),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return Role{}, fmt.Errorf("role %q: %w", r.Name, ErrDuplicate)
	}
	if err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *Store) GetRole(id string) (Role, error) {
	var r Role
	var skills, createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, name, category, description, typical_skills, created_at, updated_at
		FROM roles WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Category, &r.Description, &skills, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}
	if r.TypicalSkills, err = decodeList(skills); err != nil {
		return Role{}, fmt.Errorf("decoding typical_skills for role %s: %w", r.ID, err)
	}
	if err := parseTimes(&r.CreatedAt, createdAt, &r.UpdatedAt, updatedAt); err != nil {
		return Role{}, err
	}
	return r, nil
}

func (s *Store) ListRoles(skip, limit int, search, category string) ([]Role, error) {
	query := `SELECT id, name, category, description, typical_skills, created_at, updated_at FROM roles WHERE 1=1`
	args := []any{}
	if search != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, pageLimit(limit), skip)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Role
	for rows.Next() {
		var r Role
		var skills, createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.Category, &r.Description, &skills, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if r.TypicalSkills, err = decodeList(skills); err != nil {
			return nil, fmt.Errorf("decoding typical_skills for role %s: %w", r.ID, err)
		}
		if err := parseTimes(&r.CreatedAt, createdAt, &r.UpdatedAt, updatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Skills ---

func (s *Store) CreateSkill(sk Skill) (Skill, error) {
	if sk.ID == "" {
		sk.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sk.CreatedAt, sk.UpdatedAt = now, now
	sk.IsActive = true

	_, err := s.db.Exec(`
		INSERT INTO skills (id, name, category, type, description, is_trending, market_demand, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		sk.ID, sk.Name, sk.Category, sk.Type, sk.Description, sk.IsTrending, sk.MarketDemand,
		formatTime(sk.CreatedAt), formatTime(sk.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return Skill{}, fmt.Errorf("skill %q: %w", sk.Name, ErrDuplicate)
	}
	if err != nil {
		return Skill{}, err
	}
	return sk, nil
}

func (s *Store) GetSkill(id string) (Skill, error) {
	var sk Skill
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, name, category, type, description, is_trending, market_demand, is_active, created_at, updated_at
		FROM skills WHERE id = ?`, id,
	).Scan(&sk.ID, &sk.Name, &sk.Category, &sk.Type, &sk.Description, &sk.IsTrending, &sk.MarketDemand, &sk.IsActive, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Skill{}, ErrNotFound
	}
	if err != nil {
		return Skill{}, err
	}
	if err := parseTimes(&sk.CreatedAt, createdAt, &sk.UpdatedAt, updatedAt); err != nil {
		return Skill{}, err
	}
	return sk, nil
}

func (s *Store) ListSkills(skip, limit int, search, category string, trending *bool) ([]Skill, error) {
	query := `SELECT id, name, category, type, description, is_trending, market_demand, is_active, created_at, updated_at
		FROM skills WHERE is_active = 1`
	args := []any{}
	if search != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	if trending != nil {
		query += ` AND is_trending = ?`
		args = append(args, *trending)
	}
	query += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, pageLimit(limit), skip)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Skill
	for rows.Next() {
		var sk Skill
		var createdAt, updatedAt string
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Category, &sk.Type, &sk.Description, &sk.IsTrending, &sk.MarketDemand, &sk.IsActive, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := parseTimes(&sk.CreatedAt, createdAt, &sk.UpdatedAt, updatedAt); err != nil {
			return nil, err
		}
		results = append(results, sk)
	}
	return results, rows.Err()
}

// --- Interviews ---

func (s *Store) CreateInterview(iv Interview) (Interview, error) {
	if iv.ID == "" {
		iv.ID = uuid.NewString()
	}
	if iv.Type == "" {
		iv.Type = defaultInterviewType
	}
	if iv.Status == "" {
		iv.Status = defaultInterviewStatus
	}
	if iv.Result == "" {
		iv.Result = defaultInterviewResult
	}
	now := time.Now().UTC()
	iv.CreatedAt, iv.UpdatedAt = now, now

	_, err := s.db.Exec(`
		INSERT INTO interviews (id, company_id, role_id, custom_role_title, type, seniority_level, status, result,
			job_description, skills_required, job_location, is_remote, salary_range, preparation_notes, overall_feedback,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, nullable(iv.CompanyID), nullable(iv.RoleID), iv.CustomRoleTitle, iv.Type, iv.SeniorityLevel,
		iv.Status, iv.Result, iv.JobDescription, encodeList(iv.SkillsRequired), iv.JobLocation, iv.IsRemote,
		iv.SalaryRange, iv.PreparationNotes, iv.OverallFeedback,
		formatTime(iv.CreatedAt), formatTime(iv.UpdatedAt),
	)
	if err != nil {
		return Interview{}, err
	}
	return iv, nil
}

const interviewColumns = `id, company_id, role_id, custom_role_title, type, seniority_level, status, result,
	job_description, skills_required, job_location, is_remote, salary_range, preparation_notes, overall_feedback,
	created_at, updated_at`

func (s *Store) scanInterview(row interface{ Scan(...any) error }) (Interview, error) {
	var iv Interview
	var companyID, roleID sql.NullString
	var skills, createdAt, updatedAt string
	err := row.Scan(&iv.ID, &companyID, &roleID, &iv.CustomRoleTitle, &iv.Type, &iv.SeniorityLevel,
		&iv.Status, &iv.Result, &iv.JobDescription, &skills, &iv.JobLocation, &iv.IsRemote,
		&iv.SalaryRange, &iv.PreparationNotes, &iv.OverallFeedback, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Interview{}, ErrNotFound
	}
	if err != nil {
		return Interview{}, err
	}
	iv.CompanyID, iv.RoleID = companyID.String, roleID.String
	if iv.SkillsRequired, err = decodeList(skills); err != nil {
		return Interview{}, fmt.Errorf("decoding skills_required for interview %s: %w", iv.ID, err)
	}
	if err := parseTimes(&iv.CreatedAt, createdAt, &iv.UpdatedAt, updatedAt); err != nil {
		return Interview{}, err
	}
	return iv, nil
}

func (s *Store) GetInterview(id string) (Interview, error) {
	row := s.db.QueryRow(`SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)
	return s.scanInterview(row)
}

func (s *Store) UpdateInterview(iv Interview) (Interview, error) {
	iv.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE interviews SET company_id = ?, role_id = ?, custom_role_title = ?, type = ?, seniority_level = ?,
			status = ?, result = ?, job_description = ?, skills_required = ?, job_location = ?, is_remote = ?,
			salary_range = ?, preparation_notes = ?, overall_feedback = ?, updated_at = ?
		WHERE id = ?`,
		nullable(iv.CompanyID), nullable(iv.RoleID), iv.CustomRoleTitle, iv.Type, iv.SeniorityLevel,
		iv.Status, iv.Result, iv.JobDescription, encodeList(iv.SkillsRequired), iv.JobLocation, iv.IsRemote,
		iv.SalaryRange, iv.PreparationNotes, iv.OverallFeedback, formatTime(iv.UpdatedAt), iv.ID,
	)
	if err != nil {
		return Interview{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Interview{}, err
	}
	if n == 0 {
		return Interview{}, ErrNotFound
	}
	return s.GetInterview(iv.ID)
}

// CancelInterview soft-deletes an interview by marking it cancelled.
func (s *Store) CancelInterview(id string) error {
	res, err := s.db.Exec(`UPDATE interviews SET status = 'cancelled', updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListInterviews(f InterviewFilter) ([]Interview, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	for _, cond := range []struct {
		clause string
		value  string
	}{
		{` AND company_id = ?`, f.CompanyID},
		{` AND role_id = ?`, f.RoleID},
		{` AND type = ?`, f.Type},
		{` AND status = ?`, f.Status},
		{` AND result = ?`, f.Result},
		{` AND seniority_level = ?`, f.Seniority},
	} {
		if cond.value != "" {
			where += cond.clause
			args = append(args, cond.value)
		}
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM interviews`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + interviewColumns + ` FROM interviews` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, pageLimit(f.Limit), f.Skip)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []Interview
	for rows.Next() {
		iv, err := s.scanInterview(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, iv)
	}
	return results, total, rows.Err()
}

// --- Interview rounds ---

func (s *Store) CreateRound(r InterviewRound) (InterviewRound, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = defaultRoundStatus
	}
	if r.Result == "" {
		r.Result = defaultRoundResult
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := s.db.Exec(`
		INSERT INTO interview_rounds (id, interview_id, round_number, name, type, duration_minutes,
			interviewer_name, interviewer_title, status, result, feedback, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.InterviewID, r.RoundNumber, r.Name, r.Type, r.DurationMinutes,
		r.InterviewerName, r.InterviewerTitle, r.Status, r.Result, r.Feedback, r.Rating,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return InterviewRound{}, err
	}
	return r, nil
}

func (s *Store) ListRounds(interviewID string) ([]InterviewRound, error) {
	rows, err := s.db.Query(`
		SELECT id, interview_id, round_number, name, type, duration_minutes, interviewer_name, interviewer_title,
			status, result, feedback, rating, created_at, updated_at
		FROM interview_rounds WHERE interview_id = ? ORDER BY round_number`, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []InterviewRound
	for rows.Next() {
		var r InterviewRound
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.InterviewID, &r.RoundNumber, &r.Name, &r.Type, &r.DurationMinutes,
			&r.InterviewerName, &r.InterviewerTitle, &r.Status, &r.Result, &r.Feedback, &r.Rating,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := parseTimes(&r.CreatedAt, createdAt, &r.UpdatedAt, updatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Questions ---

func (s *Store) CreateQuestion(q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Difficulty == "" {
		q.Difficulty = defaultDifficulty
	}
	now := time.Now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now
	q.IsActive = true

	_, err := s.db.Exec(`
		INSERT INTO questions (id, text, category, difficulty, context, answer_summary,
			follow_up_questions, key_concepts, tags, times_asked, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		q.ID, q.Text, q.Category, q.Difficulty, q.Context, q.AnswerSummary,
		encodeList(q.FollowUpQuestions), encodeList(q.KeyConcepts), encodeList(q.Tags), q.TimesAsked,
		formatTime(q.CreatedAt), formatTime(q.UpdatedAt),
	)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

const questionColumns = `id, text, category, difficulty, context, answer_summary,
	follow_up_questions, key_concepts, tags, times_asked, is_active, created_at, updated_at`

func (s *Store) scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	var followUps, concepts, tags, createdAt, updatedAt string
	err := row.Scan(&q.ID, &q.Text, &q.Category, &q.Difficulty, &q.Context, &q.AnswerSummary,
		&followUps, &concepts, &tags, &q.TimesAsked, &q.IsActive, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, err
	}
	if q.FollowUpQuestions, err = decodeList(followUps); err != nil {
		return Question{}, fmt.Errorf("decoding follow_up_questions for question %s: %w", q.ID, err)
	}
	if q.KeyConcepts, err = decodeList(concepts); err != nil {
		return Question{}, fmt.Errorf("decoding key_concepts for question %s: %w", q.ID, err)
	}
	if q.Tags, err = decodeList(tags); err != nil {
		return Question{}, fmt.Errorf("decoding tags for question %s: %w", q.ID, err)
	}
	if err := parseTimes(&q.CreatedAt, createdAt, &q.UpdatedAt, updatedAt); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *Store) GetQuestion(id string) (Question, error) {
	row := s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	return s.scanQuestion(row)
}

func (s *Store) UpdateQuestion(q Question) (Question, error) {
	q.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE questions SET text = ?, category = ?, difficulty = ?, context = ?, answer_summary = ?,
			follow_up_questions = ?, key_concepts = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		q.Text, q.Category, q.Difficulty, q.Context, q.AnswerSummary,
		encodeList(q.FollowUpQuestions), encodeList(q.KeyConcepts), encodeList(q.Tags),
		formatTime(q.UpdatedAt), q.ID,
	)
	if err != nil {
		return Question{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Question{}, err
	}
	if n == 0 {
		return Question{}, ErrNotFound
	}
	return s.GetQuestion(q.ID)
}

// DeactivateQuestion soft-deletes a question from the active pool.
func (s *Store) DeactivateQuestion(id string) error {
	res, err := s.db.Exec(`UPDATE questions SET is_active = 0, updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListQuestions(f QuestionFilter) ([]Question, int, error) {
	where := ` WHERE is_active = 1`
	args := []any{}
	if f.Category != "" {
		where += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Difficulty != "" {
		where += ` AND difficulty = ?`
		args = append(args, f.Difficulty)
	}
	if f.Search != "" {
		where += ` AND (text LIKE ? OR answer_summary LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + questionColumns + ` FROM questions` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, pageLimit(f.Limit), f.Skip)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []Question
	for rows.Next() {
		q, err := s.scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, q)
	}
	return results, total, rows.Err()
}

// --- helpers ---

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimes(created *time.Time, createdRaw string, updated *time.Time, updatedRaw string) error {
	t, err := time.Parse(time.RFC3339, createdRaw)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	*created = t
	t, err = time.Parse(time.RFC3339, updatedRaw)
	if err != nil {
		return fmt.Errorf("parsing updated_at: %w", err)
	}
	*updated = t
	return nil
}

// encodeList stores a string slice as a JSON array in a text column.
func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// nullable maps an empty foreign key to NULL so references stay optional.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// pageLimit clamps a page size into the 1..100 range the API allows.
func pageLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 100 {
		return 100
	}
	return limit
}
