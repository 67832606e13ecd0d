package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a create violates a unique name constraint.
var ErrDuplicate = errors.New("already exists")

// Company is an employer interviews are tracked against.
type Company struct {
	ID           string    `json:"company_id"`
	Name         string    `json:"company_name"`
	Industry     string    `json:"industry,omitempty"`
	Size         string    `json:"company_size,omitempty"`
	Headquarters string    `json:"headquarters,omitempty"`
	Website      string    `json:"website,omitempty"`
	Description  string    `json:"company_description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role is a reference entry for a job role.
type Role struct {
	ID            string    `json:"role_id"`
	Name          string    `json:"role_name"`
	Category      string    `json:"role_category,omitempty"`
	Description   string    `json:"role_description,omitempty"`
	TypicalSkills []string  `json:"typical_skills,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Skill is a master-list entry of skills assessed in interviews.
type Skill struct {
	ID           string    `json:"skill_id"`
	Name         string    `json:"skill_name"`
	Category     string    `json:"skill_category,omitempty"`
	Type         string    `json:"skill_type,omitempty"`
	Description  string    `json:"skill_description,omitempty"`
	IsTrending   bool      `json:"is_trending"`
	MarketDemand string    `json:"market_demand,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Interview tracks one interview process with a company.
type Interview struct {
	ID               string    `json:"interview_id"`
	CompanyID        string    `json:"company_id,omitempty"`
	RoleID           string    `json:"role_id,omitempty"`
	CustomRoleTitle  string    `json:"custom_role_title,omitempty"`
	Type             string    `json:"interview_type"`
	SeniorityLevel   string    `json:"seniority_level"`
	Status           string    `json:"interview_status"`
	Result           string    `json:"interview_result"`
	JobDescription   string    `json:"job_description,omitempty"`
	SkillsRequired   []string  `json:"main_skills_required,omitempty"`
	JobLocation      string    `json:"job_location,omitempty"`
	IsRemote         bool      `json:"is_remote"`
	SalaryRange      string    `json:"salary_range,omitempty"`
	PreparationNotes string    `json:"preparation_notes,omitempty"`
	OverallFeedback  string    `json:"overall_feedback,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// InterviewRound is one round within a tracked interview.
type InterviewRound struct {
	ID               string    `json:"round_id"`
	InterviewID      string    `json:"interview_id"`
	RoundNumber      int       `json:"round_number"`
	Name             string    `json:"round_name,omitempty"`
	Type             string    `json:"round_type"`
	DurationMinutes  int       `json:"duration_minutes,omitempty"`
	InterviewerName  string    `json:"interviewer_name,omitempty"`
	InterviewerTitle string    `json:"interviewer_title,omitempty"`
	Status           string    `json:"round_status"`
	Result           string    `json:"round_result"`
	Feedback         string    `json:"feedback,omitempty"`
	Rating           int       `json:"rating,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Question is a master-list interview question with preparation material.
type Question struct {
	ID                string    `json:"question_id"`
	Text              string    `json:"question_text"`
	Category          string    `json:"question_category"`
	Difficulty        string    `json:"question_difficulty"`
	Context           string    `json:"question_context,omitempty"`
	AnswerSummary     string    `json:"answer_summary,omitempty"`
	FollowUpQuestions []string  `json:"follow_up_questions,omitempty"`
	KeyConcepts       []string  `json:"key_concepts,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	TimesAsked        int       `json:"times_asked"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// InterviewFilter narrows and pages ListInterviews.
type InterviewFilter struct {
	CompanyID string
	RoleID    string
	Type      string
	Status    string
	Result    string
	Seniority string
	Skip      int
	Limit     int
}

// QuestionFilter narrows and pages ListQuestions.
type QuestionFilter struct {
	Category   string
	Difficulty string
	Search     string
	Skip       int
	Limit      int
}
