package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ExamTypeComplete    = "complete"
	ExamTypeQuick       = "quick"
	ExamTypeCustom      = "custom"
	ExamTypeInteractive = "interactive"

	ExamStatusGenerating = "generating"
	ExamStatusReady      = "ready"
	ExamStatusInProgress = "in-progress"
	ExamStatusCompleted  = "completed"
	ExamStatusExpired    = "expired"

	ExamLifetime = 30 * 24 * time.Hour
)

type ExamAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
}

type ExamResult struct {
	Score            float64 `json:"score"`
	TotalQuestions   int     `json:"totalQuestions"`
	CorrectAnswers   int     `json:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrectAnswers"`
	TimeSpent        int     `json:"timeSpent"`
}

type Exam struct {
	ID            string                          `gorm:"column:id;primaryKey" json:"id"`
	UserID        string                          `gorm:"column:user_id;not null;index" json:"userId"`
	Title         string                          `gorm:"column:title" json:"title"`
	Type          string                          `gorm:"column:exam_type;not null" json:"type"`
	QuestionCount int                             `gorm:"column:question_count" json:"questionCount"`
	TimeLimit     int                             `gorm:"column:time_limit" json:"timeLimit"`
	ContentType   string                          `gorm:"column:content_type" json:"contentType"`
	Subject       string                          `gorm:"column:subject" json:"subject"`
	CustomTopic   string                          `gorm:"column:custom_topic" json:"customTopic"`
	QuestionIDs   datatypes.JSONSlice[string]     `gorm:"column:question_ids" json:"questionIds"`
	Status        string                          `gorm:"column:status;not null;index" json:"status"`
	Answers       datatypes.JSONSlice[ExamAnswer] `gorm:"column:answers" json:"answers,omitempty"`
	Score         *float64                        `gorm:"column:score" json:"score,omitempty"`
	CorrectCount  int                             `gorm:"column:correct_count" json:"correctCount"`
	CreatedAt     time.Time                       `gorm:"column:created_at;not null;index" json:"createdAt"`
	ExpiresAt     time.Time                       `gorm:"column:expires_at;not null" json:"expiresAt"`
	StartedAt     *time.Time                      `gorm:"column:started_at" json:"startedAt,omitempty"`
	CompletedAt   *time.Time                      `gorm:"column:completed_at" json:"completedAt,omitempty"`
}

func (Exam) TableName() string { return "exams" }

var examTitles = map[string]string{
	ExamTypeComplete: "Simulado Completo",
	ExamTypeQuick:    "Simulado Rápido",
}

var examSubjectNames = map[string]string{
	"mathematics":      "Matemática",
	"languages":        "Linguagens",
	"human_sciences":   "Ciências Humanas",
	"natural_sciences": "Ciências da Natureza",
}

// ExamTitle names an exam after its type and content selection, e.g. "Simulado Rápido - Matemática".
func ExamTitle(examType, method, subject, customTopic string) string {
	title, ok := examTitles[examType]
	if !ok {
		title = "Simulado Personalizado"
	}
	switch method {
	case "subject":
		if subject != "" && subject != "all" {
			name, ok := examSubjectNames[subject]
			if !ok {
				name = subject
			}
			title += " - " + name
		}
	case "topic":
		if customTopic != "" {
			title += " - " + customTopic
		}
	}
	return title
}

// GradeExam scores answers against the exam's questions. Unanswered questions count as incorrect.
// timeSpent is in seconds.
func GradeExam(questions []Question, answers []ExamAnswer, timeSpent int) ExamResult {
	chosen := make(map[string]string, len(answers))
	for _, a := range answers {
		chosen[a.QuestionID] = a.SelectedOption
	}
	res := ExamResult{TotalQuestions: len(questions), TimeSpent: timeSpent}
	for _, q := range questions {
		if sel, ok := chosen[q.ID]; ok && sel != "" && sel == q.CorrectAnswer {
			res.CorrectAnswers++
		}
	}
	res.IncorrectAnswers = res.TotalQuestions - res.CorrectAnswers
	if res.TotalQuestions > 0 {
		res.Score = float64(res.CorrectAnswers) / float64(res.TotalQuestions) * 100
	}
	return res
}

func (e *Exam) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
