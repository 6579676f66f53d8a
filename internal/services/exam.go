package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/enemia-backend/internal/data/repos"
	"github.com/yungbote/enemia-backend/internal/domain"
	"github.com/yungbote/enemia-backend/internal/modules/generation"
	"github.com/yungbote/enemia-backend/internal/platform/apierr"
	"github.com/yungbote/enemia-backend/internal/platform/dbctx"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

const (
	defaultExamPageSize = 10
	maxExamPageSize     = 50
)

type CreateExamInput struct {
	ExamType         string                      `json:"examType" validate:"required,oneof=complete quick custom interactive"`
	QuestionCount    int                         `json:"questionCount" validate:"min=1,max=180"`
	EstimatedTime    int                         `json:"estimatedTime" validate:"min=0"`
	ContentSelection generation.ContentSelection `json:"contentSelection"`
}

type ExamConfig struct {
	Type          string `json:"type"`
	QuestionCount int    `json:"questionCount"`
	TimeLimit     int    `json:"timeLimit"`
	ContentType   string `json:"contentType"`
	Subject       string `json:"subject"`
	CustomTopic   string `json:"customTopic"`
}

// ExamView is the client-facing shape of an exam.
type ExamView struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	CreatedAt   time.Time          `json:"createdAt"`
	ExpiresAt   time.Time          `json:"expiresAt"`
	Status      string             `json:"status"`
	Config      ExamConfig         `json:"config"`
	Questions   []*domain.Question `json:"questions,omitempty"`
	StartedAt   *time.Time         `json:"startedAt,omitempty"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	Score       *float64           `json:"score,omitempty"`
	RedirectURL string             `json:"redirectUrl"`
}

func NewExamView(e *domain.Exam, questions []*domain.Question) ExamView {
	return ExamView{
		ID:        e.ID,
		Title:     e.Title,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
		Status:    e.Status,
		Config: ExamConfig{
			Type:          e.Type,
			QuestionCount: e.QuestionCount,
			TimeLimit:     e.TimeLimit,
			ContentType:   e.ContentType,
			Subject:       e.Subject,
			CustomTopic:   e.CustomTopic,
		},
		Questions:   questions,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		Score:       e.Score,
		RedirectURL: "/exam/start/" + e.ID,
	}
}

type ExamPagination struct {
	Total       int64 `json:"total"`
	Pages       int64 `json:"pages"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
}

type ExamHistory struct {
	Exams      []ExamView     `json:"exams"`
	Pagination ExamPagination `json:"pagination"`
}

type ExamSubmission struct {
	Exam   ExamView          `json:"exam"`
	Result domain.ExamResult `json:"result"`
}

type ExamService interface {
	Create(dbc dbctx.Context, in CreateExamInput) (ExamView, error)
	Get(dbc dbctx.Context, id string) (ExamView, error)
	Start(dbc dbctx.Context, id string) (ExamView, error)
	Submit(dbc dbctx.Context, id string, answers map[string]string, timeSpent int) (ExamSubmission, error)
	History(dbc dbctx.Context, status string, page, limit int) (ExamHistory, error)
}

type examService struct {
	log       *logger.Logger
	exams     repos.ExamRepo
	questions repos.QuestionRepo
	generator *generation.QuestionGenerator
	validate  *validator.Validate
	now       Clock
}

func NewExamService(log *logger.Logger, exams repos.ExamRepo, questions repos.QuestionRepo, generator *generation.QuestionGenerator, now Clock) ExamService {
	if now == nil {
		now = SystemClock
	}
	return &examService{
		log:       log.With("service", "ExamService"),
		exams:     exams,
		questions: questions,
		generator: generator,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       now,
	}
}

func (s *examService) validateInput(in *CreateExamInput) error {
	in.ContentSelection.Method = strings.TrimSpace(in.ContentSelection.Method)
	if in.ContentSelection.Method == "" {
		in.ContentSelection.Method = generation.MethodSubject
	}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apierr.Validation("invalid_exam_config", fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return apierr.Validation("invalid_exam_config", err.Error())
	}
	switch in.ContentSelection.Method {
	case generation.MethodSubject:
		in.ContentSelection.Subject = generation.NormalizeSubject(in.ContentSelection.Subject)
	case generation.MethodTopic:
		if strings.TrimSpace(in.ContentSelection.CustomTopic) == "" {
			return apierr.Validation("missing_field", "missing required field: contentSelection.customTopic")
		}
	default:
		return apierr.Validation("invalid_content_selection", "contentSelection.method must be subject or topic")
	}
	return nil
}

// Create generates the exam's questions, stores them for the caller and returns the
// exam ready to start.
func (s *examService) Create(dbc dbctx.Context, in CreateExamInput) (ExamView, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return ExamView{}, err
	}
	if err := s.validateInput(&in); err != nil {
		return ExamView{}, err
	}

	drafts, err := s.generator.Generate(dbc.Ctx, in.ContentSelection, in.QuestionCount)
	if err != nil {
		return ExamView{}, err
	}
	now := s.now()
	questions := generation.Materialize(drafts, uid, now)
	if err := s.questions.CreateBatch(dbc, questions); err != nil {
		return ExamView{}, internalErr("question_save_failed", fmt.Errorf("save exam questions: %w", err))
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	sel := in.ContentSelection
	exam := &domain.Exam{
		ID:            domain.NewID(domain.PrefixExam),
		UserID:        uid,
		Title:         domain.ExamTitle(in.ExamType, sel.Method, sel.Subject, sel.CustomTopic),
		Type:          in.ExamType,
		QuestionCount: in.QuestionCount,
		TimeLimit:     in.EstimatedTime,
		ContentType:   sel.Method,
		Subject:       sel.Subject,
		CustomTopic:   sel.CustomTopic,
		QuestionIDs:   ids,
		Status:        domain.ExamStatusReady,
		Answers:       []domain.ExamAnswer{},
		CreatedAt:     now,
		ExpiresAt:     now.Add(domain.ExamLifetime),
	}
	if err := s.exams.Create(dbc, exam); err != nil {
		return ExamView{}, internalErr("exam_save_failed", fmt.Errorf("save exam: %w", err))
	}
	s.log.Info("exam created", "exam_id", exam.ID, "questions", len(questions), "type", exam.Type)
	return NewExamView(exam, questions), nil
}

// owned loads an exam for its owner and moves it to expired when its lifetime has passed.
func (s *examService) owned(dbc dbctx.Context, id string) (*domain.Exam, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.GetByID(dbc, id)
	if err != nil {
		return nil, internalErr("exam_read_failed", fmt.Errorf("get exam: %w", err))
	}
	if exam == nil {
		return nil, apierr.NotFound("exam_not_found", "exam not found")
	}
	if exam.UserID != uid {
		return nil, apierr.Forbidden("exam belongs to another user")
	}
	if exam.Status != domain.ExamStatusCompleted && exam.Status != domain.ExamStatusExpired && exam.Expired(s.now()) {
		exam.Status = domain.ExamStatusExpired
		if err := s.exams.Update(dbc, exam); err != nil {
			return nil, internalErr("exam_update_failed", fmt.Errorf("expire exam: %w", err))
		}
	}
	return exam, nil
}

func (s *examService) examQuestions(dbc dbctx.Context, exam *domain.Exam) ([]*domain.Question, error) {
	qs, err := s.questions.GetByIDs(dbc, exam.QuestionIDs)
	if err != nil {
		return nil, internalErr("question_read_failed", fmt.Errorf("get exam questions: %w", err))
	}
	return qs, nil
}

func (s *examService) Get(dbc dbctx.Context, id string) (ExamView, error) {
	exam, err := s.owned(dbc, id)
	if err != nil {
		return ExamView{}, err
	}
	qs, err := s.examQuestions(dbc, exam)
	if err != nil {
		return ExamView{}, err
	}
	return NewExamView(exam, qs), nil
}

func (s *examService) Start(dbc dbctx.Context, id string) (ExamView, error) {
	exam, err := s.owned(dbc, id)
	if err != nil {
		return ExamView{}, err
	}
	switch exam.Status {
	case domain.ExamStatusExpired:
		return ExamView{}, apierr.Conflict("exam_expired", errors.New("exam has expired"))
	case domain.ExamStatusCompleted:
		return ExamView{}, apierr.Conflict("exam_completed", errors.New("exam was already submitted"))
	case domain.ExamStatusReady:
		now := s.now()
		exam.Status = domain.ExamStatusInProgress
		exam.StartedAt = &now
		if err := s.exams.Update(dbc, exam); err != nil {
			return ExamView{}, internalErr("exam_update_failed", fmt.Errorf("start exam: %w", err))
		}
	}
	qs, err := s.examQuestions(dbc, exam)
	if err != nil {
		return ExamView{}, err
	}
	return NewExamView(exam, qs), nil
}

// Submit grades answers keyed by question id. Questions without an answer count as incorrect.
func (s *examService) Submit(dbc dbctx.Context, id string, answers map[string]string, timeSpent int) (ExamSubmission, error) {
	exam, err := s.owned(dbc, id)
	if err != nil {
		return ExamSubmission{}, err
	}
	switch exam.Status {
	case domain.ExamStatusExpired:
		return ExamSubmission{}, apierr.Conflict("exam_expired", errors.New("exam has expired"))
	case domain.ExamStatusCompleted:
		return ExamSubmission{}, apierr.Conflict("exam_completed", errors.New("exam was already submitted"))
	}
	if timeSpent < 0 {
		timeSpent = 0
	}
	qs, err := s.examQuestions(dbc, exam)
	if err != nil {
		return ExamSubmission{}, err
	}

	recorded := make([]domain.ExamAnswer, 0, len(answers))
	for _, qid := range exam.QuestionIDs {
		if sel, ok := answers[qid]; ok {
			recorded = append(recorded, domain.ExamAnswer{QuestionID: qid, SelectedOption: sel})
		}
	}
	values := make([]domain.Question, 0, len(qs))
	for _, q := range qs {
		values = append(values, *q)
	}
	res := domain.GradeExam(values, recorded, timeSpent)

	now := s.now()
	exam.Status = domain.ExamStatusCompleted
	exam.Answers = recorded
	exam.Score = &res.Score
	exam.CorrectCount = res.CorrectAnswers
	exam.CompletedAt = &now
	if exam.StartedAt == nil {
		started := now.Add(-time.Duration(timeSpent) * time.Second)
		exam.StartedAt = &started
	}
	if err := s.exams.Update(dbc, exam); err != nil {
		return ExamSubmission{}, internalErr("exam_update_failed", fmt.Errorf("submit exam: %w", err))
	}
	s.log.Info("exam submitted", "exam_id", exam.ID, "score", res.Score)
	return ExamSubmission{Exam: NewExamView(exam, qs), Result: res}, nil
}

var examStatuses = map[string]bool{
	domain.ExamStatusGenerating: true,
	domain.ExamStatusReady:      true,
	domain.ExamStatusInProgress: true,
	domain.ExamStatusCompleted:  true,
	domain.ExamStatusExpired:    true,
}

// History pages through the caller's exams, newest first. Pages are 1-based.
func (s *examService) History(dbc dbctx.Context, status string, page, limit int) (ExamHistory, error) {
	uid, err := requireUser(dbc.Ctx)
	if err != nil {
		return ExamHistory{}, err
	}
	if status != "" && !examStatuses[status] {
		return ExamHistory{}, apierr.Validation("invalid_status", "unknown exam status: "+status)
	}
	if page < 1 {
		page = 1
	}
	limit = defaultIfOutside(limit, defaultExamPageSize, 1, maxExamPageSize)

	res, err := s.exams.ListByUser(dbc, uid, status, (page-1)*limit, limit)
	if err != nil {
		return ExamHistory{}, internalErr("exam_list_failed", fmt.Errorf("list exams: %w", err))
	}
	views := make([]ExamView, 0, len(res.Exams))
	for _, e := range res.Exams {
		views = append(views, NewExamView(e, nil))
	}
	pages := (res.Total + int64(limit) - 1) / int64(limit)
	return ExamHistory{
		Exams: views,
		Pagination: ExamPagination{
			Total:       res.Total,
			Pages:       pages,
			CurrentPage: page,
			Limit:       limit,
		},
	}, nil
}
