package evaluator

import (
	"context"
	"sync"

	"mockprep-service/internal/domain"
)

// Scripted is a canned Client for tests and offline demos. Zero-value fields
// fall back to a small built-in script.
type Scripted struct {
	InterviewQuestions []domain.Question
	Evaluation         domain.Evaluation
	TestQuestions      []domain.Question
	Result             domain.TestResult

	// Err, when set, is returned by every operation.
	Err error

	mu          sync.Mutex
	submissions []Submission
	calls       map[string]int
}

// Submission captures one payload handed to SubmitAnswers.
type Submission struct {
	Config    domain.TestConfig
	Questions []domain.Question
	Answers   map[string]string
}

func NewScripted() *Scripted {
	return &Scripted{
		InterviewQuestions: []domain.Question{
			{ID: "1", Text: "Tell me about a project you are proud of."},
			{ID: "2", Text: "How do you approach debugging a production incident?"},
		},
		Evaluation: domain.Evaluation{
			Score:    7,
			Feedback: "Solid answer with room for more concrete detail.",
		},
		TestQuestions: []domain.Question{
			{ID: "1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4"},
			{ID: "2", Text: "Explain the concept of gravity.", CorrectAnswer: "Masses attract each other."},
		},
		Result: domain.TestResult{
			Score:            50,
			CorrectAnswers:   1,
			IncorrectAnswers: 1,
			Feedback:         "Decent attempt; review the open-ended topics.",
			QuestionAnalysis: []domain.QuestionReview{},
		},
	}
}

func (s *Scripted) GenerateInterviewQuestions(_ context.Context, _ domain.InterviewConfig) ([]domain.Question, error) {
	s.record("generate-questions")
	if s.Err != nil {
		return nil, s.Err
	}
	return s.InterviewQuestions, nil
}

func (s *Scripted) EvaluateAnswer(_ context.Context, _ domain.InterviewConfig, _, _ string) (domain.Evaluation, error) {
	s.record("evaluate-answer")
	if s.Err != nil {
		return domain.Evaluation{}, s.Err
	}
	return s.Evaluation, nil
}

func (s *Scripted) GenerateTest(_ context.Context, _ domain.TestConfig) ([]domain.Question, error) {
	s.record("generate-test")
	if s.Err != nil {
		return nil, s.Err
	}
	return s.TestQuestions, nil
}

func (s *Scripted) SubmitAnswers(_ context.Context, cfg domain.TestConfig, questions []domain.Question, answers map[string]string) (domain.TestResult, error) {
	s.record("submit-answers")
	if s.Err != nil {
		return domain.TestResult{}, s.Err
	}
	s.mu.Lock()
	s.submissions = append(s.submissions, Submission{Config: cfg, Questions: questions, Answers: answers})
	s.mu.Unlock()
	return s.Result, nil
}

// Submissions returns every payload passed to SubmitAnswers.
func (s *Scripted) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// Calls reports how many times the named operation ran.
func (s *Scripted) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Scripted) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[op]++
}
