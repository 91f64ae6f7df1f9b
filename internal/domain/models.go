package domain

import "time"

// Question is a single prompt issued by the evaluation service. Empty Options
// means the question expects a free-text answer.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

// FreeText reports whether the question has no fixed option set.
func (q Question) FreeText() bool {
	return len(q.Options) == 0
}

// Evaluation is the per-answer verdict from the interview flow.
type Evaluation struct {
	Score             int      `json:"score"`
	Feedback          string   `json:"feedback"`
	StrengthPoints    []string `json:"strengthPoints,omitempty"`
	ImprovementPoints []string `json:"improvementPoints,omitempty"`
}

// CompletedQuestion records one answered interview question with its verdict.
type CompletedQuestion struct {
	Question   Question   `json:"question"`
	Answer     string     `json:"answer"`
	Evaluation Evaluation `json:"evaluation"`
}

// QuestionReview is one entry of the per-question analysis in a TestResult.
type QuestionReview struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// TestResult is the aggregate outcome of a timed test, produced once at
// submission time and immutable afterward.
type TestResult struct {
	Score            int              `json:"score"` // percentage
	CorrectAnswers   int              `json:"correctAnswers"`
	IncorrectAnswers int              `json:"incorrectAnswers"`
	Feedback         string           `json:"feedback"`
	QuestionAnalysis []QuestionReview `json:"questionAnalysis"`
}

// InterviewConfig fixes the parameters of one interview session.
// DifficultyLevel is on a 1-5 scale and defaults to 3.
type InterviewConfig struct {
	InterviewType   string `json:"interviewType"`
	JobDescription  string `json:"jobDescription,omitempty"`
	DifficultyLevel int    `json:"difficultyLevel"`
}

// TestConfig fixes the parameters of one timed test session.
// TimeLimit is in minutes.
type TestConfig struct {
	Purpose    string `json:"purpose"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	TestType   string `json:"testType"`
	TimeLimit  int    `json:"timeLimit"`
}

// ConversationEntry is an append-only chat log line in the test flow,
// kept purely for display.
type ConversationEntry struct {
	Sender string    `json:"sender"` // "user" or "assistant"
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// ArchivedResult is a completed test result kept for a user's history.
type ArchivedResult struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Subject   string     `json:"subject"`
	TestType  string     `json:"testType"`
	Result    TestResult `json:"result"`
	CreatedAt time.Time  `json:"createdAt"`
}

// User is a registered account.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Purpose string `json:"purpose,omitempty"`
}

// Identity is the persisted token/user/email triplet for a logged-in user.
// Last writer wins; there is no locking discipline beyond the store's own.
type Identity struct {
	Token string `json:"token"`
	User  string `json:"user"` // serialized user profile
	Email string `json:"email"`
}
