package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mockprep-service/internal/domain"
)

// Client is the boundary to the external question-generation and grading
// service. Each operation is a single request/response exchange: no retries,
// no backoff, no idempotency keys. Callers own loading-state bookkeeping and
// error display.
type Client interface {
	GenerateInterviewQuestions(ctx context.Context, cfg domain.InterviewConfig) ([]domain.Question, error)
	EvaluateAnswer(ctx context.Context, cfg domain.InterviewConfig, question, answer string) (domain.Evaluation, error)
	GenerateTest(ctx context.Context, cfg domain.TestConfig) ([]domain.Question, error)
	SubmitAnswers(ctx context.Context, cfg domain.TestConfig, questions []domain.Question, answers map[string]string) (domain.TestResult, error)
}

// HTTPClient talks JSON over HTTP to the evaluation service.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewHTTPClient creates a client for the evaluation service at baseURL.
func NewHTTPClient(baseURL, apiKey string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type interviewQuestionsRequest struct {
	InterviewType   string `json:"interviewType"`
	JobDescription  string `json:"jobDescription,omitempty"`
	DifficultyLevel int    `json:"difficultyLevel"`
}

type interviewQuestion struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type interviewQuestionsResponse struct {
	Questions []interviewQuestion `json:"questions"`
}

func (c *HTTPClient) GenerateInterviewQuestions(ctx context.Context, cfg domain.InterviewConfig) ([]domain.Question, error) {
	level := cfg.DifficultyLevel
	if level == 0 {
		level = 3
	}
	var out interviewQuestionsResponse
	err := c.post(ctx, "/interview/generate-questions", interviewQuestionsRequest{
		InterviewType:   cfg.InterviewType,
		JobDescription:  cfg.JobDescription,
		DifficultyLevel: level,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("generate interview questions: %w", domain.ErrNoQuestions)
	}
	questions := make([]domain.Question, 0, len(out.Questions))
	for _, q := range out.Questions {
		questions = append(questions, domain.Question{
			ID:   fmt.Sprintf("%d", q.ID),
			Text: q.Text,
		})
	}
	return questions, nil
}

type evaluateRequest struct {
	InterviewType string `json:"interviewType"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
}

func (c *HTTPClient) EvaluateAnswer(ctx context.Context, cfg domain.InterviewConfig, question, answer string) (domain.Evaluation, error) {
	var out domain.Evaluation
	err := c.post(ctx, "/interview/evaluate-answer", evaluateRequest{
		InterviewType: cfg.InterviewType,
		Question:      question,
		Answer:        answer,
	}, &out)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if out.Feedback == "" {
		return domain.Evaluation{}, fmt.Errorf("evaluate answer: missing feedback in response")
	}
	return out, nil
}

type testQuestionsResponse struct {
	Questions []domain.Question `json:"questions"`
}

func (c *HTTPClient) GenerateTest(ctx context.Context, cfg domain.TestConfig) ([]domain.Question, error) {
	var out testQuestionsResponse
	if err := c.post(ctx, "/generate-test", cfg, &out); err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("generate test: %w", domain.ErrNoQuestions)
	}
	return out.Questions, nil
}

type submitRequest struct {
	TestParams domain.TestConfig `json:"testParams"`
	Questions  []domain.Question `json:"questions"`
	Answers    map[string]string `json:"answers"`
}

func (c *HTTPClient) SubmitAnswers(ctx context.Context, cfg domain.TestConfig, questions []domain.Question, answers map[string]string) (domain.TestResult, error) {
	var out domain.TestResult
	err := c.post(ctx, "/submit-answers", submitRequest{
		TestParams: cfg,
		Questions:  questions,
		Answers:    answers,
	}, &out)
	if err != nil {
		return domain.TestResult{}, err
	}
	if out.QuestionAnalysis == nil {
		return domain.TestResult{}, fmt.Errorf("submit answers: missing question analysis in response")
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, truncate(data, 256))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
