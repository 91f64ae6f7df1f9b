package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mockprep-service/internal/domain"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Purpose  string `json:"purpose"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: "invalid request body"})
		return
	}

	user, token, err := h.auth.Signup(r.Context(), req.Name, req.Email, req.Purpose, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: "Email already registered"})
			return
		}
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: err.Error()})
		return
	}

	h.saveIdentity(r, user, token)
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User:    &user,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: "invalid request body"})
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, authResponse{Success: false, Message: "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, authResponse{Success: false, Message: "login failed"})
		return
	}

	h.saveIdentity(r, user, token)
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    &user,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	email := callerEmail(r.Context())
	if h.identities != nil && email != "" {
		if err := h.identities.Clear(r.Context(), email); err != nil {
			log.Printf("clear identity for %s: %v", email, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) saveIdentity(r *http.Request, user domain.User, token string) {
	if h.identities == nil {
		return
	}
	profile, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := h.identities.Save(r.Context(), domain.Identity{
		Token: token,
		User:  string(profile),
		Email: user.Email,
	}); err != nil {
		log.Printf("save identity for %s: %v", user.Email, err)
	}
}

func (h *Handler) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var cfg domain.TestConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cfg.TimeLimit <= 0 {
		writeError(w, http.StatusBadRequest, "timeLimit must be positive")
		return
	}

	session, err := h.service.CreateTest(r.Context(), callerEmail(r.Context()), cfg)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuestions) {
			writeError(w, http.StatusBadGateway, "the question service returned no usable questions")
			return
		}
		log.Printf("create test: %v", err)
		writeError(w, http.StatusBadGateway, "failed to generate test")
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (h *Handler) handleGetTest(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetTest(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleCloseTest(w http.ResponseWriter, r *http.Request) {
	h.service.CloseTest(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetTest(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch err := session.SelectAnswer(chi.URLParam(r, "questionId"), body.Value); {
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, "question not found")
	case errors.Is(err, domain.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, "test already submitted")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, session.Snapshot())
	}
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetTest(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var body struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	index := session.Navigate(body.Delta)
	writeJSON(w, http.StatusOK, map[string]int{"index": index})
}

func (h *Handler) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetTest(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var body struct {
		Sender string `json:"sender"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Sender != "assistant" {
		body.Sender = "user"
	}
	session.AppendMessage(body.Sender, body.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmitTest(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetTest(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	result, err := session.Submit(r.Context())
	switch {
	case errors.Is(err, domain.ErrSubmitInProgress):
		writeError(w, http.StatusConflict, "submission already in progress")
	case errors.Is(err, domain.ErrAlreadySubmitted):
		// Idempotent from the client's point of view: return the stored result.
		if stored, ok := session.Result(); ok {
			writeJSON(w, http.StatusOK, stored)
			return
		}
		writeError(w, http.StatusConflict, "test already submitted")
	case err != nil:
		log.Printf("submit test: %v", err)
		writeError(w, http.StatusBadGateway, "failed to submit answers")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	email := callerEmail(r.Context())
	if email == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	results, err := h.service.ListResults(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "result history unavailable")
		return
	}
	if results == nil {
		results = []domain.ArchivedResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
