// Package rest exposes the therapy engine over a JSON HTTP API.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/sakshi-health/sakshi/internal/errors"
	"github.com/sakshi-health/sakshi/internal/therapy/conversation"
	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/manager"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
	"github.com/sakshi-health/sakshi/internal/therapy/storage"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server handles the engine's HTTP API.
type Server struct {
	manager       *manager.Manager
	conversations *conversation.Service
	users         storage.UserStore
	logs          storage.LogStore
	now           func() time.Time
}

// Config wires the server's dependencies.
type Config struct {
	Manager       *manager.Manager
	Conversations *conversation.Service
	Users         storage.UserStore
	Logs          storage.LogStore

	// Now defaults to time.Now.
	Now func() time.Time
}

// New builds an API server.
func New(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if cfg.Conversations == nil {
		return nil, fmt.Errorf("conversation service is required")
	}
	if cfg.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if cfg.Logs == nil {
		return nil, fmt.Errorf("log store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Server{
		manager:       cfg.Manager,
		conversations: cfg.Conversations,
		users:         cfg.Users,
		logs:          cfg.Logs,
		now:           cfg.Now,
	}, nil
}

// Handler returns the route table for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/users", s.handleRegisterUser)
	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /v1/sessions/{id}/log", s.handleSessionLog)
	mux.HandleFunc("POST /v1/sessions/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /v1/sessions/{id}/resume", s.handleResume)
	mux.HandleFunc("POST /v1/sessions/{id}/extend", s.handleExtend)
	mux.HandleFunc("POST /v1/sessions/{id}/terminate", s.handleTerminate)
	mux.HandleFunc("POST /v1/sessions/{id}/follow-up", s.handleFollowUp)
	mux.HandleFunc("POST /v1/sessions/{id}/prompt", s.handlePrompt)
	return mux
}

type userRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}
	user := domain.User{ID: strings.TrimSpace(req.ID), DisplayName: req.DisplayName, CreatedAt: s.now().UTC()}
	if err := s.users.PutUser(r.Context(), user); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeStorageUnavailable, "persist user", err))
		return
	}
	writeJSON(w, http.StatusCreated, userView{ID: user.ID, DisplayName: user.DisplayName})
}

type sessionRequest struct {
	OwnerID            string            `json:"owner_id"`
	DurationMinutes    int               `json:"duration_minutes"`
	TherapyModel       string            `json:"therapy_model"`
	SessionForm        string            `json:"session_form"`
	TreatmentGoals     string            `json:"treatment_goals"`
	ClientExpectations string            `json:"client_expectations"`
	SessionNotes       string            `json:"session_notes"`
	TerminationPlan    string            `json:"termination_plan"`
	ReviewOfProgress   string            `json:"review_of_progress"`
	ClosingNote        string            `json:"closing_note"`
	Metadata           map[string]string `json:"metadata"`
}

func (r sessionRequest) toInput() domain.CreateInput {
	return domain.CreateInput{
		OwnerID:            r.OwnerID,
		DurationMinutes:    r.DurationMinutes,
		TherapyModel:       phase.TherapyModel(r.TherapyModel),
		SessionForm:        r.SessionForm,
		TreatmentGoals:     r.TreatmentGoals,
		ClientExpectations: r.ClientExpectations,
		SessionNotes:       r.SessionNotes,
		TerminationPlan:    r.TerminationPlan,
		ReviewOfProgress:   r.ReviewOfProgress,
		ClosingNote:        r.ClosingNote,
		Metadata:           r.Metadata,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := s.manager.CreateSession(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionToView(session))
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := s.manager.CreateFollowUpSession(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionToView(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToView(session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		http.Error(w, "owner_id query parameter is required", http.StatusBadRequest)
		return
	}
	sessions, err := s.manager.ListSessions(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, sessionToView(session))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (s *Server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.logs.ListPhaseLogs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load conversation record", err))
		return
	}
	views := make([]logView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, logView{
			Seq:       entry.Seq,
			Phase:     string(entry.Phase),
			UserInput: entry.UserInput,
			Response:  entry.Response,
			Situation: entry.Situation,
			Decision:  string(entry.Decision),
			Timestamp: entry.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"log": views})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.manager.PauseSession)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.manager.ResumeSession)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.manager.TerminateSession)
}

type extendRequest struct {
	AdditionalMinutes int `json:"additional_minutes"`
}

func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := s.manager.ExtendSession(r.Context(), r.PathValue("id"), req.AdditionalMinutes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToView(session))
}

type promptRequest struct {
	UserID string `json:"user_id"`
	Input  string `json:"input"`
}

type promptResponse struct {
	Response  string      `json:"response"`
	Decision  string      `json:"decision"`
	Situation string      `json:"user_situation,omitempty"`
	Phase     string      `json:"phase"`
	Session   sessionView `json:"session"`
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.conversations.ProcessTurn(r.Context(), req.UserID, r.PathValue("id"), req.Input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{
		Response:  result.Response,
		Decision:  string(result.Decision),
		Situation: result.Situation,
		Phase:     string(result.Phase),
		Session:   sessionToView(result.Session),
	})
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, sessionID string) (domain.Session, error)) {
	session, err := apply(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToView(session))
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeError maps domain error codes onto HTTP statuses through the same
// taxonomy the gRPC surface uses. The error is funneled through HandleError
// so the body carries the machine-readable code and the localized user-facing
// message, never the internal one. The locale comes from Accept-Language.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	httpStatus := http.StatusInternalServerError
	switch code.GRPCCode() {
	case codes.InvalidArgument:
		httpStatus = http.StatusBadRequest
	case codes.FailedPrecondition:
		httpStatus = http.StatusConflict
	case codes.NotFound:
		httpStatus = http.StatusNotFound
	case codes.Unavailable:
		httpStatus = http.StatusServiceUnavailable
	}

	st := status.Convert(apperrors.HandleError(err, r.Header.Get("Accept-Language")))
	message := st.Message()
	for _, detail := range st.Details() {
		if localized, ok := detail.(*errdetails.LocalizedMessage); ok {
			message = localized.Message
		}
	}
	writeJSON(w, httpStatus, map[string]string{
		"code":    string(code),
		"message": message,
	})
}
