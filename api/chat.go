package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nubra-ai/nubra-chat/internal/chat"
	"github.com/nubra-ai/nubra-chat/internal/log"
	"github.com/nubra-ai/nubra-chat/internal/security"
)

// Supported request actions.
const (
	ActionChat          = "chat"
	ActionCreateSession = "create_session"
	ActionLoadSession   = "load_session"
	ActionResetSession  = "reset_session"
	ActionDeleteSession = "delete_session"
)

var supportedActions = []string{
	ActionChat, ActionCreateSession, ActionLoadSession, ActionResetSession, ActionDeleteSession,
}

// ChatHandler exposes the orchestrator as a single action-dispatch endpoint.
//
// POST /api/chat accepts {action, session_id?, prompt?, rag_context?} and
// routes to the matching orchestrator operation.
type ChatHandler struct {
	orch           *chat.Orchestrator
	validator      *security.PromptValidator
	maxPromptChars int
	logger         log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(orch *chat.Orchestrator, validator *security.PromptValidator, maxPromptChars int, logger log.Logger) *ChatHandler {
	return &ChatHandler{
		orch:           orch,
		validator:      validator,
		maxPromptChars: maxPromptChars,
		logger:         logger,
	}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleAction)
}

// actionRequest is the request body for POST /api/chat.
type actionRequest struct {
	Action     string `json:"action"`
	SessionID  string `json:"session_id"`
	Prompt     string `json:"prompt"`
	RAGContext any    `json:"rag_context"`
}

func (h *ChatHandler) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeValidationError,
				fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, CodeValidationError, "request body must be valid JSON")
		return
	}

	switch req.Action {
	case ActionChat:
		h.chat(w, r, req)
	case ActionCreateSession:
		h.createSession(w, r, req)
	case ActionLoadSession:
		h.loadSession(w, r, req)
	case ActionResetSession:
		h.resetSession(w, r, req)
	case ActionDeleteSession:
		h.deleteSession(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, CodeValidationError,
			fmt.Sprintf("unsupported action %q (supported: %s)",
				req.Action, strings.Join(supportedActions, ", ")))
	}
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationError, "prompt is required")
		return
	}
	if utf8.RuneCountInString(req.Prompt) > h.maxPromptChars {
		writeError(w, http.StatusBadRequest, CodeValidationError,
			fmt.Sprintf("prompt exceeds %d characters", h.maxPromptChars))
		return
	}
	prompt := strings.TrimSpace(req.Prompt)

	if result := h.validator.Validate(prompt); !result.Safe {
		h.logger.Warn("unsafe input rejected",
			"session_id", req.SessionID,
			"patterns", result.Patterns,
		)
		writeError(w, http.StatusBadRequest, CodeUnsafeInput,
			"prompt contains disallowed instruction patterns")
		return
	}

	res, err := h.orch.ProcessMessage(r.Context(), req.SessionID, prompt, req.RAGContext)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ChatHandler) createSession(w http.ResponseWriter, r *http.Request, req actionRequest) {
	sess, err := h.orch.CreateSession(r.Context(), req.SessionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		SessionID string    `json:"session_id"`
		CreatedAt time.Time `json:"created_at"`
	}{SessionID: sess.ID, CreatedAt: sess.CreatedAt})
}

func (h *ChatHandler) loadSession(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationError, "session_id is required")
		return
	}
	sess, err := h.orch.LoadSession(r.Context(), req.SessionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *ChatHandler) resetSession(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationError, "session_id is required")
		return
	}
	sess, err := h.orch.ResetSession(r.Context(), req.SessionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		SessionID  string `json:"session_id"`
		Reset      bool   `json:"reset"`
		TotalTurns int    `json:"total_turns"`
	}{SessionID: sess.ID, Reset: true, TotalTurns: sess.TotalTurns})
}

func (h *ChatHandler) deleteSession(w http.ResponseWriter, r *http.Request, req actionRequest) {
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationError, "session_id is required")
		return
	}
	if err := h.orch.DeleteSession(r.Context(), req.SessionID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		SessionID string `json:"session_id"`
		Deleted   bool   `json:"deleted"`
	}{SessionID: req.SessionID, Deleted: true})
}

func (h *ChatHandler) writeDomainError(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err, "error_code", code)
	}
	writeError(w, status, code, message)
}
