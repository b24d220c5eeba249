// Package chat coordinates the full request lifecycle for a conversation
// turn. The orchestrator is the single entry point the transport layer calls:
// it loads or creates the session, assembles the prompt from conversation
// memory, requests a completion, records the turn, drives summarization when
// the session reaches the trigger turn, and persists the result.
//
// Summarization is best effort. A failed summary marks the session so it is
// never re-attempted, but it never fails the chat turn that triggered it.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/nubra-ai/nubra-chat/internal/completion"
	"github.com/nubra-ai/nubra-chat/internal/log"
	"github.com/nubra-ai/nubra-chat/internal/memory"
	"github.com/nubra-ai/nubra-chat/internal/prompt"
	"github.com/nubra-ai/nubra-chat/internal/session"
)

// Summary status values reported in chat responses. A session reports
// not_required until the trigger turn, then generated or failed on the turn
// that attempts summarization. Afterwards it reports available when a summary
// exists, and not_required again when the attempt failed; a failed attempt
// stays visible through summary_error, not through the status.
const (
	SummaryNotRequired = "not_required"
	SummaryGenerated   = "generated"
	SummaryFailed      = "failed"
	SummaryAvailable   = "available"
)

// Config carries the orchestrator's collaborators. All fields except Logger
// are required.
type Config struct {
	Sessions    *session.Manager
	Memory      *memory.Manager
	Completions *completion.Layer

	// BaseSystemPrompt overrides the built-in system prompt when non-empty.
	BaseSystemPrompt string

	Logger log.Logger
}

func (c Config) validate() error {
	if c.Sessions == nil {
		return errors.New("chat: session manager is required")
	}
	if c.Memory == nil {
		return errors.New("chat: memory manager is required")
	}
	if c.Completions == nil {
		return errors.New("chat: completion layer is required")
	}
	return nil
}

// Orchestrator wires session persistence, conversation memory, prompt
// assembly, and the completion layer into a single ProcessMessage operation.
type Orchestrator struct {
	sessions    *session.Manager
	memory      *memory.Manager
	completions *completion.Layer
	basePrompt  string
	locks       *keyedMutex
	logger      log.Logger
}

// New builds an Orchestrator from explicit collaborators.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	base := cfg.BaseSystemPrompt
	if base == "" {
		base = prompt.DefaultSystemPrompt
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Orchestrator{
		sessions:    cfg.Sessions,
		memory:      cfg.Memory,
		completions: cfg.Completions,
		basePrompt:  base,
		locks:       newKeyedMutex(),
		logger:      logger,
	}, nil
}

// MemoryState is the memory block of a chat result.
type MemoryState struct {
	TotalTurns    int    `json:"total_turns"`
	HasSummary    bool   `json:"has_summary"`
	SummaryStatus string `json:"summary_status"`
	SummaryError  string `json:"summary_error,omitempty"`
}

// Result is the outcome of a successful chat turn.
type Result struct {
	SessionID string      `json:"session_id"`
	Answer    string      `json:"answer"`
	Memory    MemoryState `json:"memory"`
}

// ProcessMessage runs one conversation turn: resolve the session, assemble
// the prompt from memory state, obtain a completion, record the turn,
// summarize if the session just reached the trigger turn, and save.
//
// sessionID may be empty, in which case a new session with a generated id is
// created. ragContext is optional retrieval material included verbatim in the
// prompt; pass nil when there is none.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, userPrompt string, ragContext any) (*Result, error) {
	// Serialize concurrent turns against the same session. A generated id is
	// unknown to any other request until this one returns, so the lock is
	// only needed when the caller named the session.
	if sessionID != "" {
		if err := session.ValidateID(sessionID); err != nil {
			return nil, err
		}
		unlock := o.locks.Lock(sessionID)
		defer unlock()
	}

	sess, err := o.sessions.LoadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	memCtx := o.memory.ContextForChat(sess)

	chatPrompt := prompt.Chat(prompt.ChatInput{
		BaseSystemPrompt: o.basePrompt,
		RAGContext:       ragContext,
		Summary:          sess.Summary,
		Turns:            memCtx.Turns,
		FullHistory:      memCtx.FullHistory,
		UserQuery:        userPrompt,
	})

	answer, err := o.completions.RequestCompletion(ctx, chatPrompt)
	if err != nil {
		return nil, fmt.Errorf("chat completion for session %s: %w", sess.ID, err)
	}

	o.memory.RecordTurn(sess, userPrompt, answer)

	summaryStatus := o.summarizeIfDue(ctx, sess)

	saved, err := o.sessions.Save(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}

	return &Result{
		SessionID: saved.ID,
		Answer:    answer,
		Memory: MemoryState{
			TotalTurns:    saved.TotalTurns,
			HasSummary:    saved.Summary != nil,
			SummaryStatus: summaryStatus,
			SummaryError:  saved.SummaryError,
		},
	}, nil
}

// summarizeIfDue runs summarization when the session just reached the
// trigger turn and reports the resulting status. Failures are recorded on
// the session and never propagate to the chat turn.
func (o *Orchestrator) summarizeIfDue(ctx context.Context, sess *session.Session) string {
	if !o.memory.ShouldSummarize(sess) {
		return o.settledStatus(sess)
	}

	turns := o.memory.ContextForSummarization(sess)
	sum, err := o.completions.GenerateStructuredSummary(ctx, turns)
	if err != nil {
		code := completion.SummaryErrorCode(err)
		o.memory.MarkSummaryFailure(sess, code)
		o.logger.Warn("summary generation failed",
			"session_id", sess.ID,
			"turn", sess.TotalTurns,
			"error_code", code,
		)
		return SummaryFailed
	}

	o.memory.ApplySummary(sess, sum)
	o.logger.Info("summary generated",
		"session_id", sess.ID,
		"turn", sess.TotalTurns,
	)
	return SummaryGenerated
}

// settledStatus reports the summary status for turns where no summarization
// attempt happens. A failed attempt reports "failed" only on the turn it
// happened; later turns fall back to "not_required", with the failure still
// visible through summary_error.
func (o *Orchestrator) settledStatus(sess *session.Session) string {
	if sess.Summary != nil {
		return SummaryAvailable
	}
	return SummaryNotRequired
}

// CreateSession creates a session with the given id, or a generated id when
// empty.
func (o *Orchestrator) CreateSession(ctx context.Context, id string) (*session.Session, error) {
	return o.sessions.Create(ctx, id)
}

// LoadSession returns the session with the given id, or session.ErrNotFound.
func (o *Orchestrator) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	sess, err := o.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %q: %w", id, session.ErrNotFound)
	}
	return sess, nil
}

// ResetSession clears a session's conversation state while keeping its id
// and creation time.
func (o *Orchestrator) ResetSession(ctx context.Context, id string) (*session.Session, error) {
	if err := session.ValidateID(id); err != nil {
		return nil, err
	}
	unlock := o.locks.Lock(id)
	defer unlock()
	return o.sessions.Reset(ctx, id)
}

// DeleteSession removes a session permanently.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	if err := session.ValidateID(id); err != nil {
		return err
	}
	unlock := o.locks.Lock(id)
	defer unlock()
	return o.sessions.Delete(ctx, id)
}
