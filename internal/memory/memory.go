// Package memory implements the conversation-memory policy: turn recording,
// context-window selection, and the one-shot summarization trigger.
//
// The Manager mutates sessions in place and performs no I/O; persistence is
// the caller's concern.
package memory

import (
	"time"

	"github.com/nubra-ai/nubra-chat/internal/session"
)

const (
	// DefaultSummaryTriggerTurn is the turn count at which summarization is
	// attempted, exactly once per session lifetime.
	DefaultSummaryTriggerTurn = 15

	// DefaultRecentWindow is the number of trailing raw turns included in
	// prompts once a summary exists.
	DefaultRecentWindow = 5
)

// Context is the turn selection for one outbound chat prompt.
//
// FullHistory is true when no summary exists yet and Turns carries the
// entire raw history; false when Turns is the bounded recent window.
type Context struct {
	Turns       []session.Turn
	FullHistory bool
}

// Manager owns the memory policy for sessions.
// The zero value is not useful; use New.
type Manager struct {
	triggerTurn  int
	recentWindow int
}

// New creates a Manager. Non-positive arguments fall back to the defaults.
func New(triggerTurn, recentWindow int) *Manager {
	if triggerTurn <= 0 {
		triggerTurn = DefaultSummaryTriggerTurn
	}
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	return &Manager{triggerTurn: triggerTurn, recentWindow: recentWindow}
}

// RecordTurn appends a completed user/assistant exchange to both the audit
// log and the live context window, and advances the turn counter.
func (m *Manager) RecordTurn(sess *session.Session, userPrompt, assistantReply string) {
	now := time.Now().UTC()
	turn := session.Turn{
		TurnIndex: sess.TotalTurns + 1,
		User:      userPrompt,
		Assistant: assistantReply,
		CreatedAt: now,
	}

	sess.AllTurns = append(sess.AllTurns, turn)
	sess.RawTurns = append(sess.RawTurns, turn)
	sess.TotalTurns = turn.TurnIndex
	sess.UpdatedAt = now
}

// ShouldSummarize reports whether summarization should be attempted now.
// True only at exact equality with the trigger turn, when no summary exists
// and no attempt has been made, so the attempt happens at most once per
// session lifetime, even if it fails.
func (m *Manager) ShouldSummarize(sess *session.Session) bool {
	return sess.TotalTurns == m.triggerTurn &&
		sess.Summary == nil &&
		!sess.SummaryAttempted
}

// ContextForChat selects the turns for the next chat prompt: the full raw
// history before any summary exists, or only the recent window once long-term
// memory is in place.
func (m *Manager) ContextForChat(sess *session.Session) Context {
	if sess.Summary == nil {
		return Context{
			Turns:       append([]session.Turn(nil), sess.RawTurns...),
			FullHistory: true,
		}
	}

	turns := sess.RawTurns
	if len(turns) > m.recentWindow {
		turns = turns[len(turns)-m.recentWindow:]
	}
	return Context{
		Turns:       append([]session.Turn(nil), turns...),
		FullHistory: false,
	}
}

// ContextForSummarization returns the complete turn history. The summary
// must reflect the entire conversation, never the pruned live window.
func (m *Manager) ContextForSummarization(sess *session.Session) []session.Turn {
	return append([]session.Turn(nil), sess.AllTurns...)
}

// ApplySummary installs a successful summary and clears the live context
// window; the summary now carries that information and future prompts use
// only the post-summary recent window.
func (m *Manager) ApplySummary(sess *session.Session, sum *session.Summary) {
	now := time.Now().UTC()
	sess.Summary = sum.Clone()
	sess.SummaryGeneratedAt = &now
	sess.SummaryAttempted = true
	sess.SummaryError = ""
	sess.RawTurns = []session.Turn{}
	sess.UpdatedAt = now
}

// MarkSummaryFailure records a failed summarization attempt. RawTurns is
// left untouched so recent context is not lost; failure is never fatal to
// the conversation.
func (m *Manager) MarkSummaryFailure(sess *session.Session, errorCode string) {
	if errorCode == "" {
		errorCode = "SUMMARY_GENERATION_FAILED"
	}
	sess.SummaryAttempted = true
	sess.SummaryError = errorCode
	sess.UpdatedAt = time.Now().UTC()
}
