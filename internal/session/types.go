package session

import "time"

// Turn is one completed user/assistant exchange.
type Turn struct {
	// TurnIndex is 1-based and equals the session's TotalTurns at creation.
	TurnIndex int       `json:"turn_index"`
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the structured long-term memory produced from the full turn
// history. All five fields are required by the summary schema.
type Summary struct {
	UserGoal            string   `json:"user_goal"`
	KeyDecisions        []string `json:"key_decisions"`
	Constraints         []string `json:"constraints"`
	Preferences         []string `json:"preferences"`
	UnresolvedQuestions []string `json:"unresolved_questions"`
}

// Session is the unit of conversational state.
//
// AllTurns is the immutable full history and the source of truth for
// summarization. RawTurns is the mutable window used for live prompt
// context; it is cleared exactly once, when a summary is first applied.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TotalTurns int    `json:"total_turns"`
	AllTurns   []Turn `json:"all_turns"`
	RawTurns   []Turn `json:"raw_turns"`

	Summary            *Summary   `json:"summary"`
	SummaryGeneratedAt *time.Time `json:"summary_generated_at,omitempty"`
	SummaryAttempted   bool       `json:"summary_attempted"`
	SummaryError       string     `json:"summary_error,omitempty"`
}

// NewEmpty returns a fresh session with zero turns and no summary.
func NewEmpty(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		UpdatedAt:  now,
		TotalTurns: 0,
		AllTurns:   []Turn{},
		RawTurns:   []Turn{},
	}
}

// Clone returns an independent deep copy of the session.
// Mutating the copy never affects the receiver.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	cp := *s
	cp.AllTurns = make([]Turn, len(s.AllTurns))
	copy(cp.AllTurns, s.AllTurns)
	cp.RawTurns = make([]Turn, len(s.RawTurns))
	copy(cp.RawTurns, s.RawTurns)

	if s.Summary != nil {
		cp.Summary = s.Summary.Clone()
	}
	if s.SummaryGeneratedAt != nil {
		t := *s.SummaryGeneratedAt
		cp.SummaryGeneratedAt = &t
	}

	return &cp
}

// Clone returns an independent deep copy of the summary.
func (sum *Summary) Clone() *Summary {
	if sum == nil {
		return nil
	}
	cp := Summary{
		UserGoal:            sum.UserGoal,
		KeyDecisions:        append([]string(nil), sum.KeyDecisions...),
		Constraints:         append([]string(nil), sum.Constraints...),
		Preferences:         append([]string(nil), sum.Preferences...),
		UnresolvedQuestions: append([]string(nil), sum.UnresolvedQuestions...),
	}
	return &cp
}
