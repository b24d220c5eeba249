package memory

import (
	"fmt"
	"testing"

	"github.com/nubra-ai/nubra-chat/internal/session"
)

func TestRecordTurn_Sequence(t *testing.T) {
	mgr := New(0, 0)
	sess := session.NewEmpty("s1")

	const n = 7
	for i := 1; i <= n; i++ {
		mgr.RecordTurn(sess, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	if sess.TotalTurns != n {
		t.Errorf("TotalTurns = %d, want %d", sess.TotalTurns, n)
	}
	if len(sess.AllTurns) != n || len(sess.RawTurns) != n {
		t.Fatalf("AllTurns/RawTurns = %d/%d, want %d/%d",
			len(sess.AllTurns), len(sess.RawTurns), n, n)
	}
	for i, turn := range sess.AllTurns {
		if turn.TurnIndex != i+1 {
			t.Errorf("AllTurns[%d].TurnIndex = %d, want %d", i, turn.TurnIndex, i+1)
		}
	}
}

func TestRecordTurn_AllowsEmptyContent(t *testing.T) {
	mgr := New(0, 0)
	sess := session.NewEmpty("s1")

	mgr.RecordTurn(sess, "", "")

	if sess.TotalTurns != 1 {
		t.Errorf("TotalTurns = %d, want 1", sess.TotalTurns)
	}
	if sess.AllTurns[0].User != "" || sess.AllTurns[0].Assistant != "" {
		t.Errorf("empty messages should be stored as empty strings: %+v", sess.AllTurns[0])
	}
}

func TestShouldSummarize_ExactTrigger(t *testing.T) {
	mgr := New(15, 5)
	sess := session.NewEmpty("s1")

	for i := 1; i <= 20; i++ {
		mgr.RecordTurn(sess, "q", "a")
		got := mgr.ShouldSummarize(sess)
		want := i == 15
		if got != want {
			t.Errorf("turn %d: ShouldSummarize = %v, want %v", i, got, want)
		}
		if got {
			// Simulate the single failed attempt at the trigger turn.
			mgr.MarkSummaryFailure(sess, "SUMMARY_INVALID_JSON")
		}
	}
}

func TestShouldSummarize_NoRetriggerAfterFailure(t *testing.T) {
	mgr := New(3, 5)
	sess := session.NewEmpty("s1")

	for i := 0; i < 3; i++ {
		mgr.RecordTurn(sess, "q", "a")
	}
	if !mgr.ShouldSummarize(sess) {
		t.Fatal("ShouldSummarize should fire at the trigger turn")
	}

	mgr.MarkSummaryFailure(sess, "SUMMARY_INVALID_JSON")

	if mgr.ShouldSummarize(sess) {
		t.Error("ShouldSummarize must not refire after a failed attempt")
	}
	if sess.SummaryError != "SUMMARY_INVALID_JSON" {
		t.Errorf("SummaryError = %q, want SUMMARY_INVALID_JSON", sess.SummaryError)
	}
	if len(sess.RawTurns) != 3 {
		t.Errorf("failure must leave RawTurns untouched, got %d", len(sess.RawTurns))
	}
}

func TestShouldSummarize_NotPastTrigger(t *testing.T) {
	mgr := New(3, 5)
	sess := session.NewEmpty("s1")

	for i := 0; i < 4; i++ {
		mgr.RecordTurn(sess, "q", "a")
	}
	// total_turns is 4 now: exact equality, not threshold-or-above.
	if mgr.ShouldSummarize(sess) {
		t.Error("ShouldSummarize fired past the trigger turn")
	}
}

func TestContextForChat_FullHistoryBeforeSummary(t *testing.T) {
	mgr := New(15, 5)
	sess := session.NewEmpty("s1")
	for i := 0; i < 9; i++ {
		mgr.RecordTurn(sess, "q", "a")
	}

	got := mgr.ContextForChat(sess)
	if !got.FullHistory {
		t.Error("FullHistory = false before any summary")
	}
	if len(got.Turns) != 9 {
		t.Errorf("context turns = %d, want full history 9", len(got.Turns))
	}
}

func TestContextForChat_WindowAfterSummary(t *testing.T) {
	mgr := New(15, 5)
	sess := session.NewEmpty("s1")
	for i := 0; i < 15; i++ {
		mgr.RecordTurn(sess, "q", "a")
	}

	mgr.ApplySummary(sess, &session.Summary{UserGoal: "g"})
	if len(sess.RawTurns) != 0 {
		t.Fatalf("ApplySummary should clear RawTurns, got %d", len(sess.RawTurns))
	}

	// Accumulate eight post-summary turns; only five should be selected.
	for i := 0; i < 8; i++ {
		mgr.RecordTurn(sess, "q", "a")
	}

	got := mgr.ContextForChat(sess)
	if got.FullHistory {
		t.Error("FullHistory = true after summary")
	}
	if len(got.Turns) != 5 {
		t.Errorf("context turns = %d, want window of 5", len(got.Turns))
	}
	if got.Turns[4].TurnIndex != sess.TotalTurns {
		t.Errorf("window should end at the latest turn, got index %d", got.Turns[4].TurnIndex)
	}
}

func TestContextForSummarization_UsesAllTurns(t *testing.T) {
	mgr := New(5, 2)
	sess := session.NewEmpty("s1")
	for i := 0; i < 5; i++ {
		mgr.RecordTurn(sess, "q", "a")
	}
	mgr.ApplySummary(sess, &session.Summary{UserGoal: "g"})
	for i := 0; i < 3; i++ {
		mgr.RecordTurn(sess, "q", "a")
	}

	turns := mgr.ContextForSummarization(sess)
	if len(turns) != 8 {
		t.Errorf("summarization context = %d turns, want all 8", len(turns))
	}
}

func TestApplySummary_SetsMetadata(t *testing.T) {
	mgr := New(5, 2)
	sess := session.NewEmpty("s1")
	mgr.RecordTurn(sess, "q", "a")
	sess.SummaryError = "SUMMARY_INVALID_JSON"

	sum := &session.Summary{UserGoal: "g", KeyDecisions: []string{"d"}}
	mgr.ApplySummary(sess, sum)

	if sess.Summary == nil || sess.Summary.UserGoal != "g" {
		t.Fatalf("Summary not applied: %+v", sess.Summary)
	}
	if !sess.SummaryAttempted {
		t.Error("SummaryAttempted should be true after apply")
	}
	if sess.SummaryError != "" {
		t.Errorf("SummaryError should be cleared, got %q", sess.SummaryError)
	}
	if sess.SummaryGeneratedAt == nil || sess.SummaryGeneratedAt.IsZero() {
		t.Error("SummaryGeneratedAt should be set")
	}

	// The session must own its own copy of the summary.
	sum.UserGoal = "mutated"
	if sess.Summary.UserGoal != "g" {
		t.Error("ApplySummary shared memory with the caller's summary")
	}
}
