package chat_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubra-ai/nubra-chat/internal/chat"
	"github.com/nubra-ai/nubra-chat/internal/completion"
	"github.com/nubra-ai/nubra-chat/internal/log"
	"github.com/nubra-ai/nubra-chat/internal/memory"
	"github.com/nubra-ai/nubra-chat/internal/session"
	"github.com/nubra-ai/nubra-chat/internal/summary"
	"github.com/nubra-ai/nubra-chat/internal/testutil"
)

const validSummaryJSON = `{
  "user_goal": "ship the payments feature",
  "key_decisions": ["use postgres for persistence"],
  "constraints": ["no schema migrations during freeze"],
  "preferences": ["concise answers"],
  "unresolved_questions": []
}`

type fixture struct {
	orch     *chat.Orchestrator
	sessions *session.Manager
	mock     *testutil.MockCompletion
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mock := testutil.NewMockCompletion("mock answer")

	sessions, err := session.NewManager(session.NewMemoryStore(), log.NewNop())
	require.NoError(t, err)

	layer, err := completion.NewLayer(mock, log.NewNop())
	require.NoError(t, err)

	orch, err := chat.New(chat.Config{
		Sessions:    sessions,
		Memory:      memory.New(0, 0),
		Completions: layer,
		Logger:      log.NewNop(),
	})
	require.NoError(t, err)

	return &fixture{orch: orch, sessions: sessions, mock: mock}
}

// run drives n chat turns against the given session id.
func (f *fixture) run(t *testing.T, id string, n int) *chat.Result {
	t.Helper()
	var last *chat.Result
	for i := 0; i < n; i++ {
		res, err := f.orch.ProcessMessage(context.Background(), id, fmt.Sprintf("question %d", i+1), nil)
		require.NoError(t, err)
		last = res
	}
	return last
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := chat.New(chat.Config{})
	assert.Error(t, err)
}

func TestProcessMessageNewSession(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.ProcessMessage(context.Background(), "", "hello", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "mock answer", res.Answer)
	assert.Equal(t, 1, res.Memory.TotalTurns)
	assert.False(t, res.Memory.HasSummary)
	assert.Equal(t, chat.SummaryNotRequired, res.Memory.SummaryStatus)

	sess, err := f.orch.LoadSession(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TotalTurns)
	require.Len(t, sess.AllTurns, 1)
	assert.Equal(t, "hello", sess.AllTurns[0].User)
	assert.Equal(t, "mock answer", sess.AllTurns[0].Assistant)
}

func TestProcessMessageAccumulatesTurns(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "s1", 3)
	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, 3, res.Memory.TotalTurns)

	// Before the trigger turn the prompt carries the full history.
	calls := f.mock.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[2], "=== FULL RAW CONVERSATION HISTORY ===")
	assert.Contains(t, calls[2], "question 1")
	assert.Contains(t, calls[2], "=== CURRENT USER QUERY ===\nquestion 3")
}

func TestProcessMessageInvalidSessionID(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.ProcessMessage(context.Background(), "bad id!", "hello", nil)
	assert.ErrorIs(t, err, session.ErrInvalidID)
	assert.Equal(t, 0, f.mock.CallCount())
}

func TestProcessMessageCompletionFailure(t *testing.T) {
	f := newFixture(t)
	f.mock.QueueError(completion.ErrCompletionFailed)

	_, err := f.orch.ProcessMessage(context.Background(), "s1", "hello", nil)
	assert.ErrorIs(t, err, completion.ErrCompletionFailed)

	// The empty session exists but the failed turn was not recorded.
	sess, err := f.orch.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.TotalTurns)
}

func TestSummarizationAtTriggerTurn(t *testing.T) {
	f := newFixture(t)
	f.mock.AddResponse("summarizing a conversation", validSummaryJSON)

	res := f.run(t, "s1", memory.DefaultSummaryTriggerTurn)

	assert.Equal(t, chat.SummaryGenerated, res.Memory.SummaryStatus)
	assert.True(t, res.Memory.HasSummary)
	assert.Empty(t, res.Memory.SummaryError)

	sess, err := f.orch.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, sess.Summary)
	assert.Equal(t, "ship the payments feature", sess.Summary.UserGoal)
	assert.NotNil(t, sess.SummaryGeneratedAt)
	assert.Len(t, sess.AllTurns, memory.DefaultSummaryTriggerTurn)
	assert.Empty(t, sess.RawTurns, "prunable history is cleared once the summary lands")

	// One summarization request on top of the chat completions, carrying the
	// full history.
	calls := f.mock.Calls()
	require.Len(t, calls, memory.DefaultSummaryTriggerTurn+1)
	summaryCall := calls[len(calls)-1]
	assert.Contains(t, summaryCall, "Return ONLY valid JSON")
	assert.Contains(t, summaryCall, "question 1")
	assert.Contains(t, summaryCall, fmt.Sprintf("question %d", memory.DefaultSummaryTriggerTurn))
}

func TestRecentWindowAfterSummary(t *testing.T) {
	f := newFixture(t)
	f.mock.AddResponse("summarizing a conversation", validSummaryJSON)

	total := memory.DefaultSummaryTriggerTurn + 8
	res := f.run(t, "s1", total)

	assert.Equal(t, chat.SummaryAvailable, res.Memory.SummaryStatus)
	assert.Equal(t, total, res.Memory.TotalTurns)

	sess, err := f.orch.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, sess.AllTurns, total)
	assert.Len(t, sess.RawTurns, 8)

	// The last chat prompt uses the bounded window plus the summary, not the
	// full history.
	calls := f.mock.Calls()
	lastChat := calls[len(calls)-1]
	assert.Contains(t, lastChat, "=== RECENT RAW TURN WINDOW ===")
	assert.Contains(t, lastChat, "ship the payments feature")
	assert.NotContains(t, lastChat, "question 1\n")
	assert.Contains(t, lastChat, fmt.Sprintf("question %d", total-1))
}

func TestSummarizationFailureDoesNotFailTurn(t *testing.T) {
	f := newFixture(t)
	f.mock.AddResponse("summarizing a conversation", "this is not json")

	res := f.run(t, "s1", memory.DefaultSummaryTriggerTurn)

	assert.Equal(t, chat.SummaryFailed, res.Memory.SummaryStatus)
	assert.False(t, res.Memory.HasSummary)
	assert.Equal(t, summary.CodeInvalidJSON, res.Memory.SummaryError)
	assert.Equal(t, "mock answer", res.Answer)

	// Both summary attempts happened, the second with the retry instruction.
	calls := f.mock.Calls()
	require.Len(t, calls, memory.DefaultSummaryTriggerTurn+2)
	assert.NotContains(t, calls[len(calls)-2], "Retry requirement")
	assert.Contains(t, calls[len(calls)-1], "Retry requirement")

	sess, err := f.orch.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, sess.Summary)
	assert.True(t, sess.SummaryAttempted)
	assert.NotEmpty(t, sess.RawTurns, "raw history survives a failed summary")
}

func TestSummarizationNeverRetriedAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.mock.AddResponse("summarizing a conversation", "still not json")

	res := f.run(t, "s1", memory.DefaultSummaryTriggerTurn)
	assert.Equal(t, chat.SummaryFailed, res.Memory.SummaryStatus)
	callsAfterTrigger := f.mock.CallCount()

	// The failed status is reported only on the attempt turn. Later turns
	// report not_required again; the failure stays visible in summary_error.
	res = f.run(t, "s1", 3)
	assert.Equal(t, chat.SummaryNotRequired, res.Memory.SummaryStatus)
	assert.Equal(t, summary.CodeInvalidJSON, res.Memory.SummaryError)

	// Three more chat completions and nothing else.
	assert.Equal(t, callsAfterTrigger+3, f.mock.CallCount())
}

func TestSummaryTransportFailureUsesGenerationCode(t *testing.T) {
	f := newFixture(t)

	f.run(t, "s1", memory.DefaultSummaryTriggerTurn-1)

	// Chat completion for turn 15 succeeds, then both summary attempts fail
	// at the transport level.
	f.mock.Queue("mock answer")
	f.mock.QueueError(completion.ErrCompletionFailed)
	f.mock.QueueError(completion.ErrCompletionFailed)

	res, err := f.orch.ProcessMessage(context.Background(), "s1", "last question", nil)
	require.NoError(t, err)
	assert.Equal(t, chat.SummaryFailed, res.Memory.SummaryStatus)
	assert.Equal(t, completion.CodeGenerationFailed, res.Memory.SummaryError)
}

func TestProcessMessageIncludesRAGContext(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.ProcessMessage(context.Background(), "s1", "hello", []string{"doc one", "doc two"})
	require.NoError(t, err)

	calls := f.mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "=== RAG CONTEXT ===\ndoc one\ndoc two")
}

func TestCustomBaseSystemPrompt(t *testing.T) {
	f := newFixture(t)

	sessions, err := session.NewManager(session.NewMemoryStore(), log.NewNop())
	require.NoError(t, err)
	layer, err := completion.NewLayer(f.mock, log.NewNop())
	require.NoError(t, err)

	orch, err := chat.New(chat.Config{
		Sessions:         sessions,
		Memory:           memory.New(0, 0),
		Completions:      layer,
		BaseSystemPrompt: "You are a terse code reviewer.",
		Logger:           log.NewNop(),
	})
	require.NoError(t, err)

	_, err = orch.ProcessMessage(context.Background(), "", "hello", nil)
	require.NoError(t, err)

	calls := f.mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "=== BASE SYSTEM PROMPT ===\nYou are a terse code reviewer.")
}

func TestConcurrentTurnsOnOneSession(t *testing.T) {
	f := newFixture(t)

	const workers = 8
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			_, err := f.orch.ProcessMessage(context.Background(), "s1", fmt.Sprintf("concurrent %d", n), nil)
			done <- err
		}(i)
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-done)
	}

	sess, err := f.orch.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, workers, sess.TotalTurns, "no turn may be lost to a concurrent writer")
	for i, turn := range sess.AllTurns {
		assert.Equal(t, i+1, turn.TurnIndex)
	}
}

func TestSessionLifecyclePassThroughs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.orch.CreateSession(ctx, "lifecycle")
	require.NoError(t, err)
	assert.Equal(t, "lifecycle", created.ID)

	_, err = f.orch.CreateSession(ctx, "lifecycle")
	assert.ErrorIs(t, err, session.ErrAlreadyExists)

	f.run(t, "lifecycle", 2)

	reset, err := f.orch.ResetSession(ctx, "lifecycle")
	require.NoError(t, err)
	assert.Equal(t, 0, reset.TotalTurns)
	assert.Equal(t, created.CreatedAt, reset.CreatedAt)

	require.NoError(t, f.orch.DeleteSession(ctx, "lifecycle"))
	assert.ErrorIs(t, f.orch.DeleteSession(ctx, "lifecycle"), session.ErrNotFound)

	_, err = f.orch.LoadSession(ctx, "lifecycle")
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = f.orch.ResetSession(ctx, "lifecycle")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLoadSessionValidatesID(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.LoadSession(context.Background(), strings.Repeat("a", 200))
	assert.ErrorIs(t, err, session.ErrInvalidID)
}
