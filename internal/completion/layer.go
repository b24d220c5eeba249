package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nubra-ai/nubra-chat/internal/prompt"
	"github.com/nubra-ai/nubra-chat/internal/session"
	"github.com/nubra-ai/nubra-chat/internal/summary"
)

// CodeGenerationFailed is the summary error code used when the completion
// API itself failed, as opposed to returning unparseable output.
const CodeGenerationFailed = "SUMMARY_GENERATION_FAILED"

// summaryAttempts is the total number of structured-summary attempts:
// the initial request plus exactly one retry. Free-text completions are
// unreliable for strict JSON and a single re-prompt materially improves the
// success rate without unbounded cost.
const summaryAttempts = 2

const retryHint = "\n\nRetry requirement: return strictly valid JSON matching the exact schema with all fields."

// Layer wraps a Client with the structured-summary retry loop.
type Layer struct {
	client Client
	logger *slog.Logger
}

// NewLayer creates a completion Layer.
func NewLayer(client Client, logger *slog.Logger) (*Layer, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{client: client, logger: logger}, nil
}

// RequestCompletion sends one outbound message and returns the trimmed
// completion text. Upstream failures surface as ErrCompletionFailed without
// provider detail.
func (l *Layer) RequestCompletion(ctx context.Context, message string) (string, error) {
	text, err := l.client.Complete(ctx, message)
	if err != nil {
		if errors.Is(err, ErrCompletionFailed) {
			return "", err
		}
		l.logger.Error("completion client failed", "error", err)
		return "", ErrCompletionFailed
	}
	return strings.TrimSpace(text), nil
}

// GenerateStructuredSummary requests a structured summary of turns and
// validates the response. The two attempts are sequential; the second
// appends an instruction reiterating strict-schema compliance. After both
// fail, the last failure is returned: a *summary.Error for validation
// failures, or an error wrapping ErrCompletionFailed.
func (l *Layer) GenerateStructuredSummary(ctx context.Context, turns []session.Turn) (*session.Summary, error) {
	basePrompt := prompt.Summarization(turns)

	var lastErr error
	for attempt := 0; attempt < summaryAttempts; attempt++ {
		message := basePrompt
		if attempt > 0 {
			message += retryHint
		}

		raw, err := l.RequestCompletion(ctx, message)
		if err != nil {
			l.logger.Warn("summary completion failed", "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		sum, err := summary.ParseAndValidate(raw)
		if err == nil {
			l.logger.Debug("structured summary generated", "attempt", attempt+1)
			return sum, nil
		}

		l.logger.Warn("summary validation failed", "attempt", attempt+1, "error", err)
		lastErr = err
	}

	return nil, lastErr
}

// SummaryErrorCode maps a GenerateStructuredSummary failure to its
// machine-readable code.
func SummaryErrorCode(err error) string {
	var verr *summary.Error
	if errors.As(err, &verr) {
		return verr.Code
	}
	return CodeGenerationFailed
}
