package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/nutriscreen/rag/core/llm"
	"github.com/hrygo/nutriscreen/rag/metrics"
)

// Synthesizer drives the generative model to produce scores and advisory
// answers from retrieved evidence.
type Synthesizer struct {
	llm llm.Service
}

// NewSynthesizer creates a synthesizer over the given model service.
func NewSynthesizer(service llm.Service) *Synthesizer {
	return &Synthesizer{llm: service}
}

// Assess scores the patient description against the rubric, grounded in
// the evidence. The model output is strictly validated; a malformed or
// rubric-violating reply is an error, never silently repaired.
func (s *Synthesizer) Assess(ctx context.Context, patientInfo string, evidence []string) (*Score, error) {
	messages := []llm.Message{
		llm.SystemPrompt(scoringSystemPrompt),
		llm.UserMessage(buildScoringPrompt(patientInfo, evidence)),
	}

	reply, err := s.chatWithRetry(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}

	score, err := ExtractScore(reply)
	if err != nil {
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			metrics.RecordValidationFailure("invalid")
			slog.Warn("model score missing or mistyped a field", "error", err)
		} else {
			metrics.RecordValidationFailure("malformed")
			slog.Warn("model reply contained no usable JSON", "reply_length", len(reply))
		}
		return nil, err
	}
	if err := score.Validate(); err != nil {
		metrics.RecordValidationFailure("invalid")
		slog.Warn("model score violated rubric", "error", err)
		return nil, err
	}
	return score, nil
}

// Answer produces a free-form advisory reply grounded in the evidence.
func (s *Synthesizer) Answer(ctx context.Context, question string, evidence []string) (string, error) {
	messages := []llm.Message{
		llm.SystemPrompt(answerSystemPrompt),
		llm.UserMessage(buildAnswerPrompt(question, evidence)),
	}

	reply, err := s.chatWithRetry(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("answer request failed: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// chatWithRetry retries once on transport failure. Validation failures
// are never retried here; the caller decides how to surface them.
func (s *Synthesizer) chatWithRetry(ctx context.Context, messages []llm.Message) (string, error) {
	reply, err := s.llm.Chat(ctx, messages)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	slog.Warn("chat request failed, retrying once", "error", err)
	return s.llm.Chat(ctx, messages)
}

func buildScoringPrompt(patientInfo string, evidence []string) string {
	var b strings.Builder
	b.WriteString("参考资料：\n")
	writeEvidence(&b, evidence)
	b.WriteString("\n患者情况：\n")
	b.WriteString(patientInfo)
	b.WriteString("\n\n请根据NRS2002标准对该患者进行营养风险评分，并按要求的JSON格式输出。")
	return b.String()
}

func buildAnswerPrompt(question string, evidence []string) string {
	var b strings.Builder
	b.WriteString("参考资料：\n")
	writeEvidence(&b, evidence)
	b.WriteString("\n问题：")
	b.WriteString(question)
	return b.String()
}

func writeEvidence(b *strings.Builder, evidence []string) {
	for i, e := range evidence {
		fmt.Fprintf(b, "[%d] %s\n", i+1, e)
	}
}
