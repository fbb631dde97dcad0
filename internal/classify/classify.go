package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulseboard.app/signals/common/llm"
)

// Classification is the verdict on one normalized message.
type Classification struct {
	IsTask     bool
	TaskTitle  string
	Confidence float64 // 0..1
	Reason     string
}

// MessageContext tells the classifier how the message reached the user.
type MessageContext struct {
	IsMention       bool
	IsDirectMessage bool
	Sender          string
}

// Classifier decides whether a message is a real request directed at
// the user. Implementations must never return an error for a single
// bad message: classification failure collapses to the conservative
// default so one message cannot abort a sync run.
type Classifier interface {
	Classify(ctx context.Context, message string, msgCtx MessageContext) Classification
}

// failedClassification is the conservative default used whenever the
// backing call errors.
func failedClassification() Classification {
	return Classification{
		IsTask:     false,
		TaskTitle:  "",
		Confidence: 0,
		Reason:     "classification failed",
	}
}

type llmResponse struct {
	IsTask     bool   `json:"is_task" jsonschema_description:"Whether the message is a real work task requiring action from the recipient"`
	TaskTitle  string `json:"task_title" jsonschema_description:"Clean task title (15-80 chars, no formatting, just the action needed)"`
	Confidence int    `json:"confidence" jsonschema_description:"Confidence 0-100"`
	Reason     string `json:"reason" jsonschema_description:"Brief explanation"`
}

var llmResponseSchema = llm.GenerateSchema[llmResponse]()

// LLMClassifier backs the classification contract with a structured-
// output chat completion.
type LLMClassifier struct {
	llm llm.Client
}

func NewLLMClassifier(client llm.Client) *LLMClassifier {
	return &LLMClassifier{llm: client}
}

const (
	classifyAttempts   = 2
	classifyRetryDelay = 500 * time.Millisecond
)

const classifySystemPrompt = `You are a task classifier for workplace chat messages.

Decide whether a message is a REAL work task requiring action from the recipient.

- ACCEPT: clear requests for help, action, approval, review, or information directed AT the recipient
- REJECT: greetings, casual conversation, statements without requests, announcements, FYI messages`

func (c *LLMClassifier) Classify(ctx context.Context, message string, msgCtx MessageContext) Classification {
	channel := "Mention"
	if msgCtx.IsDirectMessage {
		channel = "Direct message"
	}
	prompt := fmt.Sprintf("Message: %q\nContext: %s", message, channel)
	if msgCtx.Sender != "" {
		prompt += fmt.Sprintf(" from %s", msgCtx.Sender)
	}

	// One retry on transient failures. Classification runs per message,
	// so anything longer would stall the whole sync on a flaky backend.
	var response llmResponse
	var err error
	start := time.Now()
	for attempt := 0; attempt < classifyAttempts; attempt++ {
		_, err = c.llm.Chat(ctx, llm.Request{
			SystemPrompt: classifySystemPrompt,
			UserPrompt:   prompt,
			SchemaName:   "task_classification",
			Schema:       llmResponseSchema,
			MaxTokens:    200,
			Temperature:  llm.Temp(0),
		}, &response)
		if err == nil || !llm.IsRetryable(ctx, err) {
			break
		}
		if attempt < classifyAttempts-1 {
			slog.WarnContext(ctx, "message classification retry",
				"attempt", attempt+1,
				"error", err)
			time.Sleep(classifyRetryDelay)
		}
	}
	if err != nil {
		slog.WarnContext(ctx, "message classification failed; using conservative default",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return failedClassification()
	}

	confidence := float64(response.Confidence) / 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Classification{
		IsTask:     response.IsTask,
		TaskTitle:  response.TaskTitle,
		Confidence: confidence,
		Reason:     response.Reason,
	}
}
