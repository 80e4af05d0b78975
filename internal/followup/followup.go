// Package followup decides whether a behavioral topic deserves another probe
// and generates the follow-up question itself.
//
// Both operations first record the exchange they were handed in session
// memory, so either can be called in any order and each mutates memory
// exactly once.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxhire/voxhire/internal/memory"
	"github.com/voxhire/voxhire/pkg/provider/llm"
)

// FallbackQuestion is spoken when the model fails to produce a follow-up.
const FallbackQuestion = "Can you elaborate further on that?"

// Sampling parameters per operation. Decisions run cold, question generation
// gets room for phrasing variety.
const (
	decisionTemperature = 0.2
	questionTemperature = 0.7
	questionMaxTokens   = 250
)

// questionSystemPrompt primes the model as an experienced behavioral interviewer.
const questionSystemPrompt = `You are a senior interviewer with over 10 years of experience in evaluating candidates for behavioral interviews.
You are conducting a round focused on leadership principles. Your role is to assess candidates by asking thoughtful, context-aware follow-up questions that uncover depth, impact, decision-making, and ownership.
Always maintain a professional tone. Avoid vague or generic questions. Go beyond surface-level answers by probing into motivations, tradeoffs, measurable outcomes, and team dynamics.
You are not here to answer questions — only to guide the candidate deeper through precise, relevant questioning.`

// decisionSystemPrompt primes the model to balance probing depth against
// topic coverage under a fixed time budget.
const decisionSystemPrompt = `You are a senior behavioral interviewer with over 10 years of experience in interviewing for leadership principles.
Your goal is to collect sufficient behavioral signal on distinct principles within a strict time-limited interview.

Each topic block typically consists of 1 main question and a few follow-up questions depending on answer quality and time remaining. You prioritize depth of insight, especially when answers are vague, lack structure, or don't show strong leadership traits.

However, your top priority is to ensure the minimum number of topics is covered in the allotted time. If you're behind schedule, you may reduce follow-ups and move on, even if the current topic isn't fully exhausted.

You must decide whether to ask a follow-up question based on:
- Time remaining in the interview
- Number of topics covered so far
- Quality and depth of the candidate's previous responses (especially follow-ups)
- Whether more probing is likely to produce stronger leadership signal
- Whether it's time to switch to a new topic to maintain minimum coverage

Respond with 'true' if a follow-up should be asked, or 'false' if it's better to move on to the next topic.`

// Exchange identifies the last question/answer pair of a topic.
type Exchange struct {
	SessionID string
	Topic     string
	Question  string
	Answer    string
}

// DecisionContext carries the pacing facts the decision prompt needs.
type DecisionContext struct {
	// TimeRemainingMin is whole minutes left in the interview.
	TimeRemainingMin int

	// TimeSpentMin is whole minutes elapsed.
	TimeSpentMin int

	// FollowupsAsked counts follow-ups already asked on this topic.
	FollowupsAsked int

	// TopicsCovered counts topics started so far this session.
	TopicsCovered int
}

// Adapter drives follow-up decisions and question generation.
type Adapter struct {
	provider llm.Provider
	store    *memory.Store
	logger   *slog.Logger
}

// NewAdapter constructs an Adapter. A nil logger falls back to slog.Default.
func NewAdapter(provider llm.Provider, store *memory.Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{provider: provider, store: store, logger: logger}
}

// ShouldGenerate records the exchange in memory, then asks the model whether
// another follow-up is worth the time. Ambiguous or failed decisions default
// to true so a flaky model errs toward probing deeper.
func (a *Adapter) ShouldGenerate(ctx context.Context, ex Exchange, dc DecisionContext) bool {
	a.record(ex)
	history := a.store.History(ex.SessionID, ex.Topic)

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: decisionSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildDecisionPrompt(ex.Topic, dc, history)},
		},
		Temperature: decisionTemperature,
	})
	if err != nil {
		a.logger.Warn("follow-up decision failed; defaulting to true", "error", err)
		return true
	}

	verdict := strings.ToLower(resp.Content)
	switch {
	case strings.Contains(verdict, "true"):
		return true
	case strings.Contains(verdict, "false"):
		return false
	default:
		a.logger.Warn("unexpected follow-up decision response; defaulting to true", "response", resp.Content)
		return true
	}
}

// Generate records the exchange in memory, then produces the next follow-up
// question from the topic's full history. A model failure yields
// [FallbackQuestion] rather than an error so the interview keeps moving.
func (a *Adapter) Generate(ctx context.Context, ex Exchange) string {
	a.record(ex)
	history := a.store.History(ex.SessionID, ex.Topic)

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: questionSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildQuestionPrompt(ex.Topic, history)},
		},
		Temperature: questionTemperature,
		MaxTokens:   questionMaxTokens,
	})
	if err != nil {
		a.logger.Warn("follow-up generation failed; using fallback question", "error", err)
		return FallbackQuestion
	}

	question := strings.TrimSpace(resp.Content)
	if question == "" {
		return FallbackQuestion
	}
	return question
}

// record stores the exchange as a main question the first time a topic is
// seen and as a follow-up turn afterwards.
func (a *Adapter) record(ex Exchange) {
	if !a.store.Has(ex.SessionID, ex.Topic) {
		a.store.StartTopic(ex.SessionID, ex.Topic, ex.Question, ex.Answer)
	} else {
		a.store.AppendFollowup(ex.SessionID, ex.Topic, ex.Question, ex.Answer)
	}
}

// buildQuestionPrompt renders the topic history into a generation prompt.
func buildQuestionPrompt(topic string, history []memory.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The interview is currently probing the leadership principle %q.\n\n", topic)
	b.WriteString("Conversation so far:\n")
	writeHistory(&b, history)
	b.WriteString("\nAsk exactly one concise follow-up question that digs deeper into the candidate's last answer. Return only the question text.")
	return b.String()
}

// buildDecisionPrompt renders pacing context and history into a decision prompt.
func buildDecisionPrompt(topic string, dc DecisionContext, history []memory.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current topic: %q\n", topic)
	fmt.Fprintf(&b, "Time remaining: %d minutes\n", dc.TimeRemainingMin)
	fmt.Fprintf(&b, "Time spent: %d minutes\n", dc.TimeSpentMin)
	fmt.Fprintf(&b, "Topics covered so far: %d\n", dc.TopicsCovered)
	fmt.Fprintf(&b, "Follow-ups already asked on this topic: %d\n\n", dc.FollowupsAsked)
	b.WriteString("Conversation so far:\n")
	writeHistory(&b, history)
	b.WriteString("\nShould a follow-up question be asked? Answer with a single word: true or false.")
	return b.String()
}

// writeHistory appends the turns as labelled lines.
func writeHistory(b *strings.Builder, history []memory.Turn) {
	for _, turn := range history {
		switch turn.Role {
		case memory.RoleInterviewer:
			kind := "question"
			if turn.Type == memory.TurnFollowup {
				kind = "follow-up"
			}
			fmt.Fprintf(b, "Interviewer (%s): %s\n", kind, turn.Content)
		case memory.RoleCandidate:
			fmt.Fprintf(b, "Candidate: %s\n", turn.Content)
		}
	}
}
