package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
	syncstore "github.com/evolvedge/evolvedge/internal/sync"
)

// maxToolIterations bounds how many sequential function calls a single user
// message may trigger before the loop is cut off.
const maxToolIterations = 10

// Canned assistant messages.
const (
	GreetingMessage = "Hello! I am your personal Master AI. How can I help you evolve today? I can now manage your skills, goals, routines, and planner."
	offlineMessage  = "Could not connect to AI assistant."
	errorMessage    = "Sorry, something went wrong."
	tooManyMessage  = "I tried to perform too many actions at once. Some of them may have completed; please check your profile and try a smaller request."
)

// ErrTooManyActions is returned when a single message exceeds the tool
// iteration cap. Actions executed before the cap are kept.
var ErrTooManyActions = errors.New("ai: too many assistant actions in one exchange")

// actionResult is the structured outcome reported back to the model for a
// function call.
type actionResult struct {
	Success bool
	Message string
}

func failure(message string) actionResult {
	return actionResult{Success: false, Message: message}
}

func success(message string) actionResult {
	return actionResult{Success: true, Message: message}
}

// Actions dispatches model function calls to the profile collections.
type Actions struct {
	stores  *syncstore.Session
	advisor *Advisor
	logger  *zap.Logger
}

// NewActions builds the dispatch table target.
func NewActions(stores *syncstore.Session, advisor *Advisor, logger *zap.Logger) *Actions {
	return &Actions{stores: stores, advisor: advisor, logger: logger}
}

// Execute runs one function call and returns the outcome to feed back to the
// model. Unknown functions and malformed arguments report a generic failure
// rather than an error, so the model can recover in conversation.
func (a *Actions) Execute(ctx context.Context, call FunctionCall) actionResult {
	switch call.Name {
	case fnCreatePlan:
		title, ok1 := stringArg(call.Args, "title")
		date, ok2 := stringArg(call.Args, "date")
		at, ok3 := stringArg(call.Args, "time")
		category, ok4 := stringArg(call.Args, "category")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			break
		}
		_, err := a.stores.Planner.AddEvent(ctx, model.PlannerEvent{
			Title:    title,
			Date:     date,
			Time:     at,
			Category: category,
		})
		if err != nil {
			a.logger.Warn("assistant could not schedule event", zap.Error(err))
			break
		}
		return success(fmt.Sprintf("Event '%s' scheduled.", title))

	case fnAddGoal:
		title, ok := stringArg(call.Args, "goalTitle")
		if !ok {
			break
		}
		if _, err := a.stores.Goals.AddGoal(ctx, title); err != nil {
			a.logger.Warn("assistant could not add goal", zap.Error(err))
			break
		}
		return success(fmt.Sprintf("Goal '%s' has been added.", title))

	case fnAddSkill:
		name, ok := stringArg(call.Args, "skillName")
		if !ok {
			break
		}
		if _, err := a.stores.Skills.AddSkill(ctx, name); err != nil {
			a.logger.Warn("assistant could not add skill", zap.Error(err))
			break
		}
		return success(fmt.Sprintf("Skill '%s' has been added to your profile.", name))

	case fnUpdateSkill:
		name, ok1 := stringArg(call.Args, "skillName")
		level, ok2 := numberArg(call.Args, "newLevel")
		if !ok1 || !ok2 {
			break
		}
		applied, err := a.stores.Skills.UpdateSkill(ctx, name, int(level))
		if err != nil {
			a.logger.Warn("assistant could not update skill", zap.Error(err))
			break
		}
		return success(fmt.Sprintf("Skill '%s' updated to %d%%.", name, applied))

	case fnAddRoutine:
		title, ok1 := stringArg(call.Args, "routineTitle")
		category, ok2 := stringArg(call.Args, "category")
		if !ok1 || !ok2 {
			break
		}
		_, err := a.stores.Routines.InitializeRoutines(ctx, []model.Routine{{Title: title, Category: category}})
		if err != nil {
			a.logger.Warn("assistant could not add routine", zap.Error(err))
			break
		}
		return success(fmt.Sprintf("Routine '%s' has been added.", title))

	case fnCreateRoadmap:
		name, ok := stringArg(call.Args, "skillName")
		if !ok {
			break
		}
		content, err := a.advisor.RoadmapFor(ctx, name, a.stores.Skills.Records())
		if err != nil {
			a.logger.Warn("assistant could not generate roadmap", zap.Error(err))
			return failure(fallbackRoadmapMsg)
		}
		if err := a.stores.SaveRoadmap(ctx, name, content); err != nil {
			if remote.IsNotProvisioned(err) {
				return failure("Could not save roadmap due to a database configuration issue.")
			}
			a.logger.Error("assistant could not save roadmap", zap.Error(err))
			return failure("An error occurred while saving the roadmap.")
		}
		return success(fmt.Sprintf("Roadmap for %s saved successfully.", name))
	}

	return failure("Function not recognized or failed.")
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok && v != ""
}

func numberArg(args map[string]any, key string) (float64, bool) {
	// JSON numbers decode as float64; tolerate the occasional quoted number.
	switch v := args[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Executor runs the tool-call loop for one user message: send, execute any
// function call, feed its result back, repeat until the model answers with
// text or the iteration cap is hit.
type Executor struct {
	session ModelSession
	actions *Actions
	logger  *zap.Logger
}

// NewExecutor pairs a model session with the action dispatcher.
func NewExecutor(session ModelSession, actions *Actions, logger *zap.Logger) *Executor {
	return &Executor{session: session, actions: actions, logger: logger}
}

// Run sends the user's message and drives the exchange to a final text
// reply. Returns ErrTooManyActions when the cap is exceeded.
func (e *Executor) Run(ctx context.Context, text string) (string, error) {
	resp, err := e.session.Send(ctx, Part{Text: text})
	if err != nil {
		return "", err
	}

	for i := 0; i < maxToolIterations; i++ {
		call := resp.FunctionCall()
		if call == nil {
			reply := resp.Text()
			if reply == "" {
				reply = "I'm not sure how to respond to that."
			}
			return reply, nil
		}

		result := e.actions.Execute(ctx, *call)
		e.logger.Info("executed assistant action",
			zap.String("function", call.Name),
			zap.Bool("success", result.Success),
		)

		resp, err = e.session.Send(ctx, Part{FunctionResponse: &FunctionResponse{
			Name: call.Name,
			Response: map[string]any{
				"success": result.Success,
				"message": result.Message,
			},
		}})
		if err != nil {
			return "", err
		}
	}

	e.logger.Warn("assistant exceeded tool iteration cap", zap.Int("cap", maxToolIterations))
	return "", ErrTooManyActions
}

// Assistant is the chat-facing facade: it owns the model session for the
// active conversation, runs the executor, and persists the exchange through
// the chat collection.
type Assistant struct {
	client  *Client
	stores  *syncstore.Session
	advisor *Advisor
	actions *Actions
	logger  *zap.Logger

	executor *Executor
}

// NewAssistant wires the assistant. client may be nil, in which case every
// message gets the offline reply.
func NewAssistant(client *Client, stores *syncstore.Session, advisor *Advisor, logger *zap.Logger) *Assistant {
	return &Assistant{
		client:  client,
		stores:  stores,
		advisor: advisor,
		actions: NewActions(stores, advisor, logger),
		logger:  logger,
	}
}

// Available reports whether a model client is configured.
func (a *Assistant) Available() bool {
	return a.client != nil
}

// StartConversation resets the model session. Call when the user opens or
// switches to a conversation so history does not leak across chats.
func (a *Assistant) StartConversation() {
	if a.client == nil {
		a.executor = nil
		return
	}
	session := a.client.NewChat(assistantInstruction, assistantTools())
	a.executor = NewExecutor(session, a.actions, a.logger)
}

// Send processes one user message in the given conversation and returns the
// assistant's reply. isFirst marks the first user message of a conversation
// and triggers retitling. Replies flagged as errors are not persisted.
func (a *Assistant) Send(ctx context.Context, conversationID string, isFirst bool, text string) model.ChatMessage {
	now := time.Now().UTC()
	a.stores.Chat.AppendMessage(ctx, conversationID, model.ChatMessage{
		Text:      text,
		Sender:    model.SenderUser,
		Timestamp: now,
	})
	if isFirst {
		if err := a.stores.Chat.RetitleFromFirstMessage(ctx, conversationID, text); err != nil {
			a.logger.Warn("could not retitle conversation", zap.Error(err))
		}
	}

	if a.executor == nil {
		return errorReply(conversationID, offlineMessage)
	}

	replyText, err := a.executor.Run(ctx, text)
	switch {
	case errors.Is(err, ErrTooManyActions):
		return errorReply(conversationID, tooManyMessage)
	case err != nil:
		a.logger.Error("assistant exchange failed", zap.Error(err))
		return errorReply(conversationID, errorMessage)
	}

	reply := model.ChatMessage{
		ConversationID: conversationID,
		Text:           replyText,
		Sender:         model.SenderAI,
		Timestamp:      time.Now().UTC(),
	}
	a.stores.Chat.AppendMessage(ctx, conversationID, reply)
	return reply
}

func errorReply(conversationID, text string) model.ChatMessage {
	return model.ChatMessage{
		ConversationID: conversationID,
		Text:           text,
		Sender:         model.SenderAI,
		Timestamp:      time.Now().UTC(),
		Error:          true,
	}
}
