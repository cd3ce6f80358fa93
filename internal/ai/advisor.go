package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
)

// Advisor answers the one-shot coaching prompts shown on the dashboard and
// skill pages. Every method degrades to a fixed fallback when no API client
// is configured or the call fails, so the UI never blocks on the model.
type Advisor struct {
	client *Client
	logger *zap.Logger
}

// NewAdvisor wraps the client. A nil client yields an advisor that always
// returns fallbacks.
func NewAdvisor(client *Client, logger *zap.Logger) *Advisor {
	return &Advisor{client: client, logger: logger}
}

const (
	fallbackQuote      = "The only way to do great work is to love what you do."
	fallbackCoach      = "I'm sorry, I can't provide skill advice right now. Please try again later."
	fallbackAnalytics  = "I'm sorry, I can't provide skill analytics right now. Please try again later."
	fallbackRoadmapMsg = "I'm sorry, I can't provide a skill assessment right now. Please try again later."
	fallbackCareer     = "I'm sorry, I can't provide career advice right now. Please try again later."
)

func fallbackResources() []model.LearningResource {
	return []model.LearningResource{
		{ID: "1", Type: model.ResourceArticle, Title: "The Power of Habit: Why We Do What We Do", Source: "Charles Duhigg", URL: "#"},
		{ID: "2", Type: model.ResourceVideo, Title: "How to Learn Anything in 20 Hours", Source: "Josh Kaufman | TEDx", URL: "#"},
		{ID: "3", Type: model.ResourceExercise, Title: "Practice the Pomodoro Technique", Source: "Productivity Challenge", URL: "#"},
		{ID: "4", Type: model.ResourceArticle, Title: "Atomic Habits: An Easy & Proven Way to Build Good Habits", Source: "James Clear", URL: "#"},
	}
}

// DailyQuote returns a short motivational quote.
func (a *Advisor) DailyQuote(ctx context.Context) string {
	if a.client == nil {
		return fallbackQuote
	}
	temp := 0.9
	text, err := a.client.GenerateText(ctx, "",
		"Generate one short, impactful, motivational quote about personal growth or learning. Return only the quote text, without any introductory phrases or quotation marks.",
		&GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: 50,
			ThinkingConfig:  &ThinkingConfig{ThinkingBudget: 10},
		})
	if err != nil || text == "" {
		a.logger.Warn("daily quote unavailable", zap.Error(err))
		return fallbackQuote
	}
	return text
}

// Recommendations returns four curated learning resources. Without a client
// only the first two fallbacks are shown.
func (a *Advisor) Recommendations(ctx context.Context) []model.LearningResource {
	if a.client == nil {
		return fallbackResources()[:2]
	}

	schema := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"resources": {
				Type: "array",
				Items: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"type":   {Type: "string", Description: "Can be 'article', 'video', or 'exercise'."},
						"title":  {Type: "string", Description: "The title of the resource."},
						"source": {Type: "string", Description: "The author or source (e.g., 'James Clear', 'TEDx')."},
						"url":    {Type: "string", Description: "A valid URL to the resource."},
					},
					Required: []string{"type", "title", "source", "url"},
				},
			},
		},
		Required: []string{"resources"},
	}

	text, err := a.client.GenerateText(ctx, "",
		"List exactly 4 popular and highly-rated learning resources (a mix of articles, videos, or exercises) for personal development and productivity. Provide a URL for each.",
		&GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		})
	if err != nil || text == "" {
		a.logger.Warn("recommendations unavailable", zap.Error(err))
		return fallbackResources()
	}

	var parsed struct {
		Resources []model.LearningResource `json:"resources"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		a.logger.Warn("recommendations response was not valid JSON", zap.Error(err))
		return fallbackResources()
	}
	for i := range parsed.Resources {
		parsed.Resources[i].ID = strconv.Itoa(i + 1)
	}
	return parsed.Resources
}

// SkillCoach answers a free-form question in the context of the user's
// current skill levels.
func (a *Advisor) SkillCoach(ctx context.Context, question string, skills []model.Skill) string {
	if a.client == nil {
		return fallbackCoach
	}
	temp := 0.7
	prompt := fmt.Sprintf("The user's current skills are: %s. The user asked: %q", skillSummary(skills, "%s is at %d%%"), question)
	text, err := a.client.GenerateText(ctx,
		"You are an AI Skill Coach. Your role is to provide clear, concise, and encouraging advice based on the user's skill levels. Answer their questions about how to improve, what to learn next, or explain concepts related to their skills. Keep your responses conversational and brief, as they will be spoken aloud.",
		prompt,
		&GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: 150,
			ThinkingConfig:  &ThinkingConfig{ThinkingBudget: 50},
		})
	if err != nil || text == "" {
		a.logger.Warn("skill coach unavailable", zap.Error(err))
		return fallbackCoach
	}
	return text
}

// SkillAnalytics produces a structured review of the whole skill profile.
func (a *Advisor) SkillAnalytics(ctx context.Context, skills []model.Skill) string {
	if a.client == nil {
		return fallbackAnalytics
	}
	if len(skills) == 0 {
		return "You haven't selected any skills to analyze. Go to the skills page to add some!"
	}
	temp := 0.7
	text, err := a.client.GenerateText(ctx,
		"You are an expert personal development coach. Analyze the user's skills and provide actionable insights.\n"+
			"Format your response with clear sections. Use **bold** for headings.\n"+
			"1. **Overall Summary:** A brief, encouraging summary of their skill profile.\n"+
			"2. **Strongest Skill:** Identify their strongest skill, explain why it's valuable, and suggest how they can leverage it.\n"+
			"3. **Area for Improvement:** Identify their weakest skill and provide a concrete, actionable tip to improve it this week.\n"+
			"4. **Suggested Focus:** Recommend one or two skills to focus on for balanced growth.",
		fmt.Sprintf("The user's skills are: %s.", skillSummary(skills, "%s at %d%%")),
		&GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: 400,
			ThinkingConfig:  &ThinkingConfig{ThinkingBudget: 100},
		})
	if err != nil || text == "" {
		a.logger.Warn("skill analytics unavailable", zap.Error(err))
		return fallbackAnalytics
	}
	return text
}

// RoadmapFor generates a beginner learning roadmap for a new skill. Unlike
// the other advisory calls it reports failure to the caller, since the
// assistant persists the result and must tell the model whether it worked.
func (a *Advisor) RoadmapFor(ctx context.Context, newSkill string, existing []model.Skill) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("ai: no client configured")
	}
	profile := "They have not listed any existing skills yet."
	if len(existing) > 0 {
		profile = fmt.Sprintf("Their current skills are: %s.", skillSummary(existing, "%s at %d%%"))
	}
	temp := 0.7
	text, err := a.client.GenerateText(ctx,
		"You are an expert learning coach. A user wants to learn a new skill. Assume they are a complete beginner in the new skill.\n\n"+
			"Format your response with clear sections using Markdown. Use **bold** for headings.\n"+
			"1. **Initial Assessment:** Briefly assess how their existing skills (if any) might help them learn the new one and provide encouragement.\n"+
			"2. **Learning Roadmap:** Create a step-by-step plan with 3 clear phases (e.g., Phase 1: Foundations, Phase 2: Practical Application, Phase 3: Advanced Topics). For each phase, list 2-3 key topics, projects, or concepts to focus on.\n\n"+
			"Keep the tone positive, concise, and actionable.",
		fmt.Sprintf("The user wants to learn a new skill: %q. %s", newSkill, profile),
		&GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: 500,
			ThinkingConfig:  &ThinkingConfig{ThinkingBudget: 100},
		})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("ai: empty roadmap response")
	}
	return text, nil
}

// CareerAdvice suggests career paths from the user's skills and goals.
func (a *Advisor) CareerAdvice(ctx context.Context, skills []model.Skill, goals []model.Goal) string {
	if a.client == nil {
		return fallbackCareer
	}
	if len(skills) == 0 && len(goals) == 0 {
		return "You haven't added any skills or goals yet. Add some from the Skills and Profile pages so I can give you personalized career advice!"
	}

	skillLine := "No skills listed."
	if len(skills) > 0 {
		parts := make([]string, len(skills))
		for i, s := range skills {
			parts[i] = fmt.Sprintf("%s (Proficiency: %d/100)", s.Subject, s.Level)
		}
		skillLine = "Current Skills: " + strings.Join(parts, ", ") + "."
	}
	goalLine := "No goals listed."
	if len(goals) > 0 {
		parts := make([]string, len(goals))
		for i, g := range goals {
			status := "In Progress"
			if g.Completed {
				status = "Completed"
			}
			parts[i] = fmt.Sprintf("%s (%s)", g.Title, status)
		}
		goalLine = "Current Goals: " + strings.Join(parts, ", ") + "."
	}

	temp := 0.8
	text, err := a.client.GenerateText(ctx,
		"You are an expert career advisor. Your goal is to give actionable, encouraging, and personalized career recommendations based on the user's skills and goals.\n\n"+
			"Format your response with clear sections using Markdown. Use **bold** for headings.\n"+
			"1. **Career Path Suggestions:** Based on their current skills and goals, suggest 2-3 specific job roles or career paths that would be a good fit. For each, briefly explain why.\n"+
			"2. **Skill Gap Analysis:** Identify any key skills they might be missing for these roles and suggest how their current skills can be leveraged.\n"+
			"3. **Actionable Roadmap:** Provide a simple, 3-step action plan to help them move towards these career goals. This could include learning a new skill, a type of project to build, or networking advice.\n\n"+
			"Keep the tone positive and empowering.",
		fmt.Sprintf("Based on the user's profile, provide career advice.\n\n%s\n%s", skillLine, goalLine),
		&GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: 600,
			ThinkingConfig:  &ThinkingConfig{ThinkingBudget: 100},
		})
	if err != nil || text == "" {
		a.logger.Warn("career advice unavailable", zap.Error(err))
		return fallbackCareer
	}
	return text
}

func skillSummary(skills []model.Skill, format string) string {
	parts := make([]string, len(skills))
	for i, s := range skills {
		parts[i] = fmt.Sprintf(format, s.Subject, s.Level)
	}
	return strings.Join(parts, ", ")
}
