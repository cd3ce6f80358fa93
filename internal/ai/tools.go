package ai

// Function names the assistant may call.
const (
	fnCreatePlan    = "create_plan"
	fnAddGoal       = "add_new_goal"
	fnAddRoutine    = "add_daily_routine"
	fnAddSkill      = "add_new_skill"
	fnUpdateSkill   = "update_skill_level"
	fnCreateRoadmap = "create_learning_roadmap"
)

const assistantInstruction = "You are EvolvEdge AI, a personal master AI assistant. You help users track, grow, and optimize their skills, goals, and habits. " +
	"You have been upgraded with new abilities. You can now directly manage the user's profile by using your tools. You can:\n" +
	"- Schedule events in their planner (`create_plan`).\n" +
	"- Add new goals to their goal tracker (`add_new_goal`).\n" +
	"- Add new daily routines (`add_daily_routine`).\n" +
	"- Add new skills they want to learn (`add_new_skill`).\n" +
	"- Update their proficiency level in existing skills (`update_skill_level`).\n" +
	"- Generate and save a detailed learning roadmap for a new skill (`create_learning_roadmap`).\n" +
	"Be proactive and conversational. When a user asks for help, suggest concrete actions and use your tools to execute them. " +
	"For example, if they say 'I want to get better at Python', you can add 'Python' as a skill, and ask if they want a learning roadmap."

// assistantTools declares the six profile-management functions.
func assistantTools() []Tool {
	return []Tool{{
		FunctionDeclarations: []FunctionDeclaration{
			{
				Name:        fnCreatePlan,
				Description: "Creates a new event or task in the user's planner. Use to schedule learning sessions, work tasks, or personal appointments.",
				Parameters: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"title":    {Type: "string", Description: `The title or name of the event. E.g., "Learn React Hooks".`},
						"date":     {Type: "string", Description: `The date of the event in YYYY-MM-DD format. E.g., "2024-07-26".`},
						"time":     {Type: "string", Description: `The time of the event. E.g., "10:00 AM".`},
						"category": {Type: "string", Description: `The category of the event. Must be one of: "work", "skill", or "personal".`},
					},
					Required: []string{"title", "date", "time", "category"},
				},
			},
			{
				Name:        fnAddGoal,
				Description: "Adds a new goal to the user's goal tracker.",
				Parameters: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"goalTitle": {Type: "string", Description: `The title of the new goal. E.g., "Run a 10k marathon".`},
					},
					Required: []string{"goalTitle"},
				},
			},
			{
				Name:        fnAddRoutine,
				Description: "Adds a new daily routine for the user to practice.",
				Parameters: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"routineTitle": {Type: "string", Description: `The title of the new routine. E.g., "Read for 15 minutes".`},
						"category":     {Type: "string", Description: `A relevant category for the routine. E.g., "Mindfulness", "Learning".`},
					},
					Required: []string{"routineTitle", "category"},
				},
			},
			{
				Name:        fnAddSkill,
				Description: "Adds a new skill to the user's profile for tracking.",
				Parameters: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"skillName": {Type: "string", Description: `The name of the skill to add. E.g., "Python".`},
					},
					Required: []string{"skillName"},
				},
			},
			{
				Name:        fnUpdateSkill,
				Description: "Updates the user's proficiency level for an existing skill.",
				Parameters: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"skillName": {Type: "string", Description: `The name of the skill to update. E.g., "Python".`},
						"newLevel":  {Type: "number", Description: "The new proficiency level, from 0 to 100."},
					},
					Required: []string{"skillName", "newLevel"},
				},
			},
			{
				Name:        fnCreateRoadmap,
				Description: "Generates and saves a detailed, step-by-step learning roadmap for a new skill.",
				Parameters: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"skillName": {Type: "string", Description: `The skill to create a roadmap for. E.g., "Machine Learning".`},
					},
					Required: []string{"skillName"},
				},
			},
		},
	}}
}
