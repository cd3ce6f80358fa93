package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
)

func TestAdvisorWithoutClientReturnsFallbacks(t *testing.T) {
	advisor := NewAdvisor(nil, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, fallbackQuote, advisor.DailyQuote(ctx))
	assert.Equal(t, fallbackCoach, advisor.SkillCoach(ctx, "what next?", nil))
	assert.Equal(t, fallbackAnalytics, advisor.SkillAnalytics(ctx, nil))
	assert.Equal(t, fallbackCareer, advisor.CareerAdvice(ctx, nil, nil))

	resources := advisor.Recommendations(ctx)
	assert.Len(t, resources, 2)

	_, err := advisor.RoadmapFor(ctx, "Rust", nil)
	assert.Error(t, err)
}

func TestSkillSummaryFormatsProfile(t *testing.T) {
	skills := []model.Skill{
		{Subject: "Go", Level: 80},
		{Subject: "SQL", Level: 45},
	}
	assert.Equal(t, "Go is at 80%, SQL is at 45%", skillSummary(skills, "%s is at %d%%"))
	assert.Equal(t, "", skillSummary(nil, "%s at %d%%"))
}
