package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
)

const skillsTable = "skills"

// Skills is the synchronized skill collection. Subject is unique per user
// and acts as the natural key; levels are clamped into [0,100] before both
// the local and the backend write.
type Skills struct {
	*Store[model.Skill]

	client remote.Client
	owner  string
	logger *zap.Logger
}

// NewSkills creates the skill store for one user.
func NewSkills(client remote.Client, logger *zap.Logger, owner string) *Skills {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Skills{
		Store: NewStore(client, logger, Config[model.Skill]{
			Table:      skillsTable,
			TempPrefix: "s",
			Owner:      owner,
			ID:         func(s *model.Skill) string { return s.ID },
			SetID:      func(s *model.Skill, id string) { s.ID = id },
			// No demo fallback: a new user legitimately has zero
			// skills, so a missing table loads as empty.
		}),
		client: client,
		owner:  owner,
		logger: logger.Named("skills"),
	}
}

// InitializeSkills seeds the collection with a batch of skills, typically
// from onboarding. Duplicate subjects (within the batch or against the
// existing collection) are dropped, levels are clamped, and the whole
// batch is mirrored with a single backend write.
func (s *Skills) InitializeSkills(ctx context.Context, skills []model.Skill) ([]model.Skill, error) {
	seen := map[string]bool{}
	for _, existing := range s.Records() {
		seen[existing.Subject] = true
	}

	drafts := make([]model.Skill, 0, len(skills))
	for _, skill := range skills {
		if skill.Subject == "" || seen[skill.Subject] {
			continue
		}
		seen[skill.Subject] = true
		skill.Level = model.ClampLevel(skill.Level)
		drafts = append(drafts, skill)
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	return s.CreateBatch(ctx, drafts)
}

// AddSkill adds a subject at level 0. A duplicate subject is ignored and
// the existing record returned unchanged.
func (s *Skills) AddSkill(ctx context.Context, subject string) (*model.Skill, error) {
	if existing, ok := s.Find(func(sk model.Skill) bool { return sk.Subject == subject }); ok {
		return existing, nil
	}
	return s.Create(ctx, model.Skill{Subject: subject, Level: 0})
}

// UpdateSkill sets a skill's proficiency level, clamped into [0,100]. It
// returns the clamped value actually stored. The backend row is matched
// by the (owner, subject) natural key.
func (s *Skills) UpdateSkill(ctx context.Context, subject string, level int) (int, error) {
	clamped := model.ClampLevel(level)

	skill, ok := s.Find(func(sk model.Skill) bool { return sk.Subject == subject })
	if !ok {
		return 0, ErrNotFound
	}

	mutate := func(skills []model.Skill) []model.Skill {
		for i := range skills {
			if skills[i].Subject == subject {
				skills[i].Level = clamped
			}
		}
		return skills
	}

	if model.IsTempID(skill.ID) {
		return clamped, s.Apply(ctx, mutate, nil)
	}

	err := s.Apply(ctx, mutate, func(ctx context.Context) error {
		return s.client.Update(ctx, skillsTable,
			map[string]any{"level": clamped},
			remote.Filter{"user_id": s.owner, "subject": subject},
		)
	})
	if err != nil {
		return 0, err
	}
	return clamped, nil
}
