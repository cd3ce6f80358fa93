package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evolvedge/evolvedge/internal/remote"
)

const roadmapsTable = "roadmaps"

// Session bundles the five synchronized collection stores for one
// signed-in user. It is constructed once at session start and handed to
// whatever consumes the stores (the UI layer or the assistant executor);
// the stores never reach into each other's state.
type Session struct {
	Goals    *Goals
	Skills   *Skills
	Routines *Routines
	Planner  *Planner
	Chat     *Chat

	client remote.Client
	owner  string
	logger *zap.Logger
}

// NewSession builds the store set for the given user against one backend
// client.
func NewSession(client remote.Client, logger *zap.Logger, owner string) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		Goals:    NewGoals(client, logger, owner),
		Skills:   NewSkills(client, logger, owner),
		Routines: NewRoutines(client, logger, owner),
		Planner:  NewPlanner(client, logger, owner),
		Chat:     NewChat(client, logger, owner),
		client:   client,
		owner:    owner,
		logger:   logger,
	}
}

// Owner returns the user id the session's records belong to.
func (s *Session) Owner() string {
	return s.owner
}

// Open loads all five collections concurrently. Individual collections
// degrade on their own (fallback data or an empty list); Open only fails
// on a programming error, never on backend unavailability.
func (s *Session) Open(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Goals.Load(ctx) })
	g.Go(func() error { return s.Skills.Load(ctx) })
	g.Go(func() error { return s.Routines.Load(ctx) })
	g.Go(func() error { return s.Planner.Load(ctx) })
	g.Go(func() error { return s.Chat.Load(ctx) })
	return g.Wait()
}

// SaveRoadmap persists a generated learning roadmap. Roadmaps are written
// directly: they are append-only documents with no in-memory collection
// to keep synchronized.
func (s *Session) SaveRoadmap(ctx context.Context, skillTitle, content string) error {
	_, err := s.client.Insert(ctx, roadmapsTable, map[string]any{
		"user_id":         s.owner,
		"skill_title":     skillTitle,
		"roadmap_content": content,
		"created_at":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("saving roadmap for %q: %w", skillTitle, err)
	}
	return nil
}

// Close releases the backend connection. The stores themselves hold no
// resources beyond their in-memory collections.
func (s *Session) Close() error {
	return s.client.Close()
}
