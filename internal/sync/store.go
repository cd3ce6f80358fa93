// Package sync implements the optimistic synchronized collection store:
// an in-memory ordered collection of domain records whose every mutation
// is mirrored to the persistent backend, with rollback when the backend
// disagrees and degraded local-only operation when it is not provisioned.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	gosync "sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
)

// ErrNotFound is returned by mutations targeting an id absent from the
// collection.
var ErrNotFound = errors.New("record not found")

// State tracks a collection's lifecycle: empty until loaded, populated
// from the backend, or populated from fallback demo data when the backend
// schema is missing.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StatePopulated
	StateFallback
)

// Config parameterizes a Store over one domain collection.
type Config[T any] struct {
	// Table is the backend table mirrored by this collection.
	Table string

	// TempPrefix distinguishes provisional ids per collection
	// (e.g. "g" for goals yields "mock-g-<uuid>").
	TempPrefix string

	// Owner is the user id every row is filtered and stamped with.
	Owner string

	// ID reads a record's identifier; SetID writes it.
	ID    func(*T) string
	SetID func(*T, string)

	// Less, when set, keeps the collection sorted: new records are
	// inserted at their ordered position. Otherwise Prepend selects
	// between prepending and appending.
	Less    func(a, b T) bool
	Prepend bool

	// LoadOrder is the sort requested from the backend at load time.
	LoadOrder remote.Order

	// Fallback is installed verbatim when a load hits a missing table.
	Fallback []T
}

// Store holds one synchronized collection. Mutations are serialized end
// to end (optimistic apply through backend confirmation), so a later
// operation can never be undone by an earlier operation's rollback.
// Reads never block on the backend.
type Store[T any] struct {
	cfg    Config[T]
	client remote.Client
	logger *zap.Logger

	opMu gosync.Mutex   // serializes whole mutations
	mu   gosync.RWMutex // guards recs and state

	recs  []T
	state State
}

// NewStore creates a synchronized collection store for one table.
func NewStore[T any](client remote.Client, logger *zap.Logger, cfg Config[T]) *Store[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store[T]{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("collection", cfg.Table)),
	}
}

// Load replaces the in-memory collection with the backend's rows for the
// owner. The backend is authoritative at load time. A missing table
// installs the fallback records instead; any other failure is logged and
// leaves the collection empty. No retries.
func (s *Store[T]) Load(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setState(StateLoading)

	rows, err := s.client.Select(ctx, s.cfg.Table,
		remote.Filter{"user_id": s.cfg.Owner}, s.cfg.LoadOrder)
	if err != nil {
		if remote.IsNotProvisioned(err) {
			s.logger.Warn("backend table missing, falling back to demo data",
				zap.Error(err))
			s.replace(deepCopy(s.cfg.Fallback), StateFallback)
			return nil
		}
		s.logger.Error("loading collection", zap.Error(err))
		s.replace(nil, StateEmpty)
		return nil
	}

	recs := make([]T, 0, len(rows))
	for _, row := range rows {
		var rec T
		if err := json.Unmarshal(row, &rec); err != nil {
			s.logger.Error("decoding record", zap.Error(err))
			continue
		}
		recs = append(recs, rec)
	}
	s.sortInPlace(recs)
	s.replace(recs, StatePopulated)
	return nil
}

// Create inserts a provisional record built from draft at the collection's
// ordering position and returns it immediately. The backend insert runs
// before Create returns; on success the provisional record is replaced in
// place by the confirmed one, never appended again. A missing table keeps
// the provisional record for the session; any other failure removes it and
// returns nil.
func (s *Store[T]) Create(ctx context.Context, draft T) (*T, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	tempID := s.tempID()
	s.cfg.SetID(&draft, tempID)
	s.insertLocal(draft)

	row, err := s.client.Insert(ctx, s.cfg.Table, s.ownedRow(draft))
	if err != nil {
		if remote.IsNotProvisioned(err) {
			s.logger.Warn("backend table missing, record kept local-only",
				zap.String("id", tempID), zap.Error(err))
			return &draft, nil
		}
		s.removeByID(tempID)
		s.logger.Error("creating record", zap.Error(err))
		return nil, err
	}

	var confirmed T
	if err := json.Unmarshal(row, &confirmed); err != nil {
		// Backend accepted the write but returned an unreadable
		// representation; the optimistic record stays.
		s.logger.Error("decoding confirmed record", zap.Error(err))
		return &draft, nil
	}
	s.swapByID(tempID, confirmed)
	return &confirmed, nil
}

// CreateBatch inserts several provisional records and mirrors them with a
// single backend write, following Create's confirmation and degradation
// rules for the whole batch.
func (s *Store[T]) CreateBatch(ctx context.Context, drafts []T) ([]T, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	tempIDs := make([]string, len(drafts))
	payload := make([]any, len(drafts))
	for i := range drafts {
		tempIDs[i] = s.tempID()
		s.cfg.SetID(&drafts[i], tempIDs[i])
		s.insertLocal(drafts[i])
		payload[i] = s.ownedRow(drafts[i])
	}

	rows, err := s.client.InsertMany(ctx, s.cfg.Table, payload)
	if err != nil {
		if remote.IsNotProvisioned(err) {
			s.logger.Warn("backend table missing, batch kept local-only",
				zap.Int("count", len(drafts)), zap.Error(err))
			return drafts, nil
		}
		for _, id := range tempIDs {
			s.removeByID(id)
		}
		s.logger.Error("creating batch", zap.Error(err))
		return nil, err
	}

	confirmed := make([]T, len(drafts))
	for i, row := range rows {
		if err := json.Unmarshal(row, &confirmed[i]); err != nil {
			s.logger.Error("decoding confirmed record", zap.Error(err))
			confirmed[i] = drafts[i]
			continue
		}
		s.swapByID(tempIDs[i], confirmed[i])
	}
	return confirmed, nil
}

// Update applies mutate to the matching record optimistically, then issues
// the backend patch. Any failure other than a missing table restores the
// pre-call snapshot.
func (s *Store[T]) Update(ctx context.Context, id string, mutate func(*T), patch map[string]any) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	snapshot := s.snapshot()
	if !s.mutateByID(id, mutate) {
		return ErrNotFound
	}

	if model.IsTempID(id) {
		// Provisional records exist only locally; there is nothing to
		// patch on the backend yet.
		return nil
	}

	err := s.client.Update(ctx, s.cfg.Table, patch,
		remote.Filter{"id": id, "user_id": s.cfg.Owner})
	return s.settleWrite(err, snapshot, "updating record")
}

// Delete removes the matching record optimistically, then issues the
// backend delete, with Update's rollback and degradation rules.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	snapshot := s.snapshot()
	if !s.removeByID(id) {
		return ErrNotFound
	}

	if model.IsTempID(id) {
		return nil
	}

	err := s.client.Delete(ctx, s.cfg.Table,
		remote.Filter{"id": id, "user_id": s.cfg.Owner})
	return s.settleWrite(err, snapshot, "deleting record")
}

// Apply runs an arbitrary optimistic mutation over the whole collection,
// mirrored by the given backend write, under the standard snapshot,
// rollback, and degradation rules. Domain stores use it for derived
// operations such as toggling a goal's nested task. A nil write keeps the
// mutation local.
func (s *Store[T]) Apply(ctx context.Context, mutate func([]T) []T, write func(context.Context) error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	snapshot := s.snapshot()

	s.mu.Lock()
	s.recs = mutate(s.recs)
	s.mu.Unlock()

	if write == nil {
		return nil
	}
	return s.settleWrite(write(ctx), snapshot, "applying mutation")
}

// Records returns a deep copy of the collection in its current order.
func (s *Store[T]) Records() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.recs)
}

// Find returns a copy of the first record matching pred.
func (s *Store[T]) Find(pred func(T) bool) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.recs {
		if pred(s.recs[i]) {
			rec := deepCopy(s.recs[i : i+1])[0]
			return &rec, true
		}
	}
	return nil, false
}

// State returns the collection's lifecycle state.
func (s *Store[T]) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Len returns the number of records in the collection.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// settleWrite resolves a backend write under the shared rules: success
// keeps the optimistic state, a missing table keeps it with a warning,
// anything else restores the snapshot.
func (s *Store[T]) settleWrite(err error, snapshot []T, op string) error {
	if err == nil {
		return nil
	}
	if remote.IsNotProvisioned(err) {
		s.logger.Warn("backend table missing, change kept local-only",
			zap.Error(err))
		return nil
	}
	s.restore(snapshot)
	s.logger.Error(op, zap.Error(err))
	return err
}

// tempID generates a provisional identifier for this collection.
func (s *Store[T]) tempID() string {
	return model.TempIDPrefix + s.cfg.TempPrefix + "-" + newSuffix()
}

// newSuffix returns a unique suffix for provisional identifiers.
func newSuffix() string {
	return uuid.New().String()
}

// ownedRow renders a record as a backend row: stamped with the owner and
// stripped of its provisional id so the backend assigns a real one.
func (s *Store[T]) ownedRow(rec T) map[string]any {
	data, err := json.Marshal(rec)
	if err != nil {
		return map[string]any{"user_id": s.cfg.Owner}
	}
	row := map[string]any{}
	if err := json.Unmarshal(data, &row); err != nil {
		return map[string]any{"user_id": s.cfg.Owner}
	}
	if id, _ := row["id"].(string); model.IsTempID(id) {
		delete(row, "id")
	}
	row["user_id"] = s.cfg.Owner
	return row
}

// insertLocal places rec at its ordering position: sorted when Less is
// set, otherwise prepended or appended per config.
func (s *Store[T]) insertLocal(rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.cfg.Less != nil:
		pos := len(s.recs)
		for i := range s.recs {
			if s.cfg.Less(rec, s.recs[i]) {
				pos = i
				break
			}
		}
		s.recs = append(s.recs, rec)
		copy(s.recs[pos+1:], s.recs[pos:])
		s.recs[pos] = rec
	case s.cfg.Prepend:
		s.recs = append([]T{rec}, s.recs...)
	default:
		s.recs = append(s.recs, rec)
	}
}

// swapByID replaces the record with the given id in place, preserving its
// collection position.
func (s *Store[T]) swapByID(id string, rec T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recs {
		if s.cfg.ID(&s.recs[i]) == id {
			s.recs[i] = rec
			return true
		}
	}
	return false
}

// removeByID deletes the record with the given id.
func (s *Store[T]) removeByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recs {
		if s.cfg.ID(&s.recs[i]) == id {
			s.recs = append(s.recs[:i], s.recs[i+1:]...)
			return true
		}
	}
	return false
}

// mutateByID applies mutate to the record with the given id.
func (s *Store[T]) mutateByID(id string, mutate func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recs {
		if s.cfg.ID(&s.recs[i]) == id {
			mutate(&s.recs[i])
			return true
		}
	}
	return false
}

// snapshot captures the collection for a later rollback.
func (s *Store[T]) snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.recs)
}

// restore reinstates a snapshot taken before an optimistic write.
func (s *Store[T]) restore(snapshot []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = snapshot
}

// replace swaps in a freshly loaded collection.
func (s *Store[T]) replace(recs []T, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = recs
	s.state = state
}

func (s *Store[T]) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// sortInPlace orders freshly loaded records when the collection keeps a
// sort invariant the backend order cannot express.
func (s *Store[T]) sortInPlace(recs []T) {
	if s.cfg.Less == nil {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return s.cfg.Less(recs[i], recs[j])
	})
}

// deepCopy clones records through JSON so that rollback snapshots never
// alias nested slices (a goal's tasks, a conversation's messages).
func deepCopy[T any](recs []T) []T {
	if recs == nil {
		return nil
	}
	data, err := json.Marshal(recs)
	if err != nil {
		out := make([]T, len(recs))
		copy(out, recs)
		return out
	}
	out := make([]T, 0, len(recs))
	if err := json.Unmarshal(data, &out); err != nil {
		out = make([]T, len(recs))
		copy(out, recs)
	}
	return out
}
