package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/evolvedge/evolvedge/internal/remote"
)

// FakeClient is an in-memory remote.Client whose failures can be scripted
// per operation and table. It counts calls so tests can assert how many
// writes a store issued.
type FakeClient struct {
	mu     sync.Mutex
	rows   map[string][]map[string]any
	errs   map[string]error
	calls  map[string]int
	nextID int
}

// NewFakeClient creates an empty fake backend.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		rows:  make(map[string][]map[string]any),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// NotProvisionedErr builds the error a missing table or function yields.
func NotProvisionedErr(table string) error {
	return &remote.Error{
		Kind:    remote.KindNotProvisioned,
		Table:   table,
		Message: fmt.Sprintf("could not find the table %q", table),
	}
}

// FatalErr builds a permanent backend failure.
func FatalErr(table string) error {
	return &remote.Error{
		Kind:    remote.KindFatal,
		Table:   table,
		Message: "backend rejected the request",
	}
}

func opKey(op, table string) string { return op + ":" + table }

// FailWith makes every future call of op against table return err. Pass a
// nil err to clear the failure.
func (f *FakeClient) FailWith(op, table string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, opKey(op, table))
		return
	}
	f.errs[opKey(op, table)] = err
}

// CallCount reports how many times op was invoked against table.
func (f *FakeClient) CallCount(op, table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[opKey(op, table)]
}

// SeedRows pre-populates a table.
func (f *FakeClient) SeedRows(table string, rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[table] = append(f.rows[table], rows...)
}

// TableRows returns the current contents of a table.
func (f *FakeClient) TableRows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.rows[table]))
	copy(out, f.rows[table])
	return out
}

func (f *FakeClient) record(op, table string) error {
	f.calls[opKey(op, table)]++
	return f.errs[opKey(op, table)]
}

func matches(row map[string]any, filter remote.Filter) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// Select returns rows matching the filter. Ordering is insertion order; the
// stores re-sort locally anyway.
func (f *FakeClient) Select(ctx context.Context, table string, filter remote.Filter, order remote.Order) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Select", table); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for _, row := range f.rows[table] {
		if !matches(row, filter) {
			continue
		}
		raw, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// Insert stores the row, assigning a server id when none is present.
func (f *FakeClient) Insert(ctx context.Context, table string, row any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Insert", table); err != nil {
		return nil, err
	}
	stored, err := f.store(table, row)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stored)
}

// InsertMany stores all rows in one call.
func (f *FakeClient) InsertMany(ctx context.Context, table string, rows []any) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("InsertMany", table); err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		stored, err := f.store(table, row)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (f *FakeClient) store(table string, row any) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]any)
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	if id, _ := stored["id"].(string); id == "" {
		f.nextID++
		stored["id"] = fmt.Sprintf("srv-%d", f.nextID)
	}
	f.rows[table] = append(f.rows[table], stored)
	return stored, nil
}

// Update merges the patch into every row matching the filter.
func (f *FakeClient) Update(ctx context.Context, table string, patch map[string]any, filter remote.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Update", table); err != nil {
		return err
	}
	for _, row := range f.rows[table] {
		if matches(row, filter) {
			for k, v := range patch {
				row[k] = v
			}
		}
	}
	return nil
}

// Delete removes every row matching the filter.
func (f *FakeClient) Delete(ctx context.Context, table string, filter remote.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Delete", table); err != nil {
		return err
	}
	kept := f.rows[table][:0]
	for _, row := range f.rows[table] {
		if !matches(row, filter) {
			kept = append(kept, row)
		}
	}
	f.rows[table] = kept
	return nil
}

// RPC records the call; failures are scripted with the function name as
// the table key.
func (f *FakeClient) RPC(ctx context.Context, fn string, args map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("RPC", fn)
}

// Close is a no-op.
func (f *FakeClient) Close() error {
	return nil
}
