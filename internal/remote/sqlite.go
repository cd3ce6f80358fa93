package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/evolvedge/evolvedge/internal/model"
)

// allowedTables guards table names interpolated into SQL.
var allowedTables = map[string]bool{
	"goals":              true,
	"tasks":              true,
	"skills":             true,
	"routines":           true,
	"planner_events":     true,
	"chat_conversations": true,
	"chat_messages":      true,
	"roadmaps":           true,
}

// SQLiteClient implements Client on a local SQLite database. It is the
// backend for the fully-local mode: the same optimistic store logic runs
// against it unchanged, it is just never slow.
type SQLiteClient struct {
	db *sqlx.DB
}

// NewSQLiteClient opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteClient(dbPath string) (*SQLiteClient, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	c := &SQLiteClient{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *SQLiteClient) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Select returns the JSON documents of table matching filter.
func (c *SQLiteClient) Select(
	ctx context.Context,
	table string,
	filter Filter,
	order Order,
) ([]json.RawMessage, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	where, args := buildConditions(filter)
	query := "SELECT data FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	if order.Column != "" {
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", columnExpr(order.Column), direction)
	}

	rows, err := c.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, c.classify(table, "select", err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, c.classify(table, "select", err)
		}
		docs = append(docs, json.RawMessage(data))
	}

	if err := rows.Err(); err != nil {
		return nil, c.classify(table, "select", err)
	}
	return docs, nil
}

// Insert stores a single row, assigning a fresh id when the caller did
// not provide a definitive one.
func (c *SQLiteClient) Insert(
	ctx context.Context,
	table string,
	row any,
) (json.RawMessage, error) {
	docs, err := c.InsertMany(ctx, table, []any{row})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// InsertMany stores a batch of rows inside one transaction.
func (c *SQLiteClient) InsertMany(
	ctx context.Context,
	table string,
	rows []any,
) ([]json.RawMessage, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, c.classify(table, "insert", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		"INSERT INTO %s (id, user_id, data) VALUES (?, ?, ?)", table,
	)
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return nil, c.classify(table, "insert", err)
	}
	defer stmt.Close()

	docs := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		doc, err := toDocument(row)
		if err != nil {
			return nil, &Error{Kind: KindFatal, Table: table, Message: err.Error(), Err: err}
		}

		id, _ := doc["id"].(string)
		if id == "" || strings.HasPrefix(id, model.TempIDPrefix) {
			id = uuid.New().String()
			doc["id"] = id
		}
		owner, _ := doc["user_id"].(string)

		data, err := json.Marshal(doc)
		if err != nil {
			return nil, &Error{Kind: KindFatal, Table: table, Message: err.Error(), Err: err}
		}

		if _, err := stmt.ExecContext(ctx, id, owner, string(data)); err != nil {
			return nil, c.classify(table, "insert", err)
		}
		docs = append(docs, json.RawMessage(data))
	}

	if err := tx.Commit(); err != nil {
		return nil, c.classify(table, "insert", err)
	}
	return docs, nil
}

// Update merges patch into the JSON document of every matching row.
func (c *SQLiteClient) Update(
	ctx context.Context,
	table string,
	patch map[string]any,
	filter Filter,
) error {
	if err := checkTable(table); err != nil {
		return err
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return c.classify(table, "update", err)
	}
	defer tx.Rollback()

	where, args := buildConditions(filter)
	query := "SELECT id, data FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return c.classify(table, "update", err)
	}

	type pending struct {
		id   string
		data string
	}
	var updates []pending

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			rows.Close()
			return c.classify(table, "update", err)
		}

		var doc map[string]any
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			rows.Close()
			return &Error{Kind: KindFatal, Table: table, Message: err.Error(), Err: err}
		}
		for k, v := range patch {
			if k == "id" || k == "user_id" {
				continue
			}
			doc[k] = v
		}

		merged, err := json.Marshal(doc)
		if err != nil {
			rows.Close()
			return &Error{Kind: KindFatal, Table: table, Message: err.Error(), Err: err}
		}
		updates = append(updates, pending{id: id, data: string(merged)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return c.classify(table, "update", err)
	}
	rows.Close()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		"UPDATE %s SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", table,
	))
	if err != nil {
		return c.classify(table, "update", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.data, u.id); err != nil {
			return c.classify(table, "update", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return c.classify(table, "update", err)
	}
	return nil
}

// Delete removes every row matching filter.
func (c *SQLiteClient) Delete(
	ctx context.Context,
	table string,
	filter Filter,
) error {
	if err := checkTable(table); err != nil {
		return err
	}

	where, args := buildConditions(filter)
	query := "DELETE FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return c.classify(table, "delete", err)
	}
	return nil
}

// RPC executes a named procedure. The local backend implements the daily
// routine reset natively; unknown names report as not provisioned, which
// callers already tolerate.
func (c *SQLiteClient) RPC(
	ctx context.Context,
	fn string,
	args map[string]any,
) error {
	switch fn {
	case "reset_daily_routines":
		userID, _ := args["p_user_id"].(string)
		today, _ := args["p_today"].(string)
		if today == "" {
			today = model.Today()
		}

		_, err := c.db.ExecContext(ctx, `
			UPDATE routines
			SET data = json_set(data, '$.completed', json('false')),
			    updated_at = CURRENT_TIMESTAMP
			WHERE user_id = ?
			  AND COALESCE(json_extract(data, '$.last_completed_date'), '') != ?`,
			userID, today,
		)
		if err != nil {
			return c.classify("routines", "rpc", err)
		}
		return nil

	default:
		return &Error{
			Kind:    KindNotProvisioned,
			Message: fmt.Sprintf("Could not find the function %q", fn),
		}
	}
}

// classify maps a driver error onto the adapter's typed kinds. The SQLite
// driver reports a missing relation only through its message text, so the
// string match lives here and nowhere else.
func (c *SQLiteClient) classify(table, op string, err error) error {
	msg := err.Error()

	kind := KindFatal
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such function"):
		kind = KindNotProvisioned
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		strings.Contains(msg, "database is locked"):
		kind = KindTransient
	}

	return &Error{
		Kind:    kind,
		Table:   table,
		Message: fmt.Sprintf("%s: %s", op, msg),
		Err:     err,
	}
}

// checkTable rejects table names outside the known schema before they are
// interpolated into SQL.
func checkTable(table string) error {
	if !allowedTables[table] {
		return &Error{
			Kind:    KindFatal,
			Table:   table,
			Message: "unknown table",
		}
	}
	return nil
}

// columnExpr maps a logical column onto either a real column or a JSON
// path inside the document.
func columnExpr(column string) string {
	switch column {
	case "id", "user_id", "created_at", "updated_at":
		return column
	default:
		return fmt.Sprintf("json_extract(data, '$.%s')", column)
	}
}

// buildConditions renders a filter as a WHERE clause with placeholders.
func buildConditions(filter Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}

	var conditions []string
	var args []any
	for _, key := range sortedKeys(filter) {
		conditions = append(conditions, columnExpr(key)+" = ?")
		args = append(args, filter[key])
	}
	return strings.Join(conditions, " AND "), args
}

// sortedKeys returns filter keys in deterministic order.
func sortedKeys(filter Filter) []string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toDocument converts an arbitrary row value into a JSON object.
func toDocument(row any) (map[string]any, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshaling row: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("row is not an object: %w", err)
	}
	return doc, nil
}
