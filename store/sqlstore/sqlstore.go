// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/store"
)

// Dialect selects the SQL flavor. Queries are written with ? placeholders
// and rewritten to $N for postgres.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Open opens a database handle for the given type ("sqlite" or "postgres").
// SQLite handles are restricted to one connection: modernc.org/sqlite gives
// each connection its own view of an in-memory database, and a single writer
// avoids SQLITE_BUSY under concurrent mutations.
func Open(dbType, dbURL string) (*sql.DB, Dialect, error) {
	switch dbType {
	case "postgres":
		db, err := sql.Open("postgres", dbURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open postgres database: %w", err)
		}
		return db, DialectPostgres, nil
	case "sqlite":
		dsn := dbURL
		if !strings.HasPrefix(dsn, "file:") {
			dsn = "file:" + dsn
		}
		// Cascading deletes require foreign key enforcement on every connection.
		if !strings.Contains(dsn, "_pragma") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=foreign_keys(1)"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1)
		return db, DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("unknown database type %q (want sqlite or postgres)", dbType)
	}
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
-- Users
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Plans
CREATE TABLE IF NOT EXISTS plan (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_by TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_plan_created_by ON plan(created_by);

-- Options
CREATE TABLE IF NOT EXISTS plan_option (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL REFERENCES plan(id) ON DELETE CASCADE,
    option_text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plan_option_plan_id ON plan_option(plan_id);

-- Votes: the UNIQUE constraint is the authority for one ballot per
-- (user, plan); re-voting updates option_id in place.
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    option_id TEXT NOT NULL REFERENCES plan_option(id) ON DELETE CASCADE,
    plan_id TEXT NOT NULL REFERENCES plan(id) ON DELETE CASCADE,
    UNIQUE (user_id, plan_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_plan_id ON vote(plan_id);
CREATE INDEX IF NOT EXISTS idx_vote_option_id ON vote(option_id);

-- Comments: one per (user, plan), enforced the same way.
CREATE TABLE IF NOT EXISTS comment (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    user_id TEXT NOT NULL REFERENCES users(id),
    plan_id TEXT NOT NULL REFERENCES plan(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, plan_id)
);

CREATE INDEX IF NOT EXISTS idx_comment_plan_id ON comment(plan_id);
`

// Store implements store.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// q rewrites ? placeholders to $N when talking to postgres.
func (s *Store) q(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// readTxOptions returns the transaction options for multi-statement reads.
// Postgres defaults to read committed, under which each query sees its own
// snapshot; repeatable read makes the whole transaction one snapshot.
// SQLite runs serializable on its single connection already and its driver
// rejects explicit isolation levels.
func (s *Store) readTxOptions() *sql.TxOptions {
	if s.dialect == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// isUniqueViolation recognizes uniqueness errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func mapRowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// Users

func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return models.User{}, store.ErrConflict
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, s.q(`
		SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?
	`), id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, s.q(`
		SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?
	`), email))
}

func (s *Store) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return models.User{}, mapRowErr(err)
	}
	return u, nil
}

// Plans

func (s *Store) CreatePlan(ctx context.Context, title, createdByID string, optionTexts []string) (models.Plan, []models.PlanOption, error) {
	p := models.Plan{
		ID:          uuid.NewString(),
		Title:       title,
		CreatedByID: createdByID,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Plan{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO plan (id, title, created_by, created_at)
		VALUES (?, ?, ?, ?)
	`), p.ID, p.Title, p.CreatedByID, p.CreatedAt)
	if err != nil {
		return models.Plan{}, nil, fmt.Errorf("failed to insert plan: %w", err)
	}

	options := make([]models.PlanOption, 0, len(optionTexts))
	for _, text := range optionTexts {
		opt := models.PlanOption{ID: uuid.NewString(), PlanID: p.ID, OptionText: text}
		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO plan_option (id, plan_id, option_text)
			VALUES (?, ?, ?)
		`), opt.ID, opt.PlanID, opt.OptionText)
		if err != nil {
			return models.Plan{}, nil, fmt.Errorf("failed to insert option: %w", err)
		}
		options = append(options, opt)
	}

	if err := tx.Commit(); err != nil {
		return models.Plan{}, nil, fmt.Errorf("failed to commit plan: %w", err)
	}
	return p, options, nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (models.Plan, error) {
	var p models.Plan
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, title, created_by, created_at FROM plan WHERE id = ?
	`), id).Scan(&p.ID, &p.Title, &p.CreatedByID, &p.CreatedAt)
	if err != nil {
		return models.Plan{}, mapRowErr(err)
	}
	return p, nil
}

func (s *Store) ListPlanIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM plan ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan plan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) DeletePlan(ctx context.Context, id string) (store.DeletedCounts, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.DeletedCounts{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM plan WHERE id = ?`), id).Scan(&exists)
	if err != nil {
		return store.DeletedCounts{}, mapRowErr(err)
	}

	var counts store.DeletedCounts
	err = tx.QueryRowContext(ctx, s.q(`
		SELECT
			(SELECT COUNT(*) FROM plan_option WHERE plan_id = ?),
			(SELECT COUNT(*) FROM vote WHERE plan_id = ?),
			(SELECT COUNT(*) FROM comment WHERE plan_id = ?)
	`), id, id, id).Scan(&counts.Options, &counts.Votes, &counts.Comments)
	if err != nil {
		return store.DeletedCounts{}, fmt.Errorf("failed to count plan rows: %w", err)
	}

	// Options, votes, and comments go with the plan via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM plan WHERE id = ?`), id); err != nil {
		return store.DeletedCounts{}, fmt.Errorf("failed to delete plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return store.DeletedCounts{}, fmt.Errorf("failed to commit plan delete: %w", err)
	}
	return counts, nil
}

// Options

func (s *Store) GetOption(ctx context.Context, id string) (models.PlanOption, error) {
	var opt models.PlanOption
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, plan_id, option_text FROM plan_option WHERE id = ?
	`), id).Scan(&opt.ID, &opt.PlanID, &opt.OptionText)
	if err != nil {
		return models.PlanOption{}, mapRowErr(err)
	}
	return opt, nil
}

// Votes

func (s *Store) GetVote(ctx context.Context, id string) (models.Vote, error) {
	var v models.Vote
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, user_id, option_id, plan_id FROM vote WHERE id = ?
	`), id).Scan(&v.ID, &v.UserID, &v.OptionID, &v.PlanID)
	if err != nil {
		return models.Vote{}, mapRowErr(err)
	}
	return v, nil
}

func (s *Store) GetVoteByUserPlan(ctx context.Context, userID, planID string) (models.Vote, error) {
	var v models.Vote
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, user_id, option_id, plan_id FROM vote WHERE user_id = ? AND plan_id = ?
	`), userID, planID).Scan(&v.ID, &v.UserID, &v.OptionID, &v.PlanID)
	if err != nil {
		return models.Vote{}, mapRowErr(err)
	}
	return v, nil
}

func (s *Store) CreateVote(ctx context.Context, userID, optionID, planID string) (models.Vote, error) {
	// Resolve the option first so the stored plan reference can never
	// disagree with the option's plan.
	opt, err := s.GetOption(ctx, optionID)
	if err != nil {
		return models.Vote{}, err
	}
	if opt.PlanID != planID {
		return models.Vote{}, store.ErrNotFound
	}

	v := models.Vote{ID: uuid.NewString(), UserID: userID, OptionID: optionID, PlanID: opt.PlanID}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO vote (id, user_id, option_id, plan_id)
		VALUES (?, ?, ?, ?)
	`), v.ID, v.UserID, v.OptionID, v.PlanID)
	if isUniqueViolation(err) {
		return models.Vote{}, store.ErrConflict
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to insert vote: %w", err)
	}
	return v, nil
}

func (s *Store) SetVoteOption(ctx context.Context, voteID, optionID string) (models.Vote, error) {
	v, err := s.GetVote(ctx, voteID)
	if err != nil {
		return models.Vote{}, err
	}
	opt, err := s.GetOption(ctx, optionID)
	if err != nil {
		return models.Vote{}, err
	}
	if opt.PlanID != v.PlanID {
		return models.Vote{}, store.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		UPDATE vote SET option_id = ? WHERE id = ?
	`), optionID, voteID)
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to update vote: %w", err)
	}
	v.OptionID = optionID
	return v, nil
}

func (s *Store) DeleteVote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM vote WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Comments

func (s *Store) GetComment(ctx context.Context, id string) (models.Comment, error) {
	var c models.Comment
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, text, user_id, plan_id, created_at FROM comment WHERE id = ?
	`), id).Scan(&c.ID, &c.Text, &c.UserID, &c.PlanID, &c.CreatedAt)
	if err != nil {
		return models.Comment{}, mapRowErr(err)
	}
	return c, nil
}

func (s *Store) GetCommentByUserPlan(ctx context.Context, userID, planID string) (models.Comment, error) {
	var c models.Comment
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, text, user_id, plan_id, created_at FROM comment WHERE user_id = ? AND plan_id = ?
	`), userID, planID).Scan(&c.ID, &c.Text, &c.UserID, &c.PlanID, &c.CreatedAt)
	if err != nil {
		return models.Comment{}, mapRowErr(err)
	}
	return c, nil
}

func (s *Store) CreateComment(ctx context.Context, text, userID, planID string) (models.Comment, error) {
	if _, err := s.GetPlan(ctx, planID); err != nil {
		return models.Comment{}, err
	}

	c := models.Comment{
		ID:        uuid.NewString(),
		Text:      text,
		UserID:    userID,
		PlanID:    planID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO comment (id, text, user_id, plan_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), c.ID, c.Text, c.UserID, c.PlanID, c.CreatedAt)
	if isUniqueViolation(err) {
		return models.Comment{}, store.ErrConflict
	}
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to insert comment: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM comment WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetPlanTree loads the plan and all dependent rows inside one snapshot
// transaction, so a concurrent mutation cannot tear the view.
func (s *Store) GetPlanTree(ctx context.Context, planID string) (store.PlanTree, error) {
	tx, err := s.db.BeginTx(ctx, s.readTxOptions())
	if err != nil {
		return store.PlanTree{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var tree store.PlanTree
	err = tx.QueryRowContext(ctx, s.q(`
		SELECT id, title, created_by, created_at FROM plan WHERE id = ?
	`), planID).Scan(&tree.Plan.ID, &tree.Plan.Title, &tree.Plan.CreatedByID, &tree.Plan.CreatedAt)
	if err != nil {
		return store.PlanTree{}, mapRowErr(err)
	}

	rows, err := tx.QueryContext(ctx, s.q(`
		SELECT id, plan_id, option_text FROM plan_option WHERE plan_id = ? ORDER BY id
	`), planID)
	if err != nil {
		return store.PlanTree{}, fmt.Errorf("failed to query options: %w", err)
	}
	for rows.Next() {
		var opt models.PlanOption
		if err := rows.Scan(&opt.ID, &opt.PlanID, &opt.OptionText); err != nil {
			rows.Close()
			return store.PlanTree{}, fmt.Errorf("failed to scan option: %w", err)
		}
		tree.Options = append(tree.Options, opt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.PlanTree{}, err
	}

	rows, err = tx.QueryContext(ctx, s.q(`
		SELECT id, user_id, option_id, plan_id FROM vote WHERE plan_id = ? ORDER BY id
	`), planID)
	if err != nil {
		return store.PlanTree{}, fmt.Errorf("failed to query votes: %w", err)
	}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.UserID, &v.OptionID, &v.PlanID); err != nil {
			rows.Close()
			return store.PlanTree{}, fmt.Errorf("failed to scan vote: %w", err)
		}
		tree.Votes = append(tree.Votes, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.PlanTree{}, err
	}

	rows, err = tx.QueryContext(ctx, s.q(`
		SELECT id, text, user_id, plan_id, created_at FROM comment WHERE plan_id = ? ORDER BY created_at, id
	`), planID)
	if err != nil {
		return store.PlanTree{}, fmt.Errorf("failed to query comments: %w", err)
	}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.UserID, &c.PlanID, &c.CreatedAt); err != nil {
			rows.Close()
			return store.PlanTree{}, fmt.Errorf("failed to scan comment: %w", err)
		}
		tree.Comments = append(tree.Comments, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.PlanTree{}, err
	}

	tree.Users = map[string]models.User{}
	ids := []string{tree.Plan.CreatedByID}
	for _, v := range tree.Votes {
		ids = append(ids, v.UserID)
	}
	for _, c := range tree.Comments {
		ids = append(ids, c.UserID)
	}
	for _, id := range ids {
		if _, ok := tree.Users[id]; ok {
			continue
		}
		var u models.User
		err := tx.QueryRowContext(ctx, s.q(`
			SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?
		`), id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return store.PlanTree{}, fmt.Errorf("failed to query user: %w", err)
		}
		tree.Users[id] = u
	}

	if err := tx.Commit(); err != nil {
		return store.PlanTree{}, fmt.Errorf("failed to commit read: %w", err)
	}
	return tree, nil
}
