package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/position"
)

// Scope identifies a sibling set whose members carry a position.
type Scope int

const (
	ScopeStages Scope = iota
	ScopeTasks
	ScopeItems
	ScopeFields
)

func (s Scope) table() (table, parent string) {
	switch s {
	case ScopeStages:
		return "stages", "board_id"
	case ScopeTasks:
		return "tasks", "stage_id"
	case ScopeItems:
		return "list_items", "list_id"
	case ScopeFields:
		return "custom_fields", "board_id"
	default:
		panic(fmt.Sprintf("store: unknown scope %d", s))
	}
}

// Repository is the persistence contract of the service layer. Lookups of
// missing rows return an apperr NotFound error.
type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error

	UpsertUser(ctx context.Context, user User) (User, bool, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error
	LookupSession(ctx context.Context, id string, now time.Time) (int64, error)
	DeleteSession(ctx context.Context, id string) error

	CreateProject(ctx context.Context, project Project) (Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	ListOwnedProjects(ctx context.Context, userID int64) ([]Project, error)
	ListSharedProjects(ctx context.Context, userID int64) ([]Project, error)
	UpdateProject(ctx context.Context, project Project) (Project, error)
	DeleteProject(ctx context.Context, id int64) error

	GetShare(ctx context.Context, projectID, userID int64) (ProjectShare, error)
	ListShares(ctx context.Context, projectID int64) ([]ProjectShare, error)
	CreateShare(ctx context.Context, share ProjectShare) (ProjectShare, error)
	DeleteShare(ctx context.Context, projectID, userID int64) error

	CreateBoard(ctx context.Context, board Board) (Board, error)
	GetBoard(ctx context.Context, id int64) (Board, error)
	ListBoards(ctx context.Context, projectID int64) ([]Board, error)
	UpdateBoard(ctx context.Context, board Board) (Board, error)
	DeleteBoard(ctx context.Context, id int64) error

	CreateStage(ctx context.Context, stage Stage) (Stage, error)
	GetStage(ctx context.Context, id int64) (Stage, error)
	ListStages(ctx context.Context, boardID int64) ([]Stage, error)
	UpdateStage(ctx context.Context, stage Stage) (Stage, error)
	DeleteStage(ctx context.Context, id int64) error
	CountStageTasks(ctx context.Context, stageID int64) (int, error)

	CreateTask(ctx context.Context, task Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	ListTasks(ctx context.Context, boardID int64, stageID *int64) ([]Task, error)
	UpdateTask(ctx context.Context, task Task) (Task, error)
	DeleteTask(ctx context.Context, id int64) error

	CreateCustomField(ctx context.Context, field CustomField) (CustomField, error)
	GetCustomField(ctx context.Context, id int64) (CustomField, error)
	ListCustomFields(ctx context.Context, boardID int64) ([]CustomField, error)
	UpdateCustomField(ctx context.Context, field CustomField) (CustomField, error)
	DeleteCustomField(ctx context.Context, id int64) error

	CreateList(ctx context.Context, list List) (List, error)
	GetList(ctx context.Context, id int64) (List, error)
	ListLists(ctx context.Context, projectID int64) ([]List, error)
	UpdateList(ctx context.Context, list List) (List, error)
	DeleteList(ctx context.Context, id int64) error

	CreateItem(ctx context.Context, item ListItem) (ListItem, error)
	GetItem(ctx context.Context, id int64) (ListItem, error)
	ListItems(ctx context.Context, listID int64) ([]ListItem, error)
	UpdateItem(ctx context.Context, item ListItem) (ListItem, error)
	DeleteItem(ctx context.Context, id int64) error

	MaxPosition(ctx context.Context, scope Scope, parentID int64) (int, error)
	ShiftPositions(ctx context.Context, scope Scope, parentID int64, band position.Band) error
	SetPosition(ctx context.Context, scope Scope, id int64, pos int) error

	CreateTemplate(ctx context.Context, tmpl Template) (Template, error)
	GetTemplate(ctx context.Context, kind TemplateKind, id int64) (Template, error)
	ListTemplates(ctx context.Context, kind TemplateKind, ownerID int64) ([]Template, error)
	UpdateTemplate(ctx context.Context, tmpl Template) (Template, error)
	DeleteTemplate(ctx context.Context, kind TemplateKind, id int64) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Repository over database/sql for both dialects.
// Queries are written with ? placeholders.
type SQLStore struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, q: db, dialect: dialect, now: time.Now}
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn against a transaction-bound store. Calls made inside an
// existing transaction join it.
func (s *SQLStore) InTx(ctx context.Context, fn func(Repository) error) (err error) {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&SQLStore{db: s.db, q: tx, dialect: s.dialect, now: s.now}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, rebind(s.dialect, query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, rebind(s.dialect, query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, rebind(s.dialect, query), args...)
}

// insert runs an INSERT ... RETURNING id statement.
func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// execOne runs a mutation that must touch exactly one row.
func (s *SQLStore) execOne(ctx context.Context, resource, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", resource, err)
	}
	if n == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}

func (s *SQLStore) timestamp() time.Time {
	return s.now().UTC()
}

// notFound maps sql.ErrNoRows to a typed NotFound error.
func notFound(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(resource)
	}
	return fmt.Errorf("load %s: %w", resource, err)
}

func (s *SQLStore) MaxPosition(ctx context.Context, scope Scope, parentID int64) (int, error) {
	table, parent := scope.table()
	var max sql.NullInt64
	err := s.queryRow(ctx, `SELECT MAX(position) FROM `+table+` WHERE `+parent+` = ?`, parentID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max position in %s: %w", table, err)
	}
	if !max.Valid {
		return position.Empty, nil
	}
	return int(max.Int64), nil
}

func (s *SQLStore) ShiftPositions(ctx context.Context, scope Scope, parentID int64, band position.Band) error {
	table, parent := scope.table()
	_, err := s.exec(ctx, `
		UPDATE `+table+` SET position = position + ?
		WHERE `+parent+` = ? AND position >= ? AND position <= ?
	`, band.Delta, parentID, band.From, band.To)
	if err != nil {
		return fmt.Errorf("shift positions in %s: %w", table, err)
	}
	return nil
}

func (s *SQLStore) SetPosition(ctx context.Context, scope Scope, id int64, pos int) error {
	table, _ := scope.table()
	return s.execOne(ctx, table, `UPDATE `+table+` SET position = ? WHERE id = ?`, pos, id)
}
