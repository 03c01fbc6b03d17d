package store

import (
	"context"
	"database/sql"
	"fmt"
)

const taskColumns = `t.id, t.board_id, t.stage_id, t.title, t.description, t.due_date, t.scheduled_start,
	t.color_theme, t.custom_fields, t.position, t.created_at, t.updated_at`

func scanTask(row interface{ Scan(...any) error }, t *Task) error {
	var (
		description sql.NullString
		colorTheme  sql.NullString
		custom      []byte
	)
	if err := row.Scan(&t.ID, &t.BoardID, &t.StageID, &t.Title, &description,
		scanDate(&t.DueDate), scanDate(&t.ScheduledStart), &colorTheme, &custom, &t.Position,
		scanTime(&t.CreatedAt), scanTime(&t.UpdatedAt)); err != nil {
		return err
	}
	t.Description = nullableString(description)
	t.ColorTheme = nullableString(colorTheme)
	if len(custom) == 0 {
		custom = []byte("{}")
	}
	t.CustomFields = custom
	return nil
}

func (s *SQLStore) CreateTask(ctx context.Context, task Task) (Task, error) {
	now := s.timestamp()
	if len(task.CustomFields) == 0 {
		task.CustomFields = []byte("{}")
	}
	id, err := s.insert(ctx, `
		INSERT INTO tasks (board_id, stage_id, title, description, due_date, scheduled_start,
			color_theme, custom_fields, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.BoardID, task.StageID, task.Title, task.Description, dateArg(task.DueDate), dateArg(task.ScheduledStart),
		task.ColorTheme, jsonArg(task.CustomFields, "{}"), task.Position, now, now)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return task, nil
}

func (s *SQLStore) GetTask(ctx context.Context, id int64) (Task, error) {
	var t Task
	if err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id), &t); err != nil {
		return Task{}, notFound(err, "task")
	}
	return t, nil
}

// ListTasks orders by stage position, then task position.
func (s *SQLStore) ListTasks(ctx context.Context, boardID int64, stageID *int64) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t JOIN stages st ON st.id = t.stage_id WHERE t.board_id = ?`
	args := []any{boardID}
	if stageID != nil {
		query += ` AND t.stage_id = ?`
		args = append(args, *stageID)
	}
	query += ` ORDER BY st.position, st.id, t.position, t.id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := scanTask(rows, &t); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLStore) UpdateTask(ctx context.Context, task Task) (Task, error) {
	task.UpdatedAt = s.timestamp()
	err := s.execOne(ctx, "task", `
		UPDATE tasks SET stage_id = ?, title = ?, description = ?, due_date = ?, scheduled_start = ?,
			color_theme = ?, custom_fields = ?, position = ?, updated_at = ?
		WHERE id = ?
	`, task.StageID, task.Title, task.Description, dateArg(task.DueDate), dateArg(task.ScheduledStart),
		task.ColorTheme, jsonArg(task.CustomFields, "{}"), task.Position, task.UpdatedAt, task.ID)
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

func (s *SQLStore) DeleteTask(ctx context.Context, id int64) error {
	return s.execOne(ctx, "task", `DELETE FROM tasks WHERE id = ?`, id)
}
