package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const boardColumns = `id, project_id, title, description, color_theme, created_at, updated_at`

func scanBoard(row interface{ Scan(...any) error }, b *Board) error {
	var description sql.NullString
	if err := row.Scan(&b.ID, &b.ProjectID, &b.Title, &description, &b.ColorTheme,
		scanTime(&b.CreatedAt), scanTime(&b.UpdatedAt)); err != nil {
		return err
	}
	b.Description = nullableString(description)
	return nil
}

func (s *SQLStore) CreateBoard(ctx context.Context, board Board) (Board, error) {
	now := s.timestamp()
	id, err := s.insert(ctx, `
		INSERT INTO boards (project_id, title, description, color_theme, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, board.ProjectID, board.Title, board.Description, board.ColorTheme, now, now)
	if err != nil {
		return Board{}, fmt.Errorf("insert board: %w", err)
	}
	board.ID = id
	board.CreatedAt = now
	board.UpdatedAt = now
	return board, nil
}

func (s *SQLStore) GetBoard(ctx context.Context, id int64) (Board, error) {
	var b Board
	if err := scanBoard(s.queryRow(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = ?`, id), &b); err != nil {
		return Board{}, notFound(err, "board")
	}
	return b, nil
}

func (s *SQLStore) ListBoards(ctx context.Context, projectID int64) ([]Board, error) {
	rows, err := s.query(ctx, `SELECT `+boardColumns+` FROM boards WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := []Board{}
	for rows.Next() {
		var b Board
		if err := scanBoard(rows, &b); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *SQLStore) UpdateBoard(ctx context.Context, board Board) (Board, error) {
	board.UpdatedAt = s.timestamp()
	err := s.execOne(ctx, "board", `
		UPDATE boards SET title = ?, description = ?, color_theme = ?, updated_at = ? WHERE id = ?
	`, board.Title, board.Description, board.ColorTheme, board.UpdatedAt, board.ID)
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

func (s *SQLStore) DeleteBoard(ctx context.Context, id int64) error {
	for _, stmt := range []string{
		`DELETE FROM tasks WHERE board_id = ?`,
		`DELETE FROM stages WHERE board_id = ?`,
		`DELETE FROM custom_fields WHERE board_id = ?`,
	} {
		if _, err := s.exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete board children: %w", err)
		}
	}
	return s.execOne(ctx, "board", `DELETE FROM boards WHERE id = ?`, id)
}

const stageColumns = `id, board_id, name, position, color, created_at`

func scanStage(row interface{ Scan(...any) error }, st *Stage) error {
	return row.Scan(&st.ID, &st.BoardID, &st.Name, &st.Position, &st.Color, scanTime(&st.CreatedAt))
}

func (s *SQLStore) CreateStage(ctx context.Context, stage Stage) (Stage, error) {
	stage.CreatedAt = s.timestamp()
	id, err := s.insert(ctx, `
		INSERT INTO stages (board_id, name, position, color, created_at) VALUES (?, ?, ?, ?, ?)
	`, stage.BoardID, stage.Name, stage.Position, stage.Color, stage.CreatedAt)
	if err != nil {
		return Stage{}, fmt.Errorf("insert stage: %w", err)
	}
	stage.ID = id
	return stage, nil
}

func (s *SQLStore) GetStage(ctx context.Context, id int64) (Stage, error) {
	var st Stage
	if err := scanStage(s.queryRow(ctx, `SELECT `+stageColumns+` FROM stages WHERE id = ?`, id), &st); err != nil {
		return Stage{}, notFound(err, "stage")
	}
	return st, nil
}

// ListStages orders by position, then id so duplicate positions stay stable.
func (s *SQLStore) ListStages(ctx context.Context, boardID int64) ([]Stage, error) {
	rows, err := s.query(ctx, `SELECT `+stageColumns+` FROM stages WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := []Stage{}
	for rows.Next() {
		var st Stage
		if err := scanStage(rows, &st); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *SQLStore) UpdateStage(ctx context.Context, stage Stage) (Stage, error) {
	err := s.execOne(ctx, "stage", `UPDATE stages SET name = ?, position = ?, color = ? WHERE id = ?`,
		stage.Name, stage.Position, stage.Color, stage.ID)
	if err != nil {
		return Stage{}, err
	}
	return stage, nil
}

func (s *SQLStore) DeleteStage(ctx context.Context, id int64) error {
	return s.execOne(ctx, "stage", `DELETE FROM stages WHERE id = ?`, id)
}

func (s *SQLStore) CountStageTasks(ctx context.Context, stageID int64) (int, error) {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE stage_id = ?`, stageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count stage tasks: %w", err)
	}
	return count, nil
}

const customFieldColumns = `id, board_id, field_name, field_type, options, position, created_at`

func scanCustomField(row interface{ Scan(...any) error }, f *CustomField) error {
	var options []byte
	if err := row.Scan(&f.ID, &f.BoardID, &f.FieldName, &f.FieldType, &options, &f.Position, scanTime(&f.CreatedAt)); err != nil {
		return err
	}
	f.Options = options
	return nil
}

// CreateCustomField stores field. Missing options are stored and returned
// as an empty array.
func (s *SQLStore) CreateCustomField(ctx context.Context, field CustomField) (CustomField, error) {
	field.CreatedAt = s.timestamp()
	field.Options = json.RawMessage(jsonArg(field.Options, "[]"))
	id, err := s.insert(ctx, `
		INSERT INTO custom_fields (board_id, field_name, field_type, options, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, field.BoardID, field.FieldName, field.FieldType, string(field.Options), field.Position, field.CreatedAt)
	if err != nil {
		return CustomField{}, fmt.Errorf("insert custom field: %w", err)
	}
	field.ID = id
	return field, nil
}

func (s *SQLStore) GetCustomField(ctx context.Context, id int64) (CustomField, error) {
	var f CustomField
	if err := scanCustomField(s.queryRow(ctx, `SELECT `+customFieldColumns+` FROM custom_fields WHERE id = ?`, id), &f); err != nil {
		return CustomField{}, notFound(err, "custom field")
	}
	return f, nil
}

func (s *SQLStore) ListCustomFields(ctx context.Context, boardID int64) ([]CustomField, error) {
	rows, err := s.query(ctx, `SELECT `+customFieldColumns+` FROM custom_fields WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}
	defer rows.Close()

	fields := []CustomField{}
	for rows.Next() {
		var f CustomField
		if err := scanCustomField(rows, &f); err != nil {
			return nil, fmt.Errorf("scan custom field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (s *SQLStore) UpdateCustomField(ctx context.Context, field CustomField) (CustomField, error) {
	field.Options = json.RawMessage(jsonArg(field.Options, "[]"))
	err := s.execOne(ctx, "custom field", `
		UPDATE custom_fields SET field_name = ?, field_type = ?, options = ?, position = ? WHERE id = ?
	`, field.FieldName, field.FieldType, string(field.Options), field.Position, field.ID)
	if err != nil {
		return CustomField{}, err
	}
	return field, nil
}

func (s *SQLStore) DeleteCustomField(ctx context.Context, id int64) error {
	return s.execOne(ctx, "custom field", `DELETE FROM custom_fields WHERE id = ?`, id)
}
