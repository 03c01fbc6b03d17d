package store

import (
	"context"
	"database/sql"
	"fmt"
)

const listColumns = `id, project_id, title, description, color_theme, created_at, updated_at`

func scanList(row interface{ Scan(...any) error }, l *List) error {
	var description sql.NullString
	if err := row.Scan(&l.ID, &l.ProjectID, &l.Title, &description, &l.ColorTheme,
		scanTime(&l.CreatedAt), scanTime(&l.UpdatedAt)); err != nil {
		return err
	}
	l.Description = nullableString(description)
	return nil
}

func (s *SQLStore) CreateList(ctx context.Context, list List) (List, error) {
	now := s.timestamp()
	id, err := s.insert(ctx, `
		INSERT INTO lists (project_id, title, description, color_theme, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, list.ProjectID, list.Title, list.Description, list.ColorTheme, now, now)
	if err != nil {
		return List{}, fmt.Errorf("insert list: %w", err)
	}
	list.ID = id
	list.CreatedAt = now
	list.UpdatedAt = now
	return list, nil
}

func (s *SQLStore) GetList(ctx context.Context, id int64) (List, error) {
	var l List
	if err := scanList(s.queryRow(ctx, `SELECT `+listColumns+` FROM lists WHERE id = ?`, id), &l); err != nil {
		return List{}, notFound(err, "list")
	}
	return l, nil
}

func (s *SQLStore) ListLists(ctx context.Context, projectID int64) ([]List, error) {
	rows, err := s.query(ctx, `SELECT `+listColumns+` FROM lists WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	lists := []List{}
	for rows.Next() {
		var l List
		if err := scanList(rows, &l); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (s *SQLStore) UpdateList(ctx context.Context, list List) (List, error) {
	list.UpdatedAt = s.timestamp()
	err := s.execOne(ctx, "list", `
		UPDATE lists SET title = ?, description = ?, color_theme = ?, updated_at = ? WHERE id = ?
	`, list.Title, list.Description, list.ColorTheme, list.UpdatedAt, list.ID)
	if err != nil {
		return List{}, err
	}
	return list, nil
}

func (s *SQLStore) DeleteList(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, `DELETE FROM list_items WHERE list_id = ?`, id); err != nil {
		return fmt.Errorf("delete list items: %w", err)
	}
	return s.execOne(ctx, "list", `DELETE FROM lists WHERE id = ?`, id)
}

const itemColumns = `id, list_id, content, is_checked, position, assigned_to, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }, it *ListItem) error {
	var assigned sql.NullInt64
	if err := row.Scan(&it.ID, &it.ListID, &it.Content, &it.IsChecked, &it.Position, &assigned,
		scanTime(&it.CreatedAt), scanTime(&it.UpdatedAt)); err != nil {
		return err
	}
	if assigned.Valid {
		id := assigned.Int64
		it.AssignedTo = &id
	}
	return nil
}

func (s *SQLStore) CreateItem(ctx context.Context, item ListItem) (ListItem, error) {
	now := s.timestamp()
	id, err := s.insert(ctx, `
		INSERT INTO list_items (list_id, content, is_checked, position, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ListID, item.Content, item.IsChecked, item.Position, item.AssignedTo, now, now)
	if err != nil {
		return ListItem{}, fmt.Errorf("insert list item: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (s *SQLStore) GetItem(ctx context.Context, id int64) (ListItem, error) {
	var it ListItem
	if err := scanItem(s.queryRow(ctx, `SELECT `+itemColumns+` FROM list_items WHERE id = ?`, id), &it); err != nil {
		return ListItem{}, notFound(err, "list item")
	}
	return it, nil
}

func (s *SQLStore) ListItems(ctx context.Context, listID int64) ([]ListItem, error) {
	rows, err := s.query(ctx, `SELECT `+itemColumns+` FROM list_items WHERE list_id = ? ORDER BY position, id`, listID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		var it ListItem
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("scan list item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) UpdateItem(ctx context.Context, item ListItem) (ListItem, error) {
	item.UpdatedAt = s.timestamp()
	err := s.execOne(ctx, "list item", `
		UPDATE list_items SET content = ?, is_checked = ?, position = ?, assigned_to = ?, updated_at = ? WHERE id = ?
	`, item.Content, item.IsChecked, item.Position, item.AssignedTo, item.UpdatedAt, item.ID)
	if err != nil {
		return ListItem{}, err
	}
	return item, nil
}

func (s *SQLStore) DeleteItem(ctx context.Context, id int64) error {
	return s.execOne(ctx, "list item", `DELETE FROM list_items WHERE id = ?`, id)
}
