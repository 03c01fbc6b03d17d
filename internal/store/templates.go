package store

import (
	"context"
	"database/sql"
	"fmt"
)

const templateColumns = `id, owner_id, name, description, color_theme, template_data, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }, kind TemplateKind, t *Template) error {
	var (
		description sql.NullString
		data        []byte
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &description, &t.ColorTheme, &data,
		scanTime(&t.CreatedAt), scanTime(&t.UpdatedAt)); err != nil {
		return err
	}
	t.Kind = kind
	t.Description = nullableString(description)
	t.Data = data
	return nil
}

func (s *SQLStore) CreateTemplate(ctx context.Context, tmpl Template) (Template, error) {
	now := s.timestamp()
	id, err := s.insert(ctx, `
		INSERT INTO `+tmpl.Kind.table()+` (owner_id, name, description, color_theme, template_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tmpl.OwnerID, tmpl.Name, tmpl.Description, tmpl.ColorTheme, jsonArg(tmpl.Data, "{}"), now, now)
	if err != nil {
		return Template{}, fmt.Errorf("insert %s template: %w", tmpl.Kind, err)
	}
	tmpl.ID = id
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	return tmpl, nil
}

func (s *SQLStore) GetTemplate(ctx context.Context, kind TemplateKind, id int64) (Template, error) {
	var t Template
	err := scanTemplate(s.queryRow(ctx, `SELECT `+templateColumns+` FROM `+kind.table()+` WHERE id = ?`, id), kind, &t)
	if err != nil {
		return Template{}, notFound(err, string(kind)+" template")
	}
	return t, nil
}

func (s *SQLStore) ListTemplates(ctx context.Context, kind TemplateKind, ownerID int64) ([]Template, error) {
	rows, err := s.query(ctx, `SELECT `+templateColumns+` FROM `+kind.table()+` WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s templates: %w", kind, err)
	}
	defer rows.Close()

	templates := []Template{}
	for rows.Next() {
		var t Template
		if err := scanTemplate(rows, kind, &t); err != nil {
			return nil, fmt.Errorf("scan %s template: %w", kind, err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *SQLStore) UpdateTemplate(ctx context.Context, tmpl Template) (Template, error) {
	tmpl.UpdatedAt = s.timestamp()
	err := s.execOne(ctx, string(tmpl.Kind)+" template", `
		UPDATE `+tmpl.Kind.table()+` SET name = ?, description = ?, color_theme = ?, template_data = ?, updated_at = ?
		WHERE id = ?
	`, tmpl.Name, tmpl.Description, tmpl.ColorTheme, jsonArg(tmpl.Data, "{}"), tmpl.UpdatedAt, tmpl.ID)
	if err != nil {
		return Template{}, err
	}
	return tmpl, nil
}

func (s *SQLStore) DeleteTemplate(ctx context.Context, kind TemplateKind, id int64) error {
	return s.execOne(ctx, string(kind)+" template", `DELETE FROM `+kind.table()+` WHERE id = ?`, id)
}
