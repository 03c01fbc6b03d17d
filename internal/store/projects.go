package store

import (
	"context"
	"database/sql"
	"fmt"
)

const projectColumns = `p.id, p.owner_id, p.name, p.description, p.color_theme, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM boards b WHERE b.project_id = p.id),
	(SELECT COUNT(*) FROM lists l WHERE l.project_id = p.id)`

func scanProject(row interface{ Scan(...any) error }, p *Project) error {
	var description sql.NullString
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &description, &p.ColorTheme,
		scanTime(&p.CreatedAt), scanTime(&p.UpdatedAt), &p.BoardCount, &p.ListCount); err != nil {
		return err
	}
	p.Description = nullableString(description)
	return nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (s *SQLStore) CreateProject(ctx context.Context, project Project) (Project, error) {
	now := s.timestamp()
	id, err := s.insert(ctx, `
		INSERT INTO projects (owner_id, name, description, color_theme, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, project.OwnerID, project.Name, project.Description, project.ColorTheme, now, now)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return project, nil
}

func (s *SQLStore) GetProject(ctx context.Context, id int64) (Project, error) {
	var p Project
	if err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id), &p); err != nil {
		return Project{}, notFound(err, "project")
	}
	return p, nil
}

func (s *SQLStore) ListOwnedProjects(ctx context.Context, userID int64) ([]Project, error) {
	return s.listProjects(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.owner_id = ? ORDER BY p.id`, userID)
}

func (s *SQLStore) ListSharedProjects(ctx context.Context, userID int64) ([]Project, error) {
	return s.listProjects(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN project_shares ps ON ps.project_id = p.id
		WHERE ps.user_id = ?
		ORDER BY p.id
	`, userID)
}

func (s *SQLStore) listProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		var p Project
		if err := scanProject(rows, &p); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLStore) UpdateProject(ctx context.Context, project Project) (Project, error) {
	project.UpdatedAt = s.timestamp()
	err := s.execOne(ctx, "project", `
		UPDATE projects SET name = ?, description = ?, color_theme = ?, updated_at = ? WHERE id = ?
	`, project.Name, project.Description, project.ColorTheme, project.UpdatedAt, project.ID)
	if err != nil {
		return Project{}, err
	}
	return project, nil
}

// DeleteProject removes the project and every child explicitly so the
// cascade does not depend on the driver enforcing foreign keys.
func (s *SQLStore) DeleteProject(ctx context.Context, id int64) error {
	cascade := []string{
		`DELETE FROM list_items WHERE list_id IN (SELECT id FROM lists WHERE project_id = ?)`,
		`DELETE FROM lists WHERE project_id = ?`,
		`DELETE FROM tasks WHERE board_id IN (SELECT id FROM boards WHERE project_id = ?)`,
		`DELETE FROM stages WHERE board_id IN (SELECT id FROM boards WHERE project_id = ?)`,
		`DELETE FROM custom_fields WHERE board_id IN (SELECT id FROM boards WHERE project_id = ?)`,
		`DELETE FROM boards WHERE project_id = ?`,
		`DELETE FROM project_shares WHERE project_id = ?`,
	}
	for _, stmt := range cascade {
		if _, err := s.exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete project children: %w", err)
		}
	}
	return s.execOne(ctx, "project", `DELETE FROM projects WHERE id = ?`, id)
}

const shareColumns = `ps.id, ps.project_id, ps.user_id, ps.permission, ps.created_at,
	u.id, u.external_id, u.email, u.name, u.avatar_url, u.created_at, u.last_login`

func scanShare(row interface{ Scan(...any) error }, share *ProjectShare) error {
	var (
		user   User
		avatar sql.NullString
	)
	if err := row.Scan(&share.ID, &share.ProjectID, &share.UserID, &share.Permission, scanTime(&share.CreatedAt),
		&user.ID, &user.ExternalID, &user.Email, &user.Name, &avatar,
		scanTime(&user.CreatedAt), scanNullTime(&user.LastLogin)); err != nil {
		return err
	}
	user.AvatarURL = nullableString(avatar)
	share.User = &user
	return nil
}

func (s *SQLStore) GetShare(ctx context.Context, projectID, userID int64) (ProjectShare, error) {
	var share ProjectShare
	err := scanShare(s.queryRow(ctx, `
		SELECT `+shareColumns+`
		FROM project_shares ps JOIN users u ON u.id = ps.user_id
		WHERE ps.project_id = ? AND ps.user_id = ?
	`, projectID, userID), &share)
	if err != nil {
		return ProjectShare{}, notFound(err, "share")
	}
	return share, nil
}

func (s *SQLStore) ListShares(ctx context.Context, projectID int64) ([]ProjectShare, error) {
	rows, err := s.query(ctx, `
		SELECT `+shareColumns+`
		FROM project_shares ps JOIN users u ON u.id = ps.user_id
		WHERE ps.project_id = ?
		ORDER BY ps.id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	shares := []ProjectShare{}
	for rows.Next() {
		var share ProjectShare
		if err := scanShare(rows, &share); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, share)
	}
	return shares, rows.Err()
}

func (s *SQLStore) CreateShare(ctx context.Context, share ProjectShare) (ProjectShare, error) {
	share.CreatedAt = s.timestamp()
	id, err := s.insert(ctx, `
		INSERT INTO project_shares (project_id, user_id, permission, created_at) VALUES (?, ?, ?, ?)
	`, share.ProjectID, share.UserID, share.Permission, share.CreatedAt)
	if err != nil {
		return ProjectShare{}, fmt.Errorf("insert share: %w", err)
	}
	share.ID = id
	return share, nil
}

func (s *SQLStore) DeleteShare(ctx context.Context, projectID, userID int64) error {
	return s.execOne(ctx, "share", `DELETE FROM project_shares WHERE project_id = ? AND user_id = ?`, projectID, userID)
}
