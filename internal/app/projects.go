package app

import (
	"context"
	"strings"

	"taskboard/api/internal/access"
	"taskboard/api/internal/apperr"
	"taskboard/api/internal/notify"
	"taskboard/api/internal/store"
)

const defaultProjectColor = "blue"

type ProjectInput struct {
	Name        *string          `json:"name"`
	Description Optional[string] `json:"description"`
	ColorTheme  *string          `json:"color_theme"`
}

type ProjectDetail struct {
	store.Project
	Boards []store.Board `json:"boards"`
	Lists  []store.List  `json:"lists"`
	Access *access.Grant `json:"access,omitempty"`
}

type Member struct {
	User       store.User `json:"user"`
	Role       string     `json:"role"`
	Permission string     `json:"permission"`
}

type ShareInput struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

func (s *Service) ListProjects(ctx context.Context, userID int64) (Grouped[store.Project], error) {
	owned, err := s.repo.ListOwnedProjects(ctx, userID)
	if err != nil {
		return Grouped[store.Project]{}, err
	}
	shared, err := s.repo.ListSharedProjects(ctx, userID)
	if err != nil {
		return Grouped[store.Project]{}, err
	}
	return Grouped[store.Project]{Owned: owned, Shared: shared}, nil
}

func (s *Service) CreateProject(ctx context.Context, ownerID int64, in ProjectInput) (store.Project, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return store.Project{}, err
	}
	return s.repo.CreateProject(ctx, store.Project{
		OwnerID:     ownerID,
		Name:        name,
		Description: in.Description.Value,
		ColorTheme:  orDefault(in.ColorTheme, defaultProjectColor),
	})
}

func (s *Service) GetProject(ctx context.Context, id int64) (ProjectDetail, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	boards, err := s.repo.ListBoards(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	lists, err := s.repo.ListLists(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	return ProjectDetail{Project: project, Boards: boards, Lists: lists}, nil
}

func (s *Service) UpdateProject(ctx context.Context, id int64, in ProjectInput) (store.Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return store.Project{}, err
	}
	if in.Name != nil {
		if project.Name, err = required("name", in.Name); err != nil {
			return store.Project{}, err
		}
	}
	in.Description.apply(&project.Description)
	if in.ColorTheme != nil {
		project.ColorTheme = orDefault(in.ColorTheme, project.ColorTheme)
	}
	return s.repo.UpdateProject(ctx, project)
}

// DeleteProject removes the project with its boards, lists and shares.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.repo.InTx(ctx, func(repo store.Repository) error {
		return repo.DeleteProject(ctx, id)
	})
}

// ListMembers returns the owner followed by every shared user.
func (s *Service) ListMembers(ctx context.Context, project store.Project) ([]Member, error) {
	owner, err := s.repo.GetUser(ctx, project.OwnerID)
	if err != nil {
		return nil, err
	}
	shares, err := s.repo.ListShares(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	members := []Member{{User: owner, Role: string(access.LevelOwner), Permission: string(access.PermissionEdit)}}
	for _, share := range shares {
		if share.User == nil {
			continue
		}
		members = append(members, Member{
			User:       *share.User,
			Role:       string(access.LevelShared),
			Permission: string(access.NormalizePermission(share.Permission)),
		})
	}
	return members, nil
}

func (s *Service) ListShares(ctx context.Context, projectID int64) ([]store.ProjectShare, error) {
	return s.repo.ListShares(ctx, projectID)
}

// CreateShare grants the user registered under in.Email access to project.
// The invitee is notified after the share commits; delivery problems are
// logged only.
func (s *Service) CreateShare(ctx context.Context, project store.Project, actor store.User, in ShareInput) (store.ProjectShare, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return store.ProjectShare{}, apperr.Validation("email is required")
	}
	permission := strings.TrimSpace(in.Permission)
	if permission == "" {
		permission = string(access.PermissionView)
	}
	if !access.ValidPermission(permission) {
		return store.ProjectShare{}, apperr.Validation("permission must be view or edit")
	}

	invitee, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return store.ProjectShare{}, err
	}
	if invitee.ID == project.OwnerID {
		return store.ProjectShare{}, apperr.Validation("cannot share a project with its owner")
	}

	var share store.ProjectShare
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		_, err := repo.GetShare(ctx, project.ID, invitee.ID)
		switch {
		case err == nil:
			return apperr.Validation("project is already shared with %s", invitee.Email)
		case !apperr.IsNotFound(err):
			return err
		}
		share, err = repo.CreateShare(ctx, store.ProjectShare{
			ProjectID:  project.ID,
			UserID:     invitee.ID,
			Permission: permission,
		})
		return err
	})
	if err != nil {
		return store.ProjectShare{}, err
	}
	share.User = &invitee

	invite := notify.ShareInvite{
		To:          invitee.Email,
		InviteeName: invitee.Name,
		OwnerName:   actor.Name,
		ProjectName: project.Name,
		Permission:  permission,
	}
	if err := s.notifier.ShareInvite(ctx, invite); err != nil {
		s.logger.Warn("share invite not delivered", "project_id", project.ID, "user_id", invitee.ID, "error", err)
	}
	return share, nil
}

func (s *Service) DeleteShare(ctx context.Context, projectID, userID int64) error {
	return s.repo.DeleteShare(ctx, projectID, userID)
}
