// Package access resolves what a user may do with a project and everything
// beneath it. Grants exist only at the project level; boards, stages, tasks,
// lists and list items inherit the grant of their owning project.
package access

import (
	"context"
	"fmt"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/store"
)

type Level string

const (
	LevelOwner  Level = "owner"
	LevelShared Level = "shared"
	LevelNone   Level = "none"
)

type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// NormalizePermission maps unknown or empty values to view.
func NormalizePermission(p string) Permission {
	if Permission(p) == PermissionEdit {
		return PermissionEdit
	}
	return PermissionView
}

func ValidPermission(p string) bool {
	return Permission(p) == PermissionView || Permission(p) == PermissionEdit
}

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
	ActionShare  Action = "share"
)

// Grant is the resolved access of one user to one project. Permission is
// only meaningful for the shared level; owners always edit.
type Grant struct {
	Level      Level      `json:"level"`
	Permission Permission `json:"permission"`
}

var (
	OwnerGrant = Grant{Level: LevelOwner, Permission: PermissionEdit}
	NoGrant    = Grant{Level: LevelNone}
)

func Can(grant Grant, action Action) bool {
	switch grant.Level {
	case LevelOwner:
		return true
	case LevelShared:
		switch action {
		case ActionRead:
			return true
		case ActionWrite:
			return grant.Permission == PermissionEdit
		default:
			return false
		}
	default:
		return false
	}
}

// Require returns a Forbidden error when grant does not allow action.
func Require(grant Grant, action Action) error {
	if Can(grant, action) {
		return nil
	}
	switch {
	case grant.Level == LevelNone:
		return apperr.Forbidden("access denied")
	case action == ActionDelete || action == ActionShare:
		return apperr.Forbidden("only the owner can perform this action")
	default:
		return apperr.Forbidden("edit permission required")
	}
}

// Resolve computes the grant from ownership and an optional share row.
func Resolve(ownerID, userID int64, share *store.ProjectShare) Grant {
	if ownerID == userID {
		return OwnerGrant
	}
	if share != nil {
		return Grant{Level: LevelShared, Permission: NormalizePermission(share.Permission)}
	}
	return NoGrant
}

type Kind string

const (
	KindProject  Kind = "project"
	KindBoard    Kind = "board"
	KindStage    Kind = "stage"
	KindTask     Kind = "task"
	KindList     Kind = "list"
	KindListItem Kind = "list_item"
)

type Resource struct {
	Kind Kind
	ID   int64
}

// Source is the lookup surface the evaluator walks.
type Source interface {
	GetProject(ctx context.Context, id int64) (store.Project, error)
	GetShare(ctx context.Context, projectID, userID int64) (store.ProjectShare, error)
	GetBoard(ctx context.Context, id int64) (store.Board, error)
	GetStage(ctx context.Context, id int64) (store.Stage, error)
	GetTask(ctx context.Context, id int64) (store.Task, error)
	GetList(ctx context.Context, id int64) (store.List, error)
	GetItem(ctx context.Context, id int64) (store.ListItem, error)
}

type Evaluator struct {
	src Source
}

func NewEvaluator(src Source) *Evaluator {
	return &Evaluator{src: src}
}

// ProjectOf walks from r up to its owning project id. A missing resource is
// NotFound, never a denial.
func (e *Evaluator) ProjectOf(ctx context.Context, r Resource) (int64, error) {
	switch r.Kind {
	case KindProject:
		return r.ID, nil
	case KindBoard:
		board, err := e.src.GetBoard(ctx, r.ID)
		if err != nil {
			return 0, err
		}
		return board.ProjectID, nil
	case KindStage:
		stage, err := e.src.GetStage(ctx, r.ID)
		if err != nil {
			return 0, err
		}
		return e.ProjectOf(ctx, Resource{Kind: KindBoard, ID: stage.BoardID})
	case KindTask:
		task, err := e.src.GetTask(ctx, r.ID)
		if err != nil {
			return 0, err
		}
		return e.ProjectOf(ctx, Resource{Kind: KindBoard, ID: task.BoardID})
	case KindList:
		list, err := e.src.GetList(ctx, r.ID)
		if err != nil {
			return 0, err
		}
		return list.ProjectID, nil
	case KindListItem:
		item, err := e.src.GetItem(ctx, r.ID)
		if err != nil {
			return 0, err
		}
		return e.ProjectOf(ctx, Resource{Kind: KindList, ID: item.ListID})
	default:
		return 0, fmt.Errorf("access: unknown resource kind %q", r.Kind)
	}
}

// Evaluate returns the grant userID holds on r together with the owning
// project.
func (e *Evaluator) Evaluate(ctx context.Context, r Resource, userID int64) (Grant, store.Project, error) {
	projectID, err := e.ProjectOf(ctx, r)
	if err != nil {
		return NoGrant, store.Project{}, err
	}
	project, err := e.src.GetProject(ctx, projectID)
	if err != nil {
		return NoGrant, store.Project{}, err
	}
	if project.OwnerID == userID {
		return OwnerGrant, project, nil
	}

	share, err := e.src.GetShare(ctx, project.ID, userID)
	switch {
	case err == nil:
		return Resolve(project.OwnerID, userID, &share), project, nil
	case apperr.IsNotFound(err):
		return NoGrant, project, nil
	default:
		return NoGrant, store.Project{}, err
	}
}

// Authorize evaluates r and fails with Forbidden unless action is allowed.
func (e *Evaluator) Authorize(ctx context.Context, r Resource, userID int64, action Action) (Grant, store.Project, error) {
	grant, project, err := e.Evaluate(ctx, r, userID)
	if err != nil {
		return NoGrant, store.Project{}, err
	}
	if err := Require(grant, action); err != nil {
		return grant, project, err
	}
	return grant, project, nil
}
