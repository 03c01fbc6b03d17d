package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/store"
)

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		grant  Grant
		action Action
		allow  bool
	}{
		{name: "owner read", grant: OwnerGrant, action: ActionRead, allow: true},
		{name: "owner delete", grant: OwnerGrant, action: ActionDelete, allow: true},
		{name: "owner share", grant: OwnerGrant, action: ActionShare, allow: true},
		{name: "viewer read", grant: Grant{Level: LevelShared, Permission: PermissionView}, action: ActionRead, allow: true},
		{name: "viewer write", grant: Grant{Level: LevelShared, Permission: PermissionView}, action: ActionWrite, allow: false},
		{name: "editor write", grant: Grant{Level: LevelShared, Permission: PermissionEdit}, action: ActionWrite, allow: true},
		{name: "editor delete", grant: Grant{Level: LevelShared, Permission: PermissionEdit}, action: ActionDelete, allow: false},
		{name: "editor share", grant: Grant{Level: LevelShared, Permission: PermissionEdit}, action: ActionShare, allow: false},
		{name: "none read", grant: NoGrant, action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.grant, tc.action); got != tc.allow {
				t.Fatalf("Can(%+v, %q) = %v, want %v", tc.grant, tc.action, got, tc.allow)
			}
		})
	}
}

func TestRequireIsForbidden(t *testing.T) {
	err := Require(Grant{Level: LevelShared, Permission: PermissionEdit}, ActionDelete)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.NoError(t, Require(OwnerGrant, ActionDelete))
}

func TestResolveOwnerIgnoresShares(t *testing.T) {
	share := &store.ProjectShare{Permission: "view"}
	assert.Equal(t, OwnerGrant, Resolve(1, 1, share))
	assert.Equal(t, OwnerGrant, Resolve(1, 1, nil))
	assert.Equal(t, Grant{Level: LevelShared, Permission: PermissionView}, Resolve(1, 2, share))
	assert.Equal(t, Grant{Level: LevelShared, Permission: PermissionView}, Resolve(1, 2, &store.ProjectShare{}))
	assert.Equal(t, NoGrant, Resolve(1, 2, nil))
}

type fakeSource struct {
	projects map[int64]store.Project
	shares   map[[2]int64]store.ProjectShare
	boards   map[int64]store.Board
	stages   map[int64]store.Stage
	tasks    map[int64]store.Task
	lists    map[int64]store.List
	items    map[int64]store.ListItem
	shareErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		projects: map[int64]store.Project{10: {ID: 10, OwnerID: 1}},
		shares:   map[[2]int64]store.ProjectShare{{10, 2}: {ProjectID: 10, UserID: 2, Permission: "edit"}, {10, 3}: {ProjectID: 10, UserID: 3, Permission: "view"}},
		boards:   map[int64]store.Board{20: {ID: 20, ProjectID: 10}},
		stages:   map[int64]store.Stage{30: {ID: 30, BoardID: 20}},
		tasks:    map[int64]store.Task{40: {ID: 40, BoardID: 20, StageID: 30}},
		lists:    map[int64]store.List{50: {ID: 50, ProjectID: 10}},
		items:    map[int64]store.ListItem{60: {ID: 60, ListID: 50}},
	}
}

func lookup[T any](m map[int64]T, id int64, name string) (T, error) {
	v, ok := m[id]
	if !ok {
		var zero T
		return zero, apperr.NotFound(name)
	}
	return v, nil
}

func (f *fakeSource) GetProject(_ context.Context, id int64) (store.Project, error) {
	return lookup(f.projects, id, "project")
}

func (f *fakeSource) GetShare(_ context.Context, projectID, userID int64) (store.ProjectShare, error) {
	if f.shareErr != nil {
		return store.ProjectShare{}, f.shareErr
	}
	share, ok := f.shares[[2]int64{projectID, userID}]
	if !ok {
		return store.ProjectShare{}, apperr.NotFound("share")
	}
	return share, nil
}

func (f *fakeSource) GetBoard(_ context.Context, id int64) (store.Board, error) {
	return lookup(f.boards, id, "board")
}

func (f *fakeSource) GetStage(_ context.Context, id int64) (store.Stage, error) {
	return lookup(f.stages, id, "stage")
}

func (f *fakeSource) GetTask(_ context.Context, id int64) (store.Task, error) {
	return lookup(f.tasks, id, "task")
}

func (f *fakeSource) GetList(_ context.Context, id int64) (store.List, error) {
	return lookup(f.lists, id, "list")
}

func (f *fakeSource) GetItem(_ context.Context, id int64) (store.ListItem, error) {
	return lookup(f.items, id, "list item")
}

func TestEvaluateWalksToProject(t *testing.T) {
	e := NewEvaluator(newFakeSource())
	ctx := context.Background()

	resources := []Resource{
		{Kind: KindProject, ID: 10},
		{Kind: KindBoard, ID: 20},
		{Kind: KindStage, ID: 30},
		{Kind: KindTask, ID: 40},
		{Kind: KindList, ID: 50},
		{Kind: KindListItem, ID: 60},
	}
	for _, r := range resources {
		t.Run(string(r.Kind), func(t *testing.T) {
			grant, project, err := e.Evaluate(ctx, r, 1)
			require.NoError(t, err)
			assert.Equal(t, OwnerGrant, grant)
			assert.Equal(t, int64(10), project.ID)

			grant, _, err = e.Evaluate(ctx, r, 2)
			require.NoError(t, err)
			assert.Equal(t, Grant{Level: LevelShared, Permission: PermissionEdit}, grant)

			grant, _, err = e.Evaluate(ctx, r, 3)
			require.NoError(t, err)
			assert.Equal(t, Grant{Level: LevelShared, Permission: PermissionView}, grant)

			grant, _, err = e.Evaluate(ctx, r, 4)
			require.NoError(t, err)
			assert.Equal(t, NoGrant, grant)
		})
	}
}

func TestOwnerAlwaysOwnerRegardlessOfShares(t *testing.T) {
	src := newFakeSource()
	src.shares[[2]int64{10, 1}] = store.ProjectShare{ProjectID: 10, UserID: 1, Permission: "view"}
	grant, _, err := NewEvaluator(src).Evaluate(context.Background(), Resource{Kind: KindTask, ID: 40}, 1)
	require.NoError(t, err)
	assert.Equal(t, LevelOwner, grant.Level)
}

func TestEvaluateMissingIsNotFound(t *testing.T) {
	e := NewEvaluator(newFakeSource())
	_, _, err := e.Evaluate(context.Background(), Resource{Kind: KindTask, ID: 999}, 1)
	assert.True(t, apperr.IsNotFound(err))
	assert.False(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestEvaluateSurfacesShareLookupFailure(t *testing.T) {
	src := newFakeSource()
	src.shareErr = errors.New("db down")
	_, _, err := NewEvaluator(src).Evaluate(context.Background(), Resource{Kind: KindBoard, ID: 20}, 2)
	require.Error(t, err)
	assert.False(t, apperr.IsNotFound(err))
}

func TestAuthorize(t *testing.T) {
	e := NewEvaluator(newFakeSource())
	ctx := context.Background()

	_, _, err := e.Authorize(ctx, Resource{Kind: KindBoard, ID: 20}, 3, ActionWrite)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, _, err = e.Authorize(ctx, Resource{Kind: KindBoard, ID: 20}, 2, ActionWrite)
	assert.NoError(t, err)

	_, _, err = e.Authorize(ctx, Resource{Kind: KindBoard, ID: 20}, 2, ActionDelete)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, _, err = e.Authorize(ctx, Resource{Kind: KindProject, ID: 10}, 4, ActionRead)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}
