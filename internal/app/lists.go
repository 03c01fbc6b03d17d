package app

import (
	"context"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/position"
	"taskboard/api/internal/store"
)

const defaultListColor = "gray"

type ListInput struct {
	Title       *string          `json:"title"`
	Description Optional[string] `json:"description"`
	ColorTheme  *string          `json:"color_theme"`
}

type ListDetail struct {
	store.List
	Items []store.ListItem `json:"items"`
}

type ItemInput struct {
	Content    *string         `json:"content"`
	IsChecked  *bool           `json:"is_checked"`
	AssignedTo Optional[int64] `json:"assigned_to"`
}

func (s *Service) ListAccessibleLists(ctx context.Context, userID int64) (Grouped[store.List], error) {
	projects, err := s.ListProjects(ctx, userID)
	if err != nil {
		return Grouped[store.List]{}, err
	}
	out := Grouped[store.List]{Owned: []store.List{}, Shared: []store.List{}}
	for _, p := range projects.Owned {
		lists, err := s.repo.ListLists(ctx, p.ID)
		if err != nil {
			return Grouped[store.List]{}, err
		}
		out.Owned = append(out.Owned, lists...)
	}
	for _, p := range projects.Shared {
		lists, err := s.repo.ListLists(ctx, p.ID)
		if err != nil {
			return Grouped[store.List]{}, err
		}
		out.Shared = append(out.Shared, lists...)
	}
	return out, nil
}

func (s *Service) ListProjectLists(ctx context.Context, projectID int64) ([]store.List, error) {
	return s.repo.ListLists(ctx, projectID)
}

func (s *Service) CreateList(ctx context.Context, projectID int64, in ListInput) (store.List, error) {
	title, err := required("title", in.Title)
	if err != nil {
		return store.List{}, err
	}
	return s.repo.CreateList(ctx, store.List{
		ProjectID:   projectID,
		Title:       title,
		Description: in.Description.Value,
		ColorTheme:  orDefault(in.ColorTheme, defaultListColor),
	})
}

func (s *Service) GetList(ctx context.Context, id int64) (ListDetail, error) {
	list, err := s.repo.GetList(ctx, id)
	if err != nil {
		return ListDetail{}, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return ListDetail{}, err
	}
	return ListDetail{List: list, Items: items}, nil
}

func (s *Service) UpdateList(ctx context.Context, id int64, in ListInput) (store.List, error) {
	list, err := s.repo.GetList(ctx, id)
	if err != nil {
		return store.List{}, err
	}
	if in.Title != nil {
		if list.Title, err = required("title", in.Title); err != nil {
			return store.List{}, err
		}
	}
	in.Description.apply(&list.Description)
	if in.ColorTheme != nil {
		list.ColorTheme = orDefault(in.ColorTheme, list.ColorTheme)
	}
	return s.repo.UpdateList(ctx, list)
}

func (s *Service) DeleteList(ctx context.Context, id int64) error {
	return s.repo.InTx(ctx, func(repo store.Repository) error {
		return repo.DeleteList(ctx, id)
	})
}

func (s *Service) ListItems(ctx context.Context, listID int64) ([]store.ListItem, error) {
	return s.repo.ListItems(ctx, listID)
}

// checkAssignee requires userID to be the owner or a shared member of the
// project that holds listID.
func checkAssignee(ctx context.Context, repo store.Repository, listID, userID int64) error {
	list, err := repo.GetList(ctx, listID)
	if err != nil {
		return err
	}
	project, err := repo.GetProject(ctx, list.ProjectID)
	if err != nil {
		return err
	}
	if project.OwnerID == userID {
		return nil
	}
	if _, err := repo.GetShare(ctx, project.ID, userID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Validation("assignee %d is not a member of this project", userID)
		}
		return err
	}
	return nil
}

func (s *Service) CreateItem(ctx context.Context, listID int64, in ItemInput) (store.ListItem, error) {
	content, err := required("content", in.Content)
	if err != nil {
		return store.ListItem{}, err
	}
	var item store.ListItem
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		if in.AssignedTo.Value != nil {
			if err := checkAssignee(ctx, repo, listID, *in.AssignedTo.Value); err != nil {
				return err
			}
		}
		max, err := repo.MaxPosition(ctx, store.ScopeItems, listID)
		if err != nil {
			return err
		}
		item, err = repo.CreateItem(ctx, store.ListItem{
			ListID:     listID,
			Content:    content,
			IsChecked:  in.IsChecked != nil && *in.IsChecked,
			Position:   position.Next(max),
			AssignedTo: in.AssignedTo.Value,
		})
		return err
	})
	return item, err
}

func (s *Service) UpdateItem(ctx context.Context, id int64, in ItemInput) (store.ListItem, error) {
	var item store.ListItem
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		var err error
		if item, err = repo.GetItem(ctx, id); err != nil {
			return err
		}
		if in.Content != nil {
			if item.Content, err = required("content", in.Content); err != nil {
				return err
			}
		}
		if in.IsChecked != nil {
			item.IsChecked = *in.IsChecked
		}
		if in.AssignedTo.Value != nil {
			if err := checkAssignee(ctx, repo, item.ListID, *in.AssignedTo.Value); err != nil {
				return err
			}
		}
		in.AssignedTo.apply(&item.AssignedTo)
		item, err = repo.UpdateItem(ctx, item)
		return err
	})
	return item, err
}

func (s *Service) ToggleItem(ctx context.Context, id int64) (store.ListItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return store.ListItem{}, err
	}
	item.IsChecked = !item.IsChecked
	return s.repo.UpdateItem(ctx, item)
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}

// ReorderItem moves an item within its list using the same band shift as
// stages.
func (s *Service) ReorderItem(ctx context.Context, id int64, in ReorderInput) ([]store.ListItem, error) {
	if in.Position == nil {
		return nil, apperr.Validation("position is required")
	}
	var items []store.ListItem
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		item, err := repo.GetItem(ctx, id)
		if err != nil {
			return err
		}
		if err := reorder(ctx, repo, store.ScopeItems, item.ListID, item.ID, item.Position, *in.Position); err != nil {
			return err
		}
		items, err = repo.ListItems(ctx, item.ListID)
		return err
	})
	return items, err
}
