package app

import (
	"context"
	"encoding/json"
	"fmt"

	"taskboard/api/internal/access"
	"taskboard/api/internal/apperr"
	"taskboard/api/internal/store"
	"taskboard/api/internal/templates"
)

type TemplateInput struct {
	Name        *string          `json:"name"`
	Description Optional[string] `json:"description"`
	ColorTheme  *string          `json:"color_theme"`
	Data        json.RawMessage  `json:"template_data"`
}

type CaptureInput struct {
	Name        *string          `json:"name"`
	Description Optional[string] `json:"description"`
}

// ApplyInput names the target and overrides for a materialized template.
// ProjectID is required for board and list templates and ignored for
// project templates.
type ApplyInput struct {
	ProjectID   *int64           `json:"project_id"`
	Title       *string          `json:"title"`
	Name        *string          `json:"name"`
	Description Optional[string] `json:"description"`
}

func defaultTemplateColor(kind store.TemplateKind) string {
	if kind == store.TemplateList {
		return defaultListColor
	}
	return defaultBoardColor
}

// normalizeData parses raw for kind and re-encodes it so stored data is
// always well formed. Project data must only reference templates ownerID
// owns.
func normalizeData(ctx context.Context, repo store.Repository, kind store.TemplateKind, ownerID int64, raw json.RawMessage) (json.RawMessage, error) {
	var v any
	switch kind {
	case store.TemplateBoard:
		d, err := templates.ParseBoard(raw)
		if err != nil {
			return nil, err
		}
		if d.Stages == nil {
			d.Stages = []templates.StageSpec{}
		}
		if d.Tasks == nil {
			d.Tasks = []templates.TaskSpec{}
		}
		v = d
	case store.TemplateList:
		d, err := templates.ParseList(raw)
		if err != nil {
			return nil, err
		}
		if d.Items == nil {
			d.Items = []templates.ItemSpec{}
		}
		v = d
	case store.TemplateProject:
		d, err := templates.ParseProject(raw)
		if err != nil {
			return nil, err
		}
		if err := checkReferences(ctx, repo, ownerID, d); err != nil {
			return nil, err
		}
		if d.BoardTemplateIDs == nil {
			d.BoardTemplateIDs = []int64{}
		}
		if d.ListTemplateIDs == nil {
			d.ListTemplateIDs = []int64{}
		}
		v = d
	default:
		return nil, apperr.Validation("unknown template kind %q", kind)
	}
	return templates.Encode(v)
}

func checkReferences(ctx context.Context, repo store.Repository, ownerID int64, d templates.ProjectData) error {
	refs := []struct {
		kind store.TemplateKind
		ids  []int64
	}{
		{store.TemplateBoard, d.BoardTemplateIDs},
		{store.TemplateList, d.ListTemplateIDs},
	}
	for _, ref := range refs {
		for _, id := range ref.ids {
			if _, err := ownedTemplate(ctx, repo, ref.kind, id, ownerID); err != nil {
				if apperr.IsNotFound(err) {
					return apperr.Validation("%s template %d does not exist", ref.kind, id)
				}
				return err
			}
		}
	}
	return nil
}

// ownedTemplate hides templates of other users behind NotFound.
func ownedTemplate(ctx context.Context, repo store.Repository, kind store.TemplateKind, id, ownerID int64) (store.Template, error) {
	tmpl, err := repo.GetTemplate(ctx, kind, id)
	if err != nil {
		return store.Template{}, err
	}
	if tmpl.OwnerID != ownerID {
		return store.Template{}, apperr.NotFound(string(kind) + " template")
	}
	return tmpl, nil
}

func (s *Service) ListTemplates(ctx context.Context, kind store.TemplateKind, ownerID int64) ([]store.Template, error) {
	return s.repo.ListTemplates(ctx, kind, ownerID)
}

func (s *Service) GetTemplate(ctx context.Context, kind store.TemplateKind, id, ownerID int64) (store.Template, error) {
	return ownedTemplate(ctx, s.repo, kind, id, ownerID)
}

func (s *Service) CreateTemplate(ctx context.Context, kind store.TemplateKind, ownerID int64, in TemplateInput) (store.Template, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return store.Template{}, err
	}
	data, err := normalizeData(ctx, s.repo, kind, ownerID, in.Data)
	if err != nil {
		return store.Template{}, err
	}
	return s.repo.CreateTemplate(ctx, store.Template{
		Kind:        kind,
		OwnerID:     ownerID,
		Name:        name,
		Description: in.Description.Value,
		ColorTheme:  orDefault(in.ColorTheme, defaultTemplateColor(kind)),
		Data:        data,
	})
}

func (s *Service) UpdateTemplate(ctx context.Context, kind store.TemplateKind, id, ownerID int64, in TemplateInput) (store.Template, error) {
	tmpl, err := ownedTemplate(ctx, s.repo, kind, id, ownerID)
	if err != nil {
		return store.Template{}, err
	}
	if in.Name != nil {
		if tmpl.Name, err = required("name", in.Name); err != nil {
			return store.Template{}, err
		}
	}
	in.Description.apply(&tmpl.Description)
	if in.ColorTheme != nil {
		tmpl.ColorTheme = orDefault(in.ColorTheme, tmpl.ColorTheme)
	}
	if in.Data != nil {
		if tmpl.Data, err = normalizeData(ctx, s.repo, kind, ownerID, in.Data); err != nil {
			return store.Template{}, err
		}
	}
	return s.repo.UpdateTemplate(ctx, tmpl)
}

// DeleteTemplate removes a template. Deleting a project template also
// deletes the board and list templates it references, skipping any that
// are missing or owned by someone else.
func (s *Service) DeleteTemplate(ctx context.Context, kind store.TemplateKind, id, ownerID int64) error {
	return s.repo.InTx(ctx, func(repo store.Repository) error {
		tmpl, err := ownedTemplate(ctx, repo, kind, id, ownerID)
		if err != nil {
			return err
		}
		if kind == store.TemplateProject {
			data, err := templates.ParseProject(tmpl.Data)
			if err != nil {
				return err
			}
			if err := deleteOwnedChildren(ctx, repo, store.TemplateBoard, data.BoardTemplateIDs, ownerID); err != nil {
				return err
			}
			if err := deleteOwnedChildren(ctx, repo, store.TemplateList, data.ListTemplateIDs, ownerID); err != nil {
				return err
			}
		}
		return repo.DeleteTemplate(ctx, kind, id)
	})
}

func deleteOwnedChildren(ctx context.Context, repo store.Repository, kind store.TemplateKind, ids []int64, ownerID int64) error {
	for _, id := range ids {
		if _, err := ownedTemplate(ctx, repo, kind, id, ownerID); err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return err
		}
		if err := repo.DeleteTemplate(ctx, kind, id); err != nil && !apperr.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func captureBoard(ctx context.Context, repo store.Repository, boardID int64) (store.Board, templates.BoardData, error) {
	board, err := repo.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, templates.BoardData{}, err
	}
	stages, err := repo.ListStages(ctx, boardID)
	if err != nil {
		return store.Board{}, templates.BoardData{}, err
	}
	tasks, err := repo.ListTasks(ctx, boardID, nil)
	if err != nil {
		return store.Board{}, templates.BoardData{}, err
	}
	return board, templates.CaptureBoard(stages, tasks), nil
}

func captureList(ctx context.Context, repo store.Repository, listID int64) (store.List, templates.ListData, error) {
	list, err := repo.GetList(ctx, listID)
	if err != nil {
		return store.List{}, templates.ListData{}, err
	}
	items, err := repo.ListItems(ctx, listID)
	if err != nil {
		return store.List{}, templates.ListData{}, err
	}
	return list, templates.CaptureList(items), nil
}

func saveTemplate(ctx context.Context, repo store.Repository, tmpl store.Template, data any) (store.Template, error) {
	raw, err := templates.Encode(data)
	if err != nil {
		return store.Template{}, fmt.Errorf("encode %s template: %w", tmpl.Kind, err)
	}
	tmpl.Data = raw
	return repo.CreateTemplate(ctx, tmpl)
}

// CaptureBoardTemplate snapshots a live board into a new template owned by
// ownerID.
func (s *Service) CaptureBoardTemplate(ctx context.Context, boardID, ownerID int64, in CaptureInput) (store.Template, error) {
	var tmpl store.Template
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		board, data, err := captureBoard(ctx, repo, boardID)
		if err != nil {
			return err
		}
		description := board.Description
		in.Description.apply(&description)
		tmpl, err = saveTemplate(ctx, repo, store.Template{
			Kind:        store.TemplateBoard,
			OwnerID:     ownerID,
			Name:        orDefault(in.Name, "Template from "+board.Title),
			Description: description,
			ColorTheme:  board.ColorTheme,
		}, data)
		return err
	})
	return tmpl, err
}

func (s *Service) CaptureListTemplate(ctx context.Context, listID, ownerID int64, in CaptureInput) (store.Template, error) {
	var tmpl store.Template
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		list, data, err := captureList(ctx, repo, listID)
		if err != nil {
			return err
		}
		description := list.Description
		in.Description.apply(&description)
		tmpl, err = saveTemplate(ctx, repo, store.Template{
			Kind:        store.TemplateList,
			OwnerID:     ownerID,
			Name:        orDefault(in.Name, "Template from "+list.Title),
			Description: description,
			ColorTheme:  list.ColorTheme,
		}, data)
		return err
	})
	return tmpl, err
}

// CaptureProjectTemplate captures every board and list of a project as new
// templates and composes a project template that references them.
func (s *Service) CaptureProjectTemplate(ctx context.Context, projectID, ownerID int64, in CaptureInput) (store.Template, error) {
	var tmpl store.Template
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		project, err := repo.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		composed := templates.ProjectData{BoardTemplateIDs: []int64{}, ListTemplateIDs: []int64{}}

		boards, err := repo.ListBoards(ctx, projectID)
		if err != nil {
			return err
		}
		for _, b := range boards {
			board, data, err := captureBoard(ctx, repo, b.ID)
			if err != nil {
				return err
			}
			child, err := saveTemplate(ctx, repo, store.Template{
				Kind:        store.TemplateBoard,
				OwnerID:     ownerID,
				Name:        board.Title,
				Description: board.Description,
				ColorTheme:  board.ColorTheme,
			}, data)
			if err != nil {
				return err
			}
			composed.BoardTemplateIDs = append(composed.BoardTemplateIDs, child.ID)
		}

		lists, err := repo.ListLists(ctx, projectID)
		if err != nil {
			return err
		}
		for _, l := range lists {
			list, data, err := captureList(ctx, repo, l.ID)
			if err != nil {
				return err
			}
			child, err := saveTemplate(ctx, repo, store.Template{
				Kind:        store.TemplateList,
				OwnerID:     ownerID,
				Name:        list.Title,
				Description: list.Description,
				ColorTheme:  list.ColorTheme,
			}, data)
			if err != nil {
				return err
			}
			composed.ListTemplateIDs = append(composed.ListTemplateIDs, child.ID)
		}

		description := project.Description
		in.Description.apply(&description)
		tmpl, err = saveTemplate(ctx, repo, store.Template{
			Kind:        store.TemplateProject,
			OwnerID:     ownerID,
			Name:        orDefault(in.Name, "Template from "+project.Name),
			Description: description,
			ColorTheme:  project.ColorTheme,
		}, composed)
		return err
	})
	return tmpl, err
}

// materializeBoard creates a board from template data. A template without
// stages gets the default stages. Tasks whose stage position has no stage
// land in the lowest-position stage.
func materializeBoard(ctx context.Context, repo store.Repository, board store.Board, data templates.BoardData) (BoardDetail, error) {
	board, err := repo.CreateBoard(ctx, board)
	if err != nil {
		return BoardDetail{}, err
	}
	specs := data.Stages
	if len(specs) == 0 {
		specs = templates.DefaultStages
	}
	stages, err := createStages(ctx, repo, board.ID, specs)
	if err != nil {
		return BoardDetail{}, err
	}

	index := templates.NewStageIndex(stages)
	next := make(map[int64]int, len(stages))
	for _, spec := range data.Tasks {
		stageID, ok := index.Resolve(spec.StagePosition)
		if !ok {
			break
		}
		fields := spec.CustomFields
		if len(fields) == 0 {
			fields = json.RawMessage("{}")
		}
		if _, err := repo.CreateTask(ctx, store.Task{
			BoardID:      board.ID,
			StageID:      stageID,
			Title:        spec.Title,
			Description:  spec.Description,
			ColorTheme:   spec.ColorTheme,
			CustomFields: fields,
			Position:     next[stageID],
		}); err != nil {
			return BoardDetail{}, err
		}
		next[stageID]++
	}

	ordered, err := repo.ListStages(ctx, board.ID)
	if err != nil {
		return BoardDetail{}, err
	}
	return BoardDetail{Board: board, Stages: ordered}, nil
}

// materializeList creates a list with every item unchecked.
func materializeList(ctx context.Context, repo store.Repository, list store.List, data templates.ListData) (ListDetail, error) {
	list, err := repo.CreateList(ctx, list)
	if err != nil {
		return ListDetail{}, err
	}
	for _, spec := range data.Items {
		if _, err := repo.CreateItem(ctx, store.ListItem{
			ListID:    list.ID,
			Content:   spec.Content,
			IsChecked: false,
			Position:  spec.Position,
		}); err != nil {
			return ListDetail{}, err
		}
	}
	items, err := repo.ListItems(ctx, list.ID)
	if err != nil {
		return ListDetail{}, err
	}
	return ListDetail{List: list, Items: items}, nil
}

// applyTarget checks that userID may add content to the project named in
// the apply request.
func (s *Service) applyTarget(ctx context.Context, userID int64, in ApplyInput) (int64, error) {
	if in.ProjectID == nil {
		return 0, apperr.Validation("project_id is required")
	}
	if _, _, err := s.access.Authorize(ctx, access.Resource{Kind: access.KindProject, ID: *in.ProjectID}, userID, access.ActionWrite); err != nil {
		return 0, err
	}
	return *in.ProjectID, nil
}

func (s *Service) ApplyBoardTemplate(ctx context.Context, templateID, userID int64, in ApplyInput) (BoardDetail, error) {
	projectID, err := s.applyTarget(ctx, userID, in)
	if err != nil {
		return BoardDetail{}, err
	}
	var detail BoardDetail
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		tmpl, err := ownedTemplate(ctx, repo, store.TemplateBoard, templateID, userID)
		if err != nil {
			return err
		}
		data, err := templates.ParseBoard(tmpl.Data)
		if err != nil {
			return err
		}
		description := tmpl.Description
		in.Description.apply(&description)
		detail, err = materializeBoard(ctx, repo, store.Board{
			ProjectID:   projectID,
			Title:       orDefault(in.Title, tmpl.Name),
			Description: description,
			ColorTheme:  tmpl.ColorTheme,
		}, data)
		return err
	})
	return detail, err
}

func (s *Service) ApplyListTemplate(ctx context.Context, templateID, userID int64, in ApplyInput) (ListDetail, error) {
	projectID, err := s.applyTarget(ctx, userID, in)
	if err != nil {
		return ListDetail{}, err
	}
	var detail ListDetail
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		tmpl, err := ownedTemplate(ctx, repo, store.TemplateList, templateID, userID)
		if err != nil {
			return err
		}
		data, err := templates.ParseList(tmpl.Data)
		if err != nil {
			return err
		}
		description := tmpl.Description
		in.Description.apply(&description)
		detail, err = materializeList(ctx, repo, store.List{
			ProjectID:   projectID,
			Title:       orDefault(in.Title, tmpl.Name),
			Description: description,
			ColorTheme:  tmpl.ColorTheme,
		}, data)
		return err
	})
	return detail, err
}

// ApplyProjectTemplate creates a new project owned by userID holding one
// board or list per referenced template. Any failure rolls back the whole
// project.
func (s *Service) ApplyProjectTemplate(ctx context.Context, templateID, userID int64, in ApplyInput) (ProjectDetail, error) {
	var detail ProjectDetail
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		tmpl, err := ownedTemplate(ctx, repo, store.TemplateProject, templateID, userID)
		if err != nil {
			return err
		}
		data, err := templates.ParseProject(tmpl.Data)
		if err != nil {
			return err
		}
		description := tmpl.Description
		in.Description.apply(&description)
		name := orDefault(in.Name, orDefault(in.Title, tmpl.Name))
		project, err := repo.CreateProject(ctx, store.Project{
			OwnerID:     userID,
			Name:        name,
			Description: description,
			ColorTheme:  tmpl.ColorTheme,
		})
		if err != nil {
			return err
		}
		detail = ProjectDetail{Project: project, Boards: []store.Board{}, Lists: []store.List{}}

		for _, id := range data.BoardTemplateIDs {
			child, err := ownedTemplate(ctx, repo, store.TemplateBoard, id, userID)
			if err != nil {
				return err
			}
			boardData, err := templates.ParseBoard(child.Data)
			if err != nil {
				return err
			}
			board, err := materializeBoard(ctx, repo, store.Board{
				ProjectID:   project.ID,
				Title:       child.Name,
				Description: child.Description,
				ColorTheme:  child.ColorTheme,
			}, boardData)
			if err != nil {
				return err
			}
			detail.Boards = append(detail.Boards, board.Board)
		}

		for _, id := range data.ListTemplateIDs {
			child, err := ownedTemplate(ctx, repo, store.TemplateList, id, userID)
			if err != nil {
				return err
			}
			listData, err := templates.ParseList(child.Data)
			if err != nil {
				return err
			}
			list, err := materializeList(ctx, repo, store.List{
				ProjectID:   project.ID,
				Title:       child.Name,
				Description: child.Description,
				ColorTheme:  child.ColorTheme,
			}, listData)
			if err != nil {
				return err
			}
			detail.Lists = append(detail.Lists, list.List)
		}
		return nil
	})
	return detail, err
}

// SeedDefaultTemplates stores the starter catalog as templates owned by
// userID and returns the project templates created.
func (s *Service) SeedDefaultTemplates(ctx context.Context, userID int64) ([]store.Template, error) {
	var seeded []store.Template
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		var err error
		seeded, err = seedCatalog(ctx, repo, userID)
		return err
	})
	return seeded, err
}

func seedCatalog(ctx context.Context, repo store.Repository, userID int64) ([]store.Template, error) {
	catalog, err := templates.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	seeded := make([]store.Template, 0, len(catalog.Projects))
	for _, p := range catalog.Projects {
		composed := templates.ProjectData{BoardTemplateIDs: []int64{}, ListTemplateIDs: []int64{}}
		for _, b := range p.Boards {
			description := b.Description
			child, err := saveTemplate(ctx, repo, store.Template{
				Kind:        store.TemplateBoard,
				OwnerID:     userID,
				Name:        b.Name,
				Description: &description,
				ColorTheme:  b.ColorTheme,
			}, b.Data())
			if err != nil {
				return nil, err
			}
			composed.BoardTemplateIDs = append(composed.BoardTemplateIDs, child.ID)
		}
		for _, l := range p.Lists {
			child, err := saveTemplate(ctx, repo, store.Template{
				Kind:       store.TemplateList,
				OwnerID:    userID,
				Name:       l.Name,
				ColorTheme: l.ColorTheme,
			}, l.Data())
			if err != nil {
				return nil, err
			}
			composed.ListTemplateIDs = append(composed.ListTemplateIDs, child.ID)
		}
		description := p.Description
		tmpl, err := saveTemplate(ctx, repo, store.Template{
			Kind:        store.TemplateProject,
			OwnerID:     userID,
			Name:        p.Name,
			Description: &description,
			ColorTheme:  p.ColorTheme,
		}, composed)
		if err != nil {
			return nil, err
		}
		seeded = append(seeded, tmpl)
	}
	return seeded, nil
}
