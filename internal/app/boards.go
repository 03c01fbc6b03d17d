package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/position"
	"taskboard/api/internal/store"
	"taskboard/api/internal/templates"
)

const defaultBoardColor = "blue"

type BoardInput struct {
	Title       *string          `json:"title"`
	Description Optional[string] `json:"description"`
	ColorTheme  *string          `json:"color_theme"`
	// Stages, when present, replaces the board's stage set.
	Stages *[]StagePatch `json:"stages"`
}

type BoardDetail struct {
	store.Board
	Stages []store.Stage `json:"stages"`
	// RetainedStageIDs lists stages a reconciliation was asked to drop but
	// kept because they still hold tasks.
	RetainedStageIDs []int64 `json:"retained_stage_ids,omitempty"`
}

type StageFields struct {
	Name     *string `json:"name"`
	Position *int    `json:"position"`
	Color    *string `json:"color"`
}

// NewStage is a reconciliation entry without a server id.
type NewStage struct {
	StageFields
}

// ExistingStage updates the stage with ID in place.
type ExistingStage struct {
	ID int64
	StageFields
}

// StagePatch is one entry of a stage reconciliation. Exactly one of New and
// Existing is set.
type StagePatch struct {
	New      *NewStage
	Existing *ExistingStage
}

// UnmarshalJSON classifies an entry by its id: absent, null or a
// non-numeric client placeholder means new, an integer means existing.
func (p *StagePatch) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID json.RawMessage `json:"id"`
		StageFields
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id := bytes.TrimSpace(raw.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		*p = StagePatch{New: &NewStage{StageFields: raw.StageFields}}
		return nil
	}

	var asString string
	if err := json.Unmarshal(id, &asString); err == nil {
		n, convErr := strconv.ParseInt(asString, 10, 64)
		if convErr != nil {
			*p = StagePatch{New: &NewStage{StageFields: raw.StageFields}}
			return nil
		}
		*p = StagePatch{Existing: &ExistingStage{ID: n, StageFields: raw.StageFields}}
		return nil
	}

	var n int64
	if err := json.Unmarshal(id, &n); err != nil {
		return apperr.Validation("stage id must be an integer or a placeholder string")
	}
	*p = StagePatch{Existing: &ExistingStage{ID: n, StageFields: raw.StageFields}}
	return nil
}

func (p StagePatch) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID *int64 `json:"id"`
		StageFields
	}
	if p.Existing != nil {
		return json.Marshal(wire{ID: &p.Existing.ID, StageFields: p.Existing.StageFields})
	}
	if p.New != nil {
		return json.Marshal(wire{StageFields: p.New.StageFields})
	}
	return []byte("null"), nil
}

type StageInput struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type ReorderInput struct {
	Position *int `json:"position"`
}

// ListAccessibleBoards returns every board the user can reach, grouped by
// whether the owning project is theirs.
func (s *Service) ListAccessibleBoards(ctx context.Context, userID int64) (Grouped[store.Board], error) {
	projects, err := s.ListProjects(ctx, userID)
	if err != nil {
		return Grouped[store.Board]{}, err
	}
	out := Grouped[store.Board]{Owned: []store.Board{}, Shared: []store.Board{}}
	for _, p := range projects.Owned {
		boards, err := s.repo.ListBoards(ctx, p.ID)
		if err != nil {
			return Grouped[store.Board]{}, err
		}
		out.Owned = append(out.Owned, boards...)
	}
	for _, p := range projects.Shared {
		boards, err := s.repo.ListBoards(ctx, p.ID)
		if err != nil {
			return Grouped[store.Board]{}, err
		}
		out.Shared = append(out.Shared, boards...)
	}
	return out, nil
}

func (s *Service) ListProjectBoards(ctx context.Context, projectID int64) ([]store.Board, error) {
	return s.repo.ListBoards(ctx, projectID)
}

// CreateBoard creates a board together with its default stages in one
// transaction.
func (s *Service) CreateBoard(ctx context.Context, projectID int64, in BoardInput) (BoardDetail, error) {
	title, err := required("title", in.Title)
	if err != nil {
		return BoardDetail{}, err
	}
	var detail BoardDetail
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		board, err := repo.CreateBoard(ctx, store.Board{
			ProjectID:   projectID,
			Title:       title,
			Description: in.Description.Value,
			ColorTheme:  orDefault(in.ColorTheme, defaultBoardColor),
		})
		if err != nil {
			return err
		}
		stages, err := createStages(ctx, repo, board.ID, templates.DefaultStages)
		if err != nil {
			return err
		}
		detail = BoardDetail{Board: board, Stages: stages}
		return nil
	})
	return detail, err
}

func createStages(ctx context.Context, repo store.Repository, boardID int64, specs []templates.StageSpec) ([]store.Stage, error) {
	stages := make([]store.Stage, 0, len(specs))
	for _, spec := range specs {
		st, err := repo.CreateStage(ctx, store.Stage{
			BoardID:  boardID,
			Name:     spec.Name,
			Position: spec.Position,
			Color:    spec.Color,
		})
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func (s *Service) GetBoard(ctx context.Context, id int64) (BoardDetail, error) {
	board, err := s.repo.GetBoard(ctx, id)
	if err != nil {
		return BoardDetail{}, err
	}
	stages, err := s.repo.ListStages(ctx, id)
	if err != nil {
		return BoardDetail{}, err
	}
	return BoardDetail{Board: board, Stages: stages}, nil
}

// UpdateBoard applies the supplied scalar fields and, when in.Stages is
// present, reconciles the stage set against it. Stages left out of the
// incoming set are deleted unless they still hold tasks; those are kept and
// reported in RetainedStageIDs.
func (s *Service) UpdateBoard(ctx context.Context, id int64, in BoardInput) (BoardDetail, error) {
	var detail BoardDetail
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		board, err := repo.GetBoard(ctx, id)
		if err != nil {
			return err
		}
		if in.Title != nil {
			if board.Title, err = required("title", in.Title); err != nil {
				return err
			}
		}
		in.Description.apply(&board.Description)
		if in.ColorTheme != nil {
			board.ColorTheme = orDefault(in.ColorTheme, board.ColorTheme)
		}
		if board, err = repo.UpdateBoard(ctx, board); err != nil {
			return err
		}
		detail.Board = board

		if in.Stages != nil {
			if detail.RetainedStageIDs, err = reconcileStages(ctx, repo, id, *in.Stages); err != nil {
				return err
			}
		}
		detail.Stages, err = repo.ListStages(ctx, id)
		return err
	})
	if err != nil {
		return BoardDetail{}, err
	}
	return detail, nil
}

func reconcileStages(ctx context.Context, repo store.Repository, boardID int64, patches []StagePatch) ([]int64, error) {
	current, err := repo.ListStages(ctx, boardID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]store.Stage, len(current))
	for _, st := range current {
		byID[st.ID] = st
	}

	keep := make(map[int64]bool, len(patches))
	for _, patch := range patches {
		switch {
		case patch.Existing != nil:
			st, ok := byID[patch.Existing.ID]
			if !ok {
				return nil, apperr.Validation("stage %d does not belong to this board", patch.Existing.ID)
			}
			f := patch.Existing.StageFields
			if f.Name != nil {
				if st.Name, err = required("name", f.Name); err != nil {
					return nil, err
				}
			}
			if f.Position != nil {
				st.Position = *f.Position
			}
			if f.Color != nil {
				st.Color = orDefault(f.Color, st.Color)
			}
			if _, err := repo.UpdateStage(ctx, st); err != nil {
				return nil, err
			}
			keep[st.ID] = true
		case patch.New != nil:
			f := patch.New.StageFields
			st := store.Stage{
				BoardID: boardID,
				Name:    orDefault(f.Name, templates.DefaultStageName),
				Color:   orDefault(f.Color, templates.DefaultStageColor),
			}
			if f.Position != nil {
				st.Position = *f.Position
			}
			created, err := repo.CreateStage(ctx, st)
			if err != nil {
				return nil, err
			}
			keep[created.ID] = true
		}
	}

	retained := []int64{}
	for _, st := range current {
		if keep[st.ID] {
			continue
		}
		n, err := repo.CountStageTasks(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			retained = append(retained, st.ID)
			continue
		}
		if err := repo.DeleteStage(ctx, st.ID); err != nil {
			return nil, err
		}
	}
	return retained, nil
}

func (s *Service) DeleteBoard(ctx context.Context, id int64) error {
	return s.repo.InTx(ctx, func(repo store.Repository) error {
		return repo.DeleteBoard(ctx, id)
	})
}

func (s *Service) ListStages(ctx context.Context, boardID int64) ([]store.Stage, error) {
	return s.repo.ListStages(ctx, boardID)
}

// CreateStage appends a stage after the board's last one.
func (s *Service) CreateStage(ctx context.Context, boardID int64, in StageInput) (store.Stage, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return store.Stage{}, err
	}
	var stage store.Stage
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		max, err := repo.MaxPosition(ctx, store.ScopeStages, boardID)
		if err != nil {
			return err
		}
		stage, err = repo.CreateStage(ctx, store.Stage{
			BoardID:  boardID,
			Name:     name,
			Position: position.Next(max),
			Color:    orDefault(in.Color, templates.DefaultStageColor),
		})
		return err
	})
	return stage, err
}

func (s *Service) UpdateStage(ctx context.Context, id int64, in StageInput) (store.Stage, error) {
	stage, err := s.repo.GetStage(ctx, id)
	if err != nil {
		return store.Stage{}, err
	}
	if in.Name != nil {
		if stage.Name, err = required("name", in.Name); err != nil {
			return store.Stage{}, err
		}
	}
	if in.Color != nil {
		stage.Color = orDefault(in.Color, stage.Color)
	}
	return s.repo.UpdateStage(ctx, stage)
}

// DeleteStage refuses to delete a stage that still holds tasks.
func (s *Service) DeleteStage(ctx context.Context, id int64) error {
	return s.repo.InTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetStage(ctx, id); err != nil {
			return err
		}
		n, err := repo.CountStageTasks(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Invariant("cannot delete a stage that contains %d task(s); move or delete them first", n).
				WithDetails(map[string]any{"stage_id": id, "task_count": n})
		}
		return repo.DeleteStage(ctx, id)
	})
}

// ReorderStage moves a stage to target and shifts the stages in between.
func (s *Service) ReorderStage(ctx context.Context, id int64, in ReorderInput) ([]store.Stage, error) {
	if in.Position == nil {
		return nil, apperr.Validation("position is required")
	}
	var stages []store.Stage
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		stage, err := repo.GetStage(ctx, id)
		if err != nil {
			return err
		}
		if err := reorder(ctx, repo, store.ScopeStages, stage.BoardID, stage.ID, stage.Position, *in.Position); err != nil {
			return err
		}
		stages, err = repo.ListStages(ctx, stage.BoardID)
		return err
	})
	return stages, err
}

// reorder runs the band shift for one move. It must be called inside a
// transaction so the shift and the final assignment land together.
func reorder(ctx context.Context, repo store.Repository, scope store.Scope, parentID, id int64, old, target int) error {
	max, err := repo.MaxPosition(ctx, scope, parentID)
	if err != nil {
		return err
	}
	if err := position.ValidateTarget(target, max); err != nil {
		return err
	}
	band, ok := position.Plan(old, target)
	if !ok {
		return nil
	}
	if err := repo.ShiftPositions(ctx, scope, parentID, band); err != nil {
		return err
	}
	return repo.SetPosition(ctx, scope, id, target)
}

var customFieldTypes = map[string]struct{}{
	"text":   {},
	"number": {},
	"date":   {},
	"select": {},
}

type CustomFieldInput struct {
	FieldName *string                   `json:"field_name"`
	FieldType *string                   `json:"field_type"`
	Options   Optional[json.RawMessage] `json:"options"`
}

func validFieldType(t string) error {
	if _, ok := customFieldTypes[t]; !ok {
		return apperr.Validation("field_type must be one of text, number, date, select")
	}
	return nil
}

func validOptions(raw json.RawMessage) error {
	if raw == nil {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return apperr.Validation("options must be a list")
	}
	return nil
}

func (s *Service) ListCustomFields(ctx context.Context, boardID int64) ([]store.CustomField, error) {
	return s.repo.ListCustomFields(ctx, boardID)
}

func (s *Service) CreateCustomField(ctx context.Context, boardID int64, in CustomFieldInput) (store.CustomField, error) {
	name, err := required("field_name", in.FieldName)
	if err != nil {
		return store.CustomField{}, err
	}
	fieldType := strings.ToLower(orDefault(in.FieldType, "text"))
	if err := validFieldType(fieldType); err != nil {
		return store.CustomField{}, err
	}
	var options json.RawMessage
	if in.Options.Value != nil {
		options = *in.Options.Value
	}
	if err := validOptions(options); err != nil {
		return store.CustomField{}, err
	}

	var field store.CustomField
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		max, err := repo.MaxPosition(ctx, store.ScopeFields, boardID)
		if err != nil {
			return err
		}
		field, err = repo.CreateCustomField(ctx, store.CustomField{
			BoardID:   boardID,
			FieldName: name,
			FieldType: fieldType,
			Options:   options,
			Position:  position.Next(max),
		})
		return err
	})
	return field, err
}

// boardField loads a custom field and checks it belongs to boardID.
func (s *Service) boardField(ctx context.Context, boardID, fieldID int64) (store.CustomField, error) {
	field, err := s.repo.GetCustomField(ctx, fieldID)
	if err != nil {
		return store.CustomField{}, err
	}
	if field.BoardID != boardID {
		return store.CustomField{}, apperr.NotFound("custom field")
	}
	return field, nil
}

func (s *Service) UpdateCustomField(ctx context.Context, boardID, fieldID int64, in CustomFieldInput) (store.CustomField, error) {
	field, err := s.boardField(ctx, boardID, fieldID)
	if err != nil {
		return store.CustomField{}, err
	}
	if in.FieldName != nil {
		if field.FieldName, err = required("field_name", in.FieldName); err != nil {
			return store.CustomField{}, err
		}
	}
	if in.FieldType != nil {
		fieldType := strings.ToLower(strings.TrimSpace(*in.FieldType))
		if err := validFieldType(fieldType); err != nil {
			return store.CustomField{}, err
		}
		field.FieldType = fieldType
	}
	if in.Options.Set {
		field.Options = nil
		if in.Options.Value != nil {
			field.Options = *in.Options.Value
		}
		if err := validOptions(field.Options); err != nil {
			return store.CustomField{}, err
		}
	}
	return s.repo.UpdateCustomField(ctx, field)
}

func (s *Service) DeleteCustomField(ctx context.Context, boardID, fieldID int64) error {
	if _, err := s.boardField(ctx, boardID, fieldID); err != nil {
		return err
	}
	return s.repo.DeleteCustomField(ctx, fieldID)
}
