package app

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/position"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

const (
	colorOverdue  = "#EF4444"
	colorDueSoon  = "#F97316"
	colorUpcoming = "#EAB308"
	colorDefault  = "#3B82F6"
)

type TaskInput struct {
	Title          *string                   `json:"title"`
	Description    Optional[string]          `json:"description"`
	StageID        *int64                    `json:"stage_id"`
	DueDate        Optional[string]          `json:"due_date"`
	ScheduledStart Optional[string]          `json:"scheduled_start"`
	ColorTheme     Optional[string]          `json:"color_theme"`
	CustomFields   Optional[json.RawMessage] `json:"custom_fields"`
}

type MoveInput struct {
	StageID  *int64 `json:"stage_id"`
	Position *int   `json:"position"`
}

// TaskView is a task as served to clients, with its derived color.
type TaskView struct {
	store.Task
	DynamicColor *string `json:"dynamic_color"`
}

// DynamicColor derives a task's display color from how close its due date
// is to the calendar day of now. It is never persisted.
func DynamicColor(task store.Task, now time.Time) *string {
	if task.DueDate == nil {
		return task.ColorTheme
	}
	days, err := util.DaysUntil(*task.DueDate, now)
	if err != nil {
		return task.ColorTheme
	}
	var c string
	switch {
	case days < 0:
		c = colorOverdue
	case days <= 1:
		c = colorDueSoon
	case days <= 3:
		c = colorUpcoming
	case task.ColorTheme != nil:
		return task.ColorTheme
	default:
		c = colorDefault
	}
	return &c
}

func (s *Service) view(task store.Task) TaskView {
	return TaskView{Task: task, DynamicColor: DynamicColor(task, s.now())}
}

func (s *Service) views(tasks []store.Task) []TaskView {
	out := make([]TaskView, len(tasks))
	for i, t := range tasks {
		out[i] = s.view(t)
	}
	return out
}

func normalizeDate(field string, o Optional[string]) (Optional[string], error) {
	if !o.Set || o.Value == nil {
		return o, nil
	}
	if *o.Value == "" {
		return Null[string](), nil
	}
	d, err := util.ParseDate(*o.Value)
	if err != nil {
		return o, apperr.Validation("%s: %v", field, err)
	}
	return Some(d), nil
}

// customFields accepts a JSON object or null. Values are not checked
// against the board's field definitions.
func customFields(o Optional[json.RawMessage]) (json.RawMessage, error) {
	if o.Value == nil || len(bytes.TrimSpace(*o.Value)) == 0 || bytes.Equal(bytes.TrimSpace(*o.Value), []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(*o.Value, &m); err != nil {
		return nil, apperr.Validation("custom_fields must be an object")
	}
	return *o.Value, nil
}

func (s *Service) ListTasks(ctx context.Context, boardID int64, stageID *int64) ([]TaskView, error) {
	tasks, err := s.repo.ListTasks(ctx, boardID, stageID)
	if err != nil {
		return nil, err
	}
	return s.views(tasks), nil
}

func (s *Service) GetTask(ctx context.Context, id int64) (TaskView, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return TaskView{}, err
	}
	return s.view(task), nil
}

// CreateTask appends a task to in.StageID, or to the board's first stage
// when no stage is given.
func (s *Service) CreateTask(ctx context.Context, boardID int64, in TaskInput) (TaskView, error) {
	title, err := required("title", in.Title)
	if err != nil {
		return TaskView{}, err
	}
	due, err := normalizeDate("due_date", in.DueDate)
	if err != nil {
		return TaskView{}, err
	}
	start, err := normalizeDate("scheduled_start", in.ScheduledStart)
	if err != nil {
		return TaskView{}, err
	}
	fields, err := customFields(in.CustomFields)
	if err != nil {
		return TaskView{}, err
	}

	var task store.Task
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		stageID, err := s.targetStage(ctx, repo, boardID, in.StageID)
		if err != nil {
			return err
		}
		max, err := repo.MaxPosition(ctx, store.ScopeTasks, stageID)
		if err != nil {
			return err
		}
		task, err = repo.CreateTask(ctx, store.Task{
			BoardID:        boardID,
			StageID:        stageID,
			Title:          title,
			Description:    in.Description.Value,
			DueDate:        due.Value,
			ScheduledStart: start.Value,
			ColorTheme:     in.ColorTheme.Value,
			CustomFields:   fields,
			Position:       position.Next(max),
		})
		return err
	})
	if err != nil {
		return TaskView{}, err
	}
	return s.view(task), nil
}

func (s *Service) targetStage(ctx context.Context, repo store.Repository, boardID int64, stageID *int64) (int64, error) {
	if stageID != nil {
		stage, err := repo.GetStage(ctx, *stageID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return 0, apperr.Validation("stage %d does not exist", *stageID)
			}
			return 0, err
		}
		if stage.BoardID != boardID {
			return 0, apperr.Validation("stage %d does not belong to this board", *stageID)
		}
		return stage.ID, nil
	}
	stages, err := repo.ListStages(ctx, boardID)
	if err != nil {
		return 0, err
	}
	if len(stages) == 0 {
		return 0, apperr.Validation("board has no stages; create a stage first")
	}
	return stages[0].ID, nil
}

// UpdateTask applies the fields that were sent. Sending null for a date,
// description or color clears it. A stage change goes through MoveTask.
func (s *Service) UpdateTask(ctx context.Context, id int64, in TaskInput) (TaskView, error) {
	due, err := normalizeDate("due_date", in.DueDate)
	if err != nil {
		return TaskView{}, err
	}
	start, err := normalizeDate("scheduled_start", in.ScheduledStart)
	if err != nil {
		return TaskView{}, err
	}

	var task store.Task
	err = s.repo.InTx(ctx, func(repo store.Repository) error {
		task, err = repo.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if in.Title != nil {
			if task.Title, err = required("title", in.Title); err != nil {
				return err
			}
		}
		in.Description.apply(&task.Description)
		due.apply(&task.DueDate)
		start.apply(&task.ScheduledStart)
		in.ColorTheme.apply(&task.ColorTheme)
		if in.CustomFields.Set {
			if task.CustomFields, err = customFields(in.CustomFields); err != nil {
				return err
			}
		}
		if in.StageID != nil && *in.StageID != task.StageID {
			if task, err = moveTask(ctx, repo, task, *in.StageID, nil); err != nil {
				return err
			}
		}
		task, err = repo.UpdateTask(ctx, task)
		return err
	})
	if err != nil {
		return TaskView{}, err
	}
	return s.view(task), nil
}

func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	return s.repo.DeleteTask(ctx, id)
}

// MoveTask puts a task into another stage of the same board. Without an
// explicit position the task is appended; an explicit position is stored
// as given.
func (s *Service) MoveTask(ctx context.Context, id int64, in MoveInput) (TaskView, error) {
	if in.StageID == nil {
		return TaskView{}, apperr.Validation("stage_id is required")
	}
	if in.Position != nil && *in.Position < 0 {
		return TaskView{}, apperr.Validation("position must be zero or greater")
	}
	var task store.Task
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		current, err := repo.GetTask(ctx, id)
		if err != nil {
			return err
		}
		moved, err := moveTask(ctx, repo, current, *in.StageID, in.Position)
		if err != nil {
			return err
		}
		task, err = repo.UpdateTask(ctx, moved)
		return err
	})
	if err != nil {
		return TaskView{}, err
	}
	return s.view(task), nil
}

// moveTask computes the task's new stage and position without saving it.
func moveTask(ctx context.Context, repo store.Repository, task store.Task, stageID int64, pos *int) (store.Task, error) {
	dest, err := repo.GetStage(ctx, stageID)
	if err != nil {
		return store.Task{}, err
	}
	if dest.BoardID != task.BoardID {
		return store.Task{}, apperr.Invariant("stage %d belongs to a different board", stageID).
			WithDetails(map[string]any{"task_id": task.ID, "stage_id": stageID})
	}
	if pos != nil {
		task.Position = *pos
	} else {
		max, err := repo.MaxPosition(ctx, store.ScopeTasks, dest.ID)
		if err != nil {
			return store.Task{}, err
		}
		task.Position = position.Next(max)
	}
	task.StageID = dest.ID
	return task, nil
}
