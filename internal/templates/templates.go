// Package templates defines the structure snapshots stored in template_data
// and the helpers that capture live resources into them.
package templates

import (
	"bytes"
	"encoding/json"
	"sort"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/store"
)

const (
	DefaultStageName  = "New Stage"
	DefaultStageColor = "#6B7280"
	DefaultTaskTitle  = "New Task"
	DefaultTaskColor  = "blue"
)

// DefaultStages are seeded into every new board that arrives without stages.
var DefaultStages = []StageSpec{
	{Name: "To Do", Position: 0, Color: "#6B7280"},
	{Name: "In Progress", Position: 1, Color: "#3B82F6"},
	{Name: "Done", Position: 2, Color: "#10B981"},
}

type StageSpec struct {
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position" yaml:"position"`
	Color    string `json:"color" yaml:"color"`
}

// TaskSpec links to its stage by position, never by id, so a template
// outlives the board it was captured from.
type TaskSpec struct {
	Title         string          `json:"title" yaml:"title"`
	Description   *string         `json:"description,omitempty" yaml:"description"`
	ColorTheme    *string         `json:"color_theme,omitempty" yaml:"color_theme"`
	StagePosition int             `json:"stage_position" yaml:"stage_position"`
	CustomFields  json.RawMessage `json:"custom_fields,omitempty" yaml:"-"`
}

type BoardData struct {
	Stages []StageSpec `json:"stages"`
	Tasks  []TaskSpec  `json:"tasks"`
}

type ItemSpec struct {
	Content  string `json:"content"`
	Position int    `json:"position"`
}

type ListData struct {
	Items []ItemSpec `json:"items"`
}

// ProjectData composes independently stored board and list templates.
type ProjectData struct {
	BoardTemplateIDs []int64 `json:"board_template_ids"`
	ListTemplateIDs  []int64 `json:"list_template_ids"`
}

func decode(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return apperr.Validation("invalid template_data: %v", err)
	}
	return nil
}

// ParseBoard decodes board template data and fills per-entry defaults.
func ParseBoard(raw json.RawMessage) (BoardData, error) {
	var d BoardData
	if err := decode(raw, &d); err != nil {
		return BoardData{}, err
	}
	for i := range d.Stages {
		if d.Stages[i].Name == "" {
			d.Stages[i].Name = DefaultStageName
		}
		if d.Stages[i].Color == "" {
			d.Stages[i].Color = DefaultStageColor
		}
	}
	for i := range d.Tasks {
		if d.Tasks[i].Title == "" {
			d.Tasks[i].Title = DefaultTaskTitle
		}
		if d.Tasks[i].ColorTheme == nil {
			c := DefaultTaskColor
			d.Tasks[i].ColorTheme = &c
		}
	}
	return d, nil
}

func ParseList(raw json.RawMessage) (ListData, error) {
	var d ListData
	if err := decode(raw, &d); err != nil {
		return ListData{}, err
	}
	return d, nil
}

func ParseProject(raw json.RawMessage) (ProjectData, error) {
	var d ProjectData
	if err := decode(raw, &d); err != nil {
		return ProjectData{}, err
	}
	for _, id := range append(append([]int64{}, d.BoardTemplateIDs...), d.ListTemplateIDs...) {
		if id <= 0 {
			return ProjectData{}, apperr.Validation("invalid template id %d in template_data", id)
		}
	}
	return d, nil
}

// Encode marshals template data for storage.
func Encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CaptureBoard snapshots stages in position order and records each task's
// stage by that stage's position. Tasks whose stage is not in stages are
// pinned to position 0.
func CaptureBoard(stages []store.Stage, tasks []store.Task) BoardData {
	ordered := append([]store.Stage(nil), stages...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].ID < ordered[j].ID
	})

	posByID := make(map[int64]int, len(ordered))
	d := BoardData{Stages: make([]StageSpec, 0, len(ordered)), Tasks: make([]TaskSpec, 0, len(tasks))}
	for _, st := range ordered {
		posByID[st.ID] = st.Position
		d.Stages = append(d.Stages, StageSpec{Name: st.Name, Position: st.Position, Color: st.Color})
	}
	for _, t := range tasks {
		d.Tasks = append(d.Tasks, TaskSpec{
			Title:         t.Title,
			Description:   t.Description,
			ColorTheme:    t.ColorTheme,
			StagePosition: posByID[t.StageID],
			CustomFields:  t.CustomFields,
		})
	}
	return d
}

// CaptureList keeps content and order only; checked state is never captured.
func CaptureList(items []store.ListItem) ListData {
	d := ListData{Items: make([]ItemSpec, 0, len(items))}
	for _, it := range items {
		d.Items = append(d.Items, ItemSpec{Content: it.Content, Position: it.Position})
	}
	return d
}

// StageIndex maps stage positions of a freshly materialized board to ids.
type StageIndex struct {
	byPosition map[int]int64
	fallback   int64
	lowest     int
}

func NewStageIndex(stages []store.Stage) StageIndex {
	ix := StageIndex{byPosition: make(map[int]int64, len(stages))}
	for _, st := range stages {
		if _, dup := ix.byPosition[st.Position]; !dup {
			ix.byPosition[st.Position] = st.ID
		}
		if ix.fallback == 0 || st.Position < ix.lowest {
			ix.fallback = st.ID
			ix.lowest = st.Position
		}
	}
	return ix
}

// Resolve returns the stage at pos, or the lowest-position stage when no
// stage sits there. ok is false only for an empty index.
func (ix StageIndex) Resolve(pos int) (id int64, ok bool) {
	if id, found := ix.byPosition[pos]; found {
		return id, true
	}
	return ix.fallback, ix.fallback != 0
}
