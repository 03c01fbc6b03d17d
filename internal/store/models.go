package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"-"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	AvatarURL  *string    `json:"avatar_url"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login"`
}

type Project struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ColorTheme  string    `json:"color_theme"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	BoardCount  int       `json:"board_count"`
	ListCount   int       `json:"list_count"`
}

type ProjectShare struct {
	ID         int64     `json:"id"`
	ProjectID  int64     `json:"project_id"`
	UserID     int64     `json:"user_id"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"created_at"`
	User       *User     `json:"user,omitempty"`
}

type Board struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	ColorTheme  string    `json:"color_theme"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Stage struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Task dates are ISO calendar dates (YYYY-MM-DD).
type Task struct {
	ID             int64           `json:"id"`
	BoardID        int64           `json:"board_id"`
	StageID        int64           `json:"stage_id"`
	Title          string          `json:"title"`
	Description    *string         `json:"description"`
	DueDate        *string         `json:"due_date"`
	ScheduledStart *string         `json:"scheduled_start"`
	ColorTheme     *string         `json:"color_theme"`
	CustomFields   json.RawMessage `json:"custom_fields"`
	Position       int             `json:"position"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CustomField describes a board-level field. Task values are not checked
// against it.
type CustomField struct {
	ID        int64           `json:"id"`
	BoardID   int64           `json:"board_id"`
	FieldName string          `json:"field_name"`
	FieldType string          `json:"field_type"`
	Options   json.RawMessage `json:"options"`
	Position  int             `json:"position"`
	CreatedAt time.Time       `json:"created_at"`
}

type List struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	ColorTheme  string    `json:"color_theme"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListItem struct {
	ID         int64     `json:"id"`
	ListID     int64     `json:"list_id"`
	Content    string    `json:"content"`
	IsChecked  bool      `json:"is_checked"`
	Position   int       `json:"position"`
	AssignedTo *int64    `json:"assigned_to"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type TemplateKind string

const (
	TemplateBoard   TemplateKind = "board"
	TemplateList    TemplateKind = "list"
	TemplateProject TemplateKind = "project"
)

func (k TemplateKind) table() string {
	switch k {
	case TemplateBoard:
		return "board_templates"
	case TemplateList:
		return "list_templates"
	case TemplateProject:
		return "project_templates"
	default:
		panic("store: unknown template kind " + string(k))
	}
}

// Template is an owner-scoped structural snapshot. Data is kind specific.
type Template struct {
	ID          int64           `json:"id"`
	Kind        TemplateKind    `json:"-"`
	OwnerID     int64           `json:"owner_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	ColorTheme  string          `json:"color_theme"`
	Data        json.RawMessage `json:"template_data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
