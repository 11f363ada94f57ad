// Package kinds defines the record kinds Othala serves: their payload schemas
// and lifecycle descriptors.
package kinds

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/othala/internal/lifecycle"
)

// Profile describes an agent.
type Profile struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// Validate implements validation.Validatable.
func (p Profile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Handle, validation.Required, validation.RuneLength(1, 64)),
		validation.Field(&p.Avatar, is.URL),
		validation.Field(&p.Bio, validation.RuneLength(0, 1024)),
	)
}

// Origin records where something came from.
type Origin struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Validate implements validation.Validatable.
func (o Origin) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Title, validation.Required),
		validation.Field(&o.Source, is.URL),
	)
}

// Task is a unit of work.
type Task struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done"`
}

// Validate implements validation.Validatable.
func (t Task) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.Required),
	)
}

// Column is a kanban board column.
type Column struct {
	UUID  string `json:"uuid"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Validate implements validation.Validatable.
func (c Column) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.UUID, validation.Required, is.UUIDv4),
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.Order, validation.Min(0)),
	)
}

// Lifecycle descriptors. Link and entry labels derive from the names.
var (
	ProfileKind = lifecycle.Kind[Profile]{Name: "profile"}
	OriginKind  = lifecycle.Kind[Origin]{Name: "origin"}
	TaskKind    = lifecycle.Kind[Task]{Name: "task"}
	ColumnKind  = lifecycle.Kind[Column]{Name: "column"}
)
