package resource

import (
	"time"

	"github.com/cadenza-app/cadenza/core"
)

// Resource is a file shared with the teaching staff: sheet music, seating
// charts, policy documents.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"` // sanitized original name
	Path        string    `json:"-"`        // storage key, never exposed
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewResource contains information needed to upload a new Resource.
type NewResource struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type"`
}

func (nr *NewResource) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Filename = core.CleanFilename(nr.Filename)
	if nr.Filename == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "filename", Error: "this field is required"})
	}
	return core.Validate.Struct(nr)
}

// UpdateResource defines what information may be provided to modify an
// existing Resource. The file itself is immutable; re-upload to replace.
type UpdateResource struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (ur *UpdateResource) Validate() error {
	ur.Title = core.CleanString(ur.Title)
	return core.Validate.Struct(ur)
}
