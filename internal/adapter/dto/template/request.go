package template

// StepRequest is one step of a process template.
type StepRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description,omitempty" validate:"max=500"`
	Keywords    []string `json:"keywords" validate:"dive,required,max=100"`
	Required    bool     `json:"required"`
}

// TemplateRequest creates or replaces a process template.
type TemplateRequest struct {
	Name        string        `json:"name" validate:"required,max=255"`
	Description *string       `json:"description,omitempty" validate:"omitempty,max=2000"`
	Steps       []StepRequest `json:"steps" validate:"required,min=1,max=20,dive"`
	IsDefault   bool          `json:"isDefault"`
}
