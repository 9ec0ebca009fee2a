package service

import "github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"

// Status is the stage of a streaming generation session.
type Status string

const (
	StatusStarting        Status = "starting"
	StatusGeneratingTitle Status = "generating_title"
	StatusContext         Status = "context"
	StatusGenerating      Status = "generating"
	StatusSaving          Status = "saving"
	StatusCompleted       Status = "completed"
	StatusError           Status = "error"
)

// VersionContext exposes the prior description/code to the client
// before generation of a new version begins.
type VersionContext struct {
	Description    string `json:"description"`
	MermaidCode    string `json:"mermaidCode"`
	CurrentVersion int    `json:"currentVersion"`
}

// Event is one frame of a streaming session. Events are emitted
// strictly in generation order; the transport appends its own terminal
// sentinel after the channel closes.
type Event struct {
	Status  Status          `json:"status"`
	Message string          `json:"message,omitempty"`
	Content string          `json:"content,omitempty"`
	Diagram *domain.Diagram `json:"diagram,omitempty"`
	Version *domain.Version `json:"version,omitempty"`
	Context *VersionContext `json:"context,omitempty"`
}
