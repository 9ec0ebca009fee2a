package http

// CreateDiagramRequest starts a streamed diagram-creation session.
// Title is optional; when omitted one is generated.
type CreateDiagramRequest struct {
	Title       string `json:"title"`
	Description string `json:"description" binding:"required"`
	ProjectID   string `json:"projectId" binding:"required,uuid"`
}

// CreateVersionRequest starts a streamed version-creation session.
type CreateVersionRequest struct {
	Description string `json:"description" binding:"required"`
}

// EnhanceDescriptionRequest streams back an improved description.
type EnhanceDescriptionRequest struct {
	Description string `json:"description" binding:"required"`
}

// UpdateTitleRequest renames a diagram.
type UpdateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// CreateShareTokenRequest mints a share link.
type CreateShareTokenRequest struct {
	Expiration string `json:"expiration" binding:"required"`
}
