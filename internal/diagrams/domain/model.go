package domain

import "time"

// Diagram is the user-facing artifact: one current code/description
// plus a linear history of versions. CurrentVersion, Description and
// MermaidCode are denormalized copies of the current version's fields.
type Diagram struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	ProjectID      string     `json:"projectId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	MermaidCode    string     `json:"mermaidCode"`
	CurrentVersion int        `json:"currentVersion"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// Version is an immutable numbered snapshot of a diagram's code and
// the description that produced it. Versions are only created by the
// generation pipeline and only removed by rollback truncation.
type Version struct {
	ID            string    `json:"id"`
	DiagramID     string    `json:"diagramId"`
	VersionNumber int       `json:"versionNumber"`
	Description   string    `json:"description"`
	MermaidCode   string    `json:"mermaidCode"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// InitialVersionComment is the fixed comment on version 1.
const InitialVersionComment = "initial version"

// ShareToken grants read access to a diagram's latest version without
// an ownership check. A nil ExpiresAt means the token never expires.
type ShareToken struct {
	ID        string     `json:"token"`
	DiagramID string     `json:"diagramId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ShareExpiration is the client-facing expiration policy enum.
type ShareExpiration string

const (
	ShareExpirationWeek     ShareExpiration = "7d"
	ShareExpirationTwoWeeks ShareExpiration = "15d"
	ShareExpirationNever    ShareExpiration = "never"
)

// TTL returns the lifetime for the policy, or false for "never".
func (e ShareExpiration) TTL() (time.Duration, bool) {
	switch e {
	case ShareExpirationWeek:
		return 7 * 24 * time.Hour, true
	case ShareExpirationTwoWeeks:
		return 15 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Valid reports whether the policy is one of the accepted values.
func (e ShareExpiration) Valid() bool {
	switch e {
	case ShareExpirationWeek, ShareExpirationTwoWeeks, ShareExpirationNever:
		return true
	}
	return false
}

// OwnerInfo is the public projection of a diagram's owner exposed
// through share resolution.
type OwnerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SharedDiagram is the read-only projection a resolved share token
// maps to. VersionNumber and MermaidCode come from the version with
// the highest version number, recomputed from the version set rather
// than trusting the diagram's denormalized pointer.
type SharedDiagram struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	MermaidCode   string    `json:"mermaidCode"`
	VersionNumber int       `json:"versionNumber"`
	Owner         OwnerInfo `json:"user"`
}
