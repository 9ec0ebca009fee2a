package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"
	"github.com/flowcraft-ai/flowcraft-backend/internal/generation"
	projectdomain "github.com/flowcraft-ai/flowcraft-backend/internal/projects/domain"
)

// Relay is the slice of the generation relay the orchestrator needs.
type Relay interface {
	StreamTitle(ctx context.Context, description string) <-chan generation.Fragment
	StreamCode(ctx context.Context, description, priorCode string) <-chan generation.Fragment
	StreamVersionComment(ctx context.Context, oldDescription, newDescription string) <-chan generation.Fragment
	StreamEnhanceDescription(ctx context.Context, description string) <-chan generation.Fragment
}

// QuotaGate gates one generation attempt per account.
type QuotaGate interface {
	CheckAndConsume(ctx context.Context, userID string) error
}

// DiagramStore is the version ledger and rollback engine.
type DiagramStore interface {
	CreateWithInitialVersion(ctx context.Context, userID, projectID, title, description, code string) (*domain.Diagram, error)
	AppendVersion(ctx context.Context, diagramID, userID, newDescription, newCode, comment string) (*domain.Version, error)
	Rollback(ctx context.Context, diagramID, userID string, targetVersion int) error
	GetByID(ctx context.Context, id, userID string) (*domain.Diagram, error)
	ListVersions(ctx context.Context, diagramID, userID string) ([]domain.Version, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Diagram, error)
	ListByProject(ctx context.Context, projectID, userID string) ([]domain.Diagram, error)
	SoftDelete(ctx context.Context, id, userID string) error
	Restore(ctx context.Context, id, userID string) error
	UpdateTitle(ctx context.Context, id, userID, title string) error
}

// ShareStore mints and resolves share tokens. Resolve also reports the
// token's expiry so it can travel with cached projections.
type ShareStore interface {
	Create(ctx context.Context, diagramID string, expiresAt *time.Time) (*domain.ShareToken, error)
	Resolve(ctx context.Context, token string, now time.Time) (*domain.SharedDiagram, *time.Time, error)
}

// ShareCache is an optional projection cache in front of ShareStore.
// Get must treat an entry expired at now as a miss, never as a hit.
type ShareCache interface {
	Get(ctx context.Context, token string, now time.Time) (*domain.SharedDiagram, error)
	Put(ctx context.Context, token string, shared *domain.SharedDiagram, expiresAt *time.Time) error
	Invalidate(ctx context.Context, diagramID string) error
}

// ProjectStore verifies project access for diagram creation.
type ProjectStore interface {
	GetByID(ctx context.Context, id, userID string) (*projectdomain.Project, error)
}

// DiagramService composes the quota gate, generation relay and version
// ledger into client-visible operations. Each streaming operation runs
// a staged session: starting → (generating_title | context)? →
// generating → saving → completed, with error reachable from any
// non-terminal stage. Persistence happens only in saving, after the
// full artifact is accumulated, so a cancelled session persists
// nothing.
type DiagramService struct {
	store    DiagramStore
	shares   ShareStore
	cache    ShareCache
	projects ProjectStore
	quota    QuotaGate
	relay    Relay
	now      func() time.Time
}

func NewDiagramService(store DiagramStore, shares ShareStore, cache ShareCache, projects ProjectStore, quota QuotaGate, relay Relay) *DiagramService {
	return &DiagramService{
		store:    store,
		shares:   shares,
		cache:    cache,
		projects: projects,
		quota:    quota,
		relay:    relay,
		now:      time.Now,
	}
}

// CreateDiagramInput is the client request for a streamed diagram
// creation. Title is optional; when empty a title is generated first.
type CreateDiagramInput struct {
	ProjectID   string
	Title       string
	Description string
}

// StreamCreateDiagram runs a full creation session and returns its
// event channel. The channel is closed when the session reaches a
// terminal state or the context is cancelled.
func (s *DiagramService) StreamCreateDiagram(ctx context.Context, userID string, in CreateDiagramInput) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		if !emit(ctx, events, Event{Status: StatusStarting, Message: "Starting diagram creation..."}) {
			return
		}

		if _, err := s.projects.GetByID(ctx, in.ProjectID, userID); err != nil {
			fail(ctx, events, err)
			return
		}

		title := strings.TrimSpace(in.Title)
		if title == "" {
			generated, ok := s.drain(ctx, events, s.relay.StreamTitle(ctx, in.Description), StatusGeneratingTitle)
			if !ok {
				return
			}
			title = strings.TrimSpace(generated)
			if title == "" {
				fail(ctx, events, fmt.Errorf("generation produced an empty title"))
				return
			}
		}

		code, ok := s.drain(ctx, events, s.relay.StreamCode(ctx, in.Description, ""), StatusGenerating)
		if !ok {
			return
		}
		code = generation.SanitizeCode(code)
		if code == "" {
			fail(ctx, events, fmt.Errorf("generation produced no diagram code"))
			return
		}

		if !emit(ctx, events, Event{Status: StatusSaving, Message: "Saving diagram..."}) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if err := s.quota.CheckAndConsume(ctx, userID); err != nil {
			fail(ctx, events, err)
			return
		}

		diagram, err := s.store.CreateWithInitialVersion(ctx, userID, in.ProjectID, title, in.Description, code)
		if err != nil {
			fail(ctx, events, err)
			return
		}

		emit(ctx, events, Event{Status: StatusCompleted, Diagram: diagram})
	}()

	return events
}

// StreamCreateVersion runs a version-creation session: the prior
// description/code are surfaced as a context event, new code is
// generated with the prior artifact as provider context, and a version
// comment is derived by diffing the descriptions during saving.
func (s *DiagramService) StreamCreateVersion(ctx context.Context, userID, diagramID, description string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		if !emit(ctx, events, Event{Status: StatusStarting, Message: "Starting version creation..."}) {
			return
		}

		diagram, err := s.store.GetByID(ctx, diagramID, userID)
		if err != nil {
			fail(ctx, events, err)
			return
		}

		if !emit(ctx, events, Event{Status: StatusContext, Context: &VersionContext{
			Description:    diagram.Description,
			MermaidCode:    diagram.MermaidCode,
			CurrentVersion: diagram.CurrentVersion,
		}}) {
			return
		}

		code, ok := s.drain(ctx, events, s.relay.StreamCode(ctx, description, diagram.MermaidCode), StatusGenerating)
		if !ok {
			return
		}
		code = generation.SanitizeCode(code)
		if code == "" {
			fail(ctx, events, fmt.Errorf("generation produced no diagram code"))
			return
		}

		if !emit(ctx, events, Event{Status: StatusSaving, Message: "Saving version..."}) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		comment, err := s.accumulate(ctx, s.relay.StreamVersionComment(ctx, diagram.Description, description))
		if err != nil {
			fail(ctx, events, err)
			return
		}

		if err := s.quota.CheckAndConsume(ctx, userID); err != nil {
			fail(ctx, events, err)
			return
		}

		version, err := s.store.AppendVersion(ctx, diagramID, userID, description, code, strings.TrimSpace(comment))
		if err != nil {
			fail(ctx, events, err)
			return
		}

		s.invalidateShares(diagramID)

		emit(ctx, events, Event{Status: StatusCompleted, Version: version})
	}()

	return events
}

// StreamEnhanceDescription rewrites a description through the relay.
// Nothing is persisted and no quota is charged.
func (s *DiagramService) StreamEnhanceDescription(ctx context.Context, description string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		if !emit(ctx, events, Event{Status: StatusStarting, Message: "Enhancing description..."}) {
			return
		}

		if _, ok := s.drain(ctx, events, s.relay.StreamEnhanceDescription(ctx, description), StatusGenerating); !ok {
			return
		}

		emit(ctx, events, Event{Status: StatusCompleted})
	}()

	return events
}

// drain forwards every fragment of a relay stream as an event with the
// given status while accumulating the full text. Returns false when
// the session must stop (terminal relay error already reported, or
// context cancelled).
func (s *DiagramService) drain(ctx context.Context, events chan<- Event, fragments <-chan generation.Fragment, status Status) (string, bool) {
	var acc strings.Builder

	for frag := range fragments {
		if frag.Err != nil {
			fail(ctx, events, frag.Err)
			return "", false
		}
		acc.WriteString(frag.Text)
		if !emit(ctx, events, Event{Status: status, Content: frag.Text}) {
			return "", false
		}
	}

	if ctx.Err() != nil {
		return "", false
	}
	return acc.String(), true
}

// accumulate collects a relay stream without forwarding fragments.
func (s *DiagramService) accumulate(ctx context.Context, fragments <-chan generation.Fragment) (string, error) {
	var acc strings.Builder
	for frag := range fragments {
		if frag.Err != nil {
			return "", frag.Err
		}
		acc.WriteString(frag.Text)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return acc.String(), nil
}

// Rollback truncates a diagram's history to the target version.
func (s *DiagramService) Rollback(ctx context.Context, diagramID, userID string, targetVersion int) error {
	if err := s.store.Rollback(ctx, diagramID, userID, targetVersion); err != nil {
		return err
	}
	s.invalidateShares(diagramID)
	return nil
}

// ShareTokenResult is returned on share link issuance.
type ShareTokenResult struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn"`
}

// IssueShareToken mints a capability token for the diagram. Ownership
// is checked at issuance only; resolution never checks it.
func (s *DiagramService) IssueShareToken(ctx context.Context, diagramID, userID string, expiration domain.ShareExpiration) (*ShareTokenResult, error) {
	if !expiration.Valid() {
		return nil, fmt.Errorf("%w: invalid expiration time", domain.ErrInvalidArgument)
	}

	if _, err := s.store.GetByID(ctx, diagramID, userID); err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if ttl, ok := expiration.TTL(); ok {
		t := s.now().Add(ttl)
		expiresAt = &t
	}

	token, err := s.shares.Create(ctx, diagramID, expiresAt)
	if err != nil {
		return nil, err
	}

	return &ShareTokenResult{Token: token.ID, ExpiresIn: string(expiration)}, nil
}

// ResolveShareToken maps a token to the latest-version projection,
// consulting the cache first. Expiry is enforced against the same
// clock on both paths, so a cached projection never outlives its
// token.
func (s *DiagramService) ResolveShareToken(ctx context.Context, token string) (*domain.SharedDiagram, error) {
	now := s.now()

	if s.cache != nil {
		if shared, err := s.cache.Get(ctx, token, now); err == nil && shared != nil {
			return shared, nil
		}
	}

	shared, expiresAt, err := s.shares.Resolve(ctx, token, now)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Put(ctx, token, shared, expiresAt)
	}
	return shared, nil
}

func (s *DiagramService) Get(ctx context.Context, id, userID string) (*domain.Diagram, error) {
	return s.store.GetByID(ctx, id, userID)
}

func (s *DiagramService) List(ctx context.Context, userID string) ([]domain.Diagram, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *DiagramService) ListByProject(ctx context.Context, projectID, userID string) ([]domain.Diagram, error) {
	if _, err := s.projects.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.store.ListByProject(ctx, projectID, userID)
}

func (s *DiagramService) ListVersions(ctx context.Context, diagramID, userID string) ([]domain.Version, error) {
	return s.store.ListVersions(ctx, diagramID, userID)
}

func (s *DiagramService) Delete(ctx context.Context, id, userID string) error {
	if err := s.store.SoftDelete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateShares(id)
	return nil
}

func (s *DiagramService) Restore(ctx context.Context, id, userID string) error {
	return s.store.Restore(ctx, id, userID)
}

func (s *DiagramService) UpdateTitle(ctx context.Context, id, userID, title string) error {
	return s.store.UpdateTitle(ctx, id, userID, title)
}

// invalidateShares drops cached share projections after a history
// change. Runs on a fresh context: the session's context may already
// be done, and losing cache entries must not fail the operation.
func (s *DiagramService) invalidateShares(diagramID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.cache.Invalidate(ctx, diagramID)
}

func emit(ctx context.Context, events chan<- Event, e Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func fail(ctx context.Context, events chan<- Event, err error) {
	emit(ctx, events, Event{Status: StatusError, Message: err.Error()})
}
