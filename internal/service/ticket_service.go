package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService implements the ticket lifecycle: every state mutation plus the
// audit trail that accompanies it.
type TicketService struct {
	tickets    repository.TicketRepository
	actions    repository.TicketActionRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	ActionRepo repository.TicketActionRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		actions:    deps.ActionRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// ActorContext identifies who performs a mutation and with which tier.
type ActorContext struct {
	ID   string
	Role domain.Role
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title                  string
	Description            string
	Category               domain.TicketCategory
	Priority               domain.TicketPriority
	ExpectedCompletionDate *time.Time
}

// TicketUpdateInput is the generic mutator payload; nil fields are untouched.
type TicketUpdateInput struct {
	Title                  *string
	Description            *string
	Category               *domain.TicketCategory
	Priority               *domain.TicketPriority
	Status                 *domain.TicketStatus
	CriticalValue          *domain.CriticalValue
	ExpectedCompletionDate *time.Time
}

// ActionInput describes a manually added audit record.
type ActionInput struct {
	TicketID  string
	Action    string
	Notes     *string
	NewStatus *domain.TicketStatus
}

// TicketListFilter describes listing parameters at the service boundary.
type TicketListFilter struct {
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	Category      *domain.TicketCategory
	CriticalValue *domain.CriticalValue
	Escalation    *domain.EscalationLevel
	Search        *string
	Page          int
	Limit         int
}

// UserRef is the identity projection exposed on tickets and actions. Nothing
// beyond these fields ever leaves this layer.
type UserRef struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      domain.Role
}

// ActionDetail pairs an audit record with its actor projection.
type ActionDetail struct {
	Action domain.TicketAction
	Actor  *UserRef
}

// TicketDetail is a ticket with its relations resolved.
type TicketDetail struct {
	Ticket     domain.Ticket
	CreatedBy  *UserRef
	AssignedTo *UserRef
	Actions    []ActionDetail
}

// TicketPage is a paginated listing result.
type TicketPage struct {
	Items      []TicketDetail
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// CreateTicket inserts a new ticket owned by and assigned to its creator.
// Creation is not an action: no audit record is written.
func (s *TicketService) CreateTicket(ctx context.Context, creatorID string, input TicketCreateInput) (*TicketDetail, error) {
	ticket := &domain.Ticket{
		Title:                  strings.TrimSpace(input.Title),
		Description:            strings.TrimSpace(input.Description),
		Category:               input.Category,
		Priority:               input.Priority,
		Status:                 domain.TicketStatusNew,
		CriticalValue:          domain.CriticalValueNone,
		ExpectedCompletionDate: input.ExpectedCompletionDate,
		CreatedByID:            creatorID,
		AssignedToID:           creatorID,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: creatorID},
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return s.ticketDetail(ctx, ticket, false)
}

// GetTicketByID returns the ticket with its full action history, newest first.
func (s *TicketService) GetTicketByID(ctx context.Context, id string) (*TicketDetail, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ticketDetail(ctx, ticket, true)
}

// UpdateTicket is the generic mutator. The assignee is always reset to the
// actor (last-toucher ownership) regardless of the payload.
//
// An audit record is written only when the actor carries a non-L1 role: L1
// self-service updates mutate the ticket silently. That asymmetry is inherited
// behavior pending product confirmation; do not "fix" it here.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput, actor ActorContext) (*TicketDetail, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	oldCritical := ticket.CriticalValue

	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		ticket.Category = *input.Category
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		ticket.Status = *input.Status
	}
	if input.CriticalValue != nil {
		ticket.CriticalValue = *input.CriticalValue
	}
	if input.ExpectedCompletionDate != nil {
		ticket.ExpectedCompletionDate = input.ExpectedCompletionDate
	}
	ticket.AssignedToID = actor.ID

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapTicketErr(err, id)
	}

	if auditableActor(actor.Role) {
		label := domain.ActionLabelUpdated
		switch {
		case input.CriticalValue != nil && *input.CriticalValue != oldCritical:
			label = domain.CriticalValueChangeActionLabel(oldCritical, *input.CriticalValue)
		case input.Status != nil && *input.Status != oldStatus:
			label = domain.StatusChangeActionLabel(oldStatus, *input.Status)
		}
		action := &domain.TicketAction{
			TicketID:  ticket.ID,
			UserID:    actor.ID,
			Action:    label,
			NewStatus: input.Status,
		}
		if err := s.actions.Create(ctx, action); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	if ticket.CriticalValue != oldCritical {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCriticalValueChanged,
			TicketID: ticket.ID,
			Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
			Payload: events.TicketCriticalValueChangedPayload{
				OldValue: oldCritical,
				NewValue: ticket.CriticalValue,
			},
		})
	}

	return s.ticketDetail(ctx, ticket, true)
}

// EscalateTicket moves the ticket to the target tier's escalated status,
// optionally recording a new critical value. Unlike UpdateTicket, escalation
// never reassigns the ticket.
func (s *TicketService) EscalateTicket(ctx context.Context, id, actorID, notes string, level domain.EscalationLevel, criticalValue *domain.CriticalValue) (*TicketDetail, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	newStatus := level.Status()
	ticket.Status = newStatus
	if criticalValue != nil {
		ticket.CriticalValue = *criticalValue
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapTicketErr(err, id)
	}

	trimmed := strings.TrimSpace(notes)
	action := &domain.TicketAction{
		TicketID:  ticket.ID,
		UserID:    actorID,
		Action:    domain.EscalationActionLabel(level),
		Notes:     &trimmed,
		NewStatus: &newStatus,
	}
	if err := s.actions.Create(ctx, action); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actorID},
		Payload: events.TicketEscalatedPayload{
			Level:         level,
			CriticalValue: ticket.CriticalValue,
			Notes:         trimmed,
		},
	})
	return s.ticketDetail(ctx, ticket, true)
}

// AddTicketAction appends a manual audit record. When NewStatus is supplied the
// ticket's status is updated as a secondary effect; the assignee is left alone
// (callers that want last-toucher ownership follow up with UpdateTicket).
func (s *TicketService) AddTicketAction(ctx context.Context, input ActionInput, actorID string) (*ActionDetail, error) {
	ticket, err := s.getTicket(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}

	action := &domain.TicketAction{
		TicketID:  ticket.ID,
		UserID:    actorID,
		Action:    strings.TrimSpace(input.Action),
		Notes:     input.Notes,
		NewStatus: input.NewStatus,
	}
	if err := s.actions.Create(ctx, action); err != nil {
		return nil, apperrors.MapError(err)
	}

	if input.NewStatus != nil {
		ticket.Status = *input.NewStatus
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, s.mapTicketErr(err, input.TicketID)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketActionAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actorID},
		Payload: events.TicketActionAddedPayload{
			ActionID:  action.ID,
			Action:    action.Action,
			NewStatus: action.NewStatus,
		},
	})

	actor := s.userRef(ctx, actorID)
	return &ActionDetail{Action: *action, Actor: actor}, nil
}

// ResolveTicket is the terminal L3 transition.
func (s *TicketService) ResolveTicket(ctx context.Context, id, actorID, resolutionNotes string) (*TicketDetail, error) {
	ticket, err := s.getTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	newStatus := domain.TicketStatusResolved
	ticket.Status = newStatus
	ticket.AssignedToID = actorID

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapTicketErr(err, id)
	}

	trimmed := strings.TrimSpace(resolutionNotes)
	action := &domain.TicketAction{
		TicketID:  ticket.ID,
		UserID:    actorID,
		Action:    domain.ActionLabelResolved,
		Notes:     &trimmed,
		NewStatus: &newStatus,
	}
	if err := s.actions.Create(ctx, action); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actorID},
		Payload:  events.TicketResolvedPayload{ResolutionNotes: trimmed},
	})
	return s.ticketDetail(ctx, ticket, true)
}

// GetTickets returns a paginated page across all tickets.
func (s *TicketService) GetTickets(ctx context.Context, filter TicketListFilter) (*TicketPage, error) {
	return s.listPage(ctx, filter.toRepoFilter())
}

// GetTicketsByAssignee returns the caller's queue.
func (s *TicketService) GetTicketsByAssignee(ctx context.Context, userID string, filter TicketListFilter) (*TicketPage, error) {
	repoFilter := filter.toRepoFilter()
	repoFilter.AssignedToID = &userID
	return s.listPage(ctx, repoFilter)
}

// GetEscalatedTickets returns the queue for an escalation tier. The L3 queue is
// defensively restricted to C1/C2 tickets: anything else is invisible there
// even if its status claims ESCALATED_L3.
func (s *TicketService) GetEscalatedTickets(ctx context.Context, level domain.EscalationLevel, filter TicketListFilter) (*TicketPage, error) {
	repoFilter := filter.toRepoFilter()
	status := level.Status()
	repoFilter.Status = &status
	if level == domain.EscalationL3 {
		repoFilter.CriticalValues = []domain.CriticalValue{domain.CriticalValueC1, domain.CriticalValueC2}
	}
	return s.listPage(ctx, repoFilter)
}

func (f TicketListFilter) toRepoFilter() repository.TicketFilter {
	repoFilter := repository.TicketFilter{
		Status:        f.Status,
		Priority:      f.Priority,
		Category:      f.Category,
		CriticalValue: f.CriticalValue,
		SearchTerm:    f.Search,
	}
	// 'L2'/'L3' escalation filter is an alias for the matching status.
	if f.Escalation != nil {
		status := f.Escalation.Status()
		repoFilter.Status = &status
	}

	page := f.Page
	if page <= 0 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	repoFilter.Limit = limit
	repoFilter.Offset = (page - 1) * limit
	return repoFilter
}

func (s *TicketService) listPage(ctx context.Context, repoFilter repository.TicketFilter) (*TicketPage, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.tickets.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	items := make([]TicketDetail, 0, len(tickets))
	refs := map[string]*UserRef{}
	for i := range tickets {
		items = append(items, TicketDetail{
			Ticket:     tickets[i],
			CreatedBy:  s.cachedUserRef(ctx, refs, tickets[i].CreatedByID),
			AssignedTo: s.cachedUserRef(ctx, refs, tickets[i].AssignedToID),
		})
	}

	limit := repoFilter.Limit
	totalPages := (total + limit - 1) / limit
	return &TicketPage{
		Items:      items,
		Page:       repoFilter.Offset/limit + 1,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// auditableActor reports whether an update by this role produces an audit
// record. Empty roles and L1 agents mutate without a trail (see UpdateTicket).
func auditableActor(role domain.Role) bool {
	return role != "" && role != domain.RoleL1Agent
}

func (s *TicketService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTicketErr(err, id)
	}
	return ticket, nil
}

func (s *TicketService) mapTicketErr(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("Ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

func (s *TicketService) ticketDetail(ctx context.Context, ticket *domain.Ticket, withActions bool) (*TicketDetail, error) {
	refs := map[string]*UserRef{}
	detail := &TicketDetail{
		Ticket:     *ticket,
		CreatedBy:  s.cachedUserRef(ctx, refs, ticket.CreatedByID),
		AssignedTo: s.cachedUserRef(ctx, refs, ticket.AssignedToID),
	}
	if !withActions {
		return detail, nil
	}

	actions, err := s.actions.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	detail.Actions = make([]ActionDetail, 0, len(actions))
	for i := range actions {
		detail.Actions = append(detail.Actions, ActionDetail{
			Action: actions[i],
			Actor:  s.cachedUserRef(ctx, refs, actions[i].UserID),
		})
	}
	return detail, nil
}

func (s *TicketService) cachedUserRef(ctx context.Context, cache map[string]*UserRef, userID string) *UserRef {
	if userID == "" {
		return nil
	}
	if ref, ok := cache[userID]; ok {
		return ref
	}
	ref := s.userRef(ctx, userID)
	cache[userID] = ref
	return ref
}

func (s *TicketService) userRef(ctx context.Context, userID string) *UserRef {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil
	}
	return &UserRef{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
