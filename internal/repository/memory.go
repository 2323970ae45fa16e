package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// In-memory implementations backing tests and local development without a
// database. They mirror the Postgres repositories' semantics, including
// pgx.ErrNoRows for missing rows and updated_at DESC list ordering.

// MemoryTicketRepository is a map-backed TicketRepository.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryTicketRepository builds an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *MemoryTicketRepository) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	matched := r.match(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *MemoryTicketRepository) CountWithFilter(_ context.Context, filter TicketFilter) (int, error) {
	return len(r.match(filter)), nil
}

func (r *MemoryTicketRepository) match(filter TicketFilter) []domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		if filter.CriticalValue != nil && ticket.CriticalValue != *filter.CriticalValue {
			continue
		}
		if len(filter.CriticalValues) > 0 && !containsCriticalValue(filter.CriticalValues, ticket.CriticalValue) {
			continue
		}
		if filter.AssignedToID != nil && ticket.AssignedToID != *filter.AssignedToID {
			continue
		}
		if filter.CreatedByID != nil && ticket.CreatedByID != *filter.CreatedByID {
			continue
		}
		if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
			needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if !strings.Contains(strings.ToLower(ticket.Title), needle) &&
				!strings.Contains(strings.ToLower(ticket.Description), needle) {
				continue
			}
		}
		matched = append(matched, ticket)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	return matched
}

func containsCriticalValue(values []domain.CriticalValue, cv domain.CriticalValue) bool {
	for _, candidate := range values {
		if candidate == cv {
			return true
		}
	}
	return false
}

// MemoryTicketActionRepository is a slice-backed TicketActionRepository.
type MemoryTicketActionRepository struct {
	mu      sync.RWMutex
	actions []domain.TicketAction
}

// NewMemoryTicketActionRepository builds an empty store.
func NewMemoryTicketActionRepository() *MemoryTicketActionRepository {
	return &MemoryTicketActionRepository{}
}

func (r *MemoryTicketActionRepository) Create(_ context.Context, action *domain.TicketAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	action.ID = uuid.NewString()
	action.CreatedAt = time.Now()
	r.actions = append(r.actions, *action)
	return nil
}

func (r *MemoryTicketActionRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.TicketAction
	for _, action := range r.actions {
		if action.TicketID == ticketID {
			result = append(result, action)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// MemoryPasswordResetRepository is a map-backed PasswordResetRepository.
type MemoryPasswordResetRepository struct {
	mu     sync.RWMutex
	tokens map[string]PasswordResetToken
}

// NewMemoryPasswordResetRepository builds an empty store.
func NewMemoryPasswordResetRepository() *MemoryPasswordResetRepository {
	return &MemoryPasswordResetRepository{tokens: make(map[string]PasswordResetToken)}
}

func (r *MemoryPasswordResetRepository) Create(_ context.Context, token *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	r.tokens[token.ID] = *token
	return nil
}

func (r *MemoryPasswordResetRepository) GetByToken(_ context.Context, tokenStr string) (*PasswordResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, token := range r.tokens {
		if token.Token == tokenStr {
			copied := token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryPasswordResetRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	r.tokens[id] = token
	return nil
}

// MemoryUserRepository is a map-backed UserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository builds an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}
