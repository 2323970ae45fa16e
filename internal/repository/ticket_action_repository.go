package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketActionRepository stores the append-only audit trail. Actions are never
// updated or deleted.
type TicketActionRepository interface {
	Create(ctx context.Context, action *domain.TicketAction) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAction, error)
}

type ticketActionRepository struct {
	pool *pgxpool.Pool
}

// NewTicketActionRepository builds repository.
func NewTicketActionRepository(pool *pgxpool.Pool) TicketActionRepository {
	return &ticketActionRepository{pool: pool}
}

func (r *ticketActionRepository) Create(ctx context.Context, action *domain.TicketAction) error {
	const query = `
        INSERT INTO ticket_actions (ticket_id, user_id, action, notes, new_status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		action.TicketID,
		action.UserID,
		action.Action,
		action.Notes,
		action.NewStatus,
	).Scan(&action.ID, &action.CreatedAt)
}

// ListByTicket returns actions newest-first, the order history is displayed in.
func (r *ticketActionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAction, error) {
	const query = `
        SELECT id, ticket_id, user_id, action, notes, new_status, created_at
        FROM ticket_actions WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAction
	for rows.Next() {
		var action domain.TicketAction
		if err := rows.Scan(
			&action.ID,
			&action.TicketID,
			&action.UserID,
			&action.Action,
			&action.Notes,
			&action.NewStatus,
			&action.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, action)
	}
	return result, rows.Err()
}
