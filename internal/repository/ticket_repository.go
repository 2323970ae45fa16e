package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters. Each optional field translates into
// exactly one predicate; the zero value matches every ticket.
type TicketFilter struct {
	Status         *domain.TicketStatus
	Priority       *domain.TicketPriority
	Category       *domain.TicketCategory
	CriticalValue  *domain.CriticalValue
	CriticalValues []domain.CriticalValue
	AssignedToID   *string
	CreatedByID    *string
	SearchTerm     *string
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, category, priority, status, critical_value,
               expected_completion_date, created_by_id, assigned_to_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, category, priority, status, critical_value,
            expected_completion_date, created_by_id, assigned_to_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CriticalValue,
		ticket.ExpectedCompletionDate,
		ticket.CreatedByID,
		ticket.AssignedToID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, category=$3, priority=$4, status=$5,
            critical_value=$6, expected_completion_date=$7, assigned_to_id=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CriticalValue,
		ticket.ExpectedCompletionDate,
		ticket.AssignedToID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CriticalValue,
		&ticket.ExpectedCompletionDate,
		&ticket.CreatedByID,
		&ticket.AssignedToID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := filter.whereClause()

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := filter.whereClause()
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, where)

	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// whereClause deterministically translates the filter into SQL predicates.
func (f TicketFilter) whereClause() (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if f.Status != nil {
		args = append(args, *f.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Priority != nil {
		args = append(args, *f.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if f.Category != nil {
		args = append(args, *f.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if f.CriticalValue != nil {
		args = append(args, *f.CriticalValue)
		clauses = append(clauses, fmt.Sprintf("critical_value=$%d", len(args)))
	}
	if len(f.CriticalValues) > 0 {
		placeholders := make([]string, len(f.CriticalValues))
		for i, cv := range f.CriticalValues {
			args = append(args, cv)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("critical_value IN (%s)", strings.Join(placeholders, ",")))
	}
	if f.AssignedToID != nil {
		args = append(args, *f.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if f.CreatedByID != nil {
		args = append(args, *f.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("created_by_id=$%d", len(args)))
	}
	if f.SearchTerm != nil && strings.TrimSpace(*f.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*f.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	return strings.Join(clauses, " AND "), args
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Category,
			&ticket.Priority,
			&ticket.Status,
			&ticket.CriticalValue,
			&ticket.ExpectedCompletionDate,
			&ticket.CreatedByID,
			&ticket.AssignedToID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
