package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

type postgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository stores tickets as JSONB documents in the tickets table.
func NewPostgresTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &postgresTicketRepository{pool: pool}
}

func (r *postgresTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	doc, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("encode ticket %s: %w", ticket.ID, err)
	}
	const query = `
        INSERT INTO tickets (namespace, id, doc, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err = r.pool.Exec(ctx, query,
		ticket.Kind.Namespace(),
		ticket.ID,
		doc,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return translatePgError(err)
}

func (r *postgresTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	doc, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("encode ticket %s: %w", ticket.ID, err)
	}
	const query = `
        UPDATE tickets SET doc=$1, updated_at=$2
        WHERE namespace=$3 AND id=$4`
	cmd, err := r.pool.Exec(ctx, query, doc, ticket.UpdatedAt, ticket.Kind.Namespace(), ticket.ID)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresTicketRepository) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Ticket, error) {
	const query = `SELECT doc FROM tickets WHERE namespace=$1 AND id=$2`
	var doc []byte
	if err := r.pool.QueryRow(ctx, query, kind.Namespace(), id).Scan(&doc); err != nil {
		return nil, translatePgError(err)
	}
	return decodeTicket(doc)
}

// Find pushes exact-match and search predicates down to SQL; date ranges are
// evaluated on the decoded documents.
func (r *postgresTicketRepository) Find(ctx context.Context, kind domain.Kind, filter TicketFilter) ([]*domain.Ticket, error) {
	clauses := []string{"namespace=$1"}
	args := []any{kind.Namespace()}

	if filter.State != nil {
		args = append(args, string(*filter.State))
		clauses = append(clauses, fmt.Sprintf("doc->>'state'=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("doc->>'priority'=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "COALESCE(doc->>'assignedTo','')=''")
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("doc->>'assignedTo'=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("doc->>'category'=$%d", len(args)))
	}
	if filter.MaintenanceType != nil {
		args = append(args, string(*filter.MaintenanceType))
		clauses = append(clauses, fmt.Sprintf("doc->'maintenance'->>'type'=$%d", len(args)))
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, containsPattern(term))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(doc->>'shortDescription') LIKE %[1]s ESCAPE '\' OR LOWER(doc->>'description') LIKE %[1]s ESCAPE '\' OR LOWER(id) LIKE %[1]s ESCAPE '\')`,
			placeholder))
	}

	query := fmt.Sprintf(`SELECT doc FROM tickets WHERE %s ORDER BY id ASC`, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err)
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if filter.ScheduledFrom == nil && filter.ScheduledTo == nil {
		return tickets, nil
	}
	result := tickets[:0]
	for _, ticket := range tickets {
		if filter.Matches(ticket) {
			result = append(result, ticket)
		}
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching term literally as a
// lowercase substring.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func scanTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	var result []*domain.Ticket
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		ticket, err := decodeTicket(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func decodeTicket(doc []byte) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := json.Unmarshal(doc, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	return &ticket, nil
}
