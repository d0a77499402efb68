package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

// AdminRepository reads the admin directory.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.AdminIdentity) error
	GetByID(ctx context.Context, id string) (*domain.AdminIdentity, error)
	GetByEmail(ctx context.Context, email string) (*domain.AdminIdentity, error)
	List(ctx context.Context, filter AdminFilter) ([]domain.AdminIdentity, error)
}

// AdminFilter defines query params for admin listing.
type AdminFilter struct {
	Role   *domain.AdminRole
	Status *domain.AdminStatus
}

func (f AdminFilter) matches(a *domain.AdminIdentity) bool {
	if f.Role != nil && a.Role != *f.Role {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return true
}

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository instantiates the Postgres-backed directory.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.AdminIdentity) error {
	const query = `
        INSERT INTO admins (name, email, password_hash, role, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		admin.Name,
		strings.ToLower(admin.Email),
		admin.PasswordHash,
		admin.Role,
		admin.Status,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	return translatePgError(err)
}

const adminColumns = `id, name, email, password_hash, role, status, created_at, updated_at`

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.AdminIdentity, error) {
	return r.fetchSingle(ctx, `SELECT `+adminColumns+` FROM admins WHERE id=$1`, id)
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminIdentity, error) {
	return r.fetchSingle(ctx, `SELECT `+adminColumns+` FROM admins WHERE email=$1`, strings.ToLower(email))
}

func (r *adminRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.AdminIdentity, error) {
	var admin domain.AdminIdentity
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.Role,
		&admin.Status,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, translatePgError(err)
	}
	return &admin, nil
}

func (r *adminRepository) List(ctx context.Context, filter AdminFilter) ([]domain.AdminIdentity, error) {
	query := `SELECT ` + adminColumns + ` FROM admins`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err)
	}
	defer rows.Close()

	var result []domain.AdminIdentity
	for rows.Next() {
		var admin domain.AdminIdentity
		if err := rows.Scan(
			&admin.ID,
			&admin.Name,
			&admin.Email,
			&admin.PasswordHash,
			&admin.Role,
			&admin.Status,
			&admin.CreatedAt,
			&admin.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, admin)
	}
	return result, rows.Err()
}

type memoryAdminRepository struct {
	mu     sync.RWMutex
	admins map[string]domain.AdminIdentity
}

// NewMemoryAdminRepository returns a directory preloaded with the given admins.
func NewMemoryAdminRepository(seed ...domain.AdminIdentity) AdminRepository {
	r := &memoryAdminRepository{admins: make(map[string]domain.AdminIdentity, len(seed))}
	for _, admin := range seed {
		r.admins[admin.ID] = admin
	}
	return r
}

func (r *memoryAdminRepository) Create(ctx context.Context, admin *domain.AdminIdentity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if admin.ID == "" {
		return fmt.Errorf("admin id is required")
	}
	for _, existing := range r.admins {
		if existing.ID == admin.ID || strings.EqualFold(existing.Email, admin.Email) {
			return ErrAlreadyExists
		}
	}
	r.admins[admin.ID] = *admin
	return nil
}

func (r *memoryAdminRepository) GetByID(ctx context.Context, id string) (*domain.AdminIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &admin, nil
}

func (r *memoryAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, admin := range r.admins {
		if strings.EqualFold(admin.Email, email) {
			found := admin
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryAdminRepository) List(ctx context.Context, filter AdminFilter) ([]domain.AdminIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.AdminIdentity, 0, len(r.admins))
	for _, admin := range r.admins {
		if filter.matches(&admin) {
			result = append(result, admin)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
