package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// ClientRepository — клиенты гаража. Все операции ограничены организацией.
type ClientRepository interface {
	Create(ctx context.Context, c *model.Client) error
	GetByID(ctx context.Context, orgID, id string) (*model.Client, error)
	// List возвращает клиентов; search — подстрока имени, email или телефона.
	List(ctx context.Context, orgID string, search *string, limit, offset int) ([]*model.Client, error)
	Count(ctx context.Context, orgID string, search *string) (int, error)
	Update(ctx context.Context, c *model.Client) error
	Delete(ctx context.Context, orgID, id string) error
}

type clientRepo struct {
	db DBTX
}

// NewClientRepository создаёт репозиторий клиентов.
func NewClientRepository(db DBTX) ClientRepository {
	return &clientRepo{db: db}
}

const clientColumns = `id, organisation_id, full_name, email, phone, notes, created_at, updated_at`

func scanClient(row pgx.Row) (*model.Client, error) {
	c := &model.Client{}
	err := row.Scan(&c.ID, &c.OrganisationID, &c.FullName, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *clientRepo) Create(ctx context.Context, c *model.Client) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (id, organisation_id, full_name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.OrganisationID, c.FullName, c.Email, c.Phone, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания клиента: %w", mapWriteError(err, "клиент"))
	}
	return nil
}

func (r *clientRepo) GetByID(ctx context.Context, orgID, id string) (*model.Client, error) {
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE organisation_id = $1 AND id = $2`, clientColumns)

	c, err := scanClient(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения клиента: %w", err)
	}
	return c, nil
}

// clientFilter строит WHERE для List и Count.
func clientFilter(orgID string, search *string) (string, []any) {
	where := "WHERE organisation_id = $1"
	args := []any{orgID}
	if search != nil && *search != "" {
		where += " AND (full_name ILIKE $2 OR email ILIKE $2 OR phone ILIKE $2)"
		args = append(args, "%"+*search+"%")
	}
	return where, args
}

func (r *clientRepo) List(ctx context.Context, orgID string, search *string, limit, offset int) ([]*model.Client, error) {
	where, args := clientFilter(orgID, search)
	argNum := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s FROM clients
		%s
		ORDER BY full_name, id
		LIMIT $%d OFFSET $%d`, clientColumns, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка клиентов: %w", err)
	}
	defer rows.Close()

	var result []*model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования клиента: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *clientRepo) Count(ctx context.Context, orgID string, search *string) (int, error) {
	where, args := clientFilter(orgID, search)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clients `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта клиентов: %w", err)
	}
	return count, nil
}

func (r *clientRepo) Update(ctx context.Context, c *model.Client) error {
	err := r.db.QueryRow(ctx, `
		UPDATE clients SET full_name = $3, email = $4, phone = $5, notes = $6
		WHERE organisation_id = $1 AND id = $2
		RETURNING created_at, updated_at`,
		c.OrganisationID, c.ID, c.FullName, c.Email, c.Phone, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления клиента: %w", err)
	}
	return nil
}

func (r *clientRepo) Delete(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE organisation_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления клиента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
