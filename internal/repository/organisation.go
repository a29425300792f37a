package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// OrganisationRepository — интерфейс CRUD для таблицы organisations.
type OrganisationRepository interface {
	// Create создаёт организацию. Занятый slug — ErrConflict.
	Create(ctx context.Context, org *model.Organisation) error
	// GetByID возвращает организацию по UUID.
	GetByID(ctx context.Context, id string) (*model.Organisation, error)
	// List возвращает все организации, отсортированные по названию.
	List(ctx context.Context, limit, offset int) ([]*model.Organisation, error)
	// Count возвращает количество организаций.
	Count(ctx context.Context) (int, error)
	// Exists сообщает, есть ли в системе хотя бы одна организация.
	Exists(ctx context.Context) (bool, error)
	// CompleteOnboarding сохраняет контакты и отмечает онбординг пройденным.
	CompleteOnboarding(ctx context.Context, id string, phone, address *string) (*model.Organisation, error)
}

type organisationRepo struct {
	db DBTX
}

// NewOrganisationRepository создаёт репозиторий организаций.
func NewOrganisationRepository(db DBTX) OrganisationRepository {
	return &organisationRepo{db: db}
}

const organisationColumns = `id, name, slug, plan, active, onboarding_completed, phone, address, created_at, updated_at`

func scanOrganisation(row pgx.Row) (*model.Organisation, error) {
	o := &model.Organisation{}
	err := row.Scan(
		&o.ID, &o.Name, &o.Slug, &o.Plan, &o.Active, &o.OnboardingCompleted,
		&o.Phone, &o.Address, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func (r *organisationRepo) Create(ctx context.Context, org *model.Organisation) error {
	query := `
		INSERT INTO organisations (id, name, slug, plan, active, onboarding_completed, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		org.ID, org.Name, org.Slug, org.Plan, org.Active, org.OnboardingCompleted,
		org.Phone, org.Address,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug %q уже занят", ErrConflict, org.Slug)
		}
		return fmt.Errorf("ошибка создания организации: %w", err)
	}
	return nil
}

func (r *organisationRepo) GetByID(ctx context.Context, id string) (*model.Organisation, error) {
	query := fmt.Sprintf(`SELECT %s FROM organisations WHERE id = $1`, organisationColumns)

	o, err := scanOrganisation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения организации: %w", err)
	}
	return o, nil
}

func (r *organisationRepo) List(ctx context.Context, limit, offset int) ([]*model.Organisation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM organisations
		ORDER BY name, id
		LIMIT $1 OFFSET $2`, organisationColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка организаций: %w", err)
	}
	defer rows.Close()

	var result []*model.Organisation
	for rows.Next() {
		o, err := scanOrganisation(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования организации: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *organisationRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM organisations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта организаций: %w", err)
	}
	return count, nil
}

// Exists — дешёвая проверка через EXISTS вместо полного COUNT.
func (r *organisationRepo) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM organisations)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки наличия организаций: %w", err)
	}
	return exists, nil
}

func (r *organisationRepo) CompleteOnboarding(ctx context.Context, id string, phone, address *string) (*model.Organisation, error) {
	query := fmt.Sprintf(`
		UPDATE organisations
		SET onboarding_completed = TRUE,
			phone = COALESCE($2, phone),
			address = COALESCE($3, address)
		WHERE id = $1
		RETURNING %s`, organisationColumns)

	o, err := scanOrganisation(r.db.QueryRow(ctx, query, id, phone, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка завершения онбординга: %w", err)
	}
	return o, nil
}
