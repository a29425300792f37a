package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// ProfileRepository — интерфейс для таблицы profiles.
type ProfileRepository interface {
	// Get возвращает профиль по Keycloak user ID.
	Get(ctx context.Context, userID string) (*model.Profile, error)
	// EnsureExists создаёт профиль с ролью по умолчанию, если его нет,
	// и возвращает актуальную запись.
	EnsureExists(ctx context.Context, p *model.Profile) (*model.Profile, error)
	// Upsert создаёт или перезаписывает профиль.
	Upsert(ctx context.Context, p *model.Profile) error
	// Update меняет роль и организацию существующего профиля.
	Update(ctx context.Context, userID, role string, organisationID *string) (*model.Profile, error)
	// ListByOrganisation возвращает профили организации.
	ListByOrganisation(ctx context.Context, organisationID string) ([]*model.Profile, error)
}

type profileRepo struct {
	db DBTX
}

// NewProfileRepository создаёт репозиторий профилей.
func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `user_id, email, full_name, role, organisation_id, created_at, updated_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.UserID, &p.Email, &p.FullName, &p.Role, &p.OrganisationID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*model.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE user_id = $1`, profileColumns)

	p, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}
	return p, nil
}

// EnsureExists не перезаписывает роль и организацию уже существующего профиля,
// обновляется только кэшированный email.
func (r *profileRepo) EnsureExists(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	query := fmt.Sprintf(`
		INSERT INTO profiles (user_id, email, full_name, role, organisation_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING %s`, profileColumns)

	out, err := scanProfile(r.db.QueryRow(ctx, query,
		p.UserID, p.Email, p.FullName, p.Role, p.OrganisationID,
	))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания профиля: %w", err)
	}
	return out, nil
}

func (r *profileRepo) Upsert(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, full_name, role, organisation_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			role = EXCLUDED.role,
			organisation_id = EXCLUDED.organisation_id
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.UserID, p.Email, p.FullName, p.Role, p.OrganisationID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка upsert профиля: %w", mapWriteError(err, "организация не найдена"))
	}
	return nil
}

func (r *profileRepo) Update(ctx context.Context, userID, role string, organisationID *string) (*model.Profile, error) {
	query := fmt.Sprintf(`
		UPDATE profiles SET role = $2, organisation_id = $3
		WHERE user_id = $1
		RETURNING %s`, profileColumns)

	p, err := scanProfile(r.db.QueryRow(ctx, query, userID, role, organisationID))
	if err != nil {
		if err = mapWriteError(err, "организация не найдена"); errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	return p, nil
}

func (r *profileRepo) ListByOrganisation(ctx context.Context, organisationID string) ([]*model.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM profiles
		WHERE organisation_id = $1
		ORDER BY email`, profileColumns)

	rows, err := r.db.Query(ctx, query, organisationID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения профилей организации: %w", err)
	}
	defer rows.Close()

	var result []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования профиля: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
