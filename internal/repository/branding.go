package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// BrandingRepository — оформление организаций (одна запись на организацию).
type BrandingRepository interface {
	Get(ctx context.Context, organisationID string) (*model.Branding, error)
	Upsert(ctx context.Context, b *model.Branding) error
}

type brandingRepo struct {
	db DBTX
}

// NewBrandingRepository создаёт репозиторий оформления.
func NewBrandingRepository(db DBTX) BrandingRepository {
	return &brandingRepo{db: db}
}

func (r *brandingRepo) Get(ctx context.Context, organisationID string) (*model.Branding, error) {
	b := &model.Branding{}
	err := r.db.QueryRow(ctx, `
		SELECT organisation_id, primary_color, logo_url, updated_at
		FROM branding WHERE organisation_id = $1`, organisationID,
	).Scan(&b.OrganisationID, &b.PrimaryColor, &b.LogoURL, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения оформления: %w", err)
	}
	return b, nil
}

func (r *brandingRepo) Upsert(ctx context.Context, b *model.Branding) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO branding (organisation_id, primary_color, logo_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (organisation_id) DO UPDATE SET
			primary_color = EXCLUDED.primary_color,
			logo_url = EXCLUDED.logo_url
		RETURNING updated_at`,
		b.OrganisationID, b.PrimaryColor, b.LogoURL,
	).Scan(&b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения оформления: %w", mapWriteError(err, "организация не найдена"))
	}
	return nil
}
