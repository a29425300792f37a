package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// Bootstrapper создаёт организацию вместе с оформлением и профилем
// администратора в одной транзакции.
type Bootstrapper struct {
	tx *TxRunner
}

// NewBootstrapper создаёт Bootstrapper поверх TxRunner.
func NewBootstrapper(tx *TxRunner) *Bootstrapper {
	return &Bootstrapper{tx: tx}
}

// CreateOrganisation сохраняет организацию, оформление и профиль атомарно:
// либо все три записи, либо ни одной.
func (b *Bootstrapper) CreateOrganisation(ctx context.Context, org *model.Organisation, brand *model.Branding, admin *model.Profile) error {
	return b.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := NewOrganisationRepository(tx).Create(ctx, org); err != nil {
			return err
		}
		if brand != nil {
			brand.OrganisationID = org.ID
			if err := NewBrandingRepository(tx).Upsert(ctx, brand); err != nil {
				return fmt.Errorf("оформление: %w", err)
			}
		}
		if admin != nil {
			admin.OrganisationID = &org.ID
			if err := NewProfileRepository(tx).Upsert(ctx, admin); err != nil {
				return fmt.Errorf("профиль администратора: %w", err)
			}
		}
		return nil
	})
}
