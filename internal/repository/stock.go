package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// ErrInsufficientStock — списание больше остатка.
var ErrInsufficientStock = errors.New("недостаточно на складе")

// StockRepository — склад запчастей.
type StockRepository interface {
	Create(ctx context.Context, s *model.StockItem) error
	GetByID(ctx context.Context, orgID, id string) (*model.StockItem, error)
	// List возвращает позиции; lowOnly — только позиции с остатком не выше порога.
	List(ctx context.Context, orgID string, lowOnly bool, limit, offset int) ([]*model.StockItem, error)
	Count(ctx context.Context, orgID string, lowOnly bool) (int, error)
	Update(ctx context.Context, s *model.StockItem) error
	// Adjust атомарно меняет остаток на delta. Результат ниже нуля — ErrInsufficientStock.
	Adjust(ctx context.Context, orgID, id string, delta int) (*model.StockItem, error)
	Delete(ctx context.Context, orgID, id string) error
}

type stockRepo struct {
	db DBTX
}

// NewStockRepository создаёт репозиторий склада.
func NewStockRepository(db DBTX) StockRepository {
	return &stockRepo{db: db}
}

const stockColumns = `id, organisation_id, sku, name, quantity, min_quantity, unit_price_cents, created_at, updated_at`

func scanStock(row pgx.Row) (*model.StockItem, error) {
	s := &model.StockItem{}
	err := row.Scan(
		&s.ID, &s.OrganisationID, &s.SKU, &s.Name, &s.Quantity, &s.MinQuantity,
		&s.UnitPriceCents, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (r *stockRepo) Create(ctx context.Context, s *model.StockItem) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO stock_items (id, organisation_id, sku, name, quantity, min_quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		s.ID, s.OrganisationID, s.SKU, s.Name, s.Quantity, s.MinQuantity, s.UnitPriceCents,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания позиции склада: %w", mapWriteError(err, "артикул "+s.SKU+" уже существует"))
	}
	return nil
}

func (r *stockRepo) GetByID(ctx context.Context, orgID, id string) (*model.StockItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock_items WHERE organisation_id = $1 AND id = $2`, stockColumns)

	s, err := scanStock(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения позиции склада: %w", err)
	}
	return s, nil
}

func stockWhere(lowOnly bool) string {
	if lowOnly {
		return "WHERE organisation_id = $1 AND quantity <= min_quantity"
	}
	return "WHERE organisation_id = $1"
}

func (r *stockRepo) List(ctx context.Context, orgID string, lowOnly bool, limit, offset int) ([]*model.StockItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM stock_items
		%s
		ORDER BY name, id
		LIMIT $2 OFFSET $3`, stockColumns, stockWhere(lowOnly))

	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка склада: %w", err)
	}
	defer rows.Close()

	var result []*model.StockItem
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования позиции склада: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *stockRepo) Count(ctx context.Context, orgID string, lowOnly bool) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM stock_items `+stockWhere(lowOnly), orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта позиций склада: %w", err)
	}
	return count, nil
}

func (r *stockRepo) Update(ctx context.Context, s *model.StockItem) error {
	err := r.db.QueryRow(ctx, `
		UPDATE stock_items SET sku = $3, name = $4, min_quantity = $5, unit_price_cents = $6
		WHERE organisation_id = $1 AND id = $2
		RETURNING quantity, created_at, updated_at`,
		s.OrganisationID, s.ID, s.SKU, s.Name, s.MinQuantity, s.UnitPriceCents,
	).Scan(&s.Quantity, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления позиции склада: %w", mapWriteError(err, "артикул "+s.SKU+" уже существует"))
	}
	return nil
}

// Adjust полагается на CHECK (quantity >= 0): одновременные списания
// не могут увести остаток в минус.
func (r *stockRepo) Adjust(ctx context.Context, orgID, id string, delta int) (*model.StockItem, error) {
	query := fmt.Sprintf(`
		UPDATE stock_items SET quantity = quantity + $3
		WHERE organisation_id = $1 AND id = $2
		RETURNING %s`, stockColumns)

	s, err := scanStock(r.db.QueryRow(ctx, query, orgID, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isCheckViolation(err) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("ошибка изменения остатка: %w", err)
	}
	return s, nil
}

func (r *stockRepo) Delete(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stock_items WHERE organisation_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции склада: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
