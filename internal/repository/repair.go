package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// RepairFilter — фильтр списка ремонтов.
type RepairFilter struct {
	VehicleID *string
	Status    *string
}

// RepairRepository — ремонты автомобилей.
type RepairRepository interface {
	Create(ctx context.Context, rp *model.Repair) error
	GetByID(ctx context.Context, orgID, id string) (*model.Repair, error)
	List(ctx context.Context, orgID string, f RepairFilter, limit, offset int) ([]*model.Repair, error)
	Count(ctx context.Context, orgID string, f RepairFilter) (int, error)
	Update(ctx context.Context, rp *model.Repair) error
	Delete(ctx context.Context, orgID, id string) error
	// CountByStatus возвращает количество ремонтов организации по статусам.
	CountByStatus(ctx context.Context, orgID string) (map[string]int, error)
}

type repairRepo struct {
	db DBTX
}

// NewRepairRepository создаёт репозиторий ремонтов.
func NewRepairRepository(db DBTX) RepairRepository {
	return &repairRepo{db: db}
}

const repairColumns = `id, organisation_id, vehicle_id, description, status, cost_cents, started_at, completed_at, created_at, updated_at`

func scanRepair(row pgx.Row) (*model.Repair, error) {
	rp := &model.Repair{}
	err := row.Scan(
		&rp.ID, &rp.OrganisationID, &rp.VehicleID, &rp.Description, &rp.Status,
		&rp.CostCents, &rp.StartedAt, &rp.CompletedAt, &rp.CreatedAt, &rp.UpdatedAt,
	)
	return rp, err
}

// Create вставляет ремонт только для автомобиля той же организации.
func (r *repairRepo) Create(ctx context.Context, rp *model.Repair) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO repairs (id, organisation_id, vehicle_id, description, status, cost_cents, started_at, completed_at)
		SELECT $1::uuid, v.organisation_id, v.id, $4::text, $5::varchar, $6::bigint, $7::timestamptz, $8::timestamptz
		FROM vehicles v WHERE v.id = $3::uuid AND v.organisation_id = $2::uuid
		RETURNING created_at, updated_at`,
		rp.ID, rp.OrganisationID, rp.VehicleID, rp.Description, rp.Status,
		rp.CostCents, rp.StartedAt, rp.CompletedAt,
	).Scan(&rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: автомобиль %s", ErrReference, rp.VehicleID)
		}
		return fmt.Errorf("ошибка создания ремонта: %w", err)
	}
	return nil
}

func (r *repairRepo) GetByID(ctx context.Context, orgID, id string) (*model.Repair, error) {
	query := fmt.Sprintf(`SELECT %s FROM repairs WHERE organisation_id = $1 AND id = $2`, repairColumns)

	rp, err := scanRepair(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ремонта: %w", err)
	}
	return rp, nil
}

// repairFilter — динамическое построение WHERE.
func repairFilter(orgID string, f RepairFilter) (string, []any) {
	conditions := []string{"organisation_id = $1"}
	args := []any{orgID}

	if f.VehicleID != nil {
		args = append(args, *f.VehicleID)
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *repairRepo) List(ctx context.Context, orgID string, f RepairFilter, limit, offset int) ([]*model.Repair, error) {
	where, args := repairFilter(orgID, f)
	argNum := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s FROM repairs
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, repairColumns, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка ремонтов: %w", err)
	}
	defer rows.Close()

	var result []*model.Repair
	for rows.Next() {
		rp, err := scanRepair(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования ремонта: %w", err)
		}
		result = append(result, rp)
	}
	return result, rows.Err()
}

func (r *repairRepo) Count(ctx context.Context, orgID string, f RepairFilter) (int, error) {
	where, args := repairFilter(orgID, f)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM repairs `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта ремонтов: %w", err)
	}
	return count, nil
}

func (r *repairRepo) Update(ctx context.Context, rp *model.Repair) error {
	err := r.db.QueryRow(ctx, `
		UPDATE repairs
		SET description = $3, status = $4, cost_cents = $5, started_at = $6, completed_at = $7
		WHERE organisation_id = $1 AND id = $2
		RETURNING vehicle_id, created_at, updated_at`,
		rp.OrganisationID, rp.ID, rp.Description, rp.Status, rp.CostCents, rp.StartedAt, rp.CompletedAt,
	).Scan(&rp.VehicleID, &rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления ремонта: %w", err)
	}
	return nil
}

func (r *repairRepo) Delete(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM repairs WHERE organisation_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления ремонта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repairRepo) CountByStatus(ctx context.Context, orgID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*) FROM repairs
		WHERE organisation_id = $1
		GROUP BY status`, orgID)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта ремонтов по статусам: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int, len(model.RepairStatuses))
	for _, s := range model.RepairStatuses {
		result[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики ремонтов: %w", err)
		}
		result[status] = n
	}
	return result, rows.Err()
}
