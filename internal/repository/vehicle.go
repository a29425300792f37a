package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// VehicleRepository — автомобили клиентов.
type VehicleRepository interface {
	Create(ctx context.Context, v *model.Vehicle) error
	GetByID(ctx context.Context, orgID, id string) (*model.Vehicle, error)
	// List возвращает автомобили организации; clientID сужает выборку до одного клиента.
	List(ctx context.Context, orgID string, clientID *string, limit, offset int) ([]*model.Vehicle, error)
	Count(ctx context.Context, orgID string, clientID *string) (int, error)
	Update(ctx context.Context, v *model.Vehicle) error
	Delete(ctx context.Context, orgID, id string) error
}

type vehicleRepo struct {
	db DBTX
}

// NewVehicleRepository создаёт репозиторий автомобилей.
func NewVehicleRepository(db DBTX) VehicleRepository {
	return &vehicleRepo{db: db}
}

const vehicleColumns = `id, organisation_id, client_id, plate, make, model, year, vin, mileage, created_at, updated_at`

func scanVehicle(row pgx.Row) (*model.Vehicle, error) {
	v := &model.Vehicle{}
	err := row.Scan(
		&v.ID, &v.OrganisationID, &v.ClientID, &v.Plate, &v.Make, &v.Model,
		&v.Year, &v.VIN, &v.Mileage, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

// Create проверяет, что клиент принадлежит той же организации:
// INSERT ... SELECT не вставит строку для чужого клиента.
func (r *vehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO vehicles (id, organisation_id, client_id, plate, make, model, year, vin, mileage)
		SELECT $1::uuid, c.organisation_id, c.id, $4::varchar, $5::varchar, $6::varchar, $7::integer, $8::varchar, $9::integer
		FROM clients c WHERE c.id = $3::uuid AND c.organisation_id = $2::uuid
		RETURNING created_at, updated_at`,
		v.ID, v.OrganisationID, v.ClientID, v.Plate, v.Make, v.Model, v.Year, v.VIN, v.Mileage,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: клиент %s", ErrReference, v.ClientID)
		}
		return fmt.Errorf("ошибка создания автомобиля: %w", mapWriteError(err, "номер "+v.Plate+" уже зарегистрирован"))
	}
	return nil
}

func (r *vehicleRepo) GetByID(ctx context.Context, orgID, id string) (*model.Vehicle, error) {
	query := fmt.Sprintf(`SELECT %s FROM vehicles WHERE organisation_id = $1 AND id = $2`, vehicleColumns)

	v, err := scanVehicle(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения автомобиля: %w", err)
	}
	return v, nil
}

func vehicleFilter(orgID string, clientID *string) (string, []any) {
	where := "WHERE organisation_id = $1"
	args := []any{orgID}
	if clientID != nil {
		where += " AND client_id = $2"
		args = append(args, *clientID)
	}
	return where, args
}

func (r *vehicleRepo) List(ctx context.Context, orgID string, clientID *string, limit, offset int) ([]*model.Vehicle, error) {
	where, args := vehicleFilter(orgID, clientID)
	argNum := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s FROM vehicles
		%s
		ORDER BY plate, id
		LIMIT $%d OFFSET $%d`, vehicleColumns, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка автомобилей: %w", err)
	}
	defer rows.Close()

	var result []*model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования автомобиля: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *vehicleRepo) Count(ctx context.Context, orgID string, clientID *string) (int, error) {
	where, args := vehicleFilter(orgID, clientID)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта автомобилей: %w", err)
	}
	return count, nil
}

func (r *vehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	err := r.db.QueryRow(ctx, `
		UPDATE vehicles SET plate = $3, make = $4, model = $5, year = $6, vin = $7, mileage = $8
		WHERE organisation_id = $1 AND id = $2
		RETURNING client_id, created_at, updated_at`,
		v.OrganisationID, v.ID, v.Plate, v.Make, v.Model, v.Year, v.VIN, v.Mileage,
	).Scan(&v.ClientID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления автомобиля: %w", mapWriteError(err, "номер "+v.Plate+" уже зарегистрирован"))
	}
	return nil
}

func (r *vehicleRepo) Delete(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE organisation_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления автомобиля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
