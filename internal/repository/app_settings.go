package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// AppSetting — запись из таблицы app_settings.
type AppSetting struct {
	// Ключ настройки (например "setup_complete")
	Key string
	// Значение (строковое представление)
	Value string
	// Время последнего обновления
	UpdatedAt time.Time
	// Кто обновил настройку
	UpdatedBy string
}

// AppSettingsRepository — интерфейс для таблицы app_settings.
type AppSettingsRepository interface {
	// Get возвращает настройку по ключу. Если не найдена — ErrNotFound.
	Get(ctx context.Context, key string) (*AppSetting, error)
	// Set создаёт или обновляет настройку (upsert).
	Set(ctx context.Context, key, value, updatedBy string) error
	// ListByPrefix возвращает настройки с ключами, начинающимися на prefix.
	ListByPrefix(ctx context.Context, prefix string) ([]AppSetting, error)
}

type appSettingsRepo struct {
	db DBTX
}

// NewAppSettingsRepository создаёт репозиторий настроек приложения.
func NewAppSettingsRepository(db DBTX) AppSettingsRepository {
	return &appSettingsRepo{db: db}
}

func (r *appSettingsRepo) Get(ctx context.Context, key string) (*AppSetting, error) {
	query := `
		SELECT key, value, updated_at, updated_by
		FROM app_settings
		WHERE key = $1`

	s := &AppSetting{}
	err := r.db.QueryRow(ctx, query, key).Scan(&s.Key, &s.Value, &s.UpdatedAt, &s.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения app_settings[%s]: %w", key, err)
	}
	return s, nil
}

// Set — INSERT ... ON CONFLICT DO UPDATE.
func (r *appSettingsRepo) Set(ctx context.Context, key, value, updatedBy string) error {
	query := `
		INSERT INTO app_settings (key, value, updated_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, key, value, updatedBy); err != nil {
		return fmt.Errorf("ошибка сохранения app_settings[%s]: %w", key, err)
	}
	return nil
}

func (r *appSettingsRepo) ListByPrefix(ctx context.Context, prefix string) ([]AppSetting, error) {
	query := `
		SELECT key, value, updated_at, updated_by
		FROM app_settings
		WHERE key LIKE $1
		ORDER BY key`

	rows, err := r.db.Query(ctx, query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("ошибка получения app_settings по префиксу %q: %w", prefix, err)
	}
	defer rows.Close()

	var settings []AppSetting
	for rows.Next() {
		var s AppSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt, &s.UpdatedBy); err != nil {
			return nil, fmt.Errorf("ошибка сканирования app_settings: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
