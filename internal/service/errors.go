// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
	"github.com/tinocursor/swift-garage-sub001/internal/keycloak"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — не заполнено или некорректно обязательное поле.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — недостаточно прав (роль или организация).
	ErrForbidden = errors.New("недостаточно прав")
	// ErrNetwork — запрос к PostgreSQL или Keycloak не выполнен.
	ErrNetwork = errors.New("сервис временно недоступен")
	// ErrSetupCompleted — первоначальная настройка уже выполнена.
	ErrSetupCompleted = errors.New("первоначальная настройка уже выполнена")
	// ErrInsufficientStock — списание больше остатка.
	ErrInsufficientStock = errors.New("недостаточно на складе")
)

// FailureKind — категория ошибки для показа пользователю.
type FailureKind int

const (
	// FailureNone — ошибки нет.
	FailureNone FailureKind = iota
	// FailureValidation — ошибка ввода, пользователь может исправить.
	FailureValidation
	// FailureAuthorization — недостаточно прав.
	FailureAuthorization
	// FailureNotFound — ресурс не найден.
	FailureNotFound
	// FailureConflict — ресурс уже существует.
	FailureConflict
	// FailureNetwork — внешняя зависимость недоступна, действие можно повторить.
	FailureNetwork
)

// Classify относит ошибку к одной из категорий.
// Неизвестные ошибки считаются FailureNetwork: запрос не выполнен.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	var ve *wizard.ValidationError
	var te *wizard.TransitionError
	switch {
	case errors.Is(err, ErrValidation), errors.As(err, &ve), errors.As(err, &te),
		errors.Is(err, ErrInsufficientStock), errors.Is(err, repository.ErrReference):
		return FailureValidation
	case errors.Is(err, ErrForbidden):
		return FailureAuthorization
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrSetupCompleted),
		errors.Is(err, repository.ErrConflict), errors.Is(err, keycloak.ErrConflict):
		return FailureConflict
	}
	return FailureNetwork
}

// mapRepoError переводит ошибки репозитория в ошибки сервиса.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return errors.Join(ErrConflict, err)
	case errors.Is(err, repository.ErrReference):
		return errors.Join(ErrValidation, err)
	case errors.Is(err, repository.ErrInsufficientStock):
		return ErrInsufficientStock
	}
	return errors.Join(ErrNetwork, err)
}
