// scope.go — область данных запроса: кто вызывает и в какой организации.
package service

import (
	"fmt"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
)

// Значения по умолчанию для пагинации списков.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Caller — пользователь и запрошенная им организация
// (заголовок X-Organisation-ID или выбранная в сессии).
type Caller struct {
	User           *model.User
	OrganisationID string
}

// organisation возвращает организацию, с данными которой работает вызов.
// superadmin может работать в любой организации, остальные — только в своей.
func (c Caller) organisation() (string, error) {
	if c.User == nil {
		return "", ErrForbidden
	}
	if c.User.Role == rbac.RoleSuperadmin {
		if c.OrganisationID != "" {
			return c.OrganisationID, nil
		}
		if c.User.HasOrganisation() {
			return *c.User.OrganisationID, nil
		}
		return "", fmt.Errorf("%w: не выбрана организация", ErrValidation)
	}
	if !c.User.HasOrganisation() {
		return "", fmt.Errorf("%w: пользователь не состоит в организации", ErrForbidden)
	}
	if c.OrganisationID != "" && c.OrganisationID != *c.User.OrganisationID {
		return "", fmt.Errorf("%w: чужая организация", ErrForbidden)
	}
	return *c.User.OrganisationID, nil
}

// authorize возвращает организацию вызова, если роль не ниже min.
func (c Caller) authorize(min string) (string, error) {
	orgID, err := c.organisation()
	if err != nil {
		return "", err
	}
	if !rbac.HasAtLeast(c.User.Role, min) {
		return "", fmt.Errorf("%w: требуется роль %s", ErrForbidden, min)
	}
	return orgID, nil
}

// normalizePage ограничивает limit и offset допустимыми значениями.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
