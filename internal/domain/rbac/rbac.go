// Пакет rbac — логика определения эффективной роли пользователя.
// Роль складывается из двух источников: группы IdP и локальный профиль.
// Итоговая роль = max(роль из IdP, роль профиля). Роль из IdP может
// только повысить роль профиля, но не понизить.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleEmploye    = "employe"
	RoleTechnicien = "technicien"
	RoleManager    = "manager"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleEmploye:    1,
	RoleTechnicien: 2,
	RoleManager:    3,
	RoleAdmin:      4,
	RoleSuperadmin: 5,
}

// EffectiveRole вычисляет итоговую роль = max(idpRole, profileRole).
// Пустая строка в любом аргументе означает "роль не задана".
func EffectiveRole(idpRole, profileRole string) string {
	return maxRole(idpRole, profileRole)
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя на основе групп IdP.
// Группы из superadminGroups дают роль superadmin, остальные роли
// назначаются только через профиль. Нет совпадений — пустая строка.
func MapGroupsToRole(groups, superadminGroups []string) string {
	set := toSet(superadminGroups)
	for _, g := range groups {
		if set[g] {
			return RoleSuperadmin
		}
	}
	return ""
}

// HasAtLeast проверяет, что role не ниже min.
// Неизвестная роль не проходит ни одну проверку.
func HasAtLeast(role, min string) bool {
	w, ok := roleWeight[role]
	if !ok {
		return false
	}
	return w >= roleWeight[min]
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
