// Пакет access — решение о доступе к защищённым страницам.
//
// Resolve — чистая функция от состояния сессии, набора организаций
// и текущего пути. Проверки выполняются в фиксированном порядке:
// загрузка > первый запуск > аутентификация > членство > онбординг >
// выбор организации > доступ разрешён. Ровно одно решение на вход.
package access

import (
	"strings"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
)

// Пути навигации.
const (
	PathAuth                   = "/auth"
	PathCreateOrganisation     = "/create-organisation"
	PathOrganisationSelector   = "/organisation-selector"
	PathOrganisationOnboarding = "/organisation-onboarding"
	PathDashboard              = "/dashboard"
)

// Decision — результат разрешения доступа.
type Decision int

const (
	// Loading — состояние сессии ещё не определено.
	Loading Decision = iota
	// NeedsFirstOrganisation — в системе нет ни одной организации.
	NeedsFirstOrganisation
	// NeedsAuthentication — пользователь не вошёл.
	NeedsAuthentication
	// NeedsOrganisationMembership — у пользователя нет организации.
	NeedsOrganisationMembership
	// NeedsOnboarding — организация пользователя не прошла онбординг.
	NeedsOnboarding
	// NeedsOrganisationSelection — текущая организация не выбрана.
	NeedsOrganisationSelection
	// Granted — доступ разрешён.
	Granted
)

var decisionNames = [...]string{
	Loading:                     "loading",
	NeedsFirstOrganisation:      "needs_first_organisation",
	NeedsAuthentication:         "needs_authentication",
	NeedsOrganisationMembership: "needs_organisation_membership",
	NeedsOnboarding:             "needs_onboarding",
	NeedsOrganisationSelection:  "needs_organisation_selection",
	Granted:                     "granted",
}

// String возвращает snake_case имя решения (используется в метриках и API).
func (d Decision) String() string {
	if d < 0 || int(d) >= len(decisionNames) {
		return "unknown"
	}
	return decisionNames[d]
}

// OrganisationRef — минимальные сведения об организации, видимой пользователю.
type OrganisationRef struct {
	ID                  string
	OnboardingCompleted bool
}

// Input — всё, от чего зависит решение.
type Input struct {
	// Loading — cookie сессии есть, но пользователь ещё не определён
	Loading bool
	// User — аутентифицированный пользователь (nil — анонимный)
	User *model.User
	// OrganisationsExist — в системе есть хотя бы одна организация
	OrganisationsExist bool
	// Own — организация пользователя; nil, если профиль ссылается на удалённую
	Own *OrganisationRef
	// AnyVisible — пользователю видна хотя бы одна организация
	AnyVisible bool
	// CurrentOrganisationID — выбранная организация (пусто — не выбрана)
	CurrentOrganisationID string
	// CurrentVisible — выбранная организация существует и видна пользователю
	CurrentVisible bool
	// Path — текущий путь запроса
	Path string
}

// Result — решение и путь перенаправления.
// Redirect пуст для Granted и Loading.
type Result struct {
	Decision Decision
	Redirect string
}

// Resolve вычисляет решение о доступе.
func Resolve(in Input) Result {
	if in.Loading {
		return Result{Decision: Loading}
	}

	if !in.OrganisationsExist {
		return redirect(NeedsFirstOrganisation, PathCreateOrganisation)
	}

	if in.User == nil {
		return redirect(NeedsAuthentication, PathAuth)
	}

	// Ссылка на удалённую организацию без других видимых — то же,
	// что отсутствие членства.
	if !in.User.HasOrganisation() || !in.AnyVisible {
		return redirect(NeedsOrganisationMembership, PathAuth)
	}

	path := normalizePath(in.Path)

	if in.Own != nil && !in.Own.OnboardingCompleted {
		if path == PathOrganisationOnboarding {
			return Result{Decision: Granted}
		}
		return redirect(NeedsOnboarding, PathOrganisationOnboarding)
	}

	if in.CurrentOrganisationID == "" || !in.CurrentVisible {
		if path == PathOrganisationSelector {
			return Result{Decision: Granted}
		}
		return redirect(NeedsOrganisationSelection, PathOrganisationSelector)
	}

	return Result{Decision: Granted}
}

func redirect(d Decision, path string) Result {
	return Result{Decision: d, Redirect: path}
}

// normalizePath убирает завершающий слэш и query-строку.
func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
