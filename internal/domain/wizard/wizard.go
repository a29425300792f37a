// Пакет wizard — мастер первоначальной настройки.
//
// Линейный конечный автомат:
//
//	plan-selection → admin-account → organisation-details → branding → done
//
// Переходы только вперёд и только на один шаг, по явному подтверждению
// текущего шага. Каждый шаг проверяет обязательные поля. Переход в done
// вызывает Completer ровно один раз.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Step — шаг мастера.
type Step string

const (
	StepPlanSelection       Step = "plan-selection"
	StepAdminAccount        Step = "admin-account"
	StepOrganisationDetails Step = "organisation-details"
	StepBranding            Step = "branding"
	StepDone                Step = "done"
)

// Steps — шаги в порядке прохождения (без done).
var Steps = []Step{StepPlanSelection, StepAdminAccount, StepOrganisationDetails, StepBranding}

// next — матрица допустимых переходов: у каждого шага ровно один следующий.
var next = map[Step]Step{
	StepPlanSelection:       StepAdminAccount,
	StepAdminAccount:        StepOrganisationDetails,
	StepOrganisationDetails: StepBranding,
	StepBranding:            StepDone,
}

// Коды ошибок перехода.
const (
	CodeInvalidStep = "INVALID_STEP"
	CodeAlreadyDone = "ALREADY_DONE"
)

// Data — данные, собранные мастером.
type Data struct {
	Plan string `json:"plan"`

	AdminEmail    string `json:"admin_email"`
	AdminFullName string `json:"admin_full_name"`
	AdminPassword string `json:"admin_password"`

	OrganisationName string `json:"organisation_name"`
	OrganisationSlug string `json:"organisation_slug"`
	Phone            string `json:"phone,omitempty"`
	Address          string `json:"address,omitempty"`

	PrimaryColor string `json:"primary_color"`
	LogoURL      string `json:"logo_url,omitempty"`
}

// State — сериализуемое состояние мастера (хранится в зашифрованной cookie).
type State struct {
	Step      Step      `json:"step"`
	Data      Data      `json:"data"`
	StartedAt time.Time `json:"started_at"`
}

// Completer выполняет завершающее действие мастера.
type Completer interface {
	Complete(ctx context.Context, data Data) error
}

// CompleterFunc — адаптер функции к Completer.
type CompleterFunc func(ctx context.Context, data Data) error

// Complete вызывает f(ctx, data).
func (f CompleterFunc) Complete(ctx context.Context, data Data) error {
	return f(ctx, data)
}

// Wizard — экземпляр мастера. Потокобезопасен.
type Wizard struct {
	mu        sync.Mutex
	state     State
	completer Completer
}

// New создаёт мастер на первом шаге.
func New(completer Completer) *Wizard {
	return &Wizard{
		state:     State{Step: StepPlanSelection, StartedAt: time.Now().UTC()},
		completer: completer,
	}
}

// Restore восстанавливает мастер из сохранённого состояния.
func Restore(state State, completer Completer) (*Wizard, error) {
	if _, ok := next[state.Step]; !ok && state.Step != StepDone {
		return nil, fmt.Errorf("недопустимый шаг мастера: %q", state.Step)
	}
	return &Wizard{state: state, completer: completer}, nil
}

// Step возвращает текущий шаг.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Step
}

// State возвращает копию состояния для сохранения.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Expired сообщает, истекло ли время на прохождение мастера.
func (w *Wizard) Expired(ttl time.Duration, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.state.StartedAt) > ttl
}

// Confirm подтверждает текущий шаг данными in и переводит мастер на следующий.
//
// Ошибки:
//   - *TransitionError{INVALID_STEP} — in относится не к текущему шагу
//   - *TransitionError{ALREADY_DONE} — мастер уже завершён
//   - *ValidationError — не заполнено или некорректно обязательное поле
//   - ошибка Completer — на шаге branding; шаг не меняется
func (w *Wizard) Confirm(ctx context.Context, in Input) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Step == StepDone {
		return &TransitionError{
			Code:    CodeAlreadyDone,
			Message: "мастер настройки уже завершён",
		}
	}

	if in.Step() != w.state.Step {
		return &TransitionError{
			Code:    CodeInvalidStep,
			Message: fmt.Sprintf("текущий шаг %s, подтверждается %s", w.state.Step, in.Step()),
		}
	}

	if err := in.Validate(); err != nil {
		return err
	}

	data := w.state.Data
	in.Apply(&data)

	target := next[w.state.Step]
	if target == StepDone {
		if err := w.completer.Complete(ctx, data); err != nil {
			return err
		}
		// пароль администратора больше не нужен
		data.AdminPassword = ""
	}

	w.state.Data = data
	w.state.Step = target
	return nil
}

// Index возвращает номер шага с единицы (для индикатора прогресса).
func Index(s Step) int {
	for i, st := range Steps {
		if st == s {
			return i + 1
		}
	}
	return len(Steps) + 1
}

// TransitionError — недопустимый переход мастера.
type TransitionError struct {
	Code    string // INVALID_STEP, ALREADY_DONE
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationError — ошибка проверки поля шага.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
