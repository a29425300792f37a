// handler.go — основной обработчик Swift Garage API.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/tinocursor/swift-garage-sub001/internal/api/errors"
	"github.com/tinocursor/swift-garage-sub001/internal/api/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

// HeaderOrganisationID — заголовок выбора организации (для superadmin).
const HeaderOrganisationID = "X-Organisation-ID"

// Services — сервисы, которыми пользуется API.
type Services struct {
	Users         *service.UserService
	Organisations *service.OrganisationService
	Access        *service.AccessService
	Setup         *service.SetupService
	Clients       *service.ClientService
	Vehicles      *service.VehicleService
	Repairs       *service.RepairService
	Stock         *service.StockService
	Dashboard     *service.DashboardService
}

// APIHandler — основной обработчик API Swift Garage.
type APIHandler struct {
	health *HealthHandler
	svc    Services
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health: health,
		svc:    svc,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// writeServiceError переводит ошибку сервиса в ответ API.
// Неизвестные ошибки считаются недоступностью бэкенда (502).
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch service.Classify(err) {
	case service.FailureValidation:
		apierrors.ValidationError(w, validationMessage(err))
	case service.FailureAuthorization:
		apierrors.Forbidden(w, "Недостаточно прав")
	case service.FailureNotFound:
		apierrors.NotFound(w, "Ресурс не найден")
	case service.FailureConflict:
		apierrors.Conflict(w, conflictMessage(err))
	default:
		h.logger.Error("Ошибка выполнения запроса",
			slog.String("action", action),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.BackendUnavailable(w, "Сервис временно недоступен, повторите попытку")
	}
}

// validationMessage возвращает сообщение без обёрток errors.Join.
func validationMessage(err error) string {
	var ve *wizard.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var te *wizard.TransitionError
	if errors.As(err, &te) {
		return te.Error()
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

func conflictMessage(err error) string {
	if errors.Is(err, service.ErrSetupCompleted) {
		return service.ErrSetupCompleted.Error()
	}
	return "Ресурс уже существует"
}

// caller собирает service.Caller из claims и заголовка X-Organisation-ID.
func caller(r *http.Request) service.Caller {
	return service.Caller{
		User:           middleware.UserFromContext(r.Context()),
		OrganisationID: strings.TrimSpace(r.Header.Get(HeaderOrganisationID)),
	}
}

// pathID привязывает параметр пути {id} как UUID. При ошибке пишет 400.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр id: "+err.Error())
		return "", false
	}
	return id.String(), true
}

// bindPage привязывает limit/offset. При ошибке пишет 400.
func bindPage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	var limit, offset *int
	if !bindQuery(w, r, "limit", &limit) || !bindQuery(w, r, "offset", &offset) {
		return 0, 0, false
	}
	l, o := paginationDefaults(limit, offset)
	return l, o, true
}

// bindQuery привязывает необязательный query-параметр. При ошибке пишет 400.
func bindQuery(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр "+name+": "+err.Error())
		return false
	}
	return true
}

// paginationDefaults нормализует параметры пагинации.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := service.DefaultPageLimit
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > service.MaxPageLimit {
			l = service.MaxPageLimit
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}
