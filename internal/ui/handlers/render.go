// Пакет handlers — HTTP-обработчики UI.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/tinocursor/swift-garage-sub001/internal/service"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/pages"
)

// render отдаёт страницу со статусом status.
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// failure переводит ошибку сервиса в уведомление и HTTP-статус страницы.
// Все категории показываются одинаково: временным уведомлением.
func failure(err error) (templ.Component, int) {
	switch service.Classify(err) {
	case service.FailureValidation:
		return pages.Toast(pages.ToastError, "error.validation", ""), http.StatusUnprocessableEntity
	case service.FailureAuthorization:
		return pages.Toast(pages.ToastError, "error.forbidden", ""), http.StatusForbidden
	case service.FailureNotFound:
		return pages.Toast(pages.ToastError, "error.not_found", ""), http.StatusNotFound
	case service.FailureConflict:
		return pages.Toast(pages.ToastError, "error.conflict", ""), http.StatusConflict
	default:
		return pages.Toast(pages.ToastWarning, "error.network", ""), http.StatusBadGateway
	}
}

// HandleLoading рендерит страницу ожидания для AccessGuard.
func HandleLoading(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render(w, r, logger, http.StatusServiceUnavailable, pages.Loading())
	})
}
