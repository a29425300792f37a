package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/session"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/pages"
)

// StatsProvider — сводка для главной страницы.
type StatsProvider interface {
	Stats(ctx context.Context, c service.Caller) (*model.DashboardStats, error)
}

// DashboardHandler — обработчик страницы Dashboard.
type DashboardHandler struct {
	stats  StatsProvider
	orgs   Organisations
	logger *slog.Logger
}

// NewDashboardHandler создаёт новый DashboardHandler.
func NewDashboardHandler(stats StatsProvider, orgs Organisations, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:  stats,
		orgs:   orgs,
		logger: logger.With(slog.String("component", "ui_dashboard")),
	}
}

// HandleDashboard обрабатывает GET /dashboard.
// Сводка и оформление загружаются для выбранной организации
// (без выбора — для организации пользователя).
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())
	orgID := st.CurrentOrganisationID
	if orgID == "" {
		orgID = *st.User.OrganisationID
	}

	data := pages.DashboardData{Email: st.User.Email, Role: st.User.Role}
	status := http.StatusOK

	if org, err := h.orgs.Get(r.Context(), st.User, orgID); err == nil {
		data.Organisation = org
	}
	if branding, err := h.orgs.Branding(r.Context(), orgID); err == nil {
		data.PrimaryColor = branding.PrimaryColor
	}

	stats, err := h.stats.Stats(r.Context(), service.Caller{User: st.User, OrganisationID: orgID})
	if err != nil {
		h.logger.Warn("Ошибка загрузки сводки",
			slog.String("organisation_id", orgID),
			slog.String("error", err.Error()),
		)
		data.Toast, status = failure(err)
	}
	data.Stats = stats

	render(w, r, h.logger, status, pages.Dashboard(data))
}
