// routes.go — маршруты Swift Garage API.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/api/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/api/openapi"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
)

// Authenticator — JWT middleware (реализуется middleware.JWTAuth).
type Authenticator interface {
	// Middleware требует Bearer token.
	Middleware() func(http.Handler) http.Handler
	// OptionalMiddleware пропускает анонимные запросы.
	OptionalMiddleware() func(http.Handler) http.Handler
}

// HandlerFromMux регистрирует health endpoints и /api/v1 на router.
// validator — проверка запросов по OpenAPI документу (nil — без проверки).
func HandlerFromMux(h *APIHandler, router chi.Router, auth Authenticator, validator *openapi.Validator) {
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		// openapi.yaml не описан в документе и проходит без проверки.
		if validator != nil {
			r.Use(validator.Middleware())
		}
		r.Get("/openapi.yaml", serveSpec)

		// Публичные: мастер настройки доступен до появления пользователей.
		r.Get("/setup/status", h.GetSetupStatus)
		r.Post("/setup", h.CompleteSetup)

		r.With(auth.OptionalMiddleware()).Get("/access", h.ResolveAccess)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())

			r.Get("/me", h.GetMe)
			r.With(middleware.RequireRole(rbac.RoleAdmin)).Get("/users", h.ListUsers)
			r.With(middleware.RequireRole(rbac.RoleAdmin)).Put("/users/{id}", h.UpdateUser)

			r.Get("/organisations", h.ListOrganisations)
			r.With(middleware.RequireRole(rbac.RoleSuperadmin)).Post("/organisations", h.CreateOrganisation)
			r.Get("/organisations/{id}", h.GetOrganisation)
			r.Post("/organisations/{id}/onboarding", h.CompleteOnboarding)
			r.Get("/organisations/{id}/branding", h.GetBranding)

			r.Get("/dashboard", h.GetDashboard)

			r.Get("/clients", h.ListClients)
			r.Post("/clients", h.CreateClient)
			r.Get("/clients/{id}", h.GetClient)
			r.Put("/clients/{id}", h.UpdateClient)
			r.Delete("/clients/{id}", h.DeleteClient)

			r.Get("/vehicles", h.ListVehicles)
			r.Post("/vehicles", h.CreateVehicle)
			r.Get("/vehicles/{id}", h.GetVehicle)
			r.Put("/vehicles/{id}", h.UpdateVehicle)
			r.Delete("/vehicles/{id}", h.DeleteVehicle)

			r.Get("/repairs", h.ListRepairs)
			r.Post("/repairs", h.CreateRepair)
			r.Get("/repairs/{id}", h.GetRepair)
			r.Put("/repairs/{id}", h.UpdateRepair)
			r.Delete("/repairs/{id}", h.DeleteRepair)

			r.Get("/stock", h.ListStock)
			r.Post("/stock", h.CreateStockItem)
			r.Get("/stock/{id}", h.GetStockItem)
			r.Put("/stock/{id}", h.UpdateStockItem)
			r.Post("/stock/{id}/adjust", h.AdjustStock)
			r.Delete("/stock/{id}", h.DeleteStockItem)
		})
	})
}

// serveSpec отдаёт OpenAPI документ.
func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapi.Spec())
}
