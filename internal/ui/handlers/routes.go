// routes.go — маршруты веб-интерфейса.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/access"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/i18n"
	uimiddleware "github.com/tinocursor/swift-garage-sub001/internal/ui/middleware"
)

// UI — обработчики и middleware веб-интерфейса.
type UI struct {
	Auth          *AuthHandler
	Setup         *SetupHandler
	Organisations *OrganisationHandler
	Dashboard     *DashboardHandler
	Sessions      *uimiddleware.SessionProvider
	Guard         *uimiddleware.AccessGuard
}

// Mount регистрирует страницы UI на router.
// /auth, /login, /callback и /create-organisation публичные,
// остальные страницы проходят через AccessGuard.
func (u *UI) Mount(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware())
		r.Use(u.Sessions.Middleware())

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, access.PathDashboard, http.StatusFound)
		})
		r.Post("/language", HandleSetLanguage)

		r.Get(access.PathAuth, u.Auth.HandleAuthPage)
		r.Get("/login", u.Auth.HandleLogin)
		r.Get("/callback", u.Auth.HandleCallback)
		r.Post("/logout", u.Auth.HandleLogout)

		r.Get(access.PathCreateOrganisation, u.Setup.HandleWizard)
		r.Post(access.PathCreateOrganisation, u.Setup.HandleWizardSubmit)

		r.Group(func(r chi.Router) {
			r.Use(u.Guard.Middleware())

			r.Get(access.PathOrganisationSelector, u.Organisations.HandleSelector)
			r.Post(access.PathOrganisationSelector, u.Organisations.HandleSelect)
			r.Get(access.PathOrganisationOnboarding, u.Organisations.HandleOnboarding)
			r.Post(access.PathOrganisationOnboarding, u.Organisations.HandleOnboardingSubmit)
			r.Get(access.PathDashboard, u.Dashboard.HandleDashboard)
		})
	})
}
