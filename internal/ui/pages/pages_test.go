package pages

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/i18n"
)

func TestMain(m *testing.M) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("Render() вернул ошибку: %v", err)
	}
	return buf.String()
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(out, s) {
			t.Errorf("страница не содержит %q", s)
		}
	}
}

func TestLoading(t *testing.T) {
	out := renderString(t, context.Background(), Loading())

	if !strings.HasPrefix(strings.ToLower(out), "<!doctype html>") {
		t.Errorf("страница должна начинаться с DOCTYPE: %.40q", out)
	}
	head := out[:strings.Index(out, "</head>")]
	assertContains(t, head, `<meta http-equiv="refresh" content="5">`)
	assertContains(t, out, "Chargement de votre session", `lang="fr"`)
}

func TestLayout_Language(t *testing.T) {
	ctx := i18n.WithLang(context.Background(), "en")
	out := renderString(t, ctx, Loading())
	assertContains(t, out, `lang="en"`, "Loading your session")
}

func TestAuth(t *testing.T) {
	t.Run("анонимный", func(t *testing.T) {
		out := renderString(t, context.Background(), Auth(AuthData{}))
		assertContains(t, out, `href="/login"`, "Se connecter")
		if strings.Contains(out, `action="/logout"`) {
			t.Error("анонимному пользователю не нужна кнопка выхода")
		}
	})

	t.Run("без организации", func(t *testing.T) {
		out := renderString(t, context.Background(), Auth(AuthData{Email: "a@garage.fr", NoOrganisation: true}))
		assertContains(t, out, `class="notice"`, `action="/logout"`, "a@garage.fr")
		if strings.Contains(out, `href="/login"`) {
			t.Error("вошедшему пользователю не нужна кнопка входа")
		}
	})
}

func TestToast_Escaping(t *testing.T) {
	out := renderString(t, context.Background(), Toast(ToastError, "error.validation", "<script>alert(1)</script>"))

	assertContains(t, out, `class="toast toast-error"`, "Certains champs sont invalides.", "&lt;script&gt;")
	if strings.Contains(out, "<script>") {
		t.Error("detail должен экранироваться")
	}
}

func TestWizard(t *testing.T) {
	ctx := context.Background()

	t.Run("первый шаг", func(t *testing.T) {
		out := renderString(t, ctx, Wizard(WizardData{Step: wizard.StepPlanSelection}))
		assertContains(t, out,
			`<li class="current">Offre</li>`,
			`name="step" value="plan-selection"`,
			`value="free"`, `value="monthly"`, `value="lifetime"`,
		)
	})

	t.Run("ошибка поля", func(t *testing.T) {
		out := renderString(t, ctx, Wizard(WizardData{
			Step:         wizard.StepAdminAccount,
			Data:         wizard.Data{Plan: model.PlanFree, AdminEmail: "bad"},
			InvalidField: "email",
		}))
		assertContains(t, out,
			`<li class="done">Offre</li>`,
			`data-field="email"`,
			"Saisissez une adresse e-mail valide.",
			`value="bad"`,
		)
		if strings.Contains(out, `name="password" value="x`) {
			t.Error("пароль не должен возвращаться в форму")
		}
	})

	t.Run("оформление", func(t *testing.T) {
		out := renderString(t, ctx, Wizard(WizardData{Step: wizard.StepBranding}))
		assertContains(t, out, `value="`+wizard.DefaultPrimaryColor+`"`, "--primary:"+wizard.DefaultPrimaryColor)
	})

	t.Run("завершён", func(t *testing.T) {
		out := renderString(t, ctx, Wizard(WizardData{
			Step:         wizard.StepDone,
			Organisation: &model.Organisation{Name: "Garage <Ecoles>"},
		}))
		assertContains(t, out, "Garage &lt;Ecoles&gt;", `href="/login"`)
		if strings.Contains(out, "<form") && strings.Contains(out, `action="/create-organisation"`) {
			t.Error("на завершённом мастере не должно быть формы шага")
		}
	})
}

func TestOrganisationSelector(t *testing.T) {
	orgs := []*model.Organisation{
		{ID: "org-1", Name: "Garage Nord", Slug: "garage-nord", Plan: model.PlanFree},
		{ID: "org-2", Name: "Garage Sud", Slug: "garage-sud", Plan: model.PlanMonthly},
	}
	out := renderString(t, context.Background(), OrganisationSelector(SelectorData{
		Email: "s@garage.fr", Organisations: orgs, Current: "org-2",
	}))

	assertContains(t, out, `value="org-1"`, `value="org-2"`, "Garage Nord", `class="current"`)
	if strings.Count(out, `class="current"`) != 1 {
		t.Error("текущей должна быть ровно одна организация")
	}
}

func TestOrganisationOnboarding(t *testing.T) {
	org := &model.Organisation{ID: "org-1", Name: "Garage Nord"}

	out := renderString(t, context.Background(), OrganisationOnboarding(OnboardingData{Organisation: org, CanComplete: true, Phone: "0102"}))
	assertContains(t, out, `action="/organisation-onboarding"`, `value="0102"`)

	out = renderString(t, context.Background(), OrganisationOnboarding(OnboardingData{Organisation: org}))
	if strings.Contains(out, `action="/organisation-onboarding"`) {
		t.Error("без роли admin форма онбординга не показывается")
	}
}

func TestDashboard(t *testing.T) {
	stats := &model.DashboardStats{
		Clients:         12,
		Vehicles:        7,
		LowStockItems:   2,
		RepairsByStatus: map[string]int{model.RepairInProgress: 3},
	}
	out := renderString(t, context.Background(), Dashboard(DashboardData{
		Email:        "m@garage.fr",
		Role:         "manager",
		Organisation: &model.Organisation{Name: "Garage Nord"},
		PrimaryColor: "#112233",
		Stats:        stats,
	}))

	assertContains(t, out,
		"Garage Nord",
		`<span class="value">12</span>`,
		`<span class="value">7</span>`,
		`<span class="value">3</span>`,
		"--primary:#112233",
	)
	if n := strings.Count(out, `class="tile"`); n != 3+len(model.RepairStatuses) {
		t.Errorf("плиток = %d, ожидается %d", n, 3+len(model.RepairStatuses))
	}
}
