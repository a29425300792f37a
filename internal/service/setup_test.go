package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
	"github.com/tinocursor/swift-garage-sub001/internal/keycloak"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

type setupFixture struct {
	svc      *SetupService
	settings *fakeSettings
	orgs     *fakeOrgRepo
	profiles *fakeProfileRepo
	idp      *fakeIDP
	boot     *fakeBootstrapper
}

func newSetupFixture() *setupFixture {
	f := &setupFixture{
		settings: newFakeSettings(),
		orgs:     newFakeOrgRepo(),
		profiles: newFakeProfileRepo(),
		idp:      newFakeIDP(),
	}
	f.boot = &fakeBootstrapper{orgs: f.orgs, profiles: f.profiles, brands: &fakeBrandingRepo{}}
	orgSvc := NewOrganisationService(f.orgs, f.boot.brands, testLogger())
	f.svc = NewSetupService(f.settings, orgSvc, f.idp, f.boot, testLogger())
	return f
}

func validSetupData() wizard.Data {
	return wizard.Data{
		Plan:             model.PlanMonthly,
		AdminEmail:       "admin@garage-martin.fr",
		AdminFullName:    "Jeanne Martin",
		AdminPassword:    "s3cret-pass",
		OrganisationName: "Garage Martin",
		OrganisationSlug: "garage-martin",
		Phone:            "+33 1 23 45 67 89",
		PrimaryColor:     "#1f6feb",
	}
}

func TestSetupService_Complete(t *testing.T) {
	f := newSetupFixture()
	ctx := context.Background()

	var callbacks int
	f.svc.OnComplete(func(_ context.Context, org *model.Organisation) {
		callbacks++
		if org.Slug != "garage-martin" {
			t.Errorf("callback org.Slug = %q, ожидается garage-martin", org.Slug)
		}
	})

	org, err := f.svc.Complete(ctx, validSetupData())
	if err != nil {
		t.Fatalf("Complete() ошибка: %v", err)
	}
	if callbacks != 1 {
		t.Errorf("callback вызван %d раз, ожидается 1", callbacks)
	}
	if !org.OnboardingCompleted {
		t.Error("OnboardingCompleted = false, ожидается true")
	}
	if org.Plan != model.PlanMonthly {
		t.Errorf("Plan = %q, ожидается monthly", org.Plan)
	}

	if got := f.settings.values[SettingSetupComplete]; got != "true" {
		t.Errorf("%s = %q, ожидается true", SettingSetupComplete, got)
	}

	cfg, err := f.svc.Config(ctx)
	if err != nil {
		t.Fatalf("Config() ошибка: %v", err)
	}
	if !cfg.SetupComplete || cfg.Version != SetupConfigVersion || cfg.CompletedAt == nil {
		t.Errorf("Config() = %+v, ожидается завершённая настройка версии %d", cfg, SetupConfigVersion)
	}

	if len(f.idp.users) != 1 {
		t.Fatalf("пользователей в Keycloak = %d, ожидается 1", len(f.idp.users))
	}
	for id, u := range f.idp.users {
		if u.FirstName != "Jeanne" || u.LastName != "Martin" {
			t.Errorf("имя = %q %q, ожидается Jeanne Martin", u.FirstName, u.LastName)
		}
		p, err := f.profiles.Get(ctx, id)
		if err != nil {
			t.Fatalf("профиль администратора не создан: %v", err)
		}
		if p.Role != rbac.RoleSuperadmin {
			t.Errorf("роль = %q, ожидается superadmin", p.Role)
		}
		if p.OrganisationID == nil || *p.OrganisationID != org.ID {
			t.Errorf("организация профиля = %v, ожидается %s", p.OrganisationID, org.ID)
		}
		if cfg.CompletedBy != id {
			t.Errorf("CompletedBy = %q, ожидается %q", cfg.CompletedBy, id)
		}
	}

	// Повторное завершение запрещено, callback не вызывается
	_, err = f.svc.Complete(ctx, validSetupData())
	if !errors.Is(err, ErrSetupCompleted) {
		t.Errorf("повторный Complete() = %v, ожидается ErrSetupCompleted", err)
	}
	if callbacks != 1 {
		t.Errorf("callback вызван %d раз после повтора, ожидается 1", callbacks)
	}
}

func TestSetupService_Status(t *testing.T) {
	f := newSetupFixture()
	ctx := context.Background()

	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() ошибка: %v", err)
	}
	if !st.Available() {
		t.Error("Available() = false на пустой системе, ожидается true")
	}

	_ = f.orgs.Create(ctx, &model.Organisation{ID: "org-1", Name: "Garage", Slug: "garage"})
	st, err = f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() ошибка: %v", err)
	}
	if st.Available() {
		t.Error("Available() = true при существующей организации, ожидается false")
	}
	if _, err := f.svc.Complete(ctx, validSetupData()); !errors.Is(err, ErrSetupCompleted) {
		t.Errorf("Complete() = %v, ожидается ErrSetupCompleted", err)
	}
	if len(f.idp.users) != 0 {
		t.Error("пользователь Keycloak создан, хотя настройка недоступна")
	}
}

func TestSetupService_CompensatesKeycloakUser(t *testing.T) {
	f := newSetupFixture()
	f.boot.err = errBackend

	called := false
	f.svc.OnComplete(func(context.Context, *model.Organisation) { called = true })

	_, err := f.svc.Complete(context.Background(), validSetupData())
	if Classify(err) != FailureNetwork {
		t.Errorf("Classify(%v) = %v, ожидается FailureNetwork", err, Classify(err))
	}
	if len(f.idp.deleted) != 1 {
		t.Errorf("удалено пользователей Keycloak = %d, ожидается 1", len(f.idp.deleted))
	}
	if len(f.idp.users) != 0 {
		t.Error("пользователь Keycloak остался после компенсации")
	}
	if called {
		t.Error("callback вызван при неудачной настройке")
	}
	if _, ok := f.settings.values[SettingSetupComplete]; ok {
		t.Error("setup_complete записан при неудачной настройке")
	}

	// После устранения сбоя настройку можно повторить
	f.boot.err = nil
	if _, err := f.svc.Complete(context.Background(), validSetupData()); err != nil {
		t.Fatalf("повторный Complete() ошибка: %v", err)
	}
}

func TestSetupService_MarkCompleteFails(t *testing.T) {
	f := newSetupFixture()
	ctx := context.Background()
	f.settings.setErr = errors.New("db down")

	called := false
	f.svc.OnComplete(func(context.Context, *model.Organisation) { called = true })

	org, err := f.svc.Complete(ctx, validSetupData())
	if Classify(err) != FailureNetwork {
		t.Fatalf("Classify(%v) = %v, ожидается FailureNetwork", err, Classify(err))
	}
	if org != nil {
		t.Error("организация возвращена при несохранённой конфигурации")
	}
	if called {
		t.Error("callback вызван при несохранённой конфигурации")
	}
	if _, ok := f.settings.values[SettingSetupComplete]; ok {
		t.Error("setup_complete записан, хотя запись не удалась")
	}

	// Пока запись недоступна, мастер закрыт: организация уже есть
	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() ошибка: %v", err)
	}
	if st.Available() || st.SetupComplete {
		t.Errorf("Status() = %+v, ожидается закрытый мастер без флага", st)
	}

	// После восстановления хранилища флаг дописывается при проверке состояния
	f.settings.setErr = nil
	st, err = f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status() ошибка: %v", err)
	}
	if !st.SetupComplete {
		t.Error("SetupComplete = false после восстановления, ожидается true")
	}
	if got := f.settings.values[SettingSetupComplete]; got != "true" {
		t.Errorf("%s = %q, ожидается true", SettingSetupComplete, got)
	}
	if got := f.settings.values[SettingSetupVersion]; got != "1" {
		t.Errorf("%s = %q, ожидается 1", SettingSetupVersion, got)
	}
	if len(f.idp.deleted) != 0 {
		t.Error("администратор удалён, хотя организация создана")
	}
}

func TestSetupService_CallbackOutsideLock(t *testing.T) {
	f := newSetupFixture()
	ctx := context.Background()

	nested := 0
	f.svc.OnComplete(func(ctx context.Context, _ *model.Organisation) {
		// callback может регистрировать новые callback и читать состояние
		f.svc.OnComplete(func(context.Context, *model.Organisation) { nested++ })
		if st, err := f.svc.Status(ctx); err != nil || !st.SetupComplete {
			t.Errorf("Status() из callback = %+v, %v", st, err)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Complete(ctx, validSetupData())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Complete() ошибка: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Complete() заблокирован callback")
	}
	if nested != 0 {
		t.Errorf("callback, добавленный во время вызова, выполнен %d раз, ожидается 0", nested)
	}
	if len(f.svc.onComplete) != 2 {
		t.Errorf("callback зарегистрировано %d, ожидается 2", len(f.svc.onComplete))
	}
}

func TestSetupService_SlugConflict(t *testing.T) {
	f := newSetupFixture()
	f.boot.err = errors.Join(errors.New("организация"), repository.ErrConflict)

	_, err := f.svc.Complete(context.Background(), validSetupData())
	if Classify(err) != FailureConflict {
		t.Errorf("Classify(%v) = %v, ожидается FailureConflict", err, Classify(err))
	}
	if len(f.idp.deleted) != 1 {
		t.Errorf("удалено пользователей Keycloak = %d, ожидается 1", len(f.idp.deleted))
	}
}

func TestSetupService_KeycloakErrors(t *testing.T) {
	t.Run("email занят", func(t *testing.T) {
		f := newSetupFixture()
		f.idp.users["existing"] = keycloak.NewUser{Email: "admin@garage-martin.fr"}

		_, err := f.svc.Complete(context.Background(), validSetupData())
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Complete() = %v, ожидается ErrConflict", err)
		}
		if f.boot.calls != 0 {
			t.Error("транзакция выполнена после ошибки Keycloak")
		}
	})

	t.Run("Keycloak недоступен", func(t *testing.T) {
		f := newSetupFixture()
		f.idp.createErr = errBackend

		_, err := f.svc.Complete(context.Background(), validSetupData())
		if Classify(err) != FailureNetwork {
			t.Errorf("Classify(%v) = %v, ожидается FailureNetwork", err, Classify(err))
		}
	})
}

func TestSetupService_WizardIntegration(t *testing.T) {
	f := newSetupFixture()
	ctx := context.Background()

	callbacks := 0
	f.svc.OnComplete(func(context.Context, *model.Organisation) { callbacks++ })

	w := wizard.New(f.svc.Completer())
	inputs := []wizard.Input{
		wizard.PlanInput{Plan: model.PlanFree},
		wizard.AdminInput{Email: "Admin@Garage.fr", FullName: "Paul Durand", Password: "long-password"},
		wizard.OrganisationInput{Name: "Garage Durand"},
		wizard.BrandingInput{},
	}
	for _, in := range inputs {
		if err := w.Confirm(ctx, in); err != nil {
			t.Fatalf("Confirm(%s) ошибка: %v", in.Step(), err)
		}
	}
	if w.Step() != wizard.StepDone {
		t.Errorf("Step() = %s, ожидается done", w.Step())
	}
	if callbacks != 1 {
		t.Errorf("callback вызван %d раз, ожидается 1", callbacks)
	}
	if f.settings.values[SettingSetupComplete] != "true" {
		t.Error("setup_complete не записан")
	}

	orgs, _ := f.orgs.List(ctx, 10, 0)
	if len(orgs) != 1 || orgs[0].Slug != "garage-durand" {
		t.Errorf("организации = %+v, ожидается одна garage-durand", orgs)
	}
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"Jeanne Martin", "Jeanne", "Martin"},
		{"Jeanne Marie Martin", "Jeanne", "Marie Martin"},
		{"  Paul  ", "Paul", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first, last := splitFullName(tt.in)
			if first != tt.first || last != tt.last {
				t.Errorf("splitFullName(%q) = %q, %q, ожидается %q, %q", tt.in, first, last, tt.first, tt.last)
			}
		})
	}
}
