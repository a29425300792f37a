package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/rbac"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/wizard"
)

func TestOrganisationService_ListVisible(t *testing.T) {
	repo := newFakeOrgRepo(
		&model.Organisation{ID: "org-a", Name: "Garage A", Slug: "garage-a"},
		&model.Organisation{ID: "org-b", Name: "Garage B", Slug: "garage-b"},
	)
	svc := NewOrganisationService(repo, &fakeBrandingRepo{}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{"гость", nil, 0},
		{"superadmin видит все", &model.User{ID: "s", Role: rbac.RoleSuperadmin}, 2},
		{"член организации видит свою", &model.User{ID: "m", Role: rbac.RoleAdmin, OrganisationID: strPtr("org-b")}, 1},
		{"без организации", &model.User{ID: "e", Role: rbac.RoleEmploye}, 0},
		{"удалённая организация", &model.User{ID: "x", Role: rbac.RoleEmploye, OrganisationID: strPtr("gone")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgs, err := svc.ListVisible(ctx, tt.user)
			if err != nil {
				t.Fatalf("ListVisible() ошибка: %v", err)
			}
			if len(orgs) != tt.want {
				t.Errorf("len = %d, ожидается %d", len(orgs), tt.want)
			}
		})
	}
}

func TestOrganisationService_FindVisible(t *testing.T) {
	repo := newFakeOrgRepo(
		&model.Organisation{ID: "org-a", Name: "Garage A", Slug: "garage-a"},
		&model.Organisation{ID: "org-b", Name: "Garage B", Slug: "garage-b"},
	)
	svc := NewOrganisationService(repo, &fakeBrandingRepo{}, testLogger())
	ctx := context.Background()

	superadmin := &model.User{ID: "s", Role: rbac.RoleSuperadmin}
	member := &model.User{ID: "m", Role: rbac.RoleManager, OrganisationID: strPtr("org-a")}

	tests := []struct {
		name  string
		user  *model.User
		id    string
		found bool
	}{
		{"superadmin, любая", superadmin, "org-b", true},
		{"superadmin, несуществующая", superadmin, "gone", false},
		{"член, своя", member, "org-a", true},
		{"член, чужая", member, "org-b", false},
		{"пустой ID", member, "", false},
		{"гость", nil, "org-a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org, err := svc.FindVisible(ctx, tt.user, tt.id)
			if err != nil {
				t.Fatalf("FindVisible() ошибка: %v", err)
			}
			if (org != nil) != tt.found {
				t.Errorf("FindVisible(%q) = %v, ожидается найдена=%v", tt.id, org, tt.found)
			}
		})
	}

	repo.err = errBackend
	if _, err := svc.FindVisible(ctx, superadmin, "org-a"); Classify(err) != FailureNetwork {
		t.Errorf("Classify(%v) = %v, ожидается FailureNetwork", err, Classify(err))
	}
}

func TestOrganisationService_Create(t *testing.T) {
	superadmin := &model.User{ID: "s", Role: rbac.RoleSuperadmin}
	admin := &model.User{ID: "a", Role: rbac.RoleAdmin, OrganisationID: strPtr("org-a")}

	tests := []struct {
		name  string
		actor *model.User
		in    CreateOrganisationInput
		kind  FailureKind
	}{
		{"superadmin", superadmin, CreateOrganisationInput{Name: "Garage Écoles"}, FailureNone},
		{"admin не может", admin, CreateOrganisationInput{Name: "Garage"}, FailureAuthorization},
		{"без названия", superadmin, CreateOrganisationInput{}, FailureValidation},
		{"плохой slug", superadmin, CreateOrganisationInput{Name: "X", Slug: "Bad_Slug"}, FailureValidation},
		{"плохой тариф", superadmin, CreateOrganisationInput{Name: "X", Plan: "gold"}, FailureValidation},
		{"занятый slug", superadmin, CreateOrganisationInput{Name: "Existing", Slug: "existing"}, FailureConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeOrgRepo(&model.Organisation{ID: "org-x", Name: "Existing", Slug: "existing"})
			svc := NewOrganisationService(repo, &fakeBrandingRepo{}, testLogger())

			org, err := svc.Create(context.Background(), tt.actor, tt.in)
			if kind := Classify(err); kind != tt.kind {
				t.Fatalf("Classify(%v) = %v, ожидается %v", err, kind, tt.kind)
			}
			if err == nil {
				if org.Slug != "garage-ecoles" {
					t.Errorf("Slug = %q, ожидается garage-ecoles", org.Slug)
				}
				if org.Plan != model.PlanFree {
					t.Errorf("Plan = %q, ожидается free", org.Plan)
				}
			}
		})
	}
}

func TestOrganisationService_CompleteOnboarding(t *testing.T) {
	repo := newFakeOrgRepo(&model.Organisation{ID: "org-a", Name: "A", Slug: "a"})
	svc := NewOrganisationService(repo, &fakeBrandingRepo{}, testLogger())
	ctx := context.Background()

	manager := &model.User{ID: "m", Role: rbac.RoleManager, OrganisationID: strPtr("org-a")}
	if _, err := svc.CompleteOnboarding(ctx, manager, "org-a", OnboardingInput{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("manager: ошибка = %v, ожидается ErrForbidden", err)
	}

	otherAdmin := &model.User{ID: "o", Role: rbac.RoleAdmin, OrganisationID: strPtr("org-b")}
	if _, err := svc.CompleteOnboarding(ctx, otherAdmin, "org-a", OnboardingInput{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin чужой организации: ошибка = %v, ожидается ErrForbidden", err)
	}

	admin := &model.User{ID: "a", Role: rbac.RoleAdmin, OrganisationID: strPtr("org-a")}
	org, err := svc.CompleteOnboarding(ctx, admin, "org-a", OnboardingInput{Phone: "0102030405", Address: " 1 rue de Paris "})
	if err != nil {
		t.Fatalf("CompleteOnboarding() ошибка: %v", err)
	}
	if !org.OnboardingCompleted {
		t.Error("OnboardingCompleted = false, ожидается true")
	}
	if org.Address == nil || *org.Address != "1 rue de Paris" {
		t.Errorf("Address = %v, ожидается 1 rue de Paris", org.Address)
	}

	superadmin := &model.User{ID: "s", Role: rbac.RoleSuperadmin}
	if _, err := svc.CompleteOnboarding(ctx, superadmin, "missing", OnboardingInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующая организация: ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestOrganisationService_Branding(t *testing.T) {
	brands := &fakeBrandingRepo{}
	_ = brands.Upsert(context.Background(), &model.Branding{OrganisationID: "org-a", PrimaryColor: "#ff0000"})
	svc := NewOrganisationService(newFakeOrgRepo(), brands, testLogger())

	b, err := svc.Branding(context.Background(), "org-a")
	if err != nil || b.PrimaryColor != "#ff0000" {
		t.Errorf("Branding(org-a) = %+v, %v, ожидается #ff0000", b, err)
	}
	b, err = svc.Branding(context.Background(), "org-b")
	if err != nil || b.PrimaryColor != wizard.DefaultPrimaryColor {
		t.Errorf("Branding(org-b) = %+v, %v, ожидается цвет по умолчанию", b, err)
	}
}
