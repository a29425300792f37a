package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/keycloak"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
)

// errBackend — имитация недоступного PostgreSQL.
var errBackend = errors.New("connection refused")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// --- app_settings ---

type fakeSettings struct {
	mu      sync.Mutex
	values  map[string]string
	setErr  error
	listErr error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{}}
}

func (f *fakeSettings) Get(_ context.Context, key string) (*repository.AppSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.AppSetting{Key: key, Value: v}, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeSettings) ListByPrefix(_ context.Context, prefix string) ([]repository.AppSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []repository.AppSetting
	for k, v := range f.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, repository.AppSetting{Key: k, Value: v})
		}
	}
	return out, nil
}

// --- organisations + branding ---

type fakeOrgRepo struct {
	mu        sync.Mutex
	orgs      map[string]*model.Organisation
	err       error
	existsErr error
}

func newFakeOrgRepo(orgs ...*model.Organisation) *fakeOrgRepo {
	f := &fakeOrgRepo{orgs: map[string]*model.Organisation{}}
	for _, o := range orgs {
		f.orgs[o.ID] = o
	}
	return f
}

func (f *fakeOrgRepo) Create(_ context.Context, org *model.Organisation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, o := range f.orgs {
		if o.Slug == org.Slug {
			return repository.ErrConflict
		}
	}
	cp := *org
	f.orgs[org.ID] = &cp
	return nil
}

func (f *fakeOrgRepo) GetByID(_ context.Context, id string) (*model.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrgRepo) List(_ context.Context, limit, offset int) ([]*model.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*model.Organisation, 0, len(f.orgs))
	for _, o := range f.orgs {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeOrgRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orgs), f.err
}

func (f *fakeOrgRepo) Exists(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return len(f.orgs) > 0, nil
}

func (f *fakeOrgRepo) CompleteOnboarding(_ context.Context, id string, phone, address *string) (*model.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if phone != nil {
		o.Phone = phone
	}
	if address != nil {
		o.Address = address
	}
	o.OnboardingCompleted = true
	cp := *o
	return &cp, nil
}

type fakeBrandingRepo struct {
	items map[string]*model.Branding
}

func (f *fakeBrandingRepo) Get(_ context.Context, orgID string) (*model.Branding, error) {
	b, ok := f.items[orgID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBrandingRepo) Upsert(_ context.Context, b *model.Branding) error {
	if f.items == nil {
		f.items = map[string]*model.Branding{}
	}
	f.items[b.OrganisationID] = b
	return nil
}

// --- profiles ---

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	err      error
}

func newFakeProfileRepo(profiles ...*model.Profile) *fakeProfileRepo {
	f := &fakeProfileRepo{profiles: map[string]*model.Profile{}}
	for _, p := range profiles {
		f.profiles[p.UserID] = p
	}
	return f
}

func (f *fakeProfileRepo) Get(_ context.Context, userID string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) EnsureExists(_ context.Context, p *model.Profile) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if existing, ok := f.profiles[p.UserID]; ok {
		existing.Email = p.Email
		cp := *existing
		return &cp, nil
	}
	cp := *p
	f.profiles[p.UserID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeProfileRepo) Upsert(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeProfileRepo) Update(_ context.Context, userID, role string, orgID *string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Role = role
	p.OrganisationID = orgID
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) ListByOrganisation(_ context.Context, orgID string) ([]*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Profile
	for _, p := range f.profiles {
		if p.OrganisationID != nil && *p.OrganisationID == orgID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// --- Keycloak ---

type fakeIDP struct {
	mu        sync.Mutex
	users     map[string]keycloak.NewUser
	createErr error
	deleted   []string
	nextID    int
}

func newFakeIDP() *fakeIDP {
	return &fakeIDP{users: map[string]keycloak.NewUser{}}
}

func (f *fakeIDP) CreateUser(_ context.Context, u keycloak.NewUser) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return "", keycloak.ErrConflict
		}
	}
	f.nextID++
	id := fmt.Sprintf("kc-user-%d", f.nextID)
	f.users[id] = u
	return id, nil
}

func (f *fakeIDP) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.users, id)
	return nil
}

func (f *fakeIDP) GetUser(_ context.Context, id string) (*keycloak.KeycloakUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, keycloak.ErrNotFound
	}
	return &keycloak.KeycloakUser{ID: id, Email: u.Email, Username: u.Email, FirstName: u.FirstName, LastName: u.LastName, Enabled: true}, nil
}

// --- bootstrapper ---

// fakeBootstrapper пишет в fakeOrgRepo/fakeProfileRepo, имитируя транзакцию:
// при err ничего не сохраняется.
type fakeBootstrapper struct {
	orgs     *fakeOrgRepo
	profiles *fakeProfileRepo
	brands   *fakeBrandingRepo
	err      error
	calls    int
}

func (f *fakeBootstrapper) CreateOrganisation(ctx context.Context, org *model.Organisation, brand *model.Branding, admin *model.Profile) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if err := f.orgs.Create(ctx, org); err != nil {
		return err
	}
	if brand != nil && f.brands != nil {
		brand.OrganisationID = org.ID
		_ = f.brands.Upsert(ctx, brand)
	}
	if admin != nil {
		admin.OrganisationID = &org.ID
		_ = f.profiles.Upsert(ctx, admin)
	}
	return nil
}
