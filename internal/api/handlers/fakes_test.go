package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/tinocursor/swift-garage-sub001/internal/api/errors"
	"github.com/tinocursor/swift-garage-sub001/internal/api/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/keycloak"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
)

// errBackend — имитация недоступного PostgreSQL.
var errBackend = errors.New("connection refused")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Заголовки, которыми тесты задают пользователя вместо JWT.
const (
	testHeaderUser = "X-Test-User"
	testHeaderRole = "X-Test-Role"
	testHeaderOrg  = "X-Test-Org"
)

// fakeAuth — Authenticator, берущий пользователя из тестовых заголовков.
type fakeAuth struct{}

func (fakeAuth) claims(r *http.Request) *middleware.AuthClaims {
	id := r.Header.Get(testHeaderUser)
	if id == "" {
		return nil
	}
	user := &model.User{ID: id, Email: id + "@garage.fr", Role: r.Header.Get(testHeaderRole)}
	if org := r.Header.Get(testHeaderOrg); org != "" {
		user.OrganisationID = &org
	}
	return &middleware.AuthClaims{Subject: id, Email: user.Email, User: user}
}

func (a fakeAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := a.claims(r)
			if c == nil {
				apierrors.Unauthorized(w, "отсутствует Bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), c)))
		})
	}
}

func (a fakeAuth) OptionalMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c := a.claims(r); c != nil {
				r = r.WithContext(middleware.WithClaims(r.Context(), c))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- in-memory репозитории ---

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memSettings) Get(_ context.Context, key string) (*repository.AppSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.AppSetting{Key: key, Value: v}, nil
}

func (m *memSettings) Set(_ context.Context, key, value, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memSettings) ListByPrefix(_ context.Context, prefix string) ([]repository.AppSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.AppSetting
	for k, v := range m.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, repository.AppSetting{Key: k, Value: v})
		}
	}
	return out, nil
}

type memOrgs struct {
	mu   sync.Mutex
	orgs map[string]*model.Organisation
}

func (m *memOrgs) Create(_ context.Context, org *model.Organisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Slug == org.Slug {
			return repository.ErrConflict
		}
	}
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

func (m *memOrgs) GetByID(_ context.Context, id string) (*model.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrgs) List(_ context.Context, limit, offset int) ([]*model.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Organisation, 0, len(m.orgs))
	for _, o := range m.orgs {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

func (m *memOrgs) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orgs), nil
}

func (m *memOrgs) Exists(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orgs) > 0, nil
}

func (m *memOrgs) CompleteOnboarding(_ context.Context, id string, phone, address *string) (*model.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Phone, o.Address, o.OnboardingCompleted = phone, address, true
	cp := *o
	return &cp, nil
}

type memBranding struct {
	mu    sync.Mutex
	items map[string]*model.Branding
}

func (m *memBranding) Get(_ context.Context, orgID string) (*model.Branding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[orgID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBranding) Upsert(_ context.Context, b *model.Branding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.items[b.OrganisationID] = &cp
	return nil
}

type memProfiles struct {
	mu    sync.Mutex
	items map[string]*model.Profile
}

func (m *memProfiles) Get(_ context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) EnsureExists(_ context.Context, p *model.Profile) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[p.UserID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *p
	m.items[p.UserID] = &cp
	return p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.items[p.UserID] = &cp
	return nil
}

func (m *memProfiles) Update(_ context.Context, userID, role string, orgID *string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Role, p.OrganisationID = role, orgID
	cp := *p
	return &cp, nil
}

func (m *memProfiles) ListByOrganisation(_ context.Context, orgID string) ([]*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Profile
	for _, p := range m.items {
		if p.OrganisationID != nil && *p.OrganisationID == orgID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memClients struct {
	mu    sync.Mutex
	items map[string]*model.Client
	err   error
}

func (m *memClients) Create(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memClients) GetByID(_ context.Context, orgID, id string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.items[id]
	if !ok || c.OrganisationID != orgID {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClients) filter(orgID string, search *string) []*model.Client {
	var out []*model.Client
	for _, c := range m.items {
		if c.OrganisationID != orgID {
			continue
		}
		if search != nil && !strings.Contains(strings.ToLower(c.FullName), strings.ToLower(*search)) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

func (m *memClients) List(_ context.Context, orgID string, search *string, limit, offset int) ([]*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return page(m.filter(orgID, search), limit, offset), nil
}

func (m *memClients) Count(_ context.Context, orgID string, search *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.filter(orgID, search)), nil
}

func (m *memClients) Update(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memClients) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok || c.OrganisationID != orgID {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// countVehicles, countRepairs, countStock — только счётчики для сводки.
type countVehicles struct {
	repository.VehicleRepository
	n int
}

func (c countVehicles) Count(context.Context, string, *string) (int, error) { return c.n, nil }

type countRepairs struct {
	repository.RepairRepository
	byStatus map[string]int
}

func (c countRepairs) CountByStatus(context.Context, string) (map[string]int, error) {
	return c.byStatus, nil
}

type countStock struct {
	repository.StockRepository
	low int
}

func (c countStock) Count(_ context.Context, _ string, lowOnly bool) (int, error) {
	if lowOnly {
		return c.low, nil
	}
	return 0, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// --- Keycloak и bootstrap ---

type memIDP struct {
	mu     sync.Mutex
	users  map[string]keycloak.NewUser
	nextID int
}

func (m *memIDP) CreateUser(_ context.Context, u keycloak.NewUser) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return "", keycloak.ErrConflict
		}
	}
	m.nextID++
	id := fmt.Sprintf("kc-user-%d", m.nextID)
	m.users[id] = u
	return id, nil
}

func (m *memIDP) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memIDP) GetUser(_ context.Context, id string) (*keycloak.KeycloakUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, keycloak.ErrNotFound
	}
	return &keycloak.KeycloakUser{ID: id, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Enabled: true}, nil
}

type memBootstrapper struct {
	env *testEnv
}

func (b memBootstrapper) CreateOrganisation(ctx context.Context, org *model.Organisation, brand *model.Branding, admin *model.Profile) error {
	if err := b.env.orgs.Create(ctx, org); err != nil {
		return err
	}
	brand.OrganisationID = org.ID
	_ = b.env.branding.Upsert(ctx, brand)
	admin.OrganisationID = &org.ID
	return b.env.profiles.Upsert(ctx, admin)
}

// testEnv — API поверх in-memory репозиториев.
type testEnv struct {
	orgs     *memOrgs
	branding *memBranding
	profiles *memProfiles
	settings *memSettings
	clients  *memClients
	idp      *memIDP
	router   chi.Router
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orgs:     &memOrgs{orgs: map[string]*model.Organisation{}},
		branding: &memBranding{items: map[string]*model.Branding{}},
		profiles: &memProfiles{items: map[string]*model.Profile{}},
		settings: &memSettings{values: map[string]string{}},
		clients:  &memClients{items: map[string]*model.Client{}},
		idp:      &memIDP{users: map[string]keycloak.NewUser{}},
	}
	logger := testLogger()

	orgSvc := service.NewOrganisationService(env.orgs, env.branding, logger)
	vehicles := countVehicles{n: 3}
	repairs := countRepairs{byStatus: map[string]int{model.RepairPending: 2, model.RepairCompleted: 5}}
	stock := countStock{low: 1}

	svc := Services{
		Users:         service.NewUserService(env.profiles, env.idp, []string{"garage-superadmins"}, logger),
		Organisations: orgSvc,
		Access:        service.NewAccessService(orgSvc, logger),
		Setup:         service.NewSetupService(env.settings, orgSvc, env.idp, memBootstrapper{env: env}, logger),
		Clients:       service.NewClientService(env.clients, logger),
		Vehicles:      service.NewVehicleService(vehicles, logger),
		Repairs:       service.NewRepairService(repairs, logger),
		Stock:         service.NewStockService(stock, logger),
		Dashboard:     service.NewDashboardService(env.clients, vehicles, repairs, stock, logger),
	}

	h := NewAPIHandler(NewHealthHandler(okChecker{}, okChecker{}, nil), svc, logger)
	env.router = chi.NewRouter()
	HandlerFromMux(h, env.router, fakeAuth{}, nil)
	return env
}

type okChecker struct{}

func (okChecker) CheckReady() (string, string) { return "ok", "" }
