package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/pharmasource/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled int
	setCalled int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalled++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockCatalogSource is a mock implementation of domain.CatalogSource
type MockCatalogSource struct {
	mu        sync.Mutex
	catalog   *domain.Catalog
	loadError error
	loads     int
}

func NewMockCatalogSource(cat *domain.Catalog) *MockCatalogSource {
	return &MockCatalogSource{catalog: cat}
}

func (m *MockCatalogSource) Name() string { return "mock" }

func (m *MockCatalogSource) Load(ctx context.Context) (*domain.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadError != nil {
		return nil, m.loadError
	}
	return m.catalog, nil
}

func (m *MockCatalogSource) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// MockUserRepository is an in-memory domain.UserRepository
type MockUserRepository struct {
	mu          sync.Mutex
	users       map[string]domain.User
	usageError  error
	getError    error
	usageCalled int
}

func NewMockUserRepository(users ...domain.User) *MockUserRepository {
	m := &MockUserRepository{users: make(map[string]domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrEmailInUse
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) ConsumeRequest(ctx context.Context, id, date string, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usageCalled++
	if m.usageError != nil {
		return 0, m.usageError
	}
	u, ok := m.users[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.LastRequestDate != date {
		u.AIRequestCount = 0
		u.LastRequestDate = date
	}
	if limit > 0 && u.AIRequestCount >= limit {
		return u.AIRequestCount, domain.ErrQuotaExceeded
	}
	u.AIRequestCount++
	m.users[id] = u
	return u.AIRequestCount, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserRepository) user(id string) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

// MockSettingsRepository is a mock implementation of domain.SettingsRepository
type MockSettingsRepository struct {
	settings domain.AppSettings
	getError error
}

func NewMockSettingsRepository(settings domain.AppSettings) *MockSettingsRepository {
	return &MockSettingsRepository{settings: settings}
}

func (m *MockSettingsRepository) GetSettings(ctx context.Context) (domain.AppSettings, error) {
	if m.getError != nil {
		return domain.AppSettings{}, m.getError
	}
	return m.settings, nil
}

func (m *MockSettingsRepository) SaveSettings(ctx context.Context, settings domain.AppSettings) error {
	m.settings = settings
	return nil
}

// MockAssistant records requests and optionally runs catalog lookups
type MockAssistant struct {
	mu       sync.Mutex
	reply    *domain.AssistantReply
	err      error
	lookups  []domain.CatalogQuery
	requests []domain.AssistantRequest
	results  []map[string]any
}

func (m *MockAssistant) Ask(ctx context.Context, req domain.AssistantRequest, lookup domain.CatalogLookup) (*domain.AssistantReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	for _, q := range m.lookups {
		m.results = append(m.results, lookup(ctx, q))
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.reply == nil {
		return &domain.AssistantReply{Text: "ok"}, nil
	}
	reply := *m.reply
	return &reply, nil
}

// testCatalog is a small catalog shared by the service tests
func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Cosmetics: []domain.Cosmetic{
			{ID: "c1", BrandName: "GSK", SpecificName: "Panadol", SpecificNameAr: "بنادول"},
			{ID: "c2", BrandName: "Generic", SpecificName: "Paracetamol", SpecificNameAr: "باراسيتامول"},
			{ID: "c3", BrandName: "Vichy", SpecificName: "Mineral 89", SpecificNameAr: "مينرال 89"},
			{ID: "c4", BrandName: "Vichy", SpecificName: "Normaderm Gel", SpecificNameAr: "نورماديرم"},
		},
		Milk: []domain.MilkFormula{
			{
				ID: "m1", BrandName: "Aptamil", ProductName: "Aptamil 1", KeyFeatures: "DHA and prebiotics",
				Type: domain.FormulaStandard, Standard: &domain.StandardDetails{Stage: "1", AgeRange: "0-6 months"},
			},
			{
				ID: "m2", BrandName: "Aptamil", ProductName: "Aptamil Comfort", KeyFeatures: "Colic relief",
				Type: domain.FormulaSpecial, Special: &domain.SpecialDetails{SpecialType: "Colic", Indication: "Colic and constipation"},
			},
			{
				ID: "m3", BrandName: "Nan", ProductName: "Nan Optipro 1", KeyFeatures: "Optimised protein",
				Type: domain.FormulaStandard, Standard: &domain.StandardDetails{Stage: "1", AgeRange: "0-6 months"},
			},
		},
	}
}
