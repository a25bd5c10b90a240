package service

import (
	"context"
	"errors"
	"sync"

	"propertychat/internal/model"
)

var errBoom = errors.New("boom")

type fakeInterpreter struct {
	mu      sync.Mutex
	replies []*model.Interpretation
	err     error
	calls   []model.Criteria
	gate    chan struct{} // when set, Interpret blocks until it is closed
	entered chan struct{}
}

func (f *fakeInterpreter) Interpret(ctx context.Context, utterance string, current model.Criteria) (*model.Interpretation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, current)
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return &model.Interpretation{Message: "ok"}, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeInterpreter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeFilterer struct {
	mu    sync.Mutex
	inner *MemoryFilter
	err   error
	calls []model.Criteria
}

func (f *fakeFilterer) Filter(ctx context.Context, c model.Criteria) ([]model.Property, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.inner.Filter(ctx, c)
}

func (f *fakeFilterer) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeCatalog struct {
	props []model.Property
	err   error
}

func (f *fakeCatalog) Catalog(context.Context) ([]model.Property, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.props, nil
}

type fakeProfiles struct {
	mu          sync.Mutex
	user        *model.User
	getErr      error
	prefsErr    error
	messagesErr error
	prefs       []model.Criteria
	messages    []model.Transcript
}

func (f *fakeProfiles) GetUser(_ context.Context, _ string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.getErr
}

func (f *fakeProfiles) PatchPreferences(_ context.Context, _ string, c model.Criteria) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefsErr != nil {
		return f.prefsErr
	}
	f.prefs = append(f.prefs, c)
	return nil
}

func (f *fakeProfiles) PatchMessages(_ context.Context, _ string, t model.Transcript) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messagesErr != nil {
		return f.messagesErr
	}
	f.messages = append(f.messages, t)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*model.CachedUser
	loadErr error
	saveErr error
	saves   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*model.CachedUser)}
}

func (f *fakeCache) Load(_ context.Context, key string) (*model.CachedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.entries[key], nil
}

func (f *fakeCache) Save(_ context.Context, key string, u *model.CachedUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.entries[key] = u
	return nil
}

func (f *fakeCache) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func (f *fakeCache) get(key string) *model.CachedUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key]
}

func testCatalog() []model.Property {
	return []model.Property{
		{ID: 1, Title: "Punggol condo", Price: 850000, Location: "Punggol", Bedrooms: 3, Bathrooms: 2, SizeSqft: 1000, Amenities: model.JSONArray{"Swimming pool", "Gym"}},
		{ID: 2, Title: "Bedok flat", Price: 450000, Location: "Bedok", Bedrooms: 2, Bathrooms: 1, SizeSqft: 700, Amenities: model.JSONArray{"Balcony"}},
		{ID: 3, Title: "Punggol exec", Price: 650000, Location: "Punggol", Bedrooms: 4, Bathrooms: 3, SizeSqft: 1400, Amenities: model.JSONArray{"Air conditioner"}},
	}
}

type fixture struct {
	interp   *fakeInterpreter
	filter   *fakeFilterer
	catalog  *fakeCatalog
	profiles *fakeProfiles
	cache    *fakeCache
}

func newFixture() *fixture {
	props := testCatalog()
	return &fixture{
		interp:   &fakeInterpreter{},
		filter:   &fakeFilterer{inner: NewMemoryFilter(props)},
		catalog:  &fakeCatalog{props: props},
		profiles: &fakeProfiles{},
		cache:    newFakeCache(),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Interpreter: f.interp,
		Filterer:    f.filter,
		Catalog:     f.catalog,
		Profiles:    f.profiles,
		Cache:       f.cache,
	}
}

func (f *fixture) session(userID string, opts SessionOptions) *Session {
	return NewSession("s1", userID, f.deps(), opts, Seed{
		Criteria: model.DefaultCriteria(),
		Catalog:  f.catalog.props,
	})
}
