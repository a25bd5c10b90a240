package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propertychat/internal/model"
)

func TestReconcile(t *testing.T) {
	remotePrefs := model.Criteria{Location: model.Set("Bedok")}
	localPrefs := model.Criteria{Location: model.Set("Punggol")}
	saved := model.Transcript{model.UserMessage("hello"), model.BotMessage("hi", nil)}

	tests := []struct {
		name       string
		remote     *model.User
		local      *model.CachedUser
		wantSource Source
		wantLoc    model.Field[string]
		wantMsgs   int
	}{
		{
			name:       "nothing saved",
			wantSource: SourceDefault,
			wantLoc:    model.Null[string](),
			wantMsgs:   1,
		},
		{
			name:       "remote wins over local",
			remote:     &model.User{ID: "u1", Preferences: &remotePrefs, Messages: saved},
			local:      &model.CachedUser{User: model.User{ID: "u1", Preferences: &localPrefs}},
			wantSource: SourceRemote,
			wantLoc:    model.Set("Bedok"),
			wantMsgs:   2,
		},
		{
			name:       "remote without preferences is still authoritative",
			remote:     &model.User{ID: "u1"},
			local:      &model.CachedUser{User: model.User{ID: "u1", Preferences: &localPrefs}},
			wantSource: SourceRemote,
			wantLoc:    model.Null[string](),
			wantMsgs:   1,
		},
		{
			name:       "local when no remote",
			local:      &model.CachedUser{User: model.User{ID: "u1", Preferences: &localPrefs}},
			wantSource: SourceLocal,
			wantLoc:    model.Set("Punggol"),
			wantMsgs:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.remote, tt.local)

			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantLoc, got.Criteria.Location)
			assert.Len(t, got.Transcript, tt.wantMsgs)
			// saved preferences are overlaid on the defaults
			assert.True(t, got.Criteria.MaxPrice.IsNull())
			assert.Equal(t, model.Set([]string{}), got.Criteria.Amenities)
		})
	}
}

func TestReconcile_EmptyMessagesKeepGreeting(t *testing.T) {
	got := Reconcile(&model.User{ID: "u1", Messages: model.Transcript{}}, nil)

	assert.Equal(t, model.Greeting(), got.Transcript)
}

func TestBootstrap_CatalogFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.catalog.err = errBoom

	s, err := Bootstrap(context.Background(), "s1", "", f.deps(), SessionOptions{})

	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrCatalog))
}

func TestBootstrap_Anonymous(t *testing.T) {
	f := newFixture()

	s, err := Bootstrap(context.Background(), "s1", "", f.deps(), SessionOptions{})
	require.NoError(t, err)

	assert.NoError(t, s.HydrationError())
	assert.Equal(t, model.DefaultCriteria(), s.Criteria())
	assert.Equal(t, model.Greeting(), s.Transcript())
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Properties()))
	assert.Empty(t, f.filter.calls)
}

func TestBootstrap_HydratesSavedCriteria(t *testing.T) {
	f := newFixture()
	prefs := model.Criteria{Location: model.Set("Bedok")}
	f.profiles.user = &model.User{ID: "u1", Name: "Ana", Preferences: &prefs}

	s, err := Bootstrap(context.Background(), "s1", "u1", f.deps(), SessionOptions{})
	require.NoError(t, err)

	assert.NoError(t, s.HydrationError())
	assert.Equal(t, model.Set("Bedok"), s.Criteria().Location)
	assert.Equal(t, []int64{2}, ids(s.Properties()))

	// the remote profile is mirrored into the local cache
	cached := f.cache.get("u1")
	require.NotNil(t, cached)
	assert.Equal(t, "Ana", cached.Name)
}

func TestBootstrap_HydrationFailureShowsFullCatalog(t *testing.T) {
	f := newFixture()
	prefs := model.Criteria{Location: model.Set("Bedok")}
	f.profiles.user = &model.User{ID: "u1", Preferences: &prefs}
	f.filter.setErr(errBoom)

	s, err := Bootstrap(context.Background(), "s1", "u1", f.deps(), SessionOptions{})
	require.NoError(t, err)

	assert.True(t, errors.Is(s.HydrationError(), ErrFilterService))
	assert.Equal(t, model.Set("Bedok"), s.Criteria().Location)
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Properties()))
}

func TestBootstrap_ProfileFailureFallsBackToCache(t *testing.T) {
	f := newFixture()
	f.profiles.getErr = errBoom
	prefs := model.Criteria{MinBedrooms: model.Set(4)}
	f.cache.entries["u1"] = &model.CachedUser{User: model.User{ID: "u1", Preferences: &prefs}}

	s, err := Bootstrap(context.Background(), "s1", "u1", f.deps(), SessionOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.Set(4), s.Criteria().MinBedrooms)
	assert.Equal(t, []int64{3}, ids(s.Properties()))
}

func TestBootstrap_CacheFailureUsesDefaults(t *testing.T) {
	f := newFixture()
	f.cache.loadErr = errBoom

	s, err := Bootstrap(context.Background(), "s1", "u1", f.deps(), SessionOptions{})
	require.NoError(t, err)

	assert.Equal(t, model.DefaultCriteria(), s.Criteria())
	assert.Equal(t, model.Greeting(), s.Transcript())
}
