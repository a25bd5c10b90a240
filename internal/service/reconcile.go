package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"propertychat/internal/model"
)

// Source names where a session's starting state came from
type Source string

const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
)

// Reconciled is the starting criteria and transcript of a session
type Reconciled struct {
	Criteria   model.Criteria
	Transcript model.Transcript
	Source     Source
	Profile    *model.User
}

// Reconcile picks the session's starting state. A remote profile wins even
// when it has no saved preferences; the local cache is only consulted
// without one. Saved preferences are overlaid on the defaults, and saved
// messages replace the greeting only when there are any.
func Reconcile(remote *model.User, local *model.CachedUser) Reconciled {
	out := Reconciled{
		Criteria:   model.DefaultCriteria(),
		Transcript: model.Greeting(),
		Source:     SourceDefault,
	}

	var chosen *model.User
	switch {
	case remote != nil:
		chosen = remote
		out.Source = SourceRemote
	case local != nil:
		chosen = &local.User
		out.Source = SourceLocal
	default:
		return out
	}

	if chosen.Preferences != nil {
		prefs := *chosen.Preferences
		prefs.Normalize()
		out.Criteria = MergeCriteria(out.Criteria, prefs)
	}
	if len(chosen.Messages) > 0 {
		out.Transcript = chosen.Messages.Clone()
	}

	profile := *chosen
	out.Profile = &profile
	return out
}

// Bootstrap prepares a session: it fetches the full catalog, reconciles the
// saved state for userID and, when that state expresses any constraint,
// re-applies it through the filterer.
//
// A catalog failure is fatal. A failed profile or cache read is treated as
// missing. A failed hydration filter keeps the saved criteria, shows the full
// catalog and is reported through Session.HydrationError.
func Bootstrap(ctx context.Context, id, userID string, deps Deps, opts SessionOptions) (*Session, error) {
	deps = deps.withDefaults()
	logger := deps.Logger.With(zap.String("session_id", id), zap.String("user_id", userID))

	catalog, err := deps.Catalog.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalog, err)
	}
	if catalog == nil {
		catalog = []model.Property{}
	}

	var (
		remote *model.User
		local  *model.CachedUser
	)
	if userID != "" {
		remote = loadRemote(ctx, deps, userID, logger)
		if remote == nil {
			local = loadLocal(ctx, deps, userID, logger)
		}
	}

	rec := Reconcile(remote, local)
	logger.Info("session state reconciled", zap.String("source", string(rec.Source)))

	if rec.Source == SourceRemote && deps.Cache != nil {
		cacheProfile(ctx, deps, userID, rec, logger)
	}

	seed := Seed{
		Criteria:   rec.Criteria,
		Transcript: rec.Transcript,
		Catalog:    catalog,
		Profile:    rec.Profile,
	}

	var hydrationErr error
	if !rec.Criteria.IsEmpty() {
		filtered, err := deps.Filterer.Filter(ctx, rec.Criteria)
		if err != nil {
			hydrationErr = fmt.Errorf("%w: %w", ErrFilterService, err)
			deps.Metrics.HydrationFailed()
			logger.Warn("saved criteria could not be applied, showing full catalog", zap.Error(err))
		} else {
			if filtered == nil {
				filtered = []model.Property{}
			}
			seed.Filtered = filtered
		}
	}

	s := NewSession(id, userID, deps, opts, seed)
	s.hydrationErr = hydrationErr
	return s, nil
}

func loadRemote(ctx context.Context, deps Deps, userID string, logger *zap.Logger) *model.User {
	if deps.Profiles == nil {
		return nil
	}
	user, err := deps.Profiles.GetUser(ctx, userID)
	if err != nil {
		logger.Warn("profile fetch failed, falling back to local cache", zap.Error(err))
		return nil
	}
	return user
}

func loadLocal(ctx context.Context, deps Deps, userID string, logger *zap.Logger) *model.CachedUser {
	if deps.Cache == nil {
		return nil
	}
	cached, err := deps.Cache.Load(ctx, userID)
	if err != nil {
		logger.Warn("local cache read failed", zap.Error(err))
		return nil
	}
	return cached
}

// cacheProfile mirrors a freshly loaded remote profile into the local cache
func cacheProfile(ctx context.Context, deps Deps, userID string, rec Reconciled, logger *zap.Logger) {
	user := *rec.Profile
	user.ID = userID
	criteria := rec.Criteria
	user.Preferences = &criteria
	user.Messages = rec.Transcript

	if err := deps.Cache.Save(ctx, userID, &model.CachedUser{User: user, CachedAt: time.Now().UTC()}); err != nil {
		deps.Metrics.PersistenceFailed("cache")
		logger.Warn("local cache write failed", zap.Error(fmt.Errorf("%w: %w", ErrPersistence, err)))
	}
}
