package service

import (
	"context"

	"propertychat/internal/model"
)

// Interpreter turns an utterance into a display message and a criteria
// partial. current is the pre-turn state, sent so the interpreter can reason
// about deltas.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string, current model.Criteria) (*model.Interpretation, error)
}

// Filterer returns the catalog subset matching criteria. An all-null
// criteria must yield the full catalog.
type Filterer interface {
	Filter(ctx context.Context, criteria model.Criteria) ([]model.Property, error)
}

// CatalogSource returns the full property catalog
type CatalogSource interface {
	Catalog(ctx context.Context) ([]model.Property, error)
}

// ProfileStore is the remote user profile. GetUser returns (nil, nil) for an
// unknown user. Both patches are idempotent and independently retriable.
type ProfileStore interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	PatchPreferences(ctx context.Context, userID string, criteria model.Criteria) error
	PatchMessages(ctx context.Context, userID string, transcript model.Transcript) error
}

// LocalCache stores the serialized user per key. Load returns (nil, nil) on a miss.
type LocalCache interface {
	Load(ctx context.Context, key string) (*model.CachedUser, error)
	Save(ctx context.Context, key string, user *model.CachedUser) error
	Clear(ctx context.Context, key string) error
}
