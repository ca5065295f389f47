package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SanVenturas/Tavern-Register/domain"
)

// BindingRepositoryMongo implements domain.BindingRepository.
//
// Two unique indexes carry the whole invariant: (provider, provider_id) so
// one third-party identity binds at most one handle, and remote_handle so
// one handle is claimed by at most one identity. Duplicate-key errors from
// either index surface as domain.ErrBindingConflict.
type BindingRepositoryMongo struct {
	collection *mongo.Collection
}

// NewBindingRepositoryMongo creates the repository and ensures its indexes.
func NewBindingRepositoryMongo(ctx context.Context, db *mongo.Database) (*BindingRepositoryMongo, error) {
	repo := &BindingRepositoryMongo{collection: db.Collection(BindingsCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s indexes: %w", BindingsCollection, err)
	}
	return repo, nil
}

func (r *BindingRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// One third-party identity maps to at most one binding document.
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// One remote handle is claimed by at most one identity. Partial
			// so administratively created documents without a handle don't
			// collide with each other.
			Keys: bson.D{{Key: "remote_handle", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"remote_handle": bson.M{"$type": "string"}}),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return err
	}
	log.Info().Msgf("Indexes for %s collection ensured.", BindingsCollection)
	return nil
}

// FindBinding implements domain.BindingRepository.FindBinding.
func (r *BindingRepositoryMongo) FindBinding(ctx context.Context, provider domain.Provider, providerID string) (*domain.IdentityBinding, error) {
	var binding domain.IdentityBinding
	filter := bson.M{"provider": provider, "provider_id": providerID}
	err := r.collection.FindOne(ctx, filter).Decode(&binding)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		log.Error().Err(err).Str("provider", string(provider)).Str("providerID", providerID).
			Msg("Error looking up identity binding")
		return nil, err
	}
	return &binding, nil
}

// UpsertBinding implements domain.BindingRepository.UpsertBinding.
//
// The filter matches only a document for this identity that has no handle yet
// or already carries the same handle. An identity bound to a different handle
// falls through to the upsert's insert path, which the (provider, provider_id)
// index rejects; a handle held by a different identity is rejected by the
// remote_handle index. Both failures are the same race, reported identically.
func (r *BindingRepositoryMongo) UpsertBinding(ctx context.Context, provider domain.Provider, providerID, remoteHandle string) error {
	filter := bson.M{
		"provider":    provider,
		"provider_id": providerID,
		"$or": []bson.M{
			{"remote_handle": bson.M{"$exists": false}},
			{"remote_handle": remoteHandle},
		},
	}
	update := bson.M{
		"$set": bson.M{"remote_handle": remoteHandle},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrBindingConflict
		}
		log.Error().Err(err).Str("provider", string(provider)).Str("providerID", providerID).
			Msg("Error upserting identity binding")
		return err
	}
	return nil
}

var _ domain.BindingRepository = (*BindingRepositoryMongo)(nil)
