package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"prolar/internal/apperrors"
	"prolar/internal/models"
)

type listingRepository struct {
	collection *mongo.Collection
	log        *zap.Logger
}

func NewListingRepository(db *mongo.Database, collection string, log *zap.Logger) ListingRepository {
	return &listingRepository{collection: db.Collection(collection), log: log}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) (string, error) {
	res, err := r.collection.InsertOne(ctx, fromListing(listing))
	if err != nil {
		return "", apperrors.Unavailable("insert listing", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert listing: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *listingRepository) GetAll(ctx context.Context) ([]models.Listing, error) {
	filter, opts := allFilter()
	return r.find(ctx, "list listings", filter, opts)
}

func (r *listingRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	filter, opts := ownerFilter(ownerID)
	return r.find(ctx, "list owner listings", filter, opts)
}

func (r *listingRepository) SearchByName(ctx context.Context, prefix string) ([]models.Listing, error) {
	filter, opts := prefixFilter(prefix)
	return r.find(ctx, "search listings", filter, opts)
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
	}

	var doc listingDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, apperrors.Unavailable("get listing "+id, err)
	}

	listing, err := toListing(doc)
	if err != nil {
		r.log.Warn("malformed listing", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) GetRef(ctx context.Context, id string) (*ListingRef, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
	}

	var doc listingDocument
	opts := options.FindOne().SetProjection(bson.M{"uid": 1, "images": 1})
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, apperrors.Unavailable("get listing ref "+id, err)
	}
	return toRef(doc)
}

func (r *listingRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperrors.Unavailable("delete listing "+id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// find decodes documents one by one so a single malformed document is logged
// and skipped instead of failing the whole query.
func (r *listingRepository) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]models.Listing, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Unavailable(op, err)
	}
	defer cursor.Close(ctx)

	listings := make([]models.Listing, 0)
	for cursor.Next(ctx) {
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			r.log.Warn("skipping undecodable listing", zap.String("op", op), zap.Error(err))
			continue
		}

		listing, err := toListing(doc)
		if err != nil {
			r.log.Warn("skipping malformed listing", zap.String("op", op), zap.Error(err))
			continue
		}
		listings = append(listings, listing)
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.Unavailable(op, err)
	}

	return listings, nil
}
