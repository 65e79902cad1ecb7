package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"prolar/internal/apperrors"
	"prolar/internal/models"
)

// ErrMalformedDocument is returned when a stored document cannot be turned
// into a complete Listing. It is a NotFound: such a listing cannot be shown.
var ErrMalformedDocument = fmt.Errorf("malformed listing document: %w", apperrors.ErrNotFound)

type imageDocument struct {
	Name string `bson:"name"`
	UID  string `bson:"uid"`
	URL  string `bson:"url"`
}

// listingDocument mirrors the stored shape. Price is untyped because older
// documents hold it as a number.
type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Rooms       string             `bson:"rooms"`
	Bathrooms   string             `bson:"bathrooms"`
	Garages     string             `bson:"garages"`
	Area        string             `bson:"area"`
	Price       any                `bson:"price"`
	PriceType   string             `bson:"priceType"`
	City        string             `bson:"city"`
	Address     string             `bson:"address"`
	PostalCode  string             `bson:"postalCode"`
	Phone       string             `bson:"phone"`
	Description string             `bson:"description"`
	Created     time.Time          `bson:"created"`
	Owner       string             `bson:"owner"`
	UID         string             `bson:"uid"`
	Images      []imageDocument    `bson:"images"`
}

func fromListing(l *models.Listing) listingDocument {
	images := make([]imageDocument, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, imageDocument{Name: img.Name, UID: img.UID, URL: img.URL})
	}

	return listingDocument{
		Name:        l.Name,
		Rooms:       l.Rooms,
		Bathrooms:   l.Bathrooms,
		Garages:     l.Garages,
		Area:        l.Area,
		Price:       string(l.Price),
		PriceType:   string(l.PriceType),
		City:        l.City,
		Address:     l.Address,
		PostalCode:  l.PostalCode,
		Phone:       l.Phone,
		Description: l.Description,
		Created:     l.CreatedAt,
		Owner:       l.OwnerName,
		UID:         l.OwnerID,
		Images:      images,
	}
}

func toListing(doc listingDocument) (models.Listing, error) {
	if doc.ID.IsZero() {
		return models.Listing{}, fmt.Errorf("%w: missing id", ErrMalformedDocument)
	}
	id := doc.ID.Hex()

	if doc.UID == "" {
		return models.Listing{}, fmt.Errorf("%w: %s has no owner", ErrMalformedDocument, id)
	}

	for _, f := range []struct{ key, value string }{
		{"name", doc.Name},
		{"area", doc.Area},
		{"rooms", doc.Rooms},
		{"bathrooms", doc.Bathrooms},
		{"garages", doc.Garages},
		{"city", doc.City},
		{"address", doc.Address},
		{"postalCode", doc.PostalCode},
		{"phone", doc.Phone},
		{"description", doc.Description},
	} {
		if strings.TrimSpace(f.value) == "" {
			return models.Listing{}, fmt.Errorf("%w: %s has no %s", ErrMalformedDocument, id, f.key)
		}
	}

	if doc.Created.IsZero() {
		return models.Listing{}, fmt.Errorf("%w: %s has no creation time", ErrMalformedDocument, id)
	}

	priceType := models.PriceType(doc.PriceType)
	if !priceType.Valid() {
		return models.Listing{}, fmt.Errorf("%w: %s has price type %q", ErrMalformedDocument, id, doc.PriceType)
	}

	price, err := coercePrice(doc.Price)
	if err != nil {
		return models.Listing{}, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, id, err)
	}

	if len(doc.Images) == 0 {
		return models.Listing{}, fmt.Errorf("%w: %s has no images", ErrMalformedDocument, id)
	}
	images := make([]models.Image, 0, len(doc.Images))
	for i, img := range doc.Images {
		if img.Name == "" || img.URL == "" {
			return models.Listing{}, fmt.Errorf("%w: %s image %d is incomplete", ErrMalformedDocument, id, i)
		}
		uid := img.UID
		if uid == "" {
			uid = doc.UID
		}
		images = append(images, models.Image{Name: img.Name, UID: uid, URL: img.URL})
	}

	return models.Listing{
		ID:          id,
		Name:        doc.Name,
		Rooms:       doc.Rooms,
		Bathrooms:   doc.Bathrooms,
		Garages:     doc.Garages,
		Area:        doc.Area,
		Price:       price,
		PriceType:   priceType,
		City:        doc.City,
		Address:     doc.Address,
		PostalCode:  doc.PostalCode,
		Phone:       doc.Phone,
		Description: doc.Description,
		CreatedAt:   doc.Created,
		OwnerID:     doc.UID,
		OwnerName:   doc.Owner,
		Images:      images,
	}, nil
}

// toRef is the lenient decode used by delete. Only the id and owner are
// required; images without a name have no storage path and are dropped.
func toRef(doc listingDocument) (*ListingRef, error) {
	if doc.ID.IsZero() {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedDocument)
	}
	if doc.UID == "" {
		return nil, fmt.Errorf("%w: %s has no owner", ErrMalformedDocument, doc.ID.Hex())
	}

	images := make([]models.Image, 0, len(doc.Images))
	for _, img := range doc.Images {
		if img.Name == "" {
			continue
		}
		uid := img.UID
		if uid == "" {
			uid = doc.UID
		}
		images = append(images, models.Image{Name: img.Name, UID: uid, URL: img.URL})
	}
	return &ListingRef{ID: doc.ID.Hex(), OwnerID: doc.UID, Images: images}, nil
}

func coercePrice(v any) (models.Price, error) {
	switch p := v.(type) {
	case string:
		if strings.TrimSpace(p) == "" {
			return "", errors.New("empty price")
		}
		return models.Price(p), nil
	case float64:
		return models.PriceFromFloat(p), nil
	case int32:
		return models.Price(strconv.FormatInt(int64(p), 10)), nil
	case int64:
		return models.Price(strconv.FormatInt(p, 10)), nil
	case primitive.Decimal128:
		return models.Price(p.String()), nil
	case nil:
		return "", errors.New("missing price")
	default:
		return "", fmt.Errorf("unsupported price type %T", v)
	}
}

var newestFirst = bson.D{{Key: "created", Value: -1}}

func allFilter() (bson.M, *options.FindOptions) {
	return bson.M{}, options.Find().SetSort(newestFirst)
}

func ownerFilter(ownerID string) (bson.M, *options.FindOptions) {
	return bson.M{"uid": ownerID}, options.Find().SetSort(newestFirst)
}

// prefixFilter matches names in [prefix, prefix+"\uf8ff"], which is every name
// starting with prefix.
func prefixFilter(prefix string) (bson.M, *options.FindOptions) {
	filter := bson.M{"name": bson.M{"$gte": prefix, "$lte": prefix + "\uf8ff"}}
	return filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "created", Value: -1}})
}
