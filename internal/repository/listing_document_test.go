package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"prolar/internal/apperrors"
	"prolar/internal/models"
)

func storedDocument() listingDocument {
	return listingDocument{
		ID:          primitive.NewObjectID(),
		Name:        "CASA NA PRAIA",
		Rooms:       "3",
		Bathrooms:   "2",
		Garages:     "1",
		Area:        "120",
		Price:       "350",
		PriceType:   "daily",
		City:        "Salvador",
		Address:     "Rua das Flores, 10",
		PostalCode:  "41481184",
		Phone:       "71996783434",
		Description: "Perto do mar",
		Created:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Owner:       "Ana",
		UID:         "u1",
		Images: []imageDocument{
			{Name: "a", UID: "u1", URL: "https://cdn.example.com/a"},
			{Name: "b", UID: "u1", URL: "https://cdn.example.com/b"},
		},
	}
}

func TestToListing_KeepsImageOrder(t *testing.T) {
	doc := storedDocument()

	l, err := toListing(doc)

	require.NoError(t, err)
	assert.Equal(t, doc.ID.Hex(), l.ID)
	assert.Equal(t, "u1", l.OwnerID)
	assert.Equal(t, "Ana", l.OwnerName)
	assert.Equal(t, models.PriceDaily, l.PriceType)
	require.Len(t, l.Images, 2)
	assert.Equal(t, "a", l.Images[0].Name)
	assert.Equal(t, "b", l.Images[1].Name)
}

func TestToListing_RoundTripThroughBSON(t *testing.T) {
	in := models.Listing{
		Name:        "CASA",
		Area:        "80",
		Rooms:       "2",
		Bathrooms:   "1",
		Garages:     "1",
		Price:       "1200",
		PriceType:   models.PriceMonthly,
		City:        "Recife",
		Address:     "Rua Aurora, 5",
		PostalCode:  "50050000",
		Phone:       "81996783434",
		Description: "Centro",
		OwnerID:     "u1",
		OwnerName:   "Ana",
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Images: []models.Image{
			{Name: "a", UID: "u1", URL: "https://cdn.example.com/a"},
			{Name: "b", UID: "u1", URL: "https://cdn.example.com/b"},
		},
	}

	doc := fromListing(&in)
	doc.ID = primitive.NewObjectID()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded listingDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	out, err := toListing(decoded)
	require.NoError(t, err)
	assert.Equal(t, in.Images, out.Images)
	assert.Equal(t, in.Price, out.Price)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
}

func TestToListing_CoercesNumericPrice(t *testing.T) {
	tests := []struct {
		name  string
		price any
		want  models.Price
	}{
		{"string", "350", "350"},
		{"double", 350.5, "350.5"},
		{"int32", int32(90), "90"},
		{"int64", int64(1200), "1200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := storedDocument()
			doc.Price = tt.price

			raw, err := bson.Marshal(doc)
			require.NoError(t, err)
			var decoded listingDocument
			require.NoError(t, bson.Unmarshal(raw, &decoded))

			l, err := toListing(decoded)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Price)
		})
	}
}

func TestToListing_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *listingDocument)
	}{
		{"no id", func(d *listingDocument) { d.ID = primitive.NilObjectID }},
		{"no owner", func(d *listingDocument) { d.UID = "" }},
		{"unknown price type", func(d *listingDocument) { d.PriceType = "diaria" }},
		{"missing price", func(d *listingDocument) { d.Price = nil }},
		{"blank price", func(d *listingDocument) { d.Price = "  " }},
		{"bool price", func(d *listingDocument) { d.Price = true }},
		{"no images", func(d *listingDocument) { d.Images = nil }},
		{"no name", func(d *listingDocument) { d.Name = "" }},
		{"no city", func(d *listingDocument) { d.City = "" }},
		{"no address", func(d *listingDocument) { d.Address = "" }},
		{"no postal code", func(d *listingDocument) { d.PostalCode = "" }},
		{"no phone", func(d *listingDocument) { d.Phone = "" }},
		{"blank description", func(d *listingDocument) { d.Description = " " }},
		{"no rooms", func(d *listingDocument) { d.Rooms = "" }},
		{"no creation time", func(d *listingDocument) { d.Created = time.Time{} }},
		{"image without url", func(d *listingDocument) { d.Images[1].URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := storedDocument()
			tt.mutate(&doc)

			_, err := toListing(doc)
			assert.ErrorIs(t, err, ErrMalformedDocument)
		})
	}
}

func TestToListing_MalformedReadsAsNotFound(t *testing.T) {
	doc := storedDocument()
	doc.City = ""

	_, err := toListing(doc)

	assert.ErrorIs(t, err, ErrMalformedDocument)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestToRef_OnlyNeedsOwner(t *testing.T) {
	doc := listingDocument{
		ID:  primitive.NewObjectID(),
		UID: "u1",
		Images: []imageDocument{
			{Name: "a"},
			{URL: "https://cdn.example.com/nameless"},
			{Name: "b", UID: "u1", URL: "https://cdn.example.com/b"},
		},
	}

	ref, err := toRef(doc)

	require.NoError(t, err)
	assert.Equal(t, doc.ID.Hex(), ref.ID)
	assert.Equal(t, "u1", ref.OwnerID)
	require.Len(t, ref.Images, 2)
	assert.Equal(t, "images/u1/a", ref.Images[0].Path())
	assert.Equal(t, "images/u1/b", ref.Images[1].Path())

	doc.UID = ""
	_, err = toRef(doc)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestToListing_ImageOwnerDefaultsToListingOwner(t *testing.T) {
	doc := storedDocument()
	doc.Images[0].UID = ""

	l, err := toListing(doc)

	require.NoError(t, err)
	assert.Equal(t, "u1", l.Images[0].UID)
}

func TestFilters(t *testing.T) {
	filter, opts := allFilter()
	assert.Empty(t, filter)
	assert.Equal(t, newestFirst, opts.Sort)

	filter, opts = ownerFilter("u1")
	assert.Equal(t, bson.M{"uid": "u1"}, filter)
	assert.Equal(t, newestFirst, opts.Sort)

	filter, _ = prefixFilter("CASA")
	assert.Equal(t, bson.M{"name": bson.M{"$gte": "CASA", "$lte": "CASA\uf8ff"}}, filter)
}
