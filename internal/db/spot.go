package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kadod/mama-odekake-liff/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// spotRecord is the stored shape of a spot. Coordinates are kept as
// top-level lat/lng fields.
type spotRecord struct {
	models.Spot `bson:",inline"`
	Lat         *float64 `bson:"lat,omitempty"`
	Lng         *float64 `bson:"lng,omitempty"`
}

// spotDocument reads spots back. Older rows hold lat/lng as strings or
// integers, so both are decoded raw and converted.
type spotDocument struct {
	models.Spot `bson:",inline"`
	Lat         bson.RawValue `bson:"lat"`
	Lng         bson.RawValue `bson:"lng"`
}

func newSpotRecord(s models.Spot) spotRecord {
	rec := spotRecord{Spot: s}
	if s.Location != nil {
		lat, lng := s.Location.Lat, s.Location.Lng
		rec.Lat, rec.Lng = &lat, &lng
	}
	return rec
}

func (d *spotDocument) toSpot() models.Spot {
	s := d.Spot
	s.Location = nil
	lat, okLat := coordinate(d.Lat)
	lng, okLng := coordinate(d.Lng)
	if okLat && okLng {
		s.Location = &models.Location{Lat: lat, Lng: lng}
	}
	return s
}

// coordinate converts a stored lat or lng to float64.
func coordinate(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Double:
		return v.DoubleOK()
	case bsontype.Int32:
		i, ok := v.Int32OK()
		return float64(i), ok
	case bsontype.Int64:
		i, ok := v.Int64OK()
		return float64(i), ok
	case bsontype.String:
		s, ok := v.StringValueOK()
		if !ok {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MongoSpotCollection implements SpotCollection for MongoDB.
type MongoSpotCollection struct {
	Collection *mongo.Collection
}

// InsertSpot inserts a spot and returns its ID.
func (c *MongoSpotCollection) InsertSpot(ctx context.Context, spot models.Spot) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, ErrNilCollection
	}
	if spot.ID.IsZero() {
		spot.ID = primitive.NewObjectID()
	}
	if spot.CreatedAt.IsZero() {
		spot.CreatedAt = time.Now().UTC()
	}
	if spot.Parking == "" {
		spot.Parking = models.ParkingNone
	}
	if _, err := c.Collection.InsertOne(ctx, newSpotRecord(spot)); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert spot: %w", err)
	}
	return spot.ID, nil
}

// InsertSpots inserts spots in one batch and returns how many were written.
func (c *MongoSpotCollection) InsertSpots(ctx context.Context, spots []models.Spot) (int, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	if len(spots) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(spots))
	for _, s := range spots {
		if s.ID.IsZero() {
			s.ID = primitive.NewObjectID()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.Parking == "" {
			s.Parking = models.ParkingNone
		}
		docs = append(docs, newSpotRecord(s))
	}
	res, err := c.Collection.InsertMany(ctx, docs)
	if err != nil {
		n := 0
		if res != nil {
			n = len(res.InsertedIDs)
		}
		return n, fmt.Errorf("insert spots: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// FindSpots returns every spot, newest first.
func (c *MongoSpotCollection) FindSpots(ctx context.Context) ([]models.Spot, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := c.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find spots: %w", err)
	}
	var docs []spotDocument
	if err := decodeAll(ctx, cur, &docs); err != nil {
		return nil, fmt.Errorf("decode spots: %w", err)
	}
	spots := make([]models.Spot, 0, len(docs))
	for i := range docs {
		spots = append(spots, docs[i].toSpot())
	}
	return spots, nil
}

// FindSpotByID finds a spot by its hex ID.
func (c *MongoSpotCollection) FindSpotByID(ctx context.Context, id string) (*models.Spot, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	oid, err := parseObjectID("spot", id)
	if err != nil {
		return nil, err
	}
	var doc spotDocument
	if err := c.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	s := doc.toSpot()
	return &s, nil
}

// DeleteSpot deletes a spot by its ID.
func (c *MongoSpotCollection) DeleteSpot(ctx context.Context, id primitive.ObjectID) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	res, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll deletes every spot and returns the number removed.
func (c *MongoSpotCollection) DeleteAll(ctx context.Context) (int64, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	res, err := c.Collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
