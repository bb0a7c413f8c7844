package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// MongoSource reads every document of a collection holding line-list rows
// with the same field names as the open data export.
type MongoSource struct {
	uri        string
	database   string
	collection string
}

// NewMongoSource builds a source for uri, database and collection.
func NewMongoSource(uri, database, collection string) *MongoSource {
	return &MongoSource{uri: uri, database: database, collection: collection}
}

// Name implements Source.
func (s *MongoSource) Name() string { return "mongo" }

// Fetch implements Source. Each call opens and closes its own client.
func (s *MongoSource) Fetch(ctx context.Context) ([]linelist.Raw, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrFetch, err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	c := client.Database(s.database).Collection(s.collection)
	cursor, err := c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("%w: find: %v", ErrFetch, err)
	}
	defer cursor.Close(ctx)

	var out []linelist.Raw
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", ErrDecode, len(out)+1, err)
		}
		out = append(out, RawFromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor: %v", ErrFetch, err)
	}
	return out, nil
}

// RawFromDocument maps a decoded document onto a Raw. BSON dates are
// written as RFC 3339 in UTC.
func RawFromDocument(doc bson.M) linelist.Raw {
	var raw linelist.Raw
	for k, v := range doc {
		raw.Set(k, bsonString(v))
	}
	return raw
}

func bsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case primitive.ObjectID:
		return t.Hex()
	default:
		return ""
	}
}
