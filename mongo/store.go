package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nickyhof/DocQL/core"
)

const idField = "_id"

// Store executes document operations against a MongoDB database.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials uri and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, database: client.Database(database)}, nil
}

func (store *Store) Close(ctx context.Context) error {
	return store.client.Disconnect(ctx)
}

// Collections lists the collection names of the database.
func (store *Store) Collections(ctx context.Context) ([]string, error) {
	return store.database.ListCollectionNames(ctx, bson.D{})
}

func (store *Store) Find(ctx context.Context, collection string, predicate core.Predicate) ([]core.Document, error) {
	cursor, err := store.database.Collection(collection).Find(ctx, Filter(predicate))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	documents := make([]core.Document, 0, len(raw))
	for _, doc := range raw {
		documents = append(documents, FromBSON(doc))
	}
	return documents, nil
}

// InsertOne inserts document and returns its _id. Generated ObjectIDs are
// returned as hex strings.
func (store *Store) InsertOne(ctx context.Context, collection string, document core.Document) (string, error) {
	result, err := store.database.Collection(collection).InsertOne(ctx, bson.M(document))
	if err != nil {
		return "", err
	}
	return idString(result.InsertedID), nil
}

func (store *Store) UpdateMany(ctx context.Context, collection string, predicate core.Predicate, assignments map[string]core.Literal) (int64, error) {
	result, err := store.database.Collection(collection).UpdateMany(ctx, Filter(predicate), Update(assignments))
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (store *Store) DeleteMany(ctx context.Context, collection string, predicate core.Predicate) (int64, error) {
	result, err := store.database.Collection(collection).DeleteMany(ctx, Filter(predicate))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Filter renders a predicate as a native query filter: {field: {$op: value}}.
func Filter(predicate core.Predicate) bson.M {
	filter := bson.M{}
	for field, comparison := range predicate {
		filter[field] = bson.M{string(comparison.Operator): comparison.Operand.Value()}
	}
	return filter
}

// Update renders assignments as a $set update document.
func Update(assignments map[string]core.Literal) bson.M {
	set := bson.M{}
	for field, literal := range assignments {
		set[field] = literal.Value()
	}
	return bson.M{"$set": set}
}

// FromBSON converts a decoded document, rendering ObjectIDs as hex strings
// and dates as time.Time.
func FromBSON(doc bson.M) core.Document {
	out := make(core.Document, len(doc))
	for field, value := range doc {
		out[field] = fromBSONValue(value)
	}
	return out
}

func fromBSONValue(value any) any {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case bson.M:
		return map[string]any(FromBSON(v))
	case bson.D:
		return map[string]any(FromBSON(v.Map()))
	case bson.A:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = fromBSONValue(inner)
		}
		return out
	case int32:
		return int64(v)
	}
	return value
}

func idString(id any) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}
