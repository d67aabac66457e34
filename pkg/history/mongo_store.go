package history

import (
	"context"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultDatabase   = "chatbot_db"
	DefaultCollection = "chat_history"

	sessionTimestampIndexName = "session_id_1_timestamp_1__id_1"
)

// turnDocument is the stored form of a turns.Turn. The ObjectID orders turns
// written within the same millisecond.
type turnDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"session_id"`
	Role      string             `bson:"role"`
	Content   string             `bson:"content"`
	Model     *string            `bson:"model"`
	Timestamp time.Time          `bson:"timestamp"`
}

func newTurnDocument(t *turns.Turn) *turnDocument {
	return &turnDocument{
		SessionID: t.SessionID,
		Role:      string(t.Role),
		Content:   t.Content,
		Model:     t.Model,
		Timestamp: t.Timestamp.UTC(),
	}
}

func (d *turnDocument) toTurn() *turns.Turn {
	return &turns.Turn{
		SessionID: d.SessionID,
		Role:      turns.Role(d.Role),
		Content:   d.Content,
		Model:     d.Model,
		Timestamp: d.Timestamp.UTC(),
	}
}

// MongoStore keeps turns as documents in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	// ownsClient is set when the store connected the client itself and must
	// disconnect it on Close.
	ownsClient bool
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and uses the given database and collection.
// The connection is not verified; call Ping for that.
func NewMongoStore(ctx context.Context, uri string, database string, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, ErrMissingURI
	}
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("chatmemory"))
	if err != nil {
		return nil, errors.Wrap(err, "mongo history store: connect")
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		ownsClient: true,
	}, nil
}

// NewMongoStoreFromCollection wraps an existing collection. The caller keeps
// ownership of the client.
func NewMongoStoreFromCollection(collection *mongo.Collection) *MongoStore {
	return &MongoStore{
		client:     collection.Database().Client(),
		collection: collection,
	}
}

func (s *MongoStore) Append(ctx context.Context, turn *turns.Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	res, err := s.collection.InsertOne(ctx, newTurnDocument(turn))
	if err != nil {
		return errors.Wrap(err, "mongo history store: insert turn")
	}
	log.Trace().
		Interface("id", res.InsertedID).
		Str("session_id", turn.SessionID).
		Str("role", string(turn.Role)).
		Msg("Inserted turn")
	return nil
}

// FetchRecent queries newest first so that the limit keeps the most recent
// turns, then reverses the batch into chronological order.
func (s *MongoStore) FetchRecent(ctx context.Context, sessionID string, limit int) ([]*turns.Turn, error) {
	if limit <= 0 {
		return []*turns.Turn{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.D{{Key: "session_id", Value: sessionID}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongo history store: find turns")
	}

	var docs []*turnDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "mongo history store: decode turns")
	}

	out := make([]*turns.Turn, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toTurn())
	}
	reverse(out)
	return out, nil
}

// EnsureIndexes creates the compound ascending (session_id, timestamp, _id)
// index. It serves both the session filter and the timestamp/_id sort of
// FetchRecent. Recreating an identical index is a no-op on the server.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName(sessionTimestampIndexName),
	}
	name, err := s.collection.Indexes().CreateOne(ctx, model)
	if err != nil {
		return errors.Wrap(err, "mongo history store: create index")
	}
	log.Debug().Str("index", name).Str("collection", s.collection.Name()).Msg("Ensured history index")
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Wrap(err, "mongo history store: ping")
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Disconnect(ctx)
}
