package history

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func turnDoc(sessionID, role, content string, model interface{}, ts time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "session_id", Value: sessionID},
		{Key: "role", Value: role},
		{Key: "content", Value: content},
		{Key: "model", Value: model},
		{Key: "timestamp", Value: primitive.NewDateTimeFromTime(ts)},
	}
}

func TestTurnDocument_WireFormat(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	b, err := bson.Marshal(newTurnDocument(turns.NewUserTurn("sess", "Hello", ts)))
	require.NoError(t, err)
	raw := bson.Raw(b)

	assert.Equal(t, "sess", raw.Lookup("session_id").StringValue())
	assert.Equal(t, "user", raw.Lookup("role").StringValue())
	assert.Equal(t, "Hello", raw.Lookup("content").StringValue())
	assert.Equal(t, bsontype.Null, raw.Lookup("model").Type, "user turns store a null model")
	assert.Equal(t, bsontype.DateTime, raw.Lookup("timestamp").Type)
	_, err = raw.LookupErr("_id")
	assert.Error(t, err, "_id is left to the server/driver")

	b, err = bson.Marshal(newTurnDocument(turns.NewBotTurn("sess", "Hi there", "gemma2:2b", ts)))
	require.NoError(t, err)
	assert.Equal(t, "gemma2:2b", bson.Raw(b).Lookup("model").StringValue())
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("append inserts one document", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := s.Append(context.Background(), turns.NewUserTurn("sess", "Hello", base))
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
	})

	mt.Run("append propagates write errors", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := s.Append(context.Background(), turns.NewUserTurn("sess", "Hello", base))
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert turn")
	})

	mt.Run("append rejects invalid turns without a round trip", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)

		err := s.Append(context.Background(), &turns.Turn{Role: turns.RoleUser, Timestamp: base})
		assert.ErrorIs(mt, err, ErrInvalidTurn)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("fetch recent sorts newest first and reverses", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			turnDoc("sess", "bot", "Hi there", "gemma2:2b", base.Add(time.Second)),
			turnDoc("sess", "user", "Hello", nil, base),
		))

		got, err := s.FetchRecent(context.Background(), "sess", 2)
		require.NoError(mt, err)
		require.Len(mt, got, 2)

		assert.Equal(mt, turns.RoleUser, got[0].Role)
		assert.Equal(mt, "Hello", got[0].Content)
		assert.Nil(mt, got[0].Model)
		assert.True(mt, got[0].Timestamp.Equal(base))
		assert.Equal(mt, turns.RoleBot, got[1].Role)
		assert.Equal(mt, "gemma2:2b", got[1].ModelName())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "find", started.CommandName)
		assert.Equal(mt, "sess", started.Command.Lookup("filter", "session_id").StringValue())
		assert.Equal(mt, int64(-1), started.Command.Lookup("sort", "timestamp").AsInt64())
		assert.Equal(mt, int64(-1), started.Command.Lookup("sort", "_id").AsInt64())
		assert.Equal(mt, int64(2), started.Command.Lookup("limit").AsInt64())
	})

	mt.Run("fetch recent with empty result", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := s.FetchRecent(context.Background(), "nobody", DefaultHistoryWindow)
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("fetch recent with zero limit skips the query", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)

		got, err := s.FetchRecent(context.Background(), "sess", 0)
		require.NoError(mt, err)
		assert.Empty(mt, got)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("fetch recent propagates command errors", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "not authorized",
			Name:    "Unauthorized",
		}))

		_, err := s.FetchRecent(context.Background(), "sess", 10)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "find turns")
	})

	mt.Run("ensure indexes covers the recent-turns sort", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, s.EnsureIndexes(context.Background()))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "createIndexes", started.CommandName)

		indexes, err := started.Command.Lookup("indexes").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, indexes, 1)
		index := indexes[0].Document()
		assert.Equal(mt, sessionTimestampIndexName, index.Lookup("name").StringValue())
		assert.Equal(mt, int64(1), index.Lookup("key", "session_id").AsInt64())
		assert.Equal(mt, int64(1), index.Lookup("key", "timestamp").AsInt64())
		assert.Equal(mt, int64(1), index.Lookup("key", "_id").AsInt64())
		keys, err := index.Lookup("key").Document().Elements()
		require.NoError(mt, err)
		require.Len(mt, keys, 3)
		assert.Equal(mt, "_id", keys[2].Key())
	})

	mt.Run("ping", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, s.Ping(context.Background()))

		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    8,
			Message: "boom",
			Name:    "UnknownError",
		}))
		err := s.Ping(context.Background())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "ping")
	})

	mt.Run("close does not disconnect a borrowed client", func(mt *mtest.T) {
		s := NewMongoStoreFromCollection(mt.Coll)
		require.NoError(mt, s.Close(context.Background()))

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, s.Ping(context.Background()))
	})
}

func TestNewMongoStore_RequiresURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ErrMissingURI)
}
