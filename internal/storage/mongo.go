package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

type mongoBlob struct {
	Key         string    `bson:"_id"`
	Data        []byte    `bson:"data"`
	ContentType string    `bson:"contentType"`
	ETag        string    `bson:"etag"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// MongoStorage keeps each bucket in its own collection, one document per
// key. It is the alternative backend for deployments without MinIO.
type MongoStorage struct {
	col    *mongo.Collection
	bucket string
}

func NewMongoStorage(col *mongo.Collection) *MongoStorage {
	return &MongoStorage{col: col, bucket: col.Name()}
}

func (m *MongoStorage) Bucket() string { return m.bucket }

func (m *MongoStorage) Get(ctx context.Context, key string) (*Object, error) {
	var b mongoBlob
	if err := m.col.FindOne(ctx, bson.M{"_id": key}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, Error.Wrap(err)
	}
	return &Object{Key: b.Key, Data: b.Data, ContentType: b.ContentType, ETag: b.ETag}, nil
}

func (m *MongoStorage) Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error) {
	etag, err := newETag()
	if err != nil {
		return "", Error.Wrap(err)
	}
	b := mongoBlob{Key: key, Data: data, ContentType: opts.ContentType, ETag: etag, UpdatedAt: time.Now().UTC()}

	switch {
	case opts.IfNoneMatch:
		if _, err := m.col.InsertOne(ctx, b); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return "", ErrPreconditionFailed
			}
			return "", Error.Wrap(err)
		}
	case opts.IfMatch != "":
		res, err := m.col.ReplaceOne(ctx, bson.M{"_id": key, "etag": opts.IfMatch}, b)
		if err != nil {
			return "", Error.Wrap(err)
		}
		if res.MatchedCount == 0 {
			return "", ErrPreconditionFailed
		}
	default:
		if _, err := m.col.ReplaceOne(ctx, bson.M{"_id": key}, b, options.Replace().SetUpsert(true)); err != nil {
			return "", Error.Wrap(err)
		}
	}
	return etag, nil
}

func (m *MongoStorage) Exists(ctx context.Context, key string) (bool, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": key}, options.Count().SetLimit(1))
	if err != nil {
		return false, Error.Wrap(err)
	}
	return n > 0, nil
}

func (m *MongoStorage) Delete(ctx context.Context, key string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return Error.Wrap(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStorage) List(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{}
	if prefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetProjection(bson.M{"_id": 1})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer cur.Close(ctx)
	keys := []string{}
	for cur.Next(ctx) {
		var b struct {
			Key string `bson:"_id"`
		}
		if err := cur.Decode(&b); err != nil {
			return nil, Error.Wrap(err)
		}
		keys = append(keys, b.Key)
	}
	if err := cur.Err(); err != nil {
		return nil, Error.Wrap(err)
	}
	return keys, nil
}

func newETag() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
