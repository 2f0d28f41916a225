package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

const storageCollection = "storage"

type storageDoc struct {
	Key       string           `bson:"_id"`
	Value     primitive.Binary `bson:"value"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

// Mongo is a Store keeping one document per key. Watch uses a change
// stream filtered to the key, so it needs a replica-set deployment.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongo(mongoURL, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &Mongo{
		client: client,
		coll:   client.Database(dbName).Collection(storageCollection),
	}, nil
}

func (s *Mongo) Get(ctx context.Context, key string) ([]byte, error) {
	var doc storageDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Value.Data, nil
}

func (s *Mongo) Set(ctx context.Context, key string, value []byte) error {
	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{
		"value":      primitive.Binary{Data: value},
		"updated_at": time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc storageDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	return err
}

func (s *Mongo) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": key}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := s.coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				FullDocument storageDoc `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				logger.Log.Debug().Err(err).Str("key", key).Msg("change stream decode error")
				continue
			}
			select {
			case out <- event.FullDocument.Value.Data:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
