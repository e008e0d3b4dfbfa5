package repository

import (
	"context"
	"edu_progress_backend/internal/model"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoProgressStore 每个学习者一个文档，_id 为学习者 ID
type MongoProgressStore struct {
	collection *mongo.Collection
}

func NewMongoProgressStore(collection *mongo.Collection) *MongoProgressStore {
	return &MongoProgressStore{collection: collection}
}

func (r *MongoProgressStore) Load(ctx context.Context, learnerID string) ([]byte, error) {
	var doc model.ProgressDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": learnerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc.Data), nil
}

func (r *MongoProgressStore) Save(ctx context.Context, learnerID string, data []byte) error {
	update := bson.M{"$set": bson.M{
		"data":      string(data),
		"updatedAt": time.Now(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": learnerID}, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (r *MongoProgressStore) Delete(ctx context.Context, learnerID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": learnerID})
	return err
}

func (r *MongoProgressStore) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, readpref.Primary())
}
