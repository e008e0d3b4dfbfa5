package repository

import (
	"context"
	"edu_progress_backend/internal/config"
	"edu_progress_backend/pkg/database"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 需要真实的 MongoDB，通过 EDU_PROGRESS_TEST_MONGO_URI 指定
func TestMongoProgressStore(t *testing.T) {
	uri := os.Getenv("EDU_PROGRESS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("EDU_PROGRESS_TEST_MONGO_URI not set")
	}

	dbName := fmt.Sprintf("edu_progress_test_%d", time.Now().UnixNano())
	client, err := database.InitMongo(&config.MongoConfig{URI: uri, Database: dbName})
	require.NoError(t, err)

	db := client.Database(dbName)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db.Drop(ctx)
		client.Disconnect(ctx)
	})

	exerciseStore(t, NewMongoProgressStore(db.Collection("progress_snapshots")))
}
