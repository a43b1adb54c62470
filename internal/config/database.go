package config

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/redisclient"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

var (
	// MongoDB client
	MongoDB *mongo.Database
	// Redis client
	Redis *redisclient.Client
)

// InitMongoDB initializes the MongoDB connection
func InitMongoDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(AppConfig.MongoURI).
		SetMonitor(otelmongo.NewMonitor()).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}

	// Ping the database
	err = client.Ping(ctx, readpref.Primary())
	if err != nil {
		log.Fatal(err)
	}

	MongoDB = client.Database(AppConfig.MongoDatabase)

	if err := ensureIndexes(); err != nil {
		logging.Logger.Error("failed to ensure indexes on startup", zap.Error(err))
	}

	logging.Logger.Info("connected to MongoDB",
		zap.String("uri", maskMongoURI(AppConfig.MongoURI)),
		zap.String("database", AppConfig.MongoDatabase),
	)
}

// InitRedis initializes the Redis connection
func InitRedis() {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         AppConfig.RedisURI,
		Password:     AppConfig.RedisPassword,
		DB:           AppConfig.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Wrap with traced client
	Redis = redisclient.NewClient(redisClient)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Redis.Ping(ctx).Err(); err != nil {
		logging.Logger.Error("failed to connect to Redis",
			zap.String("uri", AppConfig.RedisURI),
			zap.Error(err))
		return
	}

	logging.Logger.Info("connected to Redis",
		zap.String("uri", AppConfig.RedisURI))
}

// maskMongoURI masks sensitive information in MongoDB URI
func maskMongoURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at < 0 {
		return uri
	}
	return "mongodb://****:****@" + uri[at+1:]
}

// ensureIndexes creates required indexes if they don't exist
func ensureIndexes() error {
	logger := zap.L().Named("database")
	logger.Info("ensuring required indexes exist")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{
			// One active OTP row per phone; archived history does not collide
			collection: AppConfig.OTPRequestCollection,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "phone", Value: 1}},
				Options: options.Index().
					SetName("phone_active_1").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "active"}),
			},
		},
		{
			collection: AppConfig.OTPRequestCollection,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "token", Value: 1}},
				Options: options.Index().
					SetName("token_1").
					SetUnique(true).
					SetSparse(true),
			},
		},
		{
			collection: AppConfig.UserIPCollection,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "ip", Value: 1}},
				Options: options.Index().
					SetName("user_id_ip_1").
					SetUnique(true),
			},
		},
		{
			// Serves the "most recent IP" query per user
			collection: AppConfig.UserIPCollection,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}, {Key: "created_at", Value: -1}},
				Options: options.Index().
					SetName("user_id_updated_at_1"),
			},
		},
		{
			collection: AppConfig.BlockedIPCollection,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "ip", Value: 1}},
				Options: options.Index().
					SetName("ip_1").
					SetUnique(true),
			},
		},
		{
			collection: AppConfig.UserProfileCollection,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetName("user_id_1").
					SetUnique(true),
			},
		},
	}

	for _, idx := range indexes {
		if err := ensureIndex(ctx, logger, idx.collection, idx.model); err != nil {
			return err
		}
	}

	logger.Info("all required indexes verified")
	return nil
}

// ensureIndex creates a single index if it does not exist yet
func ensureIndex(ctx context.Context, logger *zap.Logger, collectionName string, model mongo.IndexModel) error {
	collection := MongoDB.Collection(collectionName)
	name := *model.Options.Name

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		logger.Error("failed to list indexes", zap.String("collection", collectionName), zap.Error(err))
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			continue
		}
		if existing, ok := index["name"].(string); ok && existing == name {
			logger.Debug("index already exists",
				zap.String("collection", collectionName),
				zap.String("index", name))
			return nil
		}
	}

	_, err = collection.Indexes().CreateOne(ctx, model)
	if err != nil {
		// Another instance may have created it concurrently
		if mongo.IsDuplicateKeyError(err) {
			logger.Info("index already exists (created by another instance)",
				zap.String("collection", collectionName),
				zap.String("index", name))
			return nil
		}
		logger.Error("failed to create index",
			zap.String("collection", collectionName),
			zap.String("index", name),
			zap.Error(err))
		return err
	}

	logger.Info("created index",
		zap.String("collection", collectionName),
		zap.String("index", name))
	return nil
}
