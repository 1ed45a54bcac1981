package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medimind/internal/schedule"
	"medimind/internal/user"
)

// MongoStorage implements the Storage interface using MongoDB
type MongoStorage struct {
	client             *mongo.Client
	database           *mongo.Database
	userCollection     *mongo.Collection
	scheduleCollection *mongo.Collection
}

// NewMongoStorage creates a new MongoDB storage instance
func NewMongoStorage(connectionString, databaseName string) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Test the connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(databaseName)

	ms := &MongoStorage{
		client:             client,
		database:           database,
		userCollection:     database.Collection("users"),
		scheduleCollection: database.Collection("schedules"),
	}

	if err := ms.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return ms, nil
}

// createIndexes covers the two hot queries: due-schedule matching and
// email lookup.
func (ms *MongoStorage) createIndexes(ctx context.Context) error {
	_, err := ms.scheduleCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "enabled", Value: 1}, {Key: "timings", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = ms.userCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	return err
}

// Close closes the MongoDB connection
func (ms *MongoStorage) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

func (ms *MongoStorage) Ping(ctx context.Context) error {
	return ms.client.Ping(ctx, nil)
}

// User operations

func (ms *MongoStorage) CreateUser(ctx context.Context, u *user.User) error {
	u.ID = ensureID(u.ID)
	if _, err := ms.userCollection.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (ms *MongoStorage) GetUser(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := ms.userCollection.FindOne(ctx, bson.M{"id": id}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (ms *MongoStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := ms.userCollection.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (ms *MongoStorage) DeleteUser(ctx context.Context, id string) error {
	if _, err := ms.userCollection.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Schedule operations

func (ms *MongoStorage) CreateSchedule(ctx context.Context, s *schedule.Schedule) error {
	s.ID = ensureID(s.ID)
	if _, err := ms.scheduleCollection.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (ms *MongoStorage) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	var s schedule.Schedule
	err := ms.scheduleCollection.FindOne(ctx, bson.M{"id": id}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &s, nil
}

func (ms *MongoStorage) ListSchedules(ctx context.Context, userID string) ([]*schedule.Schedule, error) {
	return ms.findSchedules(ctx, bson.M{"user_id": userID})
}

// ListDueSchedules filters server-side: enabled schedules whose timings
// array contains the period.
func (ms *MongoStorage) ListDueSchedules(ctx context.Context, p schedule.Period) ([]*schedule.Schedule, error) {
	return ms.findSchedules(ctx, bson.M{"enabled": true, "timings": string(p)})
}

func (ms *MongoStorage) findSchedules(ctx context.Context, filter bson.M) ([]*schedule.Schedule, error) {
	cursor, err := ms.scheduleCollection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var schedules []*schedule.Schedule
	for cursor.Next(ctx) {
		var s schedule.Schedule
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode schedule: %w", err)
		}
		schedules = append(schedules, &s)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return schedules, nil
}

func (ms *MongoStorage) UpdateSchedule(ctx context.Context, s *schedule.Schedule) error {
	result, err := ms.scheduleCollection.ReplaceOne(ctx, bson.M{"id": s.ID}, s)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (ms *MongoStorage) SetScheduleEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := ms.scheduleCollection.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"enabled": enabled}})
	if err != nil {
		return fmt.Errorf("failed to toggle schedule: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (ms *MongoStorage) DeleteSchedule(ctx context.Context, id string) error {
	result, err := ms.scheduleCollection.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (ms *MongoStorage) StampReminderSent(ctx context.Context, id string, at time.Time) error {
	result, err := ms.scheduleCollection.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"last_reminder_sent": at}})
	if err != nil {
		return fmt.Errorf("failed to stamp schedule: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
