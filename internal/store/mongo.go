// Package store persists scores, contests, users and local sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/verte-zerg/neontype/internal/model"
)

const mongoConnectTimeout = 10 * time.Second

// Mongo is the shared-database backend.
type Mongo struct {
	client   *mongo.Client
	scores   *mongo.Collection
	contests *mongo.Collection
	users    *mongo.Collection
	sessions *mongo.Collection
}

var _ Store = (*Mongo)(nil)

var rankSort = bson.D{{Key: "wpm", Value: -1}, {Key: "accuracy", Value: -1}, {Key: "createdAt", Value: 1}}

// OpenMongo connects to uri, selects database db and ensures indexes.
func OpenMongo(ctx context.Context, uri, db string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			// Best-effort disconnect on ping failure.
			_ = derr
		}
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	database := client.Database(db)
	m := &Mongo{
		client:   client,
		scores:   database.Collection("scores"),
		contests: database.Collection("dailycontests"),
		users:    database.Collection("users"),
		sessions: database.Collection("sessions"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			// Best-effort disconnect on index failure.
			_ = derr
		}
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.scores.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "mode", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "userKey", Value: 1}}},
		{
			Keys:    bson.D{{Key: "userKey", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"date": bson.M{"$exists": true}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create score indexes: %w", err)
	}
	_, err = m.contests.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create contest index: %w", err)
	}
	_, err = m.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "endedAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

// Backend implements Store.
func (m *Mongo) Backend() string { return "mongo" }

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func scoreFilter(q ScoreQuery) bson.M {
	return bson.M{
		"mode":      string(q.Mode),
		"createdAt": bson.M{"$gte": q.From, "$lt": q.To},
	}
}

// InsertScore implements Store.
func (m *Mongo) InsertScore(ctx context.Context, score model.Score) (model.Score, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}
	// Mongo stores milliseconds; keep the returned value consistent with reads.
	score.CreatedAt = score.CreatedAt.UTC().Truncate(time.Millisecond)
	_, err := m.scores.InsertOne(ctx, score)
	if mongo.IsDuplicateKeyError(err) {
		return model.Score{}, ErrExists
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("failed to insert score: %w", err)
	}
	return score, nil
}

// TopScores implements Store.
func (m *Mongo) TopScores(ctx context.Context, q ScoreQuery, limit int) ([]model.Score, error) {
	opts := options.Find().SetSort(rankSort).SetLimit(int64(limit))
	cur, err := m.scores.Find(ctx, scoreFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	var scores []model.Score
	if err := cur.All(ctx, &scores); err != nil {
		return nil, fmt.Errorf("failed to decode top scores: %w", err)
	}
	return scores, nil
}

// BestScore implements Store.
func (m *Mongo) BestScore(ctx context.Context, q ScoreQuery, userKey string) (model.Score, error) {
	filter := scoreFilter(q)
	filter["userKey"] = userKey
	var score model.Score
	err := m.scores.FindOne(ctx, filter, options.FindOne().SetSort(rankSort)).Decode(&score)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Score{}, ErrNotFound
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("failed to query best score: %w", err)
	}
	return score, nil
}

// CountBetter implements Store.
func (m *Mongo) CountBetter(ctx context.Context, q ScoreQuery, wpm, accuracy int) (int, error) {
	filter := scoreFilter(q)
	filter["$or"] = bson.A{
		bson.M{"wpm": bson.M{"$gt": wpm}},
		bson.M{"wpm": wpm, "accuracy": bson.M{"$gt": accuracy}},
	}
	n, err := m.scores.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count scores: %w", err)
	}
	return int(n), nil
}

// HasScore implements Store.
func (m *Mongo) HasScore(ctx context.Context, q ScoreQuery, userKey string) (bool, error) {
	filter := scoreFilter(q)
	filter["userKey"] = userKey
	n, err := m.scores.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check score: %w", err)
	}
	return n > 0, nil
}

// GetDailyContest implements Store.
func (m *Mongo) GetDailyContest(ctx context.Context, date string) (model.DailyContest, error) {
	var c model.DailyContest
	err := m.contests.FindOne(ctx, bson.M{"date": date}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.DailyContest{}, ErrNotFound
	}
	if err != nil {
		return model.DailyContest{}, fmt.Errorf("failed to query daily contest: %w", err)
	}
	return c, nil
}

// CreateDailyContest implements Store.
func (m *Mongo) CreateDailyContest(ctx context.Context, contest model.DailyContest) error {
	if contest.CreatedAt.IsZero() {
		contest.CreatedAt = time.Now()
	}
	_, err := m.contests.InsertOne(ctx, contest)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert daily contest: %w", err)
	}
	return nil
}

// GetUser implements Store.
func (m *Mongo) GetUser(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := m.users.FindOne(ctx, bson.M{"_id": strings.ToLower(email)}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// UpsertUser implements Store.
func (m *Mongo) UpsertUser(ctx context.Context, user model.User) (model.User, error) {
	user.Email = strings.ToLower(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	update := bson.M{
		"$set":         bson.M{"name": user.Name, "yearOfBirth": user.YearOfBirth},
		"$setOnInsert": bson.M{"createdAt": user.CreatedAt},
	}
	_, err := m.users.UpdateOne(ctx, bson.M{"_id": user.Email}, update, options.Update().SetUpsert(true))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return m.GetUser(ctx, user.Email)
}

// InsertSession implements Store. IDs are derived from the end time.
func (m *Mongo) InsertSession(ctx context.Context, session model.PracticeSession) (int64, error) {
	if session.ID == 0 {
		session.ID = session.EndedAt.UnixNano()
	}
	if _, err := m.sessions.InsertOne(ctx, session); err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	return session.ID, nil
}

// ListSessions implements Store.
func (m *Mongo) ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.PracticeSession, error) {
	filter := bson.M{}
	if cfg.Since != nil {
		filter["endedAt"] = bson.M{"$gte": *cfg.Since}
	}
	cur, err := m.sessions.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "endedAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	var sessions []model.PracticeSession
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return trimLast(sessions, cfg.Last), nil
}
