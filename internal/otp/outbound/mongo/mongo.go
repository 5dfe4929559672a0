package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/goerror"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultCollection = "otp_challenges"

// document keeps the driver-assigned _id stable across replacements;
// challenge_id carries the application id.
type document struct {
	ChallengeID string    `bson:"challenge_id"`
	Identifier  string    `bson:"identifier"`
	Purpose     string    `bson:"purpose"`
	CodeHash    string    `bson:"code_hash"`
	Verified    bool      `bson:"verified"`
	Attempts    int       `bson:"attempts"`
	MaxAttempts int       `bson:"max_attempts"`
	CreatedAt   time.Time `bson:"created_at"`
	ExpiresAt   time.Time `bson:"expires_at"`
	PurgeAt     time.Time `bson:"purge_at"`
}

func (d document) toEntity() *entity.Challenge {
	return &entity.Challenge{
		ID:          d.ChallengeID,
		Identifier:  d.Identifier,
		Purpose:     entity.Purpose(d.Purpose),
		CodeHash:    d.CodeHash,
		Verified:    d.Verified,
		Attempts:    d.Attempts,
		MaxAttempts: d.MaxAttempts,
		CreatedAt:   d.CreatedAt.UTC(),
		ExpiresAt:   d.ExpiresAt.UTC(),
		PurgeAt:     d.PurgeAt.UTC(),
	}
}

// Mongo stores challenges in one collection. A TTL index on purge_at lets
// the server drop records the sweeper missed.
type Mongo struct {
	coll *mongo.Collection
	ins  instrument.Instrumentation
}

func NewMongo(db *mongo.Database, ins instrument.Instrumentation) *Mongo {
	return &Mongo{coll: db.Collection(DefaultCollection), ins: ins}
}

// EnsureIndexes creates the indexes the store depends on. It is idempotent.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "identifier", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("identifier_purpose_unique"),
		},
		{
			Keys:    bson.D{{Key: "challenge_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("challenge_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "purge_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("purge_at_ttl"),
		},
	})

	return err
}

func (s *Mongo) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.outbound.mongo").Start(ctx, name)
}

func (s *Mongo) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Mongo) mapError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return goerror.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return goerror.ErrConflict
	}

	return err
}

// attemptsLeft matches a record that can still take a guess.
var attemptsLeft = bson.M{"$lt": bson.A{"$attempts", "$max_attempts"}}

func (s *Mongo) Find(ctx context.Context, identifier string, purpose entity.Purpose) (_ *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "Find")
	defer func() { s.endSpan(span, err) }()

	var doc document
	err = s.coll.FindOne(ctx, bson.M{"identifier": identifier, "purpose": purpose.String()}).Decode(&doc)
	if err != nil {
		return nil, s.mapError(err)
	}

	return doc.toEntity(), nil
}

func (s *Mongo) Upsert(ctx context.Context, c entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "Upsert")
	defer func() { s.endSpan(span, err) }()

	filter := bson.M{"identifier": c.Identifier, "purpose": c.Purpose.String()}
	doc := document{
		ChallengeID: c.ID,
		Identifier:  c.Identifier,
		Purpose:     c.Purpose.String(),
		CodeHash:    c.CodeHash,
		MaxAttempts: c.MaxAttempts,
		CreatedAt:   c.CreatedAt.UTC(),
		ExpiresAt:   c.ExpiresAt.UTC(),
		PurgeAt:     c.PurgeAt.UTC(),
	}

	// two concurrent upserts of a new pair can race on the unique index;
	// the loser retries as a plain replacement
	for range 2 {
		_, err = s.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}

	return s.mapError(err)
}

func (s *Mongo) IncrementAttempts(ctx context.Context, id string) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempts")
	defer func() { s.endSpan(span, err) }()

	var doc document
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"challenge_id": id, "$expr": attemptsLeft},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, s.mapError(err)
	}

	return doc.Attempts, nil
}

func (s *Mongo) MarkVerified(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "MarkVerified")
	defer func() { s.endSpan(span, err) }()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"challenge_id": id, "verified": false, "$expr": attemptsLeft},
		bson.M{"$set": bson.M{"verified": true}},
	)
	if err != nil {
		return s.mapError(err)
	}
	if res.MatchedCount == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *Mongo) Delete(ctx context.Context, identifier string, purpose entity.Purpose) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	return s.deleteOne(ctx, bson.M{"identifier": identifier, "purpose": purpose.String()})
}

func (s *Mongo) DeleteByID(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteByID")
	defer func() { s.endSpan(span, err) }()

	return s.deleteOne(ctx, bson.M{"challenge_id": id})
}

func (s *Mongo) deleteOne(ctx context.Context, filter bson.M) error {
	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return s.mapError(err)
	}
	if res.DeletedCount == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *Mongo) DeleteExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteExpired")
	defer func() { s.endSpan(span, err) }()

	res, err := s.coll.DeleteMany(ctx, bson.M{"purge_at": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, s.mapError(err)
	}

	return res.DeletedCount, nil
}
