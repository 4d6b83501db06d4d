// Package mongodb implements the repositories on top of a MongoDB database
// holding the users, loans, payments and logs collections.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	loansCollection    = "loans"
	paymentsCollection = "payments"
	logsCollection     = "logs"
)

// Connect opens a client and verifies the server is reachable within timeout.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, client.Database(database), nil
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		loansCollection: {
			{Keys: bson.D{{Key: "loan_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "nin_number", Value: 1}, {Key: "application_date", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "is_deleted", Value: 1}}},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "loan_id", Value: 1}}},
		},
		logsCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

// NewStore wires the four repositories to db.
func NewStore(client *mongo.Client, db *mongo.Database, loc *time.Location) *repository.Store {
	return &repository.Store{
		Users:    NewUserRepository(db),
		Loans:    NewLoanRepository(db, loc),
		Payments: NewPaymentRepository(db),
		Logs:     NewAuditRepository(db),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}
}

// mapError translates driver errors into the repository error kinds.
func mapError(err error, notFound func() error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound()
	case mongo.IsDuplicateKeyError(err):
		return customError.WrapConflict("duplicate key")
	default:
		return customError.WrapStoreError(err)
	}
}
