package mongodb

import (
	"context"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type auditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) repository.AuditRepository {
	return &auditRepository{coll: db.Collection(logsCollection)}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	res, err := r.coll.InsertOne(ctx, auditDocument{
		Timestamp: entry.Timestamp,
		User:      entry.User,
		Action:    entry.Action,
		Details:   entry.Details,
	})
	if err != nil {
		return customError.WrapStoreError(err)
	}

	entry.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *auditRepository) List(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	var docs []auditDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	entries := make([]*domain.AuditEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.toDomain())
	}
	return entries, nil
}
