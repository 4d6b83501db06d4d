package mongodb

import (
	"context"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type paymentRepository struct {
	coll *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) repository.PaymentRepository {
	return &paymentRepository{coll: db.Collection(paymentsCollection)}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	res, err := r.coll.InsertOne(ctx, newPaymentDocument(payment))
	if err != nil {
		return customError.WrapStoreError(err)
	}

	payment.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recorded_date", Value: 1}})
	return r.find(ctx, bson.M{"loan_id": loanID}, opts)
}

func (r *paymentRepository) List(ctx context.Context) ([]*domain.Payment, error) {
	return r.find(ctx, bson.M{}, options.Find())
}

func (r *paymentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Payment, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	payments := make([]*domain.Payment, 0, len(docs))
	for _, d := range docs {
		payments = append(payments, d.toDomain())
	}
	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "loan_id", Value: loanID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$payment_amount"}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, customError.WrapStoreError(err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Total float64 `bson:"total"`
	}
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return decimal.Zero, customError.WrapStoreError(err)
		}
		return decimal.Zero, nil
	}
	if err := cursor.Decode(&result); err != nil {
		return decimal.Zero, customError.WrapStoreError(err)
	}

	return decimal.NewFromFloat(result.Total), nil
}
