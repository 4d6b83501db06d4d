package mongodb

import (
	"context"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type loanRepository struct {
	coll *mongo.Collection
	loc  *time.Location
}

// NewLoanRepository returns loans with application dates in loc.
func NewLoanRepository(db *mongo.Database, loc *time.Location) repository.LoanRepository {
	return &loanRepository{coll: db.Collection(loansCollection), loc: loc}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	res, err := r.coll.InsertOne(ctx, newLoanDocument(loan))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return customError.WrapConflict("loan reference " + loan.LoanID + " already exists")
		}
		return customError.WrapStoreError(err)
	}

	loan.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, customError.WrapLoanNotFound(id)
	}
	return r.findOne(ctx, bson.M{"_id": oid}, nil, id)
}

func (r *loanRepository) GetByLoanRef(ctx context.Context, loanRef string) (*domain.Loan, error) {
	return r.findOne(ctx, bson.M{"loan_id": loanRef}, nil, loanRef)
}

func (r *loanRepository) GetLatestByNIN(ctx context.Context, nin string) (*domain.Loan, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "application_date", Value: -1}})
	return r.findOne(ctx, bson.M{"nin_number": nin}, opts, "for NIN "+nin)
}

func (r *loanRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions, ref string) (*domain.Loan, error) {
	var doc loanDocument
	var err error
	if opts != nil {
		err = r.coll.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, mapError(err, func() error { return customError.WrapLoanNotFound(ref) })
	}
	return doc.toDomain(r.loc), nil
}

// filterDocument translates a LoanFilter into a query. Documents written
// before the soft-delete flag existed have no is_deleted field, so "not
// deleted" is expressed as $ne true.
func filterDocument(filter domain.LoanFilter) bson.M {
	notDeleted := bson.M{"$ne": true}

	switch filter.Kind {
	case domain.FilterRecycleBin:
		return bson.M{"is_deleted": true}
	case domain.FilterStatus:
		return bson.M{"is_deleted": notDeleted, "status": string(filter.Status)}
	case domain.FilterActive:
		return bson.M{"is_deleted": notDeleted, "status": bson.M{"$in": bson.A{
			string(domain.LoanStatusApproved), string(domain.LoanStatusUnderPayment),
		}}}
	case domain.FilterOverdue:
		return bson.M{
			"is_deleted":   notDeleted,
			"status":       bson.M{"$ne": string(domain.LoanStatusFullyPaid)},
			"next_payment": bson.M{"$lt": utils.FormatDate(filter.Today)},
		}
	default:
		return bson.M{"is_deleted": notDeleted}
	}
}

func (r *loanRepository) Find(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "application_date", Value: -1}})

	cursor, err := r.coll.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	var docs []loanDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	loans := make([]*domain.Loan, 0, len(docs))
	for _, d := range docs {
		loans = append(loans, d.toDomain(r.loc))
	}
	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	oid, err := primitive.ObjectIDFromHex(loan.ID)
	if err != nil {
		return customError.WrapLoanNotFound(loan.ID)
	}

	doc := newLoanDocument(loan)
	doc.ID = oid

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return mapError(err, func() error { return customError.WrapLoanNotFound(loan.ID) })
	}
	if res.MatchedCount == 0 {
		return customError.WrapLoanNotFound(loan.ID)
	}
	return nil
}

func (r *loanRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return customError.WrapLoanNotFound(id)
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return customError.WrapStoreError(err)
	}
	if res.DeletedCount == 0 {
		return customError.WrapLoanNotFound(id)
	}
	return nil
}
