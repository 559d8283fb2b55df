package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"menuservice/internal/db"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
	"menuservice/internal/query"
)

// ReviewSchema tells the query builder how to coerce review filters.
var ReviewSchema = query.Schema{
	"_id":       query.KindObjectID,
	"menuItem":  query.KindObjectID,
	"rating":    query.KindInt,
	"user":      query.KindInt,
	"createdAt": query.KindTime,
}

// ReviewRepository stores reviews of menu items.
type ReviewRepository interface {
	query.Source
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	Replace(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, id string) error
	DeleteByMenuItem(ctx context.Context, menuItem primitive.ObjectID) (int64, error)
	OwnerOf(ctx context.Context, id string) (uint, error)
}

type reviewRepository struct {
	col *mongo.Collection
}

// NewReviewRepository builds a repository over the reviews collection.
func NewReviewRepository(database *mongo.Database) ReviewRepository {
	return &reviewRepository{col: database.Collection(db.ReviewsCollection)}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	_, err := r.col.InsertOne(ctx, review)
	return mongoErr(err, "review", review.ID.Hex())
}

func (r *reviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	oid, err := objectID("review", id)
	if err != nil {
		return nil, err
	}
	var review model.Review
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&review); err != nil {
		return nil, mongoErr(err, "review", id)
	}
	return &review, nil
}

func (r *reviewRepository) Replace(ctx context.Context, review *model.Review) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": review.ID}, review)
	if err != nil {
		return mongoErr(err, "review", review.ID.Hex())
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("review %s: %w", review.ID.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID("review", id)
	if err != nil {
		return err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("review %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// DeleteByMenuItem removes every review of a menu item.
func (r *reviewRepository) DeleteByMenuItem(ctx context.Context, menuItem primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"menuItem": menuItem})
	if err != nil {
		return 0, fmt.Errorf("delete reviews of %s: %w", menuItem.Hex(), err)
	}
	return res.DeletedCount, nil
}

func (r *reviewRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.col.CountDocuments(ctx, filter)
}

func (r *reviewRepository) Find(ctx context.Context, plan *query.Plan) ([]bson.M, error) {
	return findAll(ctx, r.col, plan)
}

func (r *reviewRepository) OwnerOf(ctx context.Context, id string) (uint, error) {
	return ownerOf(ctx, r.col, "review", id)
}
