package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"menuservice/internal/db"
	"menuservice/internal/model"
)

// CategoryRepository stores the per-category aggregates.
type CategoryRepository interface {
	SetAveragePrice(ctx context.Context, name string, average int64) error
	Ensure(ctx context.Context, name string) error
	List(ctx context.Context) ([]model.Category, error)
}

type categoryRepository struct {
	col *mongo.Collection
}

// NewCategoryRepository builds a repository over the categories collection.
func NewCategoryRepository(database *mongo.Database) CategoryRepository {
	return &categoryRepository{col: database.Collection(db.CategoriesCollection)}
}

// SetAveragePrice upserts the category record with the given average.
func (r *categoryRepository) SetAveragePrice(ctx context.Context, name string, average int64) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"averagePrice": average}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set %s average: %w", name, err)
	}
	return nil
}

// Ensure creates the category with a zero average unless it exists.
func (r *categoryRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"averagePrice": int64(0)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("ensure category %s: %w", name, err)
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	categories := []model.Category{}
	if err := cur.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
