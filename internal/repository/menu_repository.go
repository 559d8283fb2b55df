package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"menuservice/internal/db"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
	"menuservice/internal/query"
)

// MenuSchema tells the query builder how to coerce menu item filters.
var MenuSchema = query.Schema{
	"_id":             query.KindObjectID,
	"price":           query.KindNumber,
	"preparationTime": query.KindInt,
	"calories":        query.KindInt,
	"featured":        query.KindBool,
	"available":       query.KindBool,
	"user":            query.KindInt,
	"createdAt":       query.KindTime,
}

// MenuRepository stores menu items.
type MenuRepository interface {
	query.Source
	Create(ctx context.Context, item *model.MenuItem) error
	FindByID(ctx context.Context, id string) (*model.MenuItem, error)
	Replace(ctx context.Context, item *model.MenuItem) error
	Delete(ctx context.Context, id string) (*model.MenuItem, error)
	AveragePrice(ctx context.Context, category string) (float64, error)
	OwnerOf(ctx context.Context, id string) (uint, error)
}

type menuRepository struct {
	col *mongo.Collection
}

// NewMenuRepository builds a repository over the menu items collection.
func NewMenuRepository(database *mongo.Database) MenuRepository {
	return &menuRepository{col: database.Collection(db.MenuItemsCollection)}
}

func (r *menuRepository) Create(ctx context.Context, item *model.MenuItem) error {
	_, err := r.col.InsertOne(ctx, item)
	return mongoErr(err, "menu item", item.ID.Hex())
}

func (r *menuRepository) FindByID(ctx context.Context, id string) (*model.MenuItem, error) {
	oid, err := objectID("menu item", id)
	if err != nil {
		return nil, err
	}
	var item model.MenuItem
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&item); err != nil {
		return nil, mongoErr(err, "menu item", id)
	}
	return &item, nil
}

func (r *menuRepository) Replace(ctx context.Context, item *model.MenuItem) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
	if err != nil {
		return mongoErr(err, "menu item", item.ID.Hex())
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("menu item %s: %w", item.ID.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

// Delete removes the item and returns what was stored.
func (r *menuRepository) Delete(ctx context.Context, id string) (*model.MenuItem, error) {
	oid, err := objectID("menu item", id)
	if err != nil {
		return nil, err
	}
	var item model.MenuItem
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&item); err != nil {
		return nil, mongoErr(err, "menu item", id)
	}
	return &item, nil
}

func (r *menuRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.col.CountDocuments(ctx, filter)
}

func (r *menuRepository) Find(ctx context.Context, plan *query.Plan) ([]bson.M, error) {
	return findAll(ctx, r.col, plan)
}

// AveragePrice is the mean price of the category's items, 0 when it has none.
func (r *menuRepository) AveragePrice(ctx context.Context, category string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"category": category}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$category",
			"averagePrice": bson.M{"$avg": "$price"},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate %s average: %w", category, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		AveragePrice float64 `bson:"averagePrice"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode %s average: %w", category, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].AveragePrice, nil
}

func (r *menuRepository) OwnerOf(ctx context.Context, id string) (uint, error) {
	return ownerOf(ctx, r.col, "menu item", id)
}

func findAll(ctx context.Context, col *mongo.Collection, plan *query.Plan) ([]bson.M, error) {
	cur, err := col.Find(ctx, plan.Filter, plan.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := []bson.M{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func ownerOf(ctx context.Context, col *mongo.Collection, kind, id string) (uint, error) {
	oid, err := objectID(kind, id)
	if err != nil {
		return 0, err
	}
	var doc struct {
		User uint `bson:"user"`
	}
	opts := options.FindOne().SetProjection(bson.M{"user": 1})
	if err := col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		return 0, mongoErr(err, kind, id)
	}
	return doc.User, nil
}
