package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
	"menuservice/internal/query"
)

func menuNS(mt *mtest.T) string {
	return mt.DB.Name() + ".menuitems"
}

func TestMenuRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		item := &model.MenuItem{ID: primitive.NewObjectID(), Name: "Caesar Salad", Category: "appetizer"}
		assert.NoError(mt, repo.Create(ctx, item))
	})

	mt.Run("create duplicate name", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.Create(ctx, &model.MenuItem{ID: primitive.NewObjectID(), Name: "Caesar Salad"})
		assert.ErrorIs(mt, err, ErrDuplicateKey)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, menuNS(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Caesar Salad"},
			{Key: "slug", Value: "caesar-salad"},
			{Key: "price", Value: 9.5},
			{Key: "user", Value: int64(3)},
		}))

		item, err := repo.FindByID(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id, item.ID)
		assert.Equal(mt, "caesar-salad", item.Slug)
		require.NotNil(mt, item.Price)
		assert.Equal(mt, 9.5, *item.Price)
		assert.Equal(mt, uint(3), item.User)
	})

	mt.Run("find by id missing", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, menuNS(mt), mtest.FirstBatch))

		_, err := repo.FindByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("malformed id is not found", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)

		_, err := repo.FindByID(ctx, "not-an-id")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
		_, err = repo.Delete(ctx, "not-an-id")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
		_, err = repo.OwnerOf(ctx, "not-an-id")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("replace missing", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.Replace(ctx, &model.MenuItem{ID: primitive.NewObjectID()})
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("delete returns stored item", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "_id", Value: id},
				{Key: "category", Value: "dessert"},
			}},
		})

		item, err := repo.Delete(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "dessert", item.Category)
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, menuNS(mt), mtest.FirstBatch, bson.D{
			{Key: "n", Value: int64(12)},
		}))

		n, err := repo.Count(ctx, bson.M{"price": bson.M{"$gte": 10.0}})
		require.NoError(mt, err)
		assert.Equal(mt, int64(12), n)
	})

	mt.Run("find page", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, menuNS(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Tiramisu"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "Panna Cotta"}},
		))

		plan := &query.Plan{Filter: bson.M{}, Sort: query.DefaultSort(), Page: 1, Limit: 10}
		docs, err := repo.Find(ctx, plan)
		require.NoError(mt, err)
		require.Len(mt, docs, 2)
		assert.Equal(mt, "Tiramisu", docs[0]["name"])
	})

	mt.Run("average price", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, menuNS(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "main"},
			{Key: "averagePrice", Value: 12.25},
		}))

		avg, err := repo.AveragePrice(ctx, "main")
		require.NoError(mt, err)
		assert.Equal(mt, 12.25, avg)
	})

	mt.Run("average price of empty category", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, menuNS(mt), mtest.FirstBatch))

		avg, err := repo.AveragePrice(ctx, "special")
		require.NoError(mt, err)
		assert.Zero(mt, avg)
	})

	mt.Run("owner", func(mt *mtest.T) {
		repo := NewMenuRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, menuNS(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "user", Value: int64(4)},
		}))

		owner, err := repo.OwnerOf(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, uint(4), owner)
	})
}

func TestReviewRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("delete by menu item", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		n, err := repo.DeleteByMenuItem(ctx, primitive.NewObjectID())
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("create", func(mt *mtest.T) {
		repo := NewReviewRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		review := &model.Review{
			ID:        primitive.NewObjectID(),
			Title:     "Great",
			Rating:    9,
			MenuItem:  primitive.NewObjectID(),
			User:      1,
			CreatedAt: time.Now(),
		}
		assert.NoError(mt, repo.Create(ctx, review))
	})
}

func TestCategoryRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("set average upserts", func(mt *mtest.T) {
		repo := NewCategoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		assert.NoError(mt, repo.SetAveragePrice(ctx, "main", 13))
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewCategoryRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".categories", mtest.FirstBatch,
			bson.D{{Key: "name", Value: "dessert"}, {Key: "averagePrice", Value: int64(7)}},
		))

		categories, err := repo.List(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, []model.Category{{Name: "dessert", AveragePrice: 7}}, categories)
	})
}
