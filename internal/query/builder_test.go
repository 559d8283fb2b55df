package query

import (
	"context"
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "menuservice/internal/errors"
)

var menuSchema = Schema{
	"_id":       KindObjectID,
	"price":     KindNumber,
	"calories":  KindInt,
	"featured":  KindBool,
	"createdAt": KindTime,
}

func mustBuild(t *testing.T, raw string) *Plan {
	t.Helper()
	params, err := url.ParseQuery(raw)
	require.NoError(t, err)
	plan, err := Build(params, menuSchema)
	require.NoError(t, err)
	return plan
}

func TestBuild_RangeSortAndWindow(t *testing.T) {
	plan := mustBuild(t, "price[gte]=10&price[lte]=50&sort=-price&page=2&limit=5")

	assert.Equal(t, bson.M{"price": bson.M{"$gte": 10.0, "$lte": 50.0}}, plan.Filter)
	assert.Equal(t, bson.D{{Key: "price", Value: -1}}, plan.Sort)
	assert.Equal(t, int64(2), plan.Page)
	assert.Equal(t, int64(5), plan.Limit)
	assert.Equal(t, int64(5), plan.Skip())
	assert.Nil(t, plan.Projection)
}

func TestBuild_Defaults(t *testing.T) {
	plan := mustBuild(t, "")

	assert.Empty(t, plan.Filter)
	assert.Equal(t, DefaultSort(), plan.Sort)
	assert.Equal(t, DefaultPage, plan.Page)
	assert.Equal(t, DefaultLimit, plan.Limit)
	assert.Equal(t, int64(0), plan.Skip())
}

func TestBuild_BadWindowFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"non numeric", "page=abc&limit=xyz"},
		{"zero", "page=0&limit=0"},
		{"negative", "page=-2&limit=-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := mustBuild(t, tt.query)
			assert.Equal(t, DefaultPage, plan.Page)
			assert.Equal(t, DefaultLimit, plan.Limit)
		})
	}
}

func TestBuild_HugeWindowDoesNotOverflow(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int64
		wantLimit int64
	}{
		{"huge page", "page=9223372036854775807&limit=10", math.MaxInt64 / 10, 10},
		{"huge limit", "page=3&limit=9223372036854775807", 1, math.MaxInt64},
		{"both huge", "page=9223372036854775807&limit=9223372036854775807", 1, math.MaxInt64},
		{"huge page with default limit", "page=9223372036854775807", math.MaxInt64 / DefaultLimit, DefaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := mustBuild(t, tt.query)

			assert.Equal(t, tt.wantPage, plan.Page)
			assert.Equal(t, tt.wantLimit, plan.Limit)
			assert.GreaterOrEqual(t, plan.Skip(), int64(0))

			p := Paginate(plan, 12)
			assert.Nil(t, p.Next)
			if plan.Page > 1 {
				assert.Equal(t, &PageRef{Page: plan.Page - 1, Limit: plan.Limit}, p.Prev)
			}
		})
	}
}

func TestBuild_Filters(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name  string
		query string
		want  bson.M
	}{
		{
			name:  "plain equality",
			query: "category=Desserts",
			want:  bson.M{"category": "Desserts"},
		},
		{
			name:  "bool coercion",
			query: "featured=true",
			want:  bson.M{"featured": true},
		},
		{
			name:  "int coercion",
			query: "calories[lt]=500",
			want:  bson.M{"calories": bson.M{"$lt": int64(500)}},
		},
		{
			name:  "in splits on commas",
			query: "category[in]=Main Course,Desserts",
			want:  bson.M{"category": bson.M{"$in": []any{"Main Course", "Desserts"}}},
		},
		{
			name:  "repeated key becomes in",
			query: "dietaryTags=vegan&dietaryTags=vegan",
			want:  bson.M{"dietaryTags": bson.M{"$in": []any{"vegan", "vegan"}}},
		},
		{
			name:  "equality merges with comparison",
			query: "price=10&price[lt]=20",
			want:  bson.M{"price": bson.M{"$eq": 10.0, "$lt": 20.0}},
		},
		{
			name:  "unknown operator stays literal",
			query: "name[regex]=salad",
			want:  bson.M{"name[regex]": "salad"},
		},
		{
			name:  "id alias",
			query: "id=" + id.Hex(),
			want:  bson.M{"_id": id},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := mustBuild(t, tt.query)
			assert.Equal(t, tt.want, plan.Filter)
		})
	}
}

func TestBuild_ControlKeysNeverFilter(t *testing.T) {
	plan := mustBuild(t, "select=name&sort=name&page=1&limit=3")
	assert.Empty(t, plan.Filter)
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"operator injection", "$where=1"},
		{"bad number", "price[gt]=cheap"},
		{"bad bool", "featured=maybe"},
		{"bad object id", "id=nope"},
		{"bad time", "createdAt[gte]=yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			plan, err := Build(params, menuSchema)
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestBuild_SelectAndSort(t *testing.T) {
	plan := mustBuild(t, "select=name,price&sort=category,-price")

	assert.Equal(t, bson.M{"_id": 1, "name": 1, "price": 1}, plan.Projection)
	assert.Equal(t, bson.D{{Key: "category", Value: 1}, {Key: "price", Value: -1}}, plan.Sort)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		page     int64
		total    int64
		wantNext *PageRef
		wantPrev *PageRef
	}{
		{name: "first page", page: 1, total: 12, wantNext: &PageRef{Page: 2, Limit: 5}},
		{name: "middle page", page: 2, total: 12, wantNext: &PageRef{Page: 3, Limit: 5}, wantPrev: &PageRef{Page: 1, Limit: 5}},
		{name: "last page", page: 3, total: 12, wantPrev: &PageRef{Page: 2, Limit: 5}},
		{name: "exact fit", page: 1, total: 5},
		{name: "past the end", page: 9, total: 12, wantPrev: &PageRef{Page: 8, Limit: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(&Plan{Page: tt.page, Limit: 5}, tt.total)
			assert.Equal(t, tt.wantNext, got.Next)
			assert.Equal(t, tt.wantPrev, got.Prev)
		})
	}
}

type fakeSource struct {
	total      int64
	docs       []bson.M
	err        error
	seenFilter bson.M
}

func (f *fakeSource) Count(_ context.Context, filter bson.M) (int64, error) {
	f.seenFilter = filter
	return f.total, f.err
}

func (f *fakeSource) Find(_ context.Context, _ *Plan) ([]bson.M, error) {
	return f.docs, nil
}

func TestExecute(t *testing.T) {
	id := primitive.NewObjectID()
	src := &fakeSource{
		total: 12,
		docs:  []bson.M{{"_id": id, "name": "Caesar Salad"}},
	}
	plan := mustBuild(t, "price[gte]=10&page=1&limit=5")

	env, err := Execute(context.Background(), src, plan)
	require.NoError(t, err)

	assert.True(t, env.Success)
	assert.Equal(t, 1, env.Count)
	assert.Equal(t, plan.Filter, src.seenFilter)
	assert.Equal(t, &PageRef{Page: 2, Limit: 5}, env.Pagination.Next)
	assert.Nil(t, env.Pagination.Prev)
	require.Len(t, env.Data, 1)
	assert.Equal(t, id, env.Data[0]["id"])
	assert.NotContains(t, env.Data[0], "_id")
}

func TestExecute_EmptyDataIsNotNil(t *testing.T) {
	env, err := Execute(context.Background(), &fakeSource{}, mustBuild(t, ""))
	require.NoError(t, err)
	assert.NotNil(t, env.Data)
	assert.Equal(t, 0, env.Count)
}

func TestExecute_CountError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Execute(context.Background(), &fakeSource{err: boom}, mustBuild(t, ""))
	assert.ErrorIs(t, err, boom)
}
