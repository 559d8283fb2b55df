package service

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"menuservice/internal/cache"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/logger"
	"menuservice/internal/metrics"
	"menuservice/internal/model"
	"menuservice/internal/query"
	"menuservice/internal/repository"
)

const (
	menuItemCacheTTL    = 5 * time.Minute
	menuItemCachePrefix = "menu:item:"
)

// MenuItemInput carries the writable fields of a menu item. Nil fields are
// left untouched on update.
type MenuItemInput struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	Category        *string  `json:"category"`
	Ingredients     []string `json:"ingredients"`
	DietaryTags     []string `json:"dietaryTags"`
	Image           *string  `json:"image"`
	Featured        *bool    `json:"featured"`
	Available       *bool    `json:"available"`
	PreparationTime *int     `json:"preparationTime"`
	Calories        *int     `json:"calories"`
}

func (in MenuItemInput) apply(item *model.MenuItem) {
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Price != nil {
		price := *in.Price
		item.Price = &price
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.Ingredients != nil {
		item.Ingredients = in.Ingredients
	}
	if in.DietaryTags != nil {
		item.DietaryTags = in.DietaryTags
	}
	if in.Image != nil {
		item.Image = *in.Image
	}
	if in.Featured != nil {
		item.Featured = *in.Featured
	}
	if in.Available != nil {
		item.Available = *in.Available
	}
	if in.PreparationTime != nil {
		item.PreparationTime = in.PreparationTime
	}
	if in.Calories != nil {
		item.Calories = in.Calories
	}
}

// MenuService manages menu items and keeps their derived fields current.
type MenuService interface {
	List(ctx context.Context, params url.Values) (*query.Envelope, error)
	Get(ctx context.Context, id string) (*model.MenuItem, error)
	Create(ctx context.Context, owner uint, in MenuItemInput) (*model.MenuItem, error)
	Update(ctx context.Context, id string, in MenuItemInput) (*model.MenuItem, error)
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]model.Category, error)
}

type menuService struct {
	items      repository.MenuRepository
	reviews    repository.ReviewRepository
	categories repository.CategoryRepository
	cache      *cache.Client
	metrics    *metrics.Metrics
	validator  *Validator
	now        func() time.Time
}

// NewMenuService creates a new menu service. cache and m may be nil.
func NewMenuService(
	items repository.MenuRepository,
	reviews repository.ReviewRepository,
	categories repository.CategoryRepository,
	itemCache *cache.Client,
	m *metrics.Metrics,
	validator *Validator,
) MenuService {
	return &menuService{
		items:      items,
		reviews:    reviews,
		categories: categories,
		cache:      itemCache,
		metrics:    m,
		validator:  validator,
		now:        time.Now,
	}
}

func (s *menuService) List(ctx context.Context, params url.Values) (*query.Envelope, error) {
	plan, err := query.Build(params, repository.MenuSchema)
	if err != nil {
		return nil, err
	}
	return query.Execute(ctx, s.items, plan)
}

func (s *menuService) Get(ctx context.Context, id string) (*model.MenuItem, error) {
	var cached model.MenuItem
	if s.cache.GetJSON(ctx, menuItemCachePrefix+id, &cached) {
		s.metrics.CacheLookup(true)
		return &cached, nil
	}
	s.metrics.CacheLookup(false)

	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, menuItemErr(err, id)
	}
	_ = s.cache.SetJSON(ctx, menuItemCachePrefix+id, item, menuItemCacheTTL)
	return item, nil
}

func (s *menuService) Create(ctx context.Context, owner uint, in MenuItemInput) (*model.MenuItem, error) {
	item := &model.MenuItem{
		ID:        primitive.NewObjectID(),
		Image:     model.DefaultImage,
		Available: true,
		User:      owner,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	in.apply(item)
	if err := s.validator.Validate(item); err != nil {
		return nil, err
	}
	item.Slug = slug.Make(item.Name)

	ctx = context.WithoutCancel(ctx)
	if err := s.items.Create(ctx, item); err != nil {
		return nil, menuItemErr(err, item.ID.Hex())
	}

	s.refreshCategory(ctx, item.Category)
	return item, nil
}

func (s *menuService) Update(ctx context.Context, id string, in MenuItemInput) (*model.MenuItem, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, menuItemErr(err, id)
	}
	prevName, prevCategory := item.Name, item.Category

	in.apply(item)
	if err := s.validator.Validate(item); err != nil {
		return nil, err
	}
	if item.Name != prevName {
		item.Slug = slug.Make(item.Name)
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.items.Replace(ctx, item); err != nil {
		return nil, menuItemErr(err, id)
	}
	_ = s.cache.Delete(ctx, menuItemCachePrefix+id)

	s.refreshCategory(ctx, item.Category)
	if prevCategory != item.Category {
		s.refreshCategory(ctx, prevCategory)
	}
	return item, nil
}

func (s *menuService) Delete(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)
	item, err := s.items.Delete(ctx, id)
	if err != nil {
		return menuItemErr(err, id)
	}
	_ = s.cache.Delete(ctx, menuItemCachePrefix+id)

	n, err := s.reviews.DeleteByMenuItem(ctx, item.ID)
	if err != nil {
		logger.WithCtx(ctx).Error("cascade review delete failed", "menu_item", id, "error", err.Error())
		s.metrics.DerivedFailure("review_cascade")
	} else {
		logger.WithCtx(ctx).Debug("reviews removed with menu item", "menu_item", id, "count", n)
	}

	s.refreshCategory(ctx, item.Category)
	return nil
}

func (s *menuService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

// refreshCategory recomputes the category's average price, rounded up.
// Failures are logged and counted but never reach the caller.
func (s *menuService) refreshCategory(ctx context.Context, category string) {
	if category == "" {
		return
	}
	avg, err := s.items.AveragePrice(ctx, category)
	if err == nil {
		err = s.categories.SetAveragePrice(ctx, category, int64(math.Ceil(avg)))
	}
	if err != nil {
		logger.WithCtx(ctx).Error("refresh category average failed", "category", category, "error", err.Error())
		s.metrics.DerivedFailure("category_average")
	}
}

func menuItemErr(err error, id string) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.NotFoundf("Menu item not found with id of %s", id)
	case errors.Is(err, repository.ErrDuplicateKey):
		return apperrors.Validation("Duplicate field value entered")
	default:
		return err
	}
}
