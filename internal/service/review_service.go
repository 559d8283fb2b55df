package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
	"menuservice/internal/query"
	"menuservice/internal/repository"
)

// ReviewInput carries the writable fields of a review.
type ReviewInput struct {
	Title  *string `json:"title"`
	Text   *string `json:"text"`
	Rating *int    `json:"rating"`
}

func (in ReviewInput) apply(r *model.Review) {
	if in.Title != nil {
		r.Title = *in.Title
	}
	if in.Text != nil {
		r.Text = *in.Text
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
}

// ReviewService manages reviews of menu items.
type ReviewService interface {
	List(ctx context.Context, menuItemID string, params url.Values) (*query.Envelope, error)
	Create(ctx context.Context, menuItemID string, author uint, in ReviewInput) (*model.Review, error)
	Update(ctx context.Context, id string, in ReviewInput) (*model.Review, error)
	Delete(ctx context.Context, id string) error
}

type reviewService struct {
	reviews   repository.ReviewRepository
	items     repository.MenuRepository
	validator *Validator
	now       func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(reviews repository.ReviewRepository, items repository.MenuRepository, validator *Validator) ReviewService {
	return &reviewService{
		reviews:   reviews,
		items:     items,
		validator: validator,
		now:       time.Now,
	}
}

func (s *reviewService) List(ctx context.Context, menuItemID string, params url.Values) (*query.Envelope, error) {
	item, err := s.items.FindByID(ctx, menuItemID)
	if err != nil {
		return nil, menuItemErr(err, menuItemID)
	}

	plan, err := query.Build(params, repository.ReviewSchema)
	if err != nil {
		return nil, err
	}
	plan.Filter["menuItem"] = item.ID
	return query.Execute(ctx, s.reviews, plan)
}

func (s *reviewService) Create(ctx context.Context, menuItemID string, author uint, in ReviewInput) (*model.Review, error) {
	item, err := s.items.FindByID(ctx, menuItemID)
	if err != nil {
		return nil, menuItemErr(err, menuItemID)
	}

	review := &model.Review{
		ID:        primitive.NewObjectID(),
		MenuItem:  item.ID,
		User:      author,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	in.apply(review)
	if err := s.validator.Validate(review); err != nil {
		return nil, err
	}

	if err := s.reviews.Create(context.WithoutCancel(ctx), review); err != nil {
		return nil, reviewErr(err, review.ID.Hex())
	}
	return review, nil
}

func (s *reviewService) Update(ctx context.Context, id string, in ReviewInput) (*model.Review, error) {
	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, reviewErr(err, id)
	}

	in.apply(review)
	if err := s.validator.Validate(review); err != nil {
		return nil, err
	}

	if err := s.reviews.Replace(context.WithoutCancel(ctx), review); err != nil {
		return nil, reviewErr(err, id)
	}
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, id string) error {
	if err := s.reviews.Delete(context.WithoutCancel(ctx), id); err != nil {
		return reviewErr(err, id)
	}
	return nil
}

func reviewErr(err error, id string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NotFoundf("Review not found with id of %s", id)
	}
	return err
}
