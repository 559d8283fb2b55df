package query

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
}

// Pagination carries the neighbouring pages that exist for a listing.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Envelope is the response body of every listing endpoint.
type Envelope struct {
	Success    bool       `json:"success"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
	Data       []bson.M   `json:"data"`
}

// Source is a collection the plan can run against.
type Source interface {
	Count(ctx context.Context, filter bson.M) (int64, error)
	Find(ctx context.Context, plan *Plan) ([]bson.M, error)
}

// Paginate computes the next/prev references for a plan given the total
// number of documents that match its filter.
func Paginate(plan *Plan, total int64) Pagination {
	var p Pagination
	skip := plan.Skip()
	if skip+plan.Limit < total {
		p.Next = &PageRef{Page: plan.Page + 1, Limit: plan.Limit}
	}
	if skip > 0 {
		p.Prev = &PageRef{Page: plan.Page - 1, Limit: plan.Limit}
	}
	return p
}

// Execute counts the filter matches, fetches the page and builds the envelope.
func Execute(ctx context.Context, src Source, plan *Plan) (*Envelope, error) {
	total, err := src.Count(ctx, plan.Filter)
	if err != nil {
		return nil, err
	}

	docs, err := src.Find(ctx, plan)
	if err != nil {
		return nil, err
	}

	data := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc["_id"]; ok {
			doc["id"] = id
			delete(doc, "_id")
		}
		data = append(data, doc)
	}

	return &Envelope{
		Success:    true,
		Count:      len(data),
		Pagination: Paginate(plan, total),
		Data:       data,
	}, nil
}
