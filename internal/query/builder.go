// Package query turns listing request parameters into a MongoDB query plan
// and wraps the results in a pagination envelope.
//
// Filters use the bracket form: price[gte]=10&price[lte]=50&category[in]=main,dessert.
// The control keys select, sort, page and limit shape projection, order and
// the pagination window.
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "menuservice/internal/errors"
)

const (
	DefaultPage  int64 = 1
	DefaultLimit int64 = 10
)

// Operator is a recognized filter comparison.
type Operator int

const (
	OpEq Operator = iota
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
)

var suffixes = map[string]Operator{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
}

// Mongo returns the query operator the comparison translates to.
func (o Operator) Mongo() string {
	switch o {
	case OpGt:
		return "$gt"
	case OpGte:
		return "$gte"
	case OpLt:
		return "$lt"
	case OpLte:
		return "$lte"
	case OpIn:
		return "$in"
	default:
		return "$eq"
	}
}

// Kind tells the builder how to coerce raw parameter values for a field.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindInt
	KindBool
	KindTime
	KindObjectID
)

// Schema maps stored field names to their kinds. Fields missing from the
// schema are matched as strings.
type Schema map[string]Kind

var controlKeys = map[string]bool{
	"select": true,
	"sort":   true,
	"page":   true,
	"limit":  true,
}

// DefaultSort orders newest first.
func DefaultSort() bson.D {
	return bson.D{{Key: "createdAt", Value: -1}}
}

// Plan is a fully resolved listing query.
type Plan struct {
	Filter     bson.M
	Projection bson.M
	Sort       bson.D
	Page       int64
	Limit      int64
}

// Skip is the number of matching documents before the current page.
func (p *Plan) Skip() int64 {
	return (p.Page - 1) * p.Limit
}

// FindOptions renders the projection, sort and window as driver options.
func (p *Plan) FindOptions() *options.FindOptions {
	opts := options.Find().
		SetSort(p.Sort).
		SetSkip(p.Skip()).
		SetLimit(p.Limit)
	if p.Projection != nil {
		opts.SetProjection(p.Projection)
	}
	return opts
}

// Build partitions params into control and filter keys and resolves them
// against schema.
func Build(params url.Values, schema Schema) (*Plan, error) {
	filter, err := buildFilter(params, schema)
	if err != nil {
		return nil, err
	}

	limit := positiveOr(params.Get("limit"), DefaultLimit)
	page := positiveOr(params.Get("page"), DefaultPage)
	// page*limit must fit in an int64 so the skip and window end never wrap.
	if maxPage := math.MaxInt64 / limit; page > maxPage {
		page = maxPage
	}

	return &Plan{
		Filter:     filter,
		Projection: buildProjection(params.Get("select")),
		Sort:       buildSort(params.Get("sort")),
		Page:       page,
		Limit:      limit,
	}, nil
}

// parseKey splits "field[op]" into its field and operator. A bracket token
// that is not a known operator stays part of the field name.
func parseKey(key string) (string, Operator) {
	if !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	open := strings.LastIndexByte(key, '[')
	if open <= 0 {
		return key, OpEq
	}
	op, ok := suffixes[key[open+1:len(key)-1]]
	if !ok {
		return key, OpEq
	}
	return key[:open], op
}

func buildFilter(params url.Values, schema Schema) (bson.M, error) {
	keys := make([]string, 0, len(params))
	for key := range params {
		if !controlKeys[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	filter := bson.M{}
	comparisons := map[string]bson.M{}
	equals := map[string]any{}

	for _, key := range keys {
		values := params[key]
		if len(values) == 0 {
			continue
		}

		field, op := parseKey(key)
		field = storedName(field)
		if field == "" || strings.HasPrefix(field, "$") {
			return nil, apperrors.Validation(fmt.Sprintf("Invalid filter field %q", key))
		}
		kind := schema[field]

		switch {
		case op == OpIn:
			list, err := coerceList(field, kind, splitList(values))
			if err != nil {
				return nil, err
			}
			docFor(comparisons, field)[op.Mongo()] = list
		case op == OpEq && len(values) > 1:
			list, err := coerceList(field, kind, values)
			if err != nil {
				return nil, err
			}
			docFor(comparisons, field)[OpIn.Mongo()] = list
		case op == OpEq:
			v, err := coerce(field, kind, values[0])
			if err != nil {
				return nil, err
			}
			equals[field] = v
		default:
			v, err := coerce(field, kind, values[len(values)-1])
			if err != nil {
				return nil, err
			}
			docFor(comparisons, field)[op.Mongo()] = v
		}
	}

	for field, doc := range comparisons {
		if v, ok := equals[field]; ok {
			doc[OpEq.Mongo()] = v
			delete(equals, field)
		}
		filter[field] = doc
	}
	for field, v := range equals {
		filter[field] = v
	}
	return filter, nil
}

func docFor(m map[string]bson.M, field string) bson.M {
	doc, ok := m[field]
	if !ok {
		doc = bson.M{}
		m[field] = doc
	}
	return doc
}

// splitList accepts both repeated params and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func coerceList(field string, kind Kind, raw []string) ([]any, error) {
	list := make([]any, 0, len(raw))
	for _, r := range raw {
		v, err := coerce(field, kind, r)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

func coerce(field string, kind Kind, raw string) (any, error) {
	var (
		v   any
		err error
	)
	switch kind {
	case KindNumber:
		v, err = strconv.ParseFloat(raw, 64)
	case KindInt:
		v, err = strconv.ParseInt(raw, 10, 64)
	case KindBool:
		v, err = strconv.ParseBool(raw)
	case KindTime:
		v, err = parseTime(raw)
	case KindObjectID:
		v, err = primitive.ObjectIDFromHex(raw)
	default:
		v = raw
	}
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("Invalid value %q for field %s", raw, field))
	}
	return v, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func buildProjection(selectParam string) bson.M {
	fields := splitList([]string{selectParam})
	if len(fields) == 0 {
		return nil
	}
	projection := bson.M{"_id": 1}
	for _, f := range fields {
		projection[storedName(f)] = 1
	}
	return projection
}

func buildSort(sortParam string) bson.D {
	keys := splitList([]string{sortParam})
	if len(keys) == 0 {
		return DefaultSort()
	}
	order := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if strings.HasPrefix(k, "-") {
			dir = -1
			k = k[1:]
		}
		if k == "" {
			continue
		}
		order = append(order, bson.E{Key: storedName(k), Value: dir})
	}
	if len(order) == 0 {
		return DefaultSort()
	}
	return order
}

func storedName(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

func positiveOr(raw string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
