package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query holds the item query parameters supported by the backend
type Query struct {
	Fields []string
	Sort   []string
	Filter interface{}
	Limit  int
}

func (q Query) values() (url.Values, error) {
	values := url.Values{}
	if len(q.Fields) > 0 {
		values.Set("fields", strings.Join(q.Fields, ","))
	}
	if len(q.Sort) > 0 {
		values.Set("sort", strings.Join(q.Sort, ","))
	}
	if q.Filter != nil {
		encoded, err := json.Marshal(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filter: %w", err)
		}
		values.Set("filter", string(encoded))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values, nil
}

// ListItems lists records from a collection into out.
// GET /items/{collection}
func (c *Client) ListItems(ctx context.Context, collection string, q Query, out interface{}) error {
	values, err := q.values()
	if err != nil {
		return err
	}
	return c.do(ctx, "GET", "/items/"+collection, values, nil, out, "")
}

// GetItem fetches a single record by ID.
// GET /items/{collection}/{id}
func (c *Client) GetItem(ctx context.Context, collection, id string, q Query, out interface{}) error {
	values, err := q.values()
	if err != nil {
		return err
	}
	return c.do(ctx, "GET", "/items/"+collection+"/"+url.PathEscape(id), values, nil, out, "")
}

// CreateItem creates a record. When out is non-nil the created record is
// decoded into it.
// POST /items/{collection}
func (c *Client) CreateItem(ctx context.Context, collection string, item, out interface{}) error {
	return c.do(ctx, "POST", "/items/"+collection, nil, item, out, "")
}

// UpdateItem applies a partial update to a record.
// PATCH /items/{collection}/{id}
func (c *Client) UpdateItem(ctx context.Context, collection, id string, patch, out interface{}) error {
	return c.do(ctx, "PATCH", "/items/"+collection+"/"+url.PathEscape(id), nil, patch, out, "")
}

// DeleteItem deletes a record.
// DELETE /items/{collection}/{id}
func (c *Client) DeleteItem(ctx context.Context, collection, id string) error {
	return c.do(ctx, "DELETE", "/items/"+collection+"/"+url.PathEscape(id), nil, nil, nil, "")
}
