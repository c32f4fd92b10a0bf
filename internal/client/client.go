// Package client talks to the goldmarket JSON API. Its sources let a
// feed.Feed page through a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goldlanka/goldmarket/internal/auth"
	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

// DefaultTimeout bounds every request so a hung server cannot leave a
// feed loading forever.
const DefaultTimeout = 15 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string `json:"error"`
	Field   string `json:"field"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client is a JSON API client. Requests carry the identity of the session,
// if one is signed in.
type Client struct {
	baseURL string
	http    *http.Client
	session *auth.Session
}

// New creates a client for the server at baseURL. session may be nil for
// anonymous access.
func New(baseURL string, session *auth.Session, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		session: session,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if id, ok := c.session.Current(); ok {
			req.Header.Set(auth.HeaderUserID, id.UserID)
			req.Header.Set(auth.HeaderUserName, id.DisplayName)
			req.Header.Set(auth.HeaderUserEmail, id.Email)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// PageResult is one page as returned by a list endpoint.
type PageResult[T feed.Record] struct {
	Records []T         `json:"records"`
	Cursor  feed.Cursor `json:"cursor"`
	HasMore bool        `json:"has_more"`
}

// Source pages through one collection endpoint.
type Source[T feed.Record] struct {
	c    *Client
	path string
	// paged sources have no full-scan endpoint and are read page by page.
	paged bool
}

// MaxPageSize is the largest limit the server honours on list endpoints.
const MaxPageSize = 100

var (
	_ feed.Source[model.Item] = Source[model.Item]{}
	_ feed.Limiter            = Source[model.Item]{}
)

// Items, Shops and Forum return the feed sources for each collection.
func (c *Client) Items() Source[model.Item] { return Source[model.Item]{c: c, path: "/api/items"} }
func (c *Client) Shops() Source[model.Shop] { return Source[model.Shop]{c: c, path: "/api/shops"} }
func (c *Client) Forum() Source[model.ForumPost] {
	return Source[model.ForumPost]{c: c, path: "/api/forum", paged: true}
}

// Query fetches one page.
func (s Source[T]) Query(ctx context.Context, q feed.Query) (feed.Page[T], error) {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("district", q.Filter)
	}
	if q.After != "" {
		v.Set("cursor", string(q.After))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	path := s.path + "/"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var res PageResult[T]
	if err := s.c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return feed.Page[T]{}, err
	}
	return feed.Page[T]{Records: res.Records, Cursor: res.Cursor}, nil
}

// MaxLimit caps the feed's page size at the server's limit.
func (s Source[T]) MaxLimit() int { return MaxPageSize }

// GetAll fetches the whole collection.
func (s Source[T]) GetAll(ctx context.Context) ([]T, error) {
	if s.paged {
		return s.pageAll(ctx)
	}
	var all []T
	if err := s.c.do(ctx, http.MethodGet, s.path+"/all", nil, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (s Source[T]) pageAll(ctx context.Context) ([]T, error) {
	var all []T
	q := feed.Query{Limit: MaxPageSize}
	for {
		page, err := s.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if len(page.Records) < q.Limit {
			return all, nil
		}
		q.After = page.Cursor
	}
}

// ItemDetail is an item with its bids.
type ItemDetail struct {
	Item *model.Item `json:"item"`
	Bids []model.Bid `json:"bids"`
}

// GetItem fetches one item by ID or slug.
func (c *Client) GetItem(ctx context.Context, id string) (*ItemDetail, error) {
	var out ItemDetail
	if err := c.do(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlaceBid bids on an item and returns the updated item.
func (c *Client) PlaceBid(ctx context.Context, itemID string, amount float64, description string) (*model.Item, error) {
	var out struct {
		Item *model.Item `json:"item"`
	}
	body := map[string]any{"amount": amount, "description": description}
	if err := c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(itemID)+"/bids", body, &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

// CreatePost posts to the forum.
func (c *Client) CreatePost(ctx context.Context, text string) (*model.ForumPost, error) {
	var out model.ForumPost
	if err := c.do(ctx, http.MethodPost, "/api/forum/", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tally fetches the per-district counts of a collection.
func (c *Client) Tally(ctx context.Context, collection string) (feed.Tally, error) {
	var out feed.Tally
	if err := c.do(ctx, http.MethodGet, "/api/"+collection+"/tally", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health reports whether the server and its database are up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
