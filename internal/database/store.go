// Package database provides storage backends for the marketplace.
package database

import (
	"context"
	"errors"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the caller does not own the record.
	ErrForbidden = errors.New("not the owner of this record")
	// ErrItemSold is returned when bidding on an item that has been sold.
	ErrItemSold = errors.New("item has been sold")
	// ErrCursorMismatch is returned when a cursor is malformed or was issued
	// under a different filter.
	ErrCursorMismatch = errors.New("cursor does not match query")
)

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL backends satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string
	Ping(ctx context.Context) error

	// Feed operations. Pages are ordered by creation time descending.
	QueryItems(ctx context.Context, q feed.Query) (feed.Page[model.Item], error)
	AllItems(ctx context.Context) ([]model.Item, error)
	QueryShops(ctx context.Context, q feed.Query) (feed.Page[model.Shop], error)
	AllShops(ctx context.Context) ([]model.Shop, error)
	QueryForumPosts(ctx context.Context, q feed.Query) (feed.Page[model.ForumPost], error)
	AllForumPosts(ctx context.Context) ([]model.ForumPost, error)

	// Item operations
	CreateItem(ctx context.Context, it *model.Item) error
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID string) ([]model.Item, error)
	UpdateItem(ctx context.Context, ownerID string, it *model.Item) error
	MarkItemSold(ctx context.Context, id, ownerID string) error
	DeleteItem(ctx context.Context, id, ownerID string) error

	// Bid operations
	PlaceBid(ctx context.Context, b *model.Bid) (*model.Item, error)
	ListBids(ctx context.Context, itemID string) ([]model.Bid, error)

	// Shop operations
	SaveShop(ctx context.Context, s *model.Shop) error
	GetShop(ctx context.Context, id string) (*model.Shop, error)
	GetShopByOwner(ctx context.Context, ownerID string) (*model.Shop, error)
	DeleteShop(ctx context.Context, id, ownerID string) error

	// Review operations
	SaveReview(ctx context.Context, r *model.Review) error
	ListReviews(ctx context.Context, shopID string) ([]model.Review, error)
	ReplyToReview(ctx context.Context, shopID, reviewID, ownerID, reply string) (*model.Review, error)
	ShopRatings(ctx context.Context, district string) (map[string]model.Rating, error)

	// Forum operations
	CreateForumPost(ctx context.Context, p *model.ForumPost) error
	GetForumPost(ctx context.Context, id string) (*model.ForumPost, error)
	CreateForumReply(ctx context.Context, r *model.ForumReply) error
	ListForumReplies(ctx context.Context, postID string) ([]model.ForumReply, error)

	// User operations
	SaveUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUserPhone(ctx context.Context, id, phone string) error
	DeleteUser(ctx context.Context, id string) error
}
