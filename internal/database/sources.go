package database

import (
	"context"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

// ItemSource adapts a Store to feed.Source for the item feed.
type ItemSource struct{ Store Store }

func (s ItemSource) Query(ctx context.Context, q feed.Query) (feed.Page[model.Item], error) {
	return s.Store.QueryItems(ctx, q)
}

func (s ItemSource) GetAll(ctx context.Context) ([]model.Item, error) {
	return s.Store.AllItems(ctx)
}

// ShopSource adapts a Store to feed.Source for the shop directory.
type ShopSource struct{ Store Store }

func (s ShopSource) Query(ctx context.Context, q feed.Query) (feed.Page[model.Shop], error) {
	return s.Store.QueryShops(ctx, q)
}

func (s ShopSource) GetAll(ctx context.Context) ([]model.Shop, error) {
	return s.Store.AllShops(ctx)
}

// ForumSource adapts a Store to feed.Source for the forum.
type ForumSource struct{ Store Store }

func (s ForumSource) Query(ctx context.Context, q feed.Query) (feed.Page[model.ForumPost], error) {
	return s.Store.QueryForumPosts(ctx, q)
}

func (s ForumSource) GetAll(ctx context.Context) ([]model.ForumPost, error) {
	return s.Store.AllForumPosts(ctx)
}

// MaxLimit reports the store's page cap to the feed.
func (ItemSource) MaxLimit() int { return MaxPageSize }

func (ShopSource) MaxLimit() int { return MaxPageSize }

func (ForumSource) MaxLimit() int { return MaxPageSize }

var (
	_ feed.Source[model.Item]      = ItemSource{}
	_ feed.Source[model.Shop]      = ShopSource{}
	_ feed.Source[model.ForumPost] = ForumSource{}
	_ feed.Limiter                 = ItemSource{}
)
