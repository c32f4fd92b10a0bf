package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seedItems(t *testing.T, db *DB, n int, district, owner string, offset int) []model.Item {
	t.Helper()
	out := make([]model.Item, n)
	for i := range out {
		it := model.Item{
			OwnerID:     owner,
			OwnerName:   "Seller " + owner,
			Title:       fmt.Sprintf("22K chain %d", offset+i),
			Description: "Handmade",
			Karat:       22,
			Weight:      4.2,
			District:    district,
			Images:      []string{"http://img/1.jpg"},
			CreatedAt:   base.Add(-time.Duration(offset+i) * time.Minute),
		}
		require.NoError(t, db.CreateItem(context.Background(), &it))
		out[i] = it
	}
	return out
}

func testShop(owner, district string) *model.Shop {
	return &model.Shop{
		OwnerID:      owner,
		OwnerName:    "Owner " + owner,
		ShopName:     "Shop " + owner,
		Description:  "Fine jewellery",
		District:     district,
		Address:      "1 Main St",
		ContactPhone: "0771234567",
		ContactEmail: owner + "@example.lk",
		LogoURL:      "http://img/logo.png",
		CoverURL:     "http://img/cover.png",
		Location:     &model.Location{Lat: 6.9, Lng: 79.8},
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.Error(t, err)
}

func TestDatabaseType(t *testing.T) {
	db := newTestDB(t)
	assert.Equal(t, "SQLite", db.DatabaseType())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestRebind(t *testing.T) {
	db := &DB{numbered: true}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3",
		db.rebind("SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?"))
	db.numbered = false
	assert.Equal(t, "x = ?", db.rebind("x = ?"))
}

func TestCreateAndGetItem(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	it := seedItems(t, db, 1, "Galle", "u1", 0)[0]

	got, err := db.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "galle", got.District)
	assert.Equal(t, []string{"http://img/1.jpg"}, got.Images)
	assert.Equal(t, []string{it.Title}, got.ImageAlts)
	assert.True(t, got.CreatedAt.Equal(it.CreatedAt))
	assert.False(t, got.Sold)

	_, err = db.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	bad := model.Item{Title: "x"}
	var verr *model.ValidationError
	assert.ErrorAs(t, db.CreateItem(ctx, &bad), &verr)
}

func TestQueryItemsPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedItems(t, db, 25, "colombo", "u1", 0)
	seedItems(t, db, 3, "kandy", "u2", 100)

	var seen []model.Item
	var cursor feed.Cursor
	var sizes []int
	for {
		page, err := db.QueryItems(ctx, feed.Query{Filter: "Colombo", After: cursor, Limit: 10})
		require.NoError(t, err)
		sizes = append(sizes, len(page.Records))
		seen = append(seen, page.Records...)
		if len(page.Records) < 10 {
			assert.Len(t, page.Records, 5)
			break
		}
		cursor = page.Cursor
	}
	assert.Equal(t, []int{10, 10, 5}, sizes)
	require.Len(t, seen, 25)
	for i := 1; i < len(seen); i++ {
		assert.True(t, seen[i-1].CreatedAt.After(seen[i].CreatedAt))
		assert.Equal(t, "colombo", seen[i].District)
	}
}

func TestQueryItemsTiesBreakByID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	for _, id := range []string{"a1", "b2", "c3"} {
		it := model.Item{ID: id, OwnerID: "u", Title: "t", Description: "d", Karat: 24, Weight: 1,
			District: "matara", Images: []string{"x"}, CreatedAt: base}
		require.NoError(t, db.CreateItem(ctx, &it))
	}
	first, err := db.QueryItems(ctx, feed.Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	assert.Equal(t, "c3", first.Records[0].ID)
	assert.Equal(t, "b2", first.Records[1].ID)

	rest, err := db.QueryItems(ctx, feed.Query{After: first.Cursor, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rest.Records, 1)
	assert.Equal(t, "a1", rest.Records[0].ID)
}

func TestCursorBoundToFilter(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedItems(t, db, 12, "colombo", "u1", 0)

	page, err := db.QueryItems(ctx, feed.Query{Filter: "colombo"})
	require.NoError(t, err)
	require.NotEmpty(t, page.Cursor)

	_, err = db.QueryItems(ctx, feed.Query{Filter: "kandy", After: page.Cursor})
	assert.ErrorIs(t, err, ErrCursorMismatch)
	_, err = db.QueryItems(ctx, feed.Query{After: "!!not-base64"})
	assert.ErrorIs(t, err, ErrCursorMismatch)

	empty, err := db.QueryItems(ctx, feed.Query{Filter: "ampara"})
	require.NoError(t, err)
	assert.Empty(t, empty.Records)
	assert.Empty(t, empty.Cursor)
}

func TestUpdateSoldDeleteRequireOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	it := seedItems(t, db, 1, "galle", "owner", 0)[0]

	edit := it
	edit.Title = "24K bangle"
	assert.ErrorIs(t, db.UpdateItem(ctx, "intruder", &edit), ErrForbidden)
	require.NoError(t, db.UpdateItem(ctx, "owner", &edit))
	assert.Equal(t, "24K bangle", edit.Title)
	assert.True(t, edit.CreatedAt.Equal(it.CreatedAt))

	assert.ErrorIs(t, db.MarkItemSold(ctx, it.ID, "intruder"), ErrForbidden)
	assert.ErrorIs(t, db.MarkItemSold(ctx, "missing", "owner"), ErrNotFound)
	require.NoError(t, db.MarkItemSold(ctx, it.ID, "owner"))

	_, err := db.PlaceBid(ctx, &model.Bid{ItemID: it.ID, UserID: "b", Amount: 100, Description: "cash"})
	assert.ErrorIs(t, err, ErrItemSold)

	assert.ErrorIs(t, db.DeleteItem(ctx, it.ID, "intruder"), ErrForbidden)
	require.NoError(t, db.DeleteItem(ctx, it.ID, "owner"))
	_, err = db.GetItem(ctx, it.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaceBidTracksHighest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	it := seedItems(t, db, 1, "kandy", "owner", 0)[0]

	amounts := []float64{50000, 75000, 60000}
	highest := []float64{50000, 75000, 75000}
	for i, amount := range amounts {
		updated, err := db.PlaceBid(ctx, &model.Bid{ItemID: it.ID, UserID: "bidder", UserName: "B",
			Phone: "0711111111", Amount: amount, Description: "cash"})
		require.NoError(t, err)
		assert.Equal(t, highest[i], updated.HighestBid)
		assert.Equal(t, i+1, updated.BidsCount)
	}

	got, err := db.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 75000.0, got.HighestBid)
	assert.Equal(t, 3, got.BidsCount)

	bids, err := db.ListBids(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	assert.Equal(t, []float64{75000, 60000, 50000}, []float64{bids[0].Amount, bids[1].Amount, bids[2].Amount})

	_, err = db.PlaceBid(ctx, &model.Bid{ItemID: "missing", Amount: 1, Description: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveShopPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	s := testShop("alice", "Kandy")
	s.CreatedAt = base
	require.NoError(t, db.SaveShop(ctx, s))
	assert.Equal(t, "alice", s.ID)
	assert.Equal(t, "kandy", s.District)

	edit := testShop("alice", "Galle")
	edit.ShopName = "Alice Gold"
	require.NoError(t, db.SaveShop(ctx, edit))
	assert.True(t, edit.CreatedAt.Equal(base), "created_at must survive an edit")
	assert.Equal(t, "Alice Gold", edit.ShopName)
	assert.Equal(t, "galle", edit.District)

	byOwner, err := db.GetShopByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, &model.Location{Lat: 6.9, Lng: 79.8}, byOwner.Location)

	all, err := db.AllShops(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, db.DeleteShop(ctx, "alice", "bob"), ErrForbidden)
	require.NoError(t, db.DeleteShop(ctx, "alice", "alice"))
	_, err = db.GetShop(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewsAndRatings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.SaveShop(ctx, testShop("alice", "kandy")))
	require.NoError(t, db.SaveShop(ctx, testShop("bob", "galle")))

	r1 := &model.Review{ShopID: "alice", UserID: "u1", UserName: "U1", Rating: 4, Comment: "good"}
	require.NoError(t, db.SaveReview(ctx, r1))
	assert.Nil(t, r1.UpdatedAt)

	again := &model.Review{ShopID: "alice", UserID: "u1", UserName: "U1", Rating: 2, Comment: "changed"}
	require.NoError(t, db.SaveReview(ctx, again))
	assert.Equal(t, r1.ID, again.ID, "a second review by the same user edits the first")
	assert.Equal(t, 2, again.Rating)
	assert.NotNil(t, again.UpdatedAt)

	require.NoError(t, db.SaveReview(ctx, &model.Review{ShopID: "alice", UserID: "u2", Rating: 5}))
	require.NoError(t, db.SaveReview(ctx, &model.Review{ShopID: "bob", UserID: "u1", Rating: 3}))
	assert.ErrorIs(t, db.SaveReview(ctx, &model.Review{ShopID: "nobody", UserID: "u1", Rating: 3}), ErrNotFound)

	reviews, err := db.ListReviews(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	ratings, err := db.ShopRatings(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.Rating{Average: 3.5, Count: 2}, ratings["alice"])
	assert.Equal(t, model.Rating{Average: 3, Count: 1}, ratings["bob"])

	kandy, err := db.ShopRatings(ctx, "Kandy")
	require.NoError(t, err)
	assert.Len(t, kandy, 1)
	assert.Contains(t, kandy, "alice")

	_, err = db.ReplyToReview(ctx, "alice", r1.ID, "bob", "thanks")
	assert.ErrorIs(t, err, ErrForbidden)
	replied, err := db.ReplyToReview(ctx, "alice", r1.ID, "alice", "thanks")
	require.NoError(t, err)
	assert.Equal(t, "thanks", replied.Reply)
	assert.NotNil(t, replied.RepliedAt)
	_, err = db.ReplyToReview(ctx, "alice", "missing", "alice", "thanks")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForumPostsAndReplies(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	var posts []*model.ForumPost
	for i := 0; i < 12; i++ {
		p := &model.ForumPost{Text: fmt.Sprintf("post %d", i), CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, db.CreateForumPost(ctx, p))
		posts = append(posts, p)
	}
	assert.Equal(t, model.AnonymousName, posts[0].UserName)
	assert.Error(t, db.CreateForumPost(ctx, &model.ForumPost{Text: "  "}))

	newest := posts[len(posts)-1]
	for i := 0; i < 3; i++ {
		require.NoError(t, db.CreateForumReply(ctx, &model.ForumReply{PostID: newest.ID, UserID: "u1",
			UserName: "Nimal", Text: fmt.Sprintf("reply %d", i), CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	assert.ErrorIs(t, db.CreateForumReply(ctx, &model.ForumReply{PostID: "missing", Text: "x"}), ErrNotFound)

	page, err := db.QueryForumPosts(ctx, feed.Query{Filter: "ignored"})
	require.NoError(t, err)
	require.Len(t, page.Records, 10)
	assert.Equal(t, newest.ID, page.Records[0].ID)
	assert.Equal(t, 3, page.Records[0].ReplyCount)

	next, err := db.QueryForumPosts(ctx, feed.Query{After: page.Cursor})
	require.NoError(t, err)
	assert.Len(t, next.Records, 2)

	replies, err := db.ListForumReplies(ctx, newest.ID)
	require.NoError(t, err)
	require.Len(t, replies, 3)
	assert.Equal(t, "reply 0", replies[0].Text)
	assert.Equal(t, "reply 2", replies[2].Text)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	u := &model.User{ID: "u1", DisplayName: "Nimal", Email: "n@example.lk", CreatedAt: base}
	require.NoError(t, db.SaveUser(ctx, u))
	require.NoError(t, db.UpdateUserPhone(ctx, "u1", "0712345678"))

	u2 := &model.User{ID: "u1", DisplayName: "Nimal P", Email: "n@example.lk"}
	require.NoError(t, db.SaveUser(ctx, u2))
	assert.Equal(t, "0712345678", u2.Phone)
	assert.True(t, u2.CreatedAt.Equal(base))

	var verr *model.ValidationError
	assert.ErrorAs(t, db.UpdateUserPhone(ctx, "u1", "123"), &verr)
	assert.ErrorIs(t, db.UpdateUserPhone(ctx, "nobody", "0712345678"), ErrNotFound)

	seedItems(t, db, 2, "galle", "u1", 0)
	require.NoError(t, db.SaveShop(ctx, testShop("u1", "galle")))
	require.NoError(t, db.DeleteUser(ctx, "u1"))

	_, err := db.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	items, err := db.ListItemsByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = db.GetShop(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteUser(ctx, "u1"), ErrNotFound)
}

func TestDeleteUserWithoutProfile(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedItems(t, db, 2, "kandy", "u2", 0)
	require.NoError(t, db.SaveShop(ctx, testShop("u2", "kandy")))
	seedItems(t, db, 1, "kandy", "u3", 10)

	require.NoError(t, db.DeleteUser(ctx, "u2"))
	items, err := db.ListItemsByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = db.GetShop(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)

	others, err := db.ListItemsByOwner(ctx, "u3")
	require.NoError(t, err)
	assert.Len(t, others, 1)
	assert.ErrorIs(t, db.DeleteUser(ctx, "u2"), ErrNotFound)
}
