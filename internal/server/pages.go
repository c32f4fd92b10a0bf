package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goldlanka/goldmarket/internal/database"
	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
	"github.com/goldlanka/goldmarket/internal/rss"
	"github.com/goldlanka/goldmarket/internal/sitemap"
)

// districtOption is one entry of the district filter bar.
type districtOption struct {
	Key      string
	Name     string
	Count    int
	Selected bool
}

func districtOptions(tally feed.Tally, selected string) []districtOption {
	opts := []districtOption{{Key: "", Name: "All districts", Count: tally.Total(), Selected: selected == ""}}
	for i, key := range model.DistrictKeys() {
		opts = append(opts, districtOption{
			Key:      key,
			Name:     model.Districts[i],
			Count:    tally[key],
			Selected: key == selected,
		})
	}
	return opts
}

type listPage[T feed.Record] struct {
	Title     string
	Path      string
	Filter    string
	Districts []districtOption
	Records   []T
	NextURL   string
	Ratings   map[string]model.Rating
	Notice    string
}

func pageLink(path, filter string, cursor feed.Cursor, hasMore bool) string {
	if !hasMore {
		return ""
	}
	v := url.Values{}
	if filter != "" {
		v.Set("district", filter)
	}
	v.Set("cursor", string(cursor))
	return path + "?" + v.Encode()
}

// loadListing fetches one page and the district tally in parallel.
func loadListing[T feed.Record](ctx context.Context, q feed.Query,
	query func(context.Context, feed.Query) (feed.Page[T], error),
	all func(context.Context) ([]T, error)) (feed.Page[T], feed.Tally, error) {
	var page feed.Page[T]
	var tally feed.Tally
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = query(gctx, q)
		return err
	})
	g.Go(func() error {
		records, err := all(gctx)
		if err != nil {
			return err
		}
		tally = feed.CountByFilter(records)
		return nil
	})
	return page, tally, g.Wait()
}

// listingQuery reads the page query for an HTML listing. An unknown
// district is shown as a notice instead of an error page.
func (s *Server) listingQuery(r *http.Request) (feed.Query, string) {
	q, err := s.pageQuery(r, true)
	if err == nil {
		return q, ""
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return feed.Query{Limit: s.opts.PageSize}, verr.Message
	}
	return feed.Query{Limit: s.opts.PageSize}, err.Error()
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	q, notice := s.listingQuery(r)
	page, tally, err := loadListing(r.Context(), q, s.db.QueryItems, s.db.AllItems)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "home.html", listPage[model.Item]{
		Title:     "Gold items for sale",
		Path:      "/",
		Filter:    q.Filter,
		Districts: districtOptions(tally, q.Filter),
		Records:   page.Records,
		NextURL:   pageLink("/", q.Filter, page.Cursor, len(page.Records) == q.Limit),
		Notice:    notice,
	})
}

func (s *Server) handleShopsPage(w http.ResponseWriter, r *http.Request) {
	q, notice := s.listingQuery(r)
	var page feed.Page[model.Shop]
	var tally feed.Tally
	var ratings map[string]model.Rating

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		page, tally, err = loadListing(gctx, q, s.db.QueryShops, s.db.AllShops)
		return err
	})
	g.Go(func() error {
		var err error
		ratings, err = s.db.ShopRatings(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "shops.html", listPage[model.Shop]{
		Title:     "Gold shops",
		Path:      "/shops",
		Filter:    q.Filter,
		Districts: districtOptions(tally, q.Filter),
		Records:   page.Records,
		NextURL:   pageLink("/shops", q.Filter, page.Cursor, len(page.Records) == q.Limit),
		Ratings:   ratings,
		Notice:    notice,
	})
}

func (s *Server) handleForumPage(w http.ResponseWriter, r *http.Request) {
	q, err := s.pageQuery(r, false)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	page, err := s.db.QueryForumPosts(r.Context(), q)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "forum.html", listPage[model.ForumPost]{
		Title:   "Forum",
		Path:    "/forum",
		Records: page.Records,
		NextURL: pageLink("/forum", "", page.Cursor, len(page.Records) == q.Limit),
	})
}

type itemPage struct {
	Title string
	Item  *model.Item
	Bids  []model.Bid
}

func (s *Server) handleItemPage(w http.ResponseWriter, r *http.Request) {
	it, err := s.db.GetItem(r.Context(), itemParam(r, "slug"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	// Canonical URL uses the current title.
	if slug := chi.URLParam(r, "slug"); slug != it.Slug() {
		http.Redirect(w, r, "/item/"+it.Slug(), http.StatusMovedPermanently)
		return
	}
	bids, err := s.db.ListBids(r.Context(), it.ID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.render(w, "item.html", itemPage{Title: it.Title, Item: it, Bids: visibleBids(r, it, bids)})
}

type shopPage struct {
	Title   string
	Shop    *model.Shop
	Reviews []model.Review
	Rating  model.Rating
}

func (s *Server) handleShopPage(w http.ResponseWriter, r *http.Request) {
	var shop *model.Shop
	var reviews []model.Review
	id := itemParam(r, "slug")

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		shop, err = s.db.GetShop(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.db.ListReviews(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		s.pageError(w, r, err)
		return
	}
	if slug := chi.URLParam(r, "slug"); slug != shop.Slug() {
		http.Redirect(w, r, "/shop/"+shop.Slug(), http.StatusMovedPermanently)
		return
	}
	s.render(w, "shop.html", shopPage{Title: shop.ShopName, Shop: shop, Reviews: reviews, Rating: summarize(reviews)})
}

func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var verr *model.ValidationError
	switch {
	case errors.Is(err, database.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found."
	case errors.Is(err, database.ErrCursorMismatch):
		status, msg = http.StatusBadRequest, "That page link is no longer valid."
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.Message
	default:
		s.logger.Error("page failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.renderStatus(w, status, "error.html", map[string]any{"Title": "Error", "Message": msg})
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	var shops []model.Shop
	var items []model.Item
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		shops, err = s.db.AllShops(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.db.AllItems(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := sitemap.Build(s.opts.BaseURL, shops, items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(data)
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	page, err := s.db.QueryItems(r.Context(), feed.Query{Limit: rss.FeedLimit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := rss.Build(s.opts.BaseURL, page.Records, time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": s.db.DatabaseType()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": s.db.DatabaseType()})
}
