// Package rss publishes the newest listings as an RSS feed and watches such
// a feed for new listings.
package rss

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/goldlanka/goldmarket/internal/model"
)

// FeedLimit is the number of listings published in the feed.
const FeedLimit = 30

// Build renders items, newest first, as an RSS 2.0 document.
func Build(baseURL string, items []model.Item, now time.Time) (string, error) {
	base := strings.TrimRight(baseURL, "/")
	feed := &feeds.Feed{
		Title:       "Gold Market: new listings",
		Link:        &feeds.Link{Href: base + "/"},
		Description: "Gold items listed for bidding across Sri Lanka",
		Created:     now,
	}
	if len(items) > FeedLimit {
		items = items[:FeedLimit]
	}
	for _, it := range items {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          it.ID,
			Title:       it.Title,
			Link:        &feeds.Link{Href: base + "/item/" + it.Slug()},
			Description: summary(it),
			Author:      &feeds.Author{Name: it.OwnerName},
			Created:     it.CreatedAt,
		})
	}
	return feed.ToRss()
}

func summary(it model.Item) string {
	s := fmt.Sprintf("%dK, %.2f g, %s.", it.Karat, it.Weight, model.DisplayDistrict(it.District))
	switch {
	case it.Sold:
		s += " Sold."
	case it.BidsCount > 0:
		s += fmt.Sprintf(" Highest bid Rs. %.0f from %d bids.", it.HighestBid, it.BidsCount)
	}
	if it.Description != "" {
		s += " " + it.Description
	}
	return s
}
