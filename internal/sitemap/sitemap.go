// Package sitemap builds and reads sitemap XML documents.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goldlanka/goldmarket/internal/model"
)

// Namespace is the sitemaps.org schema.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// URLSet represents the root of a sitemap document.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL is one page entry.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// StaticPaths are listed before the shop and item pages.
var StaticPaths = []string{"/", "/shops", "/forum"}

// Parse reads a sitemap document and returns its page locations in order.
func Parse(r io.Reader) ([]string, error) {
	var doc URLSet
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode sitemap: %w", err)
	}
	locs := make([]string, 0, len(doc.URLs))
	for _, u := range doc.URLs {
		locs = append(locs, u.Loc)
	}
	return locs, nil
}

// Build generates a sitemap with the static pages and one entry per shop
// and item slug.
func Build(baseURL string, shops []model.Shop, items []model.Item) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")
	doc := URLSet{Xmlns: Namespace}

	for _, p := range StaticPaths {
		doc.URLs = append(doc.URLs, URL{Loc: base + p, ChangeFreq: "daily", Priority: "0.8"})
	}
	for _, s := range shops {
		doc.URLs = append(doc.URLs, URL{
			Loc:        base + "/shop/" + s.Slug(),
			LastMod:    lastMod(s.UpdatedAt, s.CreatedAt),
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}
	for _, it := range items {
		doc.URLs = append(doc.URLs, URL{
			Loc:        base + "/item/" + it.Slug(),
			LastMod:    lastMod(time.Time{}, it.CreatedAt),
			ChangeFreq: "daily",
			Priority:   "0.6",
		})
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}

func lastMod(updated, created time.Time) string {
	t := updated
	if t.IsZero() {
		t = created
	}
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
