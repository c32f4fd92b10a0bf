package model

import (
	"regexp"
	"strings"
)

var (
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
	edgeDashes  = regexp.MustCompile(`^-+|-+$`)
	multiDashes = regexp.MustCompile(`-{2,}`)
)

// Slug builds the URL form "<title-words>-<id>" used for item and shop
// pages.
func Slug(title, id string) string {
	s := strings.ToLower(title)
	s = nonAlnum.ReplaceAllString(s, "-")
	s = edgeDashes.ReplaceAllString(s, "")
	s = multiDashes.ReplaceAllString(s, "-")
	return s + "-" + id
}

// IDFromSlug extracts the record key from a slug: everything after the last
// dash, or the whole string if it has none.
func IDFromSlug(slug string) string {
	if i := strings.LastIndex(slug, "-"); i >= 0 {
		return slug[i+1:]
	}
	return slug
}
