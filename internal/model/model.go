// Package model defines the marketplace records and their validation rules.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collection names, shared by the store, the API and the feed sources.
const (
	CollectionItems  = "items"
	CollectionShops  = "shops"
	CollectionForum  = "forum"
	CollectionUsers  = "users"
	CollectionBids   = "bids"
	CollectionReview = "reviews"
)

// AnonymousName is shown for forum posts made without an identity.
const AnonymousName = "Anonymous"

// Item is a gold item listed for bidding.
type Item struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Karat       int       `json:"karat"`
	Weight      float64   `json:"weight"` // grams
	District    string    `json:"district"`
	Images      []string  `json:"images"`
	ImageAlts   []string  `json:"image_alts"`
	HighestBid  float64   `json:"highest_bid"`
	BidsCount   int       `json:"bids_count"`
	Sold        bool      `json:"sold"`
	CreatedAt   time.Time `json:"created_at"`
}

func (it Item) RecordID() string    { return it.ID }
func (it Item) FilterValue() string { return it.District }
func (it Item) Created() time.Time  { return it.CreatedAt }
func (it Item) Slug() string        { return Slug(it.Title, it.ID) }
func (it Item) CoverImage() string {
	if len(it.Images) == 0 {
		return ""
	}
	return it.Images[0]
}

// Bid is an offer on an item. Bids are listed highest amount first.
type Bid struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Contact     string    `json:"contact"`
	Phone       string    `json:"phone,omitempty"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Location is a map position.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Shop is a directory entry. Each user owns at most one shop, keyed by the
// owner's user ID.
type Shop struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	OwnerName    string    `json:"owner_name"`
	ShopName     string    `json:"shop_name"`
	Description  string    `json:"description"`
	District     string    `json:"district"`
	Address      string    `json:"address"`
	ContactPhone string    `json:"contact_phone"`
	ContactEmail string    `json:"contact_email"`
	Facebook     string    `json:"facebook,omitempty"`
	WhatsApp     string    `json:"whatsapp,omitempty"`
	LogoURL      string    `json:"logo_url"`
	CoverURL     string    `json:"cover_url"`
	Location     *Location `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s Shop) RecordID() string    { return s.ID }
func (s Shop) FilterValue() string { return s.District }
func (s Shop) Created() time.Time  { return s.CreatedAt }
func (s Shop) Slug() string        { return Slug(s.ShopName, s.ID) }

// Review is a user's rating of a shop, optionally answered by the owner.
type Review struct {
	ID        string     `json:"id"`
	ShopID    string     `json:"shop_id"`
	UserID    string     `json:"user_id"`
	UserName  string     `json:"user_name"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	Reply     string     `json:"reply,omitempty"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Rating summarises the reviews of one shop.
type Rating struct {
	Average float64 `json:"avg"`
	Count   int     `json:"count"`
}

// ForumPost is a top-level forum message.
type ForumPost struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	UserID     string    `json:"user_id,omitempty"`
	UserName   string    `json:"user_name"`
	ReplyCount int       `json:"reply_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (p ForumPost) RecordID() string { return p.ID }

// FilterValue is always empty: the forum is never filtered.
func (p ForumPost) FilterValue() string { return "" }
func (p ForumPost) Created() time.Time  { return p.CreatedAt }

// ForumReply answers a forum post. Replies read oldest first.
type ForumReply struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Text      string    `json:"text"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the profile stored for an identity.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewID returns a fresh record key. Keys never contain dashes so they can
// be recovered from the tail of a slug.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
