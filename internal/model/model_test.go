package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		id    string
		want  string
	}{
		{"Simple", "22K Necklace", "abc123", "22k-necklace-abc123"},
		{"Punctuation", "  Gold -- Ring!! ", "x1", "gold-ring-x1"},
		{"Unicode only", "රන් මාලය", "id9", "-id9"},
		{"Empty", "", "z", "-z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.title, tt.id))
		})
	}
}

func TestIDFromSlugRoundTrip(t *testing.T) {
	id := NewID()
	assert.NotContains(t, id, "-")
	assert.Len(t, id, 32)
	assert.Equal(t, id, IDFromSlug(Slug("Kandy Gold Shop", id)))
	assert.Equal(t, "plain", IDFromSlug("plain"))
}

func TestNormalizeDistrict(t *testing.T) {
	got, err := NormalizeDistrict("  Colombo ")
	require.NoError(t, err)
	assert.Equal(t, "colombo", got)

	got, err = NormalizeDistrict("Nuwara Eliya")
	require.NoError(t, err)
	assert.Equal(t, "nuwara eliya", got)

	_, err = NormalizeDistrict("")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "district", verr.Field)

	_, err = NormalizeDistrict("Colmbo")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "Colombo")
}

func TestSuggestDistrict(t *testing.T) {
	assert.Equal(t, "Kandy", SuggestDistrict("kndy"))
	assert.Equal(t, "Trincomalee", SuggestDistrict("trinco"))
	assert.Equal(t, "", SuggestDistrict("zzzzzzzzzzzz"))
	assert.Equal(t, "", SuggestDistrict(""))
}

func TestDisplayDistrict(t *testing.T) {
	assert.Equal(t, "Nuwara Eliya", DisplayDistrict("nuwara eliya"))
	assert.Equal(t, "unknown", DisplayDistrict("unknown"))
	assert.Len(t, DistrictKeys(), 25)
}

func validItem() Item {
	return Item{
		Title:       "22K Necklace",
		Description: "Handmade chain",
		Karat:       22,
		Weight:      8.5,
		District:    "Galle",
		Images:      []string{"http://x/1.jpg", "http://x/2.jpg"},
	}
}

func TestValidateItem(t *testing.T) {
	it := validItem()
	require.NoError(t, ValidateItem(&it))
	assert.Equal(t, "galle", it.District)
	assert.Equal(t, []string{"22K Necklace", "22K Necklace"}, it.ImageAlts)

	cases := map[string]func(*Item){
		"title":       func(i *Item) { i.Title = " " },
		"description": func(i *Item) { i.Description = strings.Repeat("a", 201) },
		"karat":       func(i *Item) { i.Karat = 0 },
		"weight":      func(i *Item) { i.Weight = -1 },
		"images":      func(i *Item) { i.Images = nil },
		"district":    func(i *Item) { i.District = "atlantis" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			it := validItem()
			mutate(&it)
			var verr *ValidationError
			require.ErrorAs(t, ValidateItem(&it), &verr)
			assert.Equal(t, field, verr.Field)
		})
	}
}

func TestValidateShop(t *testing.T) {
	shop := Shop{
		ShopName:     "Kandy Jewellers",
		Description:  "Since 1950",
		District:     "KANDY",
		Address:      "12 Temple Rd",
		ContactPhone: "0771234567",
		ContactEmail: "shop@example.lk",
		LogoURL:      "http://x/logo.png",
		CoverURL:     "http://x/cover.png",
		Location:     &Location{Lat: 7.29, Lng: 80.63},
	}
	require.NoError(t, ValidateShop(&shop))
	assert.Equal(t, "kandy", shop.District)

	bad := shop
	bad.ContactPhone = "07712"
	var verr *ValidationError
	require.ErrorAs(t, ValidateShop(&bad), &verr)
	assert.Equal(t, "contact_phone", verr.Field)

	bad = shop
	bad.ContactEmail = "nope"
	require.ErrorAs(t, ValidateShop(&bad), &verr)
	assert.Equal(t, "contact_email", verr.Field)

	bad = shop
	bad.Location = nil
	require.ErrorAs(t, ValidateShop(&bad), &verr)
	assert.Equal(t, "location", verr.Field)
}

func TestValidateReviewAndBid(t *testing.T) {
	assert.Error(t, ValidateReview(&Review{Rating: 0}))
	assert.Error(t, ValidateReview(&Review{Rating: 6}))
	assert.NoError(t, ValidateReview(&Review{Rating: 5}))

	assert.Error(t, ValidateBid(&Bid{Amount: 0, Description: "x"}))
	assert.Error(t, ValidateBid(&Bid{Amount: 10, Description: "  "}))
	assert.NoError(t, ValidateBid(&Bid{Amount: 10, Description: "cash"}))

	assert.NoError(t, ValidatePhone("0712345678"))
	assert.Error(t, ValidatePhone("+94712345678"))

	text, err := ValidateText("  hello ")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	_, err = ValidateText("   ")
	assert.Error(t, err)
}
