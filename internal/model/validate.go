package model

import (
	"regexp"
	"strings"
)

// Field limits.
const (
	MaxItemDescription = 200
	MaxShopDescription = 300
	MinRating          = 1
	MaxRating          = 5
)

var (
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidationError reports a record field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ValidateItem checks a new or edited item and normalizes it in place:
// the district is lowercased and missing image alt texts default to the
// title.
func ValidateItem(it *Item) error {
	it.Title = strings.TrimSpace(it.Title)
	it.Description = strings.TrimSpace(it.Description)
	switch {
	case it.Title == "":
		return invalid("title", "Title is required.")
	case it.Description == "":
		return invalid("description", "Description is required.")
	case len([]rune(it.Description)) > MaxItemDescription:
		return invalid("description", "Description must be at most 200 characters.")
	case it.Karat <= 0:
		return invalid("karat", "Karat is required.")
	case it.Weight <= 0:
		return invalid("weight", "Weight is required.")
	case len(it.Images) == 0:
		return invalid("images", "Add at least 1 image.")
	}
	district, err := NormalizeDistrict(it.District)
	if err != nil {
		return err
	}
	it.District = district

	alts := make([]string, len(it.Images))
	for i := range alts {
		if i < len(it.ImageAlts) && strings.TrimSpace(it.ImageAlts[i]) != "" {
			alts[i] = it.ImageAlts[i]
			continue
		}
		alts[i] = it.Title
	}
	it.ImageAlts = alts
	return nil
}

// ValidateBid checks the bidder's input.
func ValidateBid(b *Bid) error {
	b.Description = strings.TrimSpace(b.Description)
	if b.Amount <= 0 || b.Description == "" {
		return invalid("amount", "Enter bid amount and description.")
	}
	return nil
}

// ValidateShop checks the shop wizard input and lowercases the district.
func ValidateShop(s *Shop) error {
	s.ShopName = strings.TrimSpace(s.ShopName)
	s.Description = strings.TrimSpace(s.Description)
	s.Address = strings.TrimSpace(s.Address)
	switch {
	case s.ShopName == "":
		return invalid("shop_name", "Shop name is required.")
	case s.LogoURL == "":
		return invalid("logo_url", "Logo image is required.")
	case s.CoverURL == "":
		return invalid("cover_url", "Cover image is required.")
	case s.Description == "":
		return invalid("description", "Description is required.")
	case len([]rune(s.Description)) > MaxShopDescription:
		return invalid("description", "Description must be at most 300 characters.")
	}
	district, err := NormalizeDistrict(s.District)
	if err != nil {
		return err
	}
	s.District = district
	switch {
	case s.Address == "":
		return invalid("address", "Address is required.")
	case !phonePattern.MatchString(s.ContactPhone):
		return invalid("contact_phone", "Contact phone must be exactly 10 digits.")
	case !emailPattern.MatchString(s.ContactEmail):
		return invalid("contact_email", "Enter a valid email address.")
	case s.Location == nil:
		return invalid("location", "Please select your shop's location on the map.")
	}
	return nil
}

// ValidateReview checks a rating and trims the comment.
func ValidateReview(r *Review) error {
	r.Comment = strings.TrimSpace(r.Comment)
	if r.Rating < MinRating || r.Rating > MaxRating {
		return invalid("rating", "Rating must be between 1 and 5.")
	}
	return nil
}

// ValidatePhone accepts exactly ten digits.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return invalid("phone", "Phone number must be exactly 10 digits.")
	}
	return nil
}

// ValidateText rejects blank forum posts and replies.
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("text", "Message cannot be empty.")
	}
	return text, nil
}
