package model

import (
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Districts lists the 25 administrative districts of Sri Lanka in their
// display form.
var Districts = []string{
	"Ampara", "Anuradhapura", "Badulla", "Batticaloa", "Colombo",
	"Galle", "Gampaha", "Hambantota", "Jaffna", "Kalutara",
	"Kandy", "Kegalle", "Kilinochchi", "Kurunegala", "Mannar",
	"Matale", "Matara", "Monaragala", "Mullaitivu", "Nuwara Eliya",
	"Polonnaruwa", "Puttalam", "Ratnapura", "Trincomalee", "Vavuniya",
}

var districtKeys = func() []string {
	keys := make([]string, len(Districts))
	for i, d := range Districts {
		keys[i] = strings.ToLower(d)
	}
	return keys
}()

// DistrictKeys returns the normalized (lowercase) district names.
func DistrictKeys() []string {
	return slices.Clone(districtKeys)
}

// NormalizeFilter lowercases and trims a filter value. The empty string
// means "no filter".
func NormalizeFilter(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizeDistrict returns the stored form of a district name, or a
// ValidationError suggesting the closest known district.
func NormalizeDistrict(v string) (string, error) {
	key := NormalizeFilter(v)
	if key == "" {
		return "", &ValidationError{Field: "district", Message: "Please select a district."}
	}
	if slices.Contains(districtKeys, key) {
		return key, nil
	}
	msg := "Unknown district " + quote(v) + "."
	if s := SuggestDistrict(key); s != "" {
		msg += " Did you mean " + quote(s) + "?"
	}
	return "", &ValidationError{Field: "district", Message: msg}
}

// DisplayDistrict maps a stored district key back to its display name.
func DisplayDistrict(key string) string {
	if i := slices.Index(districtKeys, key); i >= 0 {
		return Districts[i]
	}
	return key
}

// SuggestDistrict returns the display name of the district closest to the
// input, or "" when nothing is reasonably close.
func SuggestDistrict(input string) string {
	input = NormalizeFilter(input)
	if input == "" {
		return ""
	}
	ranks := fuzzy.RankFindNormalizedFold(input, districtKeys)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return Districts[ranks[0].OriginalIndex]
	}

	best, bestDist := -1, len(input)/2+1
	for i, key := range districtKeys {
		if d := fuzzy.LevenshteinDistance(input, key); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return ""
	}
	return Districts[best]
}

func quote(s string) string { return "\"" + s + "\"" }
