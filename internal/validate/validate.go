package validate

import "fmt"

// Text field length limits, served to the front end via /api/limits.
const (
	MaxTitleLength       = 200
	MaxCategoryLength    = 50
	MaxDifficultyLength  = 20
	MaxDescriptionLength = 2000
	MaxMediaURLLength    = 500
	MaxViewerNameLength  = 100
	MaxCountryLength     = 100
	MaxOccupationLength  = 100
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string       { return checkLen(s, MaxTitleLength, "title") }
func Category(s string) string    { return checkLen(s, MaxCategoryLength, "category") }
func Difficulty(s string) string  { return checkLen(s, MaxDifficultyLength, "difficulty") }
func Description(s string) string { return checkLen(s, MaxDescriptionLength, "description") }
func MediaURL(s string) string    { return checkLen(s, MaxMediaURLLength, "media URL") }
func ViewerName(s string) string  { return checkLen(s, MaxViewerNameLength, "name") }
func Country(s string) string     { return checkLen(s, MaxCountryLength, "country") }
func Occupation(s string) string  { return checkLen(s, MaxOccupationLength, "occupation") }

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"title":       MaxTitleLength,
		"category":    MaxCategoryLength,
		"difficulty":  MaxDifficultyLength,
		"description": MaxDescriptionLength,
		"mediaUrl":    MaxMediaURLLength,
		"viewerName":  MaxViewerNameLength,
		"country":     MaxCountryLength,
		"occupation":  MaxOccupationLength,
	}
}
