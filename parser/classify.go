package parser

import (
	"strings"

	"github.com/aluiziolira/sitemap-explorer/models"
)

// Classify maps a sitemap location to a content category. Rules are checked
// in order and the first substring hit wins.
func Classify(location string) models.Category {
	lower := strings.ToLower(location)
	switch {
	case strings.Contains(lower, "product"):
		return models.CategoryProducts
	case strings.Contains(lower, "collection"):
		return models.CategoryCollections
	case strings.Contains(lower, "blog"), strings.Contains(lower, "article"):
		return models.CategoryBlogs
	case strings.Contains(lower, "page"):
		return models.CategoryPages
	default:
		return models.CategoryOther
	}
}
