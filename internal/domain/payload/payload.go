// Package payload normalizes heterogeneous catalog payloads. Catalogs from
// different retailers disagree on attribute names (a price can live under
// "price" or nested under priceInfo.currentPrice.priceString), so every
// consumer goes through one ordered list of field extractors instead of
// scattering conditional lookups through the pipeline.
package payload

import (
	"fmt"
	"strconv"
	"strings"
)

const walmartBaseURL = "https://www.walmart.com"

// Title resolves the display title, trying catalog-specific keys in
// priority order.
func Title(p map[string]any) string {
	for _, key := range []string{"name", "title", "original_string"} {
		if s := stringAt(p, key); s != "" {
			return s
		}
	}
	return "Unknown Title"
}

// Price resolves the display price. Flat "price" wins; Walmart-style
// nested priceInfo.currentPrice.priceString is the fallback.
func Price(p map[string]any) string {
	if v, ok := p["price"]; ok {
		if s := asString(v); s != "" {
			return s
		}
	}
	if info, ok := p["priceInfo"].(map[string]any); ok {
		if cur, ok := info["currentPrice"].(map[string]any); ok {
			if s := stringAt(cur, "priceString"); s != "" {
				return s
			}
		}
	}
	return "N/A"
}

// URL resolves the product link, prefixing retailer-relative paths with the
// canonical base.
func URL(p map[string]any) string {
	u := stringAt(p, "url")
	if u == "" {
		u = stringAt(p, "canonicalUrl")
	}
	if u == "" {
		u = stringAt(p, "product_link")
	}
	if u == "" {
		return "#"
	}
	if strings.HasPrefix(u, "/") {
		return walmartBaseURL + u
	}
	return u
}

// Retailer resolves the retailer name, defaulting to Walmart as the
// catalog's origin.
func Retailer(p map[string]any) string {
	if s := stringAt(p, "retailer"); s != "" {
		return s
	}
	return "Walmart"
}

// Image resolves the product image link.
func Image(p map[string]any) string {
	for _, key := range []string{"image", "img_link", "imageUrl"} {
		if s := stringAt(p, key); s != "" {
			return s
		}
	}
	return ""
}

// Category resolves the category badge: the last segment of a
// pipe-delimited category path.
func Category(p map[string]any) string {
	s := stringAt(p, "category")
	if s == "" {
		return ""
	}
	if i := strings.LastIndex(s, "|"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Rating resolves the numeric rating, tolerating string-typed values.
func Rating(p map[string]any) float64 {
	v, ok := p["rating"]
	if !ok {
		return 0
	}
	switch r := v.(type) {
	case float64:
		return r
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(r), 64); err == nil {
			return f
		}
	}
	return 0
}

// ProductID resolves the catalog identifier stored inside the payload,
// falling back to the provided document id.
func ProductID(p map[string]any, fallback string) string {
	for _, key := range []string{"product_id", "id"} {
		if s := stringAt(p, key); s != "" {
			return s
		}
	}
	return fallback
}

func stringAt(p map[string]any, key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	return asString(v)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool, int, int64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}
