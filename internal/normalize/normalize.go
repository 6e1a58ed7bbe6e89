// Package normalize is the single chokepoint converting loosely-typed
// per-site listing fields into the strict shared schema. Nothing downstream
// of it ever sees raw per-site field names.
package normalize

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/threadcrawl/threadcrawl/internal/sites"
)

// Listing is the normalized, schema-conformant record for one item.
// Nullable fields are pointers and are always present in output, never
// absent; optional fields carry omitempty.
type Listing struct {
	Site          string    `json:"site" yaml:"site"`
	Title         string    `json:"title" yaml:"title"`
	Price         float64   `json:"price" yaml:"price"`
	Designer      string    `json:"designer" yaml:"designer"`
	Size          string    `json:"size" yaml:"size"`
	SizeCanonical *string   `json:"size_canonical" yaml:"size_canonical"`
	Condition     *string   `json:"condition" yaml:"condition"`
	URL           string    `json:"url" yaml:"url"`
	ImageURL      string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	FetchedAt     time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Error reports a listing that cannot be coerced onto the schema. It drops
// that single listing; the rest of the site's batch is unaffected.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize: field %q: %s", e.Field, e.Reason)
}

// Condition tokens. Unmapped site values leave Condition nil.
const (
	ConditionNew       = "new"
	ConditionLikeNew   = "like_new"
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
)

var conditionTokens = map[string]string{
	"brand new":        ConditionNew,
	"new":              ConditionNew,
	"new with tags":    ConditionNew,
	"new without tags": ConditionLikeNew,
	"like new":         ConditionLikeNew,
	"used - excellent": ConditionExcellent,
	"excellent":        ConditionExcellent,
	"used - good":      ConditionGood,
	"good":             ConditionGood,
	"gently used":      ConditionGood,
	"used - fair":      ConditionFair,
	"fair":             ConditionFair,
	"well worn":        ConditionPoor,
	"poor":             ConditionPoor,
}

// canonicalSizes is the shared garment token set.
var canonicalSizes = map[string]string{
	"XXS":         "XXS",
	"XS":          "XS",
	"S":           "S",
	"SMALL":       "S",
	"M":           "M",
	"MEDIUM":      "M",
	"L":           "L",
	"LARGE":       "L",
	"XL":          "XL",
	"EXTRA LARGE": "XL",
	"XXL":         "XXL",
	"2XL":         "XXL",
	"OS":          "OS",
	"ONE SIZE":    "OS",
}

// sizeTables holds per-site spellings layered over the shared set.
var sizeTables = map[string]map[string]string{
	"grailed": {
		// Grailed feed sizes arrive as "US M", "US 10", "EU 48".
		"US XS": "XS",
		"US S":  "S",
		"US M":  "M",
		"US L":  "L",
		"US XL": "XL",
	},
	"depop": {
		"UK 6":  "XS",
		"UK 8":  "S",
		"UK 10": "M",
		"UK 12": "L",
		"UK 14": "XL",
	},
}

// Normalize maps one raw per-site listing onto the shared schema. It is
// pure: the same input always yields the same Listing or the same error.
func Normalize(site string, raw sites.RawListing, fetchedAt time.Time) (Listing, error) {
	url := strings.TrimSpace(raw["url"])
	if url == "" {
		return Listing{}, &Error{Field: "url", Reason: "missing listing link"}
	}

	price, err := ParsePrice(raw["price"])
	if err != nil {
		return Listing{}, &Error{Field: "price", Reason: err.Error()}
	}

	designer := cleanText(raw["designer"])
	if designer == "" {
		designer = cleanText(raw["brand"])
	}

	size := cleanText(raw["size"])

	l := Listing{
		Site:          site,
		Title:         cleanText(raw["title"]),
		Price:         price,
		Designer:      designer,
		Size:          size,
		SizeCanonical: canonicalSize(site, size),
		Condition:     conditionToken(raw["condition"]),
		URL:           url,
		ImageURL:      strings.TrimSpace(raw["image_url"]),
		FetchedAt:     fetchedAt,
	}
	return l, nil
}

// ParsePrice coerces a display price ("$1,234.50", "£45", "1.234,50 €") to a
// decimal with two-digit precision.
func ParsePrice(s string) (float64, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	token := b.String()
	if token == "" {
		return 0, fmt.Errorf("no numeric value in %q", strings.TrimSpace(s))
	}

	// Decide which separator is the decimal mark. A final comma with at
	// most two digits after it is a decimal comma ("1.234,50"); any other
	// comma is a thousands separator ("1,234.50").
	if lastComma := strings.LastIndex(token, ","); lastComma >= 0 {
		if lastComma > strings.LastIndex(token, ".") && len(token)-lastComma <= 3 {
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		} else {
			token = strings.ReplaceAll(token, ",", "")
		}
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable price %q", strings.TrimSpace(s))
	}
	return math.Round(v*100) / 100, nil
}

// canonicalSize maps a site's size spelling to the canonical token set.
// Unmapped sizes return nil so the raw value still passes through.
func canonicalSize(site, size string) *string {
	if size == "" {
		return nil
	}
	key := strings.ToUpper(strings.TrimSpace(size))
	if table, ok := sizeTables[strings.ToLower(site)]; ok {
		if tok, ok := table[key]; ok {
			return &tok
		}
	}
	if tok, ok := canonicalSizes[key]; ok {
		return &tok
	}
	// Numeric sizes (shoes, waist measurements) are canonical as-is.
	if _, err := strconv.ParseFloat(key, 64); err == nil {
		return &key
	}
	return nil
}

func conditionToken(s string) *string {
	key := strings.ToLower(cleanText(s))
	if key == "" {
		return nil
	}
	if tok, ok := conditionTokens[key]; ok {
		return &tok
	}
	return nil
}

func cleanText(s string) string {
	s = html.UnescapeString(s)
	// Marketplace markup pads text with non-breaking spaces.
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}
