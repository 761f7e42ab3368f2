// Package stars determines a star rating from a rendered widget.
//
// The platforms render ratings three different ways: discrete icons whose
// fill color marks them active, a clipped bar whose width encodes the value,
// or plain numeric text. Extraction runs a prioritized chain of strategies,
// first hit wins, each tagged with a method name and a confidence that
// strictly decreases down the chain.
package stars

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Method identifies which strategy produced a rating.
type Method string

const (
	MethodFillAttribute Method = "fill_attribute"
	MethodStyleColor    Method = "style_color"
	MethodClipGeometry  Method = "clippath_geometry"
	MethodMarkupScan    Method = "markup_scan"
	MethodTextFallback  Method = "text_fallback"
	MethodNone          Method = "none"
)

// Result is the outcome of one extraction attempt. Rating is nil when every
// strategy came up empty.
type Result struct {
	Rating     *float64
	Method     Method
	Confidence float64
}

// Config holds the per-platform constants the structural strategies need.
// The same algorithm serves Coupang Eats and Yogiyo; only the constants
// differ.
type Config struct {
	// ActiveColor is the fill color of a filled icon, any CSS notation.
	ActiveColor string
	// StarWidthPx is the rendered width of one star, for the clipped-bar
	// geometry strategy.
	StarWidthPx float64
	// IconSelector matches the icon children inside a widget. Defaults to
	// "svg" when empty.
	IconSelector string
}

func (c Config) iconSelector() string {
	if c.IconSelector == "" {
		return "svg"
	}
	return c.IconSelector
}

type strategy func(*goquery.Selection, Config) (Result, bool)

// Extract runs the strategy chain over one rating widget. A panic or failed
// parse inside one strategy falls through to the next; only total
// exhaustion returns the nil/none result.
func Extract(widget *goquery.Selection, cfg Config) Result {
	if widget == nil || widget.Length() == 0 {
		return none()
	}

	strategies := []strategy{
		fromFillAttribute,
		fromStyleColor,
		fromClipGeometry,
		fromMarkupScan,
		fromTextFallback,
	}

	for _, s := range strategies {
		if res, ok := tryStrategy(s, widget, cfg); ok {
			return res
		}
	}
	return none()
}

func tryStrategy(s strategy, widget *goquery.Selection, cfg Config) (res Result, ok bool) {
	defer func() {
		if recover() != nil {
			res, ok = Result{}, false
		}
	}()
	return s(widget, cfg)
}

func none() Result {
	return Result{Rating: nil, Method: MethodNone, Confidence: 0}
}

func accepted(rating float64, method Method, confidence float64) (Result, bool) {
	return Result{Rating: &rating, Method: method, Confidence: confidence}, true
}

// fromFillAttribute counts icons whose explicit fill attribute matches the
// active color. Counts outside [1,5] are discarded as parse errors, never
// clamped: a page that renders six "active" icons is lying about something.
func fromFillAttribute(widget *goquery.Selection, cfg Config) (Result, bool) {
	active := normalizeColor(cfg.ActiveColor)
	if active == "" {
		return Result{}, false
	}

	count := 0
	widget.Find(cfg.iconSelector()).Each(func(_ int, icon *goquery.Selection) {
		fill, ok := icon.Attr("fill")
		if !ok {
			// Icon may delegate fill to an inner path; skip it otherwise.
			fill, ok = icon.Find("path").First().Attr("fill")
			if !ok {
				return
			}
		}
		if normalizeColor(fill) == active {
			count++
		}
	})

	if count < 1 || count > 5 {
		return Result{}, false
	}
	return accepted(float64(count), MethodFillAttribute, 0.9)
}

// fromStyleColor is the same count over inline style declarations, for
// widgets that set the fill via style rather than attribute.
func fromStyleColor(widget *goquery.Selection, cfg Config) (Result, bool) {
	active := normalizeColor(cfg.ActiveColor)
	if active == "" {
		return Result{}, false
	}

	count := 0
	widget.Find(cfg.iconSelector()).Each(func(_ int, icon *goquery.Selection) {
		style, ok := icon.Attr("style")
		if !ok {
			return
		}
		if c := styleColor(style); c != "" && normalizeColor(c) == active {
			count++
		}
	})

	if count < 1 || count > 5 {
		return Result{}, false
	}
	return accepted(float64(count), MethodStyleColor, 0.8)
}

// fromClipGeometry reads the clipped fill bar's width and divides by the
// per-star width. This is the primary path for Yogiyo's taste/quantity
// sub-ratings, which render one bar instead of discrete icons. Rounding is
// clamped to [0,5] since bar widths wobble by a pixel or two.
func fromClipGeometry(widget *goquery.Selection, cfg Config) (Result, bool) {
	if cfg.StarWidthPx <= 0 {
		return Result{}, false
	}

	width, ok := clipWidth(widget)
	if !ok {
		return Result{}, false
	}

	rating := math.Round(width / cfg.StarWidthPx)
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return accepted(rating, MethodClipGeometry, 0.75)
}

// fromMarkupScan counts occurrences of the active color token in the
// serialized markup. Lowest-confidence structural method, for widgets whose
// attributes goquery cannot reach (e.g. colors inside a <use> reference).
func fromMarkupScan(widget *goquery.Selection, cfg Config) (Result, bool) {
	token := normalizeColor(cfg.ActiveColor)
	if token == "" {
		return Result{}, false
	}

	html, err := goquery.OuterHtml(widget)
	if err != nil {
		return Result{}, false
	}

	count := strings.Count(normalizeColorText(html), token)
	if count < 1 || count > 5 {
		return Result{}, false
	}
	return accepted(float64(count), MethodMarkupScan, 0.7)
}

var (
	ratingClassPattern = regexp.MustCompile(`rating[-_](\d)`)
	numericPattern     = regexp.MustCompile(`([0-5](?:\.\d)?)`)
)

// fromTextFallback parses a literal numeric rating: a data-rating attribute,
// a rating-N class suffix, or plain text like "4.5". The overall rating on
// some platforms is rendered this way rather than as icons.
func fromTextFallback(widget *goquery.Selection, cfg Config) (Result, bool) {
	if v, ok := widget.Attr("data-rating"); ok {
		if rating, err := parseRating(v); err == nil {
			return accepted(rating, MethodTextFallback, 0.6)
		}
	}

	if class, ok := widget.Attr("class"); ok {
		if m := ratingClassPattern.FindStringSubmatch(class); m != nil {
			if rating, err := parseRating(m[1]); err == nil {
				return accepted(rating, MethodTextFallback, 0.5)
			}
		}
	}

	text := strings.TrimSpace(widget.Text())
	if m := numericPattern.FindStringSubmatch(text); m != nil {
		if rating, err := parseRating(m[1]); err == nil {
			return accepted(rating, MethodTextFallback, 0.5)
		}
	}
	return Result{}, false
}

func parseRating(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 5 {
		return 0, fmt.Errorf("rating %v out of range", v)
	}
	return v, nil
}

var (
	styleColorDecl   = regexp.MustCompile(`(?:fill|color)\s*:\s*([^;]+)`)
	rgbPattern         = regexp.MustCompile(`rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)`)
	widthDeclPattern   = regexp.MustCompile(`width\s*:\s*([\d.]+)px`)
)

// styleColor pulls the fill or color value out of an inline style string.
func styleColor(style string) string {
	if m := styleColorDecl.FindStringSubmatch(style); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// clipWidth finds the clipped bar's pixel width: either a width declaration
// on an element carrying a clip-path style, or a width attribute on a rect
// inside a clipPath.
func clipWidth(widget *goquery.Selection) (float64, bool) {
	found := false
	width := 0.0

	widget.Find("[style*='clip']").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		style, _ := el.Attr("style")
		if m := widthDeclPattern.FindStringSubmatch(style); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				width = v
				found = true
				return false
			}
		}
		return true
	})
	if found {
		return width, true
	}

	widget.Find("rect[width]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		w, _ := el.Attr("width")
		if v, err := strconv.ParseFloat(w, 64); err == nil {
			width = v
			found = true
			return false
		}
		return true
	})
	return width, found
}

// normalizeColor canonicalizes a CSS color for exact comparison: lowercase
// hex, #abc expanded to #aabbcc, rgb() converted to hex.
func normalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" || c == "none" {
		return ""
	}

	if m := rgbPattern.FindStringSubmatch(c); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}

	if strings.HasPrefix(c, "#") && len(c) == 4 {
		return "#" + strings.Repeat(string(c[1]), 2) + strings.Repeat(string(c[2]), 2) + strings.Repeat(string(c[3]), 2)
	}
	return c
}

// normalizeColorText lowercases markup so the substring count matches the
// normalized active color regardless of hex casing.
func normalizeColorText(s string) string {
	return strings.ToLower(s)
}
