package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shoplens/internal/model"
)

// Search pages carry dozens of cards; only the first few organic results
// are worth fetching detail pages for.
const searchResultCap = 10

// ProductDetails holds the fields only available on a product page.
type ProductDetails struct {
	Brand          string
	BulletFeatures []string
	Dimensions     string
	Weight         string
	Category       string
}

// ParseSearch extracts product previews from a search results page.
// Sponsored cards and cards without an ASIN-bearing link are skipped.
func ParseSearch(html string) ([]model.RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search html failed: %w", err)
	}

	var products []model.RawProduct
	doc.Find("div.s-product-image-container").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		card := item.ParentsFiltered("div.s-result-item").First()
		if card.Length() == 0 || card.AttrOr("data-component-type", "") != "s-search-result" {
			return true
		}
		if item.Find(".puis-sponsored-label-text").Length() > 0 || strings.Contains(item.Text(), "Sponsored") {
			return true
		}

		href := item.Find("a.a-link-normal.s-no-outline").First().AttrOr("href", "")
		asin := asinFromHref(href)
		if asin == "" {
			return true
		}

		title := extractTitle(card)
		if title == "" {
			return true
		}

		price := strings.TrimSpace(card.Find("span.a-price span.a-offscreen").First().Text())

		rating := ""
		if alt := strings.TrimSpace(card.Find("span.a-icon-alt").First().Text()); alt != "" {
			rating = strings.SplitN(alt, " out of", 2)[0]
		}

		reviewCount := ""
		if span := card.Find("a.s-link-style span.a-size-mini").First(); span.Length() > 0 {
			reviewCount = cleanReviewCount(span.Text())
		} else if old := card.Find("span.a-size-mini.puis-normal-weight-text").First(); old.Length() > 0 {
			reviewCount = cleanReviewCount(old.Text())
		}

		imageURL := item.Find("img.s-image").First().AttrOr("src", "")

		products = append(products, model.RawProduct{
			ASIN:        asin,
			Title:       title,
			Price:       price,
			Rating:      rating,
			ReviewCount: reviewCount,
			ImageURL:    imageURL,
		})
		return len(products) < searchResultCap
	})

	return products, nil
}

// extractTitle tries the newer title-recipe layout first, then the older
// a-size-base-plus heading, then any h2 inside the card.
func extractTitle(card *goquery.Selection) string {
	if recipe := card.Find(`div[data-cy="title-recipe"]`).First(); recipe.Length() > 0 {
		if h2 := recipe.Find("h2").First(); h2.Length() > 0 {
			if span := h2.Find("span").First(); span.Length() > 0 {
				return strings.TrimSpace(span.Text())
			}
			return strings.TrimSpace(h2.Text())
		}
	}
	if h2 := card.Find("h2.a-size-base-plus").First(); h2.Length() > 0 {
		return strings.TrimSpace(h2.Text())
	}
	if h2 := card.Find("h2").First(); h2.Length() > 0 {
		return strings.TrimSpace(h2.Text())
	}
	return ""
}

func asinFromHref(href string) string {
	_, after, found := strings.Cut(href, "/dp/")
	if !found {
		return ""
	}
	return strings.SplitN(after, "/", 2)[0]
}

func cleanReviewCount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "()")
	return strings.ReplaceAll(s, ",", "")
}

// ParseProduct extracts detail-page fields.
func ParseProduct(html string) (ProductDetails, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ProductDetails{}, fmt.Errorf("parse product html failed: %w", err)
	}

	var details ProductDetails
	if byline := doc.Find("#bylineInfo").First(); byline.Length() > 0 {
		brand := byline.Text()
		brand = strings.ReplaceAll(brand, "Visit the ", "")
		brand = strings.ReplaceAll(brand, " Store", "")
		details.Brand = strings.TrimSpace(brand)
	}

	doc.Find("#feature-bullets ul li span").Each(func(_ int, span *goquery.Selection) {
		if text := strings.TrimSpace(span.Text()); text != "" {
			details.BulletFeatures = append(details.BulletFeatures, text)
		}
	})

	doc.Find("#productDetails_techSpec_section_1 tr").Each(func(_ int, tr *goquery.Selection) {
		header := strings.ToLower(strings.TrimSpace(tr.Find("th").First().Text()))
		value := strings.TrimSpace(tr.Find("td").First().Text())
		if strings.Contains(header, "dimension") {
			details.Dimensions = value
		}
		if strings.Contains(header, "weight") {
			details.Weight = value
		}
	})

	var crumbs []string
	doc.Find("#wayfinding-breadcrumbs_feature_div ul li span.a-list-item").Each(func(_ int, span *goquery.Selection) {
		if text := strings.TrimSpace(span.Text()); text != "" {
			crumbs = append(crumbs, text)
		}
	})
	details.Category = strings.Join(crumbs, " > ")

	return details, nil
}
