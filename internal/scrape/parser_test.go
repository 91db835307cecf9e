package scrape

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchCard(asin, title, price, rating, reviews string, sponsored bool) string {
	sponsoredSpan := ""
	if sponsored {
		sponsoredSpan = `<span class="puis-sponsored-label-text">Sponsored</span>`
	}
	return fmt.Sprintf(`
<div class="s-result-item" data-component-type="s-search-result">
  <div class="s-product-image-container">
    %s
    <a class="a-link-normal s-no-outline" href="/dp/%s/ref=sr_1"><img class="s-image" src="https://img/%s.jpg"></a>
  </div>
  <div data-cy="title-recipe"><a><h2><span>%s</span></h2></a></div>
  <span class="a-price"><span class="a-offscreen">%s</span></span>
  <span class="a-icon-alt">%s out of 5 stars</span>
  <a class="s-link-style"><span class="a-size-mini">(%s)</span></a>
</div>`, sponsoredSpan, asin, asin, title, price, rating, reviews)
}

func TestParseSearch(t *testing.T) {
	html := "<html><body>" +
		searchCard("B000X", "Widget Deluxe", "$84,676.80", "4.5", "2,300", false) +
		searchCard("B000S", "Sponsored Junk", "$1.00", "5.0", "1", true) +
		searchCard("B001Y", "Gizmo", "$19.99", "3.9", "2.3K", false) +
		"</body></html>"

	products, err := ParseSearch(html)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "B000X", products[0].ASIN)
	assert.Equal(t, "Widget Deluxe", products[0].Title)
	assert.Equal(t, "$84,676.80", products[0].Price)
	assert.Equal(t, "4.5", products[0].Rating)
	assert.Equal(t, "2300", products[0].ReviewCount)
	assert.Equal(t, "https://img/B000X.jpg", products[0].ImageURL)

	assert.Equal(t, "B001Y", products[1].ASIN)
	assert.Equal(t, "2.3K", products[1].ReviewCount)
}

func TestParseSearchSkipsCardsWithoutASIN(t *testing.T) {
	html := `<html><body>
<div class="s-result-item" data-component-type="s-search-result">
  <div class="s-product-image-container">
    <a class="a-link-normal s-no-outline" href="/gp/something-else"></a>
  </div>
  <h2>No ASIN Here</h2>
</div>
</body></html>`

	products, err := ParseSearch(html)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestParseSearchOldLayoutTitleFallback(t *testing.T) {
	html := `<html><body>
<div class="s-result-item" data-component-type="s-search-result">
  <div class="s-product-image-container">
    <a class="a-link-normal s-no-outline" href="/dp/B002Z/"></a>
  </div>
  <h2 class="a-size-base-plus">Legacy Layout Title</h2>
</div>
</body></html>`

	products, err := ParseSearch(html)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Legacy Layout Title", products[0].Title)
}

func TestParseSearchCapsResults(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 15; i++ {
		sb.WriteString(searchCard(fmt.Sprintf("B%04d", i), "Item", "$1", "4.0", "10", false))
	}
	sb.WriteString("</body></html>")

	products, err := ParseSearch(sb.String())
	require.NoError(t, err)
	assert.Len(t, products, searchResultCap)
}

func TestParseProduct(t *testing.T) {
	html := `<html><body>
<a id="bylineInfo">Visit the Acme Store</a>
<div id="feature-bullets"><ul>
  <li><span>Durable build</span></li>
  <li><span>  </span></li>
  <li><span>Two-year warranty</span></li>
</ul></div>
<table id="productDetails_techSpec_section_1">
  <tr><th>Product Dimensions</th><td>10 x 4 x 3 inches</td></tr>
  <tr><th>Item Weight</th><td>2.5 pounds</td></tr>
</table>
<div id="wayfinding-breadcrumbs_feature_div"><ul>
  <li><span class="a-list-item">Tools</span></li>
  <li><span class="a-list-item">Widgets</span></li>
</ul></div>
</body></html>`

	details, err := ParseProduct(html)
	require.NoError(t, err)
	assert.Equal(t, "Acme", details.Brand)
	assert.Equal(t, []string{"Durable build", "Two-year warranty"}, details.BulletFeatures)
	assert.Equal(t, "10 x 4 x 3 inches", details.Dimensions)
	assert.Equal(t, "2.5 pounds", details.Weight)
	assert.Equal(t, "Tools > Widgets", details.Category)
}

func TestParseProductEmptyPage(t *testing.T) {
	details, err := ParseProduct("<html><body></body></html>")
	require.NoError(t, err)
	assert.Empty(t, details.Brand)
	assert.Empty(t, details.Weight)
}
