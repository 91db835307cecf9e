// Package docsynth renders feature rows into fixed-template summary
// documents. Document position i always corresponds to matrix row i; the
// retriever relies on that positional linkage.
package docsynth

import (
	"fmt"
	"strconv"
	"strings"

	"shoplens/internal/model"
)

// Summarize renders the summary for one feature row.
func Summarize(row model.FeatureRow) string {
	title := strings.TrimSpace(row.Title)
	brand := strings.TrimSpace(row.Brand)
	if brand == "" {
		brand = "Unknown brand"
	}

	ratingPhrase := "no rating available"
	if row.Rating != nil {
		ratingPhrase = fmt.Sprintf("rated %s out of 5 stars", strconv.FormatFloat(*row.Rating, 'g', -1, 64))
	}
	reviewPhrase := "with no review data"
	if row.ReviewCount != nil {
		reviewPhrase = fmt.Sprintf("based on %d customer reviews", *row.ReviewCount)
	}
	pricePhrase := "Price not listed"
	if row.Price != nil {
		pricePhrase = fmt.Sprintf("$%.2f", *row.Price)
	}

	return fmt.Sprintf(
		"Product '%s' (ASIN %s) by %s is listed on Amazon. It is %s %s and priced at %s.",
		title, row.ASIN, brand, ratingPhrase, reviewPhrase, pricePhrase,
	)
}

// SummarizeAll renders one document per row, preserving row order.
func SummarizeAll(rows []model.FeatureRow) []string {
	docs := make([]string, len(rows))
	for i, row := range rows {
		docs[i] = Summarize(row)
	}
	return docs
}
