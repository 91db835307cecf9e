package model

// RawProduct is one line of products.jsonl as emitted by the scraper.
// Numeric-looking fields stay strings here; normalization happens in the
// feature matrix builder.
type RawProduct struct {
	ASIN           string   `json:"asin"`
	Title          string   `json:"title"`
	Price          string   `json:"price"`
	Rating         string   `json:"rating"`
	ReviewCount    string   `json:"review_count"`
	ImageURL       string   `json:"image_url"`
	Brand          string   `json:"brand"`
	BulletFeatures []string `json:"bullet_features"`
	Dimensions     string   `json:"dimensions"`
	Weight         string   `json:"weight"`
	Category       string   `json:"category"`
}

// FeatureRow is one row of the feature matrix CSV. Nil pointers serialize
// as empty cells. A row only exists when rating and review count both
// validated; the remaining fields may still be nil.
type FeatureRow struct {
	ASIN        string   `csv:"asin"`
	Price       *float64 `csv:"price"`
	Title       string   `csv:"title"`
	Rating      *float64 `csv:"rating"`
	ReviewCount *int     `csv:"review_count"`
	Brand       string   `csv:"brand"`
}
