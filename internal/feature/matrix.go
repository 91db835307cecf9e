// Package feature filters raw scraped records and builds the feature
// matrix artifact consumed by the indexer.
package feature

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"shoplens/internal/model"
	"shoplens/internal/normalize"
)

var (
	// ErrInputNotFound means the raw products artifact is missing.
	ErrInputNotFound = errors.New("products artifact not found")
	// ErrMatrixNotFound means the feature matrix artifact is missing.
	ErrMatrixNotFound = errors.New("feature matrix not found")
	// ErrNoValidRecords means filtering left zero rows. It is a reported
	// condition, not a failure: callers must not proceed to indexing.
	ErrNoValidRecords = errors.New("no valid records after filtering")
)

// LoadRaw reads newline-delimited JSON products from path.
func LoadRaw(path string) ([]model.RawProduct, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("open products file failed: %w", err)
	}
	defer f.Close()

	var products []model.RawProduct
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var p model.RawProduct
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode products line %d failed: %w", line, err)
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read products file failed: %w", err)
	}
	return products, nil
}

// Extract normalizes one raw product into a feature row. It returns false
// when rating or review count fail validation; such records are dropped
// entirely rather than kept partially.
func Extract(p model.RawProduct) (model.FeatureRow, bool) {
	if !normalize.IsValidNumeric(p.Rating, "rating") ||
		!normalize.IsValidNumeric(p.ReviewCount, "review_count") {
		return model.FeatureRow{}, false
	}

	row := model.FeatureRow{
		ASIN:        p.ASIN,
		Price:       normalize.Price(p.Price),
		Title:       p.Title,
		ReviewCount: normalize.ReviewCount(p.ReviewCount),
		Brand:       p.Brand,
	}
	if v, err := strconv.ParseFloat(p.Rating, 64); err == nil {
		row.Rating = &v
	}
	return row, true
}

// Filter produces the maximal order-preserving subsequence of valid rows.
func Filter(products []model.RawProduct) []model.FeatureRow {
	rows := make([]model.FeatureRow, 0, len(products))
	for _, p := range products {
		if row, ok := Extract(p); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteMatrix overwrites the feature matrix CSV at path with the given
// rows. The prior file content is fully replaced, never appended.
func WriteMatrix(path string, rows []model.FeatureRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create feature matrix failed: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("write feature matrix failed: %w", err)
	}
	return nil
}

// ReadMatrix loads the feature matrix CSV from path.
func ReadMatrix(path string) ([]model.FeatureRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMatrixNotFound, path)
		}
		return nil, fmt.Errorf("open feature matrix failed: %w", err)
	}
	defer f.Close()

	var rows []model.FeatureRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse feature matrix failed: %w", err)
	}
	return rows, nil
}
