package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"shoplens/internal/model"
)

// ErrSnapshotMissing means local-HTML mode was requested but a snapshot
// file is absent.
var ErrSnapshotMissing = errors.New("html snapshot not found")

const (
	searchSnapshotFile  = "search_page.html"
	productSnapshotFile = "product_pages.html"
)

// Options controls where pages come from. With UseLocalHTML set, pages
// are read from SnapshotDir instead of the network (offline runs).
type Options struct {
	BaseURL      string
	UseLocalHTML bool
	SnapshotDir  string
}

// Scraper turns a search keyword into raw product records.
type Scraper struct {
	fetcher *Fetcher
	logger  *zap.Logger
	opts    Options
}

func NewScraper(fetcher *Fetcher, logger *zap.Logger, opts Options) *Scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.amazon.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{fetcher: fetcher, logger: logger, opts: opts}
}

// Run fetches the search page for keyword, then up to n product detail
// pages. Individual product failures are logged and skipped; a failed
// search fetch aborts the run.
func (s *Scraper) Run(ctx context.Context, keyword string, n int) ([]model.RawProduct, error) {
	if n <= 0 {
		n = 10
	}

	searchHTML, err := s.searchHTML(ctx, keyword)
	if err != nil {
		return nil, err
	}

	previews, err := ParseSearch(searchHTML)
	if err != nil {
		return nil, err
	}
	if len(previews) < n {
		s.logger.Info("fewer products than requested",
			zap.String("keyword", keyword), zap.Int("found", len(previews)), zap.Int("requested", n))
	}
	if len(previews) > n {
		previews = previews[:n]
	}

	var snapshot *goquery.Document
	if s.opts.UseLocalHTML {
		snapshot, err = s.productSnapshot()
		if err != nil {
			return nil, err
		}
	}

	products := make([]model.RawProduct, 0, len(previews))
	for _, preview := range previews {
		productHTML, err := s.productHTML(ctx, snapshot, preview.ASIN)
		if err != nil {
			s.logger.Warn("product page skipped", zap.String("asin", preview.ASIN), zap.Error(err))
			continue
		}

		details, err := ParseProduct(productHTML)
		if err != nil {
			s.logger.Warn("product parse skipped", zap.String("asin", preview.ASIN), zap.Error(err))
			continue
		}

		preview.Brand = details.Brand
		preview.BulletFeatures = details.BulletFeatures
		preview.Dimensions = details.Dimensions
		preview.Weight = details.Weight
		preview.Category = details.Category
		products = append(products, preview)
	}

	return products, nil
}

func (s *Scraper) searchHTML(ctx context.Context, keyword string) (string, error) {
	if s.opts.UseLocalHTML {
		return s.readSnapshot(searchSnapshotFile)
	}
	searchURL := fmt.Sprintf("%s/s?k=%s", s.opts.BaseURL, url.QueryEscape(keyword))
	return s.fetcher.FetchHTML(ctx, searchURL)
}

func (s *Scraper) productHTML(ctx context.Context, snapshot *goquery.Document, asin string) (string, error) {
	if snapshot != nil {
		section := snapshot.Find(fmt.Sprintf(`div[data-asin=%q]`, asin)).First()
		if section.Length() == 0 {
			return "", fmt.Errorf("%w: no section for ASIN %s", ErrSnapshotMissing, asin)
		}
		return goquery.OuterHtml(section)
	}
	return s.fetcher.FetchHTML(ctx, s.opts.BaseURL+"/dp/"+asin)
}

func (s *Scraper) productSnapshot() (*goquery.Document, error) {
	html, err := s.readSnapshot(productSnapshotFile)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse product snapshot failed: %w", err)
	}
	return doc, nil
}

func (s *Scraper) readSnapshot(name string) (string, error) {
	path := filepath.Join(s.opts.SnapshotDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSnapshotMissing, path)
		}
		return "", fmt.Errorf("read snapshot failed: %w", err)
	}
	return string(raw), nil
}

// WriteProducts overwrites path with one JSON record per line.
func WriteProducts(path string, products []model.RawProduct) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create products file failed: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := range products {
		if err := enc.Encode(&products[i]); err != nil {
			return fmt.Errorf("write products line failed: %w", err)
		}
	}
	return nil
}
