package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// StructuredDataStrategy is the cheapest tier: fetch the page over plain
// HTTP and read the embedded JSON-LD Product descriptor. Highest trust when
// present and well-formed.
type StructuredDataStrategy struct {
	artifacts *ArtifactStore
}

func NewStructuredDataStrategy(artifacts *ArtifactStore) *StructuredDataStrategy {
	return &StructuredDataStrategy{artifacts: artifacts}
}

func (s *StructuredDataStrategy) Name() string { return "structured_data" }

func (s *StructuredDataStrategy) Attempt(ctx context.Context, target *Target) (*Fields, error) {
	snap, err := target.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if name, rawPrice, ok := ExtractProductJSONLD(doc); ok {
		if price, ok := NormalizePrice(rawPrice); ok && name != "" {
			log.WithFields(log.Fields{"url": target.URL, "name": name, "price": price}).
				Info("structured data matched")
			return &Fields{Name: CleanText(name), Price: price}, nil
		}
	}
	// No descriptor and unusable descriptor both dump the page for triage.
	s.artifacts.Dump(s.Name(), target.URL, snap.Body)
	return nil, ErrNoMatch
}

// ExtractProductJSONLD scans ld+json script blocks for a Product descriptor
// and returns its name and raw price string.
func ExtractProductJSONLD(doc *goquery.Document) (name, rawPrice string, ok bool) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true
		}
		if n, p, found := productFromLD(data); found {
			name, rawPrice, ok = n, p, true
			return false
		}
		return true
	})
	return name, rawPrice, ok
}

// productFromLD walks a decoded JSON-LD value. Sites wrap the Product in
// top-level arrays or @graph containers, and offers may be a single object,
// a list, or an AggregateOffer with lowPrice.
func productFromLD(data any) (string, string, bool) {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if n, p, ok := productFromLD(item); ok {
				return n, p, true
			}
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			if n, p, ok := productFromLD(graph); ok {
				return n, p, true
			}
		}
		if !isProductType(v["@type"]) {
			return "", "", false
		}
		name, _ := v["name"].(string)
		if name == "" {
			return "", "", false
		}
		offers := v["offers"]
		if list, ok := offers.([]any); ok {
			if len(list) == 0 {
				return "", "", false
			}
			offers = list[0]
		}
		offer, ok := offers.(map[string]any)
		if !ok {
			return "", "", false
		}
		price := ldPrice(offer["price"])
		if price == "" {
			price = ldPrice(offer["lowPrice"])
		}
		if price == "" {
			return "", "", false
		}
		return name, price, true
	}
	return "", "", false
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "Product")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func ldPrice(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case float64:
		return fmt.Sprintf("%.2f", p)
	}
	return ""
}
