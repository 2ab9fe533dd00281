package scrape

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/selectors"
)

// Generic fallbacks, tried when the registry had no match for the domain or
// its selectors came up empty. Retail pages overwhelmingly put the title in
// an h1 and the price in an element with "price" somewhere in its class.
var (
	genericNameSelectors = []string{
		"h1",
		`h1[class*="title"]`,
		`h1[class*="name"]`,
	}
	genericPriceSelectors = []string{
		`span[class*="price"]`,
		`div[class*="price"]`,
		`p[class*="price"]`,
	}
)

// StaticHTMLStrategy is tier two: run registry selectors, then generic
// fallbacks, against the statically fetched HTML. The fetch is shared with
// the structured-data tier through the target snapshot.
type StaticHTMLStrategy struct {
	artifacts *ArtifactStore
}

func NewStaticHTMLStrategy(artifacts *ArtifactStore) *StaticHTMLStrategy {
	return &StaticHTMLStrategy{artifacts: artifacts}
}

func (s *StaticHTMLStrategy) Name() string { return "static_html" }

func (s *StaticHTMLStrategy) Attempt(ctx context.Context, target *Target) (*Fields, error) {
	snap, err := target.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(snap.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	fields, ok := MatchSelectors(doc, target.Selectors)
	if !ok {
		s.artifacts.Dump(s.Name(), target.URL, snap.Body)
		return nil, ErrNoMatch
	}
	log.WithFields(log.Fields{"url": target.URL, "name": fields.Name, "price": fields.Price}).
		Info("static selectors matched")
	return fields, nil
}

// MatchSelectors runs name and price selector lists against a parsed
// document: domain-specific rules first (ascending priority), generic
// fallbacks after. Both fields must resolve or the match fails.
func MatchSelectors(doc *goquery.Document, set *selectors.Set) (*Fields, bool) {
	var nameSelectors, priceSelectors []string
	if set != nil {
		nameSelectors = append(nameSelectors, set.Name...)
		priceSelectors = append(priceSelectors, set.Price...)
	}
	nameSelectors = append(nameSelectors, genericNameSelectors...)
	priceSelectors = append(priceSelectors, genericPriceSelectors...)

	name := firstText(doc, nameSelectors)
	rawPrice := firstText(doc, priceSelectors)
	if name == "" || rawPrice == "" {
		return nil, false
	}
	price, ok := NormalizePrice(rawPrice)
	if !ok {
		return nil, false
	}
	return &Fields{Name: name, Price: price}, true
}

func firstText(doc *goquery.Document, sels []string) string {
	for _, sel := range sels {
		text := CleanText(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}
