package shopee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// htmlStrategy is the last resort: it loads the public product page and
// reads the schema.org Product blob embedded as JSON-LD.
type htmlStrategy struct {
	client *Client
}

func newHTMLStrategy(c *Client) *htmlStrategy {
	return &htmlStrategy{client: c}
}

func (*htmlStrategy) Name() string { return StrategyHTML }

func (s *htmlStrategy) Attempt(
	ctx context.Context,
	item domain.TrackedItem,
) (*domain.Snapshot, error) {
	h := browserHeaders(s.client.BaseURL(), desktopUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml")

	body, err := s.client.get(ctx, "/product/"+item.ShopID+"/"+item.ItemID, nil, h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMiss, err)
	}

	p, err := findProduct(body)
	if err != nil {
		return nil, err
	}

	snap := p.snapshot()
	return &snap, nil
}

type ldProduct struct {
	Type   json.RawMessage `json:"@type"`
	Name   json.RawMessage `json:"name"`
	Offers json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Price          json.RawMessage `json:"price"`
	LowPrice       json.RawMessage `json:"lowPrice"`
	Availability   string          `json:"availability"`
	InventoryLevel *struct {
		Value json.RawMessage `json:"value"`
	} `json:"inventoryLevel"`
}

// snapshot converts the JSON-LD product. Prices are already in currency
// units; stock comes from inventoryLevel when present, otherwise from the
// availability flag.
func (p *ldProduct) snapshot() domain.Snapshot {
	offer := p.firstOffer()

	price, ok := parseDecimal(offer.Price)
	if !ok {
		price, ok = parseDecimal(offer.LowPrice)
	}
	if !ok || !price.IsPositive() {
		price = decimal.Zero
	}

	var stock int64
	switch {
	case offer.InventoryLevel != nil && !isNull(offer.InventoryLevel.Value):
		stock = ParseStock(offer.InventoryLevel.Value)
	case strings.HasSuffix(offer.Availability, "InStock"):
		stock = 1
	}

	return domain.NewSnapshot(parseName(p.Name), stock, price)
}

func (p *ldProduct) firstOffer() ldOffer {
	var offer ldOffer
	raw := bytes.TrimSpace(p.Offers)
	if len(raw) == 0 {
		return offer
	}
	if raw[0] == '[' {
		var offers []ldOffer
		if err := json.Unmarshal(raw, &offers); err == nil && len(offers) > 0 {
			return offers[0]
		}
		return offer
	}
	_ = json.Unmarshal(raw, &offer)
	return offer
}

func (p *ldProduct) isProduct() bool {
	var single string
	if err := json.Unmarshal(p.Type, &single); err == nil {
		return single == "Product"
	}
	var many []string
	if err := json.Unmarshal(p.Type, &many); err == nil {
		for _, t := range many {
			if t == "Product" {
				return true
			}
		}
	}
	return false
}

// findProduct walks the document for JSON-LD scripts and returns the first
// Product object found, either top level or inside an array or @graph.
func findProduct(body []byte) (*ldProduct, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %w", ErrMiss, err)
	}

	for _, blob := range jsonLDScripts(doc) {
		if p := productFromBlob([]byte(blob)); p != nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no JSON-LD Product in page", ErrMiss)
}

func jsonLDScripts(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script && attr(n, "type") == "application/ld+json" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			out = append(out, sb.String())
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func productFromBlob(blob []byte) *ldProduct {
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 {
		return nil
	}

	var candidates []json.RawMessage
	if blob[0] == '[' {
		if err := json.Unmarshal(blob, &candidates); err != nil {
			return nil
		}
	} else {
		var wrapper struct {
			Graph []json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(blob, &wrapper); err != nil {
			return nil
		}
		candidates = append([]json.RawMessage{blob}, wrapper.Graph...)
	}

	for _, c := range candidates {
		var p ldProduct
		if err := json.Unmarshal(c, &p); err != nil {
			continue
		}
		if p.isProduct() {
			return &p
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
