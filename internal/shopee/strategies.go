package shopee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// Strategy names accepted by NewStrategies.
const (
	StrategyStandard = "standard"
	StrategyPC       = "pc"
	StrategyMobile   = "mobile"
	StrategyHTML     = "html"
)

// DefaultStrategyOrder is the priority order used when none is configured.
var DefaultStrategyOrder = []string{StrategyStandard, StrategyPC, StrategyMobile, StrategyHTML}

// NewStrategies builds the named strategies in order, all sharing c.
func NewStrategies(c *Client, names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = DefaultStrategyOrder
	}
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case StrategyStandard:
			out = append(out, newStandardStrategy(c))
		case StrategyPC:
			out = append(out, newPCStrategy(c))
		case StrategyMobile:
			out = append(out, newMobileStrategy(c))
		case StrategyHTML:
			out = append(out, newHTMLStrategy(c))
		default:
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
	}
	return out, nil
}

// apiStrategy queries one JSON item endpoint. Endpoints differ in path,
// query parameter names, request headers and where the item object sits
// in the envelope.
type apiStrategy struct {
	name    string
	client  *Client
	path    string
	query   func(domain.TrackedItem) url.Values
	header  func() http.Header
	extract func([]byte) (*rawItem, error)
}

func (s *apiStrategy) Name() string { return s.name }

func (s *apiStrategy) Attempt(
	ctx context.Context,
	item domain.TrackedItem,
) (*domain.Snapshot, error) {
	body, err := s.client.get(ctx, s.path, s.query(item), s.header())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMiss, err)
	}

	raw, err := s.extract(body)
	if err != nil {
		return nil, err
	}

	snap := raw.snapshot()
	return &snap, nil
}

func shopItemQuery(shopKey, itemKey string) func(domain.TrackedItem) url.Values {
	return func(item domain.TrackedItem) url.Values {
		q := url.Values{}
		q.Set(shopKey, item.ShopID)
		q.Set(itemKey, item.ItemID)
		return q
	}
}

func newStandardStrategy(c *Client) *apiStrategy {
	return &apiStrategy{
		name:   StrategyStandard,
		client: c,
		path:   "/api/v4/item/get",
		query:  shopItemQuery("shopid", "itemid"),
		header: func() http.Header {
			h := browserHeaders(c.BaseURL(), desktopUserAgent)
			h.Set("Accept", "application/json")
			h.Set("X-Requested-With", "XMLHttpRequest")
			return h
		},
		extract: extractData,
	}
}

func newPCStrategy(c *Client) *apiStrategy {
	return &apiStrategy{
		name:   StrategyPC,
		client: c,
		path:   "/api/v4/pdp/get_pc",
		query:  shopItemQuery("shop_id", "item_id"),
		header: func() http.Header {
			h := browserHeaders(c.BaseURL(), desktopUserAgent)
			h.Set("Accept", "application/json")
			h.Set("X-API-SOURCE", "pc")
			return h
		},
		extract: extractDataItem,
	}
}

func newMobileStrategy(c *Client) *apiStrategy {
	return &apiStrategy{
		name:   StrategyMobile,
		client: c,
		path:   "/api/v4/item/get",
		query:  shopItemQuery("shopid", "itemid"),
		header: func() http.Header {
			h := browserHeaders(c.BaseURL(), mobileUserAgent)
			h.Set("Accept", "application/json")
			h.Set("X-API-SOURCE", "rn")
			return h
		},
		extract: extractData,
	}
}

// extractData reads {"data": {...item...}}.
func extractData(body []byte) (*rawItem, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %w", ErrMiss, err)
	}
	return decodeItem(env.Data, "data")
}

// extractDataItem reads {"data": {"item": {...}}}.
func extractDataItem(body []byte) (*rawItem, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %w", ErrMiss, err)
	}
	if isNull(env.Data) {
		return nil, fmt.Errorf("%w: missing field data", ErrMiss)
	}
	var data struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: field data is not an object", ErrMiss)
	}
	return decodeItem(data.Item, "data.item")
}

func decodeItem(raw json.RawMessage, field string) (*rawItem, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("%w: missing field %s", ErrMiss, field)
	}
	var item rawItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: field %s is not an object", ErrMiss, field)
	}
	return &item, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
