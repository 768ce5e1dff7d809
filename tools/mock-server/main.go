// Package main implements a mock marketplace and messaging server for local
// development. It serves the Shopee item endpoints the monitor polls from a
// JSON fixture, lets stock be changed at runtime, and records messages sent
// to a fake Telegram bot API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

type fixtureItem struct {
	ShopID string `json:"shop_id"`
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Stock  int64  `json:"stock"`
	Price  int64  `json:"price"` // raw micro-units, canonical * 100000
}

type fixture struct {
	Items []fixtureItem `json:"items"`
}

type sentMessage struct {
	Token     string    `json:"token"`
	ChatID    string    `json:"chat_id"`
	Text      string    `json:"text"`
	ParseMode string    `json:"parse_mode"`
	At        time.Time `json:"at"`
}

// catalog is the mutable in-memory product and message store.
type catalog struct {
	mu       sync.RWMutex
	items    map[string]*fixtureItem
	messages []sentMessage
}

func newCatalog(f *fixture) *catalog {
	c := &catalog{items: make(map[string]*fixtureItem, len(f.Items))}
	for i := range f.Items {
		it := f.Items[i]
		c.items[it.ShopID+"_"+it.ItemID] = &it
	}
	return c
}

func (c *catalog) get(shopID, itemID string) (fixtureItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[shopID+"_"+itemID]
	if !ok {
		return fixtureItem{}, false
	}
	return *it, true
}

func (c *catalog) setStock(shopID, itemID string, stock int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[shopID+"_"+itemID]
	if ok {
		it.Stock = stock
	}
	return ok
}

func (c *catalog) record(m sentMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	return len(c.messages)
}

func (c *catalog) sent() []sentMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]sentMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/items.json", "path to items fixture")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "items", len(f.Items))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, newMux(logger, newCatalog(f))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, c *catalog) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", homeHandler())
	mux.HandleFunc("GET /api/v4/item/get", itemHandler(logger, c, "shopid", "itemid", false))
	mux.HandleFunc("GET /api/v4/pdp/get_pc", itemHandler(logger, c, "shop_id", "item_id", true))
	mux.HandleFunc("GET /product/{shop}/{item}", productPageHandler(c))
	mux.HandleFunc("POST /mock/items/{shop}/{item}/stock", setStockHandler(logger, c))
	mux.HandleFunc("POST /{bot}/sendMessage", sendMessageHandler(logger, c))
	mux.HandleFunc("GET /mock/messages", messagesHandler(c))
	return mux
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

// homeHandler hands out the session cookie the client warms up with.
func homeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "SPC_F", Value: "mock-session", Path: "/"})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		w.Write([]byte("<html><body>mock shopee</body></html>"))
	}
}

func itemHandler(logger *slog.Logger, c *catalog, shopParam, itemParam string, nested bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		it, ok := c.get(q.Get(shopParam), q.Get(itemParam))
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"error": 4, "data": nil})
			return
		}

		item := map[string]any{
			"name":  it.Name,
			"stock": it.Stock,
			"price": it.Price,
		}
		var data any = item
		if nested {
			data = map[string]any{"item": item}
		}
		writeJSON(w, http.StatusOK, map[string]any{"error": nil, "data": data})
		logger.Info("item", "path", r.URL.Path, "key", it.ShopID+"_"+it.ItemID, "stock", it.Stock)
	}
}

var productPage = template.Must(template.New("product").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Name}}</title>
<script type="application/ld+json">{{.LD}}</script>
</head>
<body><h1>{{.Name}}</h1></body>
</html>`))

func productPageHandler(c *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		it, ok := c.get(r.PathValue("shop"), r.PathValue("item"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		availability := "https://schema.org/OutOfStock"
		if it.Stock > 0 {
			availability = "https://schema.org/InStock"
		}
		ld := map[string]any{
			"@context": "https://schema.org",
			"@type":    "Product",
			"name":     it.Name,
			"offers": map[string]any{
				"@type":          "Offer",
				"price":          strconv.FormatFloat(float64(it.Price)/100000, 'f', -1, 64),
				"priceCurrency":  "IDR",
				"availability":   availability,
				"inventoryLevel": map[string]any{"value": it.Stock},
			},
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		productPage.Execute(w, map[string]any{"Name": it.Name, "LD": ld})
	}
}

func setStockHandler(logger *slog.Logger, c *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stock, err := strconv.ParseInt(r.URL.Query().Get("value"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value must be an integer"})
			return
		}
		shop, item := r.PathValue("shop"), r.PathValue("item")
		if !c.setStock(shop, item, stock) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown item"})
			return
		}
		logger.Info("stock changed", "key", shop+"_"+item, "stock", stock)
		writeJSON(w, http.StatusOK, map[string]any{"key": shop + "_" + item, "stock": stock})
	}
}

func sendMessageHandler(logger *slog.Logger, c *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot := r.PathValue("bot")
		if len(bot) <= len("bot") || bot[:3] != "bot" {
			http.NotFound(w, r)
			return
		}

		var body struct {
			ChatID    string `json:"chat_id"`
			Text      string `json:"text"`
			ParseMode string `json:"parse_mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ChatID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"ok":          false,
				"error_code":  400,
				"description": "Bad Request: chat_id is empty",
			})
			return
		}

		id := c.record(sentMessage{
			Token:     bot[3:],
			ChatID:    body.ChatID,
			Text:      body.Text,
			ParseMode: body.ParseMode,
			At:        time.Now().UTC(),
		})
		logger.Info("message received", "chat_id", body.ChatID, "message_id", id)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": id},
		})
	}
}

func messagesHandler(c *catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, c.sent())
	}
}
