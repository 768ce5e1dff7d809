package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

const (
	defaultCurrency          = "Rp"
	defaultLowStockThreshold = 5
	timestampLayout          = "2006-01-02 15:04:05"
	priceDecimals            = 2
)

// MessageBuilder renders monitor events into Telegram HTML messages.
type MessageBuilder struct {
	baseURL  string
	currency string
	lowStock int64
	nowFunc  func() time.Time
}

// BuilderOption configures a MessageBuilder.
type BuilderOption func(*MessageBuilder)

// WithCurrency sets the symbol printed before prices.
func WithCurrency(symbol string) BuilderOption {
	return func(b *MessageBuilder) {
		b.currency = symbol
	}
}

// WithLowStockThreshold sets the stock level below which alerts use
// stronger wording.
func WithLowStockThreshold(n int64) BuilderOption {
	return func(b *MessageBuilder) {
		b.lowStock = n
	}
}

// WithBuilderNowFunc overrides the time function for testing.
func WithBuilderNowFunc(fn func() time.Time) BuilderOption {
	return func(b *MessageBuilder) {
		b.nowFunc = fn
	}
}

// NewMessageBuilder creates a builder whose product links point at baseURL.
func NewMessageBuilder(baseURL string, opts ...BuilderOption) *MessageBuilder {
	b := &MessageBuilder{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: defaultCurrency,
		lowStock: defaultLowStockThreshold,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProductURL returns the deep link for item.
func (b *MessageBuilder) ProductURL(item domain.TrackedItem) string {
	return b.baseURL + "/product/" + item.ShopID + "/" + item.ItemID
}

// StockChange renders an availability flip. Priority equals the new
// availability.
func (b *MessageBuilder) StockChange(ev *domain.NotificationEvent) Message {
	snap := ev.Snapshot
	link := b.ProductURL(ev.Item)

	var sb strings.Builder
	title := "SOLD OUT"
	if ev.BecameAvailable() {
		title = "BACK IN STOCK"
		sb.WriteString("✅ <b>BACK IN STOCK!</b>\n\n")
	} else {
		sb.WriteString("❌ <b>SOLD OUT</b>\n\n")
	}

	fmt.Fprintf(&sb, "📦 <b>%s</b>\n", html.EscapeString(snap.Name))
	fmt.Fprintf(&sb, "💰 Price: %s\n", html.EscapeString(b.FormatPrice(snap.Price)))
	fmt.Fprintf(&sb, "📊 Stock: %d unit\n", snap.Stock)
	if ev.BecameAvailable() && snap.Stock > 0 && snap.Stock < b.lowStock {
		fmt.Fprintf(&sb, "⚠️ <b>Only %d left, hurry!</b>\n", snap.Stock)
	}
	fmt.Fprintf(&sb, "🕐 %s UTC\n\n", b.nowFunc().UTC().Format(timestampLayout))

	if ev.BecameAvailable() {
		fmt.Fprintf(&sb, "🔗 <a href=\"%s\">BUY NOW</a>", html.EscapeString(link))
	} else {
		sb.WriteString("⏳ You will be notified when it is back in stock.")
	}

	return Message{
		Title:    title + ": " + snap.Name,
		Text:     sb.String(),
		URL:      link,
		Priority: ev.Current,
	}
}

// Startup announces the monitor and what it watches.
func (b *MessageBuilder) Startup(items []domain.TrackedItem, interval time.Duration) Message {
	var sb strings.Builder
	sb.WriteString("🤖 <b>Stock monitor started</b>\n\n")
	fmt.Fprintf(&sb, "Watching %d item(s) every %s:\n", len(items), interval)
	for _, it := range items {
		fmt.Fprintf(&sb, "• <a href=\"%s\">%s</a>\n",
			html.EscapeString(b.ProductURL(it)), html.EscapeString(it.DisplayName()))
	}
	return Message{Title: "Stock monitor started", Text: strings.TrimRight(sb.String(), "\n")}
}

// Stopped announces a graceful shutdown.
func (b *MessageBuilder) Stopped(reason string) Message {
	text := "🛑 <b>Stock monitor stopped</b>"
	if reason != "" {
		text += "\n\n" + html.EscapeString(reason)
	}
	return Message{Title: "Stock monitor stopped", Text: text}
}

// CycleFailure reports an unexpected failure of a whole cycle.
func (b *MessageBuilder) CycleFailure(err error, retryIn time.Duration) Message {
	text := fmt.Sprintf("⚠️ <b>Monitoring cycle failed</b>\n\n<code>%s</code>\n\nRetrying in %s.",
		html.EscapeString(err.Error()), retryIn)
	return Message{Title: "Monitoring cycle failed", Text: text}
}

// Heartbeat summarizes the most recent cycle and current availability.
func (b *MessageBuilder) Heartbeat(
	items []domain.TrackedItem,
	st domain.AvailabilityState,
	last *domain.CycleReport,
) Message {
	var sb strings.Builder
	sb.WriteString("💓 <b>Stock monitor heartbeat</b>\n\n")
	if last != nil {
		fmt.Fprintf(&sb, "Last cycle: %s UTC, %d checked, %d failed\n\n",
			last.StartedAt.UTC().Format(timestampLayout), last.Checked, last.Failed)
	} else {
		sb.WriteString("No cycle has completed yet.\n\n")
	}
	for _, it := range items {
		status := "❔ unknown"
		if avail, known := st.Lookup(it); known {
			status = "❌ sold out"
			if avail {
				status = "✅ available"
			}
		}
		fmt.Fprintf(&sb, "• %s: %s\n", html.EscapeString(it.DisplayName()), status)
	}
	return Message{Title: "Stock monitor heartbeat", Text: strings.TrimRight(sb.String(), "\n")}
}

// FormatPrice renders a price with thousands separators, e.g. "Rp 150,000".
// A non-zero fraction is kept to two places ("Rp 5.5") so that normalized
// prices below one unit stay visible.
func (b *MessageBuilder) FormatPrice(p decimal.Decimal) string {
	text := p.RoundBank(priceDecimals).String()
	neg := strings.HasPrefix(text, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(text, "-"), ".")

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if frac != "" {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}

	if b.currency == "" {
		return sb.String()
	}
	return b.currency + " " + sb.String()
}
