package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

// Window selects how far back the historical sheet reaches.
type Window string

const (
	WindowNone  Window = ""
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowMonth Window = "month"
)

// ParseWindow maps the period query parameter onto a window. Unknown
// values fall back to the full history, matching the lenient handling
// of the download endpoint.
func ParseWindow(period string) Window {
	switch period {
	case "hour", "day", "month":
		return Window(period)
	default:
		return WindowNone
	}
}

func (w Window) duration() time.Duration {
	switch w {
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

func (w Window) label() string {
	switch w {
	case WindowHour:
		return "hourly"
	case WindowDay:
		return "daily"
	case WindowMonth:
		return "monthly"
	default:
		return "complete"
	}
}

func (w Window) sheetName() string {
	switch w {
	case WindowHour:
		return "Last Hour Data"
	case WindowDay:
		return "Last 24 Hours Data"
	case WindowMonth:
		return "Last 30 Days Data"
	default:
		return "Historical Data"
	}
}

// HistorySource provides the persisted rolling history.
type HistorySource interface {
	ReadAll() []market.HistoryPoint
}

// Builder projects the rolling history plus a current snapshot into a
// multi-sheet workbook. Artifacts are timestamp-suffixed and never
// overwritten; ownership of the file passes to the caller.
type Builder struct {
	history HistorySource
	dir     string
	now     func() time.Time
}

// NewBuilder writes workbooks under dir.
func NewBuilder(history HistorySource, dir string) *Builder {
	if dir == "" {
		dir = "excel_exports"
	}
	return &Builder{history: history, dir: dir, now: time.Now}
}

// Build assembles the four-sheet artifact and returns its path.
func (b *Builder) Build(current market.AssetSnapshot, window Window) (string, error) {
	now := b.now()
	points := combine(b.history.ReadAll(), current.HistoryPoint())
	points = filterWindow(points, window, now)

	f := excelize.NewFile()
	defer f.Close()

	histSheet := window.sheetName()
	if err := f.SetSheetName("Sheet1", histSheet); err != nil {
		return "", fmt.Errorf("rename history sheet: %w", err)
	}
	if err := writeHistorySheet(f, histSheet, current.Fiat, points); err != nil {
		return "", fmt.Errorf("write %s sheet: %w", histSheet, err)
	}
	if err := writeSummarySheet(f, current); err != nil {
		return "", fmt.Errorf("write summary sheet: %w", err)
	}
	if err := writeOffersSheet(f, "Current Buy Offers", current.Timestamp, current.BuyOffers); err != nil {
		return "", fmt.Errorf("write buy offers sheet: %w", err)
	}
	if err := writeOffersSheet(f, "Current Sell Offers", current.Timestamp, current.SellOffers); err != nil {
		return "", fmt.Errorf("write sell offers sheet: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure export dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s_prices_%s_%s.xlsx",
		current.Asset, current.Fiat, window.label(), now.Format("20060102_150405"))
	path := filepath.Join(b.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

// combine appends current to the history unless a point with the
// exact same timestamp string is already present, then sorts by
// timestamp ascending. Duplicate suppression is exact-match only.
func combine(points []market.HistoryPoint, current market.HistoryPoint) []market.HistoryPoint {
	out := make([]market.HistoryPoint, len(points))
	copy(out, points)

	seen := false
	for _, p := range out {
		if p.Timestamp == current.Timestamp {
			seen = true
			break
		}
	}
	if !seen {
		out = append(out, current)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// filterWindow keeps points at or after now minus the window. Points
// whose timestamp fails to parse are retained rather than dropped.
func filterWindow(points []market.HistoryPoint, window Window, now time.Time) []market.HistoryPoint {
	d := window.duration()
	if d == 0 {
		return points
	}
	cutoff := now.Add(-d)
	out := make([]market.HistoryPoint, 0, len(points))
	for _, p := range points {
		ts, err := time.ParseInLocation(market.TimeLayout, p.Timestamp, time.Local)
		if err != nil || !ts.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// All cells are written as text to sidestep cross-locale numeric
// formatting in spreadsheet viewers.
func writeHistorySheet(f *excelize.File, sheet, fiat string, points []market.HistoryPoint) error {
	header := []any{
		"Timestamp",
		fmt.Sprintf("Buy Price (%s)", fiat),
		fmt.Sprintf("Sell Price (%s)", fiat),
		fmt.Sprintf("Spread (%s)", fiat),
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, p := range points {
		row := []any{
			p.Timestamp,
			formatPrice(p.BuyPrice),
			formatPrice(p.SellPrice),
			formatPrice(p.Spread),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, current market.AssetSnapshot) error {
	const sheet = "Current Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{
		"Timestamp",
		fmt.Sprintf("Average Buy Price (%s)", current.Fiat),
		fmt.Sprintf("Average Sell Price (%s)", current.Fiat),
		fmt.Sprintf("Spread (%s)", current.Fiat),
		"Buy Offers Count",
		"Sell Offers Count",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	row := []any{
		current.Timestamp,
		formatPrice(current.BuyPrice),
		formatPrice(current.SellPrice),
		formatPrice(current.Spread),
		strconv.Itoa(current.BuyOffersCount),
		strconv.Itoa(current.SellOffersCount),
	}
	return f.SetSheetRow(sheet, "A2", &row)
}

func writeOffersSheet(f *excelize.File, sheet, timestamp string, offers []market.Listing) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{
		"Timestamp", "Advertiser", "Price", "Available Quantity",
		"Min Order", "Max Order", "Payment Methods", "Is Merchant",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, offer := range offers {
		merchant := "No"
		if offer.Merchant {
			merchant = "Yes"
		}
		row := []any{
			timestamp,
			offer.Advertiser,
			offer.Price.String(),
			offer.TradableQuantity.String(),
			offer.MinOrder,
			offer.MaxOrder,
			strings.Join(offer.PaymentMethods, ", "),
			merchant,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
