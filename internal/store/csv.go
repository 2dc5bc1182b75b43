package store

import (
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"catalyst-trader/internal/errors"
	"catalyst-trader/internal/models"
)

type tradeRecord struct {
	ID            string  `csv:"id"`
	Ticker        string  `csv:"ticker"`
	Side          string  `csv:"side"`
	Instrument    string  `csv:"instrument"`
	Quantity      int     `csv:"quantity"`
	ExecutedPrice float64 `csv:"executed_price"`
	ExecutedAt    string  `csv:"executed_at"`
	TotalValue    float64 `csv:"total_value"`
	RealizedPnL   string  `csv:"realized_pnl"`
	RealizedPct   string  `csv:"realized_pct"`
	Strategy      string  `csv:"strategy"`
}

// ExportTradesCSV writes the trade history as CSV. Open trades leave the
// realized columns empty.
func ExportTradesCSV(w io.Writer, trades []models.Trade) error {
	records := make([]tradeRecord, 0, len(trades))
	for _, t := range trades {
		rec := tradeRecord{
			ID:            t.ID,
			Ticker:        t.Ticker,
			Side:          string(t.Side),
			Instrument:    string(t.Instrument),
			Quantity:      t.Quantity,
			ExecutedPrice: t.ExecutedPrice,
			ExecutedAt:    t.ExecutedAt.Format("2006-01-02 15:04:05"),
			TotalValue:    t.TotalValue,
			Strategy:      t.Strategy,
		}
		if t.RealizedPnL != nil {
			rec.RealizedPnL = formatFloat(*t.RealizedPnL)
		}
		if t.RealizedPct != nil {
			rec.RealizedPct = formatFloat(*t.RealizedPct)
		}
		records = append(records, rec)
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return errors.NewStoreError("export", "trades", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
