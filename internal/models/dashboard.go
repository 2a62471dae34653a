package models

// InsiderMetric selects the y-axis of the insider activity chart.
type InsiderMetric string

const (
	InsiderMetricCount  InsiderMetric = "count"
	InsiderMetricShares InsiderMetric = "shares"
)

// Column returns the insider transaction column plotted for the metric.
func (m InsiderMetric) Column() string {
	if m == InsiderMetricShares {
		return ColQuantity
	}
	return ColCount
}

// Label is the axis label for the metric.
func (m InsiderMetric) Label() string {
	if m == InsiderMetricShares {
		return "Number of Shares"
	}
	return "Number of Transactions"
}

// Transaction types with fixed chart colours.
const (
	TransactionSell     = "Sell"
	TransactionPurchase = "Purchase"
)

// TransactionColors maps transaction type to its hex colour.
var TransactionColors = map[string]string{
	TransactionSell:     "#EE7261",
	TransactionPurchase: "#ADF9AC",
}

// RosterLabels are the display headers for the insider roster table.
var RosterLabels = map[string]string{
	ColName:                "Name",
	ColPosition:            "Position",
	ColSharesOwnedDirectly: "Shares Owned",
}

// GeneralTab is the overview tab: quote header plus price history.
type GeneralTab struct {
	Symbol         string         `json:"symbol"`
	Quote          *QuoteSnapshot `json:"quote"`
	MarketCapLabel string         `json:"market_cap_label"`
	Prices         *TickerView    `json:"prices"`
}

// PieView is a titled pie derived from a TickerView.
type PieView struct {
	Title  string            `json:"title"`
	Colors map[string]string `json:"colors"`
	View   *TickerView       `json:"view"`
}

// InsidersTab is the insider activity tab.
type InsidersTab struct {
	Symbol                 string        `json:"symbol"`
	Metric                 InsiderMetric `json:"metric"`
	MetricColumn           string        `json:"metric_column"`
	Transactions           *TickerView   `json:"transactions"`
	Roster                 *TickerView   `json:"roster"`
	RosterLabels           []string      `json:"roster_labels"`
	Pie                    *PieView      `json:"pie"`
	HeldPercentInsidersPct float64       `json:"held_percent_insiders_pct"`
	SharesOutstanding      float64       `json:"shares_outstanding"`
	InsiderValue           float64       `json:"insider_value"`
}

// AnalystsTab is the analyst ratings tab.
type AnalystsTab struct {
	Symbol               string      `json:"symbol"`
	Changes              *TickerView `json:"changes"`
	Recommendations      *TickerView `json:"recommendations"`
	RecommendationsTitle string      `json:"recommendations_title"`
}
