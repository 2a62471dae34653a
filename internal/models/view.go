package models

// ViewKind selects the transformation applied by the view resolver.
type ViewKind string

const (
	ViewPricesBySymbol         ViewKind = "prices_by_symbol"
	ViewInsiderTxBySymbol      ViewKind = "insider_tx_by_symbol"
	ViewInsiderTxPieBySymbol   ViewKind = "insider_tx_pie_by_symbol"
	ViewInsiderRosterBySymbol  ViewKind = "insider_roster_by_symbol"
	ViewAnalystChangesBySymbol ViewKind = "analyst_changes_by_symbol"
	ViewAnalystRecBySymbol     ViewKind = "analyst_rec_by_symbol"
)

// viewSources binds each view to the dataset it reads.
var viewSources = map[ViewKind]QueryID{
	ViewPricesBySymbol:         QueryPrices,
	ViewInsiderTxBySymbol:      QueryInsiderTransactions,
	ViewInsiderTxPieBySymbol:   QueryInsiderTransactions,
	ViewInsiderRosterBySymbol:  QueryInsiderRoster,
	ViewAnalystChangesBySymbol: QueryAnalystChanges,
	ViewAnalystRecBySymbol:     QueryAnalystRecommendations,
}

// Source returns the query a view is derived from.
func (k ViewKind) Source() (QueryID, bool) {
	q, ok := viewSources[k]
	return q, ok
}

// TickerView is a per-symbol derivation of a dataset. Rows are copies.
type TickerView struct {
	Kind    ViewKind `json:"kind"`
	Source  QueryID  `json:"source"`
	Symbol  string   `json:"symbol"`
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Len returns the number of rows.
func (v *TickerView) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Rows)
}
