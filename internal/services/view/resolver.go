// Package view derives per-symbol views from cached datasets
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/tickerboard/internal/common"
	"github.com/bobmcallan/tickerboard/internal/models"
)

// ColDisplayRank is added to analyst recommendation views to carry the
// fixed display position.
const ColDisplayRank = "display_rank"

// recDisplayRanks is assigned positionally after sorting periods descending.
var recDisplayRanks = []int{1, 4, 3, 2}

type viewSpec struct {
	symbolCol string
	requires  []string
}

var viewSpecs = map[models.ViewKind]viewSpec{
	models.ViewPricesBySymbol: {
		symbolCol: models.ColPriceTicker,
		requires:  []string{models.ColPriceTicker, models.ColPriceDate},
	},
	models.ViewInsiderTxBySymbol: {
		symbolCol: models.ColSymbol,
		requires:  []string{models.ColSymbol},
	},
	models.ViewInsiderTxPieBySymbol: {
		symbolCol: models.ColSymbol,
		requires:  []string{models.ColSymbol, models.ColTransactionType, models.ColCount},
	},
	models.ViewInsiderRosterBySymbol: {
		symbolCol: models.ColSymbol,
		requires:  []string{models.ColSymbol, models.ColName, models.ColPosition, models.ColSharesOwnedDirectly},
	},
	models.ViewAnalystChangesBySymbol: {
		symbolCol: models.ColSymbol,
		requires:  []string{models.ColSymbol, models.ColDate, models.ColFirm, models.ColFromGrade, models.ColToGrade, models.ColAction},
	},
	models.ViewAnalystRecBySymbol: {
		symbolCol: models.ColSymbol,
		requires:  []string{models.ColSymbol, models.ColPeriod},
	},
}

var (
	rosterColumns  = []string{models.ColName, models.ColPosition, models.ColSharesOwnedDirectly}
	changesColumns = []string{models.ColDate, models.ColFirm, models.ColFromGrade, models.ColToGrade, models.ColAction}
	pieColumns     = []string{models.ColTransactionType, models.ColCount}
)

// Resolver implements interfaces.ViewResolver. It holds no state.
type Resolver struct{}

// NewResolver creates a view resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// ParseKind validates a view kind name.
func ParseKind(raw string) (models.ViewKind, error) {
	kind := models.ViewKind(strings.TrimSpace(raw))
	if _, ok := viewSpecs[kind]; !ok {
		return "", common.InvalidInput("parse view kind", "unknown view kind %q", raw)
	}
	return kind, nil
}

// Resolve filters ds to symbol and applies the transformation for kind.
// The source dataset is never modified; an absent symbol yields an empty view.
func (r *Resolver) Resolve(ds *models.Dataset, symbol string, kind models.ViewKind) (*models.TickerView, error) {
	sym, err := common.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	spec, ok := viewSpecs[kind]
	if !ok {
		return nil, common.InvalidInput("resolve view", "unknown view kind %q", kind)
	}
	source, _ := kind.Source()
	if ds == nil || ds.Table == nil {
		return nil, common.InvalidInput("resolve view", "no %s dataset supplied for %s", source, kind)
	}
	if ds.Query != source {
		return nil, common.InvalidInput("resolve view", "view %s reads %s, got %s", kind, source, ds.Query)
	}
	if ds.Table.Len() > 0 {
		for _, col := range spec.requires {
			if !ds.Table.HasColumn(col) {
				return nil, common.WarehouseError("resolve view", fmt.Errorf("dataset %s is missing column %q", ds.Query, col))
			}
		}
	}

	rows := filterBySymbol(ds.Table.Rows, spec.symbolCol, sym)
	view := &models.TickerView{
		Kind:    kind,
		Source:  source,
		Symbol:  sym,
		Columns: append([]string(nil), ds.Table.Columns...),
		Rows:    rows,
	}

	switch kind {
	case models.ViewPricesBySymbol:
		sortRows(view.Rows, models.ColPriceDate, false)

	case models.ViewInsiderTxBySymbol:
		// filtered rows feed the activity histogram as-is

	case models.ViewInsiderTxPieBySymbol:
		view.Columns = append([]string(nil), pieColumns...)
		view.Rows = sumByType(rows)

	case models.ViewInsiderRosterBySymbol:
		view.Columns = append([]string(nil), rosterColumns...)
		view.Rows = project(rows, rosterColumns)

	case models.ViewAnalystChangesBySymbol:
		view.Columns = append([]string(nil), changesColumns...)
		view.Rows = project(rows, changesColumns)
		sortRows(view.Rows, models.ColDate, true)

	case models.ViewAnalystRecBySymbol:
		view.Columns = append(view.Columns, ColDisplayRank)
		view.Rows = rankRecommendations(rows)
	}

	return view, nil
}

// filterBySymbol copies every row whose column equals sym exactly.
func filterBySymbol(rows []models.Record, col, sym string) []models.Record {
	out := []models.Record{}
	for _, row := range rows {
		if row.Text(col) == sym {
			out = append(out, row.Clone())
		}
	}
	return out
}

func project(rows []models.Record, cols []string) []models.Record {
	out := make([]models.Record, len(rows))
	for i, row := range rows {
		rec := make(models.Record, len(cols))
		for _, c := range cols {
			rec[c] = row[c]
		}
		out[i] = rec
	}
	return out
}

// sumByType groups by transaction type and sums cnt. Groups come out in
// ascending key order. Sums stay integral when every input was an integer.
func sumByType(rows []models.Record) []models.Record {
	type group struct {
		sum      float64
		integral bool
	}
	groups := make(map[string]*group)
	for _, row := range rows {
		key := row.Text(models.ColTransactionType)
		g, ok := groups[key]
		if !ok {
			g = &group{integral: true}
			groups[key] = g
		}
		v := row[models.ColCount]
		if v == nil {
			continue
		}
		n, ok := row.Number(models.ColCount)
		if !ok {
			continue
		}
		g.sum += n
		if !models.IsInteger(v) {
			g.integral = false
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.Record, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		var total any = g.sum
		if g.integral {
			total = int64(g.sum)
		}
		out = append(out, models.Record{
			models.ColTransactionType: k,
			models.ColCount:           total,
		})
	}
	return out
}

// rankRecommendations sorts periods descending, assigns the fixed display
// ranks positionally, then orders rows by rank. Rows past the fourth keep
// their descending position after the ranked ones.
func rankRecommendations(rows []models.Record) []models.Record {
	sortRows(rows, models.ColPeriod, true)
	for i, row := range rows {
		rank := i + 1
		if i < len(recDisplayRanks) {
			rank = recDisplayRanks[i]
		}
		row[ColDisplayRank] = rank
	}
	sortRows(rows, ColDisplayRank, false)
	return rows
}

// sortRows is a stable sort on col. Missing values go last in either direction.
func sortRows(rows []models.Record, col string, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][col], rows[j][col]
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		}
		c := compareValues(a, b)
		if descending {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders times chronologically, numbers numerically and
// everything else by its string form.
func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(models.ValueText(a), models.ValueText(b))
}

func numeric(v any) (float64, bool) {
	switch v.(type) {
	case string, []byte, nil:
		return 0, false
	}
	return models.ValueFloat(v)
}
