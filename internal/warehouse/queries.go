// Package warehouse binds the six dashboard queries to a warehouse backend.
package warehouse

import (
	"fmt"
	"regexp"

	"github.com/bobmcallan/tickerboard/internal/models"
)

// Query dialects understood by the backends.
const (
	DialectSQL       = "sql"
	DialectSurrealQL = "surrealql"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

type querySpec struct {
	id       models.QueryID
	table    string
	where    map[string]string // dialect -> filter clause
	required []string
}

// Historical start dates are fixed: insider activity from March 2023,
// analyst grade changes from 30 March 2023.
var querySpecs = []querySpec{
	{
		id:       models.QueryPrices,
		table:    "core_prices",
		required: []string{models.ColPriceTicker, models.ColPriceDate, models.ColPrice},
	},
	{
		id:    models.QueryInsiderTransactions,
		table: "optimized_insiders_trans",
		where: map[string]string{
			DialectSQL:       "substr(formatted_date, 4, 4) || substr(formatted_date, 1, 2) >= '202303'",
			DialectSurrealQL: "string::concat((string::split(formatted_date, '-'))[1], (string::split(formatted_date, '-'))[0]) >= '202303'",
		},
		required: []string{models.ColSymbol, models.ColFormattedDate, models.ColTransactionType, models.ColCount, models.ColQuantity},
	},
	{
		id:    models.QueryInsiderPurchases,
		table: "core_ins_pur",
	},
	{
		id:       models.QueryInsiderRoster,
		table:    "core_ins_roster",
		required: []string{models.ColSymbol, models.ColName, models.ColPosition, models.ColSharesOwnedDirectly},
	},
	{
		id:    models.QueryAnalystChanges,
		table: "core_analyst_change",
		where: map[string]string{
			DialectSQL:       "date >= '2023-03-30'",
			DialectSurrealQL: "<string> date >= '2023-03-30'",
		},
		required: []string{models.ColSymbol, models.ColDate, models.ColFirm, models.ColFromGrade, models.ColToGrade, models.ColAction},
	},
	{
		id:       models.QueryAnalystRecommendations,
		table:    "core_analyst_rec",
		required: []string{models.ColSymbol, models.ColPeriod, models.ColStrongBuy, models.ColBuy, models.ColHold, models.ColSell, models.ColStrongSell},
	},
}

// Queries returns the literal query for every dataset in the given dialect,
// with table names qualified by prefix.
func Queries(dialect, prefix string) (map[models.QueryID]models.QueryDef, error) {
	if dialect != DialectSQL && dialect != DialectSurrealQL {
		return nil, fmt.Errorf("unknown query dialect: %s", dialect)
	}
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q: only letters, digits and underscore allowed", prefix)
	}

	defs := make(map[models.QueryID]models.QueryDef, len(querySpecs))
	for _, spec := range querySpecs {
		table := prefix + spec.table
		sql := "SELECT * FROM " + table
		if clause, ok := spec.where[dialect]; ok {
			sql += " WHERE " + clause
		}
		defs[spec.id] = models.QueryDef{
			ID:       spec.id,
			Table:    table,
			SQL:      sql,
			Required: spec.required,
		}
	}
	return defs, nil
}
