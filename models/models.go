package models

import "github.com/shopspring/decimal"

func init() {
	// API clients consume costs and quantities as JSON numbers, not
	// strings.
	decimal.MarshalJSONWithoutQuotes = true
}
