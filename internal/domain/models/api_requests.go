package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type VerdictRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type SegmentsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

type ReplayRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	N      int    `query:"n" json:"n" default:"2000" validate:"gte=1,lte=100000"`
}
