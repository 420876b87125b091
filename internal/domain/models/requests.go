package models

// Requests for the operator and sentiment HTTP endpoints.

type AddSymbolRequest struct {
	Symbol string `json:"symbol" form:"symbol" validate:"required"`
}

type SymbolPathRequest struct {
	Symbol string `param:"symbol" validate:"required"`
}

type SetActiveRequest struct {
	Symbol string `param:"symbol" validate:"required"`
	Active *bool  `json:"active" validate:"required"`
}

type SearchRequest struct {
	Query string `query:"q" json:"q" validate:"required,min=1,max=32"`
}

type EncodeRequest struct {
	Score      float64 `query:"score" json:"score"`
	Volatility float64 `query:"volatility" json:"volatility"`
	Price      float64 `query:"price" json:"price" default:"100"`
	Reference  float64 `query:"reference" json:"reference" default:"100"`
	Time       float64 `query:"t" json:"t"`
	Index      int     `query:"index" json:"index" validate:"gte=0"`
}

type SentimentRequest struct {
	Symbol string `param:"symbol" validate:"required,max=10"`
	Days   int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=30"`
}

type ArticlesRequest struct {
	Symbol string `param:"symbol" validate:"required,max=10"`
	Days   int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=30"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type BatchSentimentRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=10,dive,required,max=10"`
	Days    int      `json:"days" default:"7" validate:"gte=1,lte=30"`
}

type TrendsRequest struct {
	Symbol string `param:"symbol" validate:"required,max=10"`
	Days   int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=90"`
}

type HistoryRequest struct {
	Symbol string `param:"symbol" validate:"required"`
}
