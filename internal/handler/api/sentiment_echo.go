package api

import (
	"net/http"
	"time"

	"StockHolo/internal/domain/models"
	dsvc "StockHolo/internal/domain/service"
	svcmetrics "StockHolo/internal/service/metrics"
	xhttp "StockHolo/pkg/http"
	xlogger "StockHolo/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SentimentEchoHandler exposes the news sentiment service.
type SentimentEchoHandler struct {
	logger *xlogger.Logger
	svc    dsvc.NewsSentiment
	now    func() time.Time
}

func NewSentimentEchoHandler(logger *xlogger.Logger, svc dsvc.NewsSentiment) *SentimentEchoHandler {
	svcmetrics.Register()
	return &SentimentEchoHandler{logger: logger.With("sentiment_api"), svc: svc, now: time.Now}
}

func (h *SentimentEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/sentiment")
	g.POST("/batch", h.Batch)
	g.GET("/trends/:symbol", h.Trends)
	g.GET("/:symbol", h.Summary)
	g.GET("/:symbol/articles", h.Articles)
}

func (h *SentimentEchoHandler) Summary(c echo.Context) error {
	start := time.Now()
	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	summary, err := h.svc.Summary(c.Request().Context(), req.Symbol, req.Days)
	svcmetrics.ObserveSince("sentiment", start, err)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, summary)
}

type articlesResponse struct {
	Symbol           string           `json:"symbol"`
	AnalysisDate     time.Time        `json:"analysis_date"`
	DaysAnalyzed     int              `json:"days_analyzed"`
	TotalArticles    int              `json:"total_articles"`
	ReturnedArticles int              `json:"returned_articles"`
	Articles         []models.Article `json:"articles"`
}

func (h *SentimentEchoHandler) Articles(c echo.Context) error {
	start := time.Now()
	req := &models.ArticlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	summary, err := h.svc.Summary(ctx, req.Symbol, req.Days)
	if err != nil {
		svcmetrics.ObserveSince("sentiment_articles", start, err)
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	articles, err := h.svc.Articles(ctx, req.Symbol, req.Days, req.Limit)
	svcmetrics.ObserveSince("sentiment_articles", start, err)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	total := summary.ArticlesAnalyzed
	if total < len(articles) {
		total = len(articles)
	}
	return xhttp.SuccessResponse(c, articlesResponse{
		Symbol:           summary.Symbol,
		AnalysisDate:     h.now().UTC(),
		DaysAnalyzed:     req.Days,
		TotalArticles:    total,
		ReturnedArticles: len(articles),
		Articles:         articles,
	})
}

type batchEntry struct {
	*models.NewsSummary
	Error string `json:"error,omitempty"`
}

type batchResponse struct {
	Results      map[string]batchEntry `json:"batch_results"`
	ProcessedAt  time.Time             `json:"processed_at"`
	TotalSymbols int                   `json:"total_symbols"`
}

// Batch summarizes up to ten symbols. A failing symbol is reported inline.
func (h *SentimentEchoHandler) Batch(c echo.Context) error {
	start := time.Now()
	req := &models.BatchSentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	out := batchResponse{Results: make(map[string]batchEntry, len(req.Symbols))}
	for _, raw := range req.Symbols {
		sym := models.NormalizeSymbol(raw)
		summary, err := h.svc.Summary(ctx, sym, req.Days)
		if err != nil {
			out.Results[sym] = batchEntry{Error: err.Error()}
			continue
		}
		out.Results[sym] = batchEntry{NewsSummary: summary}
	}
	out.ProcessedAt = h.now().UTC()
	out.TotalSymbols = len(out.Results)
	svcmetrics.ObserveSince("sentiment_batch", start, nil)
	return xhttp.SuccessResponse(c, out)
}

type trendAnalysis struct {
	Direction    string                  `json:"trend_direction"`
	Days         int                     `json:"days"`
	Average      float64                 `json:"average_sentiment"`
	Change       float64                 `json:"sentiment_change"`
	TotalDays    int                     `json:"days_with_data"`
	DailyHistory []models.DailySentiment `json:"trend_data"`
}

type trendsResponse struct {
	Symbol           string        `json:"symbol"`
	CurrentSentiment float64       `json:"current_sentiment"`
	TrendAnalysis    trendAnalysis `json:"trend_analysis"`
}

func (h *SentimentEchoHandler) Trends(c echo.Context) error {
	start := time.Now()
	req := &models.TrendsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trend, err := h.svc.Trends(c.Request().Context(), req.Symbol, req.Days)
	svcmetrics.ObserveSince("sentiment_trends", start, err)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.DataResponse(c, http.StatusOK, trendsResponse{
		Symbol:           trend.Symbol,
		CurrentSentiment: current(trend),
		TrendAnalysis:    analyze(trend),
	})
}

func current(t *models.SentimentTrend) float64 {
	if len(t.Series) == 0 {
		return 0
	}
	return t.Series[len(t.Series)-1].Sentiment
}

func analyze(t *models.SentimentTrend) trendAnalysis {
	a := trendAnalysis{Direction: "stable", Days: t.Days, TotalDays: len(t.Series), DailyHistory: t.Series}
	if len(t.Series) == 0 {
		return a
	}
	var sum float64
	for _, d := range t.Series {
		sum += d.Sentiment
	}
	a.Average = sum / float64(len(t.Series))
	a.Change = t.Series[len(t.Series)-1].Sentiment - t.Series[0].Sentiment
	switch {
	case a.Change > 0.1:
		a.Direction = "improving"
	case a.Change < -0.1:
		a.Direction = "declining"
	}
	return a
}
