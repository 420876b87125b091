package api

import (
	"context"
	"net/http"
	"time"

	"StockHolo/internal/domain/models"
	domrepo "StockHolo/internal/domain/repository"
	svcmetrics "StockHolo/internal/service/metrics"
	"StockHolo/internal/service/ratelimit"
	"StockHolo/internal/services/encoder"
	"StockHolo/internal/usecase"
	xhttp "StockHolo/pkg/http"
	xlogger "StockHolo/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SymbolWatcher is told when the tracked set changes, e.g. to resubscribe a
// trade stream.
type SymbolWatcher interface {
	Track(ctx context.Context, added, removed []string)
}

// stockView adds display fields to a snapshot.
type stockView struct {
	models.StockSnapshot
	VolumeLabel string `json:"volumeLabel"`
}

func viewsOf(stocks []models.StockSnapshot) []stockView {
	out := make([]stockView, len(stocks))
	for i := range stocks {
		out[i] = stockView{StockSnapshot: stocks[i], VolumeLabel: stocks[i].VolumeLabel()}
	}
	return out
}

// MarketEchoHandler serves the operator controls and market reads.
type MarketEchoHandler struct {
	logger    *xlogger.Logger
	store     *usecase.MarketStore
	refresher *usecase.Refresher
	news      *usecase.NewsUpdater
	enc       *encoder.Encoder
	search    domrepo.MarketDataSource
	watcher   SymbolWatcher
	rl        *ratelimit.Limiter
}

// NewMarketEchoHandler creates the handler. search and watcher may be nil.
func NewMarketEchoHandler(logger *xlogger.Logger, store *usecase.MarketStore, refresher *usecase.Refresher, news *usecase.NewsUpdater, enc *encoder.Encoder, search domrepo.MarketDataSource, watcher SymbolWatcher) *MarketEchoHandler {
	svcmetrics.Register()
	return &MarketEchoHandler{
		logger:    logger.With("market_api"),
		store:     store,
		refresher: refresher,
		news:      news,
		enc:       enc,
		search:    search,
		watcher:   watcher,
		rl:        ratelimit.New(2, 5),
	}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/stocks", h.Stocks)
	g.GET("/stocks/active", h.ActiveStocks)
	g.GET("/stocks/:symbol", h.Stock)
	g.POST("/stocks", h.AddStock)
	g.DELETE("/stocks/:symbol", h.RemoveStock)
	g.POST("/stocks/:symbol/toggle", h.Toggle)
	g.PUT("/stocks/:symbol/active", h.SetActive)
	g.POST("/stocks/select-all", h.SelectAll)
	g.POST("/stocks/deselect-all", h.DeselectAll)
	g.GET("/market", h.Market)
	g.GET("/frame", h.Frame)
	g.POST("/refresh", h.Refresh)
	g.GET("/search", h.Search)
	g.GET("/encode", h.Encode)
	g.GET("/news/market", h.MarketNews)
	g.GET("/news/history/:symbol", h.History)
	g.POST("/news/update", h.UpdateNews)
}

func (h *MarketEchoHandler) fail(c echo.Context, endpoint string, start time.Time, err error) error {
	svcmetrics.ObserveSince(endpoint, start, err)
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// breakerReporter is implemented by sources guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() string
}

func (h *MarketEchoHandler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status":        "healthy",
		"timestamp":     time.Now().UTC(),
		"refreshing":    h.refresher.Running(),
		"liveQuotes":    h.search != nil,
		"trackedStocks": len(h.store.Stocks()),
	}
	if br, ok := h.search.(breakerReporter); ok {
		body["sourceBreaker"] = br.BreakerState()
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *MarketEchoHandler) Stocks(c echo.Context) error {
	stocks := h.store.Stocks()
	return xhttp.ListResponse(c, viewsOf(stocks), int64(len(stocks)))
}

func (h *MarketEchoHandler) ActiveStocks(c echo.Context) error {
	stocks := h.store.ActiveStocks()
	return xhttp.ListResponse(c, viewsOf(stocks), int64(len(stocks)))
}

func (h *MarketEchoHandler) Stock(c echo.Context) error {
	req := &models.SymbolPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, ok := h.store.Get(req.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("symbol %s not tracked", models.NormalizeSymbol(req.Symbol)))
	}
	return xhttp.SuccessResponse(c, stockView{StockSnapshot: s, VolumeLabel: s.VolumeLabel()})
}

func (h *MarketEchoHandler) AddStock(c echo.Context) error {
	start := time.Now()
	req := &models.AddSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.store.AddSymbol(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "add_stock", start, err)
	}
	if h.watcher != nil {
		h.watcher.Track(context.WithoutCancel(c.Request().Context()), []string{s.Symbol}, nil)
	}
	svcmetrics.ObserveSince("add_stock", start, nil)
	return xhttp.CreatedResponse(c, stockView{StockSnapshot: s, VolumeLabel: s.VolumeLabel()})
}

func (h *MarketEchoHandler) RemoveStock(c echo.Context) error {
	req := &models.SymbolPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sym := models.NormalizeSymbol(req.Symbol)
	if h.store.RemoveSymbol(sym) && h.watcher != nil {
		h.watcher.Track(context.WithoutCancel(c.Request().Context()), nil, []string{sym})
	}
	return xhttp.NoContentResponse(c)
}

func (h *MarketEchoHandler) Toggle(c echo.Context) error {
	start := time.Now()
	req := &models.SymbolPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	active, err := h.store.Toggle(req.Symbol)
	if err != nil {
		return h.fail(c, "toggle", start, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol": models.NormalizeSymbol(req.Symbol),
		"active": active,
	})
}

func (h *MarketEchoHandler) SetActive(c echo.Context) error {
	start := time.Now()
	req := &models.SetActiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.store.SetActive(req.Symbol, *req.Active); err != nil {
		return h.fail(c, "set_active", start, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol": models.NormalizeSymbol(req.Symbol),
		"active": *req.Active,
	})
}

func (h *MarketEchoHandler) SelectAll(c echo.Context) error {
	h.store.SetAllActive(true)
	return xhttp.SuccessResponse(c, h.store.Aggregate().View())
}

func (h *MarketEchoHandler) DeselectAll(c echo.Context) error {
	h.store.SetAllActive(false)
	return xhttp.SuccessResponse(c, h.store.Aggregate().View())
}

func (h *MarketEchoHandler) Market(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Aggregate().View())
}

func (h *MarketEchoHandler) Frame(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.store.Frame())
}

func (h *MarketEchoHandler) Refresh(c echo.Context) error {
	start := time.Now()
	f := h.refresher.RefreshNow(c.Request().Context())
	svcmetrics.ObserveSince("refresh", start, nil)
	return xhttp.SuccessResponse(c, f)
}

func (h *MarketEchoHandler) Search(c echo.Context) error {
	start := time.Now()
	req := &models.SearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.search == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("symbol search needs a market data source"))
	}
	if !h.rl.Allow(c.RealIP() + ":search") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}
	matches, err := h.search.SearchSymbol(c.Request().Context(), req.Query)
	if err != nil {
		return h.fail(c, "search", start, err)
	}
	svcmetrics.ObserveSince("search", start, nil)
	return xhttp.ListResponse(c, matches, int64(len(matches)))
}

// Encode previews the visual for arbitrary inputs.
func (h *MarketEchoHandler) Encode(c echo.Context) error {
	req := &models.EncodeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s := &models.StockSnapshot{
		Symbol:         "PREVIEW",
		Price:          req.Price,
		ReferencePrice: req.Reference,
		Sentiment:      models.Sentiment{Score: req.Score},
		Volatility:     req.Volatility,
	}
	return xhttp.SuccessResponse(c, h.enc.Encode(s, req.Index, req.Time))
}

func (h *MarketEchoHandler) MarketNews(c echo.Context) error {
	mn, ok := h.news.MarketNews()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no active stocks"))
	}
	return xhttp.SuccessResponse(c, mn)
}

func (h *MarketEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hist := h.news.History(req.Symbol)
	return xhttp.ListResponse(c, hist, int64(len(hist)))
}

func (h *MarketEchoHandler) UpdateNews(c echo.Context) error {
	start := time.Now()
	ran := h.news.UpdateNow(c.Request().Context())
	svcmetrics.ObserveSince("news_update", start, nil)
	if !ran {
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]bool{"updating": true})
	}
	return xhttp.SuccessResponse(c, h.store.Frame())
}
