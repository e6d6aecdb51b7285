package handlers

import (
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/reconcile"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

// tickerPattern accepts exchange symbols such as IBIT, BRK.B, BTC-USD
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,11}$`)

type detailRequest struct {
	Symbol string `validate:"required,ticker"`
}

// ETFHandler serves the snapshot list and on-demand details
// ⭐ SSOT: ETF 조회 API 핸들러는 이 구조체에서만
type ETFHandler struct {
	store    contracts.SnapshotStore
	engine   *reconcile.Engine
	cache    contracts.DetailCache
	validate *validator.Validate
	logger   *logger.Logger
}

// NewETFHandler creates a new ETF handler
func NewETFHandler(store contracts.SnapshotStore, engine *reconcile.Engine, cache contracts.DetailCache, log *logger.Logger) *ETFHandler {
	v := validator.New()
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerPattern.MatchString(fl.Field().String())
	})

	return &ETFHandler{
		store:    store,
		engine:   engine,
		cache:    cache,
		validate: v,
		logger:   log,
	}
}

// ListETFs returns the current snapshot
// GET /api/etfs
func (h *ETFHandler) ListETFs(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Load(r.Context())
	if err != nil {
		// the list must always render; an unreadable slot reads as never synced
		h.logger.WithError(err).Error("Failed to load snapshot")
		snap = contracts.EmptySnapshot()
	}

	respondJSON(w, http.StatusOK, snap)
}

// GetETF returns one ETF; ?extended=1 adds info, weightings, chart and news
// GET /api/etf/{symbol}
func (h *ETFHandler) GetETF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := detailRequest{Symbol: contracts.NormalizeTicker(mux.Vars(r)["symbol"])}

	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid symbol")
		return
	}
	extended := r.URL.Query().Get("extended") == "1"

	if cached, ok := h.cache.Get(ctx, req.Symbol, extended); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	var prior *contracts.Record
	if snap, err := h.store.Load(ctx); err != nil {
		h.logger.WithError(err).Warn("Snapshot unavailable for detail")
	} else if row, ok := snap.Find(req.Symbol); ok {
		prior = &row
	}

	detail := h.engine.Detail(ctx, req.Symbol, extended, prior)
	if detail.Error == "" {
		h.cache.Set(ctx, req.Symbol, extended, detail)
	}

	respondJSON(w, http.StatusOK, detail)
}
