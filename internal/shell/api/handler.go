// Package api provides the HTTP surface of the coupons service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/artpar/coupons/internal/core/coupon"
	"github.com/artpar/coupons/internal/shell/api/middleware"
	"github.com/artpar/coupons/internal/shell/api/openapi"
	"github.com/artpar/coupons/internal/shell/coupons"
	"github.com/artpar/coupons/internal/shell/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// =============================================================================
// Handler
// =============================================================================

// Config holds the dependencies of the API.
type Config struct {
	Store   store.Store
	Coupons coupons.Options
	Logger  *zap.Logger
	Metrics *Metrics // nil creates a private registry
	Version string   // reported in the OpenAPI document
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	store   store.Store
	create  *coupons.CreateCoupon
	delete  *coupons.DeleteCoupon
	find    *coupons.FindCoupon
	logger  *zap.Logger
	metrics *Metrics
	docs    *openapi.Generator
}

// NewHandler wires the coupon use cases to the given store.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	logger := cfg.Logger.Named("api")

	docs := openapi.NewGenerator(openapi.WithVersion(cfg.Version))
	docs.RegisterResource(openapi.ResourceInfo{
		Name:           "coupons",
		Model:          CouponResponse{},
		CreateModel:    CreateCouponRequest{},
		SupportsCreate: true,
		SupportsFind:   true,
		SupportsDelete: true,
		LookupFields:   []string{"code"},
	})

	return &Handler{
		store:   cfg.Store,
		create:  coupons.NewCreateCoupon(cfg.Store, cfg.Coupons, cfg.Logger.Named("coupons")),
		delete:  coupons.NewDeleteCoupon(cfg.Store, cfg.Logger.Named("coupons")),
		find:    coupons.NewFindCoupon(cfg.Store),
		logger:  logger,
		metrics: cfg.Metrics,
		docs:    docs,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(h.logger))
	r.Use(middleware.Instrument(h.metrics))
	r.Use(middleware.Recover(h.logger))

	// Infrastructure endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	r.Get("/openapi.json", h.docs.Handler())

	// API v1 routes
	r.Route("/api/v1/coupons", func(r chi.Router) {
		r.Post("/", h.handleCreateCoupon)
		r.Get("/code/{code}", h.handleGetCouponByCode)
		r.Get("/{id}", h.handleGetCoupon)
		r.Delete("/{id}", h.handleDeleteCoupon)
	})

	return r
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Coupon Handlers
// =============================================================================

func (h *Handler) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	view, err := h.create.Execute(r.Context(), req.toInput())
	h.metrics.ObserveOperation("create", err)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/coupons/"+strconv.FormatInt(view.ID, 10))
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.couponID(w, r)
	if !ok {
		return
	}

	c, err := h.find.Execute(r.Context(), id)
	h.metrics.ObserveOperation("find", err)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}
	if c == nil {
		h.writeError(w, http.StatusNotFound, "coupon not found")
		return
	}

	h.writeJSON(w, http.StatusOK, couponToResponse(c))
}

func (h *Handler) handleGetCouponByCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.find.ByCode(r.Context(), chi.URLParam(r, "code"))
	h.metrics.ObserveOperation("find_by_code", err)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}
	if c == nil {
		h.writeError(w, http.StatusNotFound, "coupon not found")
		return
	}

	h.writeJSON(w, http.StatusOK, couponToResponse(c))
}

func (h *Handler) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.couponID(w, r)
	if !ok {
		return
	}

	err := h.delete.Execute(r.Context(), id)
	h.metrics.ObserveOperation("delete", err)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) couponID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid coupon id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}

// writeUseCaseError reports a use case failure. Internal errors are logged
// and replaced with a generic message.
func (h *Handler) writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		h.writeError(w, status, "an unexpected error occurred")
		return
	}
	h.writeError(w, status, messageFor(err))
}

// messageFor prefers the validation message over the error kind.
func messageFor(err error) string {
	var ve *coupon.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
