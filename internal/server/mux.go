// internal/server/mux.go
// Package server implements the HTTP handlers and routing for the Proof of
// Vibes service. It exposes the booth-facing JSON endpoints for collectible
// fabrication, edition fanout, claiming, the public gallery, session photos,
// and the operator-only reset.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/auth"
	"github.com/badaiwinata/Proof-of-Vibes/internal/collectible"
	errordefs "github.com/badaiwinata/Proof-of-Vibes/internal/errors"
	"github.com/badaiwinata/Proof-of-Vibes/internal/media"
	"github.com/badaiwinata/Proof-of-Vibes/internal/metrics"
	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/badaiwinata/Proof-of-Vibes/internal/notify"
	"github.com/badaiwinata/Proof-of-Vibes/internal/schema"
	"github.com/badaiwinata/Proof-of-Vibes/internal/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ContextKey is used for context values to avoid collisions
// when storing values in request context
type ContextKey string

const (
	// Context keys for storing request-scoped values
	ContextKeyCorrelationID ContextKey = "correlationId" // Unique ID for request tracking

	// Default limits for list operations
	DefaultListLimit = 25  // Default number of records to return
	MaxListLimit     = 100 // Maximum number of records to return
)

// Options carries the optional collaborators for the mux. Nil fields disable
// the corresponding feature rather than failing startup.
type Options struct {
	Archiver     *media.Archiver     // Photo archival; nil disables
	Notifier     *notify.Client      // Claim-link mail relay; nil disables
	Admin        *auth.AdminVerifier // Admin endpoint guard; nil disables the endpoint
	MaxPhotoSize int64               // Maximum inline photo body size in bytes
	CORSOrigins  []string            // Allowed origins for CORS (empty means deny all)
}

// Mux handles HTTP requests for the Proof of Vibes service.
type Mux struct {
	mux       *http.ServeMux       // HTTP request multiplexer
	svc       *collectible.Service // Domain service for collectible operations
	s         storage.Store        // Storage interface for photos and readiness checks
	validator *schema.Validator    // Payload validator
	archiver  *media.Archiver      // Photo archival client (may be nil)
	notifier  *notify.Client       // Mail relay client (may be nil)
	admin     *auth.AdminVerifier  // Admin token verifier (may be nil)
	metrics   *metrics.Metrics     // Metrics for monitoring

	maxPhotoSize       int64    // Maximum inline photo body size in bytes
	corsAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
}

// NewMux creates a new HTTP mux with all Proof of Vibes endpoints.
// Parameters:
//   - svc: Domain service for collectible operations
//   - s: Storage interface for photos and readiness checks
//   - opts: Optional collaborators and limits
// Returns:
//   - *http.ServeMux: Router with all endpoints registered
//   - error: Any error that occurred during initialization
func NewMux(svc *collectible.Service, s storage.Store, opts Options) (*http.ServeMux, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	if opts.MaxPhotoSize <= 0 {
		opts.MaxPhotoSize = 10 * 1024 * 1024
	}

	m := &Mux{
		mux:                http.NewServeMux(),
		svc:                svc,
		s:                  s,
		validator:          validator,
		archiver:           opts.Archiver,
		notifier:           opts.Notifier,
		admin:              opts.Admin,
		metrics:            metrics.NewMetrics(),
		maxPhotoSize:       opts.MaxPhotoSize,
		corsAllowedOrigins: opts.CORSOrigins,
	}

	// Register health endpoints
	m.mux.HandleFunc("/healthz", m.handleHealthz)
	m.mux.HandleFunc("/readyz", m.handleReadyz)
	m.mux.Handle("/metrics", promhttp.Handler())

	// Collectible endpoints. The bare path dispatches on method; the exact
	// claim and fanout paths take precedence over the id prefix route.
	m.mux.HandleFunc("/api/collectibles", m.withMiddleware(m.handleCollectibles))
	m.mux.HandleFunc("/api/collectibles/claim", m.method("POST", m.withMiddleware(m.handleClaim)))
	m.mux.HandleFunc("/api/collectibles/fanout", m.method("POST", m.withMiddleware(m.handleFanout)))
	m.mux.HandleFunc("/api/collectibles/", m.method("GET", m.withMiddleware(m.handleGetCollectible)))

	// Session photo endpoints
	m.mux.HandleFunc("/api/photos", m.method("POST", m.withMiddleware(m.handleCreatePhoto)))
	m.mux.HandleFunc("/api/photos/session/", m.withMiddleware(m.handlePhotoSession))

	// Operator endpoint
	m.mux.HandleFunc("/api/admin/reset", m.method("POST", m.withMiddleware(m.handleAdminReset)))

	return m.mux, nil
}

// method ensures the HTTP method matches the expected method
func (m *Mux) method(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			h(w, r)
			return
		}
		if r.Method != method {
			err := errordefs.New(errordefs.POV_BAD_REQUEST, "method not allowed", "")
			m.writeErrorDef(w, err)
			return
		}
		h(w, r)
	}
}

// withMiddleware applies common middleware to handlers
func (m *Mux) withMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Handle CORS preflight requests
		if r.Method == "OPTIONS" {
			m.setCORSHeaders(w, r, true)
			w.WriteHeader(http.StatusOK)
			return
		}

		// Set CORS headers for regular requests
		m.setCORSHeaders(w, r, false)

		// Add correlation ID if not present
		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), ContextKeyCorrelationID, correlationID))
		w.Header().Set("X-Correlation-Id", correlationID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r)

		m.recordRequest(r, sw.status, time.Since(start), correlationID)
	}
}

// setCORSHeaders writes the CORS response headers when the origin is allowed.
func (m *Mux) setCORSHeaders(w http.ResponseWriter, r *http.Request, preflight bool) {
	if len(m.corsAllowedOrigins) == 0 {
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, allowedOrigin := range m.corsAllowedOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	if preflight {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Correlation-Id")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
	}
}

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// recordRequest logs the request and updates the HTTP metrics.
func (m *Mux) recordRequest(r *http.Request, status int, duration time.Duration, correlationID string) {
	statusLabel := strconv.Itoa(status)
	m.metrics.HTTPRequestTotal.WithLabelValues(r.Method, r.URL.Path, statusLabel).Inc()
	m.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, statusLabel).Observe(duration.Seconds())

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("correlation_id", correlationID),
	}

	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	slog.LogAttrs(r.Context(), level, "request completed", attrs...)
}

// correlationID pulls the request correlation id out of the context.
func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}

// writeSuccess writes a successful JSON response
func (m *Mux) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeErrorDef writes an error response following the service error taxonomy
func (m *Mux) writeErrorDef(w http.ResponseWriter, err *errordefs.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	response := map[string]interface{}{
		"error": map[string]interface{}{
			"code":          err.Code,
			"message":       err.Message,
			"correlationId": err.CorrelationID,
		},
	}
	if err.Details != nil {
		response["error"].(map[string]interface{})["details"] = err.Details
	}
	_ = json.NewEncoder(w).Encode(response)
}

// readBody reads and returns the request body, bounded by the photo size limit
// so an oversized upload cannot exhaust memory.
func (m *Mux) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, m.maxPhotoSize))
}

// validationErrorDef converts a validator failure into an error response with
// field-level detail.
func validationErrorDef(err error, corrID string) *errordefs.Error {
	var result *schema.ValidationResult
	if errors.As(err, &result) {
		return errordefs.NewWithDetails(errordefs.POV_VALIDATION, "request validation failed", corrID, result.Errors)
	}
	return errordefs.New(errordefs.POV_VALIDATION, err.Error(), corrID)
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz handles readiness health check requests
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// A cheap list probe exercises the storage backend; for PostgreSQL this
	// verifies connectivity, for the memory store it is a no-op
	if _, err := m.s.ListCollectibles(ctx, model.ListQuery{Limit: 1}); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleCollectibles dispatches the bare collection path: GET lists the
// gallery, POST fabricates a batch.
func (m *Mux) handleCollectibles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		m.handleListCollectibles(w, r)
	case http.MethodPost:
		m.handleFabricate(w, r)
	default:
		m.writeErrorDef(w, errordefs.New(errordefs.POV_BAD_REQUEST, "method not allowed", correlationID(r.Context())))
	}
}

// handleListCollectibles handles GET /api/collectibles
func (m *Mux) handleListCollectibles(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handleListCollectibles")
	defer span.End()

	limit := DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			if v > 0 && v <= MaxListLimit {
				limit = v
			} else if v > MaxListLimit {
				limit = MaxListLimit
			}
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v > 0 {
			offset = v
		}
	}

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	items, err := m.svc.List(ctx, model.ListQuery{Limit: limit, Offset: offset})
	if err != nil {
		span.SetStatus(codes.Error, "failed to list collectibles")
		m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to list collectibles", correlationID(ctx)))
		return
	}

	m.writeSuccess(w, http.StatusOK, model.ItemsResponse{Items: items})
}

// handleGetCollectible handles GET /api/collectibles/{id}
func (m *Mux) handleGetCollectible(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handleGetCollectible")
	defer span.End()
	corrID := correlationID(ctx)

	idStr := strings.TrimPrefix(r.URL.Path, "/api/collectibles/")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		span.SetStatus(codes.Error, "invalid id")
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "invalid collectible id", corrID))
		return
	}
	span.SetAttributes(attribute.Int("id", id))

	item, err := m.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.writeErrorDef(w, errordefs.New(errordefs.POV_NOT_FOUND, "collectible not found", corrID))
			return
		}
		span.SetStatus(codes.Error, "failed to get collectible")
		m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to get collectible", corrID))
		return
	}

	m.writeSuccess(w, http.StatusOK, model.ItemResponse{Item: item})
}

// handleFabricate handles POST /api/collectibles
func (m *Mux) handleFabricate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handleFabricate")
	defer span.End()
	corrID := correlationID(ctx)

	body, err := m.readBody(w, r)
	if err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "failed to read request body", corrID))
		return
	}

	if err := m.validateBody(schema.PayloadFabricate, body); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		m.writeErrorDef(w, validationErrorDef(err, corrID))
		return
	}

	var req model.FabricateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "invalid JSON", corrID))
		return
	}
	span.SetAttributes(attribute.Int("items", len(req.Items)))

	items, err := m.svc.Fabricate(ctx, req)
	if err != nil {
		var verr *collectible.ValidationError
		if errors.As(err, &verr) {
			m.writeErrorDef(w, errordefs.NewWithDetails(errordefs.POV_VALIDATION, "invalid collectible data", corrID,
				map[string]interface{}{"item": verr.Index, "field": verr.Field}))
			return
		}
		span.SetStatus(codes.Error, "fabrication failed")
		m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to create your digital collectibles", corrID))
		return
	}

	m.writeSuccess(w, http.StatusCreated, model.ItemsResponse{
		Items:   items,
		Message: "Your digital collectibles have been created!",
	})
}

// handleClaim handles POST /api/collectibles/claim
func (m *Mux) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handleClaim")
	defer span.End()
	corrID := correlationID(ctx)

	body, err := m.readBody(w, r)
	if err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "failed to read request body", corrID))
		return
	}

	if err := m.validateBody(schema.PayloadClaim, body); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		m.writeErrorDef(w, validationErrorDef(err, corrID))
		return
	}

	var req model.ClaimRequest
	if err := json.Unmarshal(body, &req); err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "invalid JSON", corrID))
		return
	}

	item, err := m.svc.Claim(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, collectible.ErrNotFound):
			m.writeErrorDef(w, errordefs.New(errordefs.POV_NOT_FOUND, "digital collectible not found", corrID))
		case errors.Is(err, collectible.ErrAlreadyClaimed):
			m.writeErrorDef(w, errordefs.New(errordefs.POV_CONFLICT, "this digital collectible has already been claimed", corrID))
		default:
			span.SetStatus(codes.Error, "claim failed")
			m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to claim your digital collectible", corrID))
		}
		return
	}

	m.writeSuccess(w, http.StatusOK, model.ItemResponse{
		Item:    item,
		Message: "Your Proof of Vibes collectible has been claimed successfully!",
	})
}

// handleFanout handles POST /api/collectibles/fanout
func (m *Mux) handleFanout(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handleFanout")
	defer span.End()
	corrID := correlationID(ctx)

	body, err := m.readBody(w, r)
	if err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "failed to read request body", corrID))
		return
	}

	if err := m.validateBody(schema.PayloadFanout, body); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		m.writeErrorDef(w, validationErrorDef(err, corrID))
		return
	}

	var req model.FanoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "invalid JSON", corrID))
		return
	}
	span.SetAttributes(
		attribute.Int("masters", len(req.MasterIDs)),
		attribute.Int("edition_count", req.EditionCount),
	)

	result, err := m.svc.Fanout(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, collectible.ErrEditionCount):
			m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "edition count must be between 1 and 50", corrID))
		case errors.Is(err, collectible.ErrNoMasters):
			m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "digital collectible ids are required", corrID))
		default:
			span.SetStatus(codes.Error, "fanout failed")
			m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to create your digital collectible editions", corrID))
		}
		return
	}

	m.sendClaimLinks(ctx, result)

	m.writeSuccess(w, http.StatusOK, model.ItemsResponse{
		Items:   result.Items,
		Message: result.Message,
	})
}

// sendClaimLinks forwards claim links for recipient-bound editions to the mail
// relay. Best-effort: relay failures are logged, never surfaced to the booth.
func (m *Mux) sendClaimLinks(ctx context.Context, result *collectible.FanoutResult) {
	if m.notifier == nil {
		return
	}

	links := make([]notify.ClaimLink, 0, len(result.Items))
	for _, c := range result.Items {
		if c.ClaimEmail == "" {
			continue
		}
		editionNumber := 0
		if c.EditionNumber != nil {
			editionNumber = *c.EditionNumber
		}
		links = append(links, notify.ClaimLink{
			Email:         c.ClaimEmail,
			RecipientName: c.RecipientName,
			ClaimToken:    c.ClaimToken,
			EditionNumber: editionNumber,
			EventName:     c.EventName,
		})
	}
	if len(links) == 0 {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.notifier.SendClaimLinks(sendCtx, links); err != nil {
		slog.Warn("failed to send claim links", "collection_id", result.CollectionID, "error", err)
	}
}

// handleCreatePhoto handles POST /api/photos
func (m *Mux) handleCreatePhoto(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handleCreatePhoto")
	defer span.End()
	corrID := correlationID(ctx)

	body, err := m.readBody(w, r)
	if err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "photo too large or unreadable", corrID))
		return
	}

	if err := m.validateBody(schema.PayloadPhoto, body); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		m.writeErrorDef(w, validationErrorDef(err, corrID))
		return
	}

	var req model.CreatePhotoRequest
	if err := json.Unmarshal(body, &req); err != nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "invalid JSON", corrID))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	photo := model.Photo{
		SessionID: sessionID,
		ImageData: req.ImageData,
	}

	// Archive before storing so the record carries its object URI. Archival
	// failure downgrades to inline-only storage.
	if m.archiver != nil {
		uri, err := m.archiver.ArchivePhoto(ctx, sessionID, uuid.New().String(), req.ImageData)
		if err != nil {
			slog.Warn("failed to archive photo", "session_id", sessionID, "error", err)
		} else {
			photo.ArchiveURI = uri
		}
	}

	stored, err := m.s.CreatePhoto(ctx, photo)
	if err != nil {
		span.SetStatus(codes.Error, "failed to save photo")
		m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to save photo", corrID))
		return
	}

	m.writeSuccess(w, http.StatusCreated, model.PhotoResponse{Item: stored, SessionID: sessionID})
}

// handlePhotoSession handles GET and DELETE on /api/photos/session/{sessionId}
func (m *Mux) handlePhotoSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handlePhotoSession")
	defer span.End()
	corrID := correlationID(ctx)

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/photos/session/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_VALIDATION, "invalid session id", corrID))
		return
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	switch r.Method {
	case http.MethodGet:
		photos, err := m.s.ListPhotosBySession(ctx, sessionID)
		if err != nil {
			span.SetStatus(codes.Error, "failed to list photos")
			m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to retrieve photos", corrID))
			return
		}
		m.writeSuccess(w, http.StatusOK, model.PhotosResponse{Items: photos})
	case http.MethodDelete:
		if err := m.s.DeletePhotosBySession(ctx, sessionID); err != nil {
			span.SetStatus(codes.Error, "failed to delete photos")
			m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to delete photos", corrID))
			return
		}
		m.writeSuccess(w, http.StatusOK, map[string]string{"message": "session photos deleted"})
	default:
		m.writeErrorDef(w, errordefs.New(errordefs.POV_BAD_REQUEST, "method not allowed", corrID))
	}
}

// handleAdminReset handles POST /api/admin/reset
func (m *Mux) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("pov-service").Start(r.Context(), "handleAdminReset")
	defer span.End()
	corrID := correlationID(ctx)

	if m.admin == nil {
		m.writeErrorDef(w, errordefs.New(errordefs.POV_UNAVAILABLE, "admin endpoint not configured", corrID))
		return
	}

	operator, err := m.admin.VerifyAuthorization(r.Header.Get("Authorization"))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNotAdmin):
			m.writeErrorDef(w, errordefs.New(errordefs.POV_AUTHZ, "admin role required", corrID))
		default:
			m.writeErrorDef(w, errordefs.New(errordefs.POV_AUTHN, "invalid or missing admin token", corrID))
		}
		return
	}
	span.SetAttributes(attribute.String("operator", operator))

	if err := m.s.ResetUserData(ctx); err != nil {
		span.SetStatus(codes.Error, "reset failed")
		m.writeErrorDef(w, errordefs.New(errordefs.POV_INTERNAL, "failed to reset data", corrID))
		return
	}

	slog.Info("user data reset", "operator", operator, "correlation_id", corrID)
	m.writeSuccess(w, http.StatusOK, map[string]string{"message": "user data reset, seed records preserved"})
}

// validateBody runs the payload validator and records the validation metrics.
func (m *Mux) validateBody(name string, body []byte) error {
	start := time.Now()
	err := m.validator.Validate(name, body)

	status := "ok"
	if err != nil {
		status = "rejected"
	}
	m.metrics.SchemaValidationTotal.WithLabelValues(name, status).Inc()
	m.metrics.SchemaValidationDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())

	return err
}
