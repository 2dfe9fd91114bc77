package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/ladder-cache/internal/domain/refreshrun"
	"github.com/riskibarqy/ladder-cache/internal/platform/logging"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
)

const maxRequestBody = 64 << 10

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// CircuitReporter exposes provider breaker state for the health endpoint.
type CircuitReporter interface {
	BreakerStates() map[string]resilience.CircuitState
}

type Handler struct {
	leaderboards *usecase.LeaderboardQueryService
	refresh      *usecase.RefreshService
	runs         refreshrun.Repository
	circuits     CircuitReporter
	logger       *logging.Logger
	validator    *validator.Validate
	now          func() time.Time
}

// NewHandler accepts nil refresh, runs and circuits; the matching endpoints
// then answer 503.
func NewHandler(
	leaderboards *usecase.LeaderboardQueryService,
	refresh *usecase.RefreshService,
	runs refreshrun.Repository,
	circuits CircuitReporter,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		leaderboards: leaderboards,
		refresh:      refresh,
		runs:         runs,
		circuits:     circuits,
		logger:       logger,
		validator:    validator.New(),
		now:          time.Now,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	resp := healthDTO{Status: "ok"}
	if h.circuits != nil {
		resp.Circuits = h.circuits.BreakerStates()
		for _, state := range resp.Circuits {
			if state == resilience.CircuitStateOpen {
				resp.Status = "degraded"
				break
			}
		}
	}

	writeSuccess(ctx, w, http.StatusOK, resp)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeOptionalJSON leaves dst untouched for an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", usecase.ErrInvalidInput, err)
	}
	if len(raw) > maxRequestBody {
		return fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrInvalidInput, maxRequestBody)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := strictJSON.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type healthDTO struct {
	Status   string                             `json:"status"`
	Circuits map[string]resilience.CircuitState `json:"circuits,omitempty"`
}
