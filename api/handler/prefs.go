package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskdeck/backend/api/transport"
	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/pkg/httpcontext"
	prefsUC "github.com/taskdeck/backend/usecase/prefs"
)

// PrefsHandler serves per-user preferences; currently just the theme.
type PrefsHandler struct {
	baseHandler
	prefs *prefsUC.UseCase
}

func NewPrefsHandler(prefs *prefsUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *PrefsHandler {
	return &PrefsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		prefs:       prefs,
	}
}

// @Summary Get theme preference
// @Tags prefs
// @Router /api/v1/prefs/theme [get]
func (h *PrefsHandler) GetTheme(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	theme, err := h.prefs.Theme(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"theme": theme})
}

// @Summary Set theme preference
// @Tags prefs
// @Router /api/v1/prefs/theme [put]
func (h *PrefsHandler) SetTheme(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.ThemeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Theme == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.prefs.SetTheme(stdCtx, userID, req.Theme); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"theme": req.Theme})
}
