package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskdeck/backend/api/transport"
	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/internal/services"
	"github.com/taskdeck/backend/pkg/httpcontext"
	"github.com/taskdeck/backend/usecase/board"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

type TaskHandler struct {
	baseHandler
	boards *services.BoardManager
	tasks  *taskUC.UseCase
}

func NewTaskHandler(boards *services.BoardManager, tasks *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		boards:      boards,
		tasks:       tasks,
	}
}

// @Summary List tasks for the selected view
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	b, ok := h.board(ctx)
	if !ok {
		return
	}

	sel := domain.Selection{
		View:   domain.View(ctx.QueryArgs().Peek("view")),
		Status: domain.Status(ctx.QueryArgs().Peek("status")),
		Sort:   domain.SortKey(ctx.QueryArgs().Peek("sort")),
	}

	derivation := b.Derive(sel)
	payload := map[string]interface{}{
		"tasks":  derivation.Visible,
		"counts": derivation.Counts,
	}

	var meta interface{}
	if banner := b.Banner(); banner != nil {
		meta = map[string]interface{}{"banner": banner, "banner_message": banner.Message()}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(payload, meta))
}

// @Summary Get the canonical stored row of one task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.tasks.GetTask(stdCtx, userID, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	b, ok := h.board(ctx)
	if !ok {
		return
	}

	var req transport.TaskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	task := &domain.Task{
		Title:    req.Title,
		Tag:      domain.Tag(req.Tag),
		Priority: domain.Priority(req.Priority),
		Status:   domain.Status(req.Status),
		DueDate:  domain.ParseDueDate(req.DueDate),
	}
	if created := domain.ParseDueDate(req.CreatedAt); created != nil {
		task.CreatedAt = *created
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := b.Create(stdCtx, task)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Patch task fields
// @Tags tasks
// @Router /api/v1/tasks/{id} [patch]
func (h *TaskHandler) PatchTask(ctx *fasthttp.RequestCtx) {
	b, ok := h.board(ctx)
	if !ok {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	var req transport.TaskPatchRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	patch := board.TaskPatch{
		Title:     req.Title,
		Completed: req.Completed,
		DueDate:   req.DueDate,
	}
	if req.Tag != nil {
		tag := domain.Tag(*req.Tag)
		patch.Tag = &tag
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		patch.Priority = &priority
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		patch.Status = &status
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := b.Patch(stdCtx, id, patch); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Toggle task completion
// @Tags tasks
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(ctx *fasthttp.RequestCtx) {
	b, ok := h.board(ctx)
	if !ok {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := b.ToggleComplete(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	b, ok := h.board(ctx)
	if !ok {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := b.Delete(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Dismiss the current error banner
// @Tags tasks
// @Router /api/v1/banner [delete]
func (h *TaskHandler) DismissBanner(ctx *fasthttp.RequestCtx) {
	b, ok := h.board(ctx)
	if !ok {
		return
	}
	b.DismissBanner()
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func (h *TaskHandler) board(ctx *fasthttp.RequestCtx) (*board.Board, bool) {
	userID := h.userID(ctx)
	if userID == "" {
		return nil, false
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	b, err := h.boards.Board(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return nil, false
	}
	return b, true
}
