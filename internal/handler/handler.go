package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/S1riyS/happyphone/server/internal/middleware"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
	"github.com/S1riyS/happyphone/server/internal/service"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
	"github.com/S1riyS/happyphone/server/pkg/response"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service service.TerminalService
}

func NewHandler(service service.TerminalService) *Handler {
	return &Handler{service: service}
}

type commandRequest struct {
	Line string `json:"line"`
}

type editRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type historyResponse struct {
	History []string `json:"history"`
}

func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleCommand"

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req commandRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.service.Execute(ctx, service.Request{UserID: id.UserID, DisplayName: id.DisplayName, Line: req.Line})
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleDownloads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleDownloads"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}

	res, err := h.service.Poll(ctx, id.UserID)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleHistory"

	id, ok := identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		history, err := h.service.ViewHistory(ctx, id.UserID)
		if err != nil {
			h.writeError(w, r, op, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, historyResponse{History: history})
	case http.MethodDelete:
		if err := h.service.ClearHistory(ctx, id.UserID); err != nil {
			h.writeError(w, r, op, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleEdit"

	id, ok := identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		buf, err := h.service.EditBuffer(ctx, id.UserID, r.URL.Query().Get("path"))
		if err != nil {
			h.writeError(w, r, op, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, buf)
	case http.MethodPost:
		var req editRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := h.service.EditFile(ctx, service.EditRequest{
			UserID:      id.UserID,
			DisplayName: id.DisplayName,
			Path:        req.Path,
			Content:     req.Content,
		})
		if err != nil {
			h.writeError(w, r, op, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, resp)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "happyphone-server"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToStatus(err)

	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		response.WriteError(w, status, serviceErr.Code.String(), serviceErr.Message)
		return
	}

	logger := logging.GetLoggerFromContextWithOp(r.Context(), op)
	logger.Error("Request failed", slogext.Err(err), slog.String("path", r.URL.Path))
	response.WriteError(w, status, "", "Internal server error")
}

func identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		response.WriteError(w, http.StatusUnauthorized, "Unauthorized", "unknown user")
	}
	return id, ok
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.WriteError(w, http.StatusBadRequest, kerrors.InvalidArgument.String(), "invalid request body")
		return false
	}
	return true
}

func mapErrorToStatus(err error) int {
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		return http.StatusInternalServerError
	}

	switch serviceErr.Code {
	case kerrors.MissingArgument, kerrors.InvalidArgument:
		return http.StatusBadRequest
	case kerrors.PermissionDenied:
		return http.StatusForbidden
	case kerrors.PathNotFound, kerrors.ParentNotFound:
		return http.StatusNotFound
	case kerrors.IsADirectory, kerrors.NotADirectory, kerrors.FileExists:
		return http.StatusConflict
	case kerrors.PackageNotInstalled:
		return http.StatusPreconditionFailed
	case kerrors.ContentTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusUnprocessableEntity
	}
}
