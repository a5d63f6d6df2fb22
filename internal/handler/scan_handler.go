package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/service"
)

type ScanHandler struct {
	svc service.ScanService
}

func NewScanHandler(svc service.ScanService) *ScanHandler {
	return &ScanHandler{svc: svc}
}

type SubmissionItemResponse struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	TokenValue int64   `json:"tokenValue"`
}

type SubmissionResponse struct {
	ID            uint64                   `json:"id"`
	ItemCount     int                      `json:"itemCount"`
	TokensAwarded int64                    `json:"tokensAwarded"`
	Items         []SubmissionItemResponse `json:"items"`
	CreatedAt     string                   `json:"createdAt"`
}

func toSubmissionResponse(s *model.RecyclingSubmission) SubmissionResponse {
	items := make([]SubmissionItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, SubmissionItemResponse{
			Name:       it.Name,
			Category:   it.Category,
			Confidence: it.Confidence,
			TokenValue: it.TokenValue,
		})
	}
	return SubmissionResponse{
		ID:            s.ID,
		ItemCount:     s.ItemCount,
		TokensAwarded: s.TokensAwarded,
		Items:         items,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ScanHandler) Submit(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "image file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read image"))
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read image"))
	}

	sub, err := h.svc.SubmitScan(c.Request().Context(), uid, image, fh.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("validation_error", err.Error()))
		case errors.Is(err, service.ErrNoItemsDetected):
			return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("no_items_detected", "no recyclable items were detected in the image"))
		default:
			return c.JSON(http.StatusBadGateway, NewErrorResponse("classification_failed", "failed to analyze the image; please try again"))
		}
	}
	return c.JSON(http.StatusCreated, toSubmissionResponse(sub))
}

func (h *ScanHandler) ListMine(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	list, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch submissions"))
	}
	resp := make([]SubmissionResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toSubmissionResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}
