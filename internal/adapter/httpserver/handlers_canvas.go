package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/pixelgrid/internal/domain"
	apperrors "github.com/pscheid92/pixelgrid/internal/platform/errors"
)

func (s *Server) handleGrid(c echo.Context) error {
	buf, err := s.canvas.ReadFull(c.Request().Context())
	if err != nil {
		return err
	}
	if err := c.Blob(http.StatusOK, echo.MIMEOctetStream, buf); err != nil {
		return fmt.Errorf("failed to write grid response: %w", err)
	}
	return nil
}

func (s *Server) handleDraw(c echo.Context) error {
	var req domain.DrawPayload
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperrors.ValidationError("malformed request body", fmt.Errorf("%w: %w", domain.ErrSerialization, err))
	}
	event, err := req.Event()
	if err != nil {
		return apperrors.ValidationError("x, y and color are required", err)
	}

	if err := s.updater.UpdateCell(c.Request().Context(), event); err != nil {
		return apperrors.AsStructuredError(err).WithContext("event", event.String())
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to write draw response: %w", err)
	}
	return nil
}
