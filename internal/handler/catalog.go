package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/service"
)

// CatalogHandler serves themes and start times.  Reads are public; writes
// sit behind the admin group.
type CatalogHandler struct {
	Svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	if svc == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{Svc: svc}
}

// Themes handles GET /v1/themes.
func (h *CatalogHandler) Themes(c echo.Context) error {
	themes, err := h.Svc.ListThemes(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]themeResp, 0, len(themes))
	for _, t := range themes {
		out = append(out, toThemeResp(t))
	}
	return c.JSON(http.StatusOK, out)
}

// Times handles GET /v1/times.
func (h *CatalogHandler) Times(c echo.Context) error {
	times, err := h.Svc.ListTimes(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]timeResp, 0, len(times))
	for _, t := range times {
		out = append(out, toTimeResp(t))
	}
	return c.JSON(http.StatusOK, out)
}

// Available handles GET /v1/times/available?date=&theme_id=.
func (h *CatalogHandler) Available(c echo.Context) error {
	date, err := model.ParseDate(c.QueryParam("date"))
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	themeID, ok := optionalUint(c, "theme_id")
	if !ok || themeID == 0 {
		return badRequest(c, "theme_id is required")
	}
	avail, err := h.Svc.ListAvailableTimes(c.Request().Context(), date, themeID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]availableTimeResp, 0, len(avail))
	for _, a := range avail {
		out = append(out, availableTimeResp{timeResp: toTimeResp(a.Time), AlreadyBooked: a.AlreadyBooked})
	}
	return c.JSON(http.StatusOK, out)
}

type themeReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
}

// CreateTheme handles POST /v1/admin/themes.
func (h *CatalogHandler) CreateTheme(c echo.Context) error {
	var req themeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Svc.CreateTheme(c.Request().Context(), model.Theme{
		Name:        req.Name,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toThemeResp(t))
}

// CreateTime handles POST /v1/admin/times with {"start_at": "HH:MM"}.
func (h *CatalogHandler) CreateTime(c echo.Context) error {
	var req struct {
		StartAt string `json:"start_at"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	startAt, err := model.ParseClock(req.StartAt)
	if err != nil {
		return badRequest(c, "start_at must be HH:MM")
	}
	t, err := h.Svc.CreateTime(c.Request().Context(), startAt)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toTimeResp(t))
}

// DeleteTime handles DELETE /v1/admin/times/:id.
func (h *CatalogHandler) DeleteTime(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid time id")
	}
	if err := h.Svc.DeleteTime(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
