package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/repository"
	"github.com/iliyamo/escape-room-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle to members and
// admins.  All methods assume JWTAuth already ran.
type ReservationHandler struct {
	Svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type bookReq struct {
	MemberID uint64 `json:"member_id"`
	Date     string `json:"date"`
	TimeID   uint64 `json:"time_id"`
	ThemeID  uint64 `json:"theme_id"`
	Waiting  bool   `json:"waiting"`
}

// Create handles POST /v1/reservations and POST /v1/admin/reservations.
// "waiting": true queues the caller instead of claiming the slot.  Only
// admins may set member_id to someone else.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	if req.TimeID == 0 || req.ThemeID == 0 {
		return badRequest(c, "time_id and theme_id are required")
	}
	memberID, err := service.ResolveMemberID(callerOf(c), req.MemberID)
	if err != nil {
		return writeError(c, err)
	}

	booking := service.BookingRequest{MemberID: memberID, Date: date, TimeID: req.TimeID, ThemeID: req.ThemeID}
	var res model.Reservation
	if req.Waiting {
		res, err = h.Svc.BookWaiting(c.Request().Context(), booking)
	} else {
		res, err = h.Svc.BookSuccess(c.Request().Context(), booking)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// Mine handles GET /v1/reservations/mine: the caller's reservations with
// their waitlist rank.
func (h *ReservationHandler) Mine(c echo.Context) error {
	caller := callerOf(c)
	if caller.ID == 0 {
		return writeError(c, model.Errorf(model.KindUnauthorized, "caller is not authenticated"))
	}
	list, err := h.Svc.ListForMember(c.Request().Context(), caller.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMemberReservationList(list))
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Svc.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if err := service.AuthorizeOwner(callerOf(c), res); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Cancel handles DELETE /v1/reservations/:id.  The response names the
// reservation promoted from the waitlist, if any.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Svc.Cancel(c.Request().Context(), callerOf(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toCancelResp(res))
}

// List handles GET /v1/admin/reservations[?status=].
func (h *ReservationHandler) List(c echo.Context) error {
	var (
		list []model.Reservation
		err  error
	)
	if status := c.QueryParam("status"); status != "" {
		list, err = h.Svc.ListByStatus(c.Request().Context(), status)
	} else {
		list, err = h.Svc.ListAll(c.Request().Context())
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationList(list))
}

// Search handles GET /v1/admin/reservations/search.
func (h *ReservationHandler) Search(c echo.Context) error {
	themeID, ok1 := optionalUint(c, "theme_id")
	memberID, ok2 := optionalUint(c, "member_id")
	from, ok3 := optionalDate(c, "date_from")
	to, ok4 := optionalDate(c, "date_to")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return badRequest(c, "invalid search parameters")
	}
	list, err := h.Svc.ListBySearchCondition(c.Request().Context(), repository.SearchCondition{
		ThemeID:  themeID,
		MemberID: memberID,
		DateFrom: from,
		DateTo:   to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationList(list))
}

// Waitlist handles GET /v1/admin/waitlist.
func (h *ReservationHandler) Waitlist(c echo.Context) error {
	list, err := h.Svc.ListWaitlist(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationList(list))
}

// Delete handles DELETE /v1/admin/reservations/:id.  The row is removed
// without promoting anyone.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
