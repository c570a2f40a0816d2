package handler

import (
	"time"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/service"
)

// ----- response shapes -----

type timeResp struct {
	ID      uint64 `json:"id"`
	StartAt string `json:"start_at"`
}

type themeResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
}

type availableTimeResp struct {
	timeResp
	AlreadyBooked bool `json:"already_booked"`
}

type reservationResp struct {
	ID        uint64    `json:"id"`
	MemberID  uint64    `json:"member_id"`
	Date      string    `json:"date"`
	Time      timeResp  `json:"time"`
	ThemeID   uint64    `json:"theme_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type memberReservationResp struct {
	reservationResp
	Rank int `json:"rank,omitempty"`
}

type cancelResp struct {
	Canceled reservationResp  `json:"canceled"`
	Promoted *reservationResp `json:"promoted,omitempty"`
}

func toTimeResp(t model.ReservationTime) timeResp {
	return timeResp{ID: t.ID, StartAt: model.FormatClock(t.StartAt)}
}

func toThemeResp(t model.Theme) themeResp {
	return themeResp{ID: t.ID, Name: t.Name, Description: t.Description, Thumbnail: t.Thumbnail}
}

func toReservationResp(r model.Reservation) reservationResp {
	return reservationResp{
		ID:        r.ID,
		MemberID:  r.MemberID,
		Date:      r.Date().Format(model.DateLayout),
		Time:      timeResp{ID: r.Slot.TimeID, StartAt: model.FormatClock(r.StartAt())},
		ThemeID:   r.Slot.ThemeID,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func toReservationList(rs []model.Reservation) []reservationResp {
	out := make([]reservationResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservationResp(r))
	}
	return out
}

func toMemberReservationList(rs []service.MemberReservation) []memberReservationResp {
	out := make([]memberReservationResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, memberReservationResp{reservationResp: toReservationResp(r.Reservation), Rank: r.Rank})
	}
	return out
}

func toCancelResp(res service.CancelResult) cancelResp {
	out := cancelResp{Canceled: toReservationResp(res.Canceled)}
	if res.Promoted != nil {
		p := toReservationResp(*res.Promoted)
		out.Promoted = &p
	}
	return out
}
