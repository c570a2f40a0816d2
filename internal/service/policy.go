package service

import "github.com/iliyamo/escape-room-reservation/internal/model"

// ResolveMemberID decides whom a booking is for.  USER callers always book
// for themselves and may not name anyone else; ADMIN callers may name any
// member, and zero means the admin.
func ResolveMemberID(caller model.Caller, requested uint64) (uint64, error) {
	if caller.ID == 0 {
		return 0, model.Errorf(model.KindUnauthorized, "caller is not authenticated")
	}
	if requested == 0 || requested == caller.ID {
		return caller.ID, nil
	}
	if caller.IsAdmin() {
		return requested, nil
	}
	return 0, model.Errorf(model.KindForbidden, "member %d may not act for member %d", caller.ID, requested)
}

// AuthorizeOwner allows admins everything and members only their own
// reservations.
func AuthorizeOwner(caller model.Caller, r model.Reservation) error {
	if caller.IsAdmin() || caller.ID == r.MemberID {
		return nil
	}
	return model.Errorf(model.KindForbidden, "reservation %d belongs to another member", r.ID)
}
