package appointment

// Eligibility predicates, pure functions of (appointment, viewer). These are
// advisory only: the backend remains authoritative and may still reject an
// action the local snapshot considered eligible.

// CanBook reports whether the appointment is an open slot a customer may book.
func CanBook(a Appointment) bool {
	return a.Status == StatusPending && a.Customer == nil
}

// BookedBy reports whether the viewer is the customer attached to a.
func BookedBy(a Appointment, v Viewer) bool {
	return a.Customer != nil && a.Customer.ID == v.ID
}

// OwnedBy reports whether the viewer is the stylist who owns a.
func OwnedBy(a Appointment, v Viewer) bool {
	return v.Role == RoleStylist && a.Stylist != nil && a.Stylist.ID == v.ID
}

// CanReview reports whether the viewer may leave a review: the appointment is
// completed, has no review yet, and the viewer is the attached customer.
func CanReview(a Appointment, v Viewer) bool {
	return a.Status == StatusCompleted &&
		a.Review == nil &&
		v.Role == RoleCustomer &&
		BookedBy(a, v)
}

// CanCancel reports whether the viewer may cancel: the appointment is pending
// or booked and the viewer participates in it (attached customer or owning
// stylist).
func CanCancel(a Appointment, v Viewer) bool {
	if a.Status != StatusPending && a.Status != StatusBooked {
		return false
	}
	if v.Role == RoleCustomer {
		return BookedBy(a, v)
	}
	return OwnedBy(a, v)
}

// CanAcceptOrDecline reports whether the viewer may confirm or decline a
// booking request: a customer is attached, the appointment is still pending,
// and the viewer is the owning stylist.
func CanAcceptOrDecline(a Appointment, v Viewer) bool {
	return a.Status == StatusPending && a.Customer != nil && OwnedBy(a, v)
}

// CanComplete reports whether the owning stylist may mark a as completed.
func CanComplete(a Appointment, v Viewer) bool {
	return a.Status == StatusBooked && OwnedBy(a, v)
}
