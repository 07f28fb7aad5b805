package appointment

import "time"

// Status is the lifecycle state of an appointment as reported by the backend.
type Status string

const (
	StatusPending   Status = "pending"
	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are accepted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusBooked, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Role distinguishes the two sides of the marketplace.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStylist  Role = "stylist"
)

// Viewer is the authenticated actor evaluating or attempting an action.
type Viewer struct {
	ID   int64
	Role Role
}

// Party is a user reference embedded in an appointment (stylist or customer).
type Party struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Location string `json:"location,omitempty"`
}

// Review marks that a review has been left for a completed appointment.
type Review struct {
	ID      int64  `json:"id"`
	Rating  int    `json:"rating,omitempty"`
	Content string `json:"content,omitempty"`
}

// Appointment is a snapshot of one appointment as returned by the backend.
// A snapshot with no Customer is an open slot and must be pending; once a
// customer is attached, pending means "awaiting stylist confirmation".
type Appointment struct {
	ID              int64     `json:"id"`
	Status          Status    `json:"status"`
	Time            time.Time `json:"time"`
	Location        string    `json:"location,omitempty"`
	ServicesText    string    `json:"services_text,omitempty"`
	SelectedService string    `json:"selected_service,omitempty"`
	Stylist         *Party    `json:"stylist,omitempty"`
	Customer        *Party    `json:"customer,omitempty"`
	Review          *Review   `json:"review,omitempty"`
}

// Slot reports whether a is an open slot (no customer attached yet).
func (a Appointment) Slot() bool {
	return a.Customer == nil
}
