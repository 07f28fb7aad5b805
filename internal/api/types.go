package api

import (
	"time"

	"github.com/styleslot/styleslot-go/internal/appointment"
)

// User is the authenticated account as the backend reports it.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Location string `json:"location,omitempty"`
}

// Viewer converts the account into the actor used for eligibility checks.
func (u User) Viewer() appointment.Viewer {
	return appointment.Viewer{ID: u.ID, Role: appointment.Role(u.Role)}
}

// Credentials is the outcome of a successful login or signup.
type Credentials struct {
	Token string
	User  User
}

// Pagination is the backend's page envelope metadata.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count,omitempty"`
}

// More reports whether further pages exist.
func (p Pagination) More() bool {
	return p.CurrentPage < p.TotalPages
}

// AppointmentPage is one page of appointment snapshots.
type AppointmentPage struct {
	Appointments []appointment.Appointment `json:"appointments"`
	Meta         Pagination                `json:"meta"`
}

// BrowseFilters narrow the public appointment browse listing.
type BrowseFilters struct {
	Location  string
	Date      string
	ServiceID int64
	Page      int
	PerPage   int
}

// StatusFilters narrow my_appointments / stylist listings by status.
type StatusFilters struct {
	Status  appointment.Status
	Page    int
	PerPage int
}

// CreateAvailability describes a new open slot a stylist offers.
type CreateAvailability struct {
	Time         time.Time `json:"time"`
	Location     string    `json:"location"`
	ServicesText string    `json:"services_text,omitempty"`
}

// Review is a published review of a stylist.
type Review struct {
	ID            int64     `json:"id"`
	Rating        int       `json:"rating"`
	Content       string    `json:"content"`
	CustomerName  string    `json:"customer_name,omitempty"`
	AppointmentID int64     `json:"appointment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Payment is the state of an appointment's payment as the backend reports it.
type Payment struct {
	ID       int64  `json:"id,omitempty"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount_cents,omitempty"`
	Currency string `json:"currency,omitempty"`
}
