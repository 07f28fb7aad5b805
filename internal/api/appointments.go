package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/styleslot/styleslot-go/internal/appointment"
)

type appointmentEnvelope struct {
	Appointment appointment.Appointment `json:"appointment"`
}

// Appointments browses open slots, optionally filtered.
func (c *Client) Appointments(ctx context.Context, filters BrowseFilters) (AppointmentPage, error) {
	q := url.Values{}
	if filters.Location != "" {
		q.Set("location", filters.Location)
	}
	if filters.Date != "" {
		q.Set("date", filters.Date)
	}
	if filters.ServiceID > 0 {
		q.Set("service_id", strconv.FormatInt(filters.ServiceID, 10))
	}
	addPaging(q, filters.Page, filters.PerPage)

	var page AppointmentPage
	if err := c.get(ctx, "/appointments", q, &page); err != nil {
		return AppointmentPage{}, err
	}
	return page, nil
}

// Appointment fetches a single appointment snapshot.
func (c *Client) Appointment(ctx context.Context, id int64) (appointment.Appointment, error) {
	var envelope appointmentEnvelope
	if err := c.get(ctx, fmt.Sprintf("/appointments/%d", id), nil, &envelope); err != nil {
		return appointment.Appointment{}, err
	}
	return envelope.Appointment, nil
}

// MyAppointments lists the viewer's bookings.
func (c *Client) MyAppointments(ctx context.Context, filters StatusFilters) (AppointmentPage, error) {
	var page AppointmentPage
	if err := c.get(ctx, "/appointments/my_appointments", statusQuery(filters), &page); err != nil {
		return AppointmentPage{}, err
	}
	return page, nil
}

// Book attempts to attach the viewing customer to an open slot. The backend
// decides eligibility; rejection reasons come back verbatim wrapped in
// ErrIneligibleBooking.
func (c *Client) Book(ctx context.Context, id int64, selectedService string) (appointment.Appointment, error) {
	body := map[string]string{}
	if selectedService != "" {
		body["selected_service"] = selectedService
	}
	data, _, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/book", id), nil, body, bookingKind)
	if err != nil {
		return appointment.Appointment{}, err
	}
	return decodeAppointment(data)
}

// Cancel cancels the viewer's booking from the customer side.
func (c *Client) Cancel(ctx context.Context, id int64) (appointment.Appointment, error) {
	data, _, err := c.invoke(ctx, http.MethodDelete, fmt.Sprintf("/appointments/%d/cancel", id), nil, nil, transitionKind)
	if err != nil {
		return appointment.Appointment{}, err
	}
	return decodeAppointment(data)
}

func decodeAppointment(data []byte) (appointment.Appointment, error) {
	var envelope appointmentEnvelope
	if err := decodeInto("appointment", data, &envelope); err != nil {
		return appointment.Appointment{}, err
	}
	return envelope.Appointment, nil
}

func addPaging(q url.Values, page, perPage int) {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
}

func statusQuery(filters StatusFilters) url.Values {
	q := url.Values{}
	if filters.Status != "" {
		q.Set("status", string(filters.Status))
	}
	addPaging(q, filters.Page, filters.PerPage)
	return q
}
