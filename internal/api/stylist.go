package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/styleslot/styleslot-go/internal/appointment"
)

// StylistAppointments lists the viewing stylist's appointments.
func (c *Client) StylistAppointments(ctx context.Context, filters StatusFilters) (AppointmentPage, error) {
	var page AppointmentPage
	if err := c.get(ctx, "/stylist/appointments", statusQuery(filters), &page); err != nil {
		return AppointmentPage{}, err
	}
	return page, nil
}

// CreateAvailability publishes a new open slot.
func (c *Client) CreateAvailability(ctx context.Context, slot CreateAvailability) (appointment.Appointment, error) {
	body := map[string]CreateAvailability{"appointment": slot}
	data, _, err := c.invoke(ctx, http.MethodPost, "/stylist/appointments", nil, body, permissionKind)
	if err != nil {
		return appointment.Appointment{}, err
	}
	return decodeAppointment(data)
}

// Accept confirms a pending booking request.
func (c *Client) Accept(ctx context.Context, id int64) (appointment.Appointment, error) {
	data, _, err := c.invoke(ctx, http.MethodPatch, fmt.Sprintf("/stylist/appointments/%d/accept", id), nil, nil, transitionKind)
	if err != nil {
		return appointment.Appointment{}, err
	}
	return decodeAppointment(data)
}

// StylistCancel declines a pending request or cancels a booked appointment
// from the stylist side. The backend uses one route for both.
func (c *Client) StylistCancel(ctx context.Context, id int64) (appointment.Appointment, error) {
	data, _, err := c.invoke(ctx, http.MethodDelete, fmt.Sprintf("/stylist/appointments/%d", id), nil, nil, transitionKind)
	if err != nil {
		return appointment.Appointment{}, err
	}
	return decodeAppointment(data)
}

// Complete marks a booked appointment as completed.
func (c *Client) Complete(ctx context.Context, id int64) (appointment.Appointment, error) {
	data, _, err := c.invoke(ctx, http.MethodPatch, fmt.Sprintf("/stylist/appointments/%d/complete", id), nil, nil, transitionKind)
	if err != nil {
		return appointment.Appointment{}, err
	}
	return decodeAppointment(data)
}
