package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type paymentEnvelope struct {
	Payment Payment `json:"payment"`
}

// CreatePayment charges the appointment using an opaque payment source token
// obtained from the payment provider's own capture flow.
func (c *Client) CreatePayment(ctx context.Context, appointmentID int64, sourceID string) (Payment, error) {
	if strings.TrimSpace(sourceID) == "" {
		return Payment{}, errors.New("api: payment source required")
	}
	body := map[string]string{"source_id": sourceID}
	data, _, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/payment", appointmentID), nil, body, permissionKind)
	if err != nil {
		return Payment{}, err
	}
	return decodePayment(data)
}

// PaymentStatus reads the current payment state for an appointment.
func (c *Client) PaymentStatus(ctx context.Context, appointmentID int64) (Payment, error) {
	var envelope paymentEnvelope
	if err := c.get(ctx, fmt.Sprintf("/appointments/%d/payment/status", appointmentID), nil, &envelope); err != nil {
		return Payment{}, err
	}
	return envelope.Payment, nil
}

// RefundPayment refunds the appointment's captured payment.
func (c *Client) RefundPayment(ctx context.Context, appointmentID int64) (Payment, error) {
	data, _, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/payment/refund", appointmentID), nil, nil, permissionKind)
	if err != nil {
		return Payment{}, err
	}
	return decodePayment(data)
}

func decodePayment(data []byte) (Payment, error) {
	var envelope paymentEnvelope
	if err := decodeInto("payment", data, &envelope); err != nil {
		return Payment{}, err
	}
	return envelope.Payment, nil
}
