package payment

import (
	"fmt"
	"strconv"
	"strings"

	"tourbooking/internal/modules/booking"
)

// Metadata keys written on every payment created here. Lookups also accept
// the snake_case spelling used by older storefront builds.
const (
	metaBookingReference = "bookingReference"
	metaCustomerName     = "customerName"
	metaCustomerEmail    = "customerEmail"
	metaCustomerPhone    = "customerPhone"
	metaTourID           = "tourId"
	metaTourDate         = "tourDate"
	metaAdults           = "adults"
	metaChildren         = "children"
	metaTotalPax         = "totalPax"
	metaTotalPrice       = "totalPrice"
	metaNotes            = "notes"
	metaSource           = "source"
)

var metaAliases = map[string][]string{
	metaBookingReference: {"booking_reference", "reference"},
	metaCustomerName:     {"customer_name", "name"},
	metaCustomerEmail:    {"customer_email", "email"},
	metaCustomerPhone:    {"customer_phone", "phone"},
	metaTourID:           {"tour_id"},
	metaTourDate:         {"tour_date", "date"},
	metaTotalPax:         {"total_pax"},
	metaTotalPrice:       {"total_price", "amount"},
}

type metadata map[string]interface{}

// merge returns a copy of base overlaid with over; over wins on conflicts.
func merge(base, over map[string]interface{}) metadata {
	out := make(metadata, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		if v != nil && v != "" {
			out[k] = v
		}
	}
	return out
}

func (m metadata) raw(key string) (interface{}, bool) {
	if v, ok := m[key]; ok && v != nil {
		return v, true
	}
	for _, alias := range metaAliases[key] {
		if v, ok := m[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (m metadata) str(key string) string {
	v, ok := m.raw(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func (m metadata) float(key string) float64 {
	v, ok := m.raw(key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	}
	return 0
}

func (m metadata) int(key string) int {
	return int(m.float(key))
}

func (m metadata) reference() string {
	return strings.ToUpper(m.str(metaBookingReference))
}

// bookingRequest rebuilds a booking request from payment metadata. ok is false
// unless the customer, tour, date and passengers are all present.
func (m metadata) bookingRequest(paid float64) (booking.CreatePendingRequest, bool) {
	req := booking.CreatePendingRequest{
		CustomerInfo: booking.CustomerInfo{
			Name:  m.str(metaCustomerName),
			Email: m.str(metaCustomerEmail),
			Phone: m.str(metaCustomerPhone),
		},
		BookingData: booking.BookingData{
			TourID:     booking.FlexID(m.int(metaTourID)),
			Date:       m.str(metaTourDate),
			Adults:     m.int(metaAdults),
			Children:   m.int(metaChildren),
			TotalPax:   m.int(metaTotalPax),
			TotalPrice: m.float(metaTotalPrice),
			Notes:      m.str(metaNotes),
			Source:     m.str(metaSource),
		},
	}
	if req.BookingData.TotalPrice <= 0 {
		req.BookingData.TotalPrice = paid
	}
	if req.BookingData.Adults == 0 && req.BookingData.TotalPax > 0 {
		req.BookingData.Adults = req.BookingData.TotalPax - req.BookingData.Children
	}

	ok := req.CustomerInfo.Name != "" &&
		req.CustomerInfo.Email != "" &&
		req.BookingData.TourID > 0 &&
		req.BookingData.Date != "" &&
		req.BookingData.Adults+req.BookingData.Children > 0
	return req, ok
}
