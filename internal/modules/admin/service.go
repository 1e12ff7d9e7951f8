package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"tourbooking/internal/domain"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/payment"
	"tourbooking/internal/pkg/logger"
	"tourbooking/internal/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	lookupLimit  = 8
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

type Service struct {
	bookings bookingStore
	tours    catalogReader[domain.Tour]
	ships    catalogReader[domain.Ship]
	agents   catalogReader[domain.Agent]
	status   statusWriter
	events   eventPublisher
	history  paymentHistory
	log      logrus.FieldLogger
}

func NewService(
	bookings bookingStore,
	tours catalogReader[domain.Tour],
	ships catalogReader[domain.Ship],
	agents catalogReader[domain.Agent],
	status statusWriter,
	events eventPublisher,
	log logrus.FieldLogger,
) *Service {
	return &Service{
		bookings: bookings,
		tours:    tours,
		ships:    ships,
		agents:   agents,
		status:   status,
		events:   events,
		log:      logger.OrDiscard(log).WithField("component", "admin"),
	}
}

// WithPaymentHistory enables the per-booking payment audit view.
func (s *Service) WithPaymentHistory(history paymentHistory) *Service {
	s.history = history
	return s
}

// -------------------- Bookings --------------------

func (s *Service) ListBookings(ctx context.Context, q ListQuery) ([]BookingView, int64, int, int, error) {
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Status != "" && !domain.BookingStatus(q.Status).Valid() {
		return nil, 0, 0, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, q.Status)
	}

	rows, total, err := s.bookings.List(ctx, repository.BookingFilter{
		Status: q.Status,
		From:   q.From,
		To:     q.To,
		Query:  strings.TrimSpace(q.Query),
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		return nil, 0, 0, 0, err
	}
	views, err := s.enrich(ctx, rows)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return views, total, q.Limit, q.Offset, nil
}

func (s *Service) GetBooking(ctx context.Context, id int64) (*BookingView, error) {
	b, err := s.booking(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, []domain.Booking{*b})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// PaymentHistory lists the reconciliation attempts recorded for a booking,
// oldest first.
func (s *Service) PaymentHistory(ctx context.Context, id int64) ([]domain.PaymentEvent, error) {
	b, err := s.booking(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.PaymentEvent{}, nil
	}
	return s.history.ListByReference(ctx, b.BookingReference)
}

// UpdateStatus routes through the payment reconciler so a manual paid
// transition sends the same e-mails as a gateway one, once.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req UpdateStatusRequest) (*BookingView, error) {
	b, err := s.booking(ctx, id)
	if err != nil {
		return nil, err
	}
	var details datatypes.JSON
	if len(req.PaymentDetails) > 0 && string(req.PaymentDetails) != "null" {
		details = datatypes.JSON(req.PaymentDetails)
	}
	_, err = s.status.MarkPaid(ctx, payment.ManualUpdate{
		BookingReference: b.BookingReference,
		Status:           domain.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		PaymentID:        req.PaymentID,
		Details:          details,
	})
	switch {
	case errors.Is(err, payment.ErrValidation):
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, payment.ErrBookingNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return s.GetBooking(ctx, id)
}

func (s *Service) DeleteBooking(ctx context.Context, id int64) error {
	b, err := s.booking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.WithField("booking_reference", b.BookingReference).Info("booking deleted")
	if s.events != nil {
		s.events.Publish(live.Event{Type: live.TypeBookingDeleted, BookingID: id, BookingReference: b.BookingReference, Source: "admin"})
	}
	return nil
}

// AssignLineItem sets the ship and agent on a line item. A nil id clears it.
func (s *Service) AssignLineItem(ctx context.Context, bookingID, itemID int64, req AssignRequest) (*BookingView, error) {
	if req.ShipID != nil {
		if _, err := s.ships.GetByID(ctx, *req.ShipID); err != nil {
			return nil, catalogErr("ship", *req.ShipID, err)
		}
	}
	if req.AgentID != nil {
		if _, err := s.agents.GetByID(ctx, *req.AgentID); err != nil {
			return nil, catalogErr("agent", *req.AgentID, err)
		}
	}
	if err := s.bookings.AssignLineItem(ctx, bookingID, itemID, req.ShipID, req.AgentID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetBooking(ctx, bookingID)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	raw, err := s.bookings.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := &Stats{PaidRevenue: raw.PaidRevenue, Outstanding: raw.Outstanding, ByStatus: make([]StatusCount, 0, len(raw.ByStatus))}
	for _, sc := range raw.ByStatus {
		out.ByStatus = append(out.ByStatus, StatusCount{Status: sc.Status, Count: sc.Count})
		out.Total += sc.Count
	}
	return out, nil
}

func (s *Service) booking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, ErrNotFound
	}
	return b, err
}

// -------------------- Enrichment --------------------

// enrich resolves tour, ship and agent names for the given bookings. Each
// distinct id is looked up once, at most lookupLimit at a time.
func (s *Service) enrich(ctx context.Context, rows []domain.Booking) ([]BookingView, error) {
	var tourIDs, shipIDs, agentIDs []int64
	for _, b := range rows {
		tourIDs = append(tourIDs, b.TourID)
		for _, it := range b.Tours {
			tourIDs = append(tourIDs, it.TourID)
			if it.ShipID != nil {
				shipIDs = append(shipIDs, *it.ShipID)
			}
			if it.AgentID != nil {
				agentIDs = append(agentIDs, *it.AgentID)
			}
		}
	}

	start := time.Now()
	tourNames, err := lookupNames(ctx, tourIDs, s.tours, func(t *domain.Tour) string { return t.Name })
	if err != nil {
		return nil, err
	}
	shipNames, err := lookupNames(ctx, shipIDs, s.ships, func(sh *domain.Ship) string { return sh.Name })
	if err != nil {
		return nil, err
	}
	agentNames, err := lookupNames(ctx, agentIDs, s.agents, func(a *domain.Agent) string { return a.Name })
	if err != nil {
		return nil, err
	}
	s.log.WithField("bookings", len(rows)).WithField("took", time.Since(start).String()).Debug("booking names resolved")

	views := make([]BookingView, len(rows))
	for i, b := range rows {
		v := BookingView{Booking: b, TourName: tourNames[b.TourID], Tours: make([]LineItem, len(b.Tours))}
		for j, it := range b.Tours {
			li := LineItem{BookingTour: it, TourName: tourNames[it.TourID]}
			if it.ShipID != nil {
				li.ShipName = shipNames[*it.ShipID]
			}
			if it.AgentID != nil {
				li.AgentName = agentNames[*it.AgentID]
			}
			v.Tours[j] = li
		}
		views[i] = v
	}
	return views, nil
}

// lookupNames fetches each distinct id concurrently. Results land in slots
// matching the id order; ids that no longer exist resolve to "".
func lookupNames[T repository.CatalogEntity](ctx context.Context, ids []int64, reader catalogReader[T], name func(*T) string) (map[int64]string, error) {
	distinct := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}

	names := make([]string, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i, id := range distinct {
		i, id := i, id
		g.Go(func() error {
			row, err := reader.GetByID(gctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			names[i] = name(row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int64]string, len(distinct))
	for i, id := range distinct {
		out[id] = names[i]
	}
	return out, nil
}

func catalogErr(kind string, id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: unknown %s %d", ErrValidation, kind, id)
	}
	return err
}
