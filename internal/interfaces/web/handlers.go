package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/tablesched/internal/application/usecases"
	"github.com/example/tablesched/internal/domain/reservation"
	"github.com/example/tablesched/internal/domain/timeline"
)

type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

type availabilityBody struct {
	Success     bool   `json:"success"`
	Available   bool   `json:"available"`
	IsAvailable bool   `json:"isAvailable"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`

	Date              string   `json:"date"`
	Time              string   `json:"time"`
	Guests            int      `json:"guests"`
	OccupiedGuests    int      `json:"occupiedGuests"`
	RemainingSeats    int      `json:"remainingSeats"`
	RemainingCapacity int      `json:"remainingCapacity"`
	LatestStart       string   `json:"latestStart,omitempty"`
	Alternatives      []string `json:"alternatives,omitempty"`
}

type createBody struct {
	availabilityBody
	ReservationID string `json:"reservation_id,omitempty"`
	Status        string `json:"status"`
	Replayed      bool   `json:"replayed,omitempty"`
}

type reservationBody struct {
	Success       bool   `json:"success"`
	ReservationID string `json:"reservation_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Name          string `json:"name"`
	Guests        int    `json:"guests"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

func (s *Server) checkAvailability(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	a, err := s.Reservations.CheckAvailability(c.Request.Context(), usecases.Input{Date: req.Date, Time: req.Time, Guests: req.Guests})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAvailability(a))
}

func (s *Server) createReservation(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	out, err := s.Reservations.CreateReservation(c.Request.Context(), usecases.CreateInput{
		Input:    usecases.Input{Date: req.Date, Time: req.Time, Guests: req.Guests},
		Name:     req.Name,
		Phone:    req.Phone,
		DedupKey: req.dedupKey(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	body := createBody{availabilityBody: toAvailability(out.Availability), ReservationID: out.ID, Replayed: out.Replayed}
	body.Success = out.ID != ""
	if body.Success {
		body.Status = string(reservation.StatusConfirmed)
	} else {
		body.Status = "not_available"
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) cancelReservation(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	r, err := s.Reservations.CancelReservation(c.Request.Context(), usecases.CancelInput{
		ID:    req.ReservationID,
		Date:  req.Date,
		Time:  req.Time,
		Phone: req.Phone,
		Name:  req.Name,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	body := toReservation(r)
	body.Message = "reservation cancelled"
	c.JSON(http.StatusOK, body)
}

func (s *Server) lookupByPhone(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	r, err := s.Reservations.LookupByPhone(c.Request.Context(), req.Phone)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservation(r))
}

func (s *Server) bind(c *gin.Context) (webhookRequest, bool) {
	body := map[string]any{}
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.fail(c, fmt.Errorf("%w: body must be a JSON object", reservation.ErrInvalidRequest))
		return webhookRequest{}, false
	}
	return parseWebhook(body, c.GetHeader("Idempotency-Key")), true
}

// fail maps err to a status and a stable code. Domain "not found" is a normal
// answer for the voice agent and keeps 200.
func (s *Server) fail(c *gin.Context, err error) {
	code := reservation.CodeOf(err)
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case reservation.IsInputError(err):
		status, msg = http.StatusBadRequest, err.Error()
	case code == reservation.CodeNotFound:
		status, msg = http.StatusOK, "no matching reservation"
	case code == reservation.CodeDuplicateInFlight:
		status, msg = http.StatusConflict, "the same request is already being processed"
	case code == reservation.CodeRepositoryUnavailable:
		status, msg = http.StatusServiceUnavailable, "reservation system temporarily unavailable"
	}

	log := loggerFrom(c, s.log())
	if status >= 500 {
		log.Error("request failed", zap.String("code", string(code)), zap.Error(err))
	} else {
		log.Info("request rejected", zap.String("code", string(code)), zap.Error(err))
	}
	c.JSON(status, errorBody{Success: false, Code: string(code), Error: msg})
}

func toAvailability(a usecases.Availability) availabilityBody {
	b := availabilityBody{
		Success:           true,
		Available:         a.Available,
		IsAvailable:       a.Available,
		Code:              string(a.Code),
		Message:           a.Reason,
		Date:              a.Date.String(),
		Time:              timeline.ToWallClock(a.Start),
		Guests:            a.Guests,
		OccupiedGuests:    a.OccupiedGuests,
		RemainingSeats:    a.RemainingSeats,
		RemainingCapacity: a.RemainingSeats,
	}
	if !a.Hours.Closed && a.Hours.Close > 0 {
		b.LatestStart = timeline.ToWallClock(a.LatestStart)
	}
	for _, alt := range a.Alternatives {
		b.Alternatives = append(b.Alternatives, timeline.ToWallClock(alt))
	}
	return b
}

func toReservation(r reservation.Reservation) reservationBody {
	b := reservationBody{
		Success:       true,
		ReservationID: r.ID,
		Date:          r.Date.String(),
		Name:          r.Name,
		Guests:        r.Guests,
		Status:        string(r.Status),
	}
	if r.HasStart {
		b.Time = r.StartText()
	}
	return b
}
