package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/wpchat-gateway/internal/observability/metrics"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

var tracer = otel.Tracer("wpchat.internal.booking")

type toolRepository interface {
	SearchClinics(ctx context.Context, query string) ([]Clinic, error)
	ListDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error)
	Schedule(ctx context.Context, doctorID string, weekday int) (*Schedule, error)
	BookedTimes(ctx context.Context, doctorID, date string) ([]string, error)
	InsertAppointment(ctx context.Context, a Appointment) error
}

// AvailabilityResult is the check_availability payload. AvailableSlots is
// either a list of times or the string "None".
type AvailabilityResult struct {
	Date           string `json:"date"`
	DoctorID       string `json:"doctor_id"`
	AvailableSlots any    `json:"available_slots"`
	Message        string `json:"message"`
}

// BookingResult is the book_appointment success payload.
type BookingResult struct {
	Success   bool                `json:"success"`
	BookingID string              `json:"booking_id"`
	Status    string              `json:"status"`
	Details   BookAppointmentArgs `json:"details"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type failedBooking struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Router executes tool calls against the booking repository. Every outcome,
// including failures, is returned as a JSON document for the model.
type Router struct {
	repo    toolRepository
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics
	now     func() time.Time
	newID   func() string
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.GatewayMetrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

func NewRouter(repo toolRepository, logger *logging.Logger, opts ...RouterOption) *Router {
	if repo == nil {
		panic("booking: repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Router{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  newAppointmentID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tools returns the catalog offered to the model.
func (r *Router) Tools() []openai.Tool {
	return Catalog()
}

// Invoke parses arguments for name and runs the tool.
func (r *Router) Invoke(ctx context.Context, name, arguments string) string {
	ctx, span := tracer.Start(ctx, "booking.tool")
	defer span.End()
	span.SetAttributes(attribute.String("booking.tool", name))

	args, err := ParseArgs(name, arguments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid tool call")
		var argErr *ArgumentError
		switch {
		case errors.As(err, &argErr):
			r.metrics.ObserveTool(name, "invalid")
			r.logger.Warn("tool arguments rejected", "tool", name, "error", err)
			return encode(errorPayload{Error: fmt.Sprintf("invalid arguments for %s: %s", argErr.Tool, argErr.Detail)})
		default:
			r.metrics.ObserveTool("unknown", "unknown")
			r.logger.Warn("unknown tool requested", "tool", name)
			return encode(errorPayload{Error: "unknown tool: " + name})
		}
	}

	var (
		result any
		runErr error
	)
	switch a := args.(type) {
	case GetClinicsArgs:
		result, runErr = r.getClinics(ctx, a)
	case GetDoctorsArgs:
		result, runErr = r.getDoctors(ctx, a)
	case CheckAvailabilityArgs:
		result, runErr = r.checkAvailability(ctx, a)
	case BookAppointmentArgs:
		result, runErr = r.bookAppointment(ctx, a)
	}
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "tool failed")
		r.metrics.ObserveTool(name, "error")
		r.logger.Error("tool execution failed", "tool", name, "error", runErr)
	} else {
		r.metrics.ObserveTool(name, "ok")
	}
	return encode(result)
}

// getClinics and getDoctors degrade to an empty list on store errors.
func (r *Router) getClinics(ctx context.Context, a GetClinicsArgs) (any, error) {
	clinics, err := r.repo.SearchClinics(ctx, a.Query)
	if err != nil {
		return []Clinic{}, err
	}
	return clinics, nil
}

func (r *Router) getDoctors(ctx context.Context, a GetDoctorsArgs) (any, error) {
	doctors, err := r.repo.ListDoctors(ctx, DoctorFilter{ClinicID: string(a.ClinicID), Specialization: a.Specialization})
	if err != nil {
		return []Doctor{}, err
	}
	return doctors, nil
}

func (r *Router) checkAvailability(ctx context.Context, a CheckAvailabilityArgs) (any, error) {
	failed := errorPayload{Error: "Failed to check availability"}

	day, err := time.Parse(isoDate, a.Date)
	if err != nil {
		return failed, err
	}
	doctorID := string(a.DoctorID)
	schedule, err := r.repo.Schedule(ctx, doctorID, int(day.Weekday()))
	if err != nil {
		return failed, err
	}
	if schedule == nil {
		return messagePayload{Message: "Doctor is not working on this day."}, nil
	}

	slots, err := GenerateSlots(schedule.StartTime, schedule.EndTime, schedule.SlotDurationMinutes)
	if err != nil {
		return failed, err
	}
	booked, err := r.repo.BookedTimes(ctx, doctorID, storageDate(a.Date))
	if err != nil {
		return failed, err
	}

	result := AvailabilityResult{Date: a.Date, DoctorID: doctorID}
	if free := FreeSlots(slots, booked); len(free) > 0 {
		result.AvailableSlots = free
		result.Message = "Slots available"
	} else {
		result.AvailableSlots = "None"
		result.Message = "Fully booked"
	}
	return result, nil
}

func (r *Router) bookAppointment(ctx context.Context, a BookAppointmentArgs) (any, error) {
	clinicID := string(a.ClinicID)
	if clinicID == "" {
		clinicID = defaultClinicID
	}
	reason := a.Reason
	if reason == "" {
		reason = defaultReason
	}
	appt := Appointment{
		ID:           r.newID(),
		ClinicID:     clinicID,
		DoctorID:     string(a.DoctorID),
		PatientName:  a.Name,
		PatientPhone: a.Phone,
		Date:         storageDate(a.Date),
		Time:         a.Time,
		Status:       appointmentStatusPending,
		Reason:       reason,
		CreatedAt:    r.now().UnixMilli(),
		Source:       appointmentSource,
	}
	if err := r.repo.InsertAppointment(ctx, appt); err != nil {
		return failedBooking{Success: false, Message: "Database error"}, err
	}
	r.logger.Info("appointment created", "booking_id", appt.ID, "doctor_id", appt.DoctorID, "date", appt.Date)
	return BookingResult{Success: true, BookingID: appt.ID, Status: "confirmed", Details: a}, nil
}

// newAppointmentID returns "apt-" followed by nine base36 characters.
func newAppointmentID() string {
	id := uuid.New()
	digits := new(big.Int).SetBytes(id[:]).Text(36)
	for len(digits) < 9 {
		digits = "0" + digits
	}
	return "apt-" + digits[len(digits)-9:]
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to encode tool result"}`
	}
	return string(data)
}
