// Package booking implements the clinic booking tools the assistant can call:
// clinic search, doctor lookup, slot availability and appointment creation.
package booking

import "errors"

var (
	// ErrUnknownTool is returned by ParseArgs for a tool name outside the catalog.
	ErrUnknownTool = errors.New("booking: unknown tool")
	// ErrInvalidArguments wraps every argument decoding or validation failure.
	ErrInvalidArguments = errors.New("booking: invalid arguments")
)

// Clinic is one row of the clinics table as returned to the model.
type Clinic struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	City     *string `json:"city"`
	Location *string `json:"location"`
	Phone    *string `json:"phone"`
}

// Doctor joins doctors with users, specializations and clinics.
type Doctor struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	ExperienceYears *int32  `json:"experience_years"`
	Specialization  *string `json:"specialization"`
	ClinicName      *string `json:"clinic_name"`
}

// DoctorFilter narrows ListDoctors. Empty fields are not applied.
type DoctorFilter struct {
	ClinicID       string
	Specialization string
}

// Schedule is a doctor's working window for one weekday. Times use the
// "hh:mm AM" clock.
type Schedule struct {
	StartTime           string
	EndTime             string
	SlotDurationMinutes int
}

// Appointment is the row inserted by book_appointment.
type Appointment struct {
	ID           string
	ClinicID     string
	DoctorID     string
	PatientName  string
	PatientPhone string
	// Date is DD/MM/YYYY.
	Date      string
	Time      string
	Status    string
	Reason    string
	CreatedAt int64
	Source    string
}

const (
	appointmentStatusPending = "PENDING"
	appointmentSource        = "WHATSAPP"
	defaultClinicID          = "1"
	defaultReason            = "WhatsApp Booking"
	defaultSlotMinutes       = 30
)
