package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tool names offered to the model.
const (
	ToolGetClinics        = "get_clinics"
	ToolGetDoctors        = "get_doctors"
	ToolCheckAvailability = "check_availability"
	ToolBookAppointment   = "book_appointment"
)

const isoDate = "2006-01-02"

// ID accepts a JSON string or number so the model may send either "7" or 7.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// ToolArgs is the parsed argument record of one tool call. The concrete type
// identifies the tool.
type ToolArgs interface {
	ToolName() string
}

type GetClinicsArgs struct {
	Query string `json:"query,omitempty"`
}

type GetDoctorsArgs struct {
	ClinicID       ID     `json:"clinic_id,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

type CheckAvailabilityArgs struct {
	DoctorID ID     `json:"doctor_id"`
	Date     string `json:"date"`
}

type BookAppointmentArgs struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	DoctorID ID     `json:"doctor_id"`
	ClinicID ID     `json:"clinic_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (GetClinicsArgs) ToolName() string        { return ToolGetClinics }
func (GetDoctorsArgs) ToolName() string        { return ToolGetDoctors }
func (CheckAvailabilityArgs) ToolName() string { return ToolCheckAvailability }
func (BookAppointmentArgs) ToolName() string   { return ToolBookAppointment }

// ParseArgs decodes and validates the JSON arguments of the named tool.
// Errors wrap ErrUnknownTool, or are an *ArgumentError wrapping
// ErrInvalidArguments.
func ParseArgs(name, raw string) (ToolArgs, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	switch name {
	case ToolGetClinics:
		var a GetClinicsArgs
		if err := decodeArgs(name, raw, &a); err != nil {
			return nil, err
		}
		a.Query = strings.TrimSpace(a.Query)
		return a, nil
	case ToolGetDoctors:
		var a GetDoctorsArgs
		if err := decodeArgs(name, raw, &a); err != nil {
			return nil, err
		}
		a.Specialization = strings.TrimSpace(a.Specialization)
		return a, nil
	case ToolCheckAvailability:
		var a CheckAvailabilityArgs
		if err := decodeArgs(name, raw, &a); err != nil {
			return nil, err
		}
		if a.DoctorID == "" {
			return nil, invalidArgs(name, "doctor_id is required")
		}
		if err := validateDate(name, a.Date); err != nil {
			return nil, err
		}
		return a, nil
	case ToolBookAppointment:
		var a BookAppointmentArgs
		if err := decodeArgs(name, raw, &a); err != nil {
			return nil, err
		}
		a.Name = strings.TrimSpace(a.Name)
		a.Phone = strings.TrimSpace(a.Phone)
		a.Time = strings.TrimSpace(a.Time)
		switch {
		case a.Name == "":
			return nil, invalidArgs(name, "name is required")
		case a.Phone == "":
			return nil, invalidArgs(name, "phone is required")
		case a.DoctorID == "":
			return nil, invalidArgs(name, "doctor_id is required")
		case a.Time == "":
			return nil, invalidArgs(name, "time is required")
		}
		if err := validateDate(name, a.Date); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

func decodeArgs(name, raw string, dst any) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return invalidArgs(name, err.Error())
	}
	return nil
}

func validateDate(name, date string) error {
	if date == "" {
		return invalidArgs(name, "date is required")
	}
	if _, err := time.Parse(isoDate, date); err != nil {
		return invalidArgs(name, "date must be YYYY-MM-DD")
	}
	return nil
}

// ArgumentError describes why a tool call's arguments were rejected.
type ArgumentError struct {
	Tool   string
	Detail string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("booking: invalid arguments for %s: %s", e.Tool, e.Detail)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArguments }

func invalidArgs(name, detail string) error {
	return &ArgumentError{Tool: name, Detail: detail}
}

// storageDate converts YYYY-MM-DD into the DD/MM/YYYY form used by appointments.
func storageDate(date string) string {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}
