package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	clinicLimit         = 5
	doctorDefaultLimit  = 10
	knowledgeListLimit  = 5
	specializationLimit = 10
)

const doctorSelect = `
	SELECT d.id, u.name, d.experience_years, s.name AS specialization, c.name AS clinic_name
	FROM doctors d
	JOIN booking_users u ON d.user_id = u.id
	LEFT JOIN specializations s ON d.specialization_id = s.id
	LEFT JOIN clinics c ON d.clinic_id = c.id
`

// Repository reads and writes the booking tables.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(q querier) *Repository {
	return &Repository{db: q}
}

// SearchClinics matches query against clinic name or city. An empty query
// lists the first clinics.
func (r *Repository) SearchClinics(ctx context.Context, query string) ([]Clinic, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if query == "" {
		rows, err = r.db.Query(ctx, `SELECT id, name, city, location, phone FROM clinics ORDER BY id LIMIT $1`, clinicLimit)
	} else {
		pattern := "%" + query + "%"
		rows, err = r.db.Query(ctx, `
			SELECT id, name, city, location, phone
			FROM clinics
			WHERE name ILIKE $1 OR city ILIKE $1
			ORDER BY id
			LIMIT $2
		`, pattern, clinicLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("booking: search clinics: %w", err)
	}
	defer rows.Close()

	clinics := []Clinic{}
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.City, &c.Location, &c.Phone); err != nil {
			return nil, fmt.Errorf("booking: scan clinic: %w", err)
		}
		clinics = append(clinics, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate clinics: %w", err)
	}
	return clinics, nil
}

// ListDoctors applies each non-empty filter independently. The unfiltered
// listing is capped; filtered listings are not.
func (r *Repository) ListDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error) {
	query := doctorSelect
	var args []any
	switch {
	case filter.ClinicID != "" && filter.Specialization != "":
		query += ` WHERE d.clinic_id::text = $1 AND s.name ILIKE $2`
		args = append(args, filter.ClinicID, "%"+filter.Specialization+"%")
	case filter.ClinicID != "":
		query += ` WHERE d.clinic_id::text = $1`
		args = append(args, filter.ClinicID)
	case filter.Specialization != "":
		query += ` WHERE s.name ILIKE $1`
		args = append(args, "%"+filter.Specialization+"%")
	default:
		query += ` ORDER BY d.id LIMIT $1`
		args = append(args, doctorDefaultLimit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: list doctors: %w", err)
	}
	defer rows.Close()

	doctors := []Doctor{}
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.ExperienceYears, &d.Specialization, &d.ClinicName); err != nil {
			return nil, fmt.Errorf("booking: scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate doctors: %w", err)
	}
	return doctors, nil
}

// Schedule returns the doctor's window for weekday (0 = Sunday), or nil when
// the doctor does not work that day.
func (r *Repository) Schedule(ctx context.Context, doctorID string, weekday int) (*Schedule, error) {
	var (
		s        Schedule
		duration *int32
	)
	err := r.db.QueryRow(ctx, `
		SELECT start_time, end_time, slot_duration_minutes
		FROM doctor_schedules
		WHERE doctor_id::text = $1 AND day_of_week = $2
		LIMIT 1
	`, doctorID, weekday).Scan(&s.StartTime, &s.EndTime, &duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("booking: load schedule: %w", err)
	}
	s.SlotDurationMinutes = defaultSlotMinutes
	if duration != nil && *duration > 0 {
		s.SlotDurationMinutes = int(*duration)
	}
	return &s, nil
}

// BookedTimes lists the appointment times already taken on date (DD/MM/YYYY).
func (r *Repository) BookedTimes(ctx context.Context, doctorID, date string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT time FROM appointments WHERE doctor_id = $1 AND date = $2`, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("booking: load appointments: %w", err)
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("booking: scan appointments: %w", err)
	}
	return times, nil
}

// InsertAppointment writes a new appointment row. It does not check the slot
// against concurrent bookings.
func (r *Repository) InsertAppointment(ctx context.Context, a Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (
			id, clinic_id, doctor_id, patient_name, patient_phone,
			date, time, status, reason, created_at, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.ClinicID, a.DoctorID, a.PatientName, a.PatientPhone,
		a.Date, a.Time, a.Status, a.Reason, a.CreatedAt, a.Source)
	if err != nil {
		return fmt.Errorf("booking: insert appointment: %w", err)
	}
	return nil
}

// Cities returns up to five distinct clinic cities.
func (r *Repository) Cities(ctx context.Context) ([]string, error) {
	return r.strings(ctx, "cities", `SELECT DISTINCT city FROM clinics WHERE city IS NOT NULL LIMIT $1`, knowledgeListLimit)
}

// ClinicNames returns up to five clinic names.
func (r *Repository) ClinicNames(ctx context.Context) ([]string, error) {
	return r.strings(ctx, "clinic names", `SELECT name FROM clinics ORDER BY id LIMIT $1`, knowledgeListLimit)
}

// Specializations returns up to ten specialization names.
func (r *Repository) Specializations(ctx context.Context) ([]string, error) {
	return r.strings(ctx, "specializations", `SELECT name FROM specializations ORDER BY id LIMIT $1`, specializationLimit)
}

func (r *Repository) strings(ctx context.Context, what, query string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: load %s: %w", what, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("booking: scan %s: %w", what, err)
	}
	return values, nil
}
