package mapping

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/domain/doctor"
	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type mappingRepoPG struct{ pool *pgxpool.Pool }

func NewMappingRepoPG(pool *pgxpool.Pool) Repository {
	return &mappingRepoPG{pool: pool}
}

func (r *mappingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *mappingRepoPG) begin(ctx context.Context) (pgx.Tx, error) {
	if tx := db.TxFromContext(ctx); tx != nil {
		// Already inside a caller-managed transaction; nest via savepoint.
		return tx.Begin(ctx)
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c.Begin(ctx)
	}
	return r.pool.Begin(ctx)
}

const mappingCols = `id, patient_id, doctor_id, assigned_by, assigned_at, notes, is_primary, is_active, updated_at`

func scanMapping(row pgx.Row) (*Mapping, error) {
	var m Mapping
	err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.AssignedBy, &m.AssignedAt,
		&m.Notes, &m.IsPrimary, &m.IsActive, &m.UpdatedAt)
	return &m, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// demoteOthers clears is_primary on every other active mapping for the
// patient. The patient row is locked first so that concurrent primary
// promotions for the same patient serialize; promotions for different
// patients proceed independently.
func demoteOthers(ctx context.Context, tx pgx.Tx, patientID, keepID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT id FROM patients WHERE id = $1 FOR UPDATE`, patientID); err != nil {
		return fmt.Errorf("lock patient row: %w", err)
	}
	_, err := tx.Exec(ctx, `
		UPDATE mappings SET is_primary = false, updated_at = NOW()
		WHERE patient_id = $1 AND id <> $2 AND is_primary AND is_active`,
		patientID, keepID)
	return err
}

// Create inserts a mapping, reactivating a soft-deleted row for the same
// (patient, doctor) pair if one exists. A conflicting active row means the
// pair is already assigned and surfaces as DuplicateMapping.
func (r *mappingRepoPG) Create(ctx context.Context, m *Mapping) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	m.IsActive = true
	if m.IsPrimary {
		if err := demoteOthers(ctx, tx, m.PatientID, uuid.Nil); err != nil {
			return err
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO mappings (id, patient_id, doctor_id, assigned_by, notes, is_primary, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		ON CONFLICT (patient_id, doctor_id) DO UPDATE
			SET is_active = true, is_primary = EXCLUDED.is_primary,
				notes = EXCLUDED.notes, assigned_by = EXCLUDED.assigned_by,
				assigned_at = NOW(), updated_at = NOW()
			WHERE mappings.is_active = false
		RETURNING id, assigned_at`,
		uuid.New(), m.PatientID, m.DoctorID, m.AssignedBy, m.Notes, m.IsPrimary)

	if err := row.Scan(&m.ID, &m.AssignedAt); err != nil {
		// DO UPDATE with a false WHERE returns no row: the pair already has
		// an active mapping.
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return apperr.New(apperr.KindDuplicateMapping,
				"an active mapping already exists for this patient and doctor")
		}
		return err
	}
	return tx.Commit(ctx)
}

func (r *mappingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Mapping, error) {
	return scanMapping(r.conn(ctx).QueryRow(ctx,
		`SELECT `+mappingCols+` FROM mappings WHERE id = $1`, id))
}

func (r *mappingRepoPG) GetActiveByPair(ctx context.Context, patientID, doctorID uuid.UUID) (*Mapping, error) {
	return scanMapping(r.conn(ctx).QueryRow(ctx,
		`SELECT `+mappingCols+` FROM mappings
		 WHERE patient_id = $1 AND doctor_id = $2 AND is_active`, patientID, doctorID))
}

func (r *mappingRepoPG) Update(ctx context.Context, m *Mapping) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if m.IsPrimary && m.IsActive {
		if err := demoteOthers(ctx, tx, m.PatientID, m.ID); err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx, `
		UPDATE mappings SET notes = $2, is_primary = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1`,
		m.ID, m.Notes, m.IsPrimary, m.IsActive)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetPrimary atomically demotes every other active mapping for the patient
// and promotes the target one.
func (r *mappingRepoPG) SetPrimary(ctx context.Context, patientID, mappingID uuid.UUID) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := demoteOthers(ctx, tx, patientID, mappingID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE mappings SET is_primary = true, updated_at = NOW()
		WHERE id = $1 AND patient_id = $2 AND is_active`, mappingID, patientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "mapping not found")
	}
	return tx.Commit(ctx)
}

func (r *mappingRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE mappings SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *mappingRepoPG) ListByOwner(ctx context.Context, owner string, f Filter, limit, offset int) ([]*Detail, int, error) {
	where := []string{"p.created_by = $1"}
	args := []interface{}{owner}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.IsPrimary != nil {
		add("m.is_primary = $%d", *f.IsPrimary)
	}
	if f.IsActive != nil {
		add("m.is_active = $%d", *f.IsActive)
	}
	if f.Specialization != "" {
		add("d.specialization = $%d", f.Specialization)
	}
	if f.AssignedAfter != nil {
		add("m.assigned_at >= $%d", *f.AssignedAfter)
	}
	if f.AssignedBefore != nil {
		add("m.assigned_at <= $%d", *f.AssignedBefore)
	}
	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		where = append(where, fmt.Sprintf(`(p.name ILIKE '%%' || $%d || '%%'
			OR d.name ILIKE '%%' || $%d || '%%'
			OR COALESCE(m.notes, '') ILIKE '%%' || $%d || '%%')`, n, n, n))
	}

	cond := strings.Join(where, " AND ")
	from := ` FROM mappings m
		JOIN patients p ON p.id = m.patient_id
		JOIN doctors d ON d.id = m.doctor_id
		WHERE ` + cond

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.patient_id, m.doctor_id, m.assigned_by, m.assigned_at,
			m.notes, m.is_primary, m.is_active, m.updated_at,
			p.name, d.name, d.specialization`+from+
		fmt.Sprintf(` ORDER BY m.assigned_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.PatientID, &d.DoctorID, &d.AssignedBy, &d.AssignedAt,
			&d.Notes, &d.IsPrimary, &d.IsActive, &d.UpdatedAt,
			&d.PatientName, &d.DoctorName, &d.DoctorSpecialization); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}

func (r *mappingRepoPG) ActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*CareTeamMember, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.doctor_id, d.name, d.specialization, m.is_primary, m.assigned_at, m.notes
		FROM mappings m JOIN doctors d ON d.id = m.doctor_id
		WHERE m.patient_id = $1 AND m.is_active
		ORDER BY m.is_primary DESC, m.assigned_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*CareTeamMember
	for rows.Next() {
		var mb CareTeamMember
		if err := rows.Scan(&mb.MappingID, &mb.DoctorID, &mb.DoctorName, &mb.Specialization,
			&mb.IsPrimary, &mb.AssignedAt, &mb.Notes); err != nil {
			return nil, err
		}
		members = append(members, &mb)
	}
	return members, rows.Err()
}

func (r *mappingRepoPG) ActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*LoadPatient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.patient_id, p.name, m.is_primary, m.assigned_at
		FROM mappings m JOIN patients p ON p.id = m.patient_id
		WHERE m.doctor_id = $1 AND m.is_active
		ORDER BY m.assigned_at ASC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pts []*LoadPatient
	for rows.Next() {
		var lp LoadPatient
		if err := rows.Scan(&lp.MappingID, &lp.PatientID, &lp.PatientName,
			&lp.IsPrimary, &lp.AssignedAt); err != nil {
			return nil, err
		}
		pts = append(pts, &lp)
	}
	return pts, rows.Err()
}

func (r *mappingRepoPG) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM mappings WHERE patient_id = $1 AND is_active`, patientID).Scan(&n)
	return n, err
}

func (r *mappingRepoPG) CountActiveByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM mappings WHERE doctor_id = $1 AND is_active`, doctorID).Scan(&n)
	return n, err
}

// SuggestDoctors ranks active doctors not yet assigned to the patient by
// current active-patient count ascending, then experience descending.
func (r *mappingRepoPG) SuggestDoctors(ctx context.Context, patientID uuid.UUID, limit int) ([]*Suggestion, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id, d.name, d.email, d.phone, d.license_number, d.specialization,
			d.years_of_experience, d.qualification, d.clinic_address, d.consultation_fee,
			d.available_days, d.available_from, d.available_to,
			d.created_by, d.is_active, d.created_at, d.updated_at,
			COALESCE(l.n, 0) AS active_patients
		FROM doctors d
		LEFT JOIN (
			SELECT doctor_id, COUNT(*) AS n FROM mappings WHERE is_active GROUP BY doctor_id
		) l ON l.doctor_id = d.id
		WHERE d.is_active AND NOT EXISTS (
			SELECT 1 FROM mappings m
			WHERE m.doctor_id = d.id AND m.patient_id = $1 AND m.is_active)
		ORDER BY COALESCE(l.n, 0) ASC, d.years_of_experience DESC
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Suggestion
	for rows.Next() {
		var d doctor.Doctor
		var s Suggestion
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.LicenseNumber, &d.Specialization,
			&d.YearsOfExperience, &d.Qualification, &d.ClinicAddress, &d.ConsultationFee,
			&d.AvailableDays, &d.AvailableFrom, &d.AvailableTo,
			&d.CreatedBy, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
			&s.ActivePatients); err != nil {
			return nil, err
		}
		s.Doctor = &d
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *mappingRepoPG) UnassignedPatients(ctx context.Context, owner string) ([]*UnassignedPatient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.name, p.email, p.created_at
		FROM patients p
		WHERE p.created_by = $1 AND p.is_active AND NOT EXISTS (
			SELECT 1 FROM mappings m WHERE m.patient_id = p.id AND m.is_active)
		ORDER BY p.created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*UnassignedPatient
	for rows.Next() {
		var up UnassignedPatient
		if err := rows.Scan(&up.ID, &up.Name, &up.Email, &up.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &up)
	}
	return out, rows.Err()
}

func (r *mappingRepoPG) Stats(ctx context.Context, owner string) (*Stats, error) {
	s := &Stats{BySpecialization: make(map[string]int)}

	var totalOwnedActive int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE m.is_active),
			COUNT(*) FILTER (WHERE m.is_primary AND m.is_active),
			COUNT(DISTINCT m.patient_id) FILTER (WHERE m.is_active)
		FROM mappings m JOIN patients p ON p.id = m.patient_id
		WHERE p.created_by = $1 AND p.is_active`, owner).
		Scan(&s.TotalMappings, &s.PrimaryMappings, &s.PatientsWithDoctors)
	if err != nil {
		return nil, err
	}

	err = r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE created_by = $1 AND is_active`, owner).
		Scan(&totalOwnedActive)
	if err != nil {
		return nil, err
	}
	s.PatientsWithoutDoctors = totalOwnedActive - s.PatientsWithDoctors

	if s.PatientsWithDoctors > 0 {
		s.AverageDoctorsPerPatient = math.Round(
			float64(s.TotalMappings)/float64(s.PatientsWithDoctors)*100) / 100
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.specialization, COUNT(*)
		FROM mappings m
		JOIN patients p ON p.id = m.patient_id
		JOIN doctors d ON d.id = m.doctor_id
		WHERE p.created_by = $1 AND p.is_active AND m.is_active
		GROUP BY 1`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sp doctor.Specialization
		var n int
		if err := rows.Scan(&sp, &n); err != nil {
			return nil, err
		}
		s.BySpecialization[sp.Display()] = n
	}
	return s, rows.Err()
}
