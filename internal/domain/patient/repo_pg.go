package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, name, email, phone, date_of_birth, gender, address,
	medical_history, allergies, emergency_contact_name, emergency_contact_phone,
	created_by, is_active, created_at, updated_at`

func (r *patientRepoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.DateOfBirth, &p.Gender,
		&p.Address, &p.MedicalHistory, &p.Allergies,
		&p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.CreatedBy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.IsActive = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, name, email, phone, date_of_birth, gender, address,
			medical_history, allergies, emergency_contact_name, emergency_contact_phone,
			created_by, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.Name, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.Address,
		p.MedicalHistory, p.Allergies, p.EmergencyContactName, p.EmergencyContactPhone,
		p.CreatedBy, p.IsActive)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE email = $1`, email))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, email=$3, phone=$4, date_of_birth=$5, gender=$6,
			address=$7, medical_history=$8, allergies=$9,
			emergency_contact_name=$10, emergency_contact_phone=$11,
			is_active=$12, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Email, p.Phone, p.DateOfBirth, p.Gender,
		p.Address, p.MedicalHistory, p.Allergies,
		p.EmergencyContactName, p.EmergencyContactPhone, p.IsActive)
	return err
}

func (r *patientRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) ListByOwner(ctx context.Context, owner string, f Filter, limit, offset int) ([]*Patient, int, error) {
	where := []string{"created_by = $1"}
	args := []interface{}{owner}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Name != "" {
		add("name ILIKE '%%' || $%d || '%%'", f.Name)
	}
	if f.Email != "" {
		add("email ILIKE '%%' || $%d || '%%'", f.Email)
	}
	if f.Phone != "" {
		add("phone ILIKE '%%' || $%d || '%%'", f.Phone)
	}
	if f.Gender != "" {
		add("gender = $%d", f.Gender)
	}
	if f.MinAge > 0 {
		add("date_of_birth <= NOW() - make_interval(years => $%d)", f.MinAge)
	}
	if f.MaxAge > 0 {
		add("date_of_birth > NOW() - make_interval(years => $%d + 1)", f.MaxAge)
	}
	if f.HasAllergies != nil {
		if *f.HasAllergies {
			where = append(where, "allergies IS NOT NULL AND allergies <> ''")
		} else {
			where = append(where, "(allergies IS NULL OR allergies = '')")
		}
	}
	if f.IsActive != nil {
		add("is_active = $%d", *f.IsActive)
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE `+cond+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) Stats(ctx context.Context, owner string) (*Stats, error) {
	s := &Stats{ByGender: make(map[string]int), ByAge: make(map[string]int)}

	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active)
		FROM patients WHERE created_by = $1`, owner).
		Scan(&s.Total, &s.Active, &s.Inactive)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT COALESCE(gender, 'unknown'), COUNT(*)
		FROM patients WHERE created_by = $1 AND is_active
		GROUP BY 1`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var g string
		var n int
		if err := rows.Scan(&g, &n); err != nil {
			return nil, err
		}
		s.ByGender[g] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ageRows, err := r.conn(ctx).Query(ctx, `
		SELECT date_of_birth FROM patients WHERE created_by = $1 AND is_active`, owner)
	if err != nil {
		return nil, err
	}
	defer ageRows.Close()
	for ageRows.Next() {
		var p Patient
		if err := ageRows.Scan(&p.DateOfBirth); err != nil {
			return nil, err
		}
		s.ByAge[AgeGroup(p.Age())]++
	}
	return s, ageRows.Err()
}
