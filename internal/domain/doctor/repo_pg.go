package doctor

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

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) Repository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `id, name, email, phone, license_number, specialization,
	years_of_experience, qualification, clinic_address, consultation_fee,
	available_days, available_from, available_to,
	created_by, is_active, created_at, updated_at`

func (r *doctorRepoPG) scan(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.LicenseNumber, &d.Specialization,
		&d.YearsOfExperience, &d.Qualification, &d.ClinicAddress, &d.ConsultationFee,
		&d.AvailableDays, &d.AvailableFrom, &d.AvailableTo,
		&d.CreatedBy, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.IsActive = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, name, email, phone, license_number, specialization,
			years_of_experience, qualification, clinic_address, consultation_fee,
			available_days, available_from, available_to, created_by, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.ID, d.Name, d.Email, d.Phone, d.LicenseNumber, d.Specialization,
		d.YearsOfExperience, d.Qualification, d.ClinicAddress, d.ConsultationFee,
		d.AvailableDays, d.AvailableFrom, d.AvailableTo, d.CreatedBy, d.IsActive)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE email = $1`, email))
}

func (r *doctorRepoPG) GetByLicense(ctx context.Context, license string) (*Doctor, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE license_number = $1`, license))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET name=$2, email=$3, phone=$4, license_number=$5, specialization=$6,
			years_of_experience=$7, qualification=$8, clinic_address=$9, consultation_fee=$10,
			available_days=$11, available_from=$12, available_to=$13,
			is_active=$14, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Email, d.Phone, d.LicenseNumber, d.Specialization,
		d.YearsOfExperience, d.Qualification, d.ClinicAddress, d.ConsultationFee,
		d.AvailableDays, d.AvailableFrom, d.AvailableTo, d.IsActive)
	return err
}

func (r *doctorRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctors SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *doctorRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error) {
	where := []string{"true"}
	args := []interface{}{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Name != "" {
		add("name ILIKE '%%' || $%d || '%%'", f.Name)
	}
	if f.Specialization != "" {
		add("specialization = $%d", f.Specialization)
	}
	if f.MinExperience > 0 {
		add("years_of_experience >= $%d", f.MinExperience)
	}
	if f.MaxFee != nil {
		add("consultation_fee <= $%d", *f.MaxFee)
	}
	if f.AvailableDay != "" {
		add("$%d = ANY(available_days)", f.AvailableDay)
	}
	if f.IsActive != nil {
		add("is_active = $%d", *f.IsActive)
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctors WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE `+cond+
			fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Doctor, int, error) {
	cond := `is_active AND (name ILIKE '%' || $1 || '%'
		OR specialization ILIKE '%' || $1 || '%'
		OR COALESCE(qualification, '') ILIKE '%' || $1 || '%'
		OR COALESCE(clinic_address, '') ILIKE '%' || $1 || '%')`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctors WHERE `+cond, q).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE `+cond+
			` ORDER BY name ASC LIMIT $2 OFFSET $3`, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{
		BySpecialization: make(map[string]int),
		ByExperience:     make(map[string]int),
	}

	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active),
			COALESCE(ROUND(AVG(years_of_experience) FILTER (WHERE is_active), 2), 0),
			COALESCE(ROUND(AVG(consultation_fee) FILTER (WHERE is_active), 2), 0)
		FROM doctors`).
		Scan(&s.Total, &s.Active, &s.Inactive, &s.AvgExperience, &s.AvgFee)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT specialization, COUNT(*)
		FROM doctors WHERE is_active
		GROUP BY specialization`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sp string
		var n int
		if err := rows.Scan(&sp, &n); err != nil {
			return nil, err
		}
		s.BySpecialization[sp] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT CASE
			WHEN years_of_experience <= 5 THEN '0-5'
			WHEN years_of_experience <= 10 THEN '6-10'
			WHEN years_of_experience <= 20 THEN '11-20'
			ELSE '20+'
		END AS band, COUNT(*)
		FROM doctors WHERE is_active
		GROUP BY band`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var band string
		var n int
		if err := rows.Scan(&band, &n); err != nil {
			return nil, err
		}
		s.ByExperience[band] = n
	}
	return s, rows.Err()
}
