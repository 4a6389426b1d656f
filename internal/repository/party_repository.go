package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// TenantRepository stores tenant contact records.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]domain.Tenant, error)
}

// ContractorRepository stores contractor contact records.
type ContractorRepository interface {
	Create(ctx context.Context, contractor *domain.Contractor) error
	Update(ctx context.Context, contractor *domain.Contractor) error
	GetByID(ctx context.Context, id string) (*domain.Contractor, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Contractor, error)
}

type tenantRepository struct {
	db DBTX
}

// NewTenantRepository returns a Postgres-backed implementation.
func NewTenantRepository(db DBTX) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        INSERT INTO tenants (name, email, phone, property_id, preferred_channel)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		tenant.Name,
		tenant.Email,
		tenant.Phone,
		tenant.PropertyID,
		tenant.PreferredChannel,
	).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	const query = `
        SELECT id, name, email, phone, property_id, preferred_channel, created_at, updated_at
        FROM tenants WHERE id=$1`
	var tenant domain.Tenant
	if err := scanTenant(r.db.QueryRow(ctx, query, id), &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) List(ctx context.Context, limit, offset int) ([]domain.Tenant, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, name, email, phone, property_id, preferred_channel, created_at, updated_at
        FROM tenants ORDER BY name ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Tenant
	for rows.Next() {
		var tenant domain.Tenant
		if err := scanTenant(rows, &tenant); err != nil {
			return nil, err
		}
		result = append(result, tenant)
	}
	return result, rows.Err()
}

func scanTenant(row pgx.Row, tenant *domain.Tenant) error {
	return row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Email,
		&tenant.Phone,
		&tenant.PropertyID,
		&tenant.PreferredChannel,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
}

type contractorRepository struct {
	db DBTX
}

// NewContractorRepository returns a Postgres-backed implementation.
func NewContractorRepository(db DBTX) ContractorRepository {
	return &contractorRepository{db: db}
}

func (r *contractorRepository) Create(ctx context.Context, contractor *domain.Contractor) error {
	const query = `
        INSERT INTO contractors (name, trade, email, phone, preferred_channel, active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		contractor.Name,
		contractor.Trade,
		contractor.Email,
		contractor.Phone,
		contractor.PreferredChannel,
		contractor.Active,
	).Scan(&contractor.ID, &contractor.CreatedAt, &contractor.UpdatedAt)
}

func (r *contractorRepository) Update(ctx context.Context, contractor *domain.Contractor) error {
	const query = `
        UPDATE contractors SET name=$1, trade=$2, email=$3, phone=$4, preferred_channel=$5, active=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		contractor.Name,
		contractor.Trade,
		contractor.Email,
		contractor.Phone,
		contractor.PreferredChannel,
		contractor.Active,
		contractor.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *contractorRepository) GetByID(ctx context.Context, id string) (*domain.Contractor, error) {
	const query = `
        SELECT id, name, trade, email, phone, preferred_channel, active, created_at, updated_at
        FROM contractors WHERE id=$1`
	var contractor domain.Contractor
	if err := scanContractor(r.db.QueryRow(ctx, query, id), &contractor); err != nil {
		return nil, err
	}
	return &contractor, nil
}

func (r *contractorRepository) List(ctx context.Context, activeOnly bool) ([]domain.Contractor, error) {
	const query = `
        SELECT id, name, trade, email, phone, preferred_channel, active, created_at, updated_at
        FROM contractors WHERE ($1 = false OR active) ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Contractor
	for rows.Next() {
		var contractor domain.Contractor
		if err := scanContractor(rows, &contractor); err != nil {
			return nil, err
		}
		result = append(result, contractor)
	}
	return result, rows.Err()
}

func scanContractor(row pgx.Row, contractor *domain.Contractor) error {
	return row.Scan(
		&contractor.ID,
		&contractor.Name,
		&contractor.Trade,
		&contractor.Email,
		&contractor.Phone,
		&contractor.PreferredChannel,
		&contractor.Active,
		&contractor.CreatedAt,
		&contractor.UpdatedAt,
	)
}
