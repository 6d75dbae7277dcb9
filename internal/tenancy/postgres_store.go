package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("wpchat.internal.tenancy")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps tenants in the tenants table keyed by business_number.
type PostgresStore struct {
	pool querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("tenancy: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q querier) *PostgresStore {
	if q == nil {
		panic("tenancy: querier required")
	}
	return &PostgresStore{pool: q}
}

const tenantColumns = `business_number, api_key, COALESCE(webhook_url, ''), COALESCE(company_context, '')`

// Resolve implements Resolver. Numbers are compared on digits only.
func (s *PostgresStore) Resolve(ctx context.Context, businessNumber string) (*Tenant, error) {
	ctx, span := tracer.Start(ctx, "tenancy.resolve")
	defer span.End()

	key := BusinessKey(businessNumber)
	span.SetAttributes(attribute.String("wpchat.business_number", key))
	if key == "" {
		return nil, ErrTenantNotFound
	}

	query := `SELECT ` + tenantColumns + `
		FROM tenants
		WHERE regexp_replace(business_number, '\D', '', 'g') = $1
		LIMIT 1`
	var t Tenant
	err := s.pool.QueryRow(ctx, query, key).Scan(&t.BusinessNumber, &t.APIKey, &t.WebhookURL, &t.CompanyContext)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("tenancy: select tenant: %w", err)
	}
	return &t, nil
}

// List returns every tenant ordered by business number.
func (s *PostgresStore) List(ctx context.Context) ([]Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY business_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("tenancy: list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []Tenant{}
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.BusinessNumber, &t.APIKey, &t.WebhookURL, &t.CompanyContext); err != nil {
			return nil, fmt.Errorf("tenancy: scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenancy: iterate tenants: %w", err)
	}
	return tenants, nil
}

// Upsert creates the tenant or replaces its mutable fields.
func (s *PostgresStore) Upsert(ctx context.Context, tenant Tenant) (*Tenant, error) {
	if strings.TrimSpace(tenant.BusinessNumber) == "" || strings.TrimSpace(tenant.APIKey) == "" {
		return nil, errors.New("tenancy: business number and api key are required")
	}
	query := `
		INSERT INTO tenants (business_number, api_key, webhook_url, company_context)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (business_number)
		DO UPDATE SET api_key = EXCLUDED.api_key,
			webhook_url = EXCLUDED.webhook_url,
			company_context = EXCLUDED.company_context
		RETURNING ` + tenantColumns
	var out Tenant
	if err := s.pool.QueryRow(ctx, query,
		tenant.BusinessNumber,
		tenant.APIKey,
		tenant.WebhookURL,
		tenant.CompanyContext,
	).Scan(&out.BusinessNumber, &out.APIKey, &out.WebhookURL, &out.CompanyContext); err != nil {
		return nil, fmt.Errorf("tenancy: upsert tenant: %w", err)
	}
	return &out, nil
}

// Delete removes the tenant. Deleting an unknown tenant is not an error.
func (s *PostgresStore) Delete(ctx context.Context, businessNumber string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE business_number = $1`, businessNumber); err != nil {
		return fmt.Errorf("tenancy: delete tenant: %w", err)
	}
	return nil
}
