// Package tenancy maps inbound business numbers to tenant configuration.
package tenancy

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrTenantNotFound is returned when no tenant owns the business number.
	ErrTenantNotFound = errors.New("tenancy: tenant not found for business number")
	phoneDigitsRe     = regexp.MustCompile(`\d+`)
)

// Tenant is one business account and its delivery credential.
type Tenant struct {
	BusinessNumber string `json:"business_number"`
	APIKey         string `json:"api_key"`
	WebhookURL     string `json:"webhook_url,omitempty"`
	CompanyContext string `json:"company_context,omitempty"`
}

// Resolver resolves the tenant that owns a business number.
type Resolver interface {
	Resolve(ctx context.Context, businessNumber string) (*Tenant, error)
}

// Repository is the admin-facing tenant persistence contract.
type Repository interface {
	Resolver
	List(ctx context.Context) ([]Tenant, error)
	Upsert(ctx context.Context, tenant Tenant) (*Tenant, error)
	Delete(ctx context.Context, businessNumber string) error
}

// Invalidator drops any cached copy of a tenant.
type Invalidator interface {
	Invalidate(ctx context.Context, businessNumber string) error
}

// BusinessKey reduces a phone-ish identifier to its digits so that
// "+1 555-000" and "1555000" address the same tenant.
func BusinessKey(value string) string {
	if value == "" {
		return ""
	}
	return strings.Join(phoneDigitsRe.FindAllString(value, -1), "")
}
