package tenancy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

type memoryRepo struct {
	tenants map[string]Tenant
	err     error
}

func (m *memoryRepo) Resolve(_ context.Context, businessNumber string) (*Tenant, error) {
	t, ok := m.tenants[businessNumber]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &t, nil
}

func (m *memoryRepo) List(context.Context) ([]Tenant, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []Tenant{}
	for _, t := range m.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryRepo) Upsert(_ context.Context, t Tenant) (*Tenant, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tenants[t.BusinessNumber] = t
	return &t, nil
}

func (m *memoryRepo) Delete(_ context.Context, businessNumber string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.tenants, businessNumber)
	return nil
}

type recordingInvalidator struct {
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, businessNumber string) error {
	r.keys = append(r.keys, businessNumber)
	return nil
}

func TestHandlerUpsertValidatesRequiredFields(t *testing.T) {
	repo := &memoryRepo{tenants: map[string]Tenant{}}
	h := NewHandler(repo, nil, logging.Default())

	body := `{"business_number":"+15550001111"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Business number and API key are required")
	assert.Empty(t, repo.tenants)
}

func TestHandlerUpsertListDelete(t *testing.T) {
	repo := &memoryRepo{tenants: map[string]Tenant{}}
	cache := &recordingInvalidator{}
	router := NewHandler(repo, cache, logging.Default()).Routes()

	payload, _ := json.Marshal(Tenant{BusinessNumber: "+15550001111", APIKey: "key-1", CompanyContext: "Acme Clinic"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Tenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "key-1", created.APIKey)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []Tenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	assert.Len(t, listed, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/+15550001111", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tenant deleted successfully")
	assert.Empty(t, repo.tenants)

	assert.Equal(t, []string{"+15550001111", "+15550001111"}, cache.keys)
}

func TestHandlerStoreFailures(t *testing.T) {
	repo := &memoryRepo{tenants: map[string]Tenant{}, err: errors.New("db down")}
	router := NewHandler(repo, nil, logging.Default()).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch tenants")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"business_number":"1","api_key":"k"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to create tenant")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to delete tenant")
}
