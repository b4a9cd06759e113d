package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medverify-api/internal/middleware"
	"github.com/noah-isme/medverify-api/internal/models"
	"github.com/noah-isme/medverify-api/internal/service"
)

type drugStoreStub struct {
	byNumber map[string]*models.Drug
}

func newDrugStoreStub() *drugStoreStub {
	return &drugStoreStub{byNumber: map[string]*models.Drug{}}
}

func (r *drugStoreStub) add(drug *models.Drug) *models.Drug {
	if drug.ID == "" {
		drug.ID = uuid.NewString()
	}
	r.byNumber[drug.RegistrationNumber] = drug
	return drug
}

func (r *drugStoreStub) FindByID(ctx context.Context, id string) (*models.Drug, error) {
	for _, drug := range r.byNumber {
		if drug.ID == id {
			return drug, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *drugStoreStub) FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Drug, error) {
	drug, ok := r.byNumber[registrationNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return drug, nil
}

func (r *drugStoreStub) Create(ctx context.Context, drug *models.Drug) error {
	if drug.ID == "" {
		drug.ID = uuid.NewString()
	}
	r.byNumber[drug.RegistrationNumber] = drug
	return nil
}

func (r *drugStoreStub) UpdateStatus(ctx context.Context, id string, status models.DrugStatus) error {
	for _, drug := range r.byNumber {
		if drug.ID == id {
			drug.Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type batchStoreStub struct{}

func (batchStoreStub) FindByDrugAndNumber(ctx context.Context, drugID, batchNumber string) (*models.Batch, error) {
	return nil, sql.ErrNoRows
}

type verificationStoreStub struct {
	created []*models.Verification
}

func (r *verificationStoreStub) Create(ctx context.Context, verification *models.Verification) error {
	if verification.ID == "" {
		verification.ID = uuid.NewString()
	}
	r.created = append(r.created, verification)
	return nil
}

func (r *verificationStoreStub) ListRecent(ctx context.Context, limit int) ([]models.Verification, error) {
	var out []models.Verification
	for _, v := range r.created {
		out = append(out, *v)
	}
	return out, nil
}

func (r *verificationStoreStub) ListByUser(ctx context.Context, userID string) ([]models.Verification, error) {
	return nil, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newTestVerifyHandler(drugs *drugStoreStub) *VerifyHandler {
	svc := service.NewVerificationService(service.VerificationDependencies{
		DrugRepo:         drugs,
		BatchRepo:        batchStoreStub{},
		VerificationRepo: &verificationStoreStub{},
	})
	return NewVerifyHandler(svc)
}

func TestVerifyHandlerKnownDrug(t *testing.T) {
	gin.SetMode(gin.TestMode)
	drugs := newDrugStoreStub()
	drugs.add(&models.Drug{RegistrationNumber: "A11-0591", ProductName: "Paracetamol", Status: models.DrugStatusGenuine})
	handler := newTestVerifyHandler(drugs)

	payload, _ := json.Marshal(map[string]string{"registrationNumber": "A11-0591"})
	c, w := newGinContext(http.MethodPost, "/api/verify", payload)

	handler.Verify(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Drug *models.Drug `json:"drug"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Drug)
	assert.Equal(t, "Paracetamol", envelope.Data.Drug.ProductName)
}

func TestVerifyHandlerUnknownDrugReturnsCounterfeitVerdict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestVerifyHandler(newDrugStoreStub())

	payload, _ := json.Marshal(map[string]string{"registrationNumber": "ZZ-404"})
	c, w := newGinContext(http.MethodPost, "/api/verify", payload)

	handler.Verify(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Counterfeit bool   `json:"counterfeit"`
			Message     string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Counterfeit)
	assert.NotEmpty(t, envelope.Data.Message)
}

func TestVerifyHandlerMissingNumberRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestVerifyHandler(newDrugStoreStub())

	c, w := newGinContext(http.MethodPost, "/api/verify", []byte(`{}`))

	handler.Verify(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestVerifyHandlerLookupNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestVerifyHandler(newDrugStoreStub())

	c, w := newGinContext(http.MethodGet, "/api/drugs/ZZ-404", nil)
	c.Params = gin.Params{{Key: "registrationNumber", Value: "ZZ-404"}}

	handler.Lookup(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyHandlerListMineRequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestVerifyHandler(newDrugStoreStub())

	c, w := newGinContext(http.MethodGet, "/api/verifications/mine", nil)
	handler.ListMine(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/api/verifications/mine", nil)
	c.Set(middleware.ContextSessionKey, &models.Session{ID: "s1", UserID: "u1", Role: models.RoleUser})
	handler.ListMine(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
