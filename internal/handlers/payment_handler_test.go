package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tadiwos/gojostay/internal/chapa"
	"github.com/tadiwos/gojostay/internal/helpers"
	"github.com/tadiwos/gojostay/internal/models"
	"github.com/tadiwos/gojostay/internal/payments"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Listing{}, &models.Booking{}, &models.Payment{},
	))
	return db
}

type stubGateway struct {
	verifyStatus string
}

func (s *stubGateway) Initialize(ctx context.Context, req chapa.InitializeRequest) (*chapa.CheckoutSession, error) {
	return &chapa.CheckoutSession{
		CheckoutURL: "https://checkout.chapa.co/checkout/payment/test",
		Raw:         json.RawMessage(`{"status":"success"}`),
	}, nil
}

func (s *stubGateway) Verify(ctx context.Context, txRef string) (*chapa.VerifyResult, error) {
	status := s.verifyStatus
	if status == "" {
		status = "success"
	}
	raw, _ := json.Marshal(map[string]any{
		"status": "success",
		"data":   map[string]any{"status": status, "reference": "TXN1", "method": "telebirr"},
	})
	return &chapa.VerifyResult{
		Status: "success",
		Data:   chapa.VerifyData{Status: status, Reference: "TXN1", Method: "telebirr"},
		Raw:    raw,
	}, nil
}

type noopNotifier struct{}

func (noopNotifier) PaymentCompleted(email string, payment *models.Payment) {}

func seedBooking(t *testing.T, db *gorm.DB) *models.Booking {
	t.Helper()
	user := models.User{
		Email:     fmt.Sprintf("guest-%s@example.com", uuid.NewString()[:8]),
		Password:  "hashed",
		FirstName: "Abebe",
		LastName:  "Bikila",
	}
	require.NoError(t, db.Create(&user).Error)

	listing := models.Listing{
		Title:       fmt.Sprintf("Loft %s", uuid.NewString()[:8]),
		Description: "desc",
		Price:       decimal.RequireFromString("50.00"),
		Location:    "Addis Ababa",
		UserID:      user.ID,
	}
	require.NoError(t, db.Create(&listing).Error)

	booking := models.Booking{
		ListingID:   listing.ID,
		UserID:      user.ID,
		TotalAmount: decimal.RequireFromString("100.00"),
		StartDate:   time.Now().AddDate(0, 0, 7),
		EndDate:     time.Now().AddDate(0, 0, 9),
	}
	require.NoError(t, db.Create(&booking).Error)
	return &booking
}

func newTestRouter(db *gorm.DB, handler *PaymentHandler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/v1/payments/webhook", handler.Webhook)

	authed := r.Group("/v1", func(c *gin.Context) {
		c.Set("db", db)
		c.Set("user_id", userID)
		c.Next()
	})
	authed.POST("/payments/initiate", handler.Initiate)
	authed.POST("/payments/verify", handler.Verify)
	authed.GET("/payments/:id", handler.GetPayment)
	authed.POST("/payments/:id/cancel", handler.CancelPayment)
	authed.GET("/payments/:id/receipt", handler.ReceiptQR)
	return r
}

func postJSON(r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestInitiateEndpoint(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), booking.UserID)

	w := postJSON(router, "/v1/payments/initiate", gin.H{
		"booking_id": booking.ID,
		"return_url": "https://app.test/return",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			PaymentID   uuid.UUID `json:"payment_id"`
			CheckoutURL string    `json:"checkout_url"`
			TxRef       string    `json:"tx_ref"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEqual(t, uuid.Nil, resp.Data.PaymentID)
	assert.Contains(t, resp.Data.TxRef, "booking_")
	assert.NotEmpty(t, resp.Data.CheckoutURL)
}

func TestInitiateEndpointValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), uuid.New())

	w := postJSON(router, "/v1/payments/initiate", gin.H{"return_url": "https://app.test/return"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/v1/payments/initiate", gin.H{
		"booking_id": uuid.New(),
		"return_url": "https://app.test/return",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitiateEndpointNotOwner(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), uuid.New())

	w := postJSON(router, "/v1/payments/initiate", gin.H{
		"booking_id": booking.ID,
		"return_url": "https://app.test/return",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVerifyEndpoint(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), booking.UserID)

	result, err := svc.Initiate(context.Background(), booking.ID, booking.UserID, "https://app.test/return", "")
	require.NoError(t, err)

	w := postJSON(router, "/v1/payments/verify", gin.H{"tx_ref": result.Payment.TxRef})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Payment completed"`)

	w = postJSON(router, "/v1/payments/verify", gin.H{"tx_ref": "booking_unknown_deadbeef"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPaymentEndpoint(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), booking.UserID)

	result, err := svc.Initiate(context.Background(), booking.ID, booking.UserID, "https://app.test/return", "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/payments/"+result.Payment.ID.String(), nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), result.Payment.TxRef)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/v1/payments/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPaymentEndpointDatabaseError(t *testing.T) {
	db := setupTestDB(t)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), uuid.New())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/payments/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/v1/payments/"+uuid.NewString()+"/receipt", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCancelPaymentEndpoint(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), booking.UserID)

	result, err := svc.Initiate(context.Background(), booking.ID, booking.UserID, "https://app.test/return", "")
	require.NoError(t, err)

	w := postJSON(router, "/v1/payments/"+result.Payment.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled"`)

	w = postJSON(router, "/v1/payments/"+result.Payment.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookEndpoint(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), booking.UserID)

	result, err := svc.Initiate(context.Background(), booking.ID, booking.UserID, "https://app.test/return", "")
	require.NoError(t, err)

	w := postJSON(router, "/v1/payments/webhook", gin.H{
		"tx_ref":    result.Payment.TxRef,
		"status":    "success",
		"reference": "TXN-WH-9",
		"method":    "telebirr",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	var stored models.Payment
	require.NoError(t, db.First(&stored, "tx_ref = ?", result.Payment.TxRef).Error)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	assert.Equal(t, "TXN-WH-9", stored.TransactionID)
}

func TestWebhookEndpointMissingTxRef(t *testing.T) {
	db := setupTestDB(t)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), uuid.New())

	w := postJSON(router, "/v1/payments/webhook", gin.H{"status": "success"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookEndpointUnknownTxRef(t *testing.T) {
	db := setupTestDB(t)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), uuid.New())

	w := postJSON(router, "/v1/payments/webhook", gin.H{"tx_ref": "booking_unknown_1", "status": "success"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookEndpointSignature(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	const secret = "whsec_test"
	router := newTestRouter(db, NewPaymentHandler(svc, secret), booking.UserID)

	result, err := svc.Initiate(context.Background(), booking.ID, booking.UserID, "https://app.test/return", "")
	require.NoError(t, err)

	body, _ := json.Marshal(gin.H{"tx_ref": result.Payment.TxRef, "status": "success", "reference": "TXN-WH-1"})

	// unsigned and wrongly signed deliveries are rejected
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/v1/payments/webhook", bytes.NewReader(body))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Chapa-Signature", "bogus")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Chapa-Signature", helpers.ComputeWebhookSignature(secret, body))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReceiptQREndpoint(t *testing.T) {
	db := setupTestDB(t)
	booking := seedBooking(t, db)
	svc := payments.NewService(db, &stubGateway{}, noopNotifier{}, nil)
	router := newTestRouter(db, NewPaymentHandler(svc, ""), booking.UserID)

	result, err := svc.Initiate(context.Background(), booking.ID, booking.UserID, "https://app.test/return", "")
	require.NoError(t, err)

	// pending payments have no receipt yet
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/payments/"+result.Payment.ID.String()+"/receipt", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err = svc.Verify(context.Background(), result.Payment.TxRef, booking.UserID)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/v1/payments/"+result.Payment.ID.String()+"/receipt", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}
