package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/tadiwos/gojostay/internal/helpers"
	"github.com/tadiwos/gojostay/internal/models"
	"github.com/tadiwos/gojostay/internal/payments"
)

type PaymentHandler struct {
	svc           *payments.Service
	webhookSecret string
}

func NewPaymentHandler(svc *payments.Service, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{svc: svc, webhookSecret: webhookSecret}
}

type PaymentInitiateRequest struct {
	BookingID   uuid.UUID `json:"booking_id" binding:"required"`
	ReturnURL   string    `json:"return_url" binding:"required,url"`
	CallbackURL string    `json:"callback_url" binding:"omitempty,url"`
}

type PaymentVerifyRequest struct {
	TxRef string `json:"tx_ref" binding:"required"`
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req PaymentInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithValidationError(c, "Invalid input. Please check your fields.", err.Error())
		return
	}

	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.svc.Initiate(c.Request.Context(), req.BookingID, userUUID, req.ReturnURL, req.CallbackURL)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrBookingNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		case errors.Is(err, payments.ErrForbidden):
			helpers.RespondWithError(c, http.StatusForbidden, "You do not own this booking.")
		case errors.Is(err, payments.ErrAlreadyPaid):
			helpers.RespondWithError(c, http.StatusBadRequest, "This booking has already been paid for.")
		case errors.Is(err, payments.ErrGatewayUnavailable):
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to initialize payment with Chapa.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to initiate payment.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment initialized successfully",
		"data": gin.H{
			"payment_id":   result.Payment.ID,
			"checkout_url": result.CheckoutURL,
			"tx_ref":       result.Payment.TxRef,
			"amount":       result.Payment.Amount,
		},
	})
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	var req PaymentVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithValidationError(c, "Invalid input. Please check your fields.", err.Error())
		return
	}

	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.svc.Verify(c.Request.Context(), req.TxRef, userUUID)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
		case errors.Is(err, payments.ErrGatewayRejected):
			helpers.RespondWithError(c, http.StatusBadRequest, "Payment verification failed.")
		case errors.Is(err, payments.ErrGatewayUnavailable):
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to verify payment with Chapa.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to verify payment.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Payment %s", payment.Status),
		"data":    payment,
	})
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}

	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.svc.GetStatus(paymentID, userUUID)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch payment.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": payment})
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	list, err := h.svc.ListPayments(userUUID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch payments.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}

	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.svc.Cancel(paymentID, userUUID)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
		case errors.Is(err, payments.ErrNotCancellable):
			helpers.RespondWithError(c, http.StatusBadRequest, "Only pending payments can be cancelled.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel payment.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": payment})
}

// ReceiptQR renders a signed QR receipt for a completed payment so the
// host can check it offline.
func (h *PaymentHandler) ReceiptQR(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}

	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.svc.GetStatus(paymentID, userUUID)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch payment.")
		return
	}
	if payment.Status != models.PaymentStatusCompleted {
		helpers.RespondWithError(c, http.StatusBadRequest, "Receipt is only available for completed payments.")
		return
	}

	signature := helpers.GenerateReceiptSignature(payment.ID, payment.BookingID, payment.UserID, os.Getenv("JWT_SECRET"))
	qrData := fmt.Sprintf("payment:%s;booking:%s;tx_ref:%s;signature:%s",
		payment.ID, payment.BookingID, payment.TxRef, signature)

	qrImage, err := qrcode.Encode(qrData, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate receipt QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

type webhookPayload struct {
	TxRef     string `json:"tx_ref"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Method    string `json:"method"`
}

// Webhook receives Chapa's server-to-server notification. When a
// webhook secret is configured the Chapa-Signature header is enforced;
// without one the payload is accepted as-is, matching Chapa's optional
// signing.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	if h.webhookSecret != "" {
		signature := c.GetHeader("Chapa-Signature")
		if signature == "" || !helpers.ValidWebhookSignature(h.webhookSecret, signature, body) {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid webhook signature.")
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid webhook payload.")
		return
	}
	if payload.TxRef == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "tx_ref is required.")
		return
	}

	_, err = h.svc.HandleWebhook(c.Request.Context(), payments.WebhookEvent{
		TxRef:     payload.TxRef,
		Status:    payload.Status,
		Reference: payload.Reference,
		Method:    payload.Method,
		Raw:       body,
	})
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to process webhook.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return uuid.Nil, false
	}
	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID type.")
		return uuid.Nil, false
	}
	return userUUID, true
}
