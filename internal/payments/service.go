package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tadiwos/gojostay/internal/chapa"
	"github.com/tadiwos/gojostay/internal/models"
)

const defaultCurrency = "ETB"

// Gateway is the slice of the Chapa client the service depends on.
type Gateway interface {
	Initialize(ctx context.Context, req chapa.InitializeRequest) (*chapa.CheckoutSession, error)
	Verify(ctx context.Context, txRef string) (*chapa.VerifyResult, error)
}

// Notifier dispatches confirmation emails. Calls never block and never
// fail the payment transition that triggered them.
type Notifier interface {
	PaymentCompleted(email string, payment *models.Payment)
}

// Service drives the payment lifecycle for bookings: one payment row
// per booking, pending until Chapa confirms or rejects it, completed
// being terminal. Gateway calls happen outside database transactions;
// status writes are compare-and-set guarded so duplicate verifies and
// webhooks cannot re-apply a transition.
type Service struct {
	db       *gorm.DB
	gateway  Gateway
	notifier Notifier
	logger   *slog.Logger
}

func NewService(db *gorm.DB, gateway Gateway, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, gateway: gateway, notifier: notifier, logger: logger}
}

// InitiateResult is what the caller needs to redirect to checkout.
type InitiateResult struct {
	Payment     *models.Payment
	CheckoutURL string
}

// Initiate looks up or creates the booking's payment and asks Chapa for
// a checkout session. Calling it again before completion reuses the
// existing row and tx_ref; calling it after completion fails with
// ErrAlreadyPaid. A gateway failure leaves the row pending with no
// checkout URL so the caller can retry with the same tx_ref.
func (s *Service) Initiate(ctx context.Context, bookingID, userID uuid.UUID, returnURL, callbackURL string) (*InitiateResult, error) {
	var booking models.Booking
	if err := s.db.Preload("Listing").Preload("User").First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrForbidden
	}

	payment, err := s.getOrCreatePayment(&booking)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusCompleted {
		return nil, ErrAlreadyPaid
	}

	req := chapa.InitializeRequest{
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Email:       booking.User.Email,
		FirstName:   booking.User.FirstName,
		LastName:    booking.User.LastName,
		PhoneNumber: booking.User.PhoneNumber,
		TxRef:       payment.TxRef,
		CallbackURL: callbackURL,
		ReturnURL:   returnURL,
		Customization: chapa.Customization{
			Title: "Booking Payment",
			Description: fmt.Sprintf("Booking from %s to %s",
				booking.StartDate.Format("2006-01-02"), booking.EndDate.Format("2006-01-02")),
		},
	}
	if booking.Listing != nil {
		req.Customization.Title = fmt.Sprintf("Payment for %s", booking.Listing.Title)
	}

	session, err := s.gateway.Initialize(ctx, req)
	if err != nil {
		s.logger.Error("chapa initialize failed", "tx_ref", payment.TxRef, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	// merge onto a fresh read so a webhook or verify that landed during
	// the gateway round trip keeps its payload
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Payment
		if err := tx.First(&current, "id = ?", payment.ID).Error; err != nil {
			return err
		}
		if err := current.MergeGatewayResponse("initiate", session.Raw); err != nil {
			return err
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status <> ?", current.ID, models.PaymentStatusCompleted).
			Updates(map[string]interface{}{
				"checkout_url":     session.CheckoutURL,
				"status":           models.PaymentStatusPending,
				"gateway_response": current.GatewayResponse,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyPaid
		}
		payment.GatewayResponse = current.GatewayResponse
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment.CheckoutURL = session.CheckoutURL
	payment.Status = models.PaymentStatusPending

	s.logger.Info("payment initiated",
		"payment_id", payment.ID,
		"booking_id", booking.ID,
		"tx_ref", payment.TxRef,
		"amount", payment.Amount.StringFixed(2),
	)
	return &InitiateResult{Payment: payment, CheckoutURL: session.CheckoutURL}, nil
}

// getOrCreatePayment is the atomic find-or-insert on the booking_id
// unique index. Concurrent initiates for the same booking both land on
// the single surviving row.
func (s *Service) getOrCreatePayment(booking *models.Booking) (*models.Payment, error) {
	payment := models.Payment{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Amount:    booking.TotalAmount,
		Currency:  defaultCurrency,
		Status:    models.PaymentStatusPending,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}},
		DoNothing: true,
	}).Create(&payment).Error
	if err != nil {
		return nil, err
	}

	var existing models.Payment
	if err := s.db.First(&existing, "booking_id = ?", booking.ID).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// Verify re-queries Chapa for the payment's state and applies the
// transition. Already-completed payments short-circuit without touching
// the gateway.
func (s *Service) Verify(ctx context.Context, txRef string, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Preload("User").First(&payment, "tx_ref = ? AND user_id = ?", txRef, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if payment.Status == models.PaymentStatusCompleted {
		return &payment, nil
	}

	result, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		s.logger.Error("chapa verify failed", "tx_ref", txRef, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if result.Rejected() {
		if _, err := s.applyTransition(&payment, transition{
			status: models.PaymentStatusFailed,
			logKey: "verification",
			raw:    result.Raw,
		}); err != nil {
			return nil, err
		}
		return nil, ErrGatewayRejected
	}

	next := transition{
		status: models.PaymentStatusFailed,
		logKey: "verification",
		raw:    result.Raw,
	}
	if result.Success() {
		next.status = models.PaymentStatusCompleted
		next.transactionID = result.Data.Reference
		next.method = result.Data.Method
	}

	completedNow, err := s.applyTransition(&payment, next)
	if err != nil {
		return nil, err
	}
	if completedNow {
		s.notifyCompleted(&payment)
	}
	return &payment, nil
}

// WebhookEvent is what Chapa reports in a server-to-server callback.
type WebhookEvent struct {
	TxRef     string
	Status    string
	Reference string
	Method    string
	Raw       json.RawMessage
}

// HandleWebhook applies the gateway-reported outcome to the payment.
// Duplicate deliveries for a completed payment are accepted without a
// status change; unknown references are rejected and never create
// records.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Preload("User").First(&payment, "tx_ref = ?", event.TxRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	next := transition{
		status: models.PaymentStatusFailed,
		logKey: "webhook",
		raw:    event.Raw,
	}
	if event.Status == "success" {
		next.status = models.PaymentStatusCompleted
		next.transactionID = event.Reference
		next.method = event.Method
	}

	completedNow, err := s.applyTransition(&payment, next)
	if err != nil {
		return nil, err
	}
	if completedNow {
		s.notifyCompleted(&payment)
	}

	s.logger.Info("webhook processed",
		"tx_ref", event.TxRef,
		"reported_status", event.Status,
		"payment_status", payment.Status,
	)
	return &payment, nil
}

type transition struct {
	status        models.PaymentStatus
	transactionID string
	method        string
	logKey        string
	raw           json.RawMessage
}

// applyTransition writes the new status under a compare-and-set guard:
// the UPDATE only matches while the row is not completed, so a racing
// delivery that completed the payment first wins and this one degrades
// to merging the raw payload. Returns whether this call moved the
// payment into completed.
func (s *Service) applyTransition(payment *models.Payment, next transition) (bool, error) {
	completedNow := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Payment
		if err := tx.First(&current, "id = ?", payment.ID).Error; err != nil {
			return err
		}

		if current.IsTerminal() {
			if err := current.MergeGatewayResponse(next.logKey, next.raw); err != nil {
				return err
			}
			if err := tx.Model(&models.Payment{}).Where("id = ?", current.ID).
				Update("gateway_response", current.GatewayResponse).Error; err != nil {
				return err
			}
			*payment = current
			return nil
		}

		if err := current.MergeGatewayResponse(next.logKey, next.raw); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":           next.status,
			"gateway_response": current.GatewayResponse,
		}
		if next.status == models.PaymentStatusCompleted {
			now := time.Now().UTC()
			updates["transaction_id"] = next.transactionID
			updates["payment_method"] = next.method
			updates["completed_at"] = &now
			current.TransactionID = next.transactionID
			current.PaymentMethod = next.method
			current.CompletedAt = &now
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status <> ?", current.ID, models.PaymentStatusCompleted).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to a concurrent delivery that completed it
			if err := tx.First(&current, "id = ?", current.ID).Error; err != nil {
				return err
			}
			*payment = current
			return nil
		}

		current.Status = next.status
		completedNow = next.status == models.PaymentStatusCompleted
		*payment = current
		return nil
	})
	return completedNow, err
}

func (s *Service) notifyCompleted(payment *models.Payment) {
	if s.notifier == nil {
		return
	}
	email := ""
	if payment.User != nil {
		email = payment.User.Email
	}
	if email == "" {
		var user models.User
		if err := s.db.First(&user, "id = ?", payment.UserID).Error; err != nil {
			s.logger.Warn("could not resolve payer email for notification", "payment_id", payment.ID)
			return
		}
		email = user.Email
	}
	s.notifier.PaymentCompleted(email, payment)
}

// GetStatus returns the payment snapshot, ownership-checked.
func (s *Service) GetStatus(paymentID, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, "id = ? AND user_id = ?", paymentID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// ListPayments returns the user's payments, newest first.
func (s *Service) ListPayments(userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Cancel abandons a pending payment. Completed and failed payments are
// not cancellable; the booking can be re-initiated instead.
func (s *Service) Cancel(paymentID, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ? AND user_id = ?", paymentID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Update("status", models.PaymentStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotCancellable
		}
		payment.Status = models.PaymentStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
