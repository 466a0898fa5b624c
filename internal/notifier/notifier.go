package notifier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tadiwos/gojostay/internal/models"
)

// Email is one queued notification. Delivery is fire-and-forget: a full
// queue drops the email with a warning instead of blocking the caller.
type Email struct {
	To      string
	Subject string
	Body    string
}

type Notifier struct {
	ch     chan Email
	logger *slog.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

func New(buffer int, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		ch:     make(chan Email, buffer),
		logger: logger,
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for email := range n.ch {
		n.send(email)
	}
}

func (n *Notifier) send(email Email) {
	n.logger.Info("notification sent",
		"to", email.To,
		"subject", email.Subject,
	)
}

func (n *Notifier) enqueue(email Email) {
	select {
	case n.ch <- email:
	default:
		n.logger.Warn("notification queue full, dropping email",
			"to", email.To,
			"subject", email.Subject,
		)
	}
}

// PaymentCompleted queues the payment confirmation email.
func (n *Notifier) PaymentCompleted(email string, payment *models.Payment) {
	n.enqueue(Email{
		To:      email,
		Subject: "Your payment is confirmed",
		Body: fmt.Sprintf(
			"Hello,\n\nWe received your payment of %s %s for booking %s.\nReference: %s\n\nThank you!",
			payment.Amount.StringFixed(2), payment.Currency, payment.BookingID, payment.TxRef,
		),
	})
}

// BookingConfirmed queues the booking confirmation email.
func (n *Notifier) BookingConfirmed(email string, booking *models.Booking) {
	n.enqueue(Email{
		To:      email,
		Subject: "Your booking is confirmed",
		Body: fmt.Sprintf(
			"Hello,\n\nYour booking has been successfully confirmed.\n\nbooking_id: %s\nstart_date: %s\nend_date: %s\ntotal_amount: %s\n\nThank you!",
			booking.ID,
			booking.StartDate.Format("2006-01-02"),
			booking.EndDate.Format("2006-01-02"),
			booking.TotalAmount.StringFixed(2),
		),
	})
}

// Close stops the worker after draining queued emails.
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.ch) })
	n.wg.Wait()
}
