package notifier

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tadiwos/gojostay/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierDeliversQueuedEmails(t *testing.T) {
	n := New(8, nil)

	payment := &models.Payment{
		Amount:   decimal.RequireFromString("100.00"),
		Currency: "ETB",
	}
	n.PaymentCompleted("guest@example.com", payment)

	booking := &models.Booking{
		TotalAmount: decimal.RequireFromString("200.00"),
		StartDate:   time.Now(),
		EndDate:     time.Now().AddDate(0, 0, 2),
	}
	n.BookingConfirmed("guest@example.com", booking)

	// Close drains the queue; nothing should deadlock or panic.
	n.Close()
}

func TestNotifierDropsWhenQueueFull(t *testing.T) {
	n := &Notifier{
		ch:     make(chan Email, 1),
		logger: discardLogger(),
	}
	// no worker running: the second enqueue must hit the full-queue path
	// without blocking the caller

	payment := &models.Payment{Amount: decimal.RequireFromString("1.00"), Currency: "ETB"}

	done := make(chan struct{})
	go func() {
		n.PaymentCompleted("a@example.com", payment)
		n.PaymentCompleted("b@example.com", payment)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	assert.Len(t, n.ch, 1)
}
