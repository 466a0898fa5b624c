package models

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTxRefFormat(t *testing.T) {
	bookingID := uuid.New()
	txRef := NewTxRef(bookingID)

	assert.Contains(t, txRef, fmt.Sprintf("booking_%s_", bookingID))
	assert.Len(t, txRef, len("booking_")+36+1+8)

	assert.NotEqual(t, txRef, NewTxRef(bookingID), "suffix must differ between generations")
}

func TestMergeGatewayResponseKeepsOtherKeys(t *testing.T) {
	payment := Payment{}

	require.NoError(t, payment.MergeGatewayResponse("initiate", json.RawMessage(`{"step":"init"}`)))
	require.NoError(t, payment.MergeGatewayResponse("verification", json.RawMessage(`{"step":"verify"}`)))

	var log GatewayLog
	require.NoError(t, json.Unmarshal(payment.GatewayResponse, &log))
	assert.JSONEq(t, `{"step":"init"}`, string(log.Initiate))
	assert.JSONEq(t, `{"step":"verify"}`, string(log.Verification))
	assert.Empty(t, log.Webhook)
}

func TestMergeGatewayResponseReplacesSameKey(t *testing.T) {
	payment := Payment{}

	require.NoError(t, payment.MergeGatewayResponse("webhook", json.RawMessage(`{"attempt":1}`)))
	require.NoError(t, payment.MergeGatewayResponse("webhook", json.RawMessage(`{"attempt":2}`)))

	var log GatewayLog
	require.NoError(t, json.Unmarshal(payment.GatewayResponse, &log))
	assert.JSONEq(t, `{"attempt":2}`, string(log.Webhook))
}

func TestMergeGatewayResponseRejectsUnknownKey(t *testing.T) {
	payment := Payment{}
	assert.Error(t, payment.MergeGatewayResponse("refund", json.RawMessage(`{}`)))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, (&Payment{Status: PaymentStatusCompleted}).IsTerminal())
	assert.False(t, (&Payment{Status: PaymentStatusPending}).IsTerminal())
	assert.False(t, (&Payment{Status: PaymentStatusFailed}).IsTerminal())
	assert.False(t, (&Payment{Status: PaymentStatusCancelled}).IsTerminal())
}
