package amqp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/notify"
)

func TestNewMessageIsDurableJSON(t *testing.T) {
	msg, err := newMessage(notify.OtpEmailSendCall{EmailAddress: "ada@example.com", OtpCode: "123456", OtpUsage: "login", ExpireAfter: 600})
	require.NoError(t, err)

	require.NotNil(t, msg.Header)
	assert.True(t, msg.Header.Durable)
	assert.Equal(t, "notify.OtpEmailSendCall", msg.ApplicationProperties["event"])
	require.Len(t, msg.Data, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Data[0], &decoded))
	assert.Equal(t, "ada@example.com", decoded["email_address"])
	assert.Equal(t, float64(600), decoded["expire_after"])
}

func TestNewProducerUnreachableIsRetryable(t *testing.T) {
	_, err := NewProducer("amqp://127.0.0.1:1", "guest", "guest")
	require.Error(t, err)
	assert.True(t, faults.Retryable(err))
}
