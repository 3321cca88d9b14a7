package notification_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/notification"
)

func TestProviderOf(t *testing.T) {
	cases := map[string]notification.Provider{
		"ana@gmail.com":     notification.ProviderGmail,
		"ana@GMAIL.COM":     notification.ProviderGmail,
		"ana@me.com":        notification.ProviderICloud,
		"ana@hotmail.com":   notification.ProviderOutlook,
		"ana@empresa.co.cr": notification.ProviderOther,
		"sin-arroba":        notification.ProviderOther,
	}
	for email, want := range cases {
		assert.Equal(t, want, notification.ProviderOf(email), email)
	}
}

func TestPolicyFor_IntentosPorProveedor(t *testing.T) {
	assert.Equal(t, 5, notification.PolicyFor(notification.ProviderGmail).MaxAttempts)
	assert.Equal(t, 4, notification.PolicyFor(notification.ProviderICloud).MaxAttempts)
	assert.Equal(t, 3, notification.PolicyFor(notification.ProviderOutlook).MaxAttempts)
	assert.Equal(t, 3, notification.PolicyFor(notification.ProviderOther).MaxAttempts)
	assert.Equal(t, 3, notification.PolicyFor("desconocido").MaxAttempts)
}

func TestRetryPolicy_Delay(t *testing.T) {
	gmail := notification.PolicyFor(notification.ProviderGmail)

	assert.Equal(t, 33*time.Second, gmail.Delay(1, errors.New("421"), 0), "30 s + 10 %")
	assert.Equal(t, 45*time.Second, gmail.Delay(1, errors.New("421"), 1), "30 s + 50 %")
	assert.Equal(t, 11*time.Minute, gmail.Delay(9, nil, 0), "se queda en la última demora")
	assert.Equal(t, 63*time.Second, gmail.Delay(1, errors.New("550 5.7.708 Access denied"), 0), "bloqueo por IP duplica la base")

	other := notification.PolicyFor(notification.ProviderOther)
	assert.Equal(t, 5500*time.Millisecond, other.Delay(0, nil, 0))
	assert.Equal(t, 5500*time.Millisecond, other.Delay(1, errors.New("550 5.7.708"), 0), "la regla 5.7.708 solo aplica a gmail")
}
