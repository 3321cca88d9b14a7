package notification

import (
	"strings"
	"time"
)

// Provider proveedor de correo del destinatario; cada uno tolera ritmos de reintento distintos.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderICloud  Provider = "icloud"
	ProviderOutlook Provider = "outlook"
	ProviderOther   Provider = "other"
)

// RetryPolicy demoras base por intento y número máximo de intentos.
type RetryPolicy struct {
	Provider    Provider
	Delays      []time.Duration
	MaxAttempts int
}

var policies = map[Provider]RetryPolicy{
	ProviderGmail: {
		Provider:    ProviderGmail,
		Delays:      []time.Duration{30 * time.Second, time.Minute, 2 * time.Minute, 5 * time.Minute, 10 * time.Minute},
		MaxAttempts: 5,
	},
	ProviderICloud: {
		Provider:    ProviderICloud,
		Delays:      []time.Duration{time.Minute, 2 * time.Minute, 5 * time.Minute, 10 * time.Minute, 15 * time.Minute},
		MaxAttempts: 4,
	},
	ProviderOutlook: {
		Provider:    ProviderOutlook,
		Delays:      []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, time.Minute, 2 * time.Minute},
		MaxAttempts: 3,
	},
	ProviderOther: {
		Provider:    ProviderOther,
		Delays:      []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 30 * time.Second, time.Minute},
		MaxAttempts: 3,
	},
}

// ProviderOf clasifica el destinatario por dominio.
func ProviderOf(email string) Provider {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ProviderOther
	}
	switch strings.ToLower(email[at+1:]) {
	case "gmail.com", "googlemail.com":
		return ProviderGmail
	case "icloud.com", "me.com", "mac.com":
		return ProviderICloud
	case "outlook.com", "hotmail.com", "live.com":
		return ProviderOutlook
	}
	return ProviderOther
}

// PolicyFor devuelve la política del proveedor.
func PolicyFor(p Provider) RetryPolicy {
	if pol, ok := policies[p]; ok {
		return pol
	}
	return policies[ProviderOther]
}

// Delay espera antes del intento attempt+1 (attempt >= 1 es el intento fallido).
// jitter en [0,1) agrega entre 10 % y 50 % del valor base. Gmail duplica la base ante 5.7.708 (bloqueo por IP).
func (p RetryPolicy) Delay(attempt int, sendErr error, jitter float64) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Delays) {
		idx = len(p.Delays) - 1
	}
	base := p.Delays[idx]
	extra := time.Duration(float64(base) * (0.1 + jitter*0.4))
	if p.Provider == ProviderGmail && sendErr != nil && strings.Contains(sendErr.Error(), "5.7.708") {
		return 2*base + extra
	}
	return base + extra
}
