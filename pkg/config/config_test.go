package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "stag", cfg.Hacienda.Environment)
	assert.Contains(t, cfg.Hacienda.AuthURL, "rut-stag")
	assert.Equal(t, 10*time.Second, cfg.Hacienda.StatusDelay)
	assert.Equal(t, "001", cfg.Hacienda.Branch)
	assert.Equal(t, "00001", cfg.Hacienda.Terminal)
	assert.Equal(t, "local", cfg.Hacienda.SignerMode)
	assert.Equal(t, "api-stag", cfg.Hacienda.ClientID)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("HACIENDA_ENV", "prod")
	t.Setenv("HACIENDA_STATUS_DELAY", "15")
	t.Setenv("HACIENDA_SUBMIT_TIMEOUT", "1m")
	t.Setenv("HACIENDA_STATUS_HOSTS", "api.comprobanteselectronicos.go.cr, api-sandbox.comprobanteselectronicos.go.cr")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.Hacienda.ReceptionURL, "https://api.comprobanteselectronicos.go.cr")
	assert.Equal(t, 15*time.Second, cfg.Hacienda.StatusDelay)
	assert.Equal(t, time.Minute, cfg.Hacienda.SubmitTimeout)
	assert.Len(t, cfg.Hacienda.StatusHosts, 2)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_Inconsistente(t *testing.T) {
	t.Run("ambiente desconocido", func(t *testing.T) {
		t.Setenv("HACIENDA_ENV", "qa")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("hmac sin secreto", func(t *testing.T) {
		t.Setenv("HACIENDA_SECURITY_CODE_MODE", "hmac")
		_, err := config.Load()
		assert.Error(t, err)
	})
	t.Run("firma remota sin URL", func(t *testing.T) {
		t.Setenv("HACIENDA_SIGNER_MODE", "remote")
		_, err := config.Load()
		assert.Error(t, err)
	})
}

func TestDSN_EscapaContrasena(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "comprobantes", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/comprobantes?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://otra"
	assert.Equal(t, "postgres://otra", c.ConnectionString())
}
