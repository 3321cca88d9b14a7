package hacienda_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
)

func TestToRelative(t *testing.T) {
	cases := []struct {
		name                   string
		province, canton, dist string
		wantP, wantC, wantD    string
	}{
		{"Cartago, Tarrazú, San Marcos", "3", "302", "30205", "3", "02", "05"},
		{"San José centro", "1", "101", "10101", "1", "01", "01"},
		{"Limón", "7", "706", "70603", "7", "06", "03"},
		{"cantón de otra provincia", "1", "302", "30205", "1", "01", "05"},
		{"no numéricos", "x", "y", "z", "1", "01", "01"},
		{"provincia fuera de rango", "9", "902", "90201", "1", "02", "01"},
		{"vacíos", "", "", "", "1", "01", "01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := hacienda.ToRelative(tc.province, tc.canton, tc.dist)
			assert.Equal(t, tc.wantP, got.Province)
			assert.Equal(t, tc.wantC, got.Canton)
			assert.Equal(t, tc.wantD, got.District)
		})
	}
}

func TestToAbsolute(t *testing.T) {
	p, c, d := hacienda.ToAbsolute("3", "02", "05")
	assert.Equal(t, "3", p)
	assert.Equal(t, "302", c)
	assert.Equal(t, "30205", d)

	p, c, d = hacienda.ToAbsolute("0", "-1", "abc")
	assert.Equal(t, "1", p, "valores inválidos caen al mínimo")
	assert.Equal(t, "101", c)
	assert.Equal(t, "10101", d)
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"2260":           "2260",
		"2260.00000":     "2260",
		"0":              "0",
		"13":             "13",
		"0.5":            "0.5",
		"1234.56780":     "1234.5678",
		"0.123456":       "0.12346",
		"0.000001":       "0",
		"1e7":            "10000000",
		"99999999.99999": "99999999.99999",
		"-15.10":         "-15.1",
	}
	for in, want := range cases {
		assert.Equal(t, want, hacienda.FormatAmount(dec(in)), "FormatAmount(%s)", in)
	}
}

func TestInterpretStatus(t *testing.T) {
	cases := map[string]entity.StatusOutcome{
		"aceptado":   entity.OutcomeAccepted,
		"Aceptado":   entity.OutcomeAccepted,
		"accepted":   entity.OutcomeAccepted,
		"rechazado":  entity.OutcomeRejected,
		"rejected":   entity.OutcomeRejected,
		"error":      entity.OutcomeRejected,
		"procesando": entity.OutcomeProviderError,
		"recibido":   entity.OutcomeProviderError,
		"algo-raro":  entity.OutcomeProviderError,
		"":           entity.OutcomeProviderError,
	}
	for in, want := range cases {
		assert.Equal(t, want, hacienda.InterpretStatus(in), "InterpretStatus(%q)", in)
	}
}

func TestExtractState_NombresAlternativos(t *testing.T) {
	assert.Equal(t, "aceptado", hacienda.ExtractState(map[string]any{"ind-estado": "aceptado", "estado": "x"}))
	assert.Equal(t, "rechazado", hacienda.ExtractState(map[string]any{"estado": "rechazado"}))
	assert.Equal(t, "accepted", hacienda.ExtractState(map[string]any{"state": "accepted"}))
	assert.Equal(t, "processing", hacienda.ExtractState(map[string]any{"status": "processing"}))
	assert.Equal(t, "", hacienda.ExtractState(map[string]any{"otro": "valor"}))
}
