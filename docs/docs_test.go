package docs_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	_ "github.com/jhoicas/Comprobantes-api/docs"
)

func TestSwagger_EspecificacionRegistrada(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var spec struct {
		Info  map[string]any            `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &spec), "la plantilla debe producir JSON válido")
	assert.Equal(t, "Comprobantes API", spec.Info["title"])
	assert.Contains(t, spec.Paths, "/api/documents/invoices")
	assert.Contains(t, spec.Paths["/api/documents/{id}/credit-notes"], "post")
}
