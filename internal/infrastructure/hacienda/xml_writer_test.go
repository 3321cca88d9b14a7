package hacienda

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXMLWriter_ConservaPrimerError(t *testing.T) {
	var buf bytes.Buffer
	w := newXMLWriter(&buf)

	end(w, "Huerfano")
	require.Error(t, w.err)
	first := w.err

	writeEl(w, "Clave", "123")
	assert.Equal(t, first, w.err, "los tokens posteriores no reemplazan el error")
	assert.Equal(t, first, w.flush())
	assert.NotContains(t, buf.String(), "<Clave>")
}

func TestXMLWriter_SinErrores(t *testing.T) {
	var buf bytes.Buffer
	w := newXMLWriter(&buf)
	w.token(xml.StartElement{Name: xml.Name{Local: "Raiz"}})
	writeEl(w, "Clave", "123")
	end(w, "Raiz")

	require.NoError(t, w.flush())
	assert.Contains(t, buf.String(), "<Clave>123</Clave>")
}
