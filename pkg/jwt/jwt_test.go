package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/Comprobantes-api/pkg/jwt"
)

func TestGenerateParse(t *testing.T) {
	tok, err := pkgjwt.Generate("secreto", "integracion-pos", "empresa-1", "comprobantes-api", 5)
	require.NoError(t, err)

	subject, companyID, err := pkgjwt.Parse("secreto", tok)
	require.NoError(t, err)
	assert.Equal(t, "integracion-pos", subject)
	assert.Equal(t, "empresa-1", companyID)
}

func TestParse_Rechaza(t *testing.T) {
	tok, err := pkgjwt.Generate("secreto", "s", "empresa-1", "i", 5)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("otro-secreto", tok)
	assert.Error(t, err, "firma incorrecta")

	expired, err := pkgjwt.Generate("secreto", "s", "empresa-1", "i", -1)
	require.NoError(t, err)
	_, _, err = pkgjwt.Parse("secreto", expired)
	assert.Error(t, err, "token expirado")

	sinEmpresa, err := pkgjwt.Generate("secreto", "s", "", "i", 5)
	require.NoError(t, err)
	_, _, err = pkgjwt.Parse("secreto", sinEmpresa)
	assert.Error(t, err, "token sin empresa")

	_, err = pkgjwt.Generate("", "s", "e", "i", 5)
	assert.Error(t, err)
}
