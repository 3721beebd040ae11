package dian_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infradian "github.com/jhoicas/Facturacion-api/internal/infrastructure/dian"
)

func TestCompressXMLToZip(t *testing.T) {
	xmlBytes := []byte(`<?xml version="1.0"?><Invoice/>`)

	zipBytes, err := infradian.CompressXMLToZip(xmlBytes, "900123456SETP000000001.xml")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1, "la DIAN exige un único archivo dentro del ZIP")

	entry := zr.File[0]
	assert.Equal(t, "900123456SETP000000001.xml", entry.Name)

	rc, err := entry.Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, xmlBytes, content, "el XML debe sobrevivir el round-trip")
}
