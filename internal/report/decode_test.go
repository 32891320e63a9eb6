package report

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_RoundTrip(t *testing.T) {
	t.Parallel()

	texts := []string{
		"Data;GMV\n01/01/2025;R$ 1.234,56\n",
		"Listar Por Consultor;Penetração\n10 - João Ávila;12,30%",
		"",
		"single line",
	}
	for _, text := range texts {
		got, err := DecodePayload(EncodePayload(text))
		require.NoError(t, err)
		assert.Equal(t, text, got)

		plain, err := DecodePayload(base64.StdEncoding.EncodeToString([]byte(text)))
		require.NoError(t, err)
		assert.Equal(t, text, plain)
	}
}

func TestDecodePayload_QuotedAndPadded(t *testing.T) {
	t.Parallel()

	payload := "  \"" + EncodePayload("a;b\n1;2") + "\"\n"
	got, err := DecodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2", got)
}

func TestDecodePayload_InvalidBase64(t *testing.T) {
	t.Parallel()

	_, err := DecodePayload("not base64 !!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDecodePayload_InvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := DecodePayload(base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x41}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("header\n"))
	assert.Equal(t, 1, countLines("header\n\n  \n"))
	assert.Equal(t, 2, countLines("header\r\nrow\r\n"))
}

func TestStripHeader(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "row1\nrow2", stripHeader("header\nrow1\nrow2"))
	assert.Equal(t, "", stripHeader("header"))
	assert.Equal(t, "", stripHeader("header\n"))
}
