package serialmux

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assertErr = errors.New("serialmux test: injected failure")

func TestSerialMux_ReadLineSplitsOnNewline(t *testing.T) {
	mux := NewMockSerialMux([]byte("first\nsecond\n"))

	line, ok, err := mux.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", line)

	line, ok, err = mux.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", line)

	_, ok, err = mux.ReadLine()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSerialMux_SendCommandAppendsNewline(t *testing.T) {
	mockPort := &MockSerialPort{}
	mux := NewSerialMux[*MockSerialPort](mockPort)

	require.NoError(t, mux.SendCommand("AX"))
	assert.Equal(t, "AX\n", string(mockPort.WrittenData))

	require.NoError(t, mux.SendCommand("OJ\n"))
	assert.Equal(t, "AX\nOJ\n", string(mockPort.WrittenData))
}

func TestSerialMux_SendCommandPropagatesWriteError(t *testing.T) {
	mockPort := &MockSerialPort{WriteError: assertErr}
	mux := NewSerialMux[*MockSerialPort](mockPort)

	err := mux.SendCommand("AX")
	assert.ErrorIs(t, err, assertErr)
}

func TestSerialMux_ReadLinePropagatesReadError(t *testing.T) {
	mockPort := &MockSerialPort{ReadData: []byte("partial"), ReadError: assertErr}
	mux := NewSerialMux[*MockSerialPort](mockPort)

	_, _, err := mux.ReadLine()
	assert.ErrorIs(t, err, assertErr)
}

func TestSerialMux_Close(t *testing.T) {
	mockPort := &MockSerialPort{}
	mux := NewSerialMux[*MockSerialPort](mockPort)
	require.NoError(t, mux.Close())
	assert.True(t, mockPort.Closed)
}
