package mover

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &request{Op: OpCopy, ID: []byte("cmd-1"), Src: []byte("/src/a"), Dst: []byte("/dst/a")}
	var buf bytes.Buffer
	require.NoError(t, req.writeTo(&buf))

	assert.True(t, buf.Len() > 0)
	raw := buf.Bytes()
	require.Len(t, raw, 1+2+5+2+6+2+6)
	assert.Equal(t, byte(OpCopy), raw[0])
	assert.Equal(t, []byte{5, 0}, raw[1:3])
	assert.Equal(t, "cmd-1", string(raw[3:8]))
	assert.Equal(t, []byte{6, 0}, raw[8:10])
	assert.Equal(t, "/src/a", string(raw[10:16]))
	assert.Equal(t, []byte{6, 0}, raw[16:18])
	assert.Equal(t, "/dst/a", string(raw[18:24]))
}

func TestReadResponse_OK(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(StatusOK))
	writeField(&buf, []byte("cmd-1"))
	writeField(&buf, nil)
	writeField(&buf, nil)

	resp, err := readResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, []byte("cmd-1"), resp.ID)
}

func TestReadResponse_ReadForbidden(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(StatusReadForbidden))
	writeField(&buf, []byte("cmd-2"))
	writeField(&buf, []byte("gs://bad/obj"))
	writeField(&buf, []byte("forbidden"))

	resp, err := readResponse(&buf)
	require.NoError(t, err)
	assert.Equal(t, StatusReadForbidden, resp.Status)
	assert.Equal(t, "gs://bad/obj", string(resp.ForbiddenPath))
}

func writeField(buf *bytes.Buffer, field []byte) {
	n := uint16(len(field))
	buf.WriteByte(byte(n))
	buf.WriteByte(byte(n >> 8))
	buf.Write(field)
}
