// Package mover is a reference IoClient implementation speaking the same
// binary request/response protocol this codebase's mover-backed CAS client
// uses for Get/Put (common/clients/mover_client.go), generalized to the
// Copy/Touch op codes and forbidden-path status code the Cache-Hit Copy FSM
// needs (SPEC_FULL.md §10.4).
package mover

import (
	"encoding/binary"
	"io"
)

// OpCode tags a wire request's operation, one byte on the wire.
type OpCode byte

const (
	OpCopy  OpCode = 0x01
	OpTouch OpCode = 0x02
)

// Status tags a wire response's outcome, one byte on the wire.
type Status byte

const (
	StatusOK              Status = 0x00
	StatusFailed          Status = 0x01
	StatusReadForbidden    Status = 0x02
)

// request is one wire-level Copy/Touch command.
type request struct {
	Op  OpCode
	ID  []byte
	Src []byte
	Dst []byte
}

// writeTo serializes a request: op byte, then three length-prefixed (uint16)
// byte strings — ID, Src, Dst — matching the length-prefixed-field idiom of
// the existing mover protocol.
func (r *request) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, r.Op); err != nil {
		return err
	}
	for _, field := range [][]byte{r.ID, r.Src, r.Dst} {
		if err := binary.Write(w, binary.LittleEndian, uint16(len(field))); err != nil {
			return err
		}
		if _, err := w.Write(field); err != nil {
			return err
		}
	}
	return nil
}

// response is one wire-level Copy/Touch result.
type response struct {
	Status        Status
	ID            []byte
	ForbiddenPath []byte
	Message       []byte
}

func readResponse(r io.Reader) (*response, error) {
	var status byte
	if err := binary.Read(r, binary.LittleEndian, &status); err != nil {
		return nil, err
	}

	resp := &response{Status: Status(status)}
	for _, dst := range []*[]byte{&resp.ID, &resp.ForbiddenPath, &resp.Message} {
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
		}
		*dst = buf
	}
	return resp, nil
}
