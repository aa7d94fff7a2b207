/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package proto implements the control protocol between the CLI and the
// manager: length prefixed frames on a byte stream. The header is an
// 8-byte little endian unsigned length; the body is a CBOR encoded tagged
// union for requests and a {status, message} pair for responses. Status
// values follow HTTP conventions: 2xx success, 4xx client, 5xx server.
package proto

import (
	"io"

	liberr "github.com/nabbar/golib/errors"
)

// Unit lifecycle actions.
const (
	UnitActionStatus uint8 = iota
	UnitActionStart
	UnitActionStop
	UnitActionRestart
	UnitActionReload
	UnitActionKill
)

// Unit file actions.
const (
	FileActionCat uint8 = iota
	FileActionEnable
	FileActionDisable
	FileActionMask
	FileActionGetDef
	FileActionSetDef
)

// Job actions.
const (
	JobActionList uint8 = iota
	JobActionCancel
)

// Manager actions.
const (
	MngrActionReload uint8 = iota
	MngrActionReexec
)

// System actions.
const (
	SysActionReboot uint8 = iota
	SysActionShutdown
	SysActionHalt
	SysActionSuspend
	SysActionPoweroff
	SysActionHibernate
)

// Response status values.
const (
	StatusOk       uint32 = 200
	StatusBadReq   uint32 = 400
	StatusNotFound uint32 = 404
	StatusConflict uint32 = 409
	StatusInternal uint32 = 500
)

// UnitComm is a unit lifecycle request.
type UnitComm struct {
	Action uint8  `cbor:"1,keyasint"`
	Name   string `cbor:"2,keyasint"`
	Mode   string `cbor:"3,keyasint,omitempty"`
}

// UnitFile is a unit file request.
type UnitFile struct {
	Action uint8  `cbor:"1,keyasint"`
	Name   string `cbor:"2,keyasint"`
}

// JobComm is a job table request.
type JobComm struct {
	Action uint8  `cbor:"1,keyasint"`
	JobId  uint32 `cbor:"2,keyasint"`
}

// MngrComm is a manager level request.
type MngrComm struct {
	Action uint8 `cbor:"1,keyasint"`
}

// SysComm is a system level request.
type SysComm struct {
	Action uint8 `cbor:"1,keyasint"`
}

// Request is the tagged request union; exactly one member is set.
type Request struct {
	Ucomm   *UnitComm `cbor:"1,keyasint,omitempty"`
	Ufile   *UnitFile `cbor:"2,keyasint,omitempty"`
	Jcomm   *JobComm  `cbor:"3,keyasint,omitempty"`
	Mcomm   *MngrComm `cbor:"4,keyasint,omitempty"`
	Syscomm *SysComm  `cbor:"5,keyasint,omitempty"`
}

// Response is the manager answer.
type Response struct {
	Status  uint32 `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
}

// Handler executes one decoded request.
type Handler interface {
	Dispatch(req Request) Response
}

// ServerStream reads one request from the stream, dispatches it and
// writes the response back.
func ServerStream(rw io.ReadWriter, h Handler) liberr.Error {
	return serverStream(rw, h)
}

// ClientStream sends one request and reads the response.
func ClientStream(rw io.ReadWriter, req Request) (Response, liberr.Error) {
	return clientStream(rw, req)
}
