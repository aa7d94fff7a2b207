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

package socket

import (
	"github.com/fxamacker/cbor/v2"
	liberr "github.com/nabbar/golib/errors"
)

type dbPort struct {
	Type   uint8  `cbor:"1,keyasint"`
	Listen string `cbor:"2,keyasint"`
	Fd     int32  `cbor:"3,keyasint"`
}

type dbRecord struct {
	State   uint8    `cbor:"1,keyasint"`
	Result  uint8    `cbor:"2,keyasint"`
	CtlPid  int32    `cbor:"3,keyasint"`
	CmdHook string   `cbor:"4,keyasint"`
	CmdLen  uint16   `cbor:"5,keyasint"`
	Refused int32    `cbor:"6,keyasint"`
	Ports   []dbPort `cbor:"7,keyasint"`
}

// Snapshot serializes the socket runtime state: state, result, control
// pid, remaining command queue shape, refused counter and per-port
// descriptor assignments.
func (o *mng) Snapshot() ([]byte, liberr.Error) {
	o.m.Lock()

	rec := dbRecord{
		State:   uint8(o.sts),
		Result:  uint8(o.res),
		CtlPid:  int32(o.ctl),
		CmdHook: o.hok,
		CmdLen:  uint16(len(o.cmd)),
		Refused: int32(o.ref),
		Ports:   make([]dbPort, 0, len(o.prt)),
	}

	for _, p := range o.prt {
		rec.Ports = append(rec.Ports, dbPort{
			Type:   uint8(p.prt.Type()),
			Listen: p.prt.Listen(),
			Fd:     int32(p.prt.Fd()),
		})
	}

	o.m.Unlock()

	b, e := cbor.Marshal(rec)
	if e != nil {
		return nil, ErrorSnapshotEncode.Error(e)
	}

	return b, nil
}

// Restore re-applies a snapshot: state, result, refused counter, the
// remaining command queue of the recorded hook, and the port descriptor
// assignments. Descriptors are validated by Coldplug afterward.
func (o *mng) Restore(data []byte) liberr.Error {
	var rec dbRecord

	if e := cbor.Unmarshal(data, &rec); e != nil {
		return ErrorSnapshotDecode.Error(e)
	}

	o.m.Lock()
	o.sts = State(rec.State)
	o.res = Result(rec.Result)
	o.ctl = int(rec.CtlPid)
	o.ref = int(rec.Refused)
	o.m.Unlock()

	// rebuild the command queue shape of the recorded hook
	o.fillCommands(rec.CmdHook)

	o.m.Lock()
	if rec.CmdHook == "" {
		o.cmd = nil
	} else {
		for len(o.cmd) > int(rec.CmdLen) {
			o.cmd = o.cmd[1:]
		}
	}

	for _, rp := range rec.Ports {
		for _, p := range o.prt {
			if uint8(p.prt.Type()) == rp.Type && p.prt.Listen() == rp.Listen {
				p.prt.SetFd(int(rp.Fd))
				break
			}
		}
	}
	o.m.Unlock()

	return nil
}
