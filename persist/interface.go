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

// Package persist implements the reliability journal: an on-disk record
// of the last side-effecting frame begun plus snapshots of unit, job and
// child state, used after a crash to recover in-progress operations
// without re-running their side effects.
//
// The store is a NutsDB key/value database with one bucket per table.
// Payloads are CBOR, transparently LZ4 compressed past a size threshold,
// and the store head carries a 4-byte magic plus a 2-byte version so an
// incompatible layout resets to a clean state instead of replaying.
package persist

import (
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libjob "github.com/sabouaram/sysinit/job"
)

// FrameKind identifies the operation begun before a potential crash.
type FrameKind uint8

const (
	// FrameNone means no operation is in flight.
	FrameNone FrameKind = iota

	// FrameOtherEvent brackets one event loop dispatch.
	FrameOtherEvent

	// FrameManagerOp brackets a manager level operation.
	FrameManagerOp

	// FrameSubManager brackets a sub unit operation; Unit names it.
	FrameSubManager

	// FrameFdListen brackets the socket trigger side effect; Started
	// tells whether the service start already ran.
	FrameFdListen
)

// Frame is the last-frame marker.
type Frame struct {
	Kind    FrameKind `cbor:"1,keyasint"`
	Unit    string    `cbor:"2,keyasint"`
	Started bool      `cbor:"3,keyasint"`
}

// UnitRecord is the persisted common frame of a unit.
type UnitRecord struct {
	Load   uint8   `cbor:"1,keyasint"`
	Active uint8   `cbor:"2,keyasint"`
	Pids   []int32 `cbor:"3,keyasint"`
}

// Journal is the reliability store.
type Journal interface {
	// Enabled reports whether prior compatible state was found at open;
	// when false there is nothing to replay.
	Enabled() bool

	// SetLastFrame records the marker of the operation about to run.
	SetLastFrame(f Frame) liberr.Error

	// LastFrame returns the recorded marker, if any.
	LastFrame() (Frame, bool)

	// ClearLastFrame removes the marker once the operation concluded.
	ClearLastFrame()

	// UnitPut stores the common frame record of a unit.
	UnitPut(id string, rec UnitRecord) liberr.Error

	// UnitGet loads the common frame record of a unit.
	UnitGet(id string) (UnitRecord, liberr.Error)

	// UnitKeys lists the units with a stored record.
	UnitKeys() []string

	// UnitDel drops a unit record and its sub record.
	UnitDel(id string)

	// SubPut stores the opaque sub-kind record of a unit.
	SubPut(id string, data []byte) liberr.Error

	// SubGet loads the opaque sub-kind record of a unit.
	SubGet(id string) ([]byte, liberr.Error)

	// JobsPut stores the whole run table.
	JobsPut(recs []libjob.Record) liberr.Error

	// JobsGet loads the stored run table.
	JobsGet() ([]libjob.Record, liberr.Error)

	// ChildPut stores the pid attribution index.
	ChildPut(data map[string][]int) liberr.Error

	// ChildGet loads the pid attribution index.
	ChildGet() (map[string][]int, liberr.Error)

	// Close flushes and closes the store. On-disk state stays.
	Close() error
}

// Open opens or creates the journal under the given directory.
func Open(dir string, log liblog.FuncLog) (Journal, liberr.Error) {
	return open(dir, log)
}
