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

package proto

import (
	"encoding/binary"
	"io"

	"github.com/fxamacker/cbor/v2"
	liberr "github.com/nabbar/golib/errors"
)

const (
	headerLen = 8

	// maxFrame bounds one framed body; the protocol carries unit names
	// and short listings, never bulk data.
	maxFrame = 1 << 20
)

// WriteFrame writes one length prefixed frame.
func WriteFrame(w io.Writer, body []byte) liberr.Error {
	if len(body) > maxFrame {
		return ErrorFrameTooLarge.Errorf(len(body))
	}

	var hdr [headerLen]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(body)))

	if _, e := w.Write(hdr[:]); e != nil {
		return ErrorStreamWrite.Error(e)
	}

	if _, e := w.Write(body); e != nil {
		return ErrorStreamWrite.Error(e)
	}

	return nil
}

// ReadFrame reads one length prefixed frame.
func ReadFrame(r io.Reader) ([]byte, liberr.Error) {
	var hdr [headerLen]byte

	if _, e := io.ReadFull(r, hdr[:]); e != nil {
		return nil, ErrorStreamRead.Error(e)
	}

	n := binary.LittleEndian.Uint64(hdr[:])
	if n > maxFrame {
		return nil, ErrorFrameTooLarge.Errorf(n)
	}

	body := make([]byte, n)

	if _, e := io.ReadFull(r, body); e != nil {
		return nil, ErrorStreamRead.Error(e)
	}

	return body, nil
}

func serverStream(rw io.ReadWriter, h Handler) liberr.Error {
	body, err := ReadFrame(rw)
	if err != nil {
		return err
	}

	var req Request
	if e := cbor.Unmarshal(body, &req); e != nil {
		rsp := Response{Status: StatusBadReq, Message: "cannot decode request"}
		if b, er := cbor.Marshal(rsp); er == nil {
			_ = WriteFrame(rw, b)
		}
		return ErrorDecode.Error(e)
	}

	rsp := Response{Status: StatusInternal, Message: "no handler"}
	if h != nil {
		rsp = h.Dispatch(req)
	}

	b, e := cbor.Marshal(rsp)
	if e != nil {
		return ErrorEncode.Error(e)
	}

	return WriteFrame(rw, b)
}

func clientStream(rw io.ReadWriter, req Request) (Response, liberr.Error) {
	var rsp Response

	b, e := cbor.Marshal(req)
	if e != nil {
		return rsp, ErrorEncode.Error(e)
	}

	if err := WriteFrame(rw, b); err != nil {
		return rsp, err
	}

	body, err := ReadFrame(rw)
	if err != nil {
		return rsp, err
	}

	if e = cbor.Unmarshal(body, &rsp); e != nil {
		return rsp, ErrorDecode.Error(e)
	}

	return rsp, nil
}
