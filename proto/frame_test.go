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

package proto_test

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	libprt "github.com/sabouaram/sysinit/proto"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	body := []byte("hello frame")

	if err := libprt.WriteFrame(&buf, body); err != nil {
		t.Fatalf("write: %v", err)
	}

	// header is an 8-byte little endian length
	raw := buf.Bytes()
	if len(raw) != 8+len(body) {
		t.Fatalf("frame length = %d", len(raw))
	}

	if n := binary.LittleEndian.Uint64(raw[:8]); n != uint64(len(body)) {
		t.Fatalf("header length = %d", n)
	}

	got, err := libprt.ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !bytes.Equal(got, body) {
		t.Fatalf("body mismatch: %q", got)
	}
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer

	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], 1<<32)
	buf.Write(hdr[:])

	if _, err := libprt.ReadFrame(&buf); err == nil {
		t.Fatal("oversized frame accepted")
	}
}

func TestFrameShortRead(t *testing.T) {
	var buf bytes.Buffer

	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], 64)
	buf.Write(hdr[:])
	buf.WriteString("truncated")

	if _, err := libprt.ReadFrame(&buf); err == nil {
		t.Fatal("truncated frame accepted")
	}
}

type echoHandler struct {
	got libprt.Request
}

func (h *echoHandler) Dispatch(req libprt.Request) libprt.Response {
	h.got = req

	if req.Ucomm != nil {
		return libprt.Response{Status: libprt.StatusOk, Message: req.Ucomm.Name}
	}

	return libprt.Response{Status: libprt.StatusBadReq, Message: "empty"}
}

func TestClientServerExchange(t *testing.T) {
	cli, srv := net.Pipe()

	h := &echoHandler{}

	done := make(chan error, 1)
	go func() {
		done <- func() error {
			if err := libprt.ServerStream(srv, h); err != nil {
				return err
			}
			return nil
		}()
	}()

	rsp, err := libprt.ClientStream(cli, libprt.Request{
		Ucomm: &libprt.UnitComm{
			Action: libprt.UnitActionStart,
			Name:   "app.socket",
			Mode:   "replace",
		},
	})

	if err != nil {
		t.Fatalf("client: %v", err)
	}

	if e := <-done; e != nil {
		t.Fatalf("server: %v", e)
	}

	if rsp.Status != libprt.StatusOk || rsp.Message != "app.socket" {
		t.Fatalf("unexpected response: %+v", rsp)
	}

	if h.got.Ucomm == nil || h.got.Ucomm.Action != libprt.UnitActionStart ||
		h.got.Ucomm.Name != "app.socket" || h.got.Ucomm.Mode != "replace" {
		t.Fatalf("request decoded wrong: %+v", h.got)
	}

	_ = cli.Close()
	_ = srv.Close()
}
