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
	"os"
	"path/filepath"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

const listenBacklog = 128

// PortType distinguishes the listener flavors a socket unit can declare.
type PortType uint8

const (
	// PortSocket is a stream / datagram / seqpacket listener.
	PortSocket PortType = iota

	// PortNetlink is a kernel netlink listener.
	PortNetlink
)

// Port is one declared listener: it owns the bound descriptor when open.
// A negative descriptor means not opened.
type Port struct {
	typ PortType
	adr Address
	stp SockType
	fd  int
}

// NewPort builds a closed port for the given listener declaration.
func NewPort(typ PortType, adr Address, stp SockType) *Port {
	return &Port{
		typ: typ,
		adr: adr,
		stp: stp,
		fd:  -1,
	}
}

// Type returns the listener flavor.
func (p *Port) Type() PortType {
	return p.typ
}

// Address returns the parsed listening address.
func (p *Port) Address() Address {
	return p.adr
}

// SockType returns the socket type.
func (p *Port) SockType() SockType {
	return p.stp
}

// Listen returns the printable listening value, stable across parse and
// print round-trips.
func (p *Port) Listen() string {
	return p.adr.String()
}

// Fd returns the owned descriptor, -1 when not opened.
func (p *Port) Fd() int {
	return p.fd
}

// SetFd adopts an inherited descriptor, closing any previously owned one.
func (p *Port) SetFd(fd int) {
	if p.fd >= 0 && p.fd != fd {
		_ = unix.Close(p.fd)
	}

	p.fd = fd
}

// CanAccept reports whether the port can accept per-connection sockets.
func (p *Port) CanAccept() bool {
	return p.typ == PortSocket && p.stp.canAccept()
}

// Open creates, binds and, for connection oriented types, listens on the
// declared address. A unix path colliding with a stale socket is unlinked
// and bound a second time. On any failure the descriptor is closed and
// the error propagated.
func (p *Port) Open() liberr.Error {
	if p.fd >= 0 {
		return nil
	}

	fd, e := unix.Socket(p.adr.sockFamily(), p.stp.sockType()|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, p.adr.sockProtocol())
	if e != nil {
		return ErrorPortOpen.Error(e)
	}

	if e = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
		_ = unix.Close(fd)
		return ErrorPortOptions.Error(e)
	}

	sa, err := p.adr.sockaddr()
	if err != nil {
		_ = unix.Close(fd)
		return err
	}

	if p.adr.Fam == FamilyUnixPath {
		_ = os.MkdirAll(filepath.Dir(p.adr.Path), 0755)
	}

	if e = unix.Bind(fd, sa); e != nil {
		if e == unix.EADDRINUSE && p.adr.Fam == FamilyUnixPath {
			_ = unix.Unlink(p.adr.Path)
			e = unix.Bind(fd, sa)
		}

		if e != nil {
			_ = unix.Close(fd)
			return ErrorPortBind.Error(e)
		}
	}

	if p.CanAccept() {
		if e = unix.Listen(fd, listenBacklog); e != nil {
			_ = unix.Close(fd)
			return ErrorPortListen.Error(e)
		}
	}

	p.fd = fd
	return nil
}

// Close releases the owned descriptor and, for unix paths, removes the
// socket file.
func (p *Port) Close() {
	if p.fd < 0 {
		return
	}

	_ = unix.Close(p.fd)
	p.fd = -1

	if p.adr.Fam == FamilyUnixPath {
		_ = unix.Unlink(p.adr.Path)
	}
}

// Accept takes one pending connection, returning the accepted descriptor.
func (p *Port) Accept() (int, liberr.Error) {
	if p.fd < 0 || !p.CanAccept() {
		return -1, ErrorPortAccept.Error(nil)
	}

	fd, _, e := unix.Accept4(p.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if e != nil {
		return -1, ErrorPortAccept.Error(e)
	}

	return fd, nil
}

// ApplySockOpt sets the per-connection options on an accepted descriptor.
func (p *Port) ApplySockOpt(fd int) {
	if fd < 0 {
		return
	}

	if p.stp == TypeStream && (p.adr.Fam == FamilyIPv4 || p.adr.Fam == FamilyIPv6) {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}

	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
}

// FlushAccept drains and discards every pending connection of the queue.
func (p *Port) FlushAccept() {
	if p.fd < 0 || !p.CanAccept() {
		return
	}

	for {
		fd, _, e := unix.Accept4(p.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if e != nil {
			return
		}

		_ = unix.Close(fd)
	}
}

// FlushFd drains any readable data left on a non accepting descriptor so
// the triggered service inherits a clean listener.
func (p *Port) FlushFd() {
	if p.fd < 0 || p.CanAccept() {
		return
	}

	var buf = make([]byte, 4096)

	for {
		n, e := unix.Read(p.fd, buf)
		if n < 1 || e != nil {
			return
		}
	}
}

// Valid reports whether the descriptor still refers to an open file; used
// when re-adopting descriptors after a journal replay.
func (p *Port) Valid() bool {
	if p.fd < 0 {
		return false
	}

	_, e := unix.FcntlInt(uintptr(p.fd), unix.F_GETFD, 0)
	return e == nil
}
