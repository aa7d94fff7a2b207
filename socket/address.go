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
	"net"
	"net/netip"
	"strconv"
	"strings"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

// Family is the address family of a listening address.
type Family uint8

const (
	// FamilyIPv4 is an INET address.
	FamilyIPv4 Family = iota

	// FamilyIPv6 is an INET6 address.
	FamilyIPv6

	// FamilyUnixPath is a filesystem unix socket.
	FamilyUnixPath

	// FamilyUnixAbstract is an abstract namespace unix socket.
	FamilyUnixAbstract

	// FamilyNetlink is a kernel netlink socket.
	FamilyNetlink
)

// SockType is the socket type of a port.
type SockType uint8

const (
	// TypeStream is SOCK_STREAM.
	TypeStream SockType = iota

	// TypeDatagram is SOCK_DGRAM.
	TypeDatagram

	// TypeSeqPacket is SOCK_SEQPACKET.
	TypeSeqPacket

	// TypeRaw is SOCK_RAW, used by netlink listeners.
	TypeRaw
)

// Address is one parsed listening address.
type Address struct {
	// Fam is the address family.
	Fam Family

	// Host is the literal IP for INET families.
	Host string

	// Port is the TCP/UDP port for INET families.
	Port uint16

	// Path is the socket path or abstract name for unix families.
	Path string

	// NlFamily is the kernel protocol name for netlink.
	NlFamily string

	// NlGroup is the multicast group for netlink.
	NlGroup uint32
}

// netlinkFamilies maps the accepted netlink protocol names to the kernel
// protocol numbers.
var netlinkFamilies = map[string]int{
	"route":          unix.NETLINK_ROUTE,
	"firewall":       unix.NETLINK_FIREWALL,
	"inet-diag":      unix.NETLINK_INET_DIAG,
	"nflog":          unix.NETLINK_NFLOG,
	"xfrm":           unix.NETLINK_XFRM,
	"selinux":        unix.NETLINK_SELINUX,
	"iscsi":          unix.NETLINK_ISCSI,
	"audit":          unix.NETLINK_AUDIT,
	"fib-lookup":     unix.NETLINK_FIB_LOOKUP,
	"connector":      unix.NETLINK_CONNECTOR,
	"netfilter":      unix.NETLINK_NETFILTER,
	"ip6-fw":         unix.NETLINK_IP6_FW,
	"dnrtmsg":        unix.NETLINK_DNRTMSG,
	"kobject-uevent": unix.NETLINK_KOBJECT_UEVENT,
	"generic":        unix.NETLINK_GENERIC,
	"scsitransport":  unix.NETLINK_SCSITRANSPORT,
	"ecryptfs":       unix.NETLINK_ECRYPTFS,
	"rdma":           unix.NETLINK_RDMA,
	"crypto":         unix.NETLINK_CRYPTO,
}

// ipv6Supported is swapped in tests; on a real host it probes whether the
// kernel can open an INET6 socket.
var ipv6Supported = func() bool {
	fd, e := unix.Socket(unix.AF_INET6, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if e != nil {
		return false
	}

	_ = unix.Close(fd)
	return true
}

// ParseAddress parses one listening value:
//
//	/run/app.sock        unix filesystem path
//	@app                 unix abstract name
//	12345                bare port, IPv6 wildcard when supported
//	1.2.3.4:80           IPv4 literal
//	[2001:db8::1]:80     IPv6 literal
func ParseAddress(item string) (Address, liberr.Error) {
	item = strings.TrimSpace(item)

	if item == "" {
		return Address{}, ErrorAddressInvalid.Errorf(item)
	}

	if strings.HasPrefix(item, "/") {
		return Address{Fam: FamilyUnixPath, Path: item}, nil
	}

	if strings.HasPrefix(item, "@") {
		if len(item) < 2 {
			return Address{}, ErrorAddressInvalid.Errorf(item)
		}
		return Address{Fam: FamilyUnixAbstract, Path: item[1:]}, nil
	}

	if p, e := strconv.ParseUint(item, 10, 16); e == nil {
		if p == 0 {
			return Address{}, ErrorAddressInvalid.Errorf(item)
		}

		if ipv6Supported() {
			return Address{Fam: FamilyIPv6, Host: "::", Port: uint16(p)}, nil
		}

		return Address{Fam: FamilyIPv4, Host: "0.0.0.0", Port: uint16(p)}, nil
	}

	if ap, e := netip.ParseAddrPort(item); e == nil {
		if ap.Port() == 0 {
			return Address{}, ErrorAddressInvalid.Errorf(item)
		}

		f := FamilyIPv4
		if ap.Addr().Is6() {
			f = FamilyIPv6
		}

		return Address{Fam: f, Host: ap.Addr().String(), Port: ap.Port()}, nil
	}

	return Address{}, ErrorAddressInvalid.Errorf(item)
}

// ParseNetlink parses a "<family> <group>" netlink listening value.
func ParseNetlink(item string) (Address, liberr.Error) {
	w := strings.Fields(item)
	if len(w) != 2 {
		return Address{}, ErrorAddressInvalid.Errorf(item)
	}

	if _, k := netlinkFamilies[strings.ToLower(w[0])]; !k {
		return Address{}, ErrorNetlinkFamily.Errorf(w[0])
	}

	g, e := strconv.ParseUint(w[1], 10, 32)
	if e != nil {
		return Address{}, ErrorNetlinkGroup.Errorf(w[1])
	}

	return Address{
		Fam:      FamilyNetlink,
		NlFamily: strings.ToLower(w[0]),
		NlGroup:  uint32(g),
	}, nil
}

// String prints the address back in its parseable form, so that parse and
// print round-trip.
func (a Address) String() string {
	switch a.Fam {
	case FamilyUnixPath:
		return a.Path
	case FamilyUnixAbstract:
		return "@" + a.Path
	case FamilyNetlink:
		return a.NlFamily + " " + strconv.FormatUint(uint64(a.NlGroup), 10)
	case FamilyIPv6:
		return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
	case FamilyIPv4:
		return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
	}

	return ""
}

// sockFamily returns the kernel address family.
func (a Address) sockFamily() int {
	switch a.Fam {
	case FamilyIPv4:
		return unix.AF_INET
	case FamilyIPv6:
		return unix.AF_INET6
	case FamilyUnixPath, FamilyUnixAbstract:
		return unix.AF_UNIX
	case FamilyNetlink:
		return unix.AF_NETLINK
	}

	return unix.AF_UNSPEC
}

// sockaddr builds the kernel socket address for bind.
func (a Address) sockaddr() (unix.Sockaddr, liberr.Error) {
	switch a.Fam {
	case FamilyIPv4, FamilyIPv6:
		ip, e := netip.ParseAddr(a.Host)
		if e != nil {
			return nil, ErrorAddressInvalid.Errorf(a.Host)
		}

		if a.Fam == FamilyIPv4 {
			sa := &unix.SockaddrInet4{Port: int(a.Port)}
			copy(sa.Addr[:], ip.AsSlice())
			return sa, nil
		}

		sa := &unix.SockaddrInet6{Port: int(a.Port)}
		copy(sa.Addr[:], ip.AsSlice())
		return sa, nil

	case FamilyUnixPath:
		return &unix.SockaddrUnix{Name: a.Path}, nil

	case FamilyUnixAbstract:
		return &unix.SockaddrUnix{Name: "@" + a.Path}, nil

	case FamilyNetlink:
		return &unix.SockaddrNetlink{
			Family: unix.AF_NETLINK,
			Groups: a.NlGroup,
		}, nil
	}

	return nil, ErrorAddressInvalid.Errorf(a.String())
}

// sockProtocol returns the protocol number used at socket creation.
func (a Address) sockProtocol() int {
	if a.Fam == FamilyNetlink {
		return netlinkFamilies[a.NlFamily]
	}

	return 0
}

// sockType returns the kernel socket type constant.
func (t SockType) sockType() int {
	switch t {
	case TypeStream:
		return unix.SOCK_STREAM
	case TypeDatagram:
		return unix.SOCK_DGRAM
	case TypeSeqPacket:
		return unix.SOCK_SEQPACKET
	case TypeRaw:
		return unix.SOCK_RAW
	}

	return unix.SOCK_STREAM
}

// canAccept reports whether the socket type is connection oriented.
func (t SockType) canAccept() bool {
	return t == TypeStream || t == TypeSeqPacket
}

// String returns the canonical form of the socket type.
func (t SockType) String() string {
	switch t {
	case TypeStream:
		return "stream"
	case TypeDatagram:
		return "datagram"
	case TypeSeqPacket:
		return "seqpacket"
	case TypeRaw:
		return "raw"
	}

	return "stream"
}
