package netcore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-netcore/netcore/internal/sockif"
)

// Family discriminates the Endpoint tagged union.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
	FamilyLocal
)

// Transport re-exports sockif's transport enum at the public API surface.
type Transport = sockif.Transport

const (
	TCP           = sockif.TCP
	UDP           = sockif.UDP
	LocalStream   = sockif.LocalStream
	LocalDatagram = sockif.LocalDatagram
)

// maxLocalPathLen bounds a LOCAL_* path/abstract-name the way the
// sun_path-equivalent does on the platforms this module targets; an
// abstract name on Linux consumes one leading byte for its marker.
const maxLocalPathLen = 108

// Endpoint is a tagged union of an IP(v4/v6, port, optional scope-id) and a
// Local(path or abstract name). It carries the transport it is valid for.
type Endpoint struct {
	Family    Family
	Transport Transport

	IP   net.IP // 4 or 16 bytes, for FamilyIPv4/FamilyIPv6
	Port uint16
	Zone string // IPv6 scope id, e.g. "eth0" or "2"

	Path string // FamilyLocal: filesystem path or "@name" for abstract
}

// NewIPEndpoint builds an Endpoint from an IP, port, transport, and
// optional IPv6 zone.
func NewIPEndpoint(ip net.IP, port uint16, transport Transport, zone string) Endpoint {
	fam := FamilyIPv4
	if ip.To4() == nil {
		fam = FamilyIPv6
	}
	return Endpoint{Family: fam, Transport: transport, IP: ip, Port: port, Zone: zone}
}

// NewLocalEndpoint builds a Endpoint for a filesystem path or abstract name.
func NewLocalEndpoint(path string, transport Transport) (Endpoint, error) {
	if len(path) > maxLocalPathLen {
		return Endpoint{}, NewError("NEW_LOCAL_ENDPOINT", CodeLimit, "local path exceeds platform limit")
	}
	return Endpoint{Family: FamilyLocal, Transport: transport, Path: path}, nil
}

// Text renders the endpoint in canonical wire-text form:
// ip4:port -> "a.b.c.d:port"; ip6:port -> "[addr[%scope]]:port"; local ->
// the raw path/abstract name.
func (e Endpoint) Text() string {
	switch e.Family {
	case FamilyIPv4:
		return fmt.Sprintf("%s:%d", e.IP.String(), e.Port)
	case FamilyIPv6:
		addr := e.IP.String() // net.IP.String() already collapses zeros canonically
		if e.Zone != "" {
			addr = addr + "%" + e.Zone
		}
		return fmt.Sprintf("[%s]:%d", addr, e.Port)
	case FamilyLocal:
		return e.Path
	default:
		return ""
	}
}

// ParseEndpoint parses text produced by Text (or any equivalent
// representation) back into an Endpoint. transport tags the transport on
// the resulting value since text form alone does not distinguish TCP/UDP
// or LOCAL_STREAM/LOCAL_DATAGRAM.
func ParseEndpoint(text string, transport Transport) (Endpoint, error) {
	if strings.HasPrefix(text, "[") {
		return parseIPv6(text, transport)
	}
	if isLocalTransport(transport) {
		return Endpoint{Family: FamilyLocal, Transport: transport, Path: text}, nil
	}
	// IPv4 form: a.b.c.d:port
	idx := strings.LastIndex(text, ":")
	if idx < 0 {
		return Endpoint{}, NewError("PARSE_ENDPOINT", CodeInvalid, "missing port separator")
	}
	host, portStr := text[:idx], text[idx+1:]
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return Endpoint{}, NewError("PARSE_ENDPOINT", CodeInvalid, "invalid ipv4 address")
	}
	port, err := parsePort(portStr)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Family: FamilyIPv4, Transport: transport, IP: ip.To4(), Port: port}, nil
}

func isLocalTransport(t Transport) bool {
	return t == LocalStream || t == LocalDatagram
}

func parseIPv6(text string, transport Transport) (Endpoint, error) {
	end := strings.Index(text, "]")
	if end < 0 || !strings.HasPrefix(text[end:], "]:") {
		return Endpoint{}, NewError("PARSE_ENDPOINT", CodeInvalid, "malformed ipv6 endpoint")
	}
	inner := text[1:end]
	portStr := text[end+2:]

	addr, zone, _ := strings.Cut(inner, "%")
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() != nil {
		return Endpoint{}, NewError("PARSE_ENDPOINT", CodeInvalid, "invalid ipv6 address")
	}
	port, err := parsePort(portStr)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Family: FamilyIPv6, Transport: transport, IP: ip.To16(), Port: port, Zone: zone}, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, NewError("PARSE_ENDPOINT", CodeInvalid, "invalid port")
	}
	return uint16(n), nil
}

// --- BER-ish schema-based binary codec, modeled on the teacher's
// uapi.Marshal/Unmarshal dispatch-by-type idiom: a tag byte selects the
// layout, followed by fixed-offset little-endian fields. ---

const (
	berTagIPv4  byte = 1
	berTagIPv6  byte = 2
	berTagLocal byte = 3
)

// MarshalBinary implements a schema-based encode for Endpoint, used by the
// BER-ish wire codec (round-trip is exact per spec invariant 8).
func (e Endpoint) MarshalBinary() ([]byte, error) {
	switch e.Family {
	case FamilyIPv4:
		buf := make([]byte, 1+1+4+2)
		buf[0] = berTagIPv4
		buf[1] = byte(e.Transport)
		copy(buf[2:6], e.IP.To4())
		binary.LittleEndian.PutUint16(buf[6:8], e.Port)
		return buf, nil
	case FamilyIPv6:
		zone := []byte(e.Zone)
		buf := make([]byte, 1+1+16+2+2+len(zone))
		buf[0] = berTagIPv6
		buf[1] = byte(e.Transport)
		copy(buf[2:18], e.IP.To16())
		binary.LittleEndian.PutUint16(buf[18:20], e.Port)
		binary.LittleEndian.PutUint16(buf[20:22], uint16(len(zone)))
		copy(buf[22:], zone)
		return buf, nil
	case FamilyLocal:
		path := []byte(e.Path)
		buf := make([]byte, 1+1+2+len(path))
		buf[0] = berTagLocal
		buf[1] = byte(e.Transport)
		binary.LittleEndian.PutUint16(buf[2:4], uint16(len(path)))
		copy(buf[4:], path)
		return buf, nil
	default:
		return nil, NewError("MARSHAL_ENDPOINT", CodeInvalid, "unknown endpoint family")
	}
}

// UnmarshalBinary decodes bytes produced by MarshalBinary.
func (e *Endpoint) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return NewError("UNMARSHAL_ENDPOINT", CodeInvalid, "truncated endpoint")
	}
	transport := Transport(data[1])
	switch data[0] {
	case berTagIPv4:
		if len(data) < 8 {
			return NewError("UNMARSHAL_ENDPOINT", CodeInvalid, "truncated ipv4 endpoint")
		}
		*e = Endpoint{
			Family:    FamilyIPv4,
			Transport: transport,
			IP:        net.IP(append([]byte(nil), data[2:6]...)),
			Port:      binary.LittleEndian.Uint16(data[6:8]),
		}
		return nil
	case berTagIPv6:
		if len(data) < 22 {
			return NewError("UNMARSHAL_ENDPOINT", CodeInvalid, "truncated ipv6 endpoint")
		}
		zoneLen := int(binary.LittleEndian.Uint16(data[20:22]))
		if len(data) < 22+zoneLen {
			return NewError("UNMARSHAL_ENDPOINT", CodeInvalid, "truncated ipv6 zone")
		}
		*e = Endpoint{
			Family:    FamilyIPv6,
			Transport: transport,
			IP:        net.IP(append([]byte(nil), data[2:18]...)),
			Port:      binary.LittleEndian.Uint16(data[18:20]),
			Zone:      string(data[22 : 22+zoneLen]),
		}
		return nil
	case berTagLocal:
		if len(data) < 4 {
			return NewError("UNMARSHAL_ENDPOINT", CodeInvalid, "truncated local endpoint")
		}
		pathLen := int(binary.LittleEndian.Uint16(data[2:4]))
		if len(data) < 4+pathLen {
			return NewError("UNMARSHAL_ENDPOINT", CodeInvalid, "truncated local path")
		}
		*e = Endpoint{Family: FamilyLocal, Transport: transport, Path: string(data[4 : 4+pathLen])}
		return nil
	default:
		return NewError("UNMARSHAL_ENDPOINT", CodeInvalid, "unknown endpoint tag")
	}
}

// jsonEndpoint is the JSON wire shape; it round-trips exactly via Text/Parse
// for IP families and the raw path for local, rather than leaking the
// internal tag byte.
type jsonEndpoint struct {
	Family    string `json:"family"`
	Transport int    `json:"transport"`
	Text      string `json:"text"`
}

// MarshalJSON implements json.Marshaler.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	var fam string
	switch e.Family {
	case FamilyIPv4:
		fam = "ipv4"
	case FamilyIPv6:
		fam = "ipv6"
	case FamilyLocal:
		fam = "local"
	}
	return json.Marshal(jsonEndpoint{Family: fam, Transport: int(e.Transport), Text: e.Text()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var je jsonEndpoint
	if err := json.Unmarshal(data, &je); err != nil {
		return err
	}
	parsed, err := ParseEndpoint(je.Text, Transport(je.Transport))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
