package packet

import (
	"encoding/binary"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ExtractDomain pulls a hostname out of a raw IP packet: the question of a
// DNS query, or the SNI of a TLS ClientHello.
func ExtractDomain(payload []byte) (string, bool) {
	if len(payload) == 0 {
		return "", false
	}

	first := layers.LayerTypeIPv4
	if payload[0]>>4 == 6 {
		first = layers.LayerTypeIPv6
	}
	return DomainFromPacket(gopacket.NewPacket(payload, first, gopacket.NoCopy))
}

// DomainFromPacket is ExtractDomain for an already decoded packet, e.g. an
// Ethernet frame read from a capture file.
func DomainFromPacket(packet gopacket.Packet) (string, bool) {
	if dnsLayer := packet.Layer(layers.LayerTypeDNS); dnsLayer != nil {
		dns, _ := dnsLayer.(*layers.DNS)
		if !dns.QR && len(dns.Questions) > 0 {
			return cleanName(string(dns.Questions[0].Name))
		}
		return "", false
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp, _ := tcpLayer.(*layers.TCP)
		if len(tcp.Payload) > 0 {
			if sni, ok := parseTLSClientHello(tcp.Payload); ok {
				return cleanName(sni)
			}
		}
	}

	return "", false
}

func cleanName(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if name == "" {
		return "", false
	}
	return name, true
}

// parseTLSClientHello walks the handshake bytes to the server_name
// extension.
func parseTLSClientHello(data []byte) (string, bool) {
	// Record header: type(1)=0x16 handshake, version(2), length(2)
	if len(data) < 5 || data[0] != 0x16 {
		return "", false
	}
	pos := 5

	// Handshake header: type(1)=0x01 ClientHello, length(3)
	if pos+4 > len(data) || data[pos] != 0x01 {
		return "", false
	}
	pos += 4

	// client_version(2) + random(32)
	pos += 2 + 32

	// session_id
	if pos+1 > len(data) {
		return "", false
	}
	pos += 1 + int(data[pos])

	// cipher_suites
	if pos+2 > len(data) {
		return "", false
	}
	pos += 2 + int(binary.BigEndian.Uint16(data[pos:pos+2]))

	// compression_methods
	if pos+1 > len(data) {
		return "", false
	}
	pos += 1 + int(data[pos])

	// extensions
	if pos+2 > len(data) {
		return "", false
	}
	extensionsLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2

	end := pos + extensionsLen
	if end > len(data) {
		end = len(data)
	}
	for pos+4 <= end {
		extType := binary.BigEndian.Uint16(data[pos : pos+2])
		extLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		pos += 4

		if extType == 0x0000 {
			// list length(2), name type(1)=0 host_name, name length(2), name
			if pos+5 <= end && data[pos+2] == 0x00 {
				nameLen := int(binary.BigEndian.Uint16(data[pos+3 : pos+5]))
				if pos+5+nameLen <= end {
					return string(data[pos+5 : pos+5+nameLen]), true
				}
			}
			return "", false
		}
		pos += extLen
	}

	return "", false
}
