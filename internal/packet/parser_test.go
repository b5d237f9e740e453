package packet

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func clientHello(serverName string) []byte {
	name := []byte(serverName)

	sni := binary.BigEndian.AppendUint16(nil, uint16(len(name)+3))
	sni = append(sni, 0x00)
	sni = binary.BigEndian.AppendUint16(sni, uint16(len(name)))
	sni = append(sni, name...)

	ext := binary.BigEndian.AppendUint16(nil, 0x0000)
	ext = binary.BigEndian.AppendUint16(ext, uint16(len(sni)))
	ext = append(ext, sni...)

	body := []byte{0x03, 0x03}
	body = append(body, make([]byte, 32)...) // random
	body = append(body, 0x00)                // session id
	body = append(body, 0x00, 0x02, 0x00, 0x2f)
	body = append(body, 0x01, 0x00) // compression
	body = binary.BigEndian.AppendUint16(body, uint16(len(ext)))
	body = append(body, ext...)

	hs := []byte{0x01, byte(len(body) >> 16), byte(len(body) >> 8), byte(len(body))}
	hs = append(hs, body...)

	rec := []byte{0x16, 0x03, 0x01}
	rec = binary.BigEndian.AppendUint16(rec, uint16(len(hs)))
	return append(rec, hs...)
}

func serialize(t testing.TB, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return buf.Bytes()
}

func dnsQueryLayers(name string) []gopacket.SerializableLayer {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 2),
		DstIP:    net.IPv4(10, 0, 0, 1),
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	udp.SetNetworkLayerForChecksum(ip)
	dns := &layers.DNS{
		ID:      1,
		RD:      true,
		OpCode:  layers.DNSOpCodeQuery,
		QDCount: 1,
		Questions: []layers.DNSQuestion{
			{Name: []byte(name), Type: layers.DNSTypeA, Class: layers.DNSClassIN},
		},
	}
	return []gopacket.SerializableLayer{ip, udp, dns}
}

func tlsLayers(serverName string) []gopacket.SerializableLayer {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(10, 0, 0, 2),
		DstIP:    net.IPv4(10, 0, 0, 1),
	}
	tcp := &layers.TCP{SrcPort: 40001, DstPort: 8443, PSH: true, ACK: true, Window: 1024}
	tcp.SetNetworkLayerForChecksum(ip)
	return []gopacket.SerializableLayer{ip, tcp, gopacket.Payload(clientHello(serverName))}
}

func TestExtractDomain_DNS(t *testing.T) {
	data := serialize(t, dnsQueryLayers("WWW.Example.co.uk")...)

	domain, ok := ExtractDomain(data)
	if !ok {
		t.Fatal("no domain extracted from DNS query")
	}
	if domain != "www.example.co.uk" {
		t.Errorf("domain = %q", domain)
	}
}

func TestExtractDomain_DNSResponseIgnored(t *testing.T) {
	ls := dnsQueryLayers("example.com")
	ls[2].(*layers.DNS).QR = true

	if domain, ok := ExtractDomain(serialize(t, ls...)); ok {
		t.Errorf("response yielded %q", domain)
	}
}

func TestExtractDomain_TLS(t *testing.T) {
	data := serialize(t, tlsLayers("shop.example.com")...)

	domain, ok := ExtractDomain(data)
	if !ok {
		t.Fatal("no SNI extracted")
	}
	if domain != "shop.example.com" {
		t.Errorf("domain = %q", domain)
	}
}

func TestParseTLSClientHello_Truncated(t *testing.T) {
	hello := clientHello("example.com")
	for i := range hello {
		// must not panic on any prefix
		parseTLSClientHello(hello[:i])
	}
	if name, ok := parseTLSClientHello(hello); !ok || name != "example.com" {
		t.Errorf("full hello = %q, %v", name, ok)
	}
}

func TestMalformedPackets(t *testing.T) {
	garbage := [][]byte{
		{},
		{0x00, 0x01},
		{0x16, 0x03},
		{0x60},
		make([]byte, 5000),
	}

	for _, data := range garbage {
		if domain, found := ExtractDomain(data); found {
			t.Errorf("extracted %q from garbage", domain)
		}
	}
}

// Run with: go test -fuzz=FuzzParser ./internal/packet
func FuzzParser(f *testing.F) {
	f.Add([]byte("some random string"))
	f.Add([]byte{0x16, 0x03, 0x01, 0x00, 0x05})
	f.Add(clientHello("example.com"))

	f.Fuzz(func(t *testing.T, data []byte) {
		ExtractDomain(data)
		parseTLSClientHello(data)
	})
}
