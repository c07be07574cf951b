package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/rsclarke/ddnsd/internal/metrics"
	"go.uber.org/zap"
)

// RecordSource returns the data of records by name relative to the zone
// ("@" for the apex) and type. memory.Zone implements it.
type RecordSource interface {
	Lookup(name, typ string) []string
}

// DNSServer answers authoritatively for one zone from a RecordSource. It
// lets the memory provider serve the addresses it manages, along with the
// TXT records of ACME challenges.
type DNSServer struct {
	Zone    string
	Records RecordSource
	NSAddr  string // IP address to return for ns1.<zone>
	TTL     uint32
	Logger  *zap.Logger

	udpServer *dns.Server
	tcpServer *dns.Server
}

// Start begins listening for DNS queries on addr over UDP and TCP. It returns
// once both listeners are bound, or with the first bind error.
func (s *DNSServer) Start(addr string) error {
	s.Zone = strings.ToLower(strings.TrimSuffix(s.Zone, "."))
	if s.TTL == 0 {
		s.TTL = 60
	}
	handler := dns.HandlerFunc(s.handleDNS)

	started := make(chan string, 2)
	errCh := make(chan error, 2)

	s.udpServer = &dns.Server{Addr: addr, Net: "udp", Handler: handler,
		NotifyStartedFunc: func() { started <- "udp" }}
	s.tcpServer = &dns.Server{Addr: addr, Net: "tcp", Handler: handler,
		NotifyStartedFunc: func() { started <- "tcp" }}

	for _, srv := range []*dns.Server{s.udpServer, s.tcpServer} {
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("%s DNS server: %w", strings.ToUpper(srv.Net), err)
			}
		}()
	}

	timeout := time.After(5 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case network := <-started:
			s.Logger.Info("dns server started", logging.Net(network), logging.Addr(addr), logging.Domain(s.Zone))
		case err := <-errCh:
			s.Shutdown(context.Background())
			return err
		case <-timeout:
			s.Shutdown(context.Background())
			return fmt.Errorf("DNS server on %s did not start", addr)
		}
	}
	return nil
}

// Shutdown gracefully stops the DNS servers.
func (s *DNSServer) Shutdown(ctx context.Context) {
	if s.udpServer != nil {
		if err := s.udpServer.ShutdownContext(ctx); err != nil {
			s.Logger.Warn("dns udp shutdown error", zap.Error(err))
		}
	}
	if s.tcpServer != nil {
		if err := s.tcpServer.ShutdownContext(ctx); err != nil {
			s.Logger.Warn("dns tcp shutdown error", zap.Error(err))
		}
	}
}

func (s *DNSServer) handleDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	for _, q := range r.Question {
		qname := strings.ToLower(strings.TrimSuffix(q.Name, "."))

		rel, ok := s.relative(qname)
		if !ok {
			m.Authoritative = false
			m.Rcode = dns.RcodeRefused
			continue
		}

		switch {
		// SOA is required for ACME zone discovery.
		case q.Qtype == dns.TypeSOA:
			m.Answer = append(m.Answer, s.soa())
		case q.Qtype == dns.TypeNS && rel == "@":
			m.Answer = append(m.Answer, &dns.NS{
				Hdr: s.header(q.Name, dns.TypeNS, 300),
				Ns:  "ns1." + s.Zone + ".",
			})
		case rel == "ns1" && q.Qtype == dns.TypeA && s.NSAddr != "":
			m.Answer = append(m.Answer, &dns.A{
				Hdr: s.header(q.Name, dns.TypeA, 300),
				A:   net.ParseIP(s.NSAddr),
			})
		default:
			m.Answer = append(m.Answer, s.lookup(q, rel)...)
		}
	}

	if len(m.Answer) == 0 && m.Rcode == dns.RcodeSuccess {
		m.Ns = append(m.Ns, s.soa())
	}

	metrics.DNSQueries.WithLabelValues(queryType(r), dns.RcodeToString[m.Rcode]).Inc()
	remoteIP, _ := parseRemoteAddr(w.RemoteAddr())
	s.Logger.Debug("dns query",
		zap.String("qtype", queryType(r)),
		zap.Int("answers", len(m.Answer)),
		logging.RemoteIP(remoteIP))

	if err := w.WriteMsg(m); err != nil {
		s.Logger.Debug("failed to write DNS response", zap.Error(err))
	}
}

func (s *DNSServer) lookup(q dns.Question, rel string) []dns.RR {
	var answers []dns.RR
	switch q.Qtype {
	case dns.TypeA:
		for _, v := range s.Records.Lookup(rel, "A") {
			if ip := net.ParseIP(v).To4(); ip != nil {
				answers = append(answers, &dns.A{Hdr: s.header(q.Name, dns.TypeA, s.TTL), A: ip})
			}
		}
	case dns.TypeAAAA:
		for _, v := range s.Records.Lookup(rel, "AAAA") {
			if ip := net.ParseIP(v); ip != nil {
				answers = append(answers, &dns.AAAA{Hdr: s.header(q.Name, dns.TypeAAAA, s.TTL), AAAA: ip})
			}
		}
	case dns.TypeTXT:
		// TTL 1 keeps ACME challenge answers from being cached.
		for _, v := range s.Records.Lookup(rel, "TXT") {
			answers = append(answers, &dns.TXT{Hdr: s.header(q.Name, dns.TypeTXT, 1), Txt: []string{v}})
		}
	}
	return answers
}

// relative returns qname relative to the zone, or false if it lies outside.
func (s *DNSServer) relative(qname string) (string, bool) {
	if qname == s.Zone {
		return "@", true
	}
	if rel, ok := strings.CutSuffix(qname, "."+s.Zone); ok {
		return rel, true
	}
	return "", false
}

func (s *DNSServer) header(name string, rrtype uint16, ttl uint32) dns.RR_Header {
	return dns.RR_Header{Name: name, Rrtype: rrtype, Class: dns.ClassINET, Ttl: ttl}
}

func (s *DNSServer) soa() *dns.SOA {
	return &dns.SOA{
		Hdr:     s.header(s.Zone+".", dns.TypeSOA, 300),
		Ns:      "ns1." + s.Zone + ".",
		Mbox:    "hostmaster." + s.Zone + ".",
		Serial:  1,
		Refresh: 3600,
		Retry:   600,
		Expire:  604800,
		Minttl:  1,
	}
}

func queryType(r *dns.Msg) string {
	if len(r.Question) == 0 {
		return "none"
	}
	return dns.TypeToString[r.Question[0].Qtype]
}

func parseRemoteAddr(addr net.Addr) (string, int) {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.String(), a.Port
	case *net.TCPAddr:
		return a.IP.String(), a.Port
	default:
		return addr.String(), 0
	}
}
