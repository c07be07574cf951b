package resolve

import (
	"context"
	"net"
	"net/netip"
	"testing"

	"github.com/miekg/dns"
	"github.com/rsclarke/ddnsd/internal/ddns"
)

func startServer(t *testing.T, records map[string][]dns.RR) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		answers, ok := records[q.Name]
		if !ok {
			m.Rcode = dns.RcodeNameError
		}
		for _, rr := range answers {
			if rr.Header().Rrtype == q.Qtype {
				m.Answer = append(m.Answer, rr)
			}
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("NewRR(%q): %v", s, err)
	}
	return rr
}

func TestLookup(t *testing.T) {
	addr := startServer(t, map[string][]dns.RR{
		"home.example.com.": {
			mustRR(t, "home.example.com. 60 IN A 1.2.3.4"),
			mustRR(t, "home.example.com. 60 IN AAAA 2001:db8::1"),
		},
	})
	ctx := context.Background()

	got, err := Lookup(ctx, addr, "home.example.com", ddns.RecordA)
	if err != nil {
		t.Fatalf("Lookup A failed: %v", err)
	}
	if len(got) != 1 || got[0] != netip.MustParseAddr("1.2.3.4") {
		t.Errorf("Lookup A = %v, want [1.2.3.4]", got)
	}

	got, err = Lookup(ctx, addr, "home.example.com.", ddns.RecordAAAA)
	if err != nil {
		t.Fatalf("Lookup AAAA failed: %v", err)
	}
	if !Contains(got, netip.MustParseAddr("2001:db8::1")) {
		t.Errorf("Lookup AAAA = %v", got)
	}

	got, err = Lookup(ctx, addr, "missing.example.com", ddns.RecordA)
	if err != nil || len(got) != 0 {
		t.Errorf("Lookup missing = %v, %v; want empty", got, err)
	}
}
