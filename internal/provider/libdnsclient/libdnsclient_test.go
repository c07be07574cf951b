package libdnsclient_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/libdns/libdns"
	"github.com/rsclarke/ddnsd/internal/provider/libdnsclient"
	"github.com/rsclarke/ddnsd/internal/provider/memory"
)

func TestClientLifecycle(t *testing.T) {
	ctx := context.Background()
	zone := memory.NewZone()
	c := libdnsclient.New("example.com", time.Minute, zone)

	if c.Zone() != "example.com." {
		t.Errorf("Zone = %q, want example.com.", c.Zone())
	}

	id, err := c.FindRecord(ctx, "home.example.com", "A")
	if err != nil || id != "" {
		t.Fatalf("FindRecord = %q, %v; want empty", id, err)
	}

	ok, err := c.UpdateRecord(ctx, "A/home", "1.2.3.4")
	if err != nil || ok {
		t.Fatalf("UpdateRecord of missing record = %v, %v; want false", ok, err)
	}

	id, err = c.CreateRecord(ctx, "home.example.com", "A", "1.2.3.4")
	if err != nil || id != "A/home" {
		t.Fatalf("CreateRecord = %q, %v; want A/home", id, err)
	}
	if got := zone.Lookup("home", "A"); !reflect.DeepEqual(got, []string{"1.2.3.4"}) {
		t.Errorf("zone = %v", got)
	}

	found, err := c.FindRecord(ctx, "home.example.com", "A")
	if err != nil || found != id {
		t.Fatalf("FindRecord = %q, %v; want %q", found, err, id)
	}

	ok, err = c.UpdateRecord(ctx, id, "5.6.7.8")
	if err != nil || !ok {
		t.Fatalf("UpdateRecord = %v, %v", ok, err)
	}
	if got := zone.Lookup("home", "A"); !reflect.DeepEqual(got, []string{"5.6.7.8"}) {
		t.Errorf("zone after update = %v", got)
	}
}

func TestClientRejectsMismatchedFamily(t *testing.T) {
	ctx := context.Background()
	c := libdnsclient.New("example.com.", time.Minute, memory.NewZone())

	if id, err := c.CreateRecord(ctx, "home.example.com", "AAAA", "1.2.3.4"); err != nil || id != "" {
		t.Errorf("CreateRecord = %q, %v; want refusal", id, err)
	}
	if ok, err := c.UpdateRecord(ctx, "garbage", "1.2.3.4"); err != nil || ok {
		t.Errorf("UpdateRecord with malformed id = %v, %v; want false", ok, err)
	}
}

func TestClientPassesThroughTXT(t *testing.T) {
	ctx := context.Background()
	zone := memory.NewZone()
	c := libdnsclient.New("example.com.", time.Minute, zone)

	rec := libdns.TXT{Name: "_acme-challenge", Text: "abc"}
	if _, err := c.AppendRecords(ctx, "example.com.", []libdns.Record{rec}); err != nil {
		t.Fatalf("AppendRecords failed: %v", err)
	}
	if got := zone.Lookup("_acme-challenge", "TXT"); !reflect.DeepEqual(got, []string{"abc"}) {
		t.Errorf("TXT = %v", got)
	}
	if _, err := c.DeleteRecords(ctx, "example.com.", []libdns.Record{rec}); err != nil {
		t.Fatalf("DeleteRecords failed: %v", err)
	}
	if got := zone.Lookup("_acme-challenge", "TXT"); len(got) != 0 {
		t.Errorf("TXT after delete = %v", got)
	}
}

func TestClientRefusesNamesOutsideZone(t *testing.T) {
	ctx := context.Background()
	zone := memory.NewZone()
	c := libdnsclient.New("example.com", time.Minute, zone)

	id, err := c.CreateRecord(ctx, "evil.example.com", "A", "192.0.2.1")
	if err != nil || id != "A/evil" {
		t.Fatalf("CreateRecord = %q, %v; want A/evil", id, err)
	}

	for _, name := range []string{"evilexample.com", "other.org", "example.com.evil.net"} {
		t.Run(name, func(t *testing.T) {
			if c.InZone(name) {
				t.Errorf("InZone(%q) = true", name)
			}
			if found, err := c.FindRecord(ctx, name, "A"); err != nil || found != "" {
				t.Errorf("FindRecord = %q, %v; want empty", found, err)
			}
			if created, err := c.CreateRecord(ctx, name, "A", "198.51.100.66"); err != nil || created != "" {
				t.Errorf("CreateRecord = %q, %v; want refusal", created, err)
			}
		})
	}

	if got := zone.Lookup("evil", "A"); !reflect.DeepEqual(got, []string{"192.0.2.1"}) {
		t.Errorf("evil A = %v, want [192.0.2.1]", got)
	}
	recs, _ := zone.GetRecords(ctx, "example.com.")
	if len(recs) != 1 {
		t.Errorf("zone holds %d records, want 1", len(recs))
	}
}

func TestClientApexAndCase(t *testing.T) {
	ctx := context.Background()
	zone := memory.NewZone()
	c := libdnsclient.New("Example.COM.", time.Minute, zone)

	id, err := c.CreateRecord(ctx, "example.com", "A", "192.0.2.1")
	if err != nil || id != "A/@" {
		t.Fatalf("CreateRecord apex = %q, %v; want A/@", id, err)
	}
	found, err := c.FindRecord(ctx, "EXAMPLE.com.", "A")
	if err != nil || found != id {
		t.Errorf("FindRecord = %q, %v; want %q", found, err, id)
	}
}
