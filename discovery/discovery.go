// Package discovery finds LXI instruments on the local network through
// multicast DNS service discovery.
//
// DS1000Z oscilloscopes announce their raw SCPI socket as "_scpi-raw._tcp" and
// their web interface as "_lxi._tcp".
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/puzpuzpuz/xsync/v3"
)

// Service types browsed by default.
const (
	ServiceSCPIRaw = "_scpi-raw._tcp"
	ServiceLXI     = "_lxi._tcp"
)

// DefaultTimeout bounds a browse when no timeout is given.
const DefaultTimeout = 3 * time.Second

const domain = "local."

// Instrument is an instrument that answered a browse.
type Instrument struct {
	Instance  string
	Hostname  string
	Addresses []net.IP
	Port      int
	Service   string
	TXT       []string
}

// Host returns the address to connect to: the first IPv4 address if any,
// otherwise the host name without its trailing dot.
func (i Instrument) Host() string {
	for _, ip := range i.Addresses {
		if ip.To4() != nil {
			return ip.String()
		}
	}

	if len(i.Addresses) > 0 {
		return i.Addresses[0].String()
	}

	return strings.TrimSuffix(i.Hostname, ".")
}

func (i Instrument) String() string {
	return fmt.Sprintf("%s (%s) %s port %d", i.Instance, i.Service, i.Host(), i.Port)
}

// browseFunc starts browsing service and delivers entries until ctx is done.
type browseFunc func(ctx context.Context, service string, entries chan *zeroconf.ServiceEntry) error

func zeroconfBrowse(ctx context.Context, service string, entries chan *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("resolver error: %w", err)
	}

	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return fmt.Errorf("browse %s: %w", service, err)
	}

	return nil
}

// Browse listens for the given services, or ServiceSCPIRaw and ServiceLXI when
// none are given, until timeout elapses or ctx is done. Instruments are
// deduplicated by host name and port and sorted by host name.
func Browse(ctx context.Context, timeout time.Duration, services ...string) ([]Instrument, error) {
	return browse(ctx, timeout, zeroconfBrowse, services...)
}

func browse(ctx context.Context, timeout time.Duration, fn browseFunc, services ...string) ([]Instrument, error) {
	if len(services) == 0 {
		services = []string{ServiceSCPIRaw, ServiceLXI}
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found := xsync.NewMapOf[string, Instrument]()

	var wg sync.WaitGroup
	for _, service := range services {
		entries := make(chan *zeroconf.ServiceEntry)

		wg.Add(1)
		go func() {
			defer wg.Done()
			collect(ctx, service, entries, found)
		}()

		if err := fn(ctx, service, entries); err != nil {
			cancel()
			wg.Wait()

			return nil, err
		}
	}

	wg.Wait()

	out := make([]Instrument, 0, found.Size())
	found.Range(func(_ string, inst Instrument) bool {
		out = append(out, inst)
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}

		return out[i].Port < out[j].Port
	})

	return out, nil
}

func collect(ctx context.Context, service string, entries <-chan *zeroconf.ServiceEntry, found *xsync.MapOf[string, Instrument]) {
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return
			}

			if e == nil {
				continue
			}

			inst := fromEntry(service, e)
			found.LoadOrStore(inst.Hostname+"|"+strconv.Itoa(inst.Port), inst)

		case <-ctx.Done():
			return
		}
	}
}

func fromEntry(service string, e *zeroconf.ServiceEntry) Instrument {
	addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	addrs = append(addrs, e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)

	return Instrument{
		Instance:  cleanInstance(e.Instance),
		Hostname:  e.HostName,
		Addresses: addrs,
		Port:      e.Port,
		Service:   service,
		TXT:       append([]string{}, e.Text...),
	}
}

// cleanInstance removes DNS-SD escapes such as "\ " from an instance name.
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
