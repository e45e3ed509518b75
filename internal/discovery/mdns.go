// Package discovery advertises a relay on the local network over mDNS and
// finds one for clients started without a relay address.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service relays register under
const ServiceType = "_goatcanvas._tcp"

// ErrNoRelay is returned when browsing ends without an answer
var ErrNoRelay = errors.New("no relay found on the local network")

func newService(instance string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	// empty domain and host mean ".local" and the OS hostname; nil ips auto-detects
	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, ips,
		[]string{"goat-canvas relay", "path=/ws"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return service, nil
}

// Advertise announces a relay listening on port. Shut the returned server
// down to withdraw the announcement.
func Advertise(instance string, port int) (*mdns.Server, error) {
	service, err := newService(instance, port, nil)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	log.Printf("[relay] advertising %s as %q on port %d", ServiceType, instance, port)
	return server, nil
}

// entryAddr returns host:port for a usable answer
func entryAddr(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.Port == 0 {
		return "", false
	}
	switch {
	case e.AddrV4 != nil:
		return net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)), true
	case e.AddrV6 != nil:
		return net.JoinHostPort(e.AddrV6.String(), fmt.Sprint(e.Port)), true
	}
	return "", false
}

// Browse queries the local network for up to timeout and returns the
// address of the first relay that answers.
func Browse(ctx context.Context, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan error, 1)

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	go func() {
		done <- mdns.Query(params)
		close(entries)
	}()

	// keep the query unblocked after we stop listening
	drain := func() {
		go func() {
			for range entries {
			}
		}()
	}

	for {
		select {
		case e, ok := <-entries:
			if !ok {
				if err := <-done; err != nil {
					return "", fmt.Errorf("mdns query: %w", err)
				}
				return "", ErrNoRelay
			}
			if addr, ok := entryAddr(e); ok {
				drain()
				return addr, nil
			}
		case <-ctx.Done():
			drain()
			return "", ctx.Err()
		}
	}
}
