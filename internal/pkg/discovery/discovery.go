/*
Package discovery announces and finds inkwire relays on the local network
via mDNS.

A relay process advertises itself under the _inkwire._tcp service type so
that board clients on the same LAN can join without typing an address. Both
sides are best-effort: a network where multicast is filtered simply behaves
as if no relays were found.
*/
package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"

	"inkwire/internal/pkg/logx"
)

const (
	// ServiceType is the mDNS service identity of an inkwire relay.
	ServiceType = "_inkwire._tcp"

	// DefaultBrowseTimeout bounds one Browse pass over the network.
	DefaultBrowseTimeout = 2 * time.Second
)

// Advertiser keeps one relay's mDNS announcement alive until Shutdown.
type Advertiser struct {
	server *mdns.Server
	logger zerolog.Logger
}

// Advertise announces a relay instance on the local network. The instance
// name is what shows up in browse results; port is the relay's HTTP port.
func Advertise(instanceName string, port int) (*Advertiser, error) {
	service, err := mdns.NewMDNSService(
		instanceName,
		ServiceType,
		"", // domain, defaults to .local
		"", // host, defaults to the OS hostname
		port,
		nil, // IPs auto-detected
		[]string{"inkwire relay"},
	)
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}

	advertiserLogger := logx.Logger().With().
		Str("component", "discovery").
		Str("instance", instanceName).
		Logger()

	advertiserLogger.Info().Int("port", port).Msg("Advertising relay on the local network")

	return &Advertiser{server: server, logger: advertiserLogger}, nil
}

// Shutdown withdraws the announcement.
func (a *Advertiser) Shutdown() {
	if err := a.server.Shutdown(); err != nil {
		a.logger.Warn().Err(err).Msg("Error shutting down mDNS server")
	}
}

// Relay is one discovered relay instance.
type Relay struct {
	// Name is the advertised instance name.
	Name string

	// Addr is the relay's IPv4 address.
	Addr net.IP

	// Port is the relay's HTTP port.
	Port int
}

// URL returns the relay's HTTP base URL, suitable for the transport dialer.
func (r Relay) URL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(r.Addr.String(), strconv.Itoa(r.Port)))
}

// Browse queries the local network for relays for up to timeout and returns
// every instance that answered with a usable IPv4 address.
func Browse(timeout time.Duration) ([]Relay, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan struct{})

	var relays []Relay
	go func() {
		defer close(done)
		for entry := range entries {
			if entry.AddrV4 == nil || entry.Port == 0 {
				continue
			}
			relays = append(relays, Relay{
				Name: instanceName(entry.Name),
				Addr: entry.AddrV4,
				Port: entry.Port,
			})
		}
	}()

	params := &mdns.QueryParam{
		Service:     ServiceType,
		Entries:     entries,
		Timeout:     timeout,
		DisableIPv6: true,
	}

	queryErr := mdns.Query(params)
	close(entries)
	<-done

	if queryErr != nil {
		return nil, fmt.Errorf("mdns query: %w", queryErr)
	}

	return relays, nil
}

// instanceName strips the service and domain suffixes from a full mDNS
// entry name like "study-room._inkwire._tcp.local.".
func instanceName(fullName string) string {
	name := strings.TrimSuffix(fullName, ".")
	name = strings.TrimSuffix(name, ".local")
	name = strings.TrimSuffix(name, "."+ServiceType)
	return name
}
