package bridge

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/starline/internal/logging"
	"github.com/muurk/starline/internal/version"
)

const (
	// ServiceType is the mDNS service type of StarLine bridges
	ServiceType = "_starline._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for bridge discovery
	DefaultScanTimeout = 5 * time.Second
)

// Peer is a bridge found on the local network
type Peer struct {
	Instance string
	Hostname string
	IP       string
	Port     int
	Path     string
	Version  string
	Protocol int // Bridge message schema, 0 when not advertised
}

// URL returns the websocket URL of the peer
func (p *Peer) URL() string {
	return fmt.Sprintf("ws://%s:%d%s", p.IP, p.Port, p.Path)
}

// Compatible reports whether the peer speaks this build's message schema.
// Peers that do not advertise a protocol are assumed compatible.
func (p *Peer) Compatible() bool {
	return p.Protocol == 0 || p.Protocol == version.BridgeProtocol
}

// String returns a human-readable description of the peer
func (p *Peer) String() string {
	s := fmt.Sprintf("%s (%s) at %s", p.Instance, p.Version, p.URL())
	if !p.Compatible() {
		s += fmt.Sprintf(" [protocol %d, want %d]", p.Protocol, version.BridgeProtocol)
	}
	return s
}

// Advertise registers a bridge over mDNS. The caller shuts the returned
// server down.
func Advertise(instance string, port int, path string) (*zeroconf.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "starline"
		}
		instance = "starline-" + host
	}

	txt := []string{
		"path=" + path,
		"version=" + version.Version,
		"proto=" + strconv.Itoa(version.BridgeProtocol),
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Bridge advertised over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return server, nil
}

// Discover browses the local network for bridges until the timeout expires
func Discover(ctx context.Context, timeout time.Duration) ([]*Peer, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		peers []*Peer
	)
	go func() {
		for entry := range entries {
			if peer := parseServiceEntry(entry); peer != nil {
				mu.Lock()
				peers = append(peers, peer)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Peer(nil), peers...), nil
}

// parseServiceEntry converts a zeroconf entry to a Peer. Entries without
// an address are ignored.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Peer {
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = "[" + entry.AddrIPv6[0].String() + "]"
	}
	if ip == "" {
		return nil
	}

	peer := &Peer{
		Instance: entry.Instance,
		Hostname: entry.HostName,
		IP:       ip,
		Port:     entry.Port,
		Path:     DefaultPath,
	}
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		switch key {
		case "path":
			if value != "" {
				peer.Path = value
			}
		case "version":
			peer.Version = value
		case "proto":
			if n, err := strconv.Atoi(value); err == nil {
				peer.Protocol = n
			}
		}
	}
	return peer
}
