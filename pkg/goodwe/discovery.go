package goodwe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	DISCOVERY_ADDRESS = "255.255.255.255:48899"
	DISCOVERY_REQUEST = "WIFIKIT-214028-READ"
	DISCOVERY_TIMEOUT = 5 * time.Second
)

type DiscoveredInverter struct {
	Address      string
	IP           string
	SerialNumber string
	WifiName     string
}

// ParseDiscoveryReply parses "ip,serial,wifi_name", optionally NUL terminated.
func ParseDiscoveryReply(reply []byte) (*DiscoveredInverter, error) {
	if end := bytes.IndexByte(reply, 0); end >= 0 {
		reply = reply[:end]
	}
	items := strings.Split(strings.TrimSpace(string(reply)), ",")
	if len(items) < 3 {
		return nil, fmt.Errorf("goodwe: unexpected discovery reply %q", reply)
	}
	return &DiscoveredInverter{
		IP:           items[0],
		SerialNumber: items[1],
		WifiName:     items[2],
	}, nil
}

// Discover broadcasts the discovery trigger and collects replies until
// timeout elapses or ctx is done. Malformed replies are skipped.
func Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredInverter, error) {
	return discover(ctx, DISCOVERY_ADDRESS, timeout)
}

func discover(ctx context.Context, target string, timeout time.Duration) ([]DiscoveredInverter, error) {
	if timeout <= 0 {
		timeout = DISCOVERY_TIMEOUT
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, &NetworkError{Op: "bind", Err: err}
	}
	defer conn.Close()

	remote, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, &NetworkError{Op: "resolve", Err: err}
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &NetworkError{Op: "deadline", Err: err}
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.WriteToUDP([]byte(DISCOVERY_REQUEST), remote); err != nil {
		return nil, &NetworkError{Op: "send", Err: err}
	}

	var found []DiscoveredInverter
	buf := make([]byte, RECEIVE_BUFFER_SIZE)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return found, nil
			}
			return found, &NetworkError{Op: "receive", Err: err}
		}
		inv, err := ParseDiscoveryReply(buf[:n])
		if err != nil {
			continue
		}
		inv.Address = addr.IP.String()
		found = append(found, *inv)
	}
}
