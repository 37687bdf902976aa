package cmd

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const defaultListenAddr = "127.0.0.1:3400"

// serveAddr resolves the listen address from the serve command's arguments.
// A bare positional argument and an -addr flag are both accepted:
//
//	askgov serve :8080
//	askgov serve -addr 0.0.0.0:8080
func serveAddr(args []string) (string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", defaultListenAddr, "listen address (host:port)")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*addr = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("parsing serve flags: %w", err)
	}

	if err := checkListenAddr(*addr); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", *addr, err)
	}
	return *addr, nil
}

// checkListenAddr rejects addresses net.Listen would choke on, with clearer
// messages than it gives.
func checkListenAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("must be in host:port format: %w", err)
	}

	if port == "" {
		return errors.New("port is required")
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be numeric: %w", err)
	}
	if n < 0 || n > 65535 {
		return fmt.Errorf("port must be 0-65535 (0 = auto-assign), got %d", n)
	}

	// Hostnames are resolved at listen time; here only reject obvious junk.
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		if strings.ContainsAny(host, " \t\n") {
			return fmt.Errorf("invalid host: %s", host)
		}
	}
	return nil
}
