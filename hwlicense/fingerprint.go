package hwlicense

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"runtime"
	"sort"
	"strings"
)

// FingerprintEnv overrides GenerateFingerprint when set to a non-empty value.
const FingerprintEnv = "HWLICENSE_FINGERPRINT"

// GenerateFingerprint produces the hardware id a machine presents when
// validating a key. The key binds to the first id it sees, so the value must
// survive reboots: it hashes hostname, sorted MAC addresses, OS, architecture
// and /etc/machine-id (when present) into a SHA-256 hex string.
//
// Containers rarely have stable MACs or hostnames; set HWLICENSE_FINGERPRINT
// there instead.
func GenerateFingerprint() (string, error) {
	if fp := os.Getenv(FingerprintEnv); fp != "" {
		return fp, nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("get hostname: %w", err)
	}
	parts := []string{hostname}

	// best-effort
	if macs, err := macAddresses(); err == nil {
		parts = append(parts, macs...)
	}

	parts = append(parts, runtime.GOOS, runtime.GOARCH)

	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		parts = append(parts, strings.TrimSpace(string(machineID)))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:]), nil
}

// macAddresses returns sorted, non-loopback hardware MAC addresses.
func macAddresses() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var macs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" {
			macs = append(macs, mac)
		}
	}
	sort.Strings(macs)
	return macs, nil
}
