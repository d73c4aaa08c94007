// Package privacy scrubs identifying details from messages before they leave
// the host in error reports.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Absolute POSIX paths and Windows drive paths that start a word
	pathPattern = regexp.MustCompile(`(^|[\s"'(=])((?:[A-Za-z]:\\|/)[^\s"'()\[\]{},;:]+)`)

	// Hex device identifiers as reported by capture backends
	deviceIDPattern = regexp.MustCompile(`\b[0-9a-fA-F]{16,}\b`)

	// host:port pairs such as a telemetry listen address
	hostPortPattern = regexp.MustCompile(`\b(?:\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+):\d{1,5}\b`)
)

// ScrubMessage replaces file paths, device identifiers and network addresses
// in message with stable anonymous tokens.
func ScrubMessage(message string) string {
	message = pathPattern.ReplaceAllStringFunc(message, func(m string) string {
		sub := pathPattern.FindStringSubmatch(m)
		return sub[1] + AnonymizePath(sub[2])
	})
	message = hostPortPattern.ReplaceAllStringFunc(message, anonymizeHostPort)
	return deviceIDPattern.ReplaceAllStringFunc(message, AnonymizeDevice)
}

// AnonymizePath hashes a file path but keeps its extension, which is enough
// to tell a WAV input from a config or log file.
func AnonymizePath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if len(ext) > 6 {
		ext = ""
	}
	return "path-" + shortHash(path) + ext
}

// AnonymizeDevice hashes a capture device name or ID. The system default is
// not identifying and is kept.
func AnonymizeDevice(device string) string {
	switch strings.ToLower(device) {
	case "", "default", "sysdefault":
		return device
	}
	return "device-" + shortHash(device)
}

func anonymizeHostPort(hostPort string) string {
	i := strings.LastIndexByte(hostPort, ':')
	host, port := hostPort[:i], hostPort[i+1:]
	switch host {
	case "localhost", "127.0.0.1", "0.0.0.0":
		return hostPort
	}
	return "host-" + shortHash(host) + ":" + port
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum[:6])
}
