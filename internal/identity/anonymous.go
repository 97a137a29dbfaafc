package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashDeviceID derives the stable anonymous handle for a device: the first
// 16 bytes of SHA-256 over the raw device id, hex encoded (32 chars).
func HashDeviceID(deviceID string) string {
	sum := sha256.Sum256([]byte(deviceID))
	return hex.EncodeToString(sum[:16])
}

// AnonymousUsername returns the deterministic username for a device.
func AnonymousUsername(deviceID string) string {
	return HashDeviceID(deviceID)
}

// AnonymousEmail returns the deterministic email for a device.
func AnonymousEmail(deviceID string) string {
	return fmt.Sprintf("device_%s@anonymous.local", HashDeviceID(deviceID))
}

// AnonymousName returns the deterministic name component for a device,
// e.g. suffix "firstname" or "lastname".
func AnonymousName(deviceID, suffix string) string {
	return fmt.Sprintf("device_%s_%s", HashDeviceID(deviceID), suffix)
}
