// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum is the hex SHA-256 of data, recorded with every archived report.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func VerifyChecksum(data []byte, expected string) bool {
	return Checksum(data) == expected
}
