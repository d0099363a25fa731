// Package badge issues visitor badge numbers and the QR artifacts printed on them.
package badge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

// Prefix starts every badge number.
const Prefix = "VIS"

// Generate produces a badge number: prefix, the last six digits of the
// current epoch milliseconds, and a three-digit random suffix. Uniqueness
// is enforced by the visits table; callers regenerate on a collision.
func Generate() string {
	ts := time.Now().UnixMilli() % 1_000_000
	return fmt.Sprintf("%s%06d%03d", Prefix, ts, rand.Intn(1000))
}

// QRPayload is the canonical structure encoded into a badge's QR code.
// Scanners decode the same structure to recover the badge number.
type QRPayload struct {
	BadgeNumber string    `json:"badgeNumber"`
	Name        string    `json:"name"`
	CheckInTime time.Time `json:"checkInTime"`
}

// EncodeQR renders the payload as a 256px PNG QR code and returns it
// inline as a data URL, ready to embed in a response or badge template.
func EncodeQR(badgeNumber, name string, checkInTime time.Time) (string, error) {
	data, err := json.Marshal(QRPayload{
		BadgeNumber: badgeNumber,
		Name:        name,
		CheckInTime: checkInTime,
	})
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// ScannedBadge extracts the badge number from scanned QR text. If the text
// is not the canonical payload it is treated as a raw badge number.
func ScannedBadge(text string) string {
	text = strings.TrimSpace(text)
	var p QRPayload
	if err := json.Unmarshal([]byte(text), &p); err == nil && p.BadgeNumber != "" {
		return p.BadgeNumber
	}
	return text
}
