// Package qrcode renders the scannable labels printed on carrier instances.
package qrcode

import qr "github.com/skip2/go-qrcode"

const pngSize = 512

// PNG encodes a value (normally the instance's public catalog URL) as a QR
// code PNG.
func PNG(value string) ([]byte, error) {
	return qr.Encode(value, qr.Medium, pngSize)
}
