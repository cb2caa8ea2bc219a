package render

import (
	"bytes"
	"image"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/bmp"
)

const defaultQRCodeSizePx = 32

// GenerateQRCodeImage returns a QR code image for the given payload.
// If payload is empty, it returns (nil, nil).
func GenerateQRCodeImage(payload string, sizePx int) (image.Image, error) {
	if payload == "" {
		return nil, nil
	}
	if sizePx <= 0 {
		sizePx = defaultQRCodeSizePx
	}

	qrCode, err := qrcode.New(payload, qrcode.Low)
	if err != nil {
		return nil, err
	}
	qrCode.DisableBorder = true

	return qrCode.Image(sizePx), nil
}

// QRCodeBMP encodes the QR code for payload as a BMP, the format messages
// accept as images.
func QRCodeBMP(payload string, sizePx int) ([]byte, error) {
	img, err := GenerateQRCodeImage(payload, sizePx)
	if err != nil || img == nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
