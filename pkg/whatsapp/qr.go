package whatsapp

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"

	qrCode "github.com/skip2/go-qrcode"
	"github.com/sunshineplan/imgconv"
)

const (
	qrImageSize   = 280
	qrDataURLHead = "data:image/png;base64,"
)

var ErrUnsupportedImageFormat = errors.New("unsupported image format")

// EncodeChallenge renders a pairing code as a PNG data URL.
func EncodeChallenge(code string) (string, error) {
	png, err := qrCode.Encode(code, qrCode.Medium, qrImageSize)
	if err != nil {
		return "", err
	}
	return qrDataURLHead + base64.StdEncoding.EncodeToString(png), nil
}

// ChallengeImage decodes a challenge data URL and re-encodes it in the
// requested format, resized to width when width > 0. It returns the image
// bytes and their content type.
func ChallengeImage(dataURL string, format string, width int) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, qrDataURLHead) {
		return nil, "", errors.New("challenge is not a PNG data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, qrDataURLHead))
	if err != nil {
		return nil, "", err
	}

	var target imgconv.Format
	var contentType string
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "png":
		if width <= 0 {
			return raw, "image/png", nil
		}
		target, contentType = imgconv.PNG, "image/png"
	case "jpg", "jpeg":
		target, contentType = imgconv.JPEG, "image/jpeg"
	case "gif":
		target, contentType = imgconv.GIF, "image/gif"
	default:
		return nil, "", ErrUnsupportedImageFormat
	}

	img, err := imgconv.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	if width > 0 {
		img = imgconv.Resize(img, &imgconv.ResizeOption{Width: width})
	}
	var buf bytes.Buffer
	if err := imgconv.Write(&buf, img, &imgconv.FormatOption{Format: target}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), contentType, nil
}
