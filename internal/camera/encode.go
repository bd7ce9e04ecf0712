// Package camera provides still-capture sources for a practice session.
package camera

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"
)

// MaxFrameDimension bounds the width and height a frame may declare.
const MaxFrameDimension = 4096

// ErrFrameTooLarge is returned for frames whose declared size exceeds
// MaxFrameDimension on either side.
var ErrFrameTooLarge = errors.New("frame dimensions too large")

// Encode decodes a JPEG or PNG frame and re-encodes it as a base64 JPEG at
// quality in (0, 1].
func Encode(frame []byte, quality float64) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return "", fmt.Errorf("decode frame header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxFrameDimension || cfg.Height > MaxFrameDimension {
		return "", fmt.Errorf("%w: %dx%d", ErrFrameTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return "", fmt.Errorf("encode still: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func jpegQuality(q float64) int {
	n := int(math.Round(q * 100))
	return min(max(n, 1), 100)
}

// DecodeDataURL returns the bytes of a base64 data URL such as the ones
// produced by canvas.toDataURL. A bare base64 string is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty frame")
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return nil, errors.New("frame is not a base64 data URL")
		}
		s = s[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode frame data: %w", err)
	}
	return raw, nil
}
