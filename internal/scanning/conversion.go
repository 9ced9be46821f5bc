package scanning

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	// maxPhotoDimension bounds the longest side sent to providers
	maxPhotoDimension = 2048
	jpegQuality       = 85
)

type photoFormat string

const (
	formatJPEG    photoFormat = "jpeg"
	formatPNG     photoFormat = "png"
	formatGIF     photoFormat = "gif"
	formatWebP    photoFormat = "webp"
	formatHEIC    photoFormat = "heic"
	formatPDF     photoFormat = "pdf"
	formatUnknown photoFormat = "unknown"
)

// decodePhotoBase64 decodes a base64 photo, with or without a data URI prefix
func decodePhotoBase64(photoBase64 string) ([]byte, error) {
	s := strings.TrimSpace(photoBase64)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx == -1 {
			return nil, fmt.Errorf("invalid data URI")
		}
		s = s[idx+1:]
	}
	if s == "" {
		return nil, fmt.Errorf("empty photo")
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip the padding
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("decoding base64: %w", err)
		}
	}
	return data, nil
}

// sniffFormat identifies the photo format from its magic bytes
func sniffFormat(data []byte) photoFormat {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return formatJPEG
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return formatPNG
	case bytes.HasPrefix(data, []byte("GIF8")):
		return formatGIF
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return formatWebP
	case isHEICFormat(data):
		return formatHEIC
	case bytes.HasPrefix(data, []byte("%PDF")):
		return formatPDF
	}
	return formatUnknown
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files typically start with specific magic bytes
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	// Check for ftyp at offset 4 followed by a HEIC-related brand
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heix" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// pdfToImage renders the first page of a PDF, e.g. a grocery delivery receipt
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// decodeImage decodes any supported photo format
func decodeImage(data []byte, format photoFormat) (image.Image, error) {
	switch format {
	case formatPDF:
		return pdfToImage(data)
	case formatHEIC:
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	case formatWebP:
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding WebP image: %w", err)
		}
		return img, nil
	case formatJPEG, formatPNG, formatGIF:
		// Phone photos carry their rotation in EXIF
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, WebP, HEIC, HEIF, PDF")
}

// preparePhoto converts a photo to a JPEG no larger than maxPhotoDimension.
// JPEGs already within bounds are returned untouched.
// Returns the photo and whether conversion occurred.
func preparePhoto(data []byte) (*Photo, bool, error) {
	format := sniffFormat(data)

	if format == formatJPEG {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err == nil && cfg.Width <= maxPhotoDimension && cfg.Height <= maxPhotoDimension {
			return &Photo{Data: data, MIMEType: "image/jpeg"}, false, nil
		}
	}

	img, err := decodeImage(data, format)
	if err != nil {
		return nil, false, err
	}

	// Fit never enlarges smaller images
	img = imaging.Fit(img, maxPhotoDimension, maxPhotoDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, false, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Photo{Data: buf.Bytes(), MIMEType: "image/jpeg"}, true, nil
}
