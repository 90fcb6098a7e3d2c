package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// Normalizer converts a raw receipt artifact into a PNG the analyzer
// can consume
type Normalizer interface {
	// Normalize converts the file at rawPath to PNG and returns the
	// path of the processed image (rawPath itself if already PNG)
	Normalize(rawPath string) (string, error)
}

// PNGNormalizer implements Normalizer for PDF, HEIC/HEIF, JPEG, GIF
// and PNG inputs
type PNGNormalizer struct{}

// Normalize converts the file at rawPath to PNG
func (PNGNormalizer) Normalize(rawPath string) (string, error) {
	data, err := os.ReadFile(rawPath)
	if err != nil {
		return "", fmt.Errorf("reading raw image: %w", err)
	}

	pngData, converted, err := toPNG(data, rawPath)
	if err != nil {
		return "", err
	}
	if !converted {
		return rawPath, nil
	}

	ext := filepath.Ext(rawPath)
	outPath := strings.TrimSuffix(rawPath, ext) + ".png"
	if err := os.WriteFile(outPath, pngData, 0644); err != nil {
		return "", fmt.Errorf("writing processed image: %w", err)
	}
	return outPath, nil
}

// toPNG converts PDFs and non-PNG images to PNG format, returning
// whether a conversion occurred
func toPNG(data []byte, path string) ([]byte, bool, error) {
	switch {
	case strings.EqualFold(filepath.Ext(path), ".pdf"):
		pngData, err := pdfToPNG(data)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF: %w", err)
		}
		return pngData, true, nil
	case isHEIC(data):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, false, fmt.Errorf("decoding HEIC image: %w", err)
		}
		pngData, err := encodePNG(img)
		if err != nil {
			return nil, false, err
		}
		return pngData, true, nil
	case strings.EqualFold(filepath.Ext(path), ".png"):
		return data, false, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, false, fmt.Errorf("decoding image (supported: JPEG, PNG, GIF, HEIC, PDF): %w", err)
		}
		pngData, err := encodePNG(img)
		if err != nil {
			return nil, false, err
		}
		return pngData, true, nil
	}
}

// pdfToPNG renders the first PDF page; receipts are single page
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC checks the ftyp box brands HEIC containers start with
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
