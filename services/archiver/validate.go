package archiver

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// magic signatures for the formats that show up most in course content.
// validation only catches an html error page masquerading as a successful
// download, it does not parse formats.
var zipSignatures = [][]byte{
	{'P', 'K', 0x03, 0x04},
	{'P', 'K', 0x05, 0x06},
	{'P', 'K', 0x07, 0x08},
}

var pdfSignature = []byte("%PDF-")
var jpegSignature = []byte{0xff, 0xd8, 0xff}
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func looksLikeHtml(header []byte) bool {
	lower := bytes.ToLower(header)
	return bytes.Contains(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<!doctype"))
}

// ValidateFile checks the first bytes of a downloaded file against its
// claimed extension. A false verdict comes with a message describing the
// mismatch; an html-shaped header gets its own message since it almost
// always means an expired session or a broken link.
func ValidateFile(path string, expectedExtension string) (bool, string) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Sprintf("could not validate file: %s", err)
	}
	defer f.Close()

	header := make([]byte, 1024)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return false, fmt.Sprintf("could not validate file: %s", err)
	}
	header = header[:n]

	switch strings.ToLower(expectedExtension) {
	case ".pdf":
		if !bytes.HasPrefix(header, pdfSignature) {
			if looksLikeHtml(header) {
				return false, "downloaded HTML instead of PDF"
			}
			return false, "not a valid PDF file"
		}
	case ".zip", ".rar", ".7z":
		matched := false
		for _, sig := range zipSignatures {
			if bytes.HasPrefix(header, sig) {
				matched = true
				break
			}
		}
		if !matched {
			if looksLikeHtml(header) {
				return false, "downloaded HTML instead of archive"
			}
			return false, "not a valid archive file"
		}
	case ".jpg", ".jpeg":
		if !bytes.HasPrefix(header, jpegSignature) {
			if looksLikeHtml(header) {
				return false, "downloaded HTML instead of image"
			}
			return false, "not a valid JPEG file"
		}
	case ".png":
		if !bytes.HasPrefix(header, pngSignature) {
			if looksLikeHtml(header) {
				return false, "downloaded HTML instead of image"
			}
			return false, "not a valid PNG file"
		}
	default:
		if looksLikeHtml(header) {
			return false, "downloaded HTML instead of expected file type"
		}
	}

	return true, "file appears valid"
}
