package archiver

import (
	"net/url"
	"path"
	"strings"

	"canvasgrab/lib/textutil"
)

const fallbackFilename = "downloaded_file"

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func stripDownloadPrefix(text string) string {
	if strings.HasPrefix(strings.ToLower(text), "download ") {
		return strings.TrimSpace(text[len("download "):])
	}
	return text
}

// ResolveFilename derives a local filename for a link from its url, falling
// back to the anchor text when the url's last path segment is useless (empty,
// a bare numeric id, or extensionless). Never returns an empty string.
func ResolveFilename(rawUrl, anchorText string) string {
	urlPath := rawUrl
	if i := strings.IndexByte(urlPath, '?'); i >= 0 {
		urlPath = urlPath[:i]
	}
	if parsed, err := url.Parse(urlPath); err == nil {
		urlPath = parsed.Path
	}

	filename := path.Base(urlPath)
	if filename == "." || filename == "/" {
		filename = ""
	}

	if filename == "" || isAllDigits(filename) || !strings.Contains(filename, ".") {
		filename = stripDownloadPrefix(strings.TrimSpace(anchorText))

		// the anchor text rarely carries an extension of its own, borrow
		// the url's when it has a believable one
		if !strings.Contains(filename, ".") {
			ext := path.Ext(urlPath)
			if ext != "" && len(ext) <= len(".gzip") {
				filename += ext
			}
		}
	}

	filename = textutil.SanitizeFilename(filename)
	if filename == "" {
		return fallbackFilename
	}
	return filename
}
