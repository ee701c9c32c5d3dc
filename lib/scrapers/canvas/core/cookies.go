package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

type cookieRecord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadCookieFile reads a browser cookie export. Two shapes are accepted:
// a flat {"name": "value"} object, or a list of {"name": ..., "value": ...}
// records as produced by most cookie-export extensions.
func LoadCookieFile(path string) (map[string]string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var flat map[string]string
	if err := json.Unmarshal(contents, &flat); err == nil {
		return flat, nil
	}

	var records []cookieRecord
	if err := json.Unmarshal(contents, &records); err != nil {
		return nil, fmt.Errorf("unrecognized cookie file format in '%s': %w", path, err)
	}

	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.Name] = r.Value
	}
	return out, nil
}

func toHttpCookies(cookies map[string]string) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		out = append(out, &http.Cookie{Name: name, Value: value})
	}
	return out
}
