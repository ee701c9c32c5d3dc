package archiver

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"canvasgrab/lib/textutil"
)

// extensions that mark a url as pointing at a downloadable artifact.
var downloadableExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true,
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".svg": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".txt": true, ".csv": true, ".json": true, ".xml": true, ".html": true, ".css": true, ".js": true,
	".py": true, ".java": true, ".cpp": true, ".c": true, ".h": true,
	".sql": true, ".db": true, ".sqlite": true, ".rtf": true, ".odt": true, ".ods": true, ".odp": true,
}

// url shapes canvas uses to reference files, none of which carry an extension.
var canvasFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/courses/\d+/files/\d+`),
	regexp.MustCompile(`/files/\d+`),
	regexp.MustCompile(`/download\?download_frd=1`),
	regexp.MustCompile(`/courses/\d+/file_contents/`),
	regexp.MustCompile(`/users/\d+/files/\d+`),
	regexp.MustCompile(`instructure\.com.*files`),
}

var fileKeywords = []string{
	"download", "attachment", "file", ".pdf", ".doc", ".ppt", ".xls",
	"handout", "worksheet", "assignment", "syllabus", "slides",
}

var navigationKeywords = []string{
	"http://www.", "https://www.", "wiki", "page", "module",
	"discussion", "assignment submission", "grade", "course",
}

type linkVerdict int

const (
	verdictNavigational linkVerdict = iota
	verdictDownloadable
)

// classifyRule is one entry of the ordered cascade. Earlier rules carry
// unambiguous signals and always win over the keyword heuristics below them.
type classifyRule struct {
	name    string
	matches func(rawUrl, anchorText string) bool
	verdict linkVerdict
}

var classifyRules = []classifyRule{
	{
		name:    "url-extension",
		matches: func(rawUrl, _ string) bool { return hasDownloadableExtension(rawUrl) },
		verdict: verdictDownloadable,
	},
	{
		name: "canvas-file-pattern",
		matches: func(rawUrl, _ string) bool {
			for _, pattern := range canvasFilePatterns {
				if pattern.MatchString(rawUrl) {
					return true
				}
			}
			return false
		},
		verdict: verdictDownloadable,
	},
	{
		name: "file-keyword",
		matches: func(_, anchorText string) bool {
			return textutil.MatchName(anchorText, fileKeywords)
		},
		verdict: verdictDownloadable,
	},
	{
		name: "navigation-keyword",
		matches: func(rawUrl, anchorText string) bool {
			return textutil.MatchName(anchorText, navigationKeywords) &&
				!hasDownloadableExtension(rawUrl)
		},
		verdict: verdictNavigational,
	},
}

func hasDownloadableExtension(rawUrl string) bool {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return downloadableExtensions[ext]
}

func classify(rawUrl, anchorText string) (linkVerdict, string) {
	for _, rule := range classifyRules {
		if rule.matches(rawUrl, anchorText) {
			return rule.verdict, rule.name
		}
	}
	return verdictNavigational, "default"
}

// Classify reports whether a hyperlink refers to a downloadable artifact,
// as opposed to a navigable course page.
func Classify(rawUrl, anchorText string) bool {
	verdict, _ := classify(rawUrl, anchorText)
	return verdict == verdictDownloadable
}
