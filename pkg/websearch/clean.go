package websearch

import (
	"regexp"
	"strings"
)

// Forum page scrapes carry markdown images, avatar links, nav boilerplate
// and karma badges. Strip everything that is not prose before the content
// goes into a prompt.
var (
	reMarkdownImage = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	reBareURL       = regexp.MustCompile(`https?://[^\s)]+`)
	reNavLink       = regexp.MustCompile(`(?i)\[.*?\]\((javascript:void\(0\)|/t5/community-help-knowledge-base/community-help/ta-p/\d+|/html/assets/.*?\.pdf)\)`)
	reHeadingMarks  = regexp.MustCompile(`#{2,}`)
	reBlankRuns     = regexp.MustCompile(`\n\s*\n`)
	reTripleNewline = regexp.MustCompile(`\n{3,}`)
	reAvatarLink    = regexp.MustCompile(`\[[A-Za-z \d]+\]\(.*?avatar.*?\)`)
	reLevelBadge    = regexp.MustCompile(`\[Level \d+\]`)
	reLevelTrailer  = regexp.MustCompile(`(Level \d+).*`)
	reAgentWarning  = regexp.MustCompile(`USER_AGENT environment variable not set,.*\n`)
	rePinterestTail = regexp.MustCompile(`(?is)Discover and save your favorite ideas.*$`)
)

// CleanRawContent reduces scraped page markup to plain prose.
func CleanRawContent(raw string) string {
	cleaned := reMarkdownImage.ReplaceAllString(raw, "")
	cleaned = reBareURL.ReplaceAllString(cleaned, "")
	cleaned = reNavLink.ReplaceAllString(cleaned, "")
	cleaned = reHeadingMarks.ReplaceAllString(cleaned, "")
	cleaned = reBlankRuns.ReplaceAllString(cleaned, "\n")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = reTripleNewline.ReplaceAllString(cleaned, "\n\n")
	cleaned = reAgentWarning.ReplaceAllString(cleaned, "")
	cleaned = reMarkdownImage.ReplaceAllString(cleaned, "")
	cleaned = reAvatarLink.ReplaceAllString(cleaned, "")
	cleaned = reLevelBadge.ReplaceAllString(cleaned, "")
	cleaned = reLevelTrailer.ReplaceAllString(cleaned, "")

	var lines []string
	for _, line := range strings.Split(cleaned, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	cleaned = strings.Join(lines, "\n")

	return rePinterestTail.ReplaceAllString(cleaned, "")
}
