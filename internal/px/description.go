package px

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// maxDescriptionLen is measured in runes.
const maxDescriptionLen = 100

var frontmatterPattern = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?(.*)`)

type descriptionFrontmatter struct {
	Description string `yaml:"description"`
}

// ExtractDescription returns a short description of a resource file.
// A "description" key in YAML frontmatter wins; otherwise the first
// non-empty line that is not a heading is used.
func ExtractDescription(content string) string {
	body := content
	if m := frontmatterPattern.FindStringSubmatch(content); len(m) == 3 {
		var fm descriptionFrontmatter
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err == nil {
			if d := strings.TrimSpace(fm.Description); d != "" {
				return truncateRunes(d, maxDescriptionLen)
			}
		}
		body = m[2]
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return truncateRunes(line, maxDescriptionLen)
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
