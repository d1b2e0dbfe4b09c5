// Package markdown holds the small text helpers shared by the generated
// interview documents.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const separator = "---\n"

// RenderFrontmatter prefixes body with meta encoded as a YAML block.
func RenderFrontmatter(meta any, body string) (string, error) {
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	buf := bytes.Buffer{}
	buf.WriteString(separator)
	buf.Write(raw)
	buf.WriteString(separator)
	if !strings.HasPrefix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString(body)
	return buf.String(), nil
}

// SplitFrontmatter decodes a leading YAML block into dest and returns the body.
// Content without frontmatter is returned unchanged and dest is left untouched.
func SplitFrontmatter(content string, dest any) (string, error) {
	if !strings.HasPrefix(content, separator) {
		return content, nil
	}
	rest := strings.TrimPrefix(content, separator)
	idx := strings.Index(rest, "\n"+separator)
	if idx < 0 {
		return "", fmt.Errorf("invalid frontmatter: missing closing separator")
	}
	raw := rest[:idx]
	body := strings.TrimPrefix(rest[idx+len("\n"+separator):], "\n")

	if err := yaml.Unmarshal([]byte(raw), dest); err != nil {
		return "", fmt.Errorf("unmarshal frontmatter: %w", err)
	}
	return body, nil
}

// ReplaceTrailingSection drops everything from heading onwards, then appends
// heading followed by section.
func ReplaceTrailingSection(content, heading, section string) string {
	if idx := strings.Index(content, heading); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimRight(content, " \t\r\n") + "\n\n" + heading + "\n\n" + section
}
