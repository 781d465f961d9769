package parser

import (
	"regexp"
	"strings"

	"github.com/recallhq/recall/internal/types"
)

// pattern pairs a regex that matches a declaration's opening line with
// the UnitType it should become. Grounded on the teacher's "community
// parser framework" concept (internal/parser/community_parser.go): the
// pack carries no tree-sitter grammar for Ruby, Swift or Kotlin, so
// these three get a best-effort, brace/indent-counting extractor
// instead of a full grammar, matching spec §4.1's instruction that
// absence of a precise grammar "is not an error" for best-effort
// languages. Unlike SQL this is not dialect ambiguity but a genuine gap
// in the corpus's Go bindings; see SPEC_FULL.md / DESIGN.md.
type pattern struct {
	re   *regexp.Regexp
	kind types.UnitType
}

var rubyPatterns = []pattern{
	{regexp.MustCompile(`^\s*class\s+([A-Za-z_][\w:]*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*module\s+([A-Za-z_][\w:]*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*def\s+(self\.)?([A-Za-z_][\w?!=]*)`), types.UnitTypeFunction},
}

var swiftPatterns = []pattern{
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+|final\s+)*class\s+([A-Za-z_]\w*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+)*struct\s+([A-Za-z_]\w*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+)*protocol\s+([A-Za-z_]\w*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+|static\s+|final\s+)*func\s+([A-Za-z_]\w*)`), types.UnitTypeFunction},
}

var kotlinPatterns = []pattern{
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+|open\s+|abstract\s+|data\s+|sealed\s+)*class\s+([A-Za-z_]\w*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+)*interface\s+([A-Za-z_]\w*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+)*object\s+([A-Za-z_]\w*)`), types.UnitTypeClass},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+|override\s+|suspend\s+|inline\s+)*fun\s+([A-Za-z_]\w*)`), types.UnitTypeFunction},
}

// parseBraceless extracts units by matching one pattern per source line
// and capturing the braced (or indented) body heuristically: for
// brace-using languages (Swift, Kotlin) the body runs to the matching
// closing brace found by a simple depth counter; for Ruby, to the
// matching "end" keyword at the same indentation.
func parseBraceless(filePath string, content []byte, lang types.Language, patterns []pattern) []types.SemanticUnit {
	text := string(content)
	lines := splitKeepEnds(text)

	var units []types.SemanticUnit
	offset := 0
	for i, line := range lines {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[len(m)-1]
			if name == "" {
				continue
			}
			endLineIdx, endByte := findBlockEnd(lines, i, offset, lang)
			startByte := offset
			body := content[startByte:endByte]
			sig := string(body)
			if len(sig) > 200 {
				sig = sig[:200]
			}
			units = append(units, types.SemanticUnit{
				UnitType:  p.kind,
				Name:      name,
				Language:  lang,
				FilePath:  filePath,
				StartLine: i + 1,
				EndLine:   endLineIdx + 1,
				StartByte: startByte,
				EndByte:   endByte,
				Signature: sig,
				Content:   append([]byte(nil), body...),
			})
			break
		}
		offset += len(line)
	}
	return units
}

func splitKeepEnds(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// findBlockEnd returns the (lineIndex, byteOffset) of the end of the
// block starting at startLine. Ruby blocks close on a bare "end" at or
// below the starting indentation; brace languages close when the
// running brace depth returns to zero.
func findBlockEnd(lines []string, startLine, startOffset int, lang types.Language) (int, int) {
	if lang == types.LanguageRuby {
		return findRubyEnd(lines, startLine, startOffset)
	}
	return findBraceEnd(lines, startLine, startOffset)
}

var endRe = regexp.MustCompile(`^\s*end\b`)

func findRubyEnd(lines []string, startLine, startOffset int) (int, int) {
	indentOf := func(s string) int { return len(s) - len(strings.TrimLeft(s, " \t")) }
	startIndent := indentOf(lines[startLine])
	offset := startOffset
	for i := startLine; i < len(lines); i++ {
		if i > startLine && endRe.MatchString(lines[i]) && indentOf(lines[i]) <= startIndent {
			return i, offset + len(lines[i])
		}
		offset += len(lines[i])
	}
	return len(lines) - 1, offset
}

func findBraceEnd(lines []string, startLine, startOffset int) (int, int) {
	depth := 0
	seenOpen := false
	offset := startOffset
	for i := startLine; i < len(lines); i++ {
		line := lines[i]
		for _, ch := range line {
			switch ch {
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
			}
		}
		offset += len(line)
		if seenOpen && depth <= 0 {
			return i, offset
		}
	}
	return len(lines) - 1, offset
}
