package parser

import (
	"regexp"
	"strings"

	"github.com/recallhq/recall/internal/types"
)

// sqlStatementRe finds CREATE [OR REPLACE] {TABLE|VIEW|FUNCTION|PROCEDURE}
// name ... up to the next semicolon; quoting is not tracked, so a
// semicolon inside a quoted or dollar-quoted body also ends the unit
// (as does the start of the next CREATE statement). This is explicitly
// "best-effort across dialects" per spec §4.1: there is no tree-sitter
// SQL grammar in the corpus, and dialect-specific syntax (PL/pgSQL
// bodies, T-SQL GO batches, backtick-quoted MySQL identifiers) is not
// fully modeled. Absence of a match is not an error.
var sqlStatementRe = regexp.MustCompile(`(?is)CREATE\s+(?:OR\s+REPLACE\s+)?(TABLE|VIEW|FUNCTION|PROCEDURE)\s+(?:IF\s+NOT\s+EXISTS\s+)?([` + "`" + `"\[]?[\w.]+[` + "`" + `"\]]?)`)

func parseSQLBestEffort(filePath string, content []byte) []types.SemanticUnit {
	text := string(content)
	locs := sqlStatementRe.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return nil
	}

	var units []types.SemanticUnit
	for i, loc := range locs {
		start := loc[0]
		end := statementEnd(text, start)
		if i+1 < len(locs) && locs[i+1][0] < end {
			end = locs[i+1][0]
		}
		if end > len(text) {
			end = len(text)
		}

		kind := strings.ToUpper(text[loc[2]:loc[3]])
		name := cleanSQLIdent(text[loc[4]:loc[5]])
		if name == "" {
			continue
		}

		unitType := types.UnitTypeFunction
		if kind == "TABLE" || kind == "VIEW" {
			unitType = types.UnitTypeClass
		}

		body := []byte(text[start:end])
		sig := string(body)
		if len(sig) > 200 {
			sig = sig[:200]
		}

		units = append(units, types.SemanticUnit{
			UnitType:  unitType,
			Name:      name,
			Language:  types.LanguageSQL,
			FilePath:  filePath,
			StartLine: 1 + strings.Count(text[:start], "\n"),
			EndLine:   1 + strings.Count(text[:end], "\n"),
			StartByte: start,
			EndByte:   end,
			Signature: sig,
			Content:   body,
		})
	}
	return units
}

// statementEnd finds the next ";" after start, quoted or not, or end of
// text.
func statementEnd(text string, start int) int {
	idx := strings.IndexByte(text[start:], ';')
	if idx < 0 {
		return len(text)
	}
	return start + idx + 1
}

func cleanSQLIdent(s string) string {
	s = strings.Trim(s, "`\"[] \t\r\n")
	return s
}
