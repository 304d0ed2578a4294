package assistant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sead/sqlassist/pkg/llm"
	"github.com/sead/sqlassist/pkg/training"
)

const responseGuidelines = `===Response Guidelines
1. If the provided context is sufficient, please generate a valid SQL query without any explanations for the question.
2. If the provided context is almost sufficient but requires knowledge of a specific string in a particular column, please generate an intermediate SQL query to find the distinct strings in that column. Prepend the query with a comment saying intermediate_sql
3. If the provided context is insufficient, please explain why it can't be generated.
4. Please use the most relevant table(s).
5. If the question has been asked and answered before, please repeat the answer exactly as it was given before.
6. Ensure that the output SQL is %s-compliant and executable, and free of syntax errors.
`

var (
	fencedSQL    = regexp.MustCompile("(?s)```sql\\s*\\n(.*?)```")
	withSQL      = regexp.MustCompile(`(?s)\bWITH\b .*?;`)
	selectSQL    = regexp.MustCompile(`(?s)\bSELECT\b.*?;`)
	fencedAny    = regexp.MustCompile("(?s)```\\s*\\n?(.*?)```")
	lineComment  = regexp.MustCompile(`(?m)^\s*--.*$`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	modifying    = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|ALTER|TRUNCATE|CREATE|GRANT|REVOKE|COPY)\b`)
)

// approxTokens estimates the token count of s at four characters per token.
func approxTokens(s string) int {
	return len(s) / 4
}

// BuildPrompt assembles the system message with as much DDL and documentation as fits in
// maxTokens, one user/assistant turn per similar question/SQL pair, and the question.
func BuildPrompt(question string, pairs []training.Record, ddl, docs []string, maxTokens int) []llm.Message {
	system := fmt.Sprintf("You are a %s expert. ", dialect) +
		"Please help to generate a SQL query to answer the question. Your response should ONLY be based on the given context and follow the response guidelines and format instructions. "

	system = appendWithinBudget(system, "\n===Tables \n", ddl, maxTokens)
	system = appendWithinBudget(system, "\n===Additional Context \n\n", docs, maxTokens)
	system += fmt.Sprintf(responseGuidelines, dialect)

	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	for _, p := range pairs {
		if p.Question == "" || p.Content == "" {
			continue
		}
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: p.Question},
			llm.Message{Role: llm.RoleAssistant, Content: p.Content},
		)
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: question})
}

func appendWithinBudget(prompt, heading string, items []string, maxTokens int) string {
	if len(items) == 0 {
		return prompt
	}
	prompt += heading
	for _, item := range items {
		if approxTokens(prompt)+approxTokens(item) < maxTokens {
			prompt += item + "\n\n"
		}
	}
	return prompt
}

// ExtractSQL pulls the SQL statement out of an LLM response. When nothing looks like SQL
// the trimmed response is returned.
func ExtractSQL(resp string) string {
	for _, re := range []*regexp.Regexp{fencedSQL, withSQL, selectSQL} {
		if m := re.FindStringSubmatch(resp); m != nil {
			return strings.TrimSpace(m[len(m)-1])
		}
	}
	if m := fencedAny.FindStringSubmatch(resp); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(resp)
}

// IsSQLValid reports whether sql is a single read-only query that may be run. Statements
// chained with ';' and data-modifying keywords, including inside a WITH, are refused.
func IsSQLValid(sql string) bool {
	stripped := blockComment.ReplaceAllString(sql, " ")
	stripped = lineComment.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSuffix(strings.TrimSpace(stripped), ";")
	if strings.Contains(stripped, ";") || modifying.MatchString(stripped) {
		return false
	}
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(strings.TrimLeft(fields[0], "(")) {
	case "SELECT", "WITH":
		return true
	}
	return false
}
