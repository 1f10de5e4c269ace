package db

import "strings"

// TagFilter matches documents whose TAG field holds any of Values.
type TagFilter struct {
	Field  string
	Values []string
}

// String renders the filter in FT.SEARCH syntax: @field:{a|b}. Values are escaped.
// An empty filter renders as "".
func (f TagFilter) String() string {
	if f.Field == "" || len(f.Values) == 0 {
		return ""
	}
	escaped := make([]string, len(f.Values))
	for i, v := range f.Values {
		escaped[i] = EscapeTag(v)
	}
	return "@" + f.Field + ":{" + strings.Join(escaped, "|") + "}"
}

// JoinFilters renders filters as an intersection. No filters yields "*".
func JoinFilters(filters ...TagFilter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if s := f.String(); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// EscapeTag escapes TAG punctuation and spaces.
func EscapeTag(s string) string {
	return tagEscaper.Replace(s)
}

// EscapeQuery escapes query-syntax characters in free text.
func EscapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)
