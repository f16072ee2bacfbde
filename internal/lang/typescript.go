package lang

func init() {
	Register(&LanguageSpec{
		Language:         TypeScript,
		FileExtensions:   []string{".ts", ".mts", ".cts"},
		CallNodeTypes:    []string{"call_expression"},
		LiteralNodeTypes: []string{"string", "string_fragment", "template_string", "regex"},
		CommentNodeTypes: []string{"comment", "html_comment"},
	})
}
