package lang

func init() {
	Register(&LanguageSpec{
		Language:         JavaScript,
		FileExtensions:   []string{".js", ".jsx", ".mjs", ".cjs"},
		CallNodeTypes:    []string{"call_expression"},
		LiteralNodeTypes: []string{"string", "string_fragment", "template_string", "regex", "jsx_text"},
		CommentNodeTypes: []string{"comment", "html_comment"},
	})
}
