package lang

func init() {
	Register(&LanguageSpec{
		Language:       CSS,
		FileExtensions: []string{".css"},
		Stylesheet:     true,
	})
	Register(&LanguageSpec{
		Language:       PostCSS,
		FileExtensions: []string{".pcss", ".postcss"},
		Stylesheet:     true,
	})
	Register(&LanguageSpec{
		Language:       Less,
		FileExtensions: []string{".less"},
		Stylesheet:     true,
	})
	Register(&LanguageSpec{
		Language:       Stylus,
		FileExtensions: []string{".styl", ".stylus"},
		Stylesheet:     true,
	})
}
