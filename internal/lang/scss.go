package lang

func init() {
	Register(&LanguageSpec{
		Language:       SCSS,
		FileExtensions: []string{".scss"},
		Stylesheet:     true,
	})
	Register(&LanguageSpec{
		Language:       Sass,
		FileExtensions: []string{".sass"},
		Stylesheet:     true,
	})
}
