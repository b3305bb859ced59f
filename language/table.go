package language

import "regexp"

var prettierSettings = []SettingDefinition{
	{Key: "printWidth", Name: "Print width", Type: Int, Default: 80, Min: 20, Max: 320},
	{Key: "tabWidth", Name: "Tab width", Type: Int, Default: 2, Min: 1, Max: 16},
	{Key: "useTabs", Name: "Indent with tabs", Type: Bool, Default: false},
	{Key: "semi", Name: "Semicolons", Type: Bool, Default: true},
	{Key: "singleQuote", Name: "Single quotes", Type: Bool, Default: false},
	{
		Key:     "trailingComma", Name: "Trailing commas", Type: Choice, Default: "all",
		Choices: []string{"all", "es5", "none"},
	},
}

func prettier(l Language, name string, ext string, includes ...string) *Definition {
	return &Definition{
		Language:        l,
		Name:            name,
		Extension:       ext,
		Includes:        includes,
		Command:         "sh",
		Tool:            "prettier",
		Options:         []string{"-c", "prettier --stdin-filepath stdin" + ext},
		Transport:       Stdin,
		RequiresRuntime: true,
		Packages:        []string{"prettier"},
		Dialect:         Dialect{Kind: PrefixCommand, Marker: "prettier"},
		Settings:        prettierSettings,
	}
}

var definitions = map[Language]*Definition{
	Python: {
		Language:  Python,
		Name:      "Python",
		Extension: ".py",
		Includes:  []string{"*.py", "*.pyi"},
		Command:   "ruff",
		Options:   []string{"format", "--stdin-filename", "stdin.py", "-"},
		Transport: Stdin,
		Dialect:   Dialect{Kind: DirectFlag, TopLevel: "line-length", Section: "format"},
		Settings: []SettingDefinition{
			{Key: "line-length", Name: "Line length", Type: Int, Default: 88, Min: 1, Max: 320},
			{
				Key: "quote-style", Name: "Quote style", Type: Choice, Default: "double",
				Choices: []string{"double", "single", "preserve"},
			},
			{
				Key: "indent-style", Name: "Indent style", Type: Choice, Default: "space",
				Choices: []string{"space", "tab"},
			},
			{Key: "skip-magic-trailing-comma", Name: "Skip magic trailing comma", Type: Bool, Default: false},
		},
	},
	Go: {
		Language:       Go,
		Name:           "Go",
		Extension:      ".go",
		Includes:       []string{"*.go"},
		Command:        "gofumpt",
		Transport:      Stdin,
		StrictExitCode: true,
		Dialect:        Dialect{Kind: SimpleAppend, Flags: map[string]string{"extra": "-extra"}},
		Settings: []SettingDefinition{
			{Key: "extra", Name: "Extra rules", Type: Bool, Default: false},
		},
	},
	Shell: {
		Language:  Shell,
		Name:      "Shell",
		Extension: ".sh",
		Includes:  []string{"*.sh", "*.bash"},
		Command:   "shfmt",
		Transport: Stdin,
		Dialect: Dialect{Kind: SimpleAppend, Flags: map[string]string{
			"indent":           "-i",
			"binaryNextLine":   "-bn",
			"switchCaseIndent": "-ci",
			"spaceRedirects":   "-sr",
			"simplify":         "-s",
		}},
		Settings: []SettingDefinition{
			{Key: "indent", Name: "Indent (0 for tabs)", Type: Int, Default: 0, Min: 0, Max: 16},
			{Key: "binaryNextLine", Name: "Binary ops start lines", Type: Bool, Default: false},
			{Key: "switchCaseIndent", Name: "Indent switch cases", Type: Bool, Default: false},
			{Key: "spaceRedirects", Name: "Space after redirects", Type: Bool, Default: false},
			{Key: "simplify", Name: "Simplify", Type: Bool, Default: false},
		},
	},
	JavaScript: prettier(JavaScript, "JavaScript", ".js", "*.js", "*.mjs", "*.cjs", "*.jsx"),
	TypeScript: prettier(TypeScript, "TypeScript", ".ts", "*.ts", "*.mts", "*.cts", "*.tsx"),
	CSS:        prettier(CSS, "CSS", ".css", "*.css", "*.scss", "*.less"),
	HTML:       prettier(HTML, "HTML", ".html", "*.html", "*.htm"),
	JSON:       prettier(JSON, "JSON", ".json", "*.json"),
	YAML:       prettier(YAML, "YAML", ".yaml", "*.yaml", "*.yml"),
	Markdown:   prettier(Markdown, "Markdown", ".md", "*.md", "*.markdown"),
	SQL: {
		Language:        SQL,
		Name:            "SQL",
		Extension:       ".sql",
		Includes:        []string{"*.sql"},
		Command:         "sh",
		Tool:            "sql-formatter",
		Options:         []string{"-c", "sql-formatter --language sql"},
		Transport:       Stdin,
		RequiresRuntime: true,
		Packages:        []string{"sql-formatter"},
		Dialect: Dialect{
			Kind:        RegexSubstitution,
			Key:         "dialect",
			Pattern:     regexp.MustCompile(`--language\s+\S+`),
			Replacement: "--language {value}",
		},
		Settings: []SettingDefinition{
			{
				Key: "dialect", Name: "Dialect", Type: Choice, Default: "sql",
				Choices: []string{
					"sql", "bigquery", "db2", "hive", "mariadb", "mysql", "n1ql", "plsql", "postgresql",
					"redshift", "singlestoredb", "snowflake", "spark", "sqlite", "transactsql", "trino",
				},
			},
		},
	},
	Rust: {
		Language:       Rust,
		Name:           "Rust",
		Extension:      ".rs",
		Includes:       []string{"*.rs"},
		Command:        "rustfmt",
		Options:        []string{"--emit", "stdout", "--edition=2021"},
		Transport:      Stdin,
		StrictExitCode: true,
		Dialect: Dialect{
			Kind:        RegexSubstitution,
			Key:         "edition",
			Pattern:     regexp.MustCompile(`^--edition=\S+$`),
			Replacement: "--edition={value}",
		},
		Settings: []SettingDefinition{
			{
				Key: "edition", Name: "Edition", Type: Choice, Default: "2021",
				Choices: []string{"2015", "2018", "2021", "2024"},
			},
		},
	},
	XML: {
		Language:       XML,
		Name:           "XML",
		Extension:      ".xml",
		Includes:       []string{"*.xml"},
		Command:        "xmllint",
		Options:        []string{"--format", "-"},
		Transport:      Stdin,
		StrictExitCode: true,
		Dialect:        Dialect{Kind: Inline},
		Settings: []SettingDefinition{
			{Key: "indent", Name: "Indent", Type: Int, Default: 2, Min: 0, Max: 16},
		},
	},
	PHP: {
		Language:  PHP,
		Name:      "PHP",
		Extension: ".php",
		Includes:  []string{"*.php"},
		Command:   "php-cs-fixer",
		Options:   []string{"fix", "--using-cache=no", "--quiet", FilePlaceholder},
		Transport: TempFile,
		Dialect:   Dialect{Kind: Inline},
		Settings: []SettingDefinition{
			{
				Key: "ruleset", Name: "Rule set", Type: Choice, Default: "@PSR12",
				Choices: []string{"@PSR12", "@PER-CS", "@Symfony", "@PhpCsFixer"},
			},
		},
	},
	Kotlin: {
		Language:  Kotlin,
		Name:      "Kotlin",
		Extension: ".kt",
		Includes:  []string{"*.kt", "*.kts"},
		Command:   "ktlint",
		Options:   []string{"--format", "--log-level=none", FilePlaceholder},
		Transport: TempFile,
		Dialect:   Dialect{Kind: SimpleAppend, Flags: map[string]string{"android": "--android"}},
		Settings: []SettingDefinition{
			{Key: "android", Name: "Android style", Type: Bool, Default: false},
		},
	},
}
