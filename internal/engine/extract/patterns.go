package extract

import "regexp"

// Pattern tables are ordered and best-effort: they favor recall over
// precision (comments and strings may over-match) and leave correctness
// to the resolver. New languages are additive rows here.

var jsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`import\s+[^'"]*?\s+from\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`import\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
}

// Completion sets group extensions that may substitute for one another
// when the resolver tries to complete a bare token into a file path.
var jsFamily = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".vue"}

var defaultLanguages = []*Language{
	{
		Name:       "python",
		Extensions: []string{".py"},
		Family:     []string{".py"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([a-zA-Z0-9_.]+)`),
			regexp.MustCompile(`(?m)^[ \t]*from[ \t]+([a-zA-Z0-9_.]+)[ \t]+import`),
		},
	},
	{
		Name:       "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		Family:     jsFamily,
		Patterns:   jsPatterns,
	},
	{
		Name:       "typescript",
		Extensions: []string{".ts", ".tsx"},
		Family:     jsFamily,
		Patterns:   jsPatterns,
	},
	{
		Name:       "vue",
		Extensions: []string{".vue"},
		Family:     jsFamily,
		Patterns:   jsPatterns,
	},
	{
		Name:       "rust",
		Extensions: []string{".rs"},
		Family:     []string{".rs"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*use[ \t]+([A-Za-z0-9_:]+)`),
		},
	},
	{
		Name:       "java",
		Extensions: []string{".java"},
		Family:     []string{".java"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:static[ \t]+)?([a-zA-Z0-9_.]+)[ \t]*;`),
		},
	},
	{
		Name:       "kotlin",
		Extensions: []string{".kt", ".kts"},
		Family:     []string{".kt", ".kts"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([a-zA-Z0-9_.]+)`),
		},
	},
	{
		Name:       "c",
		Extensions: []string{".c", ".h"},
		Family:     []string{".c", ".h", ".cpp", ".cc", ".cxx", ".hpp"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`#include\s*["<]([^">]+)[">]`),
		},
	},
	{
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp"},
		Family:     []string{".c", ".h", ".cpp", ".cc", ".cxx", ".hpp"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`#include\s*["<]([^">]+)[">]`),
		},
	},
	{
		Name:       "go",
		Extensions: []string{".go"},
		Family:     []string{".go"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*import[ \t]+"([^"]+)"`),
			regexp.MustCompile(`(?m)^[ \t]*"([^"]+)"`),
		},
	},
	{
		Name:       "csharp",
		Extensions: []string{".cs"},
		Family:     []string{".cs"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*using[ \t]+([a-zA-Z0-9_.]+)[ \t]*;`),
		},
	},
	{
		Name:       "ruby",
		Extensions: []string{".rb"},
		Family:     []string{".rb"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:require|require_relative)\s+['"]([^'"]+)['"]`),
		},
	},
	{
		Name:       "php",
		Extensions: []string{".php"},
		Family:     []string{".php"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*use[ \t]+([a-zA-Z0-9_\\]+)[ \t]*;`),
			regexp.MustCompile(`require(?:_once)?\s+['"]([^'"]+)['"]`),
		},
	},
	{
		Name:       "swift",
		Extensions: []string{".swift"},
		Family:     []string{".swift"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([a-zA-Z0-9_.]+)`),
		},
	},
	{
		Name:       "dart",
		Extensions: []string{".dart"},
		Family:     []string{".dart"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`import\s+['"]([^'"]+)['"]`),
		},
	},
	{
		Name:       "scala",
		Extensions: []string{".scala"},
		Family:     []string{".scala"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([a-zA-Z0-9_.]+)`),
		},
	},
}
