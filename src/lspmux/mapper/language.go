package mapper

import (
	"path/filepath"
	"strings"

	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
)

// _extensions maps a file extension to its language server key.
var _extensions = map[string]entity.Language{
	".py":   entity.LanguagePython,
	".pyi":  entity.LanguagePython,
	".ts":   entity.LanguageTypeScript,
	".tsx":  entity.LanguageTypeScript,
	".js":   entity.LanguageTypeScript,
	".jsx":  entity.LanguageTypeScript,
	".mjs":  entity.LanguageTypeScript,
	".rs":   entity.LanguageRust,
	".c":    entity.LanguageCPP,
	".h":    entity.LanguageCPP,
	".cc":   entity.LanguageCPP,
	".cpp":  entity.LanguageCPP,
	".cxx":  entity.LanguageCPP,
	".hpp":  entity.LanguageCPP,
	".java": entity.LanguageJava,
	".go":   entity.LanguageGo,
	".php":  entity.LanguagePHP,
}

// _projectMarkers maps well-known manifest files to a language, used to
// detect project types in a workspace before any server is started.
var _projectMarkers = map[string]entity.Language{
	"pyproject.toml":   entity.LanguagePython,
	"requirements.txt": entity.LanguagePython,
	"setup.py":         entity.LanguagePython,
	"package.json":     entity.LanguageTypeScript,
	"tsconfig.json":    entity.LanguageTypeScript,
	"Cargo.toml":       entity.LanguageRust,
	"go.mod":           entity.LanguageGo,
	"pom.xml":          entity.LanguageJava,
	"build.gradle":     entity.LanguageJava,
	"composer.json":    entity.LanguagePHP,
}

// _languageIDs maps a language key to the LSP languageId sent in didOpen.
var _languageIDs = map[entity.Language]string{
	entity.LanguagePython:     "python",
	entity.LanguageTypeScript: "typescript",
	entity.LanguageRust:       "rust",
	entity.LanguageCPP:        "cpp",
	entity.LanguageJava:       "java",
	entity.LanguageGo:         "go",
	entity.LanguagePHP:        "php",
}

// _ignoredDirs are directories excluded from workspace scans and watches.
var _ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
}

// IgnoredDir reports whether a directory name is excluded from workspace
// scans and file watches.
func IgnoredDir(name string) bool {
	return _ignoredDirs[name]
}

// PathToLanguage maps a workspace file path to its language server key,
// by extension. It is a pure routing function with no filesystem access.
func PathToLanguage(path string) (entity.Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := _extensions[ext]; ok {
		return lang, nil
	}
	return "", &errors.UnsupportedLanguageError{Path: path}
}

// MarkerToLanguage maps a manifest file name (e.g. Cargo.toml) to the
// language it indicates, if any.
func MarkerToLanguage(name string) (entity.Language, bool) {
	lang, ok := _projectMarkers[name]
	return lang, ok
}

// LanguageToID returns the LSP languageId identifier for a language key.
func LanguageToID(lang entity.Language) string {
	if id, ok := _languageIDs[lang]; ok {
		return id
	}
	return string(lang)
}
