package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// --------- Language tables ---------

// RuntimeSpec pins a user-facing language token to the exact engine
// runtime used for execution: engine language id, version, and the
// default entry filename the engine expects.
type RuntimeSpec struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Filename string `json:"filename"`
}

// runtimeTable maps every accepted execution token (canonical names and
// aliases) to its pinned engine runtime. Resolution happens before any
// network call is made.
var runtimeTable = map[string]RuntimeSpec{
	"python":     {Language: "python", Version: "3.10.0", Filename: "main.py"},
	"python3":    {Language: "python", Version: "3.10.0", Filename: "main.py"},
	"node":       {Language: "javascript", Version: "18.15.0", Filename: "main.js"},
	"nodejs":     {Language: "javascript", Version: "18.15.0", Filename: "main.js"},
	"javascript": {Language: "javascript", Version: "18.15.0", Filename: "main.js"},
	"js":         {Language: "javascript", Version: "18.15.0", Filename: "main.js"},
	"typescript": {Language: "typescript", Version: "5.0.3", Filename: "main.ts"},
	"ts":         {Language: "typescript", Version: "5.0.3", Filename: "main.ts"},
	"go":         {Language: "go", Version: "1.16.2", Filename: "main.go"},
	"golang":     {Language: "go", Version: "1.16.2", Filename: "main.go"},
	"ruby":       {Language: "ruby", Version: "3.0.1", Filename: "main.rb"},
	"php":        {Language: "php", Version: "8.2.3", Filename: "main.php"},
	"java":       {Language: "java", Version: "15.0.2", Filename: "Main.java"},
	"c":          {Language: "c", Version: "10.2.0", Filename: "main.c"},
	"c99":        {Language: "c", Version: "10.2.0", Filename: "main.c"},
	"cpp":        {Language: "cpp", Version: "10.2.0", Filename: "main.cpp"},
	"c++":        {Language: "cpp", Version: "10.2.0", Filename: "main.cpp"},
}

// supportedLanguages is the canonical set used to classify stored files,
// with the extensions that map back to each language. Deliberately
// independent from runtimeTable: file storage accepts fewer aliases and
// carries no version pins.
var supportedLanguages = map[string][]string{
	"python":     {".py"},
	"java":       {".java"},
	"javascript": {".js"},
	"typescript": {".ts"},
	"go":         {".go"},
	"ruby":       {".rb"},
	"php":        {".php"},
	"c":          {".c"},
	"cpp":        {".cpp", ".cc", ".cxx"},
}

var languageAliases = map[string]string{
	"node":   "javascript",
	"nodejs": "javascript",
	"c++":    "cpp",
}

// resolveRuntime maps a user-supplied language token to its engine
// runtime. An empty token defaults to python.
func resolveRuntime(token string) (RuntimeSpec, error) {
	if token == "" {
		return runtimeTable["python"], nil
	}
	spec, ok := runtimeTable[strings.ToLower(token)]
	if !ok {
		return RuntimeSpec{}, fmt.Errorf("Unsupported language '%s'", token)
	}
	return spec, nil
}

func isSupportedLanguage(language string) bool {
	_, ok := supportedLanguages[strings.ToLower(language)]
	return ok
}

// detectFileLanguage determines the canonical storage language for a file,
// preferring an explicit language token (canonical or aliased) over the
// filename extension.
func detectFileLanguage(filename, language string) (string, error) {
	if language != "" {
		normalized := strings.ToLower(language)
		canonical := normalized
		if !isSupportedLanguage(canonical) {
			canonical = languageAliases[normalized]
		}
		if canonical == "" || !isSupportedLanguage(canonical) {
			return "", fmt.Errorf("Language '%s' is not supported", language)
		}
		return canonical, nil
	}

	if filename != "" {
		extension := strings.ToLower(filepath.Ext(filename))
		for lang, exts := range supportedLanguages {
			for _, ext := range exts {
				if ext == extension {
					return lang, nil
				}
			}
		}
	}

	return "", fmt.Errorf("Unable to determine language from filename. Supported extensions: %s", supportedExtensions())
}

// supportedExtensions returns every known extension, sorted for a stable
// error message.
func supportedExtensions() string {
	var exts []string
	for _, list := range supportedLanguages {
		exts = append(exts, list...)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
