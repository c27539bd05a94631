package architecture_test

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "trackerql"

type layerRule struct {
	sourcePrefix string
	forbidden    []string
	hint         string
}

func pkgs(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, modulePath+"/"+n)
	}
	return out
}

var rules = []layerRule{
	{
		sourcePrefix: modulePath + "/internal/domain",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/db", "internal/engine",
			"internal/metadata", "internal/planstore", "internal/compiler", "internal/sqlir", "internal/sqlparse",
			"internal/sqlrewrite", "internal/middleware", "internal/config", "cmd", "pkg/cli"),
		hint: "domain may only import domain",
	},
	{
		sourcePrefix: modulePath + "/internal/sqlparse",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/db", "internal/engine",
			"internal/metadata", "internal/planstore", "internal/compiler", "internal/sqlir", "internal/sqlrewrite",
			"internal/domain", "cmd", "pkg/cli"),
		hint: "sqlparse is a standalone parser",
	},
	{
		sourcePrefix: modulePath + "/internal/sqlir",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/db", "internal/engine",
			"internal/metadata", "internal/planstore", "internal/compiler", "internal/sqlrewrite", "cmd", "pkg/cli"),
		hint: "sqlir should depend on domain only",
	},
	{
		sourcePrefix: modulePath + "/internal/compiler",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/db", "internal/engine",
			"internal/metadata", "internal/planstore", "internal/sqlrewrite", "internal/middleware", "cmd", "pkg/cli"),
		hint: "compiler should depend on domain and sqlir",
	},
	{
		sourcePrefix: modulePath + "/internal/sqlrewrite",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/db", "internal/engine",
			"internal/metadata", "internal/planstore", "internal/compiler", "internal/middleware", "cmd", "pkg/cli"),
		hint: "sqlrewrite should depend on sqlparse only",
	},
	{
		sourcePrefix: modulePath + "/internal/planstore",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/db", "internal/engine",
			"internal/metadata", "internal/compiler", "internal/middleware", "cmd", "pkg/cli"),
		hint: "planstore is driven through its Analyzer and Scheduler ports",
	},
	{
		sourcePrefix: modulePath + "/internal/metadata",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/engine",
			"internal/planstore", "internal/compiler", "internal/middleware", "cmd", "pkg/cli"),
		hint: "metadata should depend on domain and db",
	},
	{
		sourcePrefix: modulePath + "/internal/engine",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/metadata",
			"internal/middleware", "cmd", "pkg/cli"),
		hint: "engine should depend on domain and planstore ports",
	},
	{
		sourcePrefix: modulePath + "/internal/service",
		forbidden: pkgs("internal/api", "internal/app", "internal/db", "internal/engine", "internal/metadata",
			"internal/middleware", "cmd", "pkg/cli"),
		hint: "service should depend on domain, compiler and planstore",
	},
	{
		sourcePrefix: modulePath + "/internal/api",
		forbidden:    pkgs("internal/app", "internal/db", "internal/engine", "internal/metadata", "cmd", "pkg/cli"),
		hint:         "api should depend on service/domain/middleware packages",
	},
	{
		sourcePrefix: modulePath + "/internal/middleware",
		forbidden:    pkgs("internal/service", "internal/db", "internal/engine", "internal/app", "internal/metadata"),
		hint:         "middleware should depend on middleware-local packages",
	},
	{
		sourcePrefix: modulePath + "/internal/db",
		forbidden: pkgs("internal/api", "internal/app", "internal/service", "internal/engine",
			"internal/middleware", "cmd", "pkg/cli"),
		hint: "db should depend on db-local packages",
	},
}

func TestImportBoundaries(t *testing.T) {
	files, err := collectGoFiles(filepath.Join(repoRootDir(), "internal"))
	require.NoError(t, err)

	violations := make([]string, 0)
	for _, file := range files {
		if isTestFile(file) {
			continue
		}

		sourcePkg := packageImportPath(file)
		rule, ok := findRule(sourcePkg)
		if !ok {
			continue
		}

		for _, importPath := range parseImports(t, file) {
			if !strings.HasPrefix(importPath, modulePath+"/") {
				continue
			}
			if violatesRule(importPath, rule.forbidden) {
				violations = append(violations,
					"governance: "+sourcePkg+" imports "+importPath+" via "+relToRepoRoot(file)+"; allowed direction: "+rule.hint,
				)
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("%s", strings.Join(violations, "\n"))
	}
}

func TestTestImportBoundaries(t *testing.T) {
	files, err := collectGoFiles(filepath.Join(repoRootDir(), "internal"))
	require.NoError(t, err)

	forbidden := pkgs("cmd", "pkg/cli", "internal/app")
	violations := make([]string, 0)
	for _, file := range files {
		if !isTestFile(file) || strings.HasPrefix(packageImportPath(file), modulePath+"/internal/app") {
			continue
		}
		for _, importPath := range parseImports(t, file) {
			if violatesRule(importPath, forbidden) {
				violations = append(violations, "governance: test "+relToRepoRoot(file)+" imports "+importPath)
			}
		}
	}

	sort.Strings(violations)
	require.Empty(t, violations, "package tests must not reach into the composition root:\n%s", strings.Join(violations, "\n"))
}

func TestRulesCoverEveryInternalPackage(t *testing.T) {
	files, err := collectGoFiles(filepath.Join(repoRootDir(), "internal"))
	require.NoError(t, err)

	// Composition root and test helpers are free to import anything.
	exempt := pkgs("internal/app", "internal/config", "internal/testutil", "internal/architecture")

	uncovered := make(map[string]bool)
	for _, file := range files {
		pkg := packageImportPath(file)
		if violatesRule(pkg, exempt) {
			continue
		}
		if _, ok := findRule(pkg); !ok {
			uncovered[pkg] = true
		}
	}

	missing := make([]string, 0, len(uncovered))
	for pkg := range uncovered {
		missing = append(missing, pkg)
	}
	sort.Strings(missing)
	require.Empty(t, missing, "add a layer rule for new internal packages")
}

func collectGoFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			files = append(files, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func repoRootDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func relToRepoRoot(path string) string {
	rel, err := filepath.Rel(repoRootDir(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func packageImportPath(file string) string {
	return modulePath + "/" + filepath.Dir(relToRepoRoot(file))
}

func isTestFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), "_test.go")
}

func parseImports(t *testing.T, file string) []string {
	t.Helper()

	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
	require.NoErrorf(t, err, "parse imports for %s", file)

	imports := make([]string, 0, len(parsed.Imports))
	for _, imp := range parsed.Imports {
		imports = append(imports, strings.Trim(imp.Path.Value, "\""))
	}
	return imports
}

func findRule(sourcePkg string) (layerRule, bool) {
	for _, rule := range rules {
		if hasPathPrefix(sourcePkg, rule.sourcePrefix) {
			return rule, true
		}
	}
	return layerRule{}, false
}

func violatesRule(importPath string, forbidden []string) bool {
	for _, prefix := range forbidden {
		if hasPathPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func hasPathPrefix(value string, prefix string) bool {
	return value == prefix || strings.HasPrefix(value, prefix+"/")
}
