// SPDX-License-Identifier: GPL-3.0-or-later

package doipkit_test

import (
	"os"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// packageGroup describes a group of packages and their allowed dependencies.
type packageGroup struct {
	// Name is the name of the package group.
	Name string

	// Allowed is a list of allowed dependencies for the package group.
	Allowed []string
}

// groups lists all known package groups. Unlike the teacher's layout
// (pkg/cli, pkg/common, pkg/dns, pkg/x as separate dependency tiers),
// this repo's pkg directory is one flat tier of domain packages plus
// the cli layer on top of it, so every group is simply allowed to
// depend on anything under pkg and internal.
var groups = []packageGroup{
	{Name: "pkg/cli", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/cliconfig", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/doip", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/doiperrors", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/doipmux", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/doipsession", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/executor", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/exprctx", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/scenario", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/scenariomsg", Allowed: []string{"internal", "pkg"}},
	{Name: "pkg/uds", Allowed: []string{"internal", "pkg"}},
}

// validateSpecificGroup validates a specific package group against its allowed dependencies.
func validateSpecificGroup(t *testing.T, modpath string, group packageGroup) {
	// Make an allow list containing fully qualified package names
	allow := make([]string, 0, len(group.Allowed))
	for _, entry := range group.Allowed {
		allow = append(allow, modpath+"/"+entry)
	}

	// Load all packages in the group
	config := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	fullname := modpath + "/" + group.Name + "/..."
	pkgs, err := packages.Load(config, fullname)
	if err != nil {
		t.Errorf("error loading %q: %s", fullname, err.Error())
		return
	}

	// Process each loaded package
	for _, pkg := range pkgs {

		// Process each import used by the package
		for _, dep := range pkg.Imports {

			// Skip dependencies outside of the module prefix
			if !strings.HasPrefix(dep.PkgPath, modpath) {
				continue
			}

			// Ensure the dependency is allowed
			var found bool
			for _, entry := range allow {
				found = found || strings.HasPrefix(dep.PkgPath, entry)
			}
			if !found {
				t.Errorf("package %q depends on %q, which is not listed in %v", pkg.PkgPath, dep.PkgPath, allow)
				continue
			}
		}
	}
}

// validateAllGroups validates all package groups against their allowed dependencies.
func validateAllGroups(t *testing.T, modpath string, groups []packageGroup) {
	for _, group := range groups {
		t.Run(group.Name, func(t *testing.T) {
			validateSpecificGroup(t, modpath, group)
		})
	}
}

// validateGroupNames ensures that the group names listed in groups are
// consistent with the package dirs inside the `./pkg` directory.
func validateGroupNames(t *testing.T, groups []packageGroup) {
	dentries, err := os.ReadDir("pkg")
	if err != nil {
		t.Fatalf("error reading package directory: %v", err)
		return
	}

	const (
		actual = 1 << iota
		specced
	)
	accounted := make(map[string]int, len(dentries))
	for _, dentry := range dentries {
		if dentry.IsDir() && dentry.Name() != "testdata" {
			accounted[dentry.Name()] |= actual
		}
	}
	for _, group := range groups {
		accounted[strings.TrimPrefix(group.Name, "pkg/")] |= specced
	}

	for name, flags := range accounted {
		switch flags {
		case actual | specced:
			// all good
		case actual:
			t.Errorf("package group %q is not listed in the package specifications but has a corresponding directory", name)
		default:
			t.Errorf("package group %q is listed in the package specifications but does not have a corresponding directory", name)
		}
	}
}

func TestPublicPackages(t *testing.T) {
	validateGroupNames(t, groups)
	validateAllGroups(t, "github.com/doipkit/doipkit", groups)
}
