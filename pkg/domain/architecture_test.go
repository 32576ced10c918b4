package domain

import (
	"strings"
	"testing"

	"cg/testutil"
)

// The domain package is the dependency root of the repository: it must not
// import anything outside the standard library.
func TestDomainHasNoProjectImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return strings.HasPrefix(path, "cg/")
	}, "pkg/domain must stay dependency-free")
}
