package core

import (
	"go/types"
	"path/filepath"
	"runtime"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDocumentStoreImplementationsStayInInfra keeps concrete DocumentStore
// backends inside the persistence packages that OpenDocumentStoreWith knows.
func TestDocumentStoreImplementationsStayInInfra(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}
	pkgs, err := packages.Load(cfg, "carveout/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var documentStore *types.Interface
	for _, p := range pkgs {
		if p.PkgPath != "carveout/pkg/domain" || p.Types == nil {
			continue
		}
		obj := p.Types.Scope().Lookup("DocumentStore")
		if obj == nil {
			t.Fatalf("domain.DocumentStore not found")
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			t.Fatalf("domain.DocumentStore is not an interface")
		}
		documentStore = iface
	}
	if documentStore == nil {
		t.Fatalf("failed to resolve DocumentStore interface")
	}
	allowed := map[string]struct{}{
		"carveout/internal/infra/persistence/memory":   {},
		"carveout/internal/infra/persistence/sqlite":   {},
		"carveout/internal/infra/persistence/postgres": {},
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			named, ok := p.Types.Scope().Lookup(name).Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), documentStore) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		_, file, line, _ := runtime.Caller(0)
		t.Fatalf("unexpected DocumentStore implementations (update the allowed list when adding a backend):\nfile=%s:%d\n%s", filepath.Base(file), line, unexpected)
	}
}
