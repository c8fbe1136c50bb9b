package pathclassifier

import (
	"testing"

	"xipfs/record"
)

func recs(paths ...string) []*record.Record {
	out := make([]*record.Record, len(paths))
	for i, p := range paths {
		out[i] = &record.Record{Path: p}
	}
	return out
}

func TestClassifyCreatableOnEmptyMount(t *testing.T) {
	res, err := Classify("/a", recs())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != Creatable {
		t.Fatalf("expected Creatable, got %v", res.Tag)
	}
}

func TestClassifyExistsAsFile(t *testing.T) {
	res, err := Classify("/a", recs("/a"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != ExistsAsFile {
		t.Fatalf("expected ExistsAsFile, got %v", res.Tag)
	}
}

func TestClassifyExistsAsNonemptyDirViaChild(t *testing.T) {
	res, err := Classify("/dir", recs("/dir/child"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != ExistsAsNonemptyDir {
		t.Fatalf("expected ExistsAsNonemptyDir, got %v", res.Tag)
	}
}

func TestClassifyExistsAsEmptyDirViaPlaceholder(t *testing.T) {
	res, err := Classify("/dir", recs("/dir/"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != ExistsAsEmptyDir {
		t.Fatalf("expected ExistsAsEmptyDir, got %v", res.Tag)
	}
}

func TestClassifyCreatableInsideExistingDir(t *testing.T) {
	res, err := Classify("/dir/new", recs("/dir/"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != Creatable {
		t.Fatalf("expected Creatable, got %v", res.Tag)
	}
}

func TestClassifyInvalidNotDirsWhenParentIsFile(t *testing.T) {
	res, err := Classify("/a/b", recs("/a"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != InvalidNotDirs {
		t.Fatalf("expected InvalidNotDirs, got %v", res.Tag)
	}
}

func TestClassifyInvalidNotDirsWhenAncestorIsFile(t *testing.T) {
	res, err := Classify("/a/b/c", recs("/a"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != InvalidNotDirs {
		t.Fatalf("expected InvalidNotDirs, got %v", res.Tag)
	}
	if res.Witness == nil || res.Witness.Path != "/a" {
		t.Fatalf("expected witness /a, got %+v", res.Witness)
	}
}

func TestClassifyInvalidNotFoundWhenParentMissing(t *testing.T) {
	res, err := Classify("/missing/b", recs("/other"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != InvalidNotFound {
		t.Fatalf("expected InvalidNotFound, got %v", res.Tag)
	}
}

func TestClassifyRootIsAlwaysCreatableParent(t *testing.T) {
	res, err := Classify("/topfile", recs())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Tag != Creatable {
		t.Fatalf("expected Creatable for top-level path, got %v", res.Tag)
	}
	if res.Dirname != "/" {
		t.Fatalf("expected dirname /, got %q", res.Dirname)
	}
}

func TestClassifyRejectsDotAndDotDotComponents(t *testing.T) {
	if _, err := Classify("/a/./b", recs()); err == nil {
		t.Fatalf("expected error for '.' component")
	}
	if _, err := Classify("/a/../b", recs()); err == nil {
		t.Fatalf("expected error for '..' component")
	}
}

func TestClassifyRejectsEmbeddedEmptyComponent(t *testing.T) {
	if _, err := Classify("/a//b", recs()); err == nil {
		t.Fatalf("expected error for embedded empty component")
	}
}

func TestClassifyParentCountsAllDescendants(t *testing.T) {
	res, err := Classify("/dir/x", recs("/dir/a", "/dir/b", "/dir/b/c", "/other"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Parent != 3 {
		t.Fatalf("expected parent count 3, got %d", res.Parent)
	}
}

func TestClassifySplitBasenameAndDirname(t *testing.T) {
	res, err := Classify("/dir/sub/file", recs())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Dirname != "/dir/sub/" {
		t.Fatalf("expected dirname /dir/sub/, got %q", res.Dirname)
	}
	if res.Basename != "file" {
		t.Fatalf("expected basename file, got %q", res.Basename)
	}
}
