// Package pathclassifier infers a path's kind — file, empty directory,
// non-empty directory, creatable, or invalid — purely from the flat
// record list, with no separate directory record type to consult.
package pathclassifier

import (
	"strings"

	"xipfs/record"
	"xipfs/xerrno"
)

// Tag is the classification outcome.
type Tag int

const (
	Undefined Tag = iota
	Creatable
	ExistsAsFile
	ExistsAsEmptyDir
	ExistsAsNonemptyDir
	InvalidNotDirs
	InvalidNotFound
)

func (t Tag) String() string {
	switch t {
	case Creatable:
		return "creatable"
	case ExistsAsFile:
		return "exists as file"
	case ExistsAsEmptyDir:
		return "exists as empty directory"
	case ExistsAsNonemptyDir:
		return "exists as non-empty directory"
	case InvalidNotDirs:
		return "invalid: a parent component is not a directory"
	case InvalidNotFound:
		return "invalid: a parent component does not exist"
	default:
		return "undefined"
	}
}

// Result is the transient classification of a single path against a
// record list: its normalized form, computed dirname/basename, how
// many existing records share its dirname as a prefix (Parent, used by
// unlink/mkdir to decide whether a placeholder must be materialized),
// the record chosen as structural evidence (Witness), and the Tag.
type Result struct {
	Path     string
	Dirname  string
	Basename string
	Parent   int
	Witness  *record.Record
	Tag      Tag
}

// Classify normalizes path and classifies it against records.
func Classify(path string, records []*record.Record) (*Result, error) {
	norm, err := normalize(path)
	if err != nil {
		return nil, err
	}
	dirname, basename := split(norm)
	withSlash := norm
	if !strings.HasSuffix(withSlash, "/") {
		withSlash += "/"
	}
	noSlash := strings.TrimSuffix(norm, "/")
	if noSlash == "" {
		noSlash = "/"
	}

	res := &Result{Path: norm, Dirname: dirname, Basename: basename}

	for _, r := range records {
		if strings.HasPrefix(r.Path, dirname) {
			res.Parent++
		}
	}

	for _, r := range records {
		if r.Path == noSlash && !strings.HasSuffix(r.Path, "/") {
			res.Tag = ExistsAsFile
			res.Witness = r
			return res, nil
		}
	}

	var placeholder, firstChild *record.Record
	childCount := 0
	for _, r := range records {
		if r.Path == withSlash {
			placeholder = r
			continue
		}
		if strings.HasPrefix(r.Path, withSlash) {
			childCount++
			if firstChild == nil {
				firstChild = r
			}
		}
	}
	if childCount > 0 {
		res.Tag = ExistsAsNonemptyDir
		res.Witness = firstChild
		return res, nil
	}
	if placeholder != nil {
		res.Tag = ExistsAsEmptyDir
		res.Witness = placeholder
		return res, nil
	}

	if dirname == "/" {
		res.Tag = Creatable
		return res, nil
	}

	for _, ancestor := range ancestorsOf(dirname) {
		for _, r := range records {
			if r.Path == ancestor && !strings.HasSuffix(r.Path, "/") {
				res.Tag = InvalidNotDirs
				res.Witness = r
				return res, nil
			}
		}
	}

	for _, r := range records {
		if r.Path == dirname || strings.HasPrefix(r.Path, dirname) {
			res.Tag = Creatable
			return res, nil
		}
	}

	res.Tag = InvalidNotFound
	return res, nil
}

// normalize validates path against the same charset rules as a stored
// record path, and additionally rejects "." and ".." components and
// embedded empty components ("//") anywhere but a single trailing
// slash — the classifier never itself resolves "." or "..", that
// belongs to the out-of-scope host-OS VFS shim.
func normalize(path string) (string, error) {
	if err := record.ValidatePath(path); err != nil {
		return "", err
	}
	parts := strings.Split(path[1:], "/")
	for i, p := range parts {
		switch p {
		case ".", "..":
			return "", xerrno.New(xerrno.EINVAL)
		case "":
			if i != len(parts)-1 {
				return "", xerrno.New(xerrno.EINVAL)
			}
		}
	}
	return path, nil
}

// ancestorsOf returns dirname itself and every one of its ancestors,
// deepest first, as slash-free-suffixed paths ("/a/b/c/" -> "/a/b/c",
// "/a/b", "/a"): the full chain of parent components a file-vs-dir conflict
// could occur at, not just the immediate parent.
func ancestorsOf(dirname string) []string {
	trimmed := strings.Trim(dirname, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		out = append(out, "/"+strings.Join(parts[:i], "/"))
	}
	return out
}

// split computes dirname (including its trailing slash, "/" for root)
// and basename for a normalized path.
func split(norm string) (dirname, basename string) {
	if norm == "/" {
		return "/", "/"
	}
	trimmed := strings.TrimSuffix(norm, "/")
	idx := strings.LastIndex(trimmed, "/")
	dirname = trimmed[:idx+1]
	basename = trimmed[idx+1:]
	if dirname == "" {
		dirname = "/"
	}
	return dirname, basename
}
