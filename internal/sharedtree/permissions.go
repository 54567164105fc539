package sharedtree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const PermissionFileName = "syft.pub.yaml"

// Access is one rule's admin/read/write grant.
type Access struct {
	Admin []string `yaml:"admin"`
	Read  []string `yaml:"read"`
	Write []string `yaml:"write"`
}

// Rule pairs a glob pattern with an Access grant.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Access  Access `yaml:"access"`
}

// Document is the on-disk syft.pub.yaml schema (spec §6).
type Document struct {
	Rules []Rule `yaml:"rules"`
}

// Template names the two fixed permission shapes spec §4.2 requires.
type Template string

const (
	// TemplateCoordination exposes _progress/ to every session participant.
	TemplateCoordination Template = "coordination"
	// TemplateData exposes a per-step output directory to its declared readers.
	TemplateData Template = "data"
)

// BuildDocument constructs the single-rule ("**") permission document used
// for both templates, with owner as admin and readers (sorted, deduplicated)
// as the read list. write is always empty: peers never
// write into another profile's tree directly.
func BuildDocument(owner string, readers []string) Document {
	r := append([]string(nil), readers...)
	sort.Strings(r)
	return Document{
		Rules: []Rule{{
			Pattern: "**",
			Access: Access{
				Admin: []string{owner},
				Read:  dedupe(r),
				Write: []string{},
			},
		}},
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// WritePermissionDocument writes (or idempotently rewrites) a syft.pub.yaml
// at dir's root. Re-running with the same or a superset reader list never
// downgrades existing readers (testable property 9): the new reader set is
// unioned with whatever document already exists.
func WritePermissionDocument(dir, owner string, readers []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create permission document directory: %w", err)
	}

	path := filepath.Join(dir, PermissionFileName)
	merged := readers
	if existing, err := ReadPermissionDocument(dir); err == nil && len(existing.Rules) > 0 {
		merged = append(merged, existing.Rules[0].Access.Read...)
	}

	doc := BuildDocument(owner, merged)
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal permission document: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write permission document: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadPermissionDocument reads dir's syft.pub.yaml, if present.
func ReadPermissionDocument(dir string) (Document, error) {
	raw, err := os.ReadFile(filepath.Join(dir, PermissionFileName))
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Readers returns the current read grant for dir's permission document, or
// nil if none exists yet.
func Readers(dir string) []string {
	doc, err := ReadPermissionDocument(dir)
	if err != nil || len(doc.Rules) == 0 {
		return nil
	}
	return doc.Rules[0].Access.Read
}

// CanRead reports whether reader is granted read access to relPath under
// doc, matching each rule's glob pattern with doublestar so "**" and
// step-scoped patterns behave like the sync agent's own evaluator.
func CanRead(doc Document, relPath, reader string) bool {
	for _, rule := range doc.Rules {
		ok, err := doublestar.Match(rule.Pattern, relPath)
		if err != nil || !ok {
			continue
		}
		for _, r := range rule.Access.Read {
			if r == reader {
				return true
			}
		}
	}
	return false
}
