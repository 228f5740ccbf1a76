package rulestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/rule"
)

// fileDoc is the on-disk YAML layout: a flat list of rules.
type fileDoc struct {
	Rules []rule.Rule `yaml:"rules"`
}

// FileRepository stores rules in a single YAML file. Every write rewrites
// the file atomically (temp file + rename), so readers never observe a
// partial document. A missing file reads as an empty repository.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileRepository opens a YAML-backed repository at path. If the file
// exists it is parsed once so malformed documents surface at startup.
func NewFileRepository(path string) (*FileRepository, error) {
	const op = "rulestore.NewFileRepository"

	if path == "" {
		return nil, fluxerr.New(fluxerr.KindConfigInvalid, op, ErrEmptyPath)
	}

	f := &FileRepository{path: path}
	if _, err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileRepository) FindByRuleSetID(ctx context.Context, ruleSetID string) ([]rule.Rule, error) {
	if ruleSetID == "" {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.file.FindByRuleSetID", ErrEmptyRuleSetID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	var out []rule.Rule
	for _, r := range doc.Rules {
		if r.RuleSetID == ruleSetID {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

func (f *FileRepository) FindByID(ctx context.Context, id string) (rule.Rule, error) {
	if id == "" {
		return rule.Rule{}, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.file.FindByID", ErrEmptyID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return rule.Rule{}, err
	}
	for _, r := range doc.Rules {
		if r.ID == id {
			return r, nil
		}
	}
	return rule.Rule{}, ErrNotFound
}

func (f *FileRepository) Save(ctx context.Context, r rule.Rule) error {
	if err := r.Validate(); err != nil {
		return fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.file.Save", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range doc.Rules {
		if doc.Rules[i].ID == r.ID {
			doc.Rules[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Rules = append(doc.Rules, r)
	}
	return f.persist(doc)
}

func (f *FileRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.file.DeleteByID", ErrEmptyID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return false, err
	}
	kept := doc.Rules[:0]
	found := false
	for _, r := range doc.Rules {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return false, nil
	}
	doc.Rules = kept
	return true, f.persist(doc)
}

func (f *FileRepository) FindAll(ctx context.Context) ([]rule.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	out := append([]rule.Rule(nil), doc.Rules...)
	sortRules(out)
	return out, nil
}

func (f *FileRepository) DeleteByRuleSetID(ctx context.Context, ruleSetID string) (int64, error) {
	if ruleSetID == "" {
		return 0, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.file.DeleteByRuleSetID", ErrEmptyRuleSetID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return 0, err
	}
	kept := doc.Rules[:0]
	var n int64
	for _, r := range doc.Rules {
		if r.RuleSetID == ruleSetID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	if n == 0 {
		return 0, nil
	}
	doc.Rules = kept
	return n, f.persist(doc)
}

func (f *FileRepository) load() (fileDoc, error) {
	const op = "rulestore.file.load"

	var doc fileDoc
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fluxerr.New(fluxerr.KindStoreConnection, op, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fileDoc{}, fluxerr.New(fluxerr.KindSerialization, op, fmt.Errorf("parse %s: %w", f.path, err))
	}
	return doc, nil
}

func (f *FileRepository) persist(doc fileDoc) error {
	const op = "rulestore.file.persist"

	sortRules(doc.Rules)
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fluxerr.New(fluxerr.KindSerialization, op, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fluxerr.New(fluxerr.KindStoreConnection, op, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fluxerr.New(fluxerr.KindStoreConnection, op, err)
	}
	return nil
}

// Path returns the backing file location, used by reload pollers to log a
// stable source name.
func (f *FileRepository) Path() string {
	return filepath.Clean(f.path)
}
