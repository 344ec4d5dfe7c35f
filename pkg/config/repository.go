package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/fsnotify.v1"
	"gopkg.in/yaml.v3"
)

// Source types of a repository.
const (
	SourceOAI       = "oai"
	SourceDirectory = "directory"
)

// Repository describes one harvested repository.
type Repository struct {
	Code           string `yaml:"code" json:"code"`
	Name           string `yaml:"name" json:"name"`
	Type           string `yaml:"type" json:"type"`
	URL            string `yaml:"url" json:"url"`
	Path           string `yaml:"path,omitempty" json:"path,omitempty"`
	MetadataPrefix string `yaml:"metadata_prefix,omitempty" json:"metadata_prefix,omitempty"`
	Set            string `yaml:"set,omitempty" json:"set,omitempty"`
	// DefaultLanguage overrides the global default for documents without a
	// root language.
	DefaultLanguage string `yaml:"default_language,omitempty" json:"default_language,omitempty"`
	Disabled        bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Validate checks the repository definition.
func (r *Repository) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("repository code is required")
	}
	if r.URL == "" {
		return fmt.Errorf("repository %s: url is required", r.Code)
	}
	if _, err := url.ParseRequestURI(r.URL); err != nil {
		return fmt.Errorf("repository %s: invalid url: %w", r.Code, err)
	}
	switch r.Type {
	case "", SourceOAI:
		if r.MetadataPrefix == "" {
			return fmt.Errorf("repository %s: metadata_prefix is required for OAI-PMH", r.Code)
		}
	case SourceDirectory:
		if r.Path == "" {
			return fmt.Errorf("repository %s: path is required for directory sources", r.Code)
		}
	default:
		return fmt.Errorf("repository %s: unknown type %q", r.Code, r.Type)
	}
	if r.DefaultLanguage != "" {
		if err := ValidateLanguage(r.DefaultLanguage); err != nil {
			return fmt.Errorf("repository %s: %w", r.Code, err)
		}
	}
	return nil
}

// SourceType returns the repository type, defaulting to OAI-PMH.
func (r *Repository) SourceType() string {
	if r.Type == "" {
		return SourceOAI
	}
	return r.Type
}

// RepositoryRegistry holds the repository definitions loaded from a
// directory of YAML files, one repository per file.
type RepositoryRegistry struct {
	mu           sync.RWMutex
	repositories map[string]*Repository
	files        map[string]string
	dir          string
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	onChange     func(event string, repo *Repository)
}

// NewRepositoryRegistry creates an empty registry.
func NewRepositoryRegistry() *RepositoryRegistry {
	return &RepositoryRegistry{
		repositories: make(map[string]*Repository),
		files:        make(map[string]string),
	}
}

// NewRepositoryRegistryWithDirectory creates a registry and loads dir.
func NewRepositoryRegistryWithDirectory(dir string) (*RepositoryRegistry, error) {
	r := NewRepositoryRegistry()
	if err := r.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds or replaces a repository.
func (r *RepositoryRegistry) Register(repo *Repository) error {
	if repo == nil {
		return fmt.Errorf("repository cannot be nil")
	}
	if err := repo.Validate(); err != nil {
		return fmt.Errorf("invalid repository: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.repositories[repo.Code] = repo
	return nil
}

// Get returns a repository by code.
func (r *RepositoryRegistry) Get(code string) (*Repository, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	repo, ok := r.repositories[code]
	return repo, ok
}

// List returns all repositories sorted by code.
func (r *RepositoryRegistry) List() []*Repository {
	r.mu.RLock()
	defer r.mu.RUnlock()

	repos := make([]*Repository, 0, len(r.repositories))
	for _, repo := range r.repositories {
		repos = append(repos, repo)
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Code < repos[j].Code })
	return repos
}

// Count returns the number of repositories.
func (r *RepositoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.repositories)
}

// LoadDirectory loads every YAML file of dir. A missing directory is empty.
func (r *RepositoryRegistry) LoadDirectory(dir string) error {
	r.dir = dir

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading repositories: %s", strings.Join(loadErrors, "; "))
	}
	return nil
}

// LoadFile loads a single repository file.
func (r *RepositoryRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	var repo Repository
	if err := yaml.Unmarshal(data, &repo); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	if repo.Type == SourceDirectory && repo.Path != "" && !filepath.IsAbs(repo.Path) {
		repo.Path = filepath.Join(filepath.Dir(path), repo.Path)
	}

	if err := r.Register(&repo); err != nil {
		return fmt.Errorf("registering repository: %w", err)
	}

	r.mu.Lock()
	r.files[filepath.Clean(path)] = repo.Code
	r.mu.Unlock()
	return nil
}

// Reload reloads all repositories from the configured directory.
func (r *RepositoryRegistry) Reload() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for reload")
	}

	r.mu.Lock()
	r.repositories = make(map[string]*Repository)
	r.files = make(map[string]string)
	r.mu.Unlock()

	return r.LoadDirectory(r.dir)
}

// SetOnChange sets a callback invoked after a watched file changes.
func (r *RepositoryRegistry) SetOnChange(fn func(event string, repo *Repository)) {
	r.onChange = fn
}

// Watch starts watching the repository directory for changes.
func (r *RepositoryRegistry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})

	go r.watchLoop()

	if err := watcher.Add(r.dir); err != nil {
		r.watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}
	return nil
}

func (r *RepositoryRegistry) watchLoop() {
	for {
		select {
		case <-r.stopChan:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !isYAML(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				r.handleFileChange(event.Name, "create")
			case event.Op&fsnotify.Write == fsnotify.Write:
				r.handleFileChange(event.Name, "modify")
			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				r.handleFileRemove(event.Name)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("Repository watcher error")
		}
	}
}

func (r *RepositoryRegistry) handleFileChange(path, event string) {
	if err := r.LoadFile(path); err != nil {
		log.WithFields(log.Fields{"file": path, "error": err}).Warn("Failed to reload repository")
		return
	}

	r.mu.RLock()
	code := r.files[filepath.Clean(path)]
	r.mu.RUnlock()
	repo, _ := r.Get(code)

	log.WithFields(log.Fields{"file": path, "repository": code, "event": event}).Info("Repository reloaded")
	if r.onChange != nil {
		r.onChange(event, repo)
	}
}

func (r *RepositoryRegistry) handleFileRemove(path string) {
	r.mu.Lock()
	code, ok := r.files[filepath.Clean(path)]
	removed := r.repositories[code]
	if ok {
		delete(r.files, filepath.Clean(path))
		delete(r.repositories, code)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	log.WithFields(log.Fields{"file": path, "repository": code}).Info("Repository removed")
	if r.onChange != nil {
		r.onChange("remove", removed)
	}
}

// StopWatch stops watching the repository directory.
func (r *RepositoryRegistry) StopWatch() {
	if r.stopChan != nil {
		close(r.stopChan)
	}
	if r.watcher != nil {
		r.watcher.Close()
	}
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
