package resolver

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"printdesk/internal/hours"
)

// KeywordGroup is one deterministic matcher: if any keyword appears in the
// lower-cased query, the canned answer applies.
type KeywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// LanguagePack holds everything language-specific: the generation system
// prompt, the keyword matcher and the fallback texts.
type LanguagePack struct {
	SystemPrompt   string         `yaml:"system_prompt"`
	KeywordGroups  []KeywordGroup `yaml:"keyword_groups"`
	NoAnswer       string         `yaml:"no_answer"`
	TechnicalError string         `yaml:"technical_error"`
	OpenCTA        string         `yaml:"open_cta"`
	ClosedCTA      string         `yaml:"closed_cta"` // formatted with next opening
	EmptyQuery     string         `yaml:"empty_query"`
	QueryTooLong   string         `yaml:"query_too_long"`
}

type templateFile struct {
	DefaultLanguage string                   `yaml:"default_language"`
	Languages       map[string]*LanguagePack `yaml:"languages"`
	Schedule        struct {
		Timezone string            `yaml:"timezone"`
		Days     map[string]*hours.Window `yaml:"days"` // "monday".."sunday"
		Holidays []string          `yaml:"holidays"`
	} `yaml:"schedule"`
}

// Templates is the hot-reloadable pack of language templates. Built-in
// Ukrainian and English defaults apply when no file is given; a YAML file
// replaces packs wholesale per language.
type Templates struct {
	mu          sync.RWMutex
	languages   map[string]*LanguagePack
	defaultLang string
}

// NewTemplates returns the built-in pack.
func NewTemplates(defaultLang string) *Templates {
	if defaultLang == "" {
		defaultLang = "ukr"
	}
	return &Templates{
		languages:   builtinPacks(),
		defaultLang: defaultLang,
	}
}

// LoadFile merges a YAML template file over the built-in packs. Returns the
// schedule section for the hours oracle (zero value when absent).
func (t *Templates) LoadFile(path string) (hours.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hours.Schedule{}, fmt.Errorf("failed to read templates file: %w", err)
	}
	var parsed templateFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return hours.Schedule{}, fmt.Errorf("failed to parse templates file: %w", err)
	}

	t.mu.Lock()
	for lang, pack := range parsed.Languages {
		if pack != nil {
			t.languages[lang] = pack
		}
	}
	if parsed.DefaultLanguage != "" {
		t.defaultLang = parsed.DefaultLanguage
	}
	t.mu.Unlock()

	schedule := hours.Schedule{
		Timezone: parsed.Schedule.Timezone,
		Days:     map[time.Weekday]*hours.Window{},
		Holidays: map[string]bool{},
	}
	for name, window := range parsed.Schedule.Days {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return hours.Schedule{}, fmt.Errorf("unknown weekday %q in schedule", name)
		}
		schedule.Days[day] = window
	}
	for _, holiday := range parsed.Schedule.Holidays {
		schedule.Holidays[holiday] = true
	}
	return schedule, nil
}

// Watch hot-reloads the templates file on change. Schedule changes require
// a restart; only the language packs are swapped live. Runs until the
// process exits; call from a goroutine.
func (t *Templates) Watch(path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  [TEMPLATES] Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		log.Printf("⚠️  [TEMPLATES] Failed to resolve %s: %v", path, err)
		watcher.Close()
		return
	}
	// Watching the directory survives editors that replace the file.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		log.Printf("⚠️  [TEMPLATES] Failed to watch %s: %v", filepath.Dir(absPath), err)
		watcher.Close()
		return
	}
	log.Printf("👁️  [TEMPLATES] Watching %s for changes (hot-reload enabled)", path)

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(absPath) {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if _, err := t.LoadFile(path); err != nil {
						log.Printf("❌ [TEMPLATES] Reload failed: %v", err)
					} else {
						log.Printf("✅ [TEMPLATES] Reloaded %s", path)
					}
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  [TEMPLATES] Watcher error: %v", err)
		}
	}
}

// Pack resolves the language pack, falling back to the default language for
// unknown tags.
func (t *Templates) Pack(language string) *LanguagePack {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if pack, ok := t.languages[language]; ok {
		return pack
	}
	return t.languages[t.defaultLang]
}

// DefaultLanguage returns the configured fallback language tag.
func (t *Templates) DefaultLanguage() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.defaultLang
}

// MatchKeyword runs the deterministic matcher for the language against the
// lower-cased query. Returns the canned answer and group name of the first
// matching group.
func (t *Templates) MatchKeyword(language, query string) (answer, group string, ok bool) {
	pack := t.Pack(language)
	if pack == nil {
		return "", "", false
	}
	lowered := strings.ToLower(query)
	for _, g := range pack.KeywordGroups {
		for _, keyword := range g.Keywords {
			if keyword != "" && strings.Contains(lowered, keyword) {
				return g.Answer, g.Name, true
			}
		}
	}
	return "", "", false
}

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}
