package menu

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/okothc/sauti/internal/domain"
)

// MaxPageLen is the gateway's per-page USSD text limit. Oversized pages
// are truncated, never rejected.
const MaxPageLen = 182

type Definition struct {
	Title   string   `yaml:"title"`
	Options []string `yaml:"options"`
}

// Catalog holds the static localized menu tree and message texts. It is
// loaded once at startup and read-only afterwards.
type Catalog struct {
	menus map[string]map[domain.SessionState]Definition
	texts map[string]map[string]string
}

func NewCatalog() *Catalog {
	return &Catalog{menus: defaultMenus(), texts: defaultTexts()}
}

// overrideFile is the YAML shape accepted by LoadFile: per-language menu
// definitions and message texts merged over the built-in defaults.
type overrideFile struct {
	Menus map[string]map[string]Definition `yaml:"menus"`
	Texts map[string]map[string]string     `yaml:"texts"`
}

// LoadFile merges menu/text overrides from a YAML file into the catalog.
func (c *Catalog) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f overrideFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for lang, menus := range f.Menus {
		if c.menus[lang] == nil {
			c.menus[lang] = make(map[domain.SessionState]Definition)
		}
		for name, def := range menus {
			c.menus[lang][domain.SessionState(name)] = def
		}
	}
	for lang, texts := range f.Texts {
		if c.texts[lang] == nil {
			c.texts[lang] = make(map[string]string)
		}
		for key, val := range texts {
			c.texts[lang][key] = val
		}
	}
	return nil
}

// Text returns the localized message for key, falling back to English and
// then to the key itself.
func (c *Catalog) Text(key, lang string) string {
	if m, ok := c.texts[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := c.texts["en"][key]; ok {
		return s
	}
	return key
}

// Render builds the display text for a static menu.
func (c *Catalog) Render(state domain.SessionState, lang string) string {
	if state == domain.StateLanguage {
		// Always bilingual.
		return "Select Language / Chagua Lugha\n\n1. English\n2. Kiswahili\n0. Back / Rudi"
	}
	defs, ok := c.menus[lang]
	if !ok {
		defs = c.menus["en"]
	}
	def, ok := defs[state]
	if !ok {
		def = c.menus["en"][domain.StateMain]
	}
	return def.Title + "\n\n" + strings.Join(def.Options, "\n")
}

// RenderQuestions builds the dynamic question selection menu.
func (c *Catalog) RenderQuestions(questions []domain.Question, lang string) string {
	var b strings.Builder
	b.WriteString(c.Text("select_question", lang))
	b.WriteString("\n\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Title)
	}
	b.WriteString("0. " + c.Text("back_to_main", lang))
	return b.String()
}

// Clamp truncates a rendered page to the gateway limit on a rune boundary.
func Clamp(s string) string {
	if len(s) <= MaxPageLen {
		return s
	}
	cut := MaxPageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
