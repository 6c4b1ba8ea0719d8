package msgcat

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/park285/cheese-solo-chess/internal/rules"
	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

const defaultFile = "messages.en.yaml"

// Key names one user-facing message.
type Key string

const (
	MoveIllegal   Key = "move.illegal"
	MoveOutOfTurn Key = "move.out_of_turn"
	UndoNone      Key = "undo.none"
	UndoDone      Key = "undo.done"
	GameCheckmate Key = "game.checkmate"
	GameDraw      Key = "game.draw"
	GameOver      Key = "game.over"
	ResignDone    Key = "resign.done"
	ResetDone     Key = "reset.done"
	ErrorInternal Key = "error.internal"
	GameResigned  Key = "game.resigned"
)

// fallbacks are used when a template fails to render, and by a nil catalog.
var fallbacks = map[Key]string{
	MoveIllegal:   "Illegal move.",
	MoveOutOfTurn: "Wait for your turn.",
	UndoNone:      "Nothing to undo.",
	UndoDone:      "Move taken back.",
	GameCheckmate: "Checkmate.",
	GameDraw:      "Draw.",
	GameOver:      "The game is over.",
	ResignDone:    "You resigned.",
	ResetDone:     "New game.",
	ErrorInternal: "Something went wrong.",
	GameResigned:  "Resigned.",
}

// Keys lists every message the service uses, sorted.
func Keys() []Key {
	out := make([]Key, 0, len(fallbacks))
	for k := range fallbacks {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Catalog holds the parsed message templates. It is read-only after New and
// safe for concurrent use.
type Catalog struct {
	tpl map[Key]*template.Template
}

// New parses the embedded messages, then the YAML files in overrideDir in
// name order. Every known key must end up with a template; unknown keys and a
// key overridden by two files are errors.
func New(overrideDir string) (*Catalog, error) {
	raw, err := fs.ReadFile(defaultFiles, defaultFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	texts, err := parseMessages(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", defaultFile, err)
	}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if err := applyOverrides(dir, texts); err != nil {
			return nil, err
		}
	}

	c := &Catalog{tpl: make(map[Key]*template.Template, len(fallbacks))}
	for _, k := range Keys() {
		text, ok := texts[k]
		if !ok || strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("message %s is not defined", k)
		}
		t, err := template.New(string(k)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", k, err)
		}
		c.tpl[k] = t
	}
	return c, nil
}

func applyOverrides(dir string, texts map[Key]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read message dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	owner := make(map[Key]string)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		over, err := parseMessages(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k, v := range over {
			if prev, ok := owner[k]; ok {
				return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			owner[k] = name
			texts[k] = v
		}
	}
	return nil
}

// parseMessages reads nested YAML maps of strings into dotted keys.
func parseMessages(b []byte) (map[Key]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	out := make(map[Key]string)
	if len(doc.Content) == 0 {
		return out, nil
	}
	if err := walk(doc.Content[0], "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(n *yaml.Node, prefix string, out map[Key]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := walk(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("line %d: value without a key", n.Line)
		}
		k := Key(prefix)
		if _, known := fallbacks[k]; !known {
			return fmt.Errorf("line %d: unknown message key %q", n.Line, prefix)
		}
		out[k] = n.Value
		return nil
	default:
		return fmt.Errorf("line %d: %s must be a string", n.Line, prefix)
	}
}

// Render executes the template for key with data.
func (c *Catalog) Render(key Key, data any) (string, error) {
	t, ok := c.tpl[key]
	if !ok {
		return "", fmt.Errorf("unknown message key %q", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text renders key, falling back to a fixed English text when rendering
// fails. A nil catalog always yields the fallback.
func (c *Catalog) Text(key Key, data any) string {
	if c == nil {
		return fallbacks[key]
	}
	s, err := c.Render(key, data)
	if err != nil {
		return fallbacks[key]
	}
	return s
}

// Outcome describes how a game ended.
func (c *Catalog) Outcome(out rules.Outcome) string {
	data := map[string]any{
		"Winner": string(out.Winner),
		"Result": out.Result,
		"Method": out.Method,
	}
	switch out.Status {
	case rules.StatusCheckmate:
		return c.Text(GameCheckmate, data)
	case rules.StatusResigned:
		return c.Text(GameResigned, data)
	default:
		return c.Text(GameDraw, data)
	}
}
