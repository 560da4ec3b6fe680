package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"golang.org/x/term"
)

// WizardConfig holds the answers collected by the export wizard.
type WizardConfig struct {
	Formats  []Format `json:"formats"`
	BaseName string   `json:"base_name"`
	Dir      string   `json:"dir"`
	Title    string   `json:"title"`
	Preset   string   `json:"preset"`
}

// Paths returns one target path per chosen format.
func (c WizardConfig) Paths() []string {
	base := strings.TrimSuffix(c.BaseName, filepath.Ext(c.BaseName))
	if base == "" {
		base = "tree"
	}
	paths := make([]string, 0, len(c.Formats))
	for _, f := range c.Formats {
		paths = append(paths, filepath.Join(c.Dir, base+"."+string(f)))
	}
	return paths
}

// Options returns the export options for the collected answers.
func (c WizardConfig) Options() Options {
	return Options{Title: c.Title, Preset: c.Preset}
}

// Wizard asks for export targets interactively. The last answers are kept
// in configPath and offered as defaults next time.
type Wizard struct {
	config     WizardConfig
	configPath string
}

// NewWizard creates a wizard seeded with defaults, overridden by any saved
// answers in configPath.
func NewWizard(defaults WizardConfig, configPath string) *Wizard {
	w := &Wizard{config: defaults, configPath: configPath}
	if len(w.config.Formats) == 0 {
		w.config.Formats = []Format{FormatMarkdown}
	}
	if w.config.Dir == "" {
		w.config.Dir = "."
	}
	if saved, err := LoadWizardConfig(configPath); err == nil {
		w.config = saved
	}
	return w
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form, falling back to accessible mode without a TTY.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run shows the form and returns the confirmed answers.
func (w *Wizard) Run() (WizardConfig, error) {
	formats := make([]huh.Option[Format], 0, len(Formats))
	for _, f := range Formats {
		formats = append(formats, huh.NewOption(formatLabel(f), f))
	}

	confirmed := true
	form := newForm(
		huh.NewGroup(
			huh.NewMultiSelect[Format]().
				Title("Formats").
				Options(formats...).
				Value(&w.config.Formats).
				Validate(func(v []Format) error {
					if len(v) == 0 {
						return errors.New("pick at least one format")
					}
					return nil
				}),
			huh.NewInput().
				Title("Directory").
				Value(&w.config.Dir),
			huh.NewInput().
				Title("File name").
				Description("extension is added per format").
				Value(&w.config.BaseName),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&w.config.Title),
			huh.NewSelect[string]().
				Title("Image layout").
				Options(
					huh.NewOption("Compact", "compact"),
					huh.NewOption("Roomy", "roomy"),
				).
				Value(&w.config.Preset),
			huh.NewConfirm().
				Title("Write the files?").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return WizardConfig{}, err
	}
	if !confirmed {
		return WizardConfig{}, huh.ErrUserAborted
	}

	if err := SaveWizardConfig(w.configPath, w.config); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not remember export settings: %v\n", err)
	}
	return w.config, nil
}

func formatLabel(f Format) string {
	switch f {
	case FormatJSON:
		return "JSON snapshot (.json)"
	case FormatMarkdown:
		return "Markdown outline (.md)"
	case FormatSVG:
		return "SVG image (.svg)"
	case FormatPNG:
		return "PNG image (.png)"
	}
	return string(f)
}

// LoadWizardConfig reads answers saved by a previous run.
func LoadWizardConfig(path string) (WizardConfig, error) {
	var cfg WizardConfig
	if path == "" {
		return cfg, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse wizard config: %w", err)
	}
	for _, f := range cfg.Formats {
		if _, err := FormatFor("x." + string(f)); err != nil {
			return WizardConfig{}, err
		}
	}
	return cfg, nil
}

// SaveWizardConfig stores answers for the next run. An empty path is a
// no-op.
func SaveWizardConfig(path string, cfg WizardConfig) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
