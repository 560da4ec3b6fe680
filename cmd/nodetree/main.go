package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/nodetree/pkg/analysis"
	"github.com/vanderheijden86/nodetree/pkg/config"
	"github.com/vanderheijden86/nodetree/pkg/debug"
	"github.com/vanderheijden86/nodetree/pkg/export"
	"github.com/vanderheijden86/nodetree/pkg/model"
	"github.com/vanderheijden86/nodetree/pkg/session"
	"github.com/vanderheijden86/nodetree/pkg/store"
	"github.com/vanderheijden86/nodetree/pkg/ui"
	"github.com/vanderheijden86/nodetree/pkg/version"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configFile := flag.String("config", "", "Read configuration from this file instead of the XDG config path")
	sessionFile := flag.String("session", "", "Load and save the tree as a JSON snapshot (a .db path selects the SQLite store)")
	storeFile := flag.String("store", "", "Keep snapshot history in this SQLite database")
	watch := flag.Bool("watch", false, "Reload the session when another process changes it")
	autosave := flag.Bool("autosave", false, "Save after every edit")
	listSessions := flag.Bool("list-sessions", false, "List project sessions found under the configured scan paths")
	scriptFile := flag.String("script", "", "Apply the operations in a YAML file without the TUI")
	strict := flag.Bool("strict", false, "Report rejected script operations and exit 1 (use with --script)")
	printTree := flag.Bool("print", false, "Print the resulting tree as JSON")
	stats := flag.Bool("stats", false, "Print tree statistics")
	robotStats := flag.Bool("robot-stats", false, "Output tree statistics as JSON")
	exportPaths := flag.String("export", "", "Export the tree to one or more comma-separated files (.json, .md, .svg, .png)")
	exportWizard := flag.Bool("export-wizard", false, "Choose export formats and paths interactively")
	prune := flag.Int("prune", 0, "Keep only the N most recent snapshots in the store")
	debugFlag := flag.Bool("debug", false, "Write debug logging (same as NODETREE_DEBUG=1)")
	flag.Parse()

	if *debugFlag {
		debug.SetEnabled(true)
	}

	if *help {
		fmt.Println("Usage: nodetree [options]")
		fmt.Println("\nGrow and rearrange a tree of nodes rooted at START.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("nodetree %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	if *autosave {
		cfg.Session.Autosave = true
	}
	if *watch {
		cfg.Session.Watch = true
	}

	if *listSessions {
		sessions := config.DiscoverSessions(cfg)
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			fmt.Println("Add directories to session.scan_paths in", config.ConfigPath())
			os.Exit(0)
		}
		for _, s := range sessions {
			fmt.Println(s)
		}
		os.Exit(0)
	}

	if *sessionFile != "" {
		cfg.Session.Path = *sessionFile
	} else if cfg.Session.Path == "" && cfg.Session.Discover {
		if found, ok := config.DetectProjectSession(); ok {
			cfg.Session.Path = found
		}
	}
	targets := resolveTargets(cfg, *storeFile)

	ctx := context.Background()

	var st *store.Store
	if targets.storePath != "" {
		st, err = store.Open(targets.storePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
	}

	tree, err := loadTree(ctx, targets.sessionPath, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading session: %v\n", err)
		os.Exit(1)
	}

	headless := *scriptFile != "" || *printTree || *stats || *robotStats ||
		*exportPaths != "" || *exportWizard || *prune > 0
	if headless {
		code := runHeadless(ctx, tree, st, targets, cfg, headlessOptions{
			script:       *scriptFile,
			strict:       *strict,
			print:        *printTree,
			stats:        *stats,
			robotStats:   *robotStats,
			exportPaths:  *exportPaths,
			exportWizard: *exportWizard,
			prune:        *prune,
		})
		if st != nil {
			st.Close()
		}
		os.Exit(code)
	}

	if path := os.Getenv("NODETREE_LOG"); path != "" {
		f, err := tea.LogToFile(path, "nodetree")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		debug.SetOutput(f)
	} else {
		// Stray log output would corrupt the alt screen.
		log.SetOutput(io.Discard)
		debug.SetOutput(io.Discard)
	}

	workerCfg := ui.WorkerConfig{SessionPath: targets.sessionPath}
	if st != nil {
		workerCfg.Store = st
	}

	var watcher *session.Watcher
	if cfg.Session.Watch && targets.sessionPath != "" {
		watcher, err = startWatcher(ctx, targets.sessionPath, tree)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: not watching session: %v\n", err)
		} else {
			defer watcher.Stop()
			workerCfg.Changes = watcher.Changed()
		}
	}

	worker := ui.NewBackgroundWorker(workerCfg)
	defer worker.Stop()

	statePath := ui.TreeStatePath(targets.sessionPath)
	if statePath == "" {
		statePath = ui.TreeStatePath(targets.storePath)
	}

	m := ui.NewModel(tree, ui.Options{
		UI:        cfg.UI,
		Autosave:  cfg.Session.Autosave,
		Worker:    worker,
		StatePath: statePath,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running nodetree: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// persistTargets says where the tree is read from and saved to.
type persistTargets struct {
	sessionPath string // JSON snapshot
	storePath   string // SQLite history
}

// resolveTargets picks the session file and store database. A session path
// with a database extension is the store itself. With store: sqlite and no
// --store, history goes to the state directory.
func resolveTargets(cfg config.Config, storeFlag string) persistTargets {
	t := persistTargets{sessionPath: cfg.Session.Path, storePath: storeFlag}
	if cfg.SessionStore() != config.StoreSQLite {
		return t
	}
	switch strings.ToLower(filepath.Ext(t.sessionPath)) {
	case ".db", ".sqlite", ".sqlite3":
		if t.storePath == "" {
			t.storePath = t.sessionPath
		}
		t.sessionPath = ""
	default:
		if t.storePath == "" {
			if dir := config.StateDir(); dir != "" {
				t.storePath = filepath.Join(dir, "history.db")
			}
		}
	}
	return t
}

// loadTree prefers the JSON session and falls back to the newest stored
// snapshot. With neither, the tree is the lone START node.
func loadTree(ctx context.Context, sessionPath string, st *store.Store) (*model.Tree, error) {
	if sessionPath != "" {
		return session.LoadOrNew(sessionPath)
	}
	if st == nil {
		return model.NewTree(), nil
	}
	root, info, err := st.Latest(ctx)
	if errors.Is(err, store.ErrNoSnapshots) {
		return model.NewTree(), nil
	}
	if err != nil {
		return nil, err
	}
	debug.Dump("loaded snapshot", info)
	return model.FromRoot(root)
}

// startWatcher watches the session file, writing the current tree first so
// there is something to watch.
func startWatcher(ctx context.Context, path string, tree *model.Tree) (*session.Watcher, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := session.Save(path, tree.Root()); err != nil {
			return nil, err
		}
	}
	w, err := session.NewWatcher(path,
		session.WithDebounce(200*time.Millisecond),
		session.WithOnError(func(err error) {
			log.Printf("warning: session watcher: %v", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

type headlessOptions struct {
	script       string
	strict       bool
	print        bool
	stats        bool
	robotStats   bool
	exportPaths  string
	exportWizard bool
	prune        int
}

// runHeadless performs the non-interactive flags in a fixed order: script,
// save, prune, stats, print, export. It returns the exit code.
func runHeadless(ctx context.Context, tree *model.Tree, st *store.Store, targets persistTargets, cfg config.Config, opts headlessOptions) int {
	if opts.script != "" {
		ops, err := loadScript(opts.script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		rejected := rejections(runScript(tree, ops))
		if opts.strict && len(rejected) > 0 {
			for _, r := range rejected {
				fmt.Fprintf(os.Stderr, "rejected %s: %v\n", r, r.Err)
			}
			return 1
		}
		if err := saveTree(ctx, tree, targets, st); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			return 1
		}
	}

	if opts.prune > 0 {
		if st == nil {
			fmt.Fprintln(os.Stderr, "Error: --prune needs a store (use --store)")
			return 1
		}
		n, err := st.Prune(ctx, opts.prune)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Pruned %d snapshot(s)\n", n)
	}

	if opts.stats || opts.robotStats {
		s := analysis.NewAnalyzer(tree.Root()).Stats(analysis.DefaultStatsConfig())
		if opts.robotStats {
			if err := writeJSON(os.Stdout, s); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding stats: %v\n", err)
				return 1
			}
		} else {
			printStats(os.Stdout, s)
		}
	}

	if opts.print {
		if err := writeJSON(os.Stdout, tree.Root()); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding tree: %v\n", err)
			return 1
		}
	}

	paths := export.SplitPaths(opts.exportPaths)
	exportOpts := export.Options{Title: cfg.Export.Title, Preset: cfg.Export.Preset}
	if opts.exportWizard {
		wizard := export.NewWizard(export.WizardConfig{
			Title:  cfg.Export.Title,
			Preset: cfg.Export.Preset,
		}, wizardStatePath())
		answers, err := wizard.Run()
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("Export cancelled.")
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		paths = append(paths, answers.Paths()...)
		exportOpts = answers.Options()
	}
	if len(paths) > 0 {
		if err := export.ExportAll(ctx, tree.Snapshot(), paths, exportOpts); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			return 1
		}
		for _, p := range paths {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", p)
		}
	}
	return 0
}

// saveTree writes a scripted result back to the configured session and
// store. Without either it does nothing.
func saveTree(ctx context.Context, tree *model.Tree, targets persistTargets, st *store.Store) error {
	if targets.sessionPath != "" {
		if err := session.Save(targets.sessionPath, tree.Root()); err != nil {
			return err
		}
	}
	if st != nil {
		if _, err := st.Save(ctx, tree.Snapshot(), "script"); err != nil {
			return err
		}
	}
	return nil
}

func wizardStatePath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "export-wizard.json")
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printStats prints a human-readable summary of s.
func printStats(w io.Writer, s analysis.Stats) {
	fmt.Fprintln(w, "Tree statistics")
	fmt.Fprintln(w, strings.Repeat("=", len("Tree statistics")))
	fmt.Fprintf(w, "  Nodes:        %d\n", s.Nodes)
	fmt.Fprintf(w, "  Leaves:       %d\n", s.Leaves)
	fmt.Fprintf(w, "  Max depth:    %d\n", s.MaxDepth)
	fmt.Fprintf(w, "  Widest level: %d (%d nodes)\n", s.WidestLevel, s.WidestCount)
	if s.MaxFanoutID != "" {
		fmt.Fprintf(w, "  Max fanout:   %d (%s)\n", s.MaxFanout, s.MaxFanoutID)
	}
	if !s.Acyclic || !s.Connected {
		fmt.Fprintln(w, "  Warning: hierarchy is not a single tree")
	}
	if len(s.Hubs) > 0 {
		fmt.Fprintf(w, "\nHubs (%s betweenness)\n", s.BetweennessRun)
		for _, h := range s.Hubs {
			fmt.Fprintf(w, "  %-12s %8.2f  %d below\n", h.ID, h.Betweenness, h.Descendants)
		}
	}
}
