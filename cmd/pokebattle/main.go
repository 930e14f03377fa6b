package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/tatianab/pokebattle/internal/config"
	"github.com/tatianab/pokebattle/internal/engine"
	"github.com/tatianab/pokebattle/internal/logging"
	"github.com/tatianab/pokebattle/internal/narrator"
	"github.com/tatianab/pokebattle/internal/pokeapi"
	"github.com/tatianab/pokebattle/internal/session"
	"github.com/tatianab/pokebattle/internal/storage"
	"github.com/tatianab/pokebattle/internal/tui"
	"github.com/tatianab/pokebattle/internal/typechart"
)

const defaultTab = "default"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage:
  pokebattle [flags]                       open the battle screen
  pokebattle [flags] queue <A|B> <name|id|random>
  pokebattle [flags] slots [clear]
  pokebattle [flags] roster add|rm|has <name|id>
  pokebattle [flags] roster ls
  pokebattle [flags] roster queue <A|B> <id>
  pokebattle [flags] dex list [limit] [offset]
  pokebattle [flags] dex show <name|id>
  pokebattle [flags] tabs

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./"+config.DefaultFile+" if present)")
	tab := flag.String("tab", defaultTab, "battle tab to open or queue into")
	newTab := flag.Bool("new-tab", false, "start a fresh tab with a generated id")
	flag.Usage = usage
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *newTab {
		*tab = uuid.NewString()
	}

	app, err := newApp(cfg, *tab)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		if err := app.run(ctx, flag.Args()); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := app.battle(ctx); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Resume this battle with: pokebattle -tab %s\n", app.tab)
}

type app struct {
	cfg    *config.Config
	tab    string
	client *pokeapi.Client
	store  *storage.FileStore
}

func newApp(cfg *config.Config, tab string) (*app, error) {
	store, err := storage.NewFileStore(cfg.SaveDir, tab)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		tab:    tab,
		client: pokeapi.NewClient(cfg.APIURL, pokeapi.WithTimeout(cfg.HTTPTimeout)),
		store:  store,
	}, nil
}

func (a *app) battle(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.SaveDir, 0755); err != nil {
		return err
	}
	// The screen owns stdout; logs go to a file.
	f, err := tea.LogToFile(a.cfg.LogFile, "")
	if err != nil {
		return err
	}
	defer f.Close()

	adapter := session.NewAdapter(a.store).WithDefaultInputs(a.cfg.DefaultA, a.cfg.DefaultB)
	b := engine.New(nil, a.client, typechart.NewResolver(a.client),
		engine.WithZeroDamagePolicy(a.cfg.Policy()),
		engine.WithObserver(adapter.Observer()),
	)

	opts := tui.Options{TurnDelay: a.cfg.TurnDelay}
	if a.cfg.NarrationEnabled() {
		n, err := narrator.New(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			logging.Warn("narration disabled", err, nil)
		} else {
			defer n.Close()
			opts.Narrator = n
		}
	}

	logging.Info("battle screen started", logging.Fields{
		"tab":         a.tab,
		"api":         a.cfg.APIURL,
		"zero_damage": a.cfg.Policy().String(),
	})
	return tui.Run(b, adapter, opts)
}
