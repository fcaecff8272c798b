package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-systems/floorsense/pkg/adapter"
	"github.com/atlas-systems/floorsense/pkg/config"
	"github.com/atlas-systems/floorsense/pkg/dispatch"
	"github.com/atlas-systems/floorsense/pkg/grounding"
	"github.com/atlas-systems/floorsense/pkg/planner"
	"github.com/atlas-systems/floorsense/pkg/router"
	"github.com/atlas-systems/floorsense/pkg/store"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "floorsense",
		Short: "Ask questions about building occupancy data in plain language",
		Long: `Floorsense answers natural-language questions about building occupancy
	sensor data. Deterministic matchers handle the common questions, a safety
	gate vets every piece of SQL, and an optional language model picks up the
	long tail.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(groundCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds everything a command needs.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	router     *router.Router
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func buildApp() (*app, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d, err := dispatch.New(st, log.Named("dispatch"))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building dispatcher: %w", err)
	}

	var opts []router.Option
	opts = append(opts, router.WithLogger(log.Named("router")))
	if pack, err := grounding.Load(cfg.GroundingPath); err == nil {
		opts = append(opts, router.WithGrounding(pack))
	}

	r := router.New(cfg.Pipeline, st, d, opts...)

	if cfg.Pipeline.LLMRouting {
		if ad, err := newAdapter(cfg); err == nil {
			r.AttachPlanner(planner.New(ad, r.Gate(),
				planner.WithModel(cfg.LLM.Model),
				planner.WithTemperature(cfg.Pipeline.Temperature),
				planner.WithLogger(log.Named("planner")),
			))
		} else {
			log.Info("language-model routing unavailable", zap.Error(err))
		}
	}

	return &app{cfg: cfg, log: log, store: st, dispatcher: d, router: r}, nil
}

func newAdapter(cfg *config.Config) (adapter.Adapter, error) {
	apiKey := ""
	switch cfg.LLM.Adapter {
	case "openai":
		apiKey = cfg.OpenAIAPIKey
	case "anthropic":
		apiKey = cfg.AnthropicAPIKey
	case "google":
		apiKey = cfg.GoogleAPIKey
	}
	return adapter.New(adapter.Config{
		Provider: cfg.LLM.Adapter,
		APIKey:   apiKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	return logCfg.Build()
}

func askCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question about the occupancy data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			ans, err := a.router.Answer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(ans)
			}
			printAnswer(ans)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full answer as JSON")
	return cmd
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive question loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Println("floorsense repl, type 'exit' to leave")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}
				ans, err := a.router.Answer(cmd.Context(), line)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				printAnswer(ans)
			}
			return scanner.Err()
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [spaces.csv] [events.csv...]",
		Short: "Ingest a spaces export and event exports, then refresh grounding",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.store.LoadCSV(args[0], args[1:]...)
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d spaces (%d skipped), %d events\n",
				stats.Spaces, stats.SkippedSpaces, stats.Events)

			pack, err := grounding.Build(a.store)
			if err != nil {
				return fmt.Errorf("rebuilding grounding pack: %w", err)
			}
			if err := pack.Save(a.cfg.GroundingPath); err != nil {
				return err
			}
			fmt.Printf("grounding pack written to %s\n", a.cfg.GroundingPath)
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, def := range a.dispatcher.Tools() {
				fmt.Fprintf(w, "%s\t%s\n", def.Name, def.Description)
			}
			return w.Flush()
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes [question]",
		Short: "Show the routing decision for a question without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			d, err := a.router.Infer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(d)
		},
	}
}

func groundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ground",
		Short: "Rebuild the grounding pack from the loaded dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			pack, err := grounding.Build(a.store)
			if err != nil {
				return err
			}
			if err := pack.Save(a.cfg.GroundingPath); err != nil {
				return err
			}
			fmt.Printf("grounding pack written to %s\n", a.cfg.GroundingPath)
			return nil
		},
	}
}

func printAnswer(ans *router.Answer) {
	if ans.Title != "" {
		fmt.Println(ans.Title)
	}
	if ans.Text != "" {
		fmt.Println(ans.Text)
	}
	if ans.Table != nil && len(ans.Table.Rows) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, strings.Join(ans.Table.Columns, "\t"))
		for _, row := range ans.Table.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprint(v)
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		w.Flush()
	}
	for i, s := range ans.Suggestions {
		fmt.Printf("%d. floor %d zone %s (score %.1f): %s\n", i+1, s.Floor, s.Zone, s.Score, s.Rationale)
	}
	if ans.Evidence != nil {
		fmt.Printf("evidence: %s\n", ans.Evidence.ID)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
