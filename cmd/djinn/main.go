package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lamplight-ai/djinn/pkg/analytics"
	"github.com/lamplight-ai/djinn/pkg/catalog"
	"github.com/lamplight-ai/djinn/pkg/classify"
	"github.com/lamplight-ai/djinn/pkg/config"
	"github.com/lamplight-ai/djinn/pkg/history"
	"github.com/lamplight-ai/djinn/pkg/invoke"
	"github.com/lamplight-ai/djinn/pkg/prefs"
	"github.com/lamplight-ai/djinn/pkg/probe"
	"github.com/lamplight-ai/djinn/pkg/router"
	"github.com/lamplight-ai/djinn/pkg/session"
)

var (
	verboseFlag bool
	userFlag    string
)

// configError marks failures that are configuration problems rather than
// runtime faults; they map to exit code 2.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func main() {
	rootCmd := &cobra.Command{
		Use:   "djinn",
		Short: "Query router for a local LLM runtime",
		Long: `Djinn routes each query to the best locally installed model variant:
it classifies intent and complexity, checks system capacity, applies
learned per-user preferences, and can convene a council of variants
for hard questions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "user id (defaults to DJINN_USER, then \"local\")")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(prefsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "djinn: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var cfgErr configError
	if errors.Is(err, router.ErrNoEligibleVariant) || errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verboseFlag {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// app bundles everything a command needs; close releases file handles.
type app struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	session *session.Session
	prefs   *prefs.Store
	archive *history.Archive
	tracker *analytics.Tracker
	prober  probe.Prober
	logger  zerolog.Logger
}

func newApp() (*app, func(), error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, configError{err}
	}
	if userFlag != "" {
		cfg.UserID = userFlag
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, nil, configError{fmt.Errorf("load catalog: %w", err)}
		}
	}

	store, err := prefs.Open(cfg.PrefsPath(), logger)
	if err != nil {
		return nil, nil, configError{err}
	}
	archive, err := history.Open(cfg.HistoryPath(), logger)
	if err != nil {
		return nil, nil, configError{err}
	}
	tracker, err := analytics.NewTracker(0, 0)
	if err != nil {
		archive.Close()
		return nil, nil, err
	}
	if err := tracker.Replay(archive); err != nil {
		logger.Warn().Err(err).Msg("history replay failed, starting with empty analytics")
	}

	runtime, err := newRuntime(cfg, logger)
	if err != nil {
		archive.Close()
		return nil, nil, configError{err}
	}

	prober := probe.NewSystemProbe(probe.Thresholds{
		RAMStressPct:   cfg.Probe.RAMStressPct,
		CPUStressPct:   cfg.Probe.CPUStressPct,
		HeavyTierRAMGB: cfg.Probe.HeavyTierRAMGB,
	}, logger)

	a := &app{
		cfg:     cfg,
		catalog: cat,
		prefs:   store,
		archive: archive,
		tracker: tracker,
		prober:  prober,
		logger:  logger,
	}
	a.session = session.New(session.Options{
		Catalog: cat,
		Prober:  prober,
		Prefs:   store,
		Invoker: invoke.NewInvoker(runtime,
			invoke.WithVariantTimeout(cfg.VariantTimeout),
			invoke.WithDecisionTimeout(cfg.DecisionTimeout),
			invoke.WithLogger(logger),
		),
		Archive: archive,
		Tracker: tracker,
		Logger:  logger,
	})
	return a, func() { archive.Close() }, nil
}

func newRuntime(cfg *config.Config, logger zerolog.Logger) (invoke.Runtime, error) {
	switch cfg.Runtime.Kind {
	case config.RuntimeExec:
		return invoke.NewExecRuntime(cfg.Runtime.Binary, nil, logger), nil
	case config.RuntimeHTTP:
		return invoke.NewHTTPRuntime(cfg.Runtime.BaseURL, cfg.Runtime.APIKey)
	case config.RuntimeMock:
		return invoke.NewMockRuntime(), nil
	default:
		return nil, fmt.Errorf("unknown runtime kind %q", cfg.Runtime.Kind)
	}
}

func parseTier(s string) (router.ForcedTier, error) {
	switch router.ForcedTier(s) {
	case router.TierAuto, router.TierForcedLocal, router.TierForcedHeavy:
		return router.ForcedTier(s), nil
	default:
		return "", fmt.Errorf("invalid --tier %q (want auto, local, or heavy)", s)
	}
}

func askCmd() *cobra.Command {
	var tierFlag string
	var councilFlag bool
	var chooseFlag string
	var rememberFlag bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Route a prompt and print the reply",
		Long: `Classifies the prompt, selects the best variant (or a council),
invokes the local runtime, and prints the fused reply.

Use --choose to record that you went with a different variant than the
suggestion; add --remember to make that choice the learned preference
for this task family.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := parseTier(tierFlag)
			if err != nil {
				return configError{err}
			}

			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			if chooseFlag != "" {
				if _, ok := a.catalog.Get(chooseFlag); !ok {
					return configError{fmt.Errorf("unknown variant %q", chooseFlag)}
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			reply, err := a.session.Ask(ctx, session.Request{
				Text:             args[0],
				UserID:           a.cfg.UserID,
				ForcedTier:       tier,
				CouncilRequested: councilFlag,
				ChosenVariant:    chooseFlag,
				Remember:         rememberFlag,
			})
			switch {
			case errors.Is(err, session.ErrEmptyUtterance):
				return errors.New("please provide input")
			case errors.Is(err, invoke.ErrCancelled):
				return err
			case errors.Is(err, invoke.ErrAllVariantsFailed):
				d := reply.Plan.Decision
				fmt.Fprintf(os.Stderr, "sorry, no variant could answer (understood this as %s / %s)\n",
					d.Intent, d.TaskFamily)
				return err
			case err != nil:
				return err
			}

			printRoutingLine(reply.Plan.Decision)
			fmt.Println(reply.Fusion.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&tierFlag, "tier", "auto", "force a tier (auto, local, heavy)")
	cmd.Flags().BoolVar(&councilFlag, "council", false, "convene a council of variants")
	cmd.Flags().StringVar(&chooseFlag, "choose", "", "record that you chose this variant instead")
	cmd.Flags().BoolVar(&rememberFlag, "remember", false, "remember --choose as the preference for this task family")

	return cmd
}

func printRoutingLine(d *router.Decision) {
	variant := color.New(color.FgCyan).Sprint(d.Primary())
	if d.Mode.IsCouncil() {
		variant = color.New(color.FgMagenta).Sprintf("council of %d", len(d.ChosenVariants))
	}
	fmt.Fprintf(os.Stderr, "→ %s (%s, confidence %.2f)\n", variant, d.Mode, d.Confidence)
}

func routeCmd() *cobra.Command {
	var tierFlag string
	var councilFlag bool

	cmd := &cobra.Command{
		Use:   "route [prompt]",
		Short: "Show the routing decision without invoking any model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := parseTier(tierFlag)
			if err != nil {
				return configError{err}
			}

			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			plan, err := a.session.Plan(context.Background(), session.Request{
				Text:             args[0],
				UserID:           a.cfg.UserID,
				ForcedTier:       tier,
				CouncilRequested: councilFlag,
			})
			if errors.Is(err, session.ErrEmptyUtterance) {
				return errors.New("please provide input")
			}
			if err != nil {
				return err
			}

			d := plan.Decision
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "intent\t%s (%.2f)\n", d.Intent, plan.Classification.Confidence)
			fmt.Fprintf(w, "family\t%s\n", d.TaskFamily)
			fmt.Fprintf(w, "complexity\t%.2f\n", plan.Complexity.Display)
			fmt.Fprintf(w, "mode\t%s\n", d.Mode)
			fmt.Fprintf(w, "variants\t%s\n", strings.Join(d.ChosenVariants, ", "))
			if d.Leader != "" && d.Mode.IsCouncil() {
				fmt.Fprintf(w, "leader\t%s\n", d.Leader)
			}
			if len(d.FallbackChain) > 0 {
				fmt.Fprintf(w, "fallbacks\t%s\n", strings.Join(d.FallbackChain, ", "))
			}
			fmt.Fprintf(w, "confidence\t%.2f\n", d.Confidence)
			if err := w.Flush(); err != nil {
				return err
			}
			for _, r := range d.Reasoning {
				fmt.Printf("  - %s\n", r)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tierFlag, "tier", "auto", "force a tier (auto, local, heavy)")
	cmd.Flags().BoolVar(&councilFlag, "council", false, "convene a council of variants")

	return cmd
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the model variants and their usability under current capacity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			snap, err := a.prober.Snapshot(context.Background())
			if err != nil {
				// Without a reading the heavy tier counts as blocked.
				a.logger.Warn().Err(err).Msg("probe failed, reporting heavy tier as blocked")
				snap = probe.Snapshot{}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIER\tROLE\tRAM_GB\tLATENCY\tSTATUS")
			for _, v := range a.catalog.Variants() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%d\t%s\n",
					v.ID, v.Tier, v.Role, v.RAMGB, v.LatencyClass, variantStatus(v, snap))
			}
			return w.Flush()
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show routing analytics for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			s := a.tracker.SummaryFor(a.cfg.UserID)
			if s.Entries == 0 {
				fmt.Printf("no history for user %q yet\n", a.cfg.UserID)
				return nil
			}

			fmt.Printf("user: %s (%d entries)\n", s.UserID, s.Entries)
			fmt.Printf("router accuracy: %s\n", color.New(color.FgGreen).Sprintf("%.1f%%", s.RouterAccuracy))
			if s.MostOverridden != nil {
				fmt.Printf("most overridden: %s → %s (%d times)\n",
					s.MostOverridden.Suggested, s.MostOverridden.Chosen, s.MostOverridden.Count)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nVARIANT\tUSES")
			for _, id := range sortedKeys(s.UsageByVariant) {
				fmt.Fprintf(w, "%s\t%d\n", id, s.UsageByVariant[id])
			}
			fmt.Fprintln(w, "\nFAMILY\tPREFERRED")
			for _, family := range sortedKeys(s.PreferenceByFamily) {
				fmt.Fprintf(w, "%s\t%s\n", family, s.PreferenceByFamily[family])
			}
			return w.Flush()
		},
	}
}

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show learned preferences for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			records := a.prefs.List(a.cfg.UserID)
			if len(records) == 0 {
				fmt.Printf("no preferences for user %q\n", a.cfg.UserID)
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tVARIANT\tSUPPORT\tUPDATED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					r.Family, r.VariantID, r.SupportCount, r.LastUpdated.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [family]",
		Short: "Forget the learned preference for a task family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			family := classify.TaskFamily(args[0])
			if err := a.prefs.Clear(a.cfg.UserID, family); err != nil {
				return err
			}
			fmt.Printf("cleared preference for %s\n", family)
			return nil
		},
	})

	return cmd
}

// variantStatus reports whether a variant is selectable right now. Local
// variants always are; heavy ones need the heavy-tier budget open.
func variantStatus(v catalog.Variant, snap probe.Snapshot) string {
	if v.Tier == catalog.TierHeavy && !snap.HeavyTierAllowed {
		return "blocked"
	}
	return "usable"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
