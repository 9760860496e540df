package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/search"
	"github.com/jonwraymond/fhirstore/store"
)

const shellHelp = `Enter a FHIR URL or a command:
  /Patient/p1                               read one resource
  /Observation?patient=p1&category=lab      search (also subject=, _count=)
  :patients [n]                             patient summaries
  :types                                    served resource types
  :stats                                    cache statistics
  :clear [pattern]                          drop cached entries
  :help                                     this text
  :quit                                     leave the shell
`

var errQuit = errors.New("quit")

func newShellCommand(r *runner) *cobra.Command {
	var (
		watch   bool
		cleanup time.Duration
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Answer FHIR URLs interactively with warm caches",
		Long: `Shell reads one FHIR URL or command per line and keeps the caches
between lines.

With --watch, changes to dataset files drop every cached result and, in
preloaded mode, reload the datasets.`,
		Args: cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, app *App, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)
			if watch {
				w, err := store.NewWatcher(app.Config.DataDir, app.Registry, app.Logger)
				if err != nil {
					return err
				}
				defer w.Close()
				w.OnChange(func(ctx context.Context, c store.Change) {
					app.handleChange(ctx, c)
				})
				g.Go(func() error { return w.Run(gctx) })
			}
			if cleanup > 0 {
				g.Go(func() error { return app.cleanupLoop(gctx, cleanup) })
			}

			err := (&shell{app: app, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}).loop(ctx)
			cancel()
			if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
				err = errors.Join(err, werr)
			}
			return err
		}),
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "watch the data directory for dataset changes")
	cmd.Flags().DurationVar(&cleanup, "cleanup-interval", time.Minute, "how often expired cache entries are dropped (0 disables)")
	return cmd
}

// handleChange reloads a preloaded store and drops memoized results.
func (a *App) handleChange(ctx context.Context, c store.Change) {
	a.changes.Lock()
	defer a.changes.Unlock()

	log := a.Logger.With(observe.F("dataset", c.Dataset), observe.F("op", c.Op.String()))
	if p, ok := a.Store.(*store.Preloaded); ok {
		if err := p.Reload(ctx); err != nil {
			log.Error(ctx, "reload failed, serving previous data", observe.Err(err))
			return
		}
	}
	cleared := a.Service.Invalidate(ctx)
	total := 0
	for _, n := range cleared {
		total += n
	}
	log.Info(ctx, "dataset changed, caches invalidated",
		observe.F("types", c.Types), observe.F("cleared", total))
}

func (a *App) cleanupLoop(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if n := a.Caches.CleanupExpired(); n > 0 {
				a.Logger.Debug(ctx, "expired cache entries removed", observe.F("count", n))
			}
		}
	}
}

type shell struct {
	app *App
	in  io.Reader
	out io.Writer
}

func (s *shell) loop(ctx context.Context) error {
	sc := bufio.NewScanner(s.in)
	fmt.Fprint(s.out, "fhir> ")
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			s.app.changes.RLock()
			err := s.exec(ctx, line)
			s.app.changes.RUnlock()
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		}
		fmt.Fprint(s.out, "fhir> ")
	}
	fmt.Fprintln(s.out)
	return sc.Err()
}

func (s *shell) exec(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, ":") {
		return s.fetch(ctx, line)
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return errQuit
	case ":help", ":h":
		_, err := fmt.Fprint(s.out, shellHelp)
		return err
	case ":types":
		_, err := fmt.Fprintln(s.out, strings.Join(s.app.Service.Types(), " "))
		return err
	case ":stats":
		return s.stats()
	case ":clear":
		var cleared map[string]int
		if len(fields) > 1 {
			cleared = s.app.Caches.ClearMatching(ctx, fields[1])
		} else {
			cleared = s.app.Caches.ClearAll(ctx)
		}
		return s.printCounts("cleared", cleared)
	case ":patients":
		n := 10
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("bad count %q", fields[1])
			}
			n = v
		}
		summaries, err := s.app.Service.PatientSummaries(ctx, n)
		if err != nil {
			return err
		}
		for _, p := range summaries {
			fmt.Fprintf(s.out, "%s  %s  %s  %s  obs=%d enc=%d cond=%d\n",
				p.ID, p.Name, p.Gender, p.BirthDate, p.ObservationCount, p.EncounterCount, p.ConditionCount)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %s (try :help)", fields[0])
	}
}

func (s *shell) fetch(ctx context.Context, raw string) error {
	target, err := search.ParseURL(raw)
	if err != nil {
		return err
	}
	if target.IsRead() {
		res, err := s.app.Service.Read(ctx, target.Request.ResourceType, target.ID)
		if err != nil {
			return err
		}
		return writeJSON(s.out, res)
	}
	b, err := s.app.Service.Search(ctx, target.Request)
	if err != nil {
		return err
	}
	return writeBundleSummary(s.out, b)
}

func (s *shell) stats() error {
	stats := s.app.Caches.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := stats[name]
		if _, err := fmt.Fprintf(s.out, "%-9s size=%d/%d hits=%d misses=%d evictions=%d hit_rate=%s\n",
			name, st.Size, st.Capacity, st.Hits, st.Misses, st.Evictions, st.HitRatePercent()); err != nil {
			return err
		}
	}
	return nil
}

func (s *shell) printCounts(verb string, counts map[string]int) error {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	_, err := fmt.Fprintf(s.out, "%s %s\n", verb, strings.Join(parts, " "))
	return err
}
