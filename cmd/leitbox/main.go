package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/leitbox/internal/assets"
	"github.com/conorfennell/leitbox/internal/config"
	"github.com/conorfennell/leitbox/internal/deck"
	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/importer"
	"github.com/conorfennell/leitbox/internal/leitner"
	"github.com/conorfennell/leitbox/internal/lifecycle"
	"github.com/conorfennell/leitbox/internal/reminder"
	"github.com/conorfennell/leitbox/internal/session"
	"github.com/conorfennell/leitbox/internal/stats"
	"github.com/conorfennell/leitbox/internal/storage"
	"github.com/conorfennell/leitbox/internal/web"
)

const usage = `usage: leitbox <command> [flags]

commands:
  serve                             run the HTTP API
  due                               print how many cards are due today
  add --recto TEXT --verso TEXT     add a card (text or http(s) image URL per face)
  import <dir|git-url|file.xlsx>    import cards
  export <file.xlsx>                export all cards
  stats                             print collection statistics
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("leitbox failed", "error", err)
		os.Exit(1)
	}
}

// app holds the wired services for one command.
type app struct {
	cfg      *config.Config
	repo     storage.Repository
	images   *assets.Store
	sessions *session.Store
	deck     *deck.Service
	importer *importer.Importer
}

func newApp(cfg *config.Config) (*app, error) {
	repo, err := storage.Open(cfg.Repository())
	if err != nil {
		return nil, fmt.Errorf("failed to open card store: %w", err)
	}
	images, err := assets.NewStore(cfg.ImageDir)
	if err != nil {
		repo.Close()
		return nil, err
	}
	sessions, err := session.NewStore(cfg.SessionDir)
	if err != nil {
		repo.Close()
		return nil, err
	}
	cards := lifecycle.NewManager(cfg.MaxBox, images)
	sched := &leitner.Params{MaxBox: cfg.MaxBox}
	return &app{
		cfg:      cfg,
		repo:     repo,
		images:   images,
		sessions: sessions,
		deck:     deck.NewService(repo, sched, cards, images),
		importer: importer.New(repo, cards, images, cfg.ReposDir),
	}, nil
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(out, usage)
		return nil
	}
	name, args := args[0], args[1:]

	flags := config.NewFlagSet(name)
	flags.SetOutput(out)
	var cmd func(a *app, flags *pflag.FlagSet, out io.Writer) error
	switch name {
	case "serve":
		cmd = serve
	case "due":
		cmd = due
	case "add":
		flags.String("recto", "", "question side")
		flags.String("verso", "", "answer side")
		flags.Int("box", 1, "initial box")
		cmd = add
	case "import":
		flags.Int("box", 1, "initial box of imported cards")
		cmd = importCards
	case "export":
		cmd = export
	case "stats":
		cmd = printStats
	default:
		return fmt.Errorf("unknown command %q\n%s", name, usage)
	}

	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(cfg.Log.Handler(os.Stderr)))

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.repo.Close()
	return cmd(a, flags, out)
}

func serve(a *app, _ *pflag.FlagSet, _ io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Reminder.Enabled {
		r, err := reminder.New(a.cfg.Reminder.At, a.deck, a.sessions)
		if err != nil {
			return err
		}
		r.Start()
		defer r.Stop()
	}

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           web.NewServer(a.deck, a.sessions, a.images),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", a.cfg.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func due(a *app, _ *pflag.FlagSet, out io.Writer) error {
	dueCount, marked, err := a.deck.Counts()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d cards due today, %d marked.\n", dueCount, marked)
	return nil
}

func add(a *app, flags *pflag.FlagSet, out io.Writer) error {
	recto, _ := flags.GetString("recto")
	verso, _ := flags.GetString("verso")
	box, _ := flags.GetInt("box")

	card, err := a.deck.Create(faceArg(recto), faceArg(verso), box)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added card %s in box %d, next review %s.\n", card.ID, card.Box, card.NextReviewDate)
	return nil
}

func faceArg(v string) deck.FaceForm {
	if domain.IsRemoteRef(v) {
		return deck.FaceForm{URL: v}
	}
	return deck.FaceForm{Text: v}
}

func importCards(a *app, flags *pflag.FlagSet, out io.Writer) error {
	if flags.NArg() != 1 {
		return fmt.Errorf("import needs exactly one source\n%s", usage)
	}
	box, _ := flags.GetInt("box")

	report, err := a.importer.Import(flags.Arg(0), box)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Added %d cards, skipped %d duplicates, %d errors.\n", report.Added, report.Skipped, len(report.Errors))
	if len(report.Errors) > 0 {
		fmt.Fprintln(out, "\nErrors:")
		for _, e := range report.Errors {
			fmt.Fprintf(out, "- %s\n", e)
		}
	}
	return nil
}

func export(a *app, flags *pflag.FlagSet, out io.Writer) error {
	if flags.NArg() != 1 {
		return fmt.Errorf("export needs exactly one target file\n%s", usage)
	}
	cards, err := a.deck.All()
	if err != nil {
		return err
	}
	f, err := os.Create(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", flags.Arg(0), err)
	}
	if err := importer.ExportWorkbook(cards, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d cards to %s.\n", len(cards), flags.Arg(0))
	return nil
}

func printStats(a *app, _ *pflag.FlagSet, out io.Writer) error {
	cards, err := a.deck.All()
	if err != nil {
		return err
	}
	s := stats.Compute(cards, a.deck.MaxBox(), a.deck.Today())

	fmt.Fprintf(out, "Cards:      %d\n", s.Total)
	fmt.Fprintf(out, "Due today:  %d\n", s.DueToday)
	fmt.Fprintf(out, "Marked:     %d\n", s.Marked)
	fmt.Fprintf(out, "Mastery:    %.1f%%\n", s.Mastery)
	fmt.Fprintf(out, "Long term:  %.1f%%\n", s.LongTermRatio)
	if len(s.Boxes) > 0 {
		fmt.Fprintln(out, "\nBoxes:")
		for _, b := range s.Boxes {
			fmt.Fprintf(out, "  %3d  %d\n", b.Box, b.Count)
		}
	}
	return nil
}
