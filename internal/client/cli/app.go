package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/keepsearch/internal/client/config"
	"github.com/dmitrijs2005/keepsearch/internal/client/credstore"
	"github.com/dmitrijs2005/keepsearch/internal/client/desktop"
	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/client/services"
	"github.com/dmitrijs2005/keepsearch/internal/client/session"
	"github.com/dmitrijs2005/keepsearch/internal/keepassxc"
	"github.com/dmitrijs2005/keepsearch/internal/logging"
)

// Clipboard receives copied entry fields.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// sessionControl is the part of *session.Manager the REPL drives directly.
type sessionControl interface {
	Lock(ctx context.Context)
	Status() session.Status
}

// copyFields maps the names accepted by "copy" to entry fields.
var copyFields = map[string]func(models.Entry) models.Field{
	"password": func(e models.Entry) models.Field { return e.Password },
	"username": func(e models.Entry) models.Field { return e.Username },
	"url":      func(e models.Entry) models.Field { return e.URL },
	"notes":    func(e models.Entry) models.Field { return e.Notes },
	"title":    func(e models.Entry) models.Field { return models.NewField(e.Title) },
}

type App struct {
	session   sessionControl
	search    services.SearchService
	clipboard Clipboard
	reader    *bufio.Reader
	out       io.Writer
	logger    logging.Logger
	now       func() time.Time

	// last holds the most recent search results, so entries can be referred
	// to by their number.
	last []models.Entry
}

// NewApp wires the oracle, credential store, session and search service for
// cfg. Prompts and results use in and out.
func NewApp(cfg *config.Config, logger logging.Logger, in io.Reader, out io.Writer) *App {
	reader := bufio.NewReader(in)

	oracle := keepassxc.NewCLI(cfg.CLIPath, cfg.CommandTimeout, logger)
	store := credstore.New(nil)

	var mgr *session.Manager
	prompter := NewTermPrompter(reader, out, func() models.DatabaseTarget { return mgr.Target() })
	mgr = session.NewManager(oracle, store, prompter, desktop.NewWindowRaiser(logger), logger, session.Config{
		Target:            models.DatabaseTarget{Path: cfg.DatabasePath, KeyFilePath: cfg.KeyFilePath},
		InactivityTimeout: cfg.InactivityTimeout,
		WindowHint:        cfg.WindowHint,
	})

	return &App{
		session:   mgr,
		search:    services.NewSearchService(mgr, cfg.MaxResults, logger),
		clipboard: desktop.NewClipboard(logger),
		reader:    reader,
		out:       out,
		logger:    logger,
		now:       time.Now,
	}
}

// Run starts the REPL and blocks until the user exits or input ends. The
// session is locked on the way out.
func (a *App) Run(ctx context.Context) {
	defer a.session.Lock(ctx)

	fmt.Fprintln(a.out, "Welcome to keepsearch (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) getStatus() string {
	return "(" + a.session.Status().State.String() + ")"
}

// report prints the user-facing message for err and returns err unchanged.
func (a *App) report(ctx context.Context, op string, err error) error {
	a.logger.Debug(ctx, "command failed", "command", op, "error", err)
	fmt.Fprintln(a.out, UserMessage(err))
	return err
}

// resolve turns a result number from the last search into its path. Anything
// else is taken as a path.
func (a *App) resolve(ref string) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(a.last) {
		return a.last[n-1].Path
	}
	return ref
}

func (a *App) Search(ctx context.Context, query string) error {
	res, err := a.search.Search(ctx, query)
	if err != nil {
		return a.report(ctx, "search", err)
	}
	a.last = res.Entries
	printResults(a.out, res)
	return nil
}

func (a *App) Show(ctx context.Context, ref string) error {
	if ref == "" {
		fmt.Fprintln(a.out, "Usage: show <number|path>")
		return nil
	}
	e, err := a.search.GetEntryDetail(ctx, a.resolve(ref))
	if err != nil {
		return a.report(ctx, "show", err)
	}
	printEntry(a.out, e)
	return nil
}

func (a *App) Copy(ctx context.Context, ref, field string) error {
	if ref == "" {
		fmt.Fprintln(a.out, "Usage: copy <number|path> [password|username|url|notes|title]")
		return nil
	}
	if field == "" {
		field = "password"
	}
	get, ok := copyFields[field]
	if !ok {
		fmt.Fprintln(a.out, "Unknown field:", field)
		return nil
	}

	e, err := a.search.GetEntryDetail(ctx, a.resolve(ref))
	if err != nil {
		return a.report(ctx, "copy", err)
	}
	f := get(e)
	if !f.Valid {
		fmt.Fprintf(a.out, "%s has no %s\n", e.Title, field)
		return nil
	}
	if err := a.clipboard.Copy(ctx, f.Value); err != nil {
		a.logger.Warn(ctx, "clipboard write failed", "error", err)
		fmt.Fprintln(a.out, "Could not write to the clipboard. Install wl-copy, xclip or xsel.")
		return err
	}
	fmt.Fprintf(a.out, "Copied %s of %s to the clipboard\n", field, e.Title)
	return nil
}

func (a *App) Lock(ctx context.Context) error {
	a.session.Lock(ctx)
	a.last = nil
	fmt.Fprintln(a.out, "Database locked")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	printStatus(a.out, a.session.Status(), a.now())
	return nil
}

// splitCopyArgs separates an optional trailing field name from the entry
// reference, which may itself contain spaces.
func splitCopyArgs(rest string) (ref, field string) {
	parts := strings.Fields(rest)
	if len(parts) > 1 {
		last := strings.ToLower(parts[len(parts)-1])
		if _, ok := copyFields[last]; ok {
			i := strings.LastIndex(rest, parts[len(parts)-1])
			return strings.TrimSpace(rest[:i]), last
		}
	}
	return strings.TrimSpace(rest), ""
}
