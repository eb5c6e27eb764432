package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/livreur-console/internal/catalog"
	"github.com/mmeshcher/livreur-console/internal/config"
	"github.com/mmeshcher/livreur-console/internal/dashboard"
	"github.com/mmeshcher/livreur-console/internal/handler"
	"github.com/mmeshcher/livreur-console/internal/livreur"
	"github.com/mmeshcher/livreur-console/internal/model"
	"github.com/mmeshcher/livreur-console/internal/scanner"
	"github.com/mmeshcher/livreur-console/internal/storage"
	"github.com/mmeshcher/livreur-console/internal/theme"
	"github.com/mmeshcher/livreur-console/internal/ui"
)

const usage = `usage: livreur [global flags] <command> [flags]

commands:
  dashboard                         сводка, доступность и заказы
  orders [--status S] [--limit N]   текущие заказы
  scan [--manual CODE]              поиск заказа камерой или по коду
  lookup CODE                       поиск заказа по коду
  status ORDER_ID STATUS [--reason R] [--details D]
  history [--page N] [--limit N] [--status S] [--from YYYY-MM-DD] [--to YYYY-MM-DD]
  availability                      переключить доступность
  theme [NAME] [--dark]             палитра и тёмный режим
  categories                        категории каталога
  token TOKEN                       сохранить токен курьера
  serve                             локальный HTTP-сервер консоли`

// scanPollInterval задаёт частоту опроса состояния сканера в команде scan.
const scanPollInterval = 100 * time.Millisecond

var errUsage = errors.New(usage)

// app связывает зависимости команд.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer

	store  storage.Store
	api    *livreur.Client
	styles *ui.Styles
	themes *theme.Store

	newCamera func() scanner.Camera
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (*app, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a, err := newAppWithStore(ctx, cfg, store, logger, out)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func newAppWithStore(ctx context.Context, cfg *config.Config, store storage.Store, logger *zap.Logger, out io.Writer) (*app, error) {
	tokens := livreur.TokenFunc(func(ctx context.Context) (string, error) {
		token, _, err := store.Get(ctx, storage.KeyToken)
		return token, err
	})

	styles := ui.NewStyles()
	themes := theme.NewStore(store, styles)
	if err := themes.Load(ctx); err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}

	args := cfg.ScannerArgs()

	return &app{
		cfg:    cfg,
		logger: logger,
		out:    out,
		store:  store,
		api: livreur.NewClient(cfg.APIURL, tokens,
			livreur.WithTimeout(cfg.RequestTimeout),
			livreur.WithLogger(logger),
		),
		styles: styles,
		themes: themes,
		newCamera: func() scanner.Camera {
			return scanner.NewExecCamera(args)
		},
	}, nil
}

// openStore выбирает хранилище настроек: общую базу, если она задана,
// иначе локальный файл.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURI != "" {
		store, err := storage.NewPostgresStore(cfg.DatabaseURI)
		if err != nil {
			return nil, fmt.Errorf("database initialization error: %w", err)
		}
		return store, nil
	}
	store, err := storage.NewFileStore(cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("state file error: %w", err)
	}
	return store, nil
}

func (a *app) close() error {
	return a.store.Close()
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.dashboard(ctx)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "dashboard":
		return a.dashboard(ctx)
	case "orders":
		return a.orders(ctx, rest)
	case "scan":
		return a.scan(ctx, rest)
	case "lookup":
		if len(rest) != 1 {
			return errUsage
		}
		return a.lookup(ctx, rest[0])
	case "status":
		return a.status(ctx, rest)
	case "history":
		return a.history(ctx, rest)
	case "availability":
		return a.availability(ctx)
	case "theme":
		return a.theme(ctx, rest)
	case "categories":
		return a.categories(ctx)
	case "token":
		if len(rest) != 1 {
			return errUsage
		}
		return a.token(ctx, rest[0])
	case "serve":
		return a.serve(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) newDashboard(camera scanner.Camera) *dashboard.Dashboard {
	return dashboard.New(a.api, camera, a.logger)
}

func (a *app) print(blocks ...string) {
	for _, b := range blocks {
		if b != "" {
			fmt.Fprintln(a.out, b)
		}
	}
}

func (a *app) dashboard(ctx context.Context) error {
	d := a.newDashboard(nil)
	defer d.Close()

	err := d.Load(ctx)
	a.print(a.styles.Dashboard(d.Snapshot()), a.styles.Toasts(d.TakeToasts()))
	return err
}

func (a *app) orders(ctx context.Context, args []string) error {
	fs := newFlagSet("orders")
	status := fs.String("status", "", "order status filter")
	limit := fs.Int("limit", 0, "maximum number of orders")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	f := livreur.OrderFilter{Status: model.OrderStatus(*status), Limit: *limit}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("unknown status %q", *status)
	}

	orders, err := a.api.GetMyOrders(ctx, f)
	if err != nil {
		return err
	}
	a.print(a.styles.Orders(orders))
	return nil
}

func (a *app) scan(ctx context.Context, args []string) error {
	fs := newFlagSet("scan")
	manual := fs.String("manual", "", "delivery code typed by hand")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.Changed("manual") {
		return a.lookup(ctx, *manual)
	}

	d := a.newDashboard(a.newCamera())
	defer d.Close()

	if err := d.OpenScanner(ctx); err != nil {
		a.print(a.styles.Dashboard(d.Snapshot()))
		return err
	}

	err := waitForScan(ctx, d)
	a.printLookup(d)
	return err
}

// waitForScan ждёт, пока камера найдёт код и поиск заказа завершится.
func waitForScan(ctx context.Context, d *dashboard.Dashboard) error {
	ticker := time.NewTicker(scanPollInterval)
	defer ticker.Stop()

	for {
		st := d.Snapshot()
		switch {
		case st.Detail != nil:
			return nil
		case st.Scanner.Session == scanner.StateFailed:
			return fmt.Errorf("%w: %s", scanner.ErrCameraUnavailable, st.Scanner.CameraError)
		case st.Scanner.LookupError != "":
			return errors.New(st.Scanner.LookupError)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *app) lookup(ctx context.Context, code string) error {
	d := a.newDashboard(nil)
	defer d.Close()

	if err := d.OpenManualEntry(); err != nil {
		return err
	}
	err := d.SubmitManualCode(ctx, code)
	a.printLookup(d)
	return err
}

func (a *app) printLookup(d *dashboard.Dashboard) {
	st := d.Snapshot()
	if st.Detail != nil {
		a.print(a.styles.Order(*st.Detail))
	}
	a.print(a.styles.Toasts(d.TakeToasts()))
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := newFlagSet("status")
	reason := fs.String("reason", "", "refusal reason")
	details := fs.String("details", "", "refusal details")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() != 2 {
		return errUsage
	}
	orderID, to := fs.Arg(0), model.OrderStatus(fs.Arg(1))
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", to)
	}

	d := a.newDashboard(nil)
	defer d.Close()

	if err := d.Load(ctx); err != nil {
		a.print(a.styles.Toasts(d.TakeToasts()))
		return err
	}
	if err := d.OpenOrder(orderID); err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	if *reason != "" {
		if err := d.SetRefusal(model.RefusalReason(*reason), *details); err != nil {
			return err
		}
	}

	err := d.UpdateStatus(ctx, to)
	a.print(a.styles.Toasts(d.TakeToasts()))
	return err
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := newFlagSet("history")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	status := fs.String("status", "", "status filter")
	from := fs.String("from", "", "start date, YYYY-MM-DD")
	to := fs.String("to", "", "end date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	f := livreur.HistoryFilter{Page: *page, Limit: *limit, Status: model.OrderStatus(*status)}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("unknown status %q", *status)
	}
	var err error
	if f.From, err = parseDate(*from); err != nil {
		return err
	}
	if f.To, err = parseDate(*to); err != nil {
		return err
	}

	d := a.newDashboard(nil)
	defer d.Close()

	hp, err := d.History(ctx, f)
	if err != nil {
		a.print(a.styles.Toasts(d.TakeToasts()))
		return err
	}
	a.print(a.styles.History(hp))
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func (a *app) availability(ctx context.Context) error {
	d := a.newDashboard(nil)
	defer d.Close()

	if err := d.Load(ctx); err != nil {
		a.print(a.styles.Toasts(d.TakeToasts()))
		return err
	}
	d.TakeToasts()

	err := d.ToggleAvailability(ctx)
	a.print(a.styles.Toasts(d.TakeToasts()))
	return err
}

func (a *app) theme(ctx context.Context, args []string) error {
	fs := newFlagSet("theme")
	dark := fs.Bool("dark", false, "toggle dark mode")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if name := strings.TrimSpace(fs.Arg(0)); name != "" {
		if err := a.themes.ChangeTheme(ctx, name); err != nil {
			return err
		}
	}
	if *dark {
		if _, err := a.themes.ToggleDarkMode(ctx); err != nil {
			return err
		}
	}
	a.print(a.styles.Theme(a.themes.Selection()))
	return nil
}

func (a *app) categories(ctx context.Context) error {
	categories, err := catalog.NewClient(a.api).GetCategories(ctx)
	if err != nil {
		return err
	}
	a.print(a.styles.Cards(catalog.NewCards(categories)))
	return nil
}

func (a *app) token(ctx context.Context, token string) error {
	if err := a.store.Set(ctx, storage.KeyToken, strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	a.print("Jeton enregistré")
	return nil
}

func (a *app) serve(ctx context.Context) error {
	sugar := a.logger.Sugar()

	camera := scanner.NewPushCamera()
	d := a.newDashboard(camera)
	defer d.Close()

	if err := d.Load(ctx); err != nil {
		sugar.Warnw("initial dashboard load failed", "error", err.Error())
	}

	h := handler.NewHandler(d, a.themes, catalog.NewClient(a.api), camera, a.logger)

	server := &http.Server{
		Addr:    a.cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting livreur console", "addr", a.cfg.RunAddress, "api", a.cfg.APIURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down console...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("console stopped gracefully")
		return nil
	})

	return g.Wait()
}
