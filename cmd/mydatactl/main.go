// mydatactl — консольный клиент MyData: вход по OTP, профиль, дашборд,
// алерты, анализ политик и согласия.
//
//	mydatactl [--config path] <command> [flags]
//
// Результат печатается в stdout как JSON. При ошибке в stderr выводится
// одна строка сообщения, код выхода 1; ошибка в аргументах — код 2.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mydata-ng/privacy-client/internal/alerts"
	"github.com/mydata-ng/privacy-client/internal/api"
	"github.com/mydata-ng/privacy-client/internal/client"
	"github.com/mydata-ng/privacy-client/internal/config"
	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/flow"
	"github.com/mydata-ng/privacy-client/internal/metrics"
	logctx "github.com/mydata-ng/privacy-client/internal/pkg/log"
	"github.com/mydata-ng/privacy-client/internal/session"
	"github.com/mydata-ng/privacy-client/internal/telemetry"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage — ошибка в аргументах командной строки.
var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// app — зависимости одной команды.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	store session.Store
	sess  *session.Session
	api   *api.Clients
	flow  *flow.Flow
	board *alerts.Board

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mydatactl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if fs.NArg() == 0 {
		usage(stderr)
		return exitUsage
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		usage(stderr)
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	log := setupLogger(cfg.Env, stderr)
	slog.SetDefault(log)
	ctx = logctx.With(logctx.Into(ctx, log), slog.String("command", name))

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Warn("telemetry_init_failed", slog.String("err", err.Error()))
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn("telemetry_shutdown_failed", slog.String("err", err.Error()))
		}
	}()

	store, err := openStore(ctx, cfg.Session)
	if err != nil {
		log.Error("session_store_init_failed", slog.String("err", err.Error()))
		fmt.Fprintln(stderr, apierrors.Message(err))
		return exitError
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("session_store_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	reg := prometheus.NewRegistry()
	sess := session.New(store)

	c, err := client.New(client.Options{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Tokens:    sess,
		Logger:    log,
		Metrics:   metrics.NewClient(reg),
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	clients := api.New(c)
	a := &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		sess:   sess,
		api:    clients,
		flow:   flow.New(clients.Auth, sess),
		board:  alerts.NewBoard(clients.Dashboard, clients.Alerts),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	err = cmd.run(ctx, a, rest)
	a.board.Wait()

	if perr := metrics.Push(context.WithoutCancel(ctx), cfg.Metrics.PushURL, cfg.Metrics.Job, reg); perr != nil {
		log.Warn("metrics_push_failed", slog.String("err", perr.Error()))
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return exitUsage
	default:
		log.Debug("command_failed",
			slog.String("command", name),
			slog.Bool("local", apierrors.IsLocal(err)),
			slog.String("err", err.Error()),
		)
		fmt.Fprintln(stderr, apierrors.Message(err))
		return exitError
	}
}

// openStore выбирает хранилище сессии по конфигурации.
func openStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), nil
	case config.SessionBackendRedis:
		return session.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	default:
		path, err := cfg.FilePath()
		if err != nil {
			return nil, err
		}
		return session.NewFileStore(path)
	}
}

func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
