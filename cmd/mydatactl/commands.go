package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mydata-ng/privacy-client/internal/consent"
	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
	"github.com/mydata-ng/privacy-client/internal/policy"
	"github.com/mydata-ng/privacy-client/internal/report"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"register":        {"create an account and send an OTP", cmdRegister},
	"login":           {"check credentials and send an OTP", cmdLogin},
	"verify-otp":      {"finish login with the one-time code", cmdVerifyOTP},
	"passwordless":    {"send a login link by email", cmdPasswordless},
	"forgot-password": {"send a password reset link", cmdForgotPassword},
	"reset-password":  {"set a new password with a reset token", cmdResetPassword},
	"logout":          {"end the session", cmdLogout},
	"status":          {"show the local session state", cmdStatus},
	"profile":         {"show the signed-in user", cmdProfile},
	"update-profile":  {"change profile fields", cmdUpdateProfile},
	"permissions":     {"list granted permissions", cmdPermissions},
	"access-logs":     {"list data access logs", cmdAccessLogs},
	"dashboard":       {"show dashboard data", cmdDashboard},
	"alerts":          {"list active access alerts", cmdAlerts},
	"ack-alert":       {"acknowledge an access alert", cmdAckAlert},
	"watch-alerts":    {"poll alerts until interrupted", cmdWatchAlerts},
	"analyze-policy":  {"score a privacy policy against NDPR", cmdAnalyzePolicy},
	"consent":         {"answer an organization's data request", cmdConsent},
	"consent-summary": {"show a data request in plain language", cmdConsentSummary},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: mydatactl [--config path] <command> [flags]")
	fmt.Fprintln(w, "\ncommands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
}

// flags создаёт набор флагов подкоманды; ошибки разбора печатаются в stderr.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}

	return nil
}

// print выводит v в stdout как JSON с отступом.
func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

type verifyOutput struct {
	SentTo string      `json:"sentTo,omitempty"`
	Name   string      `json:"name"`
	User   models.User `json:"user"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	var req models.RegisterRequest

	fs := a.flags("register")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Phone, "phone", "", "phone number")
	fs.StringVar(&req.Password, "password", "", "password")
	role := fs.String("role", string(models.RoleUser), "user or organization")
	fs.StringVar(&req.FirstName, "first-name", "", "first name (role user)")
	fs.StringVar(&req.LastName, "last-name", "", "last name (role user)")
	fs.StringVar(&req.OrganizationName, "org-name", "", "organization name (role organization)")
	if err := parse(fs, args); err != nil {
		return err
	}
	req.Role = models.Role(*role)

	res, err := a.flow.Register(ctx, req)
	if err != nil {
		return err
	}

	return a.print(res)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	var req models.LoginRequest

	fs := a.flags("login")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Password, "password", "", "password")
	role := fs.String("role", string(models.RoleUser), "user or organization")
	if err := parse(fs, args); err != nil {
		return err
	}
	req.Role = models.Role(*role)

	res, err := a.flow.Login(ctx, req)
	if err != nil {
		return err
	}

	return a.print(res)
}

func cmdVerifyOTP(ctx context.Context, a *app, args []string) error {
	fs := a.flags("verify-otp")
	otp := fs.String("otp", "", "one-time code")
	if err := parse(fs, args); err != nil {
		return err
	}

	// Маркер удаляется при успешной проверке, адрес читается заранее.
	email, _, err := a.flow.PendingEmail(ctx)
	if err != nil {
		return err
	}

	user, err := a.flow.VerifyOTP(ctx, *otp)
	if err != nil {
		return err
	}

	return a.print(verifyOutput{SentTo: email, Name: user.DisplayName(), User: user})
}

func cmdPasswordless(ctx context.Context, a *app, args []string) error {
	fs := a.flags("passwordless")
	email := fs.String("email", "", "email address")
	if err := parse(fs, args); err != nil {
		return err
	}

	msg, err := a.flow.PasswordlessLogin(ctx, *email)
	if err != nil {
		return err
	}

	return a.print(messageOutput{Message: msg})
}

func cmdForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flags("forgot-password")
	email := fs.String("email", "", "email address")
	if err := parse(fs, args); err != nil {
		return err
	}

	msg, err := a.flow.ForgotPassword(ctx, *email)
	if err != nil {
		return err
	}

	return a.print(messageOutput{Message: msg})
}

func cmdResetPassword(ctx context.Context, a *app, args []string) error {
	var req models.ResetPasswordRequest

	fs := a.flags("reset-password")
	fs.StringVar(&req.Token, "token", "", "reset token from the email link")
	fs.StringVar(&req.Password, "password", "", "new password")
	fs.StringVar(&req.ConfirmPassword, "confirm", "", "new password again")
	if err := parse(fs, args); err != nil {
		return err
	}

	msg, err := a.flow.ResetPassword(ctx, req)
	if err != nil {
		return err
	}

	return a.print(messageOutput{Message: msg})
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("logout"), args); err != nil {
		return err
	}

	if err := a.flow.Logout(ctx); err != nil {
		return err
	}

	return a.print(messageOutput{Message: "Logged out"})
}

func cmdStatus(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("status"), args); err != nil {
		return err
	}

	st, err := a.sess.Status(ctx)
	if err != nil {
		return err
	}

	return a.print(st)
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("profile"), args); err != nil {
		return err
	}

	env, err := a.api.Users.GetProfile(ctx)
	if err != nil {
		return err
	}

	return a.print(env.Data)
}

func cmdUpdateProfile(ctx context.Context, a *app, args []string) error {
	var req models.UpdateProfileRequest

	fs := a.flags("update-profile")
	fs.StringVar(&req.Phone, "phone", "", "phone number")
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	fs.StringVar(&req.OrganizationName, "org-name", "", "organization name")
	if err := parse(fs, args); err != nil {
		return err
	}

	if req == (models.UpdateProfileRequest{}) {
		fmt.Fprintln(fs.Output(), "nothing to update")
		return errUsage
	}

	env, err := a.api.Users.UpdateProfile(ctx, req)
	if err != nil {
		return err
	}

	return a.print(env.Data)
}

func cmdPermissions(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("permissions"), args); err != nil {
		return err
	}

	env, err := a.api.Users.GetPermissions(ctx)
	if err != nil {
		return err
	}

	return a.print(env.Data)
}

func cmdAccessLogs(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("access-logs"), args); err != nil {
		return err
	}

	env, err := a.api.Users.GetAccessLogs(ctx)
	if err != nil {
		return err
	}

	return a.print(env.Data)
}

func cmdDashboard(ctx context.Context, a *app, args []string) error {
	fs := a.flags("dashboard")
	section := fs.String("section", "overview", "overview, permissions or security")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		env models.Envelope[json.RawMessage]
		err error
	)

	switch *section {
	case "overview":
		env, err = a.api.Dashboard.GetOverview(ctx)
	case "permissions":
		env, err = a.api.Dashboard.GetPermissionStats(ctx)
	case "security":
		env, err = a.api.Dashboard.GetSecurityInsights(ctx)
	default:
		fmt.Fprintf(fs.Output(), "unknown section %q\n", *section)
		return errUsage
	}
	if err != nil {
		return err
	}

	return a.print(env.Data)
}

func cmdAlerts(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("alerts"), args); err != nil {
		return err
	}

	if err := a.board.Refresh(ctx); err != nil {
		return err
	}

	return a.print(a.board.Alerts())
}

type ackOutput struct {
	ID     string             `json:"id"`
	Action models.AlertAction `json:"action"`
}

// cmdAckAlert подтверждает алерт синхронно, чтобы код выхода отражал ответ сервера.
func cmdAckAlert(ctx context.Context, a *app, args []string) error {
	fs := a.flags("ack-alert")
	id := fs.String("id", "", "alert id")
	action := fs.String("action", string(models.ActionAcknowledged),
		"revoked_consent, contacted_org, reported or acknowledged")
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.api.Alerts.Acknowledge(ctx, *id, models.AlertAction(*action)); err != nil {
		return err
	}

	return a.print(ackOutput{ID: *id, Action: models.AlertAction(*action)})
}

// cmdWatchAlerts печатает набор алертов при каждом обновлении, по строке JSON.
// Строки вида "ack <id> [action]" из stdin подтверждают алерты без ожидания сервера.
func cmdWatchAlerts(ctx context.Context, a *app, args []string) error {
	fs := a.flags("watch-alerts")
	every := fs.Duration("every", a.cfg.Alerts.PollInterval, "refresh interval")
	interactive := fs.Bool("interactive", false, "read ack commands from stdin")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	enc := json.NewEncoder(a.stdout)
	show := func(list []models.Alert) {
		mu.Lock()
		defer mu.Unlock()

		if err := enc.Encode(list); err != nil {
			a.log.Warn("alerts_print_failed", slog.String("err", err.Error()))
		}
	}

	var acks sync.WaitGroup
	if *interactive {
		lines := scanLines(ctx, a.stdin)

		acks.Add(1)
		go func() {
			defer acks.Done()
			a.applyAcks(ctx, lines, show)
		}()
	}

	err := a.board.Watch(ctx, *every, show)

	// После выхода из Watch новые подтверждения не принимаются:
	// всё, что успело уйти в Board, дождётся run через Board.Wait.
	cancel()
	acks.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// scanLines читает строки r в канал до конца ввода или отмены ctx.
// Заблокированное чтение не прерывается, но после отмены строки не доставляются.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// applyAcks применяет команды "ack <id> [action]" до конца ввода или отмены ctx.
func (a *app) applyAcks(ctx context.Context, lines <-chan string, show func([]models.Alert)) {
	for {
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "ack" {
			continue
		}

		action := models.ActionAcknowledged
		if len(fields) > 2 {
			action = models.AlertAction(fields[2])
		}

		if err := a.board.Acknowledge(ctx, fields[1], action); err != nil {
			a.log.Warn("alert_ack_rejected", slog.String("alert_id", fields[1]), slog.String("err", err.Error()))
			continue
		}

		show(a.board.Alerts())
	}
}

type analysisOutput struct {
	Analysis models.PolicyAnalysis `json:"analysis"`
	Grade    policy.Grade          `json:"grade"`
	Report   string                `json:"report,omitempty"`
}

func cmdAnalyzePolicy(ctx context.Context, a *app, args []string) error {
	fs := a.flags("analyze-policy")
	org := fs.String("org", "", "organization name")
	file := fs.String("file", "-", "policy text file, - for stdin")
	industry := fs.String("industry", string(models.IndustryFintech), "industry for the exported report")
	export := fs.Bool("export", false, "save the analysis as a report")
	if err := parse(fs, args); err != nil {
		return err
	}

	text, err := a.readInput(*file)
	if err != nil {
		return err
	}

	analysis, err := a.api.Policy.Analyze(ctx, models.PolicyAnalysisRequest{
		OrganizationName: *org,
		PolicyText:       text,
	})
	if err != nil {
		return err
	}

	out := analysisOutput{Analysis: analysis, Grade: policy.GradeOf(analysis.NDPRScore)}

	if *export {
		rep, err := report.New(*org, models.Industry(*industry), analysis, time.Now())
		if err != nil {
			return err
		}

		sink, err := a.reportSink(ctx)
		if err != nil {
			return err
		}

		if out.Report, err = report.Export(ctx, sink, rep); err != nil {
			return err
		}
	}

	return a.print(out)
}

// reportSink выбирает место выгрузки отчёта: S3, если он настроен, иначе каталог.
func (a *app) reportSink(ctx context.Context) (report.Sink, error) {
	if a.cfg.Reports.S3.Enabled() {
		return report.NewMinioSink(ctx, a.cfg.Reports.S3)
	}

	return report.FileSink{Dir: a.cfg.Reports.Dir}, nil
}

func (a *app) readInput(path string) (string, error) {
	const op = "main/readInput"

	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(a.stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

type consentOutput struct {
	Decision models.ConsentDecision `json:"decision"`
	Response json.RawMessage        `json:"response,omitempty"`
}

// cmdConsent читает запрос организации (JSON), применяет выбор пользователя
// и отправляет решение. С --dry-run только печатает решение.
func cmdConsent(ctx context.Context, a *app, args []string) error {
	fs := a.flags("consent")
	file := fs.String("request", "-", "consent request JSON file, - for stdin")
	deny := fs.String("deny", "", "comma-separated fields to withhold")
	days := fs.Int("days", consent.DefaultExpirationDays, "days until expiry, 0 for one-time access")
	lang := fs.String("language", string(models.LanguageEnglish), "en, pidgin, yo, ig or ha")
	dryRun := fs.Bool("dry-run", false, "print the decision without sending it")
	if err := parse(fs, args); err != nil {
		return err
	}

	raw, err := a.readInput(*file)
	if err != nil {
		return err
	}

	var req models.ConsentRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return fmt.Errorf("main/cmdConsent: decode request: %w", err)
	}

	sel := consent.NewSelection(req)
	sel.ExpirationDays = *days
	sel.Language = models.Language(*lang)

	for _, name := range strings.Split(*deny, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if err := sel.Set(name, false); err != nil {
			fmt.Fprintln(fs.Output(), apierrors.Message(err))
			return fmt.Errorf("%w: %v", errUsage, err)
		}
	}

	decision, err := sel.Decision(time.Now())
	if err != nil {
		return err
	}

	out := consentOutput{Decision: decision}
	if !*dryRun {
		env, err := a.api.Consent.Submit(ctx, decision)
		if err != nil {
			return err
		}
		out.Response = env.Data
	}

	return a.print(out)
}

func cmdConsentSummary(ctx context.Context, a *app, args []string) error {
	fs := a.flags("consent-summary")
	id := fs.String("id", "", "consent request id")
	lang := fs.String("language", string(models.LanguageEnglish), "en, pidgin, yo, ig or ha")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *id == "" {
		return apierrors.MissingField("id")
	}

	env, err := a.api.Consent.Summary(ctx, *id, models.Language(*lang))
	if err != nil {
		return err
	}

	return a.print(env.Data)
}
