// ABOUTME: Operator CLI for the ATMS identity and administration API
// ABOUTME: Manages the local session and inspects users, roles, permissions and services

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/openatms/atms-console/internal/api"
	"github.com/openatms/atms-console/internal/config"
	"github.com/openatms/atms-console/internal/identity"
	"github.com/openatms/atms-console/internal/keystore"
	"github.com/openatms/atms-console/internal/session"
	"github.com/openatms/atms-console/internal/token"
)

const banner = `
       _                                              _
  __ _| |_ _ __ ___  ___        ___ ___  _ __  ___  ___ | | ___
 / _' | __| '_ ' _ \/ __|_____ / __/ _ \| '_ \/ __|/ _ \| |/ _ \
| (_| | |_| | | | | \__ \_____| (_| (_) | | | \__ \ (_) | |  __/
 \__,_|\__|_| |_| |_|___/      \___\___/|_| |_|___/\___/|_|\___|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	app, err := newApp()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	switch cmd {
	case "login":
		err = app.cmdLogin(args)
	case "logout":
		err = app.cmdLogout(false)
	case "logout-all":
		err = app.cmdLogout(true)
	case "me":
		err = app.cmdMe()
	case "token":
		err = app.cmdToken()
	case "users":
		err = app.cmdUsers()
	case "roles":
		err = app.cmdRoles()
	case "permissions":
		err = app.cmdPermissions()
	case "services":
		err = app.cmdServices()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: atms-console <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login [username]    Log in and store the session locally")
	fmt.Println("  logout              End the current session")
	fmt.Println("  logout-all          End every session of this user")
	fmt.Println("  me                  Show the authenticated user and roles")
	fmt.Println("  token               Inspect the stored access token")
	fmt.Println("  users               List users")
	fmt.Println("  roles               List roles")
	fmt.Println("  permissions         List permissions")
	fmt.Println("  services            List registered services")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  ATMS_API_URL            API base URL (default: " + config.DefaultBaseURL + ")")
	fmt.Println("  ATMS_CONSOLE_CONFIG     Path to a YAML deployment config")
	fmt.Println("  ATMS_PROFILE            Path to the TOML operator profile")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  atms-console login alice")
	fmt.Println("  atms-console me")
	fmt.Println("  atms-console roles")
	fmt.Println()
}

// app wires the keystore, gateway client and session manager for one command.
type app struct {
	cfg     *config.Config
	kv      keystore.Store
	tokens  *token.Store
	client  *api.Client
	session *session.Manager
}

func newApp() (*app, error) {
	cfg := config.Default()
	if path := os.Getenv("ATMS_CONSOLE_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	profilePath := os.Getenv("ATMS_PROFILE")
	if profilePath == "" {
		var err error
		profilePath, err = defaultProfilePath()
		if err != nil {
			return nil, err
		}
	}
	prof, err := loadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(cfg, prof); err != nil {
		return nil, err
	}

	setupLogging(cfg.Logging.Level)

	storePath := cfg.Keystore.Path
	if storePath == "" {
		storePath, err = defaultKeystorePath()
		if err != nil {
			return nil, err
		}
	}
	kv, err := keystore.NewSQLite(storePath)
	if err != nil {
		return nil, err
	}
	tokens := token.NewStore(kv)

	var manager *session.Manager
	clientOpts := []api.Option{
		api.WithSessionExpiredHook(func() {
			if manager != nil {
				manager.SessionExpired()
			}
			fmt.Fprintln(os.Stderr, "Session expired. Run 'atms-console login' to sign in again.")
		}),
	}
	if cfg.API.Timeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(cfg.API.Timeout))
	}
	client := api.NewClient(cfg.API.BaseURL, tokens, clientOpts...)

	// One command per process: the reactive refresh path is enough, no
	// background scheduler.
	managerOpts := []session.ManagerOption{session.WithRefreshInterval(0)}
	if cfg.Auth.RefreshThreshold > 0 {
		managerOpts = append(managerOpts, session.WithRefreshThreshold(cfg.Auth.RefreshThreshold))
	}
	manager = session.NewManager(client, tokens, managerOpts...)

	return &app{cfg: cfg, kv: kv, tokens: tokens, client: client, session: manager}, nil
}

// applyProfile overlays the operator profile on the deployment config.
func applyProfile(cfg *config.Config, prof *Profile) error {
	if prof.Server.URL != "" {
		cfg.API.BaseURL = prof.Server.URL
	}
	if prof.Server.Timeout != "" {
		d, err := time.ParseDuration(prof.Server.Timeout)
		if err != nil {
			return fmt.Errorf("parsing profile timeout %q: %w", prof.Server.Timeout, err)
		}
		cfg.API.Timeout = d
	}
	if prof.Keystore.Path != "" {
		cfg.Keystore.Path = prof.Keystore.Path
	}
	if prof.Logging.Level != "" {
		cfg.Logging.Level = prof.Logging.Level
	}
	return nil
}

// setupLogging configures slog on stderr. The CLI stays quiet unless the
// profile asks for more.
func setupLogging(level string) {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func (a *app) close() {
	a.session.Close()
	if err := a.kv.Close(); err != nil {
		slog.Warn("closing keystore", "error", err)
	}
}

// requireSession restores and verifies the stored session, failing the
// command when no valid session exists.
func (a *app) requireSession(ctx context.Context) error {
	if err := a.session.Init(ctx); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in (run 'atms-console login')")
	}
	return nil
}

func (a *app) cmdLogin(args []string) error {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	username := ""
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := readPassword(reader)
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, identity.LoginRequest{Username: username, Password: password}); err != nil {
		if msg := a.session.Error(); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return err
	}

	user := a.session.CurrentUser()
	color.Green("Logged in as %s", user.Username)
	printUser(user)
	return nil
}

// readPassword reads the password without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) (string, error) {
	fmt.Print("Password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) cmdLogout(all bool) error {
	ctx := context.Background()
	if all {
		a.session.LogoutAll(ctx)
	} else {
		a.session.Logout(ctx)
	}
	fmt.Println("Logged out.")
	return nil
}

func (a *app) cmdMe() error {
	ctx := context.Background()
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	printUser(a.session.CurrentUser())
	return nil
}

func printUser(u *identity.User) {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	fmt.Println()
	cyan.Println("  Identity")
	cyan.Println("  --------")
	fmt.Printf("  ID:          %d\n", u.ID)
	fmt.Printf("  Username:    %s\n", u.Username)
	fmt.Printf("  Email:       %s\n", u.Email)
	if u.FullName != "" {
		fmt.Printf("  Full Name:   %s\n", u.FullName)
	}
	if u.Department != "" {
		fmt.Printf("  Department:  %s\n", u.Department)
	}
	fmt.Printf("  Active:      %v\n", u.IsActive)
	fmt.Printf("  Superuser:   %v\n", u.IsSuperuser)

	if len(u.Roles) > 0 {
		green.Printf("  Roles:       %s\n", strings.Join(u.Roles, ", "))
	} else {
		fmt.Printf("  Roles:       (none)\n")
	}
	fmt.Println()
}

func (a *app) cmdToken() error {
	ctx := context.Background()
	access, err := a.tokens.AccessToken(ctx)
	if err != nil || access == "" {
		return fmt.Errorf("no access token stored (run 'atms-console login')")
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Access Token")
	cyan.Println("  ------------")

	claims, ok := token.DecodeClaims(access)
	if !ok {
		color.Yellow("  Opaque or malformed token; treated as expired.")
		fmt.Println()
		return nil
	}

	fmt.Printf("  Subject:     %s\n", claims.Subject)
	fmt.Printf("  Type:        %s\n", claims.Type)
	if !claims.ExpiresAt.IsZero() {
		fmt.Printf("  Expires:     %s\n", claims.ExpiresAt.Local().Format("Jan 02 15:04:05"))
	}

	switch {
	case token.IsExpired(access):
		color.Red("  Status:      expired")
	case token.IsExpiringSoon(access, token.DefaultRefreshThreshold):
		remaining, _ := token.TimeUntilExpiry(access)
		color.Yellow("  Status:      expiring soon (%s left)", remaining.Round(time.Second))
	default:
		remaining, _ := token.TimeUntilExpiry(access)
		color.Green("  Status:      valid (%s left)", remaining.Round(time.Second))
	}
	fmt.Println()
	return nil
}

func (a *app) cmdUsers() error {
	ctx := context.Background()
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if !a.session.HasPermission("user:read") {
		return fmt.Errorf("access denied: user management requires admin privileges")
	}

	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tUSERNAME\tEMAIL\tACTIVE\tROLES")
	fmt.Fprintln(w, "  --\t--------\t-----\t------\t-----")
	for _, u := range users {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%v\t%s\n",
			u.ID, u.Username, truncate(u.Email, 32), u.IsActive, strings.Join(u.Roles, ","))
	}
	return w.Flush()
}

func (a *app) cmdRoles() error {
	ctx := context.Background()
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if !a.session.HasPermission("role:read") {
		return fmt.Errorf("access denied: role management requires admin privileges")
	}

	roles, err := a.client.ListRoles(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tSYSTEM\tACTIVE\tPERMISSIONS\tDESCRIPTION")
	fmt.Fprintln(w, "  --\t----\t------\t------\t-----------\t-----------")
	for _, r := range roles {
		fmt.Fprintf(w, "  %d\t%s\t%v\t%v\t%d\t%s\n",
			r.ID, r.Name, r.IsSystem, r.IsActive, len(r.Permissions), truncate(r.Description, 40))
	}
	return w.Flush()
}

func (a *app) cmdPermissions() error {
	ctx := context.Background()
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if !a.session.HasPermission("permission:read") {
		return fmt.Errorf("access denied: permission management requires admin privileges")
	}

	perms, err := a.client.ListPermissions(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tRESOURCE\tACTION\tACTIVE")
	fmt.Fprintln(w, "  --\t----\t--------\t------\t------")
	for _, p := range perms {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%v\n", p.ID, p.Name, p.Resource, p.Action, p.IsActive)
	}
	return w.Flush()
}

func (a *app) cmdServices() error {
	ctx := context.Background()
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if !a.session.HasPermission("service:read") {
		return fmt.Errorf("access denied: service management requires admin privileges")
	}

	services, err := a.client.ListServices(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tBASE URL\tACTIVE\tDESCRIPTION")
	fmt.Fprintln(w, "  --\t----\t--------\t------\t-----------")
	for _, s := range services {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%v\t%s\n",
			s.ID, s.Name, truncate(s.BaseURL, 40), s.IsActive, truncate(s.Description, 40))
	}
	return w.Flush()
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
