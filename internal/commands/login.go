package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"lockin/internal/config"
	"lockin/internal/exitcode"
	"lockin/internal/manager"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
// The backend issues the session token; login stores it so that the next
// commands and the daemon sync under that account.
type LoginCmd struct {
	username     string
	token        string
	refreshToken string
	expiresIn    time.Duration
	apiURL       string
}

// SetCredentials sets the session values (for testing).
func (c *LoginCmd) SetCredentials(username, token, refreshToken string) {
	c.username = username
	c.token = token
	c.refreshToken = refreshToken
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Store a backend session" }
func (c *LoginCmd) Usage() string {
	return "lockin login --username <name> --token <token> [--refresh-token <token>] [--expires-in <duration>] [--api-url <url>]"
}
func (c *LoginCmd) NeedsManager() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.username, "username", "", "")
	fs.StringVar(&c.username, "u", "", "")
	fs.StringVar(&c.token, "token", "", "")
	fs.StringVar(&c.refreshToken, "refresh-token", "", "")
	fs.DurationVar(&c.expiresIn, "expires-in", 0, "")
	fs.StringVar(&c.apiURL, "api-url", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, m *manager.Manager, args []string, out, errOut io.Writer) int {
	token := strings.TrimSpace(c.token)
	if token == "" {
		if cfg.HasSession() {
			if _, err := cfg.LoadSession(); err == nil {
				if !cfg.Quiet {
					fmt.Fprintln(out, "already logged in")
				}
				return exitcode.Success
			}
		}
		fmt.Fprintln(errOut, "error: token required (run: lockin login --username <name> --token <token>)")
		return exitcode.AuthError
	}

	username := strings.TrimSpace(c.username)
	if username == "" {
		username = cfg.Settings.Username
	}
	if username == "" {
		fmt.Fprintln(errOut, "error: username required")
		return exitcode.AuthError
	}

	session := &oauth2.Token{
		AccessToken:  token,
		TokenType:    "Bearer",
		RefreshToken: strings.TrimSpace(c.refreshToken),
	}
	if c.expiresIn > 0 {
		session.Expiry = time.Now().Add(c.expiresIn)
	}

	cfg.Settings.Username = username
	if c.apiURL != "" {
		cfg.Settings.APIURL = strings.TrimRight(c.apiURL, "/")
	}
	if err := cfg.SaveSettings(); err != nil {
		fmt.Fprintf(errOut, "error: failed to save settings: %v\n", err)
		return exitcode.AuthError
	}
	if err := cfg.SaveSession(session); err != nil {
		fmt.Fprintf(errOut, "error: failed to save session: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", username)
	}
	return exitcode.Success
}
