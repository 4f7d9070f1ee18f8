package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sfdict/sf-data-dictionary/salesforce"
	"github.com/sfdict/sf-data-dictionary/secrets"
)

var AuthoriseCmd = Authorise{
	command:  command{},
	provider: "salesforce",
	port:     8080,
}

// Authorise runs the interactive OAuth2 authorization code flow for either the
// Salesforce connected app or a Google OAuth2 client.
type Authorise struct {
	command
	provider string
	port     uint
}

type authorisation struct {
	code  string
	err   error
	state string
}

var page = template.Must(template.New("auth").Parse(`<!DOCTYPE html>
<html>
  <head><title>{{.Title}}</title></head>
  <body>
    <h3>{{.Title}}</h3>
    <p>{{.Message}}</p>
  </body>
</html>
`))

func (cmd *Authorise) Name() string {
	return "authorise"
}

func (cmd *Authorise) Description() string {
	return fmt.Sprintf("Authorises %v to access Salesforce or Google Sheets", APP)
}

func (cmd *Authorise) Usage() string {
	return "--provider salesforce|google [--port <port>]"
}

func (cmd *Authorise) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] authorise [options] --provider salesforce|google\n", APP)
	fmt.Println()
	fmt.Println("  Opens the provider's authorisation page in a browser and waits for the OAuth2 callback on")
	fmt.Println("  localhost. The Salesforce refresh token and instance URL are printed (for storing as the")
	fmt.Println("  SF_REFRESH_TOKEN and SF_INSTANCE_URL secrets). The Google tokens are saved to the tokens file")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf("    %v authorise --provider salesforce\n", APP)
	fmt.Printf(`    %v authorise --provider google --credentials "credentials.json"`+"\n", APP)
	fmt.Println()
}

func (cmd *Authorise) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("authorise")

	flagset.StringVar(&cmd.provider, "provider", cmd.provider, "OAuth2 provider ('salesforce' or 'google')")
	flagset.UintVar(&cmd.port, "port", cmd.port, "Port for the local OAuth2 callback server")

	return flagset
}

func (cmd *Authorise) Execute(args ...any) error {
	options := args[0].(*Options)
	ctx := context.Background()

	conf, err := cmd.configure(options)
	if err != nil {
		return err
	}

	callback := fmt.Sprintf("http://localhost:%v/callback", cmd.port)

	switch strings.ToLower(strings.TrimSpace(cmd.provider)) {
	case "salesforce":
		src, closer, err := source(ctx, conf)
		if err != nil {
			return fmt.Errorf("unable to access secrets (%w)", err)
		}

		defer closer()

		credentials, err := connectedApp(ctx, src)
		if err != nil {
			return err
		}

		if credentials.LoginURL == "" {
			credentials.LoginURL = conf.Salesforce.LoginURL
		}

		if credentials.RedirectURI == "" {
			credentials.RedirectURI = conf.Salesforce.RedirectURI
		}

		if credentials.RedirectURI == "" {
			credentials.RedirectURI = callback
		}

		code, err := cmd.authenticate(ctx, salesforce.OAuth2Config(credentials))
		if err != nil || code == "" {
			return err
		}

		token, instance, err := salesforce.Exchange(ctx, credentials, code)
		if err != nil {
			return fmt.Errorf("unable to retrieve Salesforce tokens (%w)", err)
		}

		if token.RefreshToken == "" {
			return fmt.Errorf("no refresh token issued - check that the connected app includes the 'refresh_token' scope")
		}

		fmt.Println()
		fmt.Printf("  %-16v %v\n", secrets.SF_REFRESH_TOKEN, token.RefreshToken)
		fmt.Printf("  %-16v %v\n", secrets.SF_INSTANCE_URL, instance)
		fmt.Println()

		return nil

	case "google":
		if conf.Google.Credentials == "" {
			return fmt.Errorf("--credentials is a required option")
		}

		b, err := os.ReadFile(conf.Google.Credentials)
		if err != nil {
			return err
		}

		scopes := []string{SHEETS}
		if conf.Revisions {
			scopes = append(scopes, DRIVE)
		}

		config, err := google.ConfigFromJSON(b, scopes...)
		if err != nil {
			return fmt.Errorf("invalid Google OAuth2 client credentials (%w)", err)
		}

		config.RedirectURL = callback

		code, err := cmd.authenticate(ctx, config)
		if err != nil || code == "" {
			return err
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("unable to retrieve Google tokens (%w)", err)
		}

		file := tokens(conf)
		if err := saveToken(file, token); err != nil {
			return err
		}

		infof("saved Google OAuth2 tokens to %v", file)

		return nil

	default:
		return fmt.Errorf("invalid --provider '%v' - expected 'salesforce' or 'google'", cmd.provider)
	}
}

// connectedApp retrieves just the connected app secrets, since there is no
// refresh token until the authorization has completed.
func connectedApp(ctx context.Context, src secrets.Source) (salesforce.Credentials, error) {
	credentials := salesforce.Credentials{}
	fields := []struct {
		name     string
		value    *string
		required bool
	}{
		{secrets.SF_CLIENT_ID, &credentials.ClientID, true},
		{secrets.SF_CLIENT_SECRET, &credentials.ClientSecret, true},
		{secrets.SF_LOGIN_URL, &credentials.LoginURL, false},
		{secrets.SF_REDIRECT_URI, &credentials.RedirectURI, false},
	}

	for _, f := range fields {
		v, err := src.Get(ctx, f.name)
		if err != nil && (f.required || !errors.Is(err, secrets.ErrNotFound)) {
			return credentials, fmt.Errorf("error accessing secret %v (%w)", f.name, err)
		}

		*f.value = strings.TrimSpace(v)
	}

	return credentials, nil
}

// authenticate opens the authorisation page in a browser and waits for the
// OAuth2 callback. Returns an empty code if cancelled with CTRL-C.
func (cmd *Authorise) authenticate(ctx context.Context, config *oauth2.Config) (string, error) {
	state, err := nonce()
	if err != nil {
		return "", err
	}

	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid OAuth2 redirect URI '%v' (%w)", config.RedirectURL, err)
	} else if redirect.Path == "" || redirect.Path == "/" {
		return "", fmt.Errorf("invalid OAuth2 redirect URI '%v' - expected something like 'http://localhost:%v/callback'", config.RedirectURL, cmd.port)
	}

	auth := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	authorised := make(chan authorisation, 1)

	// ... start HTTP server on localhost
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, rq *http.Request) {
		http.Redirect(w, rq, auth, http.StatusFound)
	})

	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, rq *http.Request) {
		result := authorisation{
			code:  rq.FormValue("code"),
			state: rq.FormValue("state"),
		}

		switch {
		case rq.FormValue("error") != "":
			result.err = fmt.Errorf("%v: %v", rq.FormValue("error"), rq.FormValue("error_description"))
		case result.state != state:
			result.err = fmt.Errorf("invalid OAuth2 state")
		case result.code == "":
			result.err = fmt.Errorf("missing OAuth2 authorization code")
		}

		title := "Authorised"
		message := fmt.Sprintf("%v has been authorised - you can close this window", APP)
		if result.err != nil {
			title = "Authorisation failed"
			message = result.err.Error()
		}

		if err := page.Execute(w, map[string]string{"Title": title, "Message": message}); err != nil {
			warnf("%v", err)
		}

		select {
		case authorised <- result:
		default:
		}
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("localhost:%v", cmd.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			warnf("%v", err)
		}
	}()

	// ... CTRL-C handler
	interrupt := make(chan os.Signal, 1)

	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	// ... open authorisation page in browser
	local := fmt.Sprintf("http://localhost:%v", cmd.port)
	if err := browse(local); err != nil {
		fmt.Printf("Could not open the authorisation page in your browser - please open %v manually\n", local)
	}

	// ... wait for authorisation
	select {
	case <-interrupt:
		fmt.Printf("\n.. cancelled\n\n")
		return "", nil

	case <-ctx.Done():
		return "", ctx.Err()

	case err := <-errs:
		return "", err

	case result := <-authorised:
		return result.code, result.err
	}
}

func browse(link string) error {
	var command *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		command = exec.Command("open", link)
	case "windows":
		command = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	default:
		command = exec.Command("xdg-open", link)
	}

	return command.Start()
}

func nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
