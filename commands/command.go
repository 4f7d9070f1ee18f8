package commands

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/option"

	"github.com/sfdict/sf-data-dictionary/config"
	"github.com/sfdict/sf-data-dictionary/dictionary"
	"github.com/sfdict/sf-data-dictionary/gsheets"
	"github.com/sfdict/sf-data-dictionary/salesforce"
	"github.com/sfdict/sf-data-dictionary/secrets"
)

const APP = "sf-data-dictionary"

const (
	SHEETS = "https://www.googleapis.com/auth/spreadsheets"
	DRIVE  = "https://www.googleapis.com/auth/drive.metadata.readonly"
)

type Options struct {
	Config string
	Debug  bool
}

// command holds the options shared by every command that connects to Salesforce
// and Google Sheets. Anything left blank falls back to the configuration file
// and then to the secrets.
type command struct {
	workdir     string
	credentials string
	url         string
	objects     string
}

// session is everything a command needs to run the update for one invocation
// (or one HTTP request).
type session struct {
	conf        *config.Config
	spreadsheet string
	objects     []string
	google      *http.Client
	store       *gsheets.Store
	crm         *salesforce.Client
}

func (cmd *command) flagset(name string) *flag.FlagSet {
	flagset := flag.NewFlagSet(name, flag.ExitOnError)

	flagset.StringVar(&cmd.workdir, "workdir", cmd.workdir, "Directory for working files (tokens, revisions, etc)")
	flagset.StringVar(&cmd.credentials, "credentials", cmd.credentials, "Path for the Google 'credentials.json' file")
	flagset.StringVar(&cmd.url, "url", cmd.url, "Spreadsheet URL or ID")
	flagset.StringVar(&cmd.objects, "objects", cmd.objects, "Comma separated list of Salesforce objects e.g. 'Shift__c,Application__c'")

	return flagset
}

func helpOptions(flagset *flag.FlagSet) {
	fmt.Println("  Options:")
	flagset.VisitAll(func(f *flag.Flag) {
		fmt.Printf("    --%-13s %s\n", f.Name, f.Usage)
	})
}

func (cmd *command) configure(options *Options) (*config.Config, error) {
	conf := config.NewConfig()
	if err := conf.Load(options.Config); err != nil {
		return nil, fmt.Errorf("could not load configuration (%w)", err)
	}

	if cmd.workdir != "" {
		conf.Workdir = cmd.workdir
	}

	if cmd.credentials != "" {
		conf.Google.Credentials = cmd.credentials
	}

	if cmd.url != "" {
		conf.Spreadsheet = cmd.url
	}

	if objects := split(cmd.objects); len(objects) > 0 {
		conf.Objects = objects
	}

	return conf, nil
}

// source returns the secrets source selected by the configuration. The returned
// function releases any resources held by the source.
func source(ctx context.Context, conf *config.Config) (secrets.Source, func(), error) {
	switch conf.Secrets.Source {
	case "gcp":
		sm, err := secrets.NewSecretManager(ctx, conf.Secrets.Project)
		if err != nil {
			return nil, nil, err
		}

		return sm, func() { sm.Close() }, nil

	default:
		files := []string{}
		if conf.Secrets.DotEnv != "" {
			files = append(files, conf.Secrets.DotEnv)
		}

		env, err := secrets.NewEnv(files...)
		if err != nil {
			return nil, nil, err
		}

		return env, func() {}, nil
	}
}

// connect loads the configuration and secrets and creates the Salesforce and
// Google Sheets clients. Credentials are loaded afresh on every call.
func (cmd *command) connect(ctx context.Context, options *Options) (*session, error) {
	conf, err := cmd.configure(options)
	if err != nil {
		return nil, err
	}

	src, closer, err := source(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("unable to access secrets (%w)", err)
	}

	defer closer()

	s, err := secrets.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	// ... Google credentials
	credentials := s.Google
	if conf.Google.Credentials != "" {
		if credentials, err = os.ReadFile(conf.Google.Credentials); err != nil {
			return nil, fmt.Errorf("error reading Google credentials (%w)", err)
		}
	}

	if len(credentials) == 0 {
		return nil, fmt.Errorf("missing Google credentials - set %v or use --credentials", secrets.CREDENTIALS_PATH)
	}

	// ... spreadsheet
	url := conf.Spreadsheet
	if url == "" {
		url = s.Spreadsheet
	}

	spreadsheet, err := config.SpreadsheetID(url)
	if err != nil {
		return nil, fmt.Errorf("%w - set 'spreadsheet' in the configuration, %v or use --url", err, secrets.SPREADSHEET_ID)
	}

	// ... objects
	if len(conf.Objects) == 0 {
		return nil, fmt.Errorf("no Salesforce objects - set 'objects' in the configuration or use --objects")
	}

	debugf("spreadsheet:%v  objects:%v", spreadsheet, conf.Objects)

	// ... authorise
	scopes := []string{SHEETS}
	if conf.Revisions {
		scopes = append(scopes, DRIVE)
	}

	client, err := authorize(ctx, credentials, tokens(conf), scopes...)
	if err != nil {
		return nil, fmt.Errorf("authentication/authorization error (%w)", err)
	}

	store, err := gsheets.NewStore(ctx, spreadsheet, logger, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}

	// ... Salesforce
	sf := s.Salesforce
	if sf.LoginURL == "" {
		sf.LoginURL = conf.Salesforce.LoginURL
	}

	if sf.RedirectURI == "" {
		sf.RedirectURI = conf.Salesforce.RedirectURI
	}

	return &session{
		conf:        conf,
		spreadsheet: spreadsheet,
		objects:     conf.Objects,
		google:      client,
		store:       store,
		crm:         salesforce.NewClient(ctx, sf, conf.Salesforce.APIVersion),
	}, nil
}

// update runs the data dictionary update for all the session objects and
// appends the outcome to the log worksheet (if enabled).
func (s *session) update(ctx context.Context, dryrun bool) dictionary.Report {
	updater := dictionary.Updater{
		Fetcher: s.crm,
		Store:   s.store,
		DryRun:  dryrun,
		Log:     logger,
	}

	report := updater.Update(ctx, s.objects)

	if !dryrun && !s.conf.Log.Disabled {
		if err := s.store.AppendLog(ctx, s.conf.Log.Range, report); err != nil {
			warnf("failed to update log worksheet (%v)", err)
		} else if err := s.store.PruneLog(ctx, s.conf.Log.Range, s.conf.Log.Retention); err != nil {
			warnf("failed to prune log worksheet (%v)", err)
		}
	}

	return report
}

func tokens(conf *config.Config) string {
	if conf.Google.Tokens != "" {
		return conf.Google.Tokens
	}

	return filepath.Join(conf.Workdir, ".google", "sheets.tokens")
}

func split(v string) []string {
	list := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	return list
}
