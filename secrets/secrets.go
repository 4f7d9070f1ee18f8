package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sfdict/sf-data-dictionary/salesforce"
)

const (
	SF_REFRESH_TOKEN = "SF_REFRESH_TOKEN"
	SF_CLIENT_ID     = "SF_CLIENT_ID"
	SF_CLIENT_SECRET = "SF_CLIENT_SECRET"
	SF_INSTANCE_URL  = "SF_INSTANCE_URL"
	SF_LOGIN_URL     = "SF_LOGIN_URL"
	SF_REDIRECT_URI  = "SF_REDIRECT_URI"
	CREDENTIALS_PATH = "CREDENTIALS_PATH"
	SPREADSHEET_ID   = "SPREADSHEET_ID"
)

var ErrNotFound = errors.New("secret not found")

// Source retrieves a named secret. Implementations return ErrNotFound (or an
// error wrapping it) if the secret does not exist.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
}

// Secrets holds everything required to connect to Salesforce and Google Sheets.
// Google is the credentials JSON (service account key or OAuth client).
type Secrets struct {
	Salesforce  salesforce.Credentials
	Google      []byte
	Spreadsheet string
}

var required = []string{
	SF_REFRESH_TOKEN,
	SF_CLIENT_ID,
	SF_CLIENT_SECRET,
}

var optional = []string{
	SF_INSTANCE_URL,
	SF_LOGIN_URL,
	SF_REDIRECT_URI,
	CREDENTIALS_PATH,
	SPREADSHEET_ID,
}

// Load retrieves all the secrets concurrently. CREDENTIALS_PATH may hold either
// the Google credentials JSON or the path to a file containing it and is left
// nil if not set.
func Load(ctx context.Context, source Source) (*Secrets, error) {
	var mutex sync.Mutex

	values := map[string]string{}
	g, ctx := errgroup.WithContext(ctx)

	fetch := func(name string, mandatory bool) {
		g.Go(func() error {
			v, err := source.Get(ctx, name)
			if err != nil {
				if !mandatory && errors.Is(err, ErrNotFound) {
					return nil
				}

				return fmt.Errorf("error accessing secret %v (%w)", name, err)
			}

			if mandatory && strings.TrimSpace(v) == "" {
				return fmt.Errorf("secret %v is blank", name)
			}

			mutex.Lock()
			values[name] = strings.TrimSpace(v)
			mutex.Unlock()

			return nil
		})
	}

	for _, name := range required {
		fetch(name, true)
	}

	for _, name := range optional {
		fetch(name, false)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	google, err := credentials(values[CREDENTIALS_PATH])
	if err != nil {
		return nil, err
	}

	return &Secrets{
		Salesforce: salesforce.Credentials{
			ClientID:     values[SF_CLIENT_ID],
			ClientSecret: values[SF_CLIENT_SECRET],
			RefreshToken: values[SF_REFRESH_TOKEN],
			InstanceURL:  values[SF_INSTANCE_URL],
			LoginURL:     values[SF_LOGIN_URL],
			RedirectURI:  values[SF_REDIRECT_URI],
		},
		Google:      google,
		Spreadsheet: values[SPREADSHEET_ID],
	}, nil
}

func credentials(v string) ([]byte, error) {
	if v == "" {
		return nil, nil
	}

	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}

	b, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("error reading Google credentials (%w)", err)
	}

	return b, nil
}
