package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/sfdict/sf-data-dictionary/dictionary"
	"github.com/sfdict/sf-data-dictionary/gsheets"
	"github.com/sfdict/sf-data-dictionary/secrets"
)

type fetcher map[string][]dictionary.FieldDescriptor

func (f fetcher) Fields(ctx context.Context, object string) ([]dictionary.FieldDescriptor, error) {
	if fields, ok := f[object]; ok {
		return fields, nil
	}

	return nil, fmt.Errorf("404 NOT_FOUND: sObject type '%v' is not supported", object)
}

type store map[string][]dictionary.Row

func (s store) ReadRows(ctx context.Context, object string) ([]dictionary.Row, bool, error) {
	rows, ok := s[object]

	return rows, ok, nil
}

func (s store) CreateTab(ctx context.Context, object string) error {
	return fmt.Errorf("read-only")
}

func (s store) WriteRows(ctx context.Context, object string, result dictionary.Result) error {
	return fmt.Errorf("read-only")
}

type vault map[string]string

func (v vault) Get(ctx context.Context, name string) (string, error) {
	if secret, ok := v[name]; ok {
		return secret, nil
	}

	return "", fmt.Errorf("%v: %w", name, secrets.ErrNotFound)
}

func TestCompare(t *testing.T) {
	f := fetcher{
		"Shift__c": {
			{Label: "Start", Name: "Start__c", DataType: "datetime"},
			{Label: "Rate", Name: "Rate__c", DataType: "currency"},
		},
	}

	s := store{
		"Shift__c": {
			dictionary.Header,
			{"Start", "Start__c", "Start__c", "", "datetime"},
			{"Legacy", "Legacy__c", "Legacy__c", "", "string"},
		},
	}

	expected := comparison{
		object:  "Shift__c",
		created: false,
		updated: 1,
		added:   []string{"Rate__c"},
		removed: []string{"Legacy__c"},
	}

	c := compare(context.Background(), f, s, "Shift__c")

	if !reflect.DeepEqual(c, expected) {
		t.Errorf("Incorrect comparison\n   expected:%+v\n   got:     %+v", expected, c)
	}
}

func TestCompareWithNewWorksheet(t *testing.T) {
	f := fetcher{
		"Application__c": {
			{Label: "Status", Name: "Status__c", DataType: "picklist"},
			{Label: "Shift", Name: "Shift__c", DataType: "reference"},
		},
	}

	expected := comparison{
		object:  "Application__c",
		created: true,
		updated: 0,
		added:   []string{"Status__c", "Shift__c"},
		removed: []string{},
	}

	c := compare(context.Background(), f, store{}, "Application__c")

	if !reflect.DeepEqual(c, expected) {
		t.Errorf("Incorrect comparison\n   expected:%+v\n   got:     %+v", expected, c)
	}
}

func TestCompareWithFetchError(t *testing.T) {
	c := compare(context.Background(), fetcher{}, store{}, "Unknown__c")

	var err *dictionary.FetchError
	if !errors.As(c.err, &err) {
		t.Fatalf("Expected FetchError, got %v", c.err)
	}

	if err.Op != "fetch" || err.Object != "Unknown__c" {
		t.Errorf("Incorrect error - got %+v", err)
	}
}

func TestReport(t *testing.T) {
	list := []comparison{
		{object: "Shift__c", updated: 1, added: []string{"Rate__c"}, removed: []string{"Legacy__c", "Old__c"}},
	}

	expected := "Shift__c\n" +
		"  updated  1\n" +
		"  added    Rate__c\n" +
		"  removed  Legacy__c, Old__c\n" +
		"\n"

	var b bytes.Buffer

	report(&b, list)

	if b.String() != expected {
		t.Errorf("Incorrect report\n   expected:%q\n   got:     %q", expected, b.String())
	}
}

func TestRouter(t *testing.T) {
	update := func(ctx context.Context) (dictionary.Report, error) {
		return dictionary.Report{
			Outcomes: []dictionary.Outcome{
				{Object: "Shift__c", Fields: 2, Updated: 2},
			},
		}, nil
	}

	srv := httptest.NewServer(router(update))
	defer srv.Close()

	response, body := get(t, srv.URL+"/")

	if response.StatusCode != http.StatusOK {
		t.Errorf("Incorrect status code - expected:%v, got:%v", http.StatusOK, response.StatusCode)
	}

	if !strings.HasPrefix(body, "Data dictionary updated successfully") {
		t.Errorf("Incorrect response - got %q", body)
	}

	if !strings.Contains(body, "Shift__c") {
		t.Errorf("Expected object summary in response - got %q", body)
	}
}

func TestRouterWithPartialFailure(t *testing.T) {
	update := func(ctx context.Context) (dictionary.Report, error) {
		return dictionary.Report{
			Outcomes: []dictionary.Outcome{
				{Object: "Shift__c", Fields: 2, Updated: 2},
				{Object: "Unknown__c", Err: fmt.Errorf("not found")},
			},
		}, nil
	}

	srv := httptest.NewServer(router(update))
	defer srv.Close()

	response, body := get(t, srv.URL+"/")

	if response.StatusCode != http.StatusOK {
		t.Errorf("Incorrect status code - expected:%v, got:%v", http.StatusOK, response.StatusCode)
	}

	if !strings.HasPrefix(body, "Data dictionary partially updated (1 of 2 objects failed)") {
		t.Errorf("Incorrect response - got %q", body)
	}
}

func TestRouterWithError(t *testing.T) {
	update := func(ctx context.Context) (dictionary.Report, error) {
		return dictionary.Report{}, fmt.Errorf("secret SF_REFRESH_TOKEN is blank")
	}

	srv := httptest.NewServer(router(update))
	defer srv.Close()

	response, body := get(t, srv.URL+"/")

	if response.StatusCode != http.StatusInternalServerError {
		t.Errorf("Incorrect status code - expected:%v, got:%v", http.StatusInternalServerError, response.StatusCode)
	}

	if expected := "Failed to update data dictionary: secret SF_REFRESH_TOKEN is blank\n"; body != expected {
		t.Errorf("Incorrect response - expected:%q, got:%q", expected, body)
	}
}

func TestRouterWithConcurrentRequests(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	update := func(ctx context.Context) (dictionary.Report, error) {
		close(started)
		<-release

		return dictionary.Report{}, nil
	}

	srv := httptest.NewServer(router(update))
	defer srv.Close()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if response, err := http.Get(srv.URL + "/"); err == nil {
			response.Body.Close()
		}
	}()

	<-started

	response, _ := get(t, srv.URL+"/")
	close(release)
	wg.Wait()

	if response.StatusCode != http.StatusConflict {
		t.Errorf("Incorrect status code - expected:%v, got:%v", http.StatusConflict, response.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	update := func(ctx context.Context) (dictionary.Report, error) {
		t.Errorf("Unexpected update")
		return dictionary.Report{}, nil
	}

	srv := httptest.NewServer(router(update))
	defer srv.Close()

	response, body := get(t, srv.URL+"/healthz")

	if response.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("Incorrect health check response - got %v %q", response.StatusCode, body)
	}
}

func TestConfigure(t *testing.T) {
	cmd := command{
		workdir: "/tmp/sfdd",
		url:     "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
		objects: " Shift__c, ,Application__c ",
	}

	conf, err := cmd.configure(&Options{Config: ""})
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if conf.Workdir != "/tmp/sfdd" {
		t.Errorf("Incorrect workdir - expected:%v, got:%v", "/tmp/sfdd", conf.Workdir)
	}

	if conf.Spreadsheet != cmd.url {
		t.Errorf("Incorrect spreadsheet - expected:%v, got:%v", cmd.url, conf.Spreadsheet)
	}

	if objects := []string{"Shift__c", "Application__c"}; !reflect.DeepEqual(conf.Objects, objects) {
		t.Errorf("Incorrect objects - expected:%v, got:%v", objects, conf.Objects)
	}

	if expected := filepath.Join("/tmp/sfdd", ".google", "sheets.tokens"); tokens(conf) != expected {
		t.Errorf("Incorrect tokens file - expected:%v, got:%v", expected, tokens(conf))
	}
}

func TestConnectedApp(t *testing.T) {
	src := vault{
		secrets.SF_CLIENT_ID:     " client ",
		secrets.SF_CLIENT_SECRET: "secret",
	}

	credentials, err := connectedApp(context.Background(), src)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if credentials.ClientID != "client" || credentials.ClientSecret != "secret" || credentials.LoginURL != "" {
		t.Errorf("Incorrect credentials - got %+v", credentials)
	}

	if _, err := connectedApp(context.Background(), vault{secrets.SF_CLIENT_ID: "client"}); err == nil {
		t.Errorf("Expected error for missing %v", secrets.SF_CLIENT_SECRET)
	}
}

func TestTokens(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".google", "sheets.tokens")
	token := oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       time.Date(2026, time.October, 18, 12, 30, 0, 0, time.UTC),
	}

	if err := saveToken(file, &token); err != nil {
		t.Fatalf("Unexpected error saving token (%v)", err)
	}

	if info, err := os.Stat(file); err != nil {
		t.Fatalf("%v", err)
	} else if info.Mode().Perm() != 0600 {
		t.Errorf("Incorrect tokens file permissions - expected:%v, got:%v", os.FileMode(0600), info.Mode().Perm())
	}

	retrieved, err := tokenFromFile(file)
	if err != nil {
		t.Fatalf("Unexpected error retrieving token (%v)", err)
	}

	if retrieved.AccessToken != token.AccessToken || retrieved.RefreshToken != token.RefreshToken || !retrieved.Expiry.Equal(token.Expiry) {
		t.Errorf("Incorrect token\n   expected:%+v\n   got:     %+v", token, *retrieved)
	}
}

func TestAuthorizeWithoutTokens(t *testing.T) {
	credentials := []byte(`{"installed":{"client_id":"client","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`)
	tokens := filepath.Join(t.TempDir(), "missing.tokens")

	if _, err := authorize(context.Background(), credentials, tokens, SHEETS); err == nil {
		t.Errorf("Expected error for missing tokens file")
	}

	if _, err := authorize(context.Background(), []byte("not JSON"), tokens, SHEETS); err == nil {
		t.Errorf("Expected error for invalid credentials")
	}
}

func TestExport(t *testing.T) {
	file := filepath.Join(t.TempDir(), "export", "shift.tsv")
	rows := []dictionary.Row{
		dictionary.Header,
		{"Start", "Start__c", "Start__c", "Shift start", "datetime"},
	}

	expected := "Field Label\tField Name\tAPI Name\tHelp Text\tData Type\n" +
		"Start\tStart__c\tStart__c\tShift start\tdatetime\n"

	if err := export(rows, file); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("%v", err)
	}

	if string(b) != expected {
		t.Errorf("Incorrect TSV file\n   expected:%q\n   got:     %q", expected, string(b))
	}

	if matches, _ := filepath.Glob(filepath.Join(filepath.Dir(file), ".tsv-*")); len(matches) > 0 {
		t.Errorf("Temporary file not removed - %v", matches)
	}
}

func TestRevisionLine(t *testing.T) {
	r := gsheets.Revision{
		ID:       "1234",
		Modified: time.Date(2026, time.October, 18, 9, 15, 0, 0, time.UTC),
	}

	if line := revisionLine(&r); line != "1234\t2026-10-18T09:15:00Z\n" {
		t.Errorf("Incorrect revision - got %q", line)
	}
}

func TestSplit(t *testing.T) {
	tests := map[string][]string{
		"":                          {},
		"Shift__c":                  {"Shift__c"},
		" Shift__c , ,TimeCards__c": {"Shift__c", "TimeCards__c"},
	}

	for v, expected := range tests {
		if list := split(v); !reflect.DeepEqual(list, expected) {
			t.Errorf("Incorrect list for %q - expected:%v, got:%v", v, expected, list)
		}
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	response, err := http.Get(url)
	if err != nil {
		t.Fatalf("%v", err)
	}
	defer response.Body.Close()

	var b bytes.Buffer
	if _, err := b.ReadFrom(response.Body); err != nil {
		t.Fatalf("%v", err)
	}

	return response, b.String()
}
