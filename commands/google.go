package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// authorize returns an HTTP client for the Google APIs. A service account key is
// used directly, otherwise the credentials are treated as an OAuth2 client and
// the tokens saved by the 'authorise' command are used.
func authorize(ctx context.Context, credentials []byte, tokens string, scopes ...string) (*http.Client, error) {
	var key struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(credentials, &key); err != nil {
		return nil, fmt.Errorf("invalid Google credentials (%w)", err)
	}

	if key.Type == "service_account" {
		config, err := google.JWTConfigFromJSON(credentials, scopes...)
		if err != nil {
			return nil, err
		}

		return config.Client(ctx), nil
	}

	config, err := google.ConfigFromJSON(credentials, scopes...)
	if err != nil {
		return nil, err
	}

	token, err := tokenFromFile(tokens)
	if err != nil {
		return nil, fmt.Errorf("no OAuth2 token in %v - run '%v authorise --provider google' first (%w)", tokens, APP, err)
	}

	return config.Client(ctx, token), nil
}

// Retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := oauth2.Token{}
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, err
	}

	return &token, nil
}

// Saves a token to a file path.
func saveToken(file string, token any) error {
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to save OAuth2 token (%w)", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}
