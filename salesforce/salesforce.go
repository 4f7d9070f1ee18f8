package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/oauth2"

	"github.com/sfdict/sf-data-dictionary/dictionary"
)

const (
	DefaultLoginURL   = "https://login.salesforce.com"
	DefaultAPIVersion = "59.0"
)

// Credentials for the Salesforce connected app. InstanceURL is optional - if it is
// blank the instance URL returned with the access token is used instead.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	InstanceURL  string
	LoginURL     string
	RedirectURI  string
}

// Client retrieves sObject metadata from the Salesforce REST API. A Client is
// bound to the credentials it was created with and refreshes its own access
// token as required.
type Client struct {
	client   *http.Client
	tokens   oauth2.TokenSource
	instance string
	version  string
}

type Error struct {
	Status  int
	Code    string
	Message string
}

type describe struct {
	Name   string `json:"name"`
	Fields []struct {
		Label          string `json:"label"`
		Name           string `json:"name"`
		InlineHelpText string `json:"inlineHelpText"`
		Type           string `json:"type"`
	} `json:"fields"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v %v: %v", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("%v %v", e.Status, e.Message)
}

// OAuth2Config returns the connected app OAuth2 configuration for the login URL
// in the credentials (production login if blank).
func OAuth2Config(credentials Credentials) *oauth2.Config {
	login := strings.TrimSuffix(strings.TrimSpace(credentials.LoginURL), "/")
	if login == "" {
		login = DefaultLoginURL
	}

	return &oauth2.Config{
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		RedirectURL:  credentials.RedirectURI,
		Scopes:       []string{"api", "refresh_token"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   login + "/services/oauth2/authorize",
			TokenURL:  login + "/services/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func NewClient(ctx context.Context, credentials Credentials, version string) *Client {
	if version == "" {
		version = DefaultAPIVersion
	}

	config := OAuth2Config(credentials)
	tokens := config.TokenSource(ctx, &oauth2.Token{RefreshToken: credentials.RefreshToken})

	return &Client{
		client:   oauth2.NewClient(ctx, tokens),
		tokens:   tokens,
		instance: strings.TrimSuffix(strings.TrimSpace(credentials.InstanceURL), "/"),
		version:  strings.TrimPrefix(version, "v"),
	}
}

// Fields retrieves the field list for an sObject, in the order returned by the
// describe call. Fields without an API name are dropped.
func (c *Client) Fields(ctx context.Context, object string) ([]dictionary.FieldDescriptor, error) {
	instance, err := c.instanceURL()
	if err != nil {
		return nil, err
	}

	uri := fmt.Sprintf("%v/services/data/v%v/sobjects/%v/describe", instance, c.version, url.PathEscape(object))

	rq, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	rq.Header.Set("Accept", "application/json")

	response, err := ctxhttp.Do(ctx, c.client, rq)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		return nil, parseError(response.StatusCode, body)
	}

	var metadata describe
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("invalid describe response for %v (%w)", object, err)
	}

	fields := make([]dictionary.FieldDescriptor, 0, len(metadata.Fields))
	for _, f := range metadata.Fields {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}

		fields = append(fields, dictionary.FieldDescriptor{
			Label:    f.Label,
			Name:     f.Name,
			HelpText: f.InlineHelpText,
			DataType: f.Type,
		})
	}

	return fields, nil
}

func (c *Client) instanceURL() (string, error) {
	if c.instance != "" {
		return c.instance, nil
	}

	token, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("error refreshing Salesforce access token (%w)", err)
	}

	if v, ok := token.Extra("instance_url").(string); ok && v != "" {
		c.instance = strings.TrimSuffix(v, "/")
		return c.instance, nil
	}

	return "", fmt.Errorf("missing Salesforce instance URL")
}

// Exchange trades an authorization code for an access/refresh token pair and
// returns the tokens along with the instance URL issued with them.
func Exchange(ctx context.Context, credentials Credentials, code string) (*oauth2.Token, string, error) {
	token, err := OAuth2Config(credentials).Exchange(ctx, code)
	if err != nil {
		return nil, "", err
	}

	instance, _ := token.Extra("instance_url").(string)

	return token, instance, nil
}

func parseError(status int, body []byte) error {
	errors := []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}{}

	if err := json.Unmarshal(body, &errors); err == nil && len(errors) > 0 {
		return &Error{
			Status:  status,
			Code:    errors[0].ErrorCode,
			Message: errors[0].Message,
		}
	}

	return &Error{
		Status:  status,
		Message: strings.TrimSpace(string(body)),
	}
}
