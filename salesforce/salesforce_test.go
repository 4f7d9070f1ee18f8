package salesforce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/sfdict/sf-data-dictionary/dictionary"
)

const describeShift = `{
  "name": "Shift__c",
  "fields": [
    { "label": "Record ID", "name": "Id", "inlineHelpText": null, "type": "id" },
    { "label": "Start", "name": "Start__c", "inlineHelpText": "Shift start time", "type": "datetime" },
    { "label": "Unnamed", "name": "  ", "type": "string" },
    { "label": "Facility", "name": "Facility__c", "type": "reference" }
  ]
}`

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)

	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, rq *http.Request) {
		if err := rq.ParseForm(); err != nil {
			t.Errorf("error parsing token request (%v)", err)
		}

		if rq.Form.Get("grant_type") != "refresh_token" || rq.Form.Get("refresh_token") != "refresh-me" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"abc123","token_type":"Bearer","instance_url":%q}`, srv.URL)
	})

	mux.HandleFunc("/services/data/v59.0/sobjects/Shift__c/describe", func(w http.ResponseWriter, rq *http.Request) {
		if auth := rq.Header.Get("Authorization"); auth != "Bearer abc123" {
			t.Errorf("Incorrect Authorization header - expected:%v, got:%v", "Bearer abc123", auth)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, describeShift)
	})

	mux.HandleFunc("/services/data/v59.0/sobjects/Shift_c/describe", func(w http.ResponseWriter, rq *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `[{"errorCode":"NOT_FOUND","message":"The requested resource does not exist"}]`)
	})

	return srv
}

func TestFields(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	credentials := Credentials{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh-me",
		LoginURL:     srv.URL,
	}

	expected := []dictionary.FieldDescriptor{
		{Label: "Record ID", Name: "Id", HelpText: "", DataType: "id"},
		{Label: "Start", Name: "Start__c", HelpText: "Shift start time", DataType: "datetime"},
		{Label: "Facility", Name: "Facility__c", HelpText: "", DataType: "reference"},
	}

	client := NewClient(context.Background(), credentials, "")

	fields, err := client.Fields(context.Background(), "Shift__c")
	if err != nil {
		t.Fatalf("Unexpected error retrieving fields (%v)", err)
	}

	if !reflect.DeepEqual(fields, expected) {
		t.Errorf("Incorrect fields\n   expected: %v\n   got:      %v", expected, fields)
	}
}

func TestFieldsWithUnknownObject(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	credentials := Credentials{
		RefreshToken: "refresh-me",
		InstanceURL:  srv.URL,
		LoginURL:     srv.URL,
	}

	client := NewClient(context.Background(), credentials, "v59.0")

	_, err := client.Fields(context.Background(), "Shift_c")

	var sferr *Error
	if !errors.As(err, &sferr) {
		t.Fatalf("Expected Salesforce error, got %v", err)
	}

	if sferr.Status != http.StatusNotFound || sferr.Code != "NOT_FOUND" {
		t.Errorf("Incorrect error - expected:%v %v, got:%v %v", http.StatusNotFound, "NOT_FOUND", sferr.Status, sferr.Code)
	}
}

func TestFieldsWithInvalidRefreshToken(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	credentials := Credentials{
		RefreshToken: "expired",
		LoginURL:     srv.URL,
	}

	client := NewClient(context.Background(), credentials, "")

	if _, err := client.Fields(context.Background(), "Shift__c"); err == nil {
		t.Errorf("Expected error for invalid refresh token, got %v", err)
	}
}

func TestOAuth2Config(t *testing.T) {
	config := OAuth2Config(Credentials{LoginURL: "https://example--sandbox.sandbox.my.salesforce.com/"})

	if config.Endpoint.TokenURL != "https://example--sandbox.sandbox.my.salesforce.com/services/oauth2/token" {
		t.Errorf("Incorrect token URL - got %v", config.Endpoint.TokenURL)
	}

	config = OAuth2Config(Credentials{})
	if config.Endpoint.AuthURL != DefaultLoginURL+"/services/oauth2/authorize" {
		t.Errorf("Incorrect authorization URL - got %v", config.Endpoint.AuthURL)
	}
}
