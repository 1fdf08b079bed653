// Command google-auth runs the OAuth consent flow once and prints the
// refresh token used by the gdrive storage provider and the Sheets importer.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	sheets "google.golang.org/api/sheets/v4"
)

func main() {
	withDrive := flag.Bool("drive", true, "request the drive.file scope (artifact storage)")
	withSheets := flag.Bool("sheets", true, "request the read-only Sheets scope (imports)")
	flag.Parse()

	var scopes []string
	if *withDrive {
		scopes = append(scopes, drive.DriveFileScope)
	}
	if *withSheets {
		scopes = append(scopes, sheets.SpreadsheetsReadonlyScope)
	}
	if len(scopes) == 0 {
		log.Fatal("at least one of -drive or -sheets is required")
	}

	ctx := context.Background()

	clientID := mustEnv("GOOGLE_CLIENT_ID", "GDRIVE_CLIENT_ID")
	clientSecret := mustEnv("GOOGLE_CLIENT_SECRET", "GDRIVE_CLIENT_SECRET")

	// Local callback on a free port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal(err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
		RedirectURL:  redirectURL,
	}

	state := randomState()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			errCh <- fmt.Errorf("invalid state")
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "auth error: "+e, http.StatusBadRequest)
			errCh <- fmt.Errorf("auth error: %s", e)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("missing code")
			return
		}

		fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
		codeCh <- code
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()

	// offline access yields a refresh token
	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Println("Open this URL in your browser:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()
	fmt.Println("Waiting for authorization on", redirectURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		_ = srv.Close()
		log.Fatal(err)
	case <-time.After(3 * time.Minute):
		_ = srv.Close()
		log.Fatal("timed out waiting for authorization")
	}

	_ = srv.Close()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		log.Fatal(err)
	}

	// Google omits the refresh token when the app was already authorized
	// without prompt=consent.
	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Println()
		fmt.Println("No refresh_token was returned.")
		fmt.Println("Revoke the app's previous access in your Google Account and run this command again:")
		fmt.Println("https://myaccount.google.com/permissions")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("REFRESH TOKEN (set GDRIVE_REFRESH_TOKEN and/or GOOGLE_SHEETS_REFRESH_TOKEN):")
	fmt.Println()
	fmt.Println(tok.RefreshToken)
}

// mustEnv returns the first non-empty variable among keys.
func mustEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	log.Fatalf("missing env: %s", strings.Join(keys, " or "))
	return ""
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
