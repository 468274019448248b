// Command oauth-init walks through the Google OAuth consent flow once and
// saves the resulting token for the report worker to use.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"budgetbee/internal/cli"
	"budgetbee/internal/config"
	"budgetbee/internal/export"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	oauthCfg, err := export.LoadOAuthConfig(cfg)
	if err != nil {
		log.Fatalf("oauth config: %v", err)
	}

	// The local callback server receives the authorization code. The OAuth
	// client must list this URI among its authorized redirect URIs.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	oauthCfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	srv := &http.Server{Addr: ":" + redirectPort}
	http.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- code
		go func() { time.Sleep(500 * time.Millisecond); _ = srv.Close() }()
	})
	go func() { _ = srv.ListenAndServe() }()

	url := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open this URL to authorize:\n%s\n", url)

	select {
	case code := <-codeCh:
		token, err := oauthCfg.Exchange(context.Background(), code)
		if err != nil {
			log.Fatalf("token exchange: %v", err)
		}
		outFile := cfg.GoogleOAuthTokenFile
		if outFile == "" {
			outFile = "token.json"
		}
		if err := export.SaveToken(outFile, token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("Token saved to %s\n", outFile)
	case <-time.After(5 * time.Minute):
		log.Fatalf("timed out waiting for authorization")
	}
}
