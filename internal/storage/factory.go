// Package storage builds the artifact storage provider and the Google API
// clients from configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"menuforge/internal/adapters/storage/gdrive"
	"menuforge/internal/adapters/storage/localfs"
	"menuforge/internal/config"
	"menuforge/internal/ports"
)

// ErrSheetsDisabled is returned by NewSheetsService when no credential is set.
var ErrSheetsDisabled = errors.New("google sheets credentials not configured")

// NewProvider returns the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.StorageConfig) (ports.StorageProvider, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "localfs"
	}

	switch provider {
	case "localfs":
		if cfg.LocalRoot == "" {
			return nil, errors.New("storage: local root is required for localfs")
		}
		return localfs.New(cfg.LocalRoot), nil

	case "gdrive":
		return newGDriveProvider(ctx, cfg.GDrive)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

func newGDriveProvider(ctx context.Context, g config.GoogleConfig) (ports.StorageProvider, error) {
	httpClient, err := oauthClient(ctx, g, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("gdrive: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, g.FolderID), nil
}

// NewSheetsService returns a read-only Sheets client. An API key is enough
// for sheets shared by link; the OAuth refresh token also reaches private
// sheets of the consenting account.
func NewSheetsService(ctx context.Context, cfg config.SheetsConfig) (*sheets.Service, error) {
	switch {
	case cfg.OAuth.RefreshToken != "":
		httpClient, err := oauthClient(ctx, cfg.OAuth, sheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: %w", err)
		}
		return sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	case cfg.APIKey != "":
		return sheets.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, ErrSheetsDisabled
	}
}

// oauthClient returns an HTTP client that refreshes access tokens from the
// stored refresh token.
func oauthClient(ctx context.Context, g config.GoogleConfig, scopes ...string) (*http.Client, error) {
	if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
		return nil, errors.New("client id, client secret and refresh token are required")
	}

	conf := &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}

	tok := &oauth2.Token{RefreshToken: g.RefreshToken}
	return conf.Client(ctx, tok), nil
}
