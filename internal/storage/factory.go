package storage

import (
	"context"
	"fmt"

	"earthtour/internal/adapters/storage/gdrive"
	"earthtour/internal/adapters/storage/localfs"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// GDriveOptions carries the OAuth credentials for the Google Drive adapter.
// The refresh token can be obtained with the gdrive-auth helper command.
type GDriveOptions struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

type Options struct {
	// Provider selects the adapter: "localfs" (default) or "gdrive".
	Provider  string
	LocalRoot string
	GDrive    GDriveOptions
}

func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	provider := opts.Provider
	if provider == "" {
		provider = "localfs"
	}

	switch provider {
	case "localfs":
		if opts.LocalRoot == "" {
			return nil, fmt.Errorf("localfs storage requires a root directory")
		}
		return localfs.New(opts.LocalRoot), nil

	case "gdrive":
		return newGDriveProvider(ctx, opts.GDrive)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

func newGDriveProvider(ctx context.Context, opts GDriveOptions) (Provider, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" || opts.RefreshToken == "" {
		return nil, fmt.Errorf("gdrive storage requires client id, client secret and refresh token")
	}

	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: opts.RefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, opts.FolderID), nil
}
