package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailtable/mailtable/internal/googleauth"
	"github.com/mailtable/mailtable/internal/msauth"
)

func newAuthorizeCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "authorize [mail|gdrive]",
		Short: "Authorize access to the mailbox or to Google Drive",
		Long: `Authorize mailtable to access your mailbox (default) or Google Drive.

Without --code, prints the URL to visit in a browser. Visit it, sign
in, grant access and copy the authorization code from the redirect.
Then run the command again with --code to complete authorization.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := "mail"
			if len(args) == 1 {
				service = args[0]
			}

			switch service {
			case "mail":
				return authorizeMail(code)
			case "gdrive":
				return authorizeGDrive(cmd.Context(), code)
			default:
				return fmt.Errorf("unknown service %q (supported: mail, gdrive)", service)
			}
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the OAuth redirect")

	return cmd
}

func authorizeMail(code string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	broker := msauth.NewBroker(msauth.ConfigFromEnv(), logger)

	if code != "" {
		if err := broker.SavePendingAuthCode(code); err != nil {
			return fmt.Errorf("failed to save authorization code: %w", err)
		}
		fmt.Println("Authorization code saved. It will be exchanged for a token on the next mail operation.")
		return nil
	}

	authURL := broker.AuthURL()
	if authURL == "" {
		return fmt.Errorf("mailbox access is not configured: set MAILTABLE_MSGRAPH_CLIENT_ID and MAILTABLE_MSGRAPH_TENANT_ID")
	}

	fmt.Printf("Visit this URL to authorize mailbox access:\n\n  %s\n\nThen run: mailtable authorize mail --code <code>\n", authURL)
	return nil
}

func authorizeGDrive(ctx context.Context, code string) error {
	cfg := googleauth.ConfigFromEnv()
	if !cfg.Complete() {
		return fmt.Errorf("google drive access is not configured: set MAILTABLE_GOOGLE_CLIENT_ID and MAILTABLE_GOOGLE_CLIENT_SECRET")
	}

	if code != "" {
		if err := cfg.SaveToken(ctx, code); err != nil {
			return fmt.Errorf("failed to exchange authorization code: %w", err)
		}
		fmt.Println("Google Drive token saved.")
		return nil
	}

	fmt.Printf("Visit this URL to authorize Google Drive access:\n\n  %s\n\nThen run: mailtable authorize gdrive --code <code>\n", cfg.GetAuthURL())
	return nil
}
