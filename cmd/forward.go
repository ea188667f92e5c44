package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailtable/mailtable/internal/forward"
	"github.com/mailtable/mailtable/internal/refs"
	"github.com/mailtable/mailtable/internal/server"
)

func newForwardCmd() *cobra.Command {
	var (
		kind            string
		notes           string
		projects        string
		assignees       string
		people          string
		owner           string
		attachmentIDs   string
		skipAttachments bool
		skipLinks       bool
	)

	cmd := &cobra.Command{
		Use:   "forward <message-id>",
		Short: "Forward a mail message into the record backend",
		Long: `Forward a single mail message into the record backend as a task, doc
or note. Links in the message body are extracted and titled,
attachments are delivered to file hosting and reference tokens
(project and collaborator names or record IDs) are resolved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := forward.ParseKind(kind)
			if err != nil {
				return err
			}

			ctx := context.Background()
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			sc, err := server.NewServerContext(ctx, logger)
			if err != nil {
				return fmt.Errorf("failed to create server context: %w", err)
			}
			defer func() {
				_ = sc.Shutdown()
			}()

			session, err := sc.Session()
			if err != nil {
				return err
			}

			req := forward.Request{
				MessageID:       args[0],
				Kind:            k,
				Notes:           notes,
				ProjectTokens:   projects,
				AssigneeTokens:  assignees,
				PeopleTokens:    people,
				Owner:           owner,
				SkipAttachments: skipAttachments,
				SkipLinks:       skipLinks,
			}
			if attachmentIDs != "" {
				req.AttachmentIDs = refs.SplitTokens(attachmentIDs)
			}

			result, err := session.Forward(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to forward message: %w", err)
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "task", "Record kind: task, doc or note")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes to prepend to the record body")
	cmd.Flags().StringVar(&projects, "projects", "", "Comma-separated project record IDs or names")
	cmd.Flags().StringVar(&assignees, "assignees", "", "Comma-separated collaborator record IDs or names")
	cmd.Flags().StringVar(&people, "people", "", "Comma-separated external people record IDs or names")
	cmd.Flags().StringVar(&owner, "owner", "", "A single collaborator record ID, name or email address")
	cmd.Flags().StringVar(&attachmentIDs, "attachments", "", "Comma-separated attachment IDs to deliver (default: all)")
	cmd.Flags().BoolVar(&skipAttachments, "skip-attachments", false, "Skip attachment delivery entirely")
	cmd.Flags().BoolVar(&skipLinks, "skip-links", false, "Skip link extraction entirely")

	return cmd
}
