package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"flow-ai/chatsync/internal/reconciler"
	"flow-ai/chatsync/internal/upload"
)

func newSendCmd(opts *options) *cobra.Command {
	var conversationID string
	var files []string

	cmd := &cobra.Command{
		Use:   "send [text]",
		Short: "Send a message and stream the reply",
		Long: `Send a message to a new or existing conversation and stream the reply.

Example usage:
  chatsync send "Summarize the attached report" --file report.pdf
  chatsync send --conversation 3f2a... "And the second chapter?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(cmd, opts)
			if err != nil {
				return err
			}
			if conversationID != "" {
				if err := eng.rec.Open(cmd.Context(), conversationID); err != nil {
					return err
				}
			}

			attachments, closeAll, err := openFiles(files)
			if err != nil {
				return err
			}
			defer closeAll()
			for _, f := range attachments {
				writef(cmd.ErrOrStderr(), "uploading %s (%s)\n", f.Name, humanize.Bytes(uint64(f.Size)))
			}

			err = eng.rec.Submit(cmd.Context(), reconciler.SubmitRequest{
				Text:  strings.Join(args, " "),
				Files: attachments,
			})
			eng.renderer.endStream()
			if err != nil {
				return err
			}
			writef(cmd.ErrOrStderr(), "conversation: %s\n", eng.rec.ConversationID())
			return nil
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation to continue (default: start a new one)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "attach a file (repeatable)")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "history [conversation-id]",
		Short: "Print the active path of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(cmd, opts)
			if err != nil {
				return err
			}
			if err := eng.rec.Open(cmd.Context(), args[0]); err != nil {
				return err
			}
			for all && eng.rec.HasOlder() {
				if err := eng.rec.LoadOlder(cmd.Context()); err != nil {
					return err
				}
			}
			printMessages(cmd.OutOrStdout(), eng.rec.Messages())
			if eng.rec.HasOlder() {
				writef(cmd.ErrOrStderr(), "older messages available, use --all\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "load every page, not only the latest")
	return cmd
}

func newVersionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "versions [root-message-id]",
		Short: "List every version of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(cmd, opts)
			if err != nil {
				return err
			}
			members, err := eng.rec.Versions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printMessages(cmd.OutOrStdout(), members)
			return nil
		},
	}
}

func newEditCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [message-id] [text]",
		Short: "Edit a user message and stream a fresh reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(cmd, opts)
			if err != nil {
				return err
			}
			err = eng.rec.EditAndResubmit(cmd.Context(), args[0], strings.Join(args[1:], " "), nil)
			eng.renderer.endStream()
			return err
		},
	}
}

func newSwitchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "switch [conversation-id] [root-message-id] [version]",
		Short: "Print a conversation as seen with another version selected",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 1 {
				return fmt.Errorf("version must be a positive integer, got %q", args[2])
			}
			eng, err := newEngine(cmd, opts)
			if err != nil {
				return err
			}
			if err := eng.rec.Open(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := eng.rec.SwitchVersion(cmd.Context(), args[1], n); err != nil {
				return err
			}
			printMessages(cmd.OutOrStdout(), eng.rec.Messages())
			return nil
		},
	}
}

// openFiles opens the attachments for reading. The returned func closes them.
func openFiles(paths []string) ([]upload.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]upload.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("could not open %s: %w", p, err)
		}
		opened = append(opened, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("could not stat %s: %w", p, err)
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory", p)
		}
		files = append(files, upload.File{Name: filepath.Base(p), Size: info.Size(), Content: f})
	}
	return files, closeAll, nil
}
