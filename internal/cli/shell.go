package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiverify/aiv-upload/internal/registry"
	"github.com/aiverify/aiv-upload/internal/upload"
)

const shellPrompt = "aiv> "

const shellHelp = `Commands:
  add <path>...             Queue folders (a folder picked again replaces its files)
  pick <manifest> [base]    Queue the relative paths listed in a manifest
  pickdir <dir>...          Queue every file under each directory in one pass
  remove <folder>           Remove a queued folder
  list                      Show the queue
  clear                     Remove every folder
  submit                    Upload the queue; failed folders stay queued
  help                      Show this help
  quit                      Leave the shell
`

func newShellCmd() *cobra.Command {
	var includeHidden bool
	var workers int

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive upload queue",
		Long: `Start an interactive session holding an upload queue.

Folders can be added, replaced and removed before submitting. After a
submission, successful folders leave the queue and failed folders stay
queued so "submit" retries them.

` + shellHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("include-hidden") {
				cfg.IncludeHidden = includeHidden
			}
			if cmd.Flags().Changed("workers") {
				cfg.UploadWorkers = workers
			}

			ctx := GetContext()
			s, err := newSession(ctx, cfg, cmd.OutOrStdout(), GetLogger())
			if err != nil {
				return err
			}
			defer s.Close()

			return s.runShell(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Include dot-files and dot-directories")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Folders uploaded concurrently (default from config)")

	return cmd
}

// runShell reads commands from in until quit, EOF or cancellation.
func (s *session) runShell(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, shellPrompt)
	for scanner.Scan() {
		quit, err := s.exec(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(s.out, shellPrompt)
	}
	fmt.Fprintln(s.out)
	return scanner.Err()
}

// exec runs one shell line. It reports whether the shell should exit.
func (s *session) exec(ctx context.Context, line string) (bool, error) {
	args, err := splitArgs(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}

	switch cmd, rest := strings.ToLower(args[0]), args[1:]; cmd {
	case "add":
		if len(rest) == 0 {
			return false, fmt.Errorf("usage: add <path>...")
		}
		entries, err := s.collectPaths(ctx, rest)
		if err != nil {
			return false, err
		}
		if len(entries) == 0 {
			fmt.Fprintln(s.out, "No files found.")
			return false, nil
		}
		s.add(entries)

	case "pick":
		if len(rest) == 0 || len(rest) > 2 {
			return false, fmt.Errorf("usage: pick <manifest> [base]")
		}
		base := "."
		if len(rest) == 2 {
			base = rest[1]
		}
		entries, err := s.collectManifest(rest[0], base)
		if err != nil {
			return false, err
		}
		s.add(entries)

	case "pickdir":
		if len(rest) == 0 {
			return false, fmt.Errorf("usage: pickdir <dir>...")
		}
		entries, err := s.collectPicked(rest)
		if err != nil {
			return false, err
		}
		if len(entries) == 0 {
			fmt.Fprintln(s.out, "No files found.")
			return false, nil
		}
		s.add(entries)

	case "remove", "rm":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: remove <folder>")
		}
		if !s.queue.Remove(rest[0]) {
			return false, fmt.Errorf("folder %q is not queued", rest[0])
		}
		fmt.Fprintf(s.out, "Removed folder: %s\n", rest[0])

	case "list", "ls":
		snap := s.queue.Snapshot()
		fmt.Fprint(s.out, registry.DescribeQueue(snap))
		if snap.Count() > 0 {
			fmt.Fprintf(s.out, "submit: %s\n", snap.SubmitLabel())
		}

	case "clear":
		s.queue.Clear()
		fmt.Fprintln(s.out, "Queue cleared.")

	case "submit":
		if _, err := s.submit(ctx); err != nil {
			if errors.Is(err, upload.ErrNoFolders) || errors.Is(err, upload.ErrInvalidFolderNames) {
				// Already shown in the status box.
				return false, nil
			}
			return false, err
		}
		if left := s.queue.Snapshot(); left.Count() > 0 {
			fmt.Fprintf(s.out, "Still queued for retry %s\n", left.Summary())
		}

	case "help", "?":
		fmt.Fprint(s.out, shellHelp)

	case "quit", "exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
	return false, nil
}

// splitArgs splits a line on whitespace. Single or double quotes group words,
// so folder names with spaces can be given.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}
