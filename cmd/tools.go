package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Vasu1712/scenyx-present/internal/auth"
	"github.com/Vasu1712/scenyx-present/internal/config"
	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

// readPresentation loads a presentation file, typed by its extension.
func readPresentation(path string) (*models.Presentation, error) {
	typ, ok := models.TypeFromFilename(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnsupportedType, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &models.Presentation{Name: name, Filename: filepath.Base(path), Type: typ, Content: data}, nil
}

func newRenderCmd() *cobra.Command {
	var (
		preview bool
		out     string
	)
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a .deck or .md presentation to slide markup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPresentation(args[0])
			if err != nil {
				return codeError(3, "%s", err)
			}
			html := deck.RenderPresentation(p)
			if preview {
				html = deck.RenderPreview(p)
			}
			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), html)
				return err
			}
			return os.WriteFile(out, []byte(html), 0o644)
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "Render with every beat visible")
	cmd.Flags().StringVar(&out, "out", "", "Write output to file instead of stdout")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a presentation parses and report its slide count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPresentation(args[0])
			if err != nil {
				return codeError(3, "%s", err)
			}
			if p.Type == models.TypeDeck {
				if err := deck.ValidateJSON(p.Content); err != nil {
					return codeError(2, "%s: %s", args[0], err)
				}
			}
			index, err := deck.IndexOf(p)
			if err != nil {
				return codeError(2, "%s: %s", args[0], err)
			}
			notes := 0
			for _, n := range index.Notes {
				if n.Text != "" {
					notes++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d slides, %d with notes\n", args[0], index.TotalSlides, notes)
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	var exitCode bool
	cmd := &cobra.Command{
		Use:   "diff <before.deck> <after.deck>",
		Short: "Show how two decks differ, scene by scene",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var decks [2]*models.Deck
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return codeError(3, "%s", err)
				}
				if decks[i], err = deck.Parse(data); err != nil {
					return codeError(2, "%s: %s", path, err)
				}
			}
			patch := deck.Diff(decks[0], decks[1])
			if patch == "" {
				return nil
			}
			io.WriteString(cmd.OutOrStdout(), patch)
			if exitCode {
				return codeError(1, "decks differ")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit 1 when the decks differ")
	return cmd
}

const markdownStarter = `---
title: %q
---
# %s

Note: Opening remarks.

---

# Thank you
`

func newNewCmd() *cobra.Command {
	var (
		dir      string
		markdown bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a starter presentation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			var (
				content []byte
				typ     = models.TypeDeck
			)
			if markdown {
				typ = models.TypeMarkdown
				content = fmt.Appendf(nil, markdownStarter, title, title)
			} else {
				raw, err := json.MarshalIndent(deck.CreateEmpty(title), "", "  ")
				if err != nil {
					return err
				}
				content = append(raw, '\n')
			}

			path := filepath.Join(dir, deck.Slug(title)+typ.Extension())
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if !force {
				flags |= os.O_EXCL
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if errors.Is(err, os.ErrExist) {
				return codeError(3, "%s already exists; use --force to overwrite", path)
			}
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := f.Write(content); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to create the presentation in")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Create a markdown presentation instead of a deck")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newHashPassphraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passphrase [passphrase]",
		Short: "Print a bcrypt hash for PRESENTER_PASSPHRASE_HASH",
		Long:  "Hashes the passphrase argument, or the first line of stdin when none is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var passphrase string
			if len(args) == 1 {
				passphrase = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				passphrase = strings.TrimRight(line, "\r\n")
			}
			if passphrase == "" {
				return codeError(2, "empty passphrase")
			}
			hash, err := auth.HashPassphrase(passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a presenter token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return codeError(2, "%s", err)
			}
			if cfg.JWTSecret == "" {
				return codeError(2, "JWT_SECRET is not set")
			}
			token, expires, err := auth.New(cfg.JWTSecret, "", cfg.TokenTTL).Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "presenter", "Token subject")
	return cmd
}
