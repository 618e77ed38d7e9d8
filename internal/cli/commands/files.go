package commands

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// NewFilesCommand creates the files command group.
func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Browse and manage the file store",
		Long: `Browse and manage the backend's folder-structured file store.

Folders are addressed by path ("/", "/reports/2024"); files and folders by
the id shown in listings.`,
	}

	cmd.AddCommand(newFilesListCommand())
	cmd.AddCommand(newFilesMkdirCommand())
	cmd.AddCommand(newFilesUploadCommand())
	cmd.AddCommand(newFilesDownloadCommand())
	cmd.AddCommand(newFilesCatCommand())
	cmd.AddCommand(newFilesRemoveCommand())

	return cmd
}

func newFilesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls [folder]",
		Aliases: []string{"list"},
		Short:   "List a folder",
		Example: `  leapconsole files ls /reports`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := core.RootFolder
			if len(args) > 0 {
				folder = core.CleanFolder(args[0])
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := c.ListFiles(cmd.Context(), folder)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(core.FilesResponse{Files: entries})
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				size := ""
				if !e.IsFolder() {
					size = humanize.IBytes(uint64(max(e.Size(), 0)))
				}
				rows[i] = []string{e.Name, string(e.Type), size, e.Mime(), e.ID}
			}
			r.Header(2, folder)
			r.Table([]string{"Name", "Type", "Size", "Mime Type", "ID"}, rows)
			return nil
		},
	}
}

func newFilesMkdirCommand() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:     "mkdir <name>",
		Short:   "Create a folder",
		Example: `  leapconsole files mkdir 2024 --parent /reports`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.ValidateEntryName(args[0]); err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			parent = core.CleanFolder(parent)
			if err := c.CreateFolder(cmd.Context(), args[0], parent); err != nil {
				return err
			}
			cc.Renderer.Success("Created " + core.JoinFolder(parent, args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", core.RootFolder, "Parent folder path")

	return cmd
}

func newFilesUploadCommand() *cobra.Command {
	var (
		folder   string
		name     string
		mimeType string
	)

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file",
		Example: `  # Upload into the root folder
  leapconsole files upload report.pdf

  # Upload under another name into a folder
  leapconsole files upload ./out.csv --folder /reports --name march.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			if mimeType == "" {
				mimeType = detectMimeType(name, data)
			}

			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			up := core.Upload{
				Name:         name,
				ParentFolder: core.CleanFolder(folder),
				Data:         data,
				MimeType:     mimeType,
				Size:         int64(len(data)),
			}
			if err := c.UploadFile(cmd.Context(), up); err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("Uploaded %s (%s)", core.JoinFolder(up.ParentFolder, name), humanize.IBytes(uint64(len(data)))))
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", core.RootFolder, "Destination folder path")
	cmd.Flags().StringVar(&name, "name", "", "Name in the file store (default: local file name)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "MIME type (default: detected)")

	return cmd
}

// detectMimeType guesses from the extension, then from the content.
func detectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func newFilesDownloadCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a file",
		Long: `Download a file by id. It is saved under download_dir with its stored
name unless --out names a path; "-" writes to stdout.`,
		Example: `  leapconsole files download 3f2a... --out ./report.pdf`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			dl, err := c.DownloadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(dl.Data)
				return err
			}
			path := out
			if path == "" {
				name := dl.Name
				if name == "" {
					name = args[0]
				}
				path = filepath.Join(cc.Cfg.DownloadDir, filepath.Base(name))
			}
			if err := os.WriteFile(path, dl.Data, 0o600); err != nil {
				return fmt.Errorf("failed to save download: %w", err)
			}
			cc.Renderer.Success(fmt.Sprintf("Saved %s (%s)", path, humanize.IBytes(uint64(len(dl.Data)))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "O", "", "Destination path, or - for stdout")

	return cmd
}

func newFilesCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <id>",
		Short: "Print a text file",
		Long: `Print a text file to stdout. HTML files are converted to markdown
first; binary files are refused.`,
		Example: `  leapconsole files cat 3f2a...`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			dl, err := c.DownloadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := fileText(dl.Name, dl.MimeType, dl.Data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
			return err
		},
	}
}

// fileText returns printable contents, converting HTML to markdown.
func fileText(name, mimeType string, data []byte) (string, error) {
	if mimeType == "" {
		mimeType = detectMimeType(name, data)
	}
	mediaType, _, _ := mime.ParseMediaType(mimeType)
	if mediaType == "text/html" {
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("failed to convert %s: %w", name, err)
		}
		return md, nil
	}
	if !utf8.Valid(data) || strings.ContainsRune(string(data), 0) {
		return "", fmt.Errorf("%s is not a text file (%s); use files download", name, mimeType)
	}
	return string(data), nil
}

func newFilesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a file or folder",
		Long:    `Delete a file, or a folder together with everything under it.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.DeleteFile(cmd.Context(), args[0]); err != nil {
				return err
			}
			cc.Renderer.Success("Deleted " + args[0])
			return nil
		},
	}
}
