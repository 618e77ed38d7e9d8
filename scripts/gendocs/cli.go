package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapconsole/internal/cli"
	"github.com/leapstack-labs/leapconsole/internal/cli/config"
)

// generateCLIDocs writes an index page plus one page per top-level command.
// Command groups such as files and rows document every subcommand on the
// group's page.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	if err := writePage(filepath.Join(outDir, "index.md"), cliIndex(root)); err != nil {
		return err
	}
	for _, cmd := range documented(root) {
		if err := writePage(filepath.Join(outDir, cmd.Name()+".md"), commandPage(cmd)); err != nil {
			return err
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}
	return nil
}

func writePage(path string, w *MarkdownWriter) error {
	if err := os.WriteFile(path, w.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// documented returns the visible children of cmd.
func documented(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func cliIndex(root *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line reference for leapconsole")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(cleanDescription(root.Long))
	w.CodeBlock("bash", "leapconsole <command> [options]")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documented(root) {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Every key in " + InlineCode("leapconsole.yaml") + " can be set from the environment. " +
		"Prefix it with " + InlineCode(config.EnvPrefix) + " and separate nesting levels with a double underscore. " +
		"Flags take precedence over the environment.")
	rows = nil
	for _, f := range getConfigSchema() {
		if f.Type == "list" {
			continue
		}
		rows = append(rows, []string{InlineCode(envName(f.Name)), f.Description})
	}
	w.Table([]string{"Variable", "Description"}, rows)
	return w
}

// envName maps a config key such as server.database.dsn to its variable.
func envName(key string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()
	w.Header(1, cmd.Name())
	writeCommand(w, cmd, 2)

	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}
	return w
}

// writeCommand documents cmd and, below it, each of its subcommands.
func writeCommand(w *MarkdownWriter, cmd *cobra.Command, level int) {
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(cleanDescription(desc))
	w.CodeBlock("bash", usage(cmd))

	if flags := cmd.LocalNonPersistentFlags(); flags.HasAvailableFlags() {
		w.Header(level+1, "Options")
		writeFlagsTable(w, flags)
	}
	if cmd.Example != "" {
		w.Header(level+1, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}

	for _, sub := range documented(cmd) {
		w.Header(level, cmd.Name()+" "+sub.Name())
		writeCommand(w, sub, level+1)
	}
}

func usage(cmd *cobra.Command) string {
	if cmd.HasAvailableSubCommands() && !cmd.Runnable() {
		return cmd.CommandPath() + " <subcommand> [options]"
	}
	return cmd.UseLine()
}

func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		if f.Value.Type() == "string" && def != "" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

// dedent strips the two-space indent cobra examples are written with.
func dedent(example string) string {
	lines := strings.Split(example, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
