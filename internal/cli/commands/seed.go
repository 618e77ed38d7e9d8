package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
	"github.com/leapstack-labs/leapconsole/internal/store"
)

// SeedOptions holds options for the seed command.
type SeedOptions struct {
	Force    bool
	Fixtures string
}

// seedOutput is the JSON shape of a seed run.
type seedOutput struct {
	Skipped  bool           `json:"skipped"`
	Existing []string       `json:"existing"`
	Created  map[string]int `json:"created"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create and fill sample tables",
		Long: `Create and fill the sample users, products and tasks tables.

Seeding only runs against a database without user tables unless --force is
given, in which case tables that already exist are left alone.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Seed the configured database
  leapconsole seed

  # Seed tables from your own fixture file
  leapconsole seed --fixtures fixtures.yaml --force

  # Report as JSON
  leapconsole seed --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Seed even when user tables exist")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "YAML fixture file (default: built-in sample tables)")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	fixtures, err := loadFixtures(opts.Fixtures)
	if err != nil {
		return err
	}

	st, cleanup, err := cc.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	res, err := st.Seed(ctx, fixtures, opts.Force)
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(seedOutput{Skipped: res.Skipped, Existing: res.Existing, Created: res.Created})
	case output.ModeMarkdown:
		seedMarkdown(r, res)
	default:
		seedText(r, res)
	}
	return nil
}

func loadFixtures(path string) (*store.Fixtures, error) {
	if path == "" {
		return store.SampleFixtures()
	}
	f, err := os.Open(path) //nolint:gosec // user-supplied fixture path
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer func() { _ = f.Close() }()
	return store.ParseFixtures(f)
}

func createdNames(res *store.SeedResult) []string {
	names := make([]string, 0, len(res.Created))
	for name := range res.Created {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// seedText outputs seed results in styled text format.
func seedText(r *output.Renderer, res *store.SeedResult) {
	if res.Skipped {
		r.Muted(fmt.Sprintf("Database already has %d tables; nothing seeded (use --force)", len(res.Existing)))
		return
	}
	r.Header(2, "Seeded Tables")
	for _, name := range createdNames(res) {
		r.StatusLine(name, "success", fmt.Sprintf("%d rows", res.Created[name]))
	}
	if len(res.Created) == 0 {
		r.Muted("Every fixture table already exists")
	}
}

// seedMarkdown outputs seed results in markdown format.
func seedMarkdown(r *output.Renderer, res *store.SeedResult) {
	r.Println(output.FormatHeader(1, "Seed"))
	r.Println("")
	if res.Skipped {
		r.Println(output.FormatKeyValue("Skipped", fmt.Sprintf("database already has %d tables", len(res.Existing))))
		return
	}
	for _, name := range createdNames(res) {
		r.Println(output.FormatKeyValue(name, fmt.Sprintf("%d rows", res.Created[name])))
	}
	r.Printf("**Total Tables:** %d\n", len(res.Created))
}
