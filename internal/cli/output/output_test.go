package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeText, false, ModeText},
		{ModeMarkdown, true, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "# Tables", FormatHeader(1, "Tables"))
	assert.Equal(t, "### Files", FormatHeader(3, "Files"))
	assert.Equal(t, "###### Deep", FormatHeader(9, "Deep"))
	assert.Equal(t, "# Low", FormatHeader(0, "Low"))
	assert.Equal(t, "- **Rows:** 3", FormatKeyValue("Rows", "3"))
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeMarkdown, false)

	r.Header(2, "Users")
	r.Success("saved")
	r.Muted("1 duplicate row")
	r.Warning("slow")
	r.Error("broken")

	assert.Equal(t, "## Users\n\nsaved\n1 duplicate row\n", out.String())
	assert.Equal(t, "Warning: slow\nError: broken\n", errOut.String())
}

func TestRenderer_Text(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, true)

	r.Success("saved")
	r.StatusLine("users", "success", "")
	r.Error("broken")

	assert.Contains(t, out.String(), "✓ saved")
	assert.Contains(t, out.String(), "users")
	assert.Contains(t, errOut.String(), "✗ broken")
}

func TestRenderer_Table(t *testing.T) {
	headers := []string{"Id", "Name"}
	rows := [][]string{{"1", "Ada"}, {"2", "Grace"}}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table(headers, rows)
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 5)
		assert.Contains(t, lines[0], "Name")
		assert.Equal(t, "| 2 | Grace |", lines[3])
		assert.Equal(t, "(2 rows)", lines[4])
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, true)
		r.Table(headers, rows)
		assert.Contains(t, out.String(), "┌")
		assert.Contains(t, out.String(), "Grace")
		assert.Contains(t, out.String(), "(2 rows)")
	})

	t.Run("empty", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, true)
		r.Table(headers, nil)
		assert.Equal(t, "(0 rows)\n", out.String())
	})
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"rows": 2}))
	assert.JSONEq(t, `{"rows":2}`, out.String())
}
