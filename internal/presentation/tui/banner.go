package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the framesync banner, colored when w's terminal supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Two frames, one hash: teal to indigo.
	lines := []struct {
		text  string
		color string
	}{
		{"  ___                                        ", "#2dd4bf"},
		{" | __| _ __ _ _ __  ___ ____  _ _ _  __     ", "#22d3ee"},
		{" | _| '_/ _` | '  \\/ -_|_-< || | ' \\/ _|    ", "#38bdf8"},
		{" |_||_| \\__,_|_|_|_\\___/__/\\_, |_||_\\__|    ", "#60a5fa"},
		{"                           |__/  #!/" + version, "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
