package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fpang/genprompt/internal/media"
	"github.com/ncruces/zenity"
)

// ErrCanceled is returned when the user dismisses the file picker.
var ErrCanceled = errors.New("image selection canceled")

// PickImage opens a native file dialog filtered to supported images.
func PickImage(title string) (string, error) {
	patterns := make([]string, 0, len(media.SupportedImageExtensions))
	for ext := range media.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	sort.Strings(patterns)

	path, err := zenity.SelectFile(
		zenity.Title(title),
		zenity.FileFilters{{Name: "Images", Patterns: patterns}},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("file picker: %w", err)
	}
	return path, nil
}

// PromptForLine writes label to out and reads one trimmed line from in.
// It returns def when the line is empty.
func PromptForLine(in io.Reader, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
