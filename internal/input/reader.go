package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-isatty"
)

// InteractivePrompt is printed before reading interactive input.
const InteractivePrompt = "Enter the text (CTRL+d to finalize):"

var (
	ErrBinaryFile = errors.New("binary file provided, not a text file")
	ErrDirectory  = errors.New("directory provided, not a file")
)

// Reader collects tool input from arguments, files and stdin.
type Reader struct {
	Stdin           io.Reader
	StdinIsTerminal bool
	Out             io.Writer
}

// NewReader returns a Reader bound to the process stdin and stdout.
func NewReader() *Reader {
	return &Reader{
		Stdin:           os.Stdin,
		StdinIsTerminal: StdinIsTerminal(),
		Out:             os.Stdout,
	}
}

// StdinIsTerminal reports whether stdin is attached to a terminal.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Read resolves the values passed to tool name. In interactive mode it
// prints a banner and prompt and appends everything typed on stdin. When
// stdin is piped, "-" placeholders are dropped and the piped text is
// appended. Values naming an existing path are replaced by the file text.
func (r *Reader) Read(name string, values []string, interactive bool) ([]string, error) {
	values = append([]string(nil), values...)

	switch {
	case interactive:
		if r.Out != nil {
			fmt.Fprint(r.Out, figure.NewFigure(name, "", true).String())
			fmt.Fprintln(r.Out, InteractivePrompt)
		}
		text, err := r.readStdin()
		if err != nil {
			return nil, err
		}
		if text != "" {
			values = append(values, text)
		}
	case !r.StdinIsTerminal && r.Stdin != nil:
		kept := values[:0]
		for _, v := range values {
			if v != "-" {
				kept = append(kept, v)
			}
		}
		values = kept
		text, err := r.readStdin()
		if err != nil {
			return nil, err
		}
		values = append(values, text)
	}

	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, err := os.Stat(v); err == nil {
			text, err := ReadTextFile(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", v, err)
			}
			v = text
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *Reader) readStdin() (string, error) {
	if r.Stdin == nil {
		return "", nil
	}
	data, err := io.ReadAll(r.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadTextFile returns the trimmed contents of a text file.
func ReadTextFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrDirectory
	}
	binary, err := IsBinaryFile(path)
	if err != nil {
		return "", err
	}
	if binary {
		return "", ErrBinaryFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// IsBinaryFile reports whether the first 1024 bytes of path contain a
// control byte that never appears in text.
func IsBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	for _, b := range buf[:n] {
		if b < 9 {
			return true, nil
		}
		switch b {
		case 11, 12, 14, 15, 127:
			return true, nil
		}
	}
	return false, nil
}
