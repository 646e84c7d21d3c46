package input

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead_ArgsOnly(t *testing.T) {
	r := &Reader{Stdin: strings.NewReader("ignored"), StdinIsTerminal: true}
	got, err := r.Read("urlcheck", []string{"a", "", "b"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestRead_PipedStdin(t *testing.T) {
	r := &Reader{Stdin: strings.NewReader("  piped value\n"), StdinIsTerminal: false}
	got, err := r.Read("urlcheck", []string{"-", "arg"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"arg", "piped value"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRead_EmptyPipe(t *testing.T) {
	r := &Reader{Stdin: strings.NewReader(""), StdinIsTerminal: false}
	got, err := r.Read("dnscheck", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", got)
	}
}

func TestRead_Interactive(t *testing.T) {
	var out bytes.Buffer
	r := &Reader{Stdin: strings.NewReader("typed\n"), StdinIsTerminal: true, Out: &out}
	got, err := r.Read("ipcheck", nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"typed"}) {
		t.Errorf("got %v, want [typed]", got)
	}
	if !strings.Contains(out.String(), InteractivePrompt) {
		t.Errorf("prompt missing from output: %q", out.String())
	}
}

func TestRead_FileSubstitution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.txt")
	if err := os.WriteFile(path, []byte("\nhttps://example.com\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Reader{StdinIsTerminal: true}
	got, err := r.Read("urlcheck", []string{path}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"https://example.com"}) {
		t.Errorf("got %v", got)
	}
}

func TestRead_RejectsBinaryAndDirectory(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "blob.bin")
	if err := os.WriteFile(bin, []byte{0x7f, 'E', 'L', 'F', 0x02}, 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Reader{StdinIsTerminal: true}
	if _, err := r.Read("urlcheck", []string{bin}, false); !errors.Is(err, ErrBinaryFile) {
		t.Errorf("binary: got %v, want ErrBinaryFile", err)
	}
	if _, err := r.Read("urlcheck", []string{dir}, false); !errors.Is(err, ErrDirectory) {
		t.Errorf("directory: got %v, want ErrDirectory", err)
	}
}

func TestIsBinaryFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"text", []byte("hello\tworld\r\n"), false},
		{"empty", nil, false},
		{"nul", []byte("abc\x00def"), true},
		{"form feed", []byte("abc\x0cdef"), true},
		{"delete", []byte("abc\x7f"), true},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		if err := os.WriteFile(path, tt.data, 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := IsBinaryFile(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
