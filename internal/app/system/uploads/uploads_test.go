package uploads

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func newStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/srv/uploads", "/uploads/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, fs
}

func TestSaveAndRemove(t *testing.T) {
	s, fs := newStore(t)

	n, err := s.Save("a.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len("png-bytes")) {
		t.Errorf("Save wrote %d bytes", n)
	}
	data, err := afero.ReadFile(fs, "/srv/uploads/a.png")
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
	if !s.Exists("a.png") {
		t.Error("expected file to exist")
	}

	if err := s.Remove("a.png"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("a.png") {
		t.Error("expected file to be removed")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestSave_RemovesPartialFile(t *testing.T) {
	s, _ := newStore(t)

	if _, err := s.Save("b.png", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	if s.Exists("b.png") {
		t.Error("partial file must be removed")
	}
}

func TestSave_RejectsPaths(t *testing.T) {
	s, _ := newStore(t)
	for _, name := range []string{"", "../x.png", "sub/x.png"} {
		if _, err := s.Save(name, strings.NewReader("x")); err == nil {
			t.Errorf("Save(%q) should fail", name)
		}
	}
}

func TestURL(t *testing.T) {
	s, _ := newStore(t)
	if got := s.URL("avatar-1.png"); got != "/uploads/avatar-1.png" {
		t.Errorf("URL = %q", got)
	}
}

func TestLocalName(t *testing.T) {
	s, _ := newStore(t)

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"/uploads/avatar-1.png", "avatar-1.png", true},
		{"https://cdn.example.com/uploads/avatar-1.png", "", false},
		{"HTTP://example.com/a.png", "", false},
		{"/static/avatar-1.png", "", false},
		{"/uploads/../etc/passwd", "", false},
		{"/uploads/", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := s.LocalName(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LocalName(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAvatarFileName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	re := regexp.MustCompile(`^avatar-1700000000123-[0-9a-f]{8}\.jpg$`)

	name := AvatarFileName("Photo.JPG", now)
	if !re.MatchString(name) {
		t.Errorf("AvatarFileName = %q", name)
	}
	if other := AvatarFileName("Photo.JPG", now); other == name {
		t.Error("expected a random suffix")
	}
	if got := AvatarFileName("noext", now); strings.Contains(got, ".") {
		t.Errorf("AvatarFileName without extension = %q", got)
	}
}

func TestLimitReader(t *testing.T) {
	s, _ := newStore(t)

	n, err := s.Save("exact.png", LimitReader(strings.NewReader("12345"), 5))
	if err != nil || n != 5 {
		t.Fatalf("Save at the cap: n=%d err=%v", n, err)
	}

	_, err = s.Save("big.png", LimitReader(strings.NewReader("123456"), 5))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if s.Exists("big.png") {
		t.Error("oversized file was left behind")
	}
}
