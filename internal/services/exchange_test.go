package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/altmarkt/altmarkt-backend/internal/modules/exchange"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
)

func TestSanitizeRelPath(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain file", in: "import0_1.xml", want: "import0_1.xml"},
		{name: "subdirectory", in: "import_files/widget.jpg", want: filepath.Join("import_files", "widget.jpg")},
		{name: "dot segments collapse", in: "a/./b.xml", want: filepath.Join("a", "b.xml")},
		{name: "empty", in: "", wantErr: true},
		{name: "absolute", in: "/etc/passwd", wantErr: true},
		{name: "traversal", in: "../7/import.xml", wantErr: true},
		{name: "hidden traversal", in: "a/../../import.xml", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sanitizeRelPath(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("sanitizeRelPath(%q) accepted, want error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("sanitizeRelPath(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("sanitizeRelPath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestReceiveFile(t *testing.T) {
	root := t.TempDir()
	log := logger.NewNop()
	svc := NewExchangeService(log, exchange.NewScanner(root, log), nil, 1<<20)

	n, err := svc.ReceiveFile(context.Background(), 7, "import0_1.xml", strings.NewReader("<x/>"))
	if err != nil {
		t.Fatalf("ReceiveFile: %v", err)
	}
	if n != 4 {
		t.Errorf("wrote %d bytes, want 4", n)
	}

	data, err := os.ReadFile(filepath.Join(root, "7", "import0_1.xml"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "<x/>" {
		t.Errorf("stored content = %q", data)
	}

	// Image payloads arrive as relative subpaths.
	if _, err := svc.ReceiveFile(context.Background(), 7, "import_files/widget.jpg", strings.NewReader("jpeg")); err != nil {
		t.Fatalf("ReceiveFile subpath: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "7", "import_files", "widget.jpg")); err != nil {
		t.Errorf("subpath file missing: %v", err)
	}

	if _, err := svc.ReceiveFile(context.Background(), 7, "../8/steal.xml", strings.NewReader("x")); err == nil {
		t.Error("traversal filename accepted")
	}
}

func TestReceiveFileRejectsOversizedBody(t *testing.T) {
	root := t.TempDir()
	log := logger.NewNop()
	svc := NewExchangeService(log, exchange.NewScanner(root, log), nil, 10)

	if _, err := svc.ReceiveFile(context.Background(), 7, "big.xml", strings.NewReader(strings.Repeat("a", 100))); err == nil {
		t.Fatal("oversized upload accepted; a truncated feed must not be reported as success")
	}
	if _, err := os.Stat(filepath.Join(root, "7", "big.xml")); !os.IsNotExist(err) {
		t.Errorf("truncated file left behind: %v", err)
	}

	// A body exactly at the limit still goes through.
	n, err := svc.ReceiveFile(context.Background(), 7, "exact.xml", strings.NewReader(strings.Repeat("a", 10)))
	if err != nil {
		t.Fatalf("ReceiveFile at limit: %v", err)
	}
	if n != 10 {
		t.Errorf("wrote %d bytes, want 10", n)
	}
}
