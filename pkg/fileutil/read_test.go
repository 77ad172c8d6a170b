package fileutil

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/errors"
)

func TestReadFileWithLimit(t *testing.T) {
	fs := afero.NewMemMapFs()

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"small file", 100, false},
		{"exact limit", MaxFileSize, false},
		{"too large", MaxFileSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/data/" + tt.name
			if err := afero.WriteFile(fs, path, make([]byte, tt.size), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := ReadFileWithLimit(fs, path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadFileWithLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrFileTooLarge) {
				t.Errorf("expected ErrFileTooLarge, got %v", err)
			}
		})
	}
}

func TestReadFileWithLimit_Missing(t *testing.T) {
	if _, err := ReadFileWithLimit(afero.NewMemMapFs(), "/nope"); err == nil {
		t.Error("expected error for missing file")
	}
}
