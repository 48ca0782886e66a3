package api

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "clips"), 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	require.NoError(t, os.Symlink(filepath.Join(root, "clips"), filepath.Join(root, "alias")))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"empty stays empty", "", "", false},
		{"relative joined to root", "clips/001.wav", filepath.Join(root, "clips", "001.wav"), false},
		{"absolute inside root", filepath.Join(root, "clips"), filepath.Join(root, "clips"), false},
		{"root itself", ".", root, false},
		{"not yet created", "out/run1/segments", filepath.Join(root, "out", "run1", "segments"), false},
		{"symlink within root", "alias/001.wav", filepath.Join(root, "alias", "001.wav"), false},
		{"parent traversal", "../x.csv", "", true},
		{"nested traversal", "clips/../../x.csv", "", true},
		{"absolute outside", filepath.Join(outside, "x.csv"), "", true},
		{"symlink out of root", "escape/x.csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePath(root, "path", tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Fatalf("expected ErrBadRequest, got %q, %v", got, err)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
