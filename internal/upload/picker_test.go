package upload

import (
	"errors"
	"testing"

	"github.com/ncruces/zenity"
)

func stubPicker(t *testing.T, path string, err error) {
	t.Helper()
	orig := selectFile
	selectFile = func(...zenity.Option) (string, error) { return path, err }
	t.Cleanup(func() { selectFile = orig })
}

func TestPickFile(t *testing.T) {
	stubPicker(t, "/photos/grandma.jpg", nil)
	path, ok, err := PickFile()
	if err != nil || !ok || path != "/photos/grandma.jpg" {
		t.Errorf("PickFile() = %q, %v, %v", path, ok, err)
	}
}

func TestPickFileCanceled(t *testing.T) {
	stubPicker(t, "", zenity.ErrCanceled)
	path, ok, err := PickFile()
	if err != nil {
		t.Errorf("cancel should not be an error, got %v", err)
	}
	if ok || path != "" {
		t.Errorf("cancel returned %q, %v", path, ok)
	}
}

func TestPickFileError(t *testing.T) {
	boom := errors.New("no display")
	stubPicker(t, "", boom)
	if _, _, err := PickFile(); !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
}

func TestImagePatterns(t *testing.T) {
	patterns := imagePatterns()
	if len(patterns) == 0 {
		t.Fatal("no patterns")
	}
	for i := 1; i < len(patterns); i++ {
		if patterns[i-1] > patterns[i] {
			t.Fatalf("patterns not sorted: %v", patterns)
		}
	}
}
