package media

import "testing"

func TestDetect(t *testing.T) {
	cases := map[string]Type{
		"report.pdf":        Text,
		"notes.MD":          Text,
		"holiday.JPG":       Image,
		"track.flac":        Audio,
		"clip.mkv":          Video,
		"archive.zip":       Unknown,
		"no-extension":      Unknown,
		"/tmp/nested/a.png": Image,
	}
	for path, want := range cases {
		if got := Detect(path); got != want {
			t.Errorf("Detect(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestAllTypesExcludesUnknown(t *testing.T) {
	for _, mediaType := range AllTypes() {
		if mediaType == Unknown {
			t.Fatal("AllTypes includes Unknown")
		}
	}
	if len(AllTypes()) != 4 {
		t.Fatalf("AllTypes = %v", AllTypes())
	}
}
