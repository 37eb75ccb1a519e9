package cli

import (
	"testing"

	"github.com/pkgmirror/conda-mirror/internal/mirror"
	"github.com/pkgmirror/conda-mirror/internal/repository"
)

func TestValidateMirrorOptions(t *testing.T) {
	valid := mirrorOptions{
		srcType: "local",
		src:     "/tmp/pkg-1.0.0-0.conda",
		tgtType: "local",
		tgt:     "/tmp/channel",
	}

	srcType, kind, err := validateMirrorOptions(&valid)
	if err != nil {
		t.Fatalf("validateMirrorOptions failed for valid options: %v", err)
	}
	if srcType != mirror.SourceLocal || kind != repository.KindLocal {
		t.Errorf("Parsed (%s, %s), want (local, local)", srcType, kind)
	}

	cases := []struct {
		name string
		opts mirrorOptions
	}{
		{"unknown source type", mirrorOptions{srcType: "ftp", src: "x", tgtType: "cache"}},
		{"unknown target type", mirrorOptions{srcType: "local", src: "x", tgtType: "ftp"}},
		{"zip without src-path", mirrorOptions{srcType: "zip", src: "a.zip", tgtType: "cache"}},
		{"invalid src-path regex", mirrorOptions{srcType: "zip", src: "a.zip", srcPath: "([", tgtType: "cache"}},
		{"malformed github source", mirrorOptions{srcType: "github", src: "justowner", tgtType: "cache"}},
		{"malformed azure source", mirrorOptions{srcType: "azure", src: "orgonly", tgtType: "cache"}},
		{"tgt with cache target", mirrorOptions{srcType: "local", src: "x", tgtType: "cache", tgt: "/tmp/x"}},
		{"missing tgt for local target", mirrorOptions{srcType: "local", src: "x", tgtType: "local"}},
		{"missing tgt for s3 target", mirrorOptions{srcType: "local", src: "x", tgtType: "s3"}},
	}

	for _, tc := range cases {
		if _, _, err := validateMirrorOptions(&tc.opts); err == nil {
			t.Errorf("validateMirrorOptions should fail for %s", tc.name)
		}
	}
}

func TestMirrorCommandFlags(t *testing.T) {
	cmd := NewMirrorCmd()

	for _, flag := range []string{"src-type", "src", "src-path", "tgt-type", "tgt", "config"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("mirror command missing --%s flag", flag)
		}
	}
}
