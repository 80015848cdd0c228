// Copyright (c) 2017-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package version

import (
	"testing"
)

// TestSemVerString ensures the version string drops characters that are not
// allowed in the pre-release and build portions.
func TestSemVerString(t *testing.T) {
	origPre, origBuild := PreRelease, BuildMetadata
	defer func() {
		PreRelease, BuildMetadata = origPre, origBuild
	}()

	tests := []struct {
		pre   string
		build string
		want  string
	}{
		{"", "", "0.3.0"},
		{"beta", "", "0.3.0-beta"},
		{"rc.1", "", "0.3.0-rc1"},
		{"", "linux.amd64", "0.3.0+linux.amd64"},
		{"alpha", "g1234!", "0.3.0-alpha+g1234"},
		{"$$", "##", "0.3.0"},
	}
	for i, test := range tests {
		PreRelease, BuildMetadata = test.pre, test.build
		if got := String(); got != test.want {
			t.Errorf("String #%d: got %q, want %q", i, got, test.want)
		}
	}
}
