package e2e

import "testing"

func TestBuildCorpus_LogosHaveUniqueNamesAndColors(t *testing.T) {
	c := BuildCorpus()
	if c.TotalLogos != len(palette) || len(c.Logos) != c.TotalLogos {
		t.Fatalf("expected %d logos, got %d", len(palette), len(c.Logos))
	}
	names := make(map[string]bool)
	backgrounds := make(map[[3]uint8]bool)
	for _, l := range c.Logos {
		if names[l.Name] {
			t.Errorf("duplicate logo name %q", l.Name)
		}
		names[l.Name] = true
		bg := [3]uint8{l.Background.R, l.Background.G, l.Background.B}
		if backgrounds[bg] {
			t.Errorf("duplicate background for %q", l.Name)
		}
		backgrounds[bg] = true
	}
}

func TestBuildCorpus_QueryTestCasesReferenceCorpus(t *testing.T) {
	c := BuildCorpus()
	if c.TotalQueries == 0 || c.TotalQueries != len(c.TestCases) {
		t.Fatalf("TotalQueries = %d, cases = %d", c.TotalQueries, len(c.TestCases))
	}
	files := make(map[string]bool)
	for i, l := range c.Logos {
		files[FileName(l, i)] = true
	}
	for _, tc := range c.TestCases {
		if !files[tc.ExpectedName] {
			t.Errorf("%s: expected %q is not a corpus file", tc.Description, tc.ExpectedName)
		}
		if tc.Size == ReferenceSize {
			t.Errorf("%s: query should differ in size from the reference", tc.Description)
		}
	}
}

func TestRender_DrawsShape(t *testing.T) {
	l := E2ELogo{Name: "x", Shape: ShapeTopBand}
	l.Background.A, l.Foreground.R, l.Foreground.A = 255, 255, 255
	img := l.Render(20)
	if got := img.RGBAAt(10, 1); got != l.Foreground {
		t.Errorf("top row = %v, want foreground", got)
	}
	if got := img.RGBAAt(10, 18); got != l.Background {
		t.Errorf("bottom row = %v, want background", got)
	}
}
