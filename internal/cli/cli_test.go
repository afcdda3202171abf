package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-threshold/internal/config"
	"github.com/ironsheep/image-threshold/internal/imaging"
	"github.com/ironsheep/image-threshold/internal/ocr"
)

var testBuild = BuildInfo{Version: "1.0.0-test", BuildTime: "today", GitCommit: "abc123"}

// isolate points HOME at an empty directory and runs the test from a
// scratch working directory, so no real config or .env file is read.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

// splitImage writes a grayscale PNG whose left half is dark and whose right
// half is bright.
func splitImage(t *testing.T, dir string, width, height int) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(40)
			if x >= width/2 {
				v = 200
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	path := filepath.Join(dir, "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCommand(testBuild)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func loadBinary(t *testing.T, path string) *imaging.Buffer {
	t.Helper()
	buf, err := imaging.LoadFileAs(path, imaging.Luma)
	if err != nil {
		t.Fatalf("failed to load %s: %v", path, err)
	}
	if !buf.IsBinary() {
		t.Errorf("%s is not binary", path)
	}
	return buf
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    imaging.Region
		wantErr bool
	}{
		{"0,0,10,20", imaging.Region{X1: 0, Y1: 0, X2: 10, Y2: 20}, false},
		{" 1, 2 ,3,4 ", imaging.Region{X1: 1, Y1: 2, X2: 3, Y2: 4}, false},
		{"1,2,3", imaging.Region{}, true},
		{"1,2,3,4,5", imaging.Region{}, true},
		{"a,2,3,4", imaging.Region{}, true},
		{"", imaging.Region{}, true},
	}

	for _, tt := range tests {
		got, err := parseRegion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRegion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseRegion(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addLocalFlags(fs)
	fs.Bool("json", false, "")
	if err := fs.Parse([]string{"--window-width=7"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	v := viper.New()
	if err := bindFlags(v, fs); err != nil {
		t.Fatalf("bindFlags failed: %v", err)
	}
	if got := v.GetInt(config.KeyWindowWidth); got != 7 {
		t.Errorf("window width: got %d, want 7", got)
	}
	if got := v.GetInt(config.KeyWindowHeight); got != 51 {
		t.Errorf("window height: got %d, want the flag default 51", got)
	}
	if v.IsSet("json") {
		t.Error("flags without a config key should not be bound")
	}
}

func TestBinarize(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 20, 10)
	globalOut := filepath.Join(dir, "g.png")
	localOut := filepath.Join(dir, "l.png")

	out, _, err := execute(t, "", "binarize", input,
		"--global-out", globalOut, "--local-out", localOut, "--window-width", "5", "--window-height", "5")
	if err != nil {
		t.Fatalf("binarize failed: %v", err)
	}

	for _, want := range []string{"threshold=120.0000", "iterations=1", "window=5x5", "regions:"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	g := loadBinary(t, globalOut)
	l := loadBinary(t, localOut)
	if g.Width != 20 || g.Height != 10 || !g.SameSize(l) {
		t.Errorf("output sizes: global %dx%d, local %dx%d", g.Width, g.Height, l.Width, l.Height)
	}
	if g.At(0, 0) != imaging.Background || g.At(19, 9) != imaging.Foreground {
		t.Errorf("global output: got %d at (0,0) and %d at (19,9)", g.At(0, 0), g.At(19, 9))
	}
}

func TestBinarize_DefaultOutputs(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 8, 8)

	if _, _, err := execute(t, "", "binarize", input); err != nil {
		t.Fatalf("binarize failed: %v", err)
	}
	loadBinary(t, filepath.Join(dir, "global_binary.png"))
	loadBinary(t, filepath.Join(dir, "local_binary.png"))
}

func TestBinarize_JSONAndRegion(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 20, 10)

	out, _, err := execute(t, "", "binarize", input, "--json", "--region", "5,0,15,4",
		"--global-out", filepath.Join(dir, "g.png"), "--local-out", filepath.Join(dir, "l.png"))
	if err != nil {
		t.Fatalf("binarize failed: %v", err)
	}

	var summary struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		Result struct {
			Global struct {
				Threshold float64 `json:"threshold"`
			} `json:"global"`
			Agreement struct {
				TotalPixels int `json:"total_pixels"`
			} `json:"agreement"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if summary.Width != 10 || summary.Height != 4 {
		t.Errorf("size: got %dx%d, want 10x4", summary.Width, summary.Height)
	}
	if summary.Result.Agreement.TotalPixels != 40 {
		t.Errorf("total_pixels: got %d, want 40", summary.Result.Agreement.TotalPixels)
	}
	if summary.Result.Global.Threshold != 120 {
		t.Errorf("threshold: got %v, want 120", summary.Result.Global.Threshold)
	}
}

func TestBinarize_LossyWarning(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 8, 8)

	_, stderr, err := execute(t, "", "binarize", input,
		"--global-out", filepath.Join(dir, "g.jpg"), "--local-out", filepath.Join(dir, "l.png"))
	if err != nil {
		t.Fatalf("binarize failed: %v", err)
	}
	if !strings.Contains(stderr, "lossy") {
		t.Errorf("expected a lossy format warning, got:\n%s", stderr)
	}
}

func TestBinarize_Errors(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 8, 8)
	notImage := filepath.Join(dir, "not-an-image.png")
	if err := os.WriteFile(notImage, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		wantCfg bool
	}{
		{"missing input", []string{"binarize", filepath.Join(dir, "missing.png")}, false},
		{"undecodable input", []string{"binarize", notImage}, false},
		{"no arguments", []string{"binarize"}, false},
		{"zero window", []string{"binarize", input, "--window-width", "0"}, true},
		{"negative epsilon", []string{"binarize", input, "--epsilon", "-1"}, true},
		{"bad region", []string{"binarize", input, "--region", "0,0,9,9"}, false},
		{"bad log level", []string{"binarize", input, "--log-level", "loud"}, true},
		{"bad gray conversion", []string{"binarize", input, "--gray", "sepia"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantCfg && !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestBinarize_ConfigFileAndEnv(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 12, 12)
	cfgPath := filepath.Join(dir, "threshold.yaml")
	cfg := "local:\n  window_width: 7\n  window_height: 9\noutput:\n  global: " +
		filepath.Join(dir, "cfg-global.png") + "\n  local: " + filepath.Join(dir, "cfg-local.png") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMAGE_THRESHOLD_LOCAL_WINDOW_HEIGHT", "3")

	out, _, err := execute(t, "", "binarize", input, "--config", cfgPath)
	if err != nil {
		t.Fatalf("binarize failed: %v", err)
	}
	if !strings.Contains(out, "window=7x3") {
		t.Errorf("want window 7x3 (file width, env height):\n%s", out)
	}
	loadBinary(t, filepath.Join(dir, "cfg-global.png"))
	loadBinary(t, filepath.Join(dir, "cfg-local.png"))
}

func TestBinarize_EnvFile(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 12, 12)
	os.Unsetenv("IMAGE_THRESHOLD_LOCAL_WINDOW_WIDTH")
	t.Cleanup(func() { os.Unsetenv("IMAGE_THRESHOLD_LOCAL_WINDOW_WIDTH") })
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("IMAGE_THRESHOLD_LOCAL_WINDOW_WIDTH=11\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "", "binarize", input)
	if err != nil {
		t.Fatalf("binarize failed: %v", err)
	}
	if !strings.Contains(out, "window=11x51") {
		t.Errorf("want window 11x51 from .env:\n%s", out)
	}

	if _, _, err := execute(t, "", "binarize", input, "--env-file", filepath.Join(dir, "missing.env")); err == nil {
		t.Error("an explicit missing env file should fail")
	}
}

func TestGlobalAndLocal(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 16, 8)

	gOut := filepath.Join(dir, "global.bmp")
	out, _, err := execute(t, "", "global", input, "-o", gOut, "--epsilon", "0.5")
	if err != nil {
		t.Fatalf("global failed: %v", err)
	}
	if !strings.Contains(out, "threshold=120.0000") {
		t.Errorf("global output: %s", out)
	}
	loadBinary(t, gOut)

	lOut := filepath.Join(dir, "local.png")
	out, _, err = execute(t, "", "local", input, "-o", lOut, "--window-width", "4", "--window-height", "4")
	if err != nil {
		t.Fatalf("local failed: %v", err)
	}
	if !strings.Contains(out, "window=5x5") {
		t.Errorf("local output: %s", out)
	}
	l := loadBinary(t, lOut)
	// Bright pixels next to the boundary exceed their window mean.
	if l.At(8, 4) != imaging.Foreground || l.At(0, 0) != imaging.Background {
		t.Errorf("local output: got %d at (8,4) and %d at (0,0)", l.At(8, 4), l.At(0, 0))
	}
}

func TestGlobal_Lightness(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 16, 8)

	// Gray 40 and 200 map to lightness samples near 41 and 206, moving the midpoint.
	out, _, err := execute(t, "", "global", input, "-o", filepath.Join(dir, "g.png"), "--gray", "lightness")
	if err != nil {
		t.Fatalf("global failed: %v", err)
	}
	if strings.Contains(out, "threshold=120.0000") {
		t.Errorf("lightness conversion should change the threshold: %s", out)
	}
}

func TestDebugLogging(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 8, 8)

	_, stderr, err := execute(t, "", "global", input, "-o", filepath.Join(dir, "g.png"), "--log-level", "debug")
	if err != nil {
		t.Fatalf("global failed: %v", err)
	}
	if !strings.Contains(stderr, "1.0.0-test") {
		t.Errorf("debug log should include the version:\n%s", stderr)
	}
}

func TestOCR(t *testing.T) {
	dir := isolate(t)
	input := splitImage(t, dir, 16, 8)

	_, _, err := execute(t, "", "ocr", input)
	if !ocr.Available() {
		if !errors.Is(err, ocr.ErrUnavailable) {
			t.Errorf("got %v, want ErrUnavailable", err)
		}
		return
	}
	if err != nil {
		t.Skipf("tesseract not usable here: %v", err)
	}
}

func TestServe(t *testing.T) {
	isolate(t)

	in := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	out, _, err := execute(t, in, "serve")
	if err != nil {
		t.Fatalf("serve failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("responses: got %d, want 2\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], `"version":"1.0.0-test"`) {
		t.Errorf("initialize response should carry the build version: %s", lines[0])
	}
	if !strings.Contains(lines[1], "image_binarize") {
		t.Errorf("tools/list should include image_binarize: %s", lines[1])
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	// A broken config must not stop version from printing.
	t.Setenv("IMAGE_THRESHOLD_LOCAL_WINDOW_WIDTH", "-5")

	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	for _, want := range []string{"image-threshold 1.0.0-test", "Build time: today", "Git commit: abc123", "Tesseract:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}
