package fuzztests

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"mod2fix/internal/classify"
	"mod2fix/internal/driver"
)

const maxSeedBytes = 64 << 10 // 64 KiB cap for corpus entries

var crashSeeds = []string{
	"",
	"---- Minecraft Crash Report ----\n// Who set us up the TNT?\n\nTime: 2024-01-01\nDescription: Mod loading error\n\n" +
		"java.lang.ClassNotFoundException: net.fabricmc.api.ModInitializer\n" +
		"-- System Details --\nMinecraft Version: 1.20.1\nFabric Loader 0.14.22\n",
	"Minecraft 1.19.2 with Forge\nMod create requires Mod flywheel\nMod create requires kotlinforforge\n",
	"[main/ERROR]: Mixin apply failed sodium.mixins.json:MixinWorldRenderer\nquilt_loader",
	"mod A requires\nrequires B\nMod  Mod  requires  Mod \n",
	"Minecraft 1.\nMinecraft .20\nxMinecraft 1.2.3\n",
	"\ufeffMinecraft 1.18.2 forge fabric quilt\n",
	"java.lang.OutOfMemoryError: Java heap space\nUnsupportedClassVersionError\nDuplicate mod\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range crashSeeds {
		f.Add([]byte(s))
	}
	for _, sig := range classify.DefaultTable() {
		for _, m := range sig.Match {
			f.Add([]byte(m))
		}
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds adds every log file under testdata/, if the directory exists.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !driver.IsLogFile(path) {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) > maxSeedBytes {
		src = src[:maxSeedBytes]
	}
	return append([]byte(nil), src...)
}

func gzipSeed(src []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write(src)
	_ = zw.Close()
	return buf.Bytes()
}
