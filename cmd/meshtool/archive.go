package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshloader/internal/content"
	"github.com/Faultbox/meshloader/internal/importer"
	"github.com/Faultbox/meshloader/internal/logger"
	"github.com/Faultbox/meshloader/internal/texture"
	"github.com/Faultbox/meshloader/pkg/grf"
)


// loadable reports whether a model backend or the texture decoder handles name.
func loadable(im *importer.Importer, name string) bool {
	if im.Supports(name) {
		return true
	}
	_, err := texture.FormatFromPath(name)
	return err == nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	models := fs.Bool("models", false, "Only list files meshtool can load")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return usage("list [-models] <file.grf> [pattern]")
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}
	im := importer.New()

	count := 0
	for _, f := range archive.List() {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, strings.ToLower(filepath.Base(f)))
			if !matched && !strings.Contains(f, pattern) {
				continue
			}
		}
		if *models && !loadable(im, f) {
			continue
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" || *models {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
	return nil
}

func cmdExtract(args []string) error {
	if len(args) < 2 {
		return usage("extract <file.grf> <path> [output_dir]")
	}
	filePath := args[1]
	outputDir := "."
	if len(args) > 2 {
		outputDir = args[2]
	}

	archive, err := grf.Open(args[0])
	if err != nil {
		return err
	}
	defer archive.Close()

	var targets []string
	if strings.Contains(filePath, "*") {
		pattern := strings.ToLower(filePath)
		for _, f := range archive.List() {
			if matched, _ := filepath.Match(pattern, filepath.Base(f)); matched {
				targets = append(targets, f)
			}
		}
	} else {
		if !archive.Exists(filePath) {
			return fmt.Errorf("file not found: %s", filePath)
		}
		targets = []string{filePath}
	}

	extracted := 0
	for _, f := range targets {
		data, err := archive.ReadFile(f)
		if err != nil {
			logger.Sugar.Warnf("skipping %s: %v", f, err)
			continue
		}
		// Keep the archive's directory layout
		outputPath := filepath.Join(outputDir, filepath.FromSlash(strings.ReplaceAll(f, "\\", "/")))
		if err := content.CreateDirectory(filepath.Dir(outputPath)); err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return err
		}
		logger.Sugar.Debugf("extracted %s -> %s", f, outputPath)
		fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
		extracted++
	}
	if len(targets) > 1 {
		fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
	}
	if extracted < len(targets) {
		return fmt.Errorf("%d of %d files could not be read", len(targets)-extracted, len(targets))
	}
	return nil
}

func cmdPack(args []string) error {
	if len(args) < 2 {
		return usage("pack <out.grf> <dir>")
	}
	out, root := args[0], args[1]

	files := make(map[string][]byte)
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return err
	}

	if err := content.CreateDirectory(filepath.Dir(out)); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := grf.Write(f, files); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("archive written", zap.String("path", out), zap.Int("files", len(files)))
	fmt.Printf("Packed %d files into %s\n", len(files), out)
	return nil
}
