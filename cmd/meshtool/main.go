// meshtool loads models and textures the way an engine would and prints what
// came out.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"

	"github.com/Faultbox/meshloader/internal/config"
	"github.com/Faultbox/meshloader/internal/content"
	"github.com/Faultbox/meshloader/internal/importer"
	"github.com/Faultbox/meshloader/internal/loader"
	"github.com/Faultbox/meshloader/internal/logger"
	"github.com/Faultbox/meshloader/internal/meshtree"
	"github.com/Faultbox/meshloader/internal/texture"
)

// errUsage reports bad arguments; the command has already printed its usage.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run())
}

// run executes one command and returns the process exit code. Deferred
// cleanup runs before the exit.
func run() int {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logOpts := logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: true,
	}
	if cfg.Logging.LogFile != "" {
		logOpts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	command, rest := args[0], args[1:]
	logger.Debug("running command", zap.String("command", command), zap.Strings("args", rest))

	switch command {
	case "load":
		err = cmdLoad(cfg, rest)
	case "texture", "tex":
		err = cmdTexture(cfg, rest)
	case "companions":
		err = cmdCompanions(rest)
	case "folders":
		err = cmdFolders(rest)
	case "list", "ls":
		err = cmdList(rest)
	case "extract", "x":
		err = cmdExtract(rest)
	case "pack":
		err = cmdPack(rest)
	case "config":
		err = cmdConfig(cfg, rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return 1
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 1
	default:
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

// usage prints a command's usage line and returns errUsage.
func usage(line string) error {
	fmt.Fprintln(os.Stderr, "Usage: meshtool "+line)
	return errUsage
}

func printUsage() {
	fmt.Println(`meshtool - model and texture loading utility

Usage:
  meshtool [-config file] [-debug] [-content-root dir] <command> [options]

Commands:
  load [-relative] [-textures] <model>      Load a model and print its node tree
  texture [-webp out] [-png out] <image>    Decode an image, optionally re-encode it
  companions <model>                        Show the _T.png / _N.png companion paths
  folders <dir>                             List sub-folders recursively
  list [-models] <file.grf> [pattern]       List archive files (optional glob pattern)
  extract <file.grf> <path> [output]        Extract file(s) from an archive
  pack <out.grf> <dir>                      Pack a directory into a GRF archive
  config show                               Print the effective configuration
  config init [-force] [path]               Write the effective configuration to a file

Examples:
  meshtool load ./models/crate.gltf
  meshtool -content-root ./content load -relative -textures props/crate.obj
  meshtool texture -webp preview.webp ./models/crate_T.png`)
}

func cmdLoad(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	relative := fs.Bool("relative", false, "Resolve the path against the content root and archives")
	textures := fs.Bool("textures", false, "Also load companion textures")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return usage("load [-relative] [-textures] <model>")
	}

	im := importer.New(importer.WithLogger(logger.Named("importer")))
	l, err := loader.FromConfig(cfg, im, loader.WithLogger(logger.Named("loader")))
	if err != nil {
		return err
	}
	defer l.Close()

	kind := loader.Absolute
	if *relative {
		kind = loader.Relative
	}

	var b loader.Bundle
	if *textures {
		b = l.LoadWithTextures(fs.Arg(0), kind)
	} else {
		b.Result = l.Load(fs.Arg(0), kind)
	}
	r := b.Result
	if !r.Success {
		return fmt.Errorf("load failed (%s): %w", meshtree.KindOf(r.Err), r.Err)
	}

	fmt.Printf("Model:  %s\n", fs.Arg(0))
	fmt.Printf("Nodes:  %d\n", len(r.Nodes))
	fmt.Printf("Meshes: %d (%d renderable)\n", r.MeshCount(), len(b.Sections()))
	fmt.Println()
	fmt.Printf("%-5s %-6s %-30s %6s %8s %9s\n", "Index", "Parent", "Name", "Meshes", "Vertices", "Triangles")
	for i, n := range r.Nodes {
		verts, tris := 0, 0
		for j := range n.Meshes {
			verts += len(n.Meshes[j].Vertices)
			tris += n.Meshes[j].TriangleCount()
		}
		name := strings.Repeat("  ", meshtree.Depth(r.Nodes, i)) + n.Name
		fmt.Printf("%-5d %-6d %-30s %6d %8d %9d\n", i, n.ParentIndex, name, len(n.Meshes), verts, tris)
	}

	if len(r.MeshErrors) > 0 {
		fmt.Println()
		fmt.Println("Skipped meshes:")
		for _, f := range r.MeshErrors {
			fmt.Printf("  node %d mesh %d: %v\n", f.Node, f.Mesh, f.Err)
		}
		logger.Warn("model loaded with skipped meshes",
			zap.String("path", fs.Arg(0)), zap.Int("skipped", len(r.MeshErrors)))
	}

	if *textures {
		fmt.Println()
		printTexture("Diffuse", b.Diffuse)
		printTexture("Normal", b.Normal)
		for _, err := range b.TextureErrors {
			fmt.Printf("  texture error: %v\n", err)
			logger.Warn("companion texture not decoded", zap.Error(err))
		}
	}
	return nil
}

func printTexture(label string, img *texture.DecodedImage) {
	if img == nil {
		fmt.Printf("%-8s none\n", label+":")
		return
	}
	fmt.Printf("%-8s %dx%d %s (%d bytes)\n", label+":", img.Width, img.Height, img.Order, img.ByteLength())
}

func cmdTexture(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("texture", flag.ExitOnError)
	webpOut := fs.String("webp", "", "Write a lossless WebP copy to this path")
	pngOut := fs.String("png", "", "Write a PNG copy to this path")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return usage("texture [-webp out.webp] [-png out.png] <image>")
	}

	order, err := texture.ParseChannelOrder(cfg.Texture.ChannelOrder)
	if err != nil {
		return err
	}
	l := loader.New(importer.New(),
		loader.WithDecoder(texture.Decoder{Order: order}),
		loader.WithLogger(logger.Named("loader")))

	img, err := l.LoadTexture(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("Image:  %s\n", fs.Arg(0))
	fmt.Printf("Size:   %dx%d\n", img.Width, img.Height)
	fmt.Printf("Order:  %s\n", img.Order)
	fmt.Printf("Bytes:  %d\n", img.ByteLength())

	if *pngOut != "" {
		if err := writeImage(*pngOut, func(f *os.File) error { return png.Encode(f, img.Image()) }); err != nil {
			return err
		}
		fmt.Printf("Wrote:  %s\n", *pngOut)
	}
	if *webpOut != "" {
		if err := writeImage(*webpOut, func(f *os.File) error { return nativewebp.Encode(f, img.Image(), nil) }); err != nil {
			return err
		}
		fmt.Printf("Wrote:  %s\n", *webpOut)
	}
	return nil
}

func writeImage(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdCompanions(args []string) error {
	if len(args) < 1 {
		return usage("companions <model>")
	}
	diffuse, normal := texture.CompanionPaths(args[0])
	dir := content.Dir("")
	for _, p := range []string{diffuse, normal} {
		status := "missing"
		if dir.Exists(p) {
			status = "found"
		}
		fmt.Printf("%-8s %s\n", status, p)
	}
	return nil
}

func cmdFolders(args []string) error {
	if len(args) < 1 {
		return usage("folders <dir>")
	}
	if !content.DirectoryExists(args[0]) {
		return fmt.Errorf("%s is not a directory", args[0])
	}
	dirs, err := content.ListFolders(args[0])
	if err != nil {
		return err
	}
	for _, d := range dirs {
		fmt.Println(d)
	}
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usage("config show | config init [-force] [path]")
	}
	switch args[0] {
	case "show":
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	case "init":
		fs := flag.NewFlagSet("config init", flag.ExitOnError)
		force := fs.Bool("force", false, "Replace an existing file")
		fs.Parse(args[1:])

		path := config.DefaultPath()
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		if err := cfg.SaveTo(path, *force); err != nil {
			return err
		}
		logger.Info("config written", zap.String("path", path))
		fmt.Printf("Wrote %s\n", path)
		return nil
	default:
		return usage("config show | config init [-force] [path]")
	}
}
