package main

import (
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"volpaint/internal/models"
	"volpaint/pkg/config"
	"volpaint/pkg/edit"
	"volpaint/pkg/event"
	"volpaint/pkg/mask"
	"volpaint/pkg/render"
	"volpaint/pkg/view"
	"volpaint/pkg/volume"
)

func main() {
	inputDir := flag.String("input", "", "Directory containing 2D slice images (JPEG)")
	outDir := flag.String("out", "rendered_slices", "Directory to save rendered slices")
	configPath := flag.String("config", "volpaint.yaml", "Viewer configuration file (YAML)")
	planeName := flag.String("plane", "axial", "View plane: axial, sagittal or coronal")
	montage := flag.Bool("montage", false, "Render a montage grid instead of single slices")
	demoMask := flag.Bool("demo-mask", true, "Paint a demo segmentation label before rendering")
	flag.Parse()

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Output.Verbose {
		fmt.Println("================================")
		fmt.Println("VOLPAINT - VOLUMETRIC SLICE VIEWER AND MASK PAINTER")
		fmt.Println("================================")
	}

	// Step 1: load the slice stack into a single volume.
	if cfg.Output.Verbose {
		fmt.Println("Step 1: Loading input slices...")
	}
	vol, err := loadVolume(*inputDir)
	if err != nil {
		log.Fatalf("Failed to load slices: %v", err)
	}
	fmt.Printf("Loaded volume %dx%dx%d\n", vol.Dims[0], vol.Dims[1], vol.Dims[2])

	// Step 2: assemble the viewer core.
	bus := event.NewBus()
	stack := volume.NewStack(bus)
	if err := stack.SetVolumes([]*volume.Volume{vol}, nil); err != nil {
		log.Fatalf("Failed to set volumes: %v", err)
	}

	store := mask.NewStore(vol.SpatialDims(), cfg.Mask.UndoDepth,
		time.Duration(cfg.Mask.UndoCoalesceMs)*time.Millisecond, bus)

	state := view.New(cfg, bus)
	state.SetExtents(vol.SpatialDims(), vol.Times(), stack.NumVolumes())
	state.AdoptVolumeDisplay(stack.Current())
	if err := setPlane(state, *planeName); err != nil {
		log.Fatalf("Invalid plane: %v", err)
	}
	state.Montage = *montage

	redraws := 0
	bus.Subscribe(event.MaskChanged, func(interface{}) { redraws++ })

	// Step 3: optionally paint a demo label so renders show an overlay.
	if *demoMask {
		if cfg.Output.Verbose {
			fmt.Println("Step 2: Painting demo label...")
		}
		editor := edit.NewEditor(stack, store, state)
		w, h := volume.PlaneDims(vol.SpatialDims(), state.Plane.DepthAxis())
		rect := models.Rect2{
			X0: float64(w) / 4, Y0: float64(h) / 4,
			X1: float64(w) * 3 / 4, Y1: float64(h) * 3 / 4,
		}
		if err := editor.FillEllipse(rect, false); err != nil {
			log.Fatalf("Demo paint failed: %v", err)
		}
	}

	// Step 4: render and save.
	if cfg.Output.Verbose {
		fmt.Println("Step 3: Rendering slices...")
	}
	renderer := render.NewRenderer(cfg.Mask.OverlayAlpha)
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	startTime := time.Now()
	saved := 0
	if *montage {
		frame, err := renderer.Render(stack, store, state)
		if err != nil {
			log.Fatalf("Render failed: %v", err)
		}
		name := filepath.Join(*outDir, fmt.Sprintf("montage_%s.jpg", state.Plane))
		if err := saveJPEG(frame.Composite(), name); err != nil {
			log.Fatalf("Failed to save montage: %v", err)
		}
		saved++
	} else {
		extent := vol.Extent(state.Plane.DepthAxis())
		for s := 1; s <= extent; s++ {
			state.SetSlice(s)
			frame, err := renderer.Render(stack, store, state)
			if err != nil {
				log.Fatalf("Render failed at slice %d: %v", s, err)
			}
			name := filepath.Join(*outDir, fmt.Sprintf("slice_%s_%03d.jpg", state.Plane, s))
			if err := saveJPEG(frame.Composite(), name); err != nil {
				log.Fatalf("Failed to save slice %d: %v", s, err)
			}
			saved++
		}
	}

	fmt.Printf("\nRendered %d image(s) in %.2f seconds\n", saved, time.Since(startTime).Seconds())
	fmt.Printf("Output saved to: %s\n", *outDir)
	if cfg.Output.Verbose && *demoMask {
		fmt.Printf("Mask change notifications observed: %d\n", redraws)
	}
}

func setPlane(state *view.State, name string) error {
	switch strings.ToLower(name) {
	case "axial":
		return state.SetPlane(view.Axial)
	case "sagittal":
		return state.SetPlane(view.Sagittal)
	case "coronal":
		return state.SetPlane(view.Coronal)
	}
	return fmt.Errorf("unknown plane %q (must be axial, sagittal or coronal)", name)
}

// loadVolume reads a directory of JPEG slices, sorted by the numeric
// part of their filenames to keep anatomical order, and stacks them
// into one volume with intensities scaled to [0,1].
func loadVolume(dir string) (*volume.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no JPG images found in input directory")
	}

	sort.Slice(files, func(i, j int) bool {
		return extractNumber(files[i]) < extractNumber(files[j])
	})

	var data []float64
	var width, height int
	for _, name := range files {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}
		bounds := img.Bounds()
		if width == 0 {
			width = bounds.Dx()
			height = bounds.Dy()
		} else if bounds.Dx() != width || bounds.Dy() != height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				name, bounds.Dx(), bounds.Dy(), width, height)
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				data = append(data, float64(r)/65535.0)
			}
		}
	}

	return volume.NewVolume(data, [5]int{width, height, len(files), 1, 1})
}

// extractNumber extracts the numeric part from a filename.
func extractNumber(filename string) int {
	numStr := ""
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr != "" {
		if num, err := strconv.Atoi(numStr); err == nil {
			return num
		}
	}
	return 0
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return jpeg.Decode(file)
}

func saveJPEG(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}
