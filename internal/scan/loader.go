package scan

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
)

// ParsePoints reads one point per line. Coordinates are integers separated
// by commas, semicolons or whitespace; '#' starts a comment and blank lines
// are skipped. Every point must have the same number of coordinates.
func ParsePoints(r io.Reader) ([]kdtree.Point, error) {
	var points []kdtree.Point
	dims := 0

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\r'
		})
		if len(fields) == 0 {
			continue
		}

		p := make(kdtree.Point, len(fields))
		for i, f := range fields {
			c, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: coordinate %q is not an integer",
					lineNo, kdtree.ErrInvalidInput, f)
			}
			p[i] = c
		}

		if dims == 0 {
			dims = len(p)
		} else if len(p) != dims {
			return nil, fmt.Errorf("line %d: %w: %d coordinates, expected %d",
				lineNo, kdtree.ErrInvalidInput, len(p), dims)
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read points: %w", err)
	}

	return points, nil
}

// LoadPointFile loads a text point file into a dataset named after the file
func LoadPointFile(path string) (*models.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	points, err := ParsePoints(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ds := newDataset(path, points)
	ds.Format = models.FormatText
	return ds, nil
}

// LoadImage samples every stride-th pixel of an image in both directions and
// returns the colours as 3-D (r, g, b) points in 0..255.
func LoadImage(path string, stride int) (*models.Dataset, error) {
	if stride < 1 {
		stride = 1
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Check for EXIF data (before reading image, as Decode consumes the reader)
	hasExif := checkExif(path)

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	bounds := img.Bounds()
	var points []kdtree.Point
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, _ := img.At(x, y).RGBA()
			points = append(points, kdtree.Point{int(r >> 8), int(g >> 8), int(b >> 8)})
		}
	}

	ds := newDataset(path, points)
	ds.Dims = 3
	ds.Format = format
	ds.Fingerprint = hash.GetHash()
	ds.HasExif = hasExif
	return ds, nil
}

func newDataset(path string, points []kdtree.Point) *models.Dataset {
	ds := &models.Dataset{
		Name:       DatasetName(filepath.Base(path)),
		Source:     path,
		Points:     points,
		PointCount: len(points),
	}
	if len(points) > 0 {
		ds.Dims = len(points[0])
	}
	return ds
}

// DatasetName derives a dataset name from a path: extension removed,
// separators normalised to '/'.
func DatasetName(path string) string {
	name := strings.TrimSuffix(path, filepath.Ext(path))
	return filepath.ToSlash(name)
}

// checkExif checks if an image file contains EXIF data
func checkExif(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	_, err = exif.Decode(file)
	return err == nil
}

// ComputeFileHash computes the SHA256 hash of a file
func ComputeFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsPointFile checks if a file is a supported text point file
func IsPointFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".pts":
		return true
	default:
		return false
	}
}

// IsImageFile checks if a file is a supported image format
func IsImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif":
		return true
	default:
		return false
	}
}

// IsSupportedFile checks if a file can be imported
func IsSupportedFile(path string) bool {
	return IsPointFile(path) || IsImageFile(path)
}
