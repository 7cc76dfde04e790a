// Package frames reads sequences of warped binary lane masks from disk.
package frames

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp" // register BMP decoder

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/fsutil"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane"
)

// ErrNoFrames is returned when a directory holds no decodable frame files.
var ErrNoFrames = errors.New("no frame files found")

// Extensions lists the file extensions DirSource picks up.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

// DirSource yields the frames of a directory in lexical file name order.
// All frames must share the dimensions of the first one.
type DirSource struct {
	fs        fsutil.FileSystem
	paths     []string
	next      int
	threshold uint8

	width, height int
}

// NewDirSource lists the frame files in dir. Pixels brighter than
// threshold become lane candidates; use 0 for lossless 0/255 masks.
func NewDirSource(fsys fsutil.FileSystem, dir string, threshold uint8) (*DirSource, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	seen := make(map[string]bool)
	var paths []string
	for _, ext := range Extensions {
		for _, pattern := range []string{"*" + ext, "*" + strings.ToUpper(ext)} {
			matches, err := fsys.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", dir, err)
			}
			for _, m := range matches {
				if !seen[m] {
					seen[m] = true
					paths = append(paths, m)
				}
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	sort.Strings(paths)
	return &DirSource{fs: fsys, paths: paths, threshold: threshold}, nil
}

// Len returns the total number of frame files.
func (s *DirSource) Len() int {
	return len(s.paths)
}

// Paths returns the frame file paths in processing order.
func (s *DirSource) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Next decodes the next frame and returns it with its path.
// Returns io.EOF once every file has been read.
func (s *DirSource) Next() (*lane.Frame, string, error) {
	if s.next >= len(s.paths) {
		return nil, "", io.EOF
	}
	path := s.paths[s.next]
	s.next++

	frame, err := s.load(path)
	if err != nil {
		return nil, path, err
	}
	if s.width == 0 {
		s.width, s.height = frame.Width, frame.Height
	} else if frame.Width != s.width || frame.Height != s.height {
		return nil, path, fmt.Errorf("%s: %w: got %dx%d, want %dx%d",
			path, lane.ErrFrameSizeChanged, frame.Width, frame.Height, s.width, s.height)
	}
	return frame, path, nil
}

func (s *DirSource) load(path string) (*lane.Frame, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	frame, err := Decode(f, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

// Decode reads one encoded image and converts it to a binary frame.
func Decode(r io.Reader, threshold uint8) (*lane.Frame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if format == "jpeg" && threshold == 0 {
		// Compression noise would otherwise light up the whole frame.
		threshold = 127
	}
	return lane.FrameFromImageThreshold(img, threshold), nil
}
