package thumbsvc

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fyne.io/fyne/v2/storage"
	"github.com/FyshOS/fancyfs"
	"github.com/alexballas/xthumbgrid/thumbnail"
)

var errNoCover = errors.New("thumbsvc: folder has no cover image")

// folderCover picks the artwork for a folder: its fancyfs background if one
// is configured, otherwise the first supported image inside it by name.
func folderCover(dir string) (image.Image, error) {
	if details, err := fancyfs.DetailsForFolder(storage.NewFileURI(dir)); err == nil && details != nil {
		if details.BackgroundURI != nil {
			if img, err := thumbnail.LoadImage(details.BackgroundURI.Path()); err == nil {
				return img, nil
			}
		}
		if details.BackgroundResource != nil {
			if img, _, err := image.Decode(bytes.NewReader(details.BackgroundResource.Content())); err == nil {
				return img, nil
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !isSupportedImage(strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		if img, err := thumbnail.LoadImage(filepath.Join(dir, e.Name())); err == nil {
			return img, nil
		}
	}
	return nil, errNoCover
}
