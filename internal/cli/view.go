package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/storage"
	"github.com/spf13/cobra"

	"github.com/alexballas/xthumbgrid/browser"
	"github.com/alexballas/xthumbgrid/gallery"
	"github.com/alexballas/xthumbgrid/internal/config"
	"github.com/alexballas/xthumbgrid/thumbsvc"
)

const appID = "io.github.alexballas.xthumbgrid"

func newViewCmd() *cobra.Command {
	var choose bool
	cmd := &cobra.Command{
		Use:   "view [dir]",
		Short: "Open a thumbnail grid window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var start fyne.ListableURI
			if len(args) == 1 {
				dir, err := listerFor(args[0])
				if err != nil {
					return err
				}
				start = dir
			}
			return runView(cfg, start, choose)
		},
	}
	cmd.Flags().BoolVar(&choose, "choose", false, "Pick the starting folder with the system folder chooser")
	cmd.Flags().String("ffmpeg-path", "", "ffmpeg binary used for video frames")
	cmd.Flags().Int("workers", 0, "Decode workers")
	cmd.Flags().Int("row-height", 0, "Base row height in pixels")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics at addr (e.g. :9100)")
	cmd.Flags().Bool("show-hidden", false, "Show dot files")
	return cmd
}

func listerFor(path string) (fyne.ListableURI, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	return storage.ListerForURI(storage.NewFileURI(abs))
}

func galleryOptions(c *config.Config, s *stack) gallery.Options {
	return gallery.Options{
		Cache:   s.Cache,
		Service: s.Service,
		Roots:   s.Roots,
		Layout: gallery.FlowOptions{
			RowHeight:     c.RowHeight,
			FoldersPerRow: c.FoldersPerRow,
		},
		Heartbeat:   c.Heartbeat(),
		ScrollDelay: c.ScrollDelay(),
		Logger:      logger,
	}
}

func runView(c *config.Config, start fyne.ListableURI, choose bool) error {
	s, err := openStack(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	a := app.NewWithID(appID)
	w := a.NewWindow("xthumbgrid")

	b := browser.New(browser.Options{
		Gallery:    galleryOptions(c, s),
		Filter:     thumbsvc.IsSupported,
		ShowHidden: c.ShowHidden,
		OnOpen: func(path string) {
			logger.Info().Str("path", path).Msg("open")
			fmt.Println(path)
		},
		Logger: logger,
	})
	defer b.Close()

	if start == nil {
		start = browser.StartingDir()
	}
	b.SetLocation(start)
	w.SetContent(b.Content())
	b.Attach(w)
	w.Resize(fyne.NewSize(1024, 720))

	if choose {
		w.Show()
		browser.ChooseFolder(w, start, func(dir fyne.ListableURI, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("folder chooser")
				return
			}
			if dir != nil {
				b.SetLocation(dir)
			}
		})
		a.Run()
		return nil
	}
	w.ShowAndRun()
	return nil
}
