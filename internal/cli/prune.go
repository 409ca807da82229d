package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alexballas/xthumbgrid/internal/config"
	"github.com/alexballas/xthumbgrid/thumbstore"
)

var errPruneBackend = errors.New("prune needs the disk store backend; pebble compacts itself")

func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Trim the on-disk thumbnail store to its configured limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := prune(cfg)
			if err != nil {
				return err
			}
			logger.Info().Int("removed", removed).Msg("store pruned")
			return nil
		},
	}
	cmd.Flags().Int64("prune-max-bytes", 0, "Start pruning above this many bytes")
	cmd.Flags().Int("prune-max-files", 0, "Start pruning above this many records")
	return cmd
}

func prune(c *config.Config) (int, error) {
	if c.StoreBackend != config.BackendDisk {
		return 0, errPruneBackend
	}
	db, err := thumbstore.OpenDisk(filepath.Join(c.StoreDir, "disk"))
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return db.Prune(c.PruneMaxBytes, c.PruneMaxFiles)
}
