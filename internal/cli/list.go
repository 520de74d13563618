package cli

import (
	"context"
	"fmt"

	"github.com/rcliao/postcache/internal/projection"
	"github.com/rcliao/postcache/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts from the API or the store",
		Run:   runList,
	}

	cmd.Flags().StringP("source", "s", "store", "Source: api or store")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	source, _ := cmd.Flags().GetString("source")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	l, err := loadList(cmd.Context(), s, source)
	if err != nil {
		exitErr("list", err)
	}

	printList(l)
}

// loadList projects the named source. "api" never touches the store.
func loadList(ctx context.Context, s store.Store, source string) (*projection.List, error) {
	sy := newSyncer(s)
	switch source {
	case "api", "remote":
		return sy.LoadRemote(ctx)
	case "store", "local":
		return sy.LoadLocal(ctx)
	default:
		return nil, fmt.Errorf("unknown source %q (use api or store)", source)
	}
}
