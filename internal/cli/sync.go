package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch posts and store them",
		Long:  "Fetch every post from the endpoint and upsert it into the local store.",
		Run:   runSync,
	}

	RootCmd.AddCommand(cmd)
}

func runSync(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	run, err := newSyncer(s).Sync(cmd.Context())
	if err != nil {
		exitErr("sync", err)
	}

	printJSON(run)
}
