package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put ID TITLE",
		Short: "Store a single post",
		Long:  "Insert a post or replace the title of an existing id.",
		Args:  cobra.MinimumNArgs(2),
		Run:   runPut,
	}

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		exitErr("put", fmt.Errorf("id must be an integer: %q", args[0]))
	}
	title := strings.Join(args[1:], " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Upsert(cmd.Context(), id, title); err != nil {
		exitErr("put", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%d,"title":%q}`+"\n", id, title)
}
