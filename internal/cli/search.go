package cli

import (
	"fmt"
	"strings"

	"github.com/rcliao/postcache/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stored post titles",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	records, err := s.Search(cmd.Context(), store.SearchParams{Query: query, Limit: limit})
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "text" {
		for _, r := range records {
			fmt.Printf("%d\t%s\n", r.ID, r.TitleOrEmpty())
		}
		return
	}
	printJSON(records)
}
