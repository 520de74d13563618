package cli

import (
	"fmt"
	"strconv"

	"github.com/rcliao/postcache/internal/projection"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get ROW",
		Short: "Show the post at a list row",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().StringP("source", "s", "store", "Source: api or store")

	RootCmd.AddCommand(cmd)
}

type rowOutput struct {
	Row int `json:"row"`
	projection.Item
}

func runGet(cmd *cobra.Command, args []string) {
	source, _ := cmd.Flags().GetString("source")
	row, err := strconv.Atoi(args[0])
	if err != nil {
		exitErr("get", fmt.Errorf("row must be an integer: %q", args[0]))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	l, err := loadList(cmd.Context(), s, source)
	if err != nil {
		exitErr("get", err)
	}

	it, ok := l.ItemAt(row)
	if !ok {
		exitErr("get", fmt.Errorf("row %d out of range (count %d)", row, l.Count()))
	}

	if formatFlag == "text" {
		fmt.Println(it.Title)
		return
	}
	printJSON(rowOutput{Row: row, Item: it})
}
