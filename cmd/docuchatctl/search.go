package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"codeberg.org/docuchat/server/internal/retriever"
)

const previewLength = 160

func searchAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	col, err := rt.collection(ctx, cmd.String("user"), cmd.String("collection"), false)
	if err != nil {
		return err
	}

	hits, err := rt.retriever.Search(ctx, retriever.Query{
		CollectionID: col.ID,
		Text:         cmd.String("query"),
		TopK:         int(cmd.Int("top-k")),
	})
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("no matches")
		return nil
	}

	for i, hit := range hits {
		fmt.Printf("%d. %.4f  %s #%d\n", i+1, hit.Score, hit.Metadata.Filename, hit.Metadata.ChunkIndex)
		fmt.Printf("   %s\n", preview(hit.Content, previewLength))
	}

	return nil
}

// first n runes of s on a single line
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")

	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}
