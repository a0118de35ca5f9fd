package sync_test

import (
	"context"
	"fmt"

	"github.com/MasterOfBinary/batchlist/keys"
	"github.com/MasterOfBinary/batchlist/source"
	"github.com/MasterOfBinary/batchlist/sync"
)

func ExampleList() {
	ctx := context.Background()

	pages, _ := source.NewLimitOffset(source.LimitOffsetConfig[string, string]{
		FirstLimit: 3,
		Limit:      2,
		Fetch:      source.Slice[string]([]string{"btc", "eth", "sol", "ada", "dot"}),
	})

	list := sync.NewList[int, []string, string](pages, keys.Increment[int]{Start: 1}, nil)
	defer list.Close()

	state, err := list.Reload(ctx, "")
	if err != nil {
		fmt.Println(err)
		return
	}
	for err == nil {
		state, err = list.LoadMore(ctx, nil)
	}

	for _, b := range state.Batches {
		fmt.Println(b.Key, b.Data)
	}
	fmt.Println(state.Status)
	// Output:
	// 1 [btc eth sol]
	// 2 [ada dot]
	// EndOfPagination
}
