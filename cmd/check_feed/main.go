package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/infrastructure/feed"
)

// Quick check of the price feed: prints the current price for each
// address given on the command line.
func main() {
	network := flag.String("network", "ronin", "feed network id")
	flag.Parse()

	addresses := flag.Args()
	if len(addresses) == 0 {
		fmt.Println("usage: check_feed [-network ronin] <address> [address...]")
		os.Exit(1)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g := feed.NewGeckoTerminal("", *network, log)
	prices, err := g.TokenPrices(ctx, addresses)
	if err != nil {
		log.Fatal("price fetch failed", zap.Error(err))
	}

	for _, addr := range addresses {
		if p, ok := prices[strings.ToLower(addr)]; ok {
			fmt.Printf("%s  $%g\n", addr, p)
		} else {
			fmt.Printf("%s  (no price)\n", addr)
		}
	}
}
