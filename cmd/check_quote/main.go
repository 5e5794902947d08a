package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
	"github.com/vitos/token_swap_level/internal/infrastructure/chain"
)

// Quick check of the router: quotes a buy and a sell for a token
// without submitting anything. Needs PRIVATE_KEY only to derive the
// account used for read-only calls.
func main() {
	rpcURL := flag.String("rpc", "https://api.roninchain.com/rpc", "rpc endpoint")
	router := flag.String("router", "", "router contract address")
	wron := flag.String("wron", "", "wrapped RON address")
	token := flag.String("token", "", "token address to quote")
	amount := flag.Float64("amount", 1, "input amount in human units")
	flag.Parse()

	if *router == "" || *wron == "" || *token == "" {
		fmt.Println("usage: check_quote -router 0x.. -wron 0x.. -token 0x.. [-amount 1]")
		os.Exit(1)
	}
	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		fmt.Println("PRIVATE_KEY must be set")
		os.Exit(1)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := chain.NewRoninAdapter(ctx, *rpcURL, privateKey, *router, *wron, log)
	if err != nil {
		log.Fatal("failed to init chain backend", zap.Error(err))
	}
	defer backend.Close()

	in := decimal.NewFromFloat(*amount)

	symbol, err := backend.TokenSymbol(ctx, *token)
	if err != nil {
		log.Fatal("symbol lookup failed", zap.Error(err))
	}

	buyOut, err := backend.QuoteOutput(ctx, *token, in, domain.DirectionBuy)
	if err != nil {
		log.Fatal("buy quote failed", zap.Error(err))
	}
	fmt.Printf("buy:  %s RON -> %s %s\n", in, buyOut, symbol)

	sellOut, err := backend.QuoteOutput(ctx, *token, in, domain.DirectionSell)
	if err != nil {
		log.Fatal("sell quote failed", zap.Error(err))
	}
	fmt.Printf("sell: %s %s -> %s RON\n", in, symbol, sellOut)

	balances, err := backend.Balances(ctx, *token)
	if err != nil {
		log.Fatal("balance check failed", zap.Error(err))
	}
	fmt.Printf("account %s holds %s RON, %s %s\n",
		backend.AccountAddress(), balances.Base, balances.Token, symbol)
}
