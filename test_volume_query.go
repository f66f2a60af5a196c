package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/teranos/bhav/market"
	"github.com/teranos/bhav/storage"
)

func main() {
	db, err := sql.Open("sqlite3", "bhav.db")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	queries := storage.NewSQLQueryStore(db)
	ctx := context.Background()

	// Unfiltered first to make sure the table has anything at all
	fmt.Println("=== Highest volume, no filter ===")
	top, err := queries.HighestVolume(ctx, market.QueryFilter{})
	if err != nil {
		log.Fatalf("❌ ERROR: %v", err)
	}
	fmt.Printf("  ✅ %s %s vol=%d close=%s\n\n", top.Symbol, top.TradeDate(), top.Volume, top.Close)

	// Now the filtered shapes the API exposes
	symbols := []string{top.Symbol, "RELIANCE", "SBIN"}
	from, _ := time.Parse(market.DateFormat, "2024-01-01")

	for _, s := range symbols {
		filter := market.QueryFilter{Symbol: s, From: from}
		day, err := queries.HighestVolume(ctx, filter)
		if err != nil {
			fmt.Printf("  ❌ %s: %v\n", s, err)
			continue
		}

		avgClose, _ := queries.AverageClose(ctx, filter)
		avgVWAP, _ := queries.AverageVWAP(ctx, filter)
		fmt.Printf("  ✅ %s: top vol=%d on %s, avg close=%s, avg vwap=%s\n",
			s, day.Volume, day.TradeDate(), avgClose, avgVWAP)
	}
}
