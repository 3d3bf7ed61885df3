package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wbrown/janus-relational/relational/storage"
)

func main() {
	configType := flag.String("config", "default", "Config type: default, medium, or large")
	output := flag.String("o", "", "Output path (overrides the config's default)")
	flag.Parse()

	var config storage.TestDataConfig
	switch *configType {
	case "default":
		config = storage.DefaultJoinConfig()
	case "medium":
		config = storage.MediumJoinConfig()
	case "large":
		config = storage.LargeJoinConfig()
	default:
		fmt.Fprintf(os.Stderr, "Unknown config type: %s (use 'default', 'medium', or 'large')\n", *configType)
		os.Exit(1)
	}
	if *output != "" {
		config.OutputPath = *output
	}

	fmt.Printf("Building test database: %s\n", config.OutputPath)
	fmt.Printf("  Customers: %d\n", config.NumCustomers)
	fmt.Printf("  Orders: %d\n", config.NumOrders)
	fmt.Printf("  Key overlap: %.2f\n", config.KeyOverlap)
	fmt.Printf("  Null keys: %.1f%%\n", config.NullFraction*100)
	fmt.Println()

	store, err := storage.BuildTestDatabase(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := storage.PrintDatabaseStats(os.Stdout, store); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Done! Join the tables with:")
	fmt.Printf("   go run ./cmd/hashjoin -db %s -left customers -right orders -kind left\n", config.OutputPath)
}
