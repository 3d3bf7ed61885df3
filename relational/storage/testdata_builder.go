package storage

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/wbrown/janus-relational/relational"
)

// TestDataConfig specifies what kind of test database to build.
//
// The database holds two tables shaped for join benchmarks:
//
//	customers(id, name)           one row per customer
//	orders(customer_id, amount)   NumOrders rows, customer_id uniform over
//	                              [0, NumCustomers*KeyOverlap)
//
// KeyOverlap above 1 produces orders whose customer does not exist, which
// exercises the unmatched paths of outer joins.
type TestDataConfig struct {
	NumCustomers int     // Rows in the customers table
	NumOrders    int     // Rows in the orders table
	KeyOverlap   float64 // Order key range relative to NumCustomers (default: 1)
	NullFraction float64 // Fraction of orders with a null customer_id
	Seed         int64   // Random seed, for reproducible data
	OutputPath   string  // Where to store the database
}

// DefaultJoinConfig returns a small dataset for profiling
// Size: 1,000 customers × 20,000 orders
func DefaultJoinConfig() TestDataConfig {
	return TestDataConfig{
		NumCustomers: 1000,
		NumOrders:    20000,
		KeyOverlap:   1.1,
		NullFraction: 0.01,
		Seed:         1,
		OutputPath:   "testdata/join_benchmark.db",
	}
}

// MediumJoinConfig returns a medium-sized dataset for profiling
// Size: 50,000 customers × 500,000 orders
func MediumJoinConfig() TestDataConfig {
	return TestDataConfig{
		NumCustomers: 50000,
		NumOrders:    500000,
		KeyOverlap:   1.1,
		NullFraction: 0.01,
		Seed:         1,
		OutputPath:   "testdata/join_medium.db",
	}
}

// LargeJoinConfig returns a large dataset for stress testing
func LargeJoinConfig() TestDataConfig {
	return TestDataConfig{
		NumCustomers: 1000000,
		NumOrders:    10000000,
		KeyOverlap:   1.1,
		NullFraction: 0.01,
		Seed:         1,
		OutputPath:   "testdata/join_large.db",
	}
}

// BuildTestDatabase creates a pre-populated store for benchmarking. An
// empty OutputPath builds the store in memory.
func BuildTestDatabase(config TestDataConfig) (*RowStore, error) {
	var store *RowStore
	var err error
	if config.OutputPath == "" {
		store, err = OpenInMemory()
	} else {
		if err := os.RemoveAll(config.OutputPath); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to remove existing db")
		}
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create directory")
		}
		store, err = Open(config.OutputPath)
	}
	if err != nil {
		return nil, err
	}

	if err := populate(store, config); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func populate(store *RowStore, config TestDataConfig) error {
	if err := store.CreateTable("customers", 2); err != nil {
		return err
	}
	if err := store.CreateTable("orders", 2); err != nil {
		return err
	}

	customers := make([]relational.Row, config.NumCustomers)
	for i := range customers {
		customers[i] = relational.Row{int64(i), fmt.Sprintf("customer-%d", i)}
	}
	if err := store.Insert("customers", customers...); err != nil {
		return err
	}

	overlap := config.KeyOverlap
	if overlap <= 0 {
		overlap = 1
	}
	keyRange := int64(float64(config.NumCustomers) * overlap)
	if keyRange < 1 {
		keyRange = 1
	}

	rng := rand.New(rand.NewSource(config.Seed))
	orders := make([]relational.Row, 0, insertBatchSize)
	for i := 0; i < config.NumOrders; i++ {
		var customer relational.Value
		if rng.Float64() >= config.NullFraction {
			customer = rng.Int63n(keyRange)
		}
		orders = append(orders, relational.Row{customer, float64(rng.Intn(100000)) / 100})

		if len(orders) == cap(orders) {
			if err := store.Insert("orders", orders...); err != nil {
				return err
			}
			orders = orders[:0]
		}
	}
	if len(orders) > 0 {
		return store.Insert("orders", orders...)
	}
	return nil
}

// PrintDatabaseStats writes the size of every table in the store to w
func PrintDatabaseStats(w io.Writer, store *RowStore) error {
	fmt.Fprintln(w, "Database statistics:")
	for _, table := range store.Tables() {
		count, err := store.Count(table)
		if err != nil {
			return err
		}
		arity, err := store.Arity(table)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %-12s %10d rows × %d columns\n", table, count, arity)
	}
	return nil
}
