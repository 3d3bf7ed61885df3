package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/wbrown/janus-relational/relational"
	"github.com/wbrown/janus-relational/relational/annotations"
	"github.com/wbrown/janus-relational/relational/executor"
	"github.com/wbrown/janus-relational/relational/planner"
	"github.com/wbrown/janus-relational/relational/storage"
)

func main() {
	var dbPath string
	var demo bool
	var help bool
	var verbose bool
	var debug bool
	var leftTable, rightTable string
	var leftKeys, rightKeys string
	var kindStr string
	var workers int
	var maxBuildRows int
	var outputRows float64

	flag.StringVar(&dbPath, "db", "", "database path (default: in-memory)")
	flag.BoolVar(&demo, "demo", false, "load the demo tables before joining")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (show planning and join annotations)")
	flag.BoolVar(&debug, "debug", false, "print executor debug lines to stderr")
	flag.StringVar(&leftTable, "left", "left", "left input table")
	flag.StringVar(&rightTable, "right", "right", "right input table")
	flag.StringVar(&leftKeys, "lkeys", "0", "comma-separated key positions in the left table")
	flag.StringVar(&rightKeys, "rkeys", "0", "comma-separated key positions in the right table")
	flag.StringVar(&kindStr, "kind", "inner", "join kind: inner, left, right, full or semi")
	flag.IntVar(&workers, "workers", 1, "parallel probe workers")
	flag.IntVar(&maxBuildRows, "max-build", 0, "maximum build rows (0 = unlimited)")
	flag.Float64Var(&outputRows, "rows", 0, "estimated output rows for costing (0 = larger input)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Plans and runs a hash join between two stored tables.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -demo -kind left            # Left join of the demo tables\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -demo -kind semi -verbose   # Semi join with annotations\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db data.db -left orders -right customers -lkeys 1 -rkeys 0\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	store, err := openStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if demo {
		if err := loadDemo(store, leftTable, rightTable); err != nil {
			log.Fatalf("Failed to load demo data: %v", err)
		}
	}

	kind, err := relational.ParseJoinKind(kindStr)
	if err != nil {
		log.Fatalf("Invalid -kind: %v", err)
	}
	lk, err := parseKeys(leftKeys)
	if err != nil {
		log.Fatalf("Invalid -lkeys: %v", err)
	}
	rk, err := parseKeys(rightKeys)
	if err != nil {
		log.Fatalf("Invalid -rkeys: %v", err)
	}
	spec, err := relational.NewJoinSpec(lk, rk, kind)
	if err != nil {
		log.Fatalf("Invalid join: %v", err)
	}

	var handler annotations.Handler
	if verbose {
		formatter := annotations.NewOutputFormatter(os.Stderr)
		handler = annotations.Handler(formatter.Handle)
	}

	opts := executor.DefaultExecutorOptions()
	opts.EnableDebugLogging = debug
	opts.ProbeWorkers = workers
	opts.MaxBuildRows = maxBuildRows

	if err := run(store, leftTable, rightTable, spec, outputRows, opts, handler); err != nil {
		if relational.IsRecoverableByReplanning(err) {
			log.Fatalf("Hash join not possible, a non-hash strategy is required: %v", err)
		}
		log.Fatalf("Join failed: %v", err)
	}
}

func openStore(path string) (*storage.RowStore, error) {
	if path == "" {
		return storage.OpenInMemory()
	}
	return storage.Open(path)
}

// loadDemo creates two small tables unless they already exist
func loadDemo(store *storage.RowStore, leftTable, rightTable string) error {
	existing := map[string]bool{}
	for _, name := range store.Tables() {
		existing[name] = true
	}

	if !existing[leftTable] {
		if err := store.CreateTable(leftTable, 2); err != nil {
			return err
		}
		err := store.Insert(leftTable,
			relational.Row{int64(1), "a"},
			relational.Row{int64(2), "b"},
			relational.Row{nil, "n"},
		)
		if err != nil {
			return err
		}
	}
	if !existing[rightTable] {
		if err := store.CreateTable(rightTable, 2); err != nil {
			return err
		}
		err := store.Insert(rightTable,
			relational.Row{int64(1), "x"},
			relational.Row{int64(3), "y"},
			relational.Row{nil, "m"},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func parseKeys(s string) ([]int, error) {
	var keys []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", part, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func run(
	store *storage.RowStore,
	leftTable, rightTable string,
	spec relational.JoinSpec,
	outputRows float64,
	opts executor.ExecutorOptions,
	handler annotations.Handler,
) error {
	left, err := store.Source(leftTable)
	if err != nil {
		return err
	}
	right, err := store.Source(rightTable)
	if err != nil {
		return err
	}

	if outputRows <= 0 {
		outputRows = math.Max(left.EstimatedRows(), right.EstimatedRows())
	}

	p := planner.NewPlanner(planner.PlannerOptions{Handler: handler})
	plan, err := p.PlanJoin(
		&planner.Scan{Table: leftTable, Rows: left.EstimatedRows()},
		&planner.Scan{Table: rightTable, Rows: right.EstimatedRows()},
		spec, outputRows)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	bold.Printf("Planning %s\n", spec)
	for _, c := range plan.Candidates {
		marker := "  "
		if c.Node == plan.Chosen.Node {
			marker = green.Sprint("->")
		}
		fmt.Printf("%s %-24s build=%-10s cost=%s\n",
			marker, c.Node, nodeTable(c.Node.Left), cyan.Sprint(c.Cost))
	}
	fmt.Println()

	build, probe := executor.RowSource(left), executor.RowSource(right)
	if plan.Swapped {
		build, probe = right, left
	}

	jctx := executor.NewContext(handler)
	it, err := executor.HashJoinWithOptions(context.Background(), build, probe, plan.Chosen.Node.Spec, opts, jctx)
	if err != nil {
		return err
	}
	rows, err := executor.Collect(it)
	if err != nil {
		return err
	}

	// Present columns as left ⋈ right regardless of the chosen build side
	if plan.Swapped {
		for i, row := range rows {
			rows[i] = relational.Concat(row[right.Arity():], row[:right.Arity()])
		}
	}

	fmt.Println(executor.NewTableFormatter().FormatRows(columnNames(leftTable, left.Arity(), rightTable, right.Arity(), spec.Kind), rows))
	return nil
}

func nodeTable(n planner.Node) string {
	if s, ok := n.(*planner.Scan); ok {
		return s.Table
	}
	return n.Digest()
}

func columnNames(leftTable string, leftArity int, rightTable string, rightArity int, kind relational.JoinKind) []string {
	var cols []string
	for i := 0; i < leftArity; i++ {
		cols = append(cols, fmt.Sprintf("%s.%d", leftTable, i))
	}
	if kind == relational.SemiJoin {
		return cols
	}
	for i := 0; i < rightArity; i++ {
		cols = append(cols, fmt.Sprintf("%s.%d", rightTable, i))
	}
	return cols
}
