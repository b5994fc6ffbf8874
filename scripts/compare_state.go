//go:build ignore

// Command compare_state reports whether two stopped node databases hold the
// same ledger records. Metadata keys (m:) are ignored.
//
//	go run scripts/compare_state.go <data1>/db <data2>/db
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/storage"
)

// ledgerPrefixes are the record families compared, with display names.
var ledgerPrefixes = []struct {
	prefix string
	name   string
}{
	{"w:", "workers"},
	{"s:", "soulkeys"},
	{"b:", "balances"},
	{"p:", "protocol"},
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <db1_path> <db2_path>\n", os.Args[0])
		os.Exit(1)
	}

	db1Path := os.Args[1]
	db2Path := os.Args[2]

	records1, err := load(db1Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db1: %v\n", err)
		os.Exit(1)
	}

	records2, err := load(db2Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db2: %v\n", err)
		os.Exit(1)
	}

	identical := true

	for _, p := range ledgerPrefixes {
		only1, only2, different := compare(records1[p.prefix], records2[p.prefix])

		fmt.Printf("%-9s db1=%d db2=%d\n", p.name, len(records1[p.prefix]), len(records2[p.prefix]))

		if len(only1)+len(only2)+len(different) == 0 {
			continue
		}

		identical = false
		printKeys("only in db1", only1)
		printKeys("only in db2", only2)
		printKeys("different", different)
	}

	if identical {
		fmt.Println("\nstates are identical")
		os.Exit(0)
	}

	fmt.Println("\nstates differ")
	os.Exit(1)
}

// load reads every ledger record of the database at path, grouped by prefix.
func load(path string) (map[string]map[string][]byte, error) {
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s:\n%w", path, err)
	}
	defer db.Close()

	records := make(map[string]map[string][]byte, len(ledgerPrefixes))

	for _, p := range ledgerPrefixes {
		group := make(map[string][]byte)

		err := db.IteratePrefix([]byte(p.prefix), func(key, value []byte) error {
			group[string(key)] = bytes.Clone(value)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("iterate %s:\n%w", p.prefix, err)
		}

		records[p.prefix] = group
	}

	return records, nil
}

// compare returns the keys present on one side only and the keys whose values differ.
func compare(r1, r2 map[string][]byte) (only1, only2, different []string) {
	for k, v1 := range r1 {
		v2, ok := r2[k]
		if !ok {
			only1 = append(only1, k)
			continue
		}

		if !bytes.Equal(v1, v2) {
			different = append(different, k)
		}
	}

	for k := range r2 {
		if _, ok := r1[k]; !ok {
			only2 = append(only2, k)
		}
	}

	sort.Strings(only1)
	sort.Strings(only2)
	sort.Strings(different)

	return
}

func printKeys(label string, keys []string) {
	if len(keys) == 0 {
		return
	}

	fmt.Printf("  %s: %d\n", label, len(keys))

	for _, k := range keys {
		fmt.Printf("      %s\n", displayKey(k))
	}
}

// displayKey shows the prefix followed by the first bytes of the identity.
func displayKey(k string) string {
	if len(k) <= 2 || k == "p:state" {
		return k
	}

	id := []byte(k[2:])
	if len(id) > 8 {
		id = id[:8]
	}

	return k[:2] + hex.EncodeToString(id)
}
