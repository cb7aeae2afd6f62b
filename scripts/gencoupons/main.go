// Command gencoupons writes sample gzipped coupon files for local development.
package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Each line is CODE,PERCENT[,MIN_SUBTOTAL]. Later files override earlier
// ones for the same code, so SAVE10 ends up at 12 percent.
var files = map[string][]string{
	"coupons-base.gz": {
		"# storefront launch codes",
		"SAVE10,10",
		"WELCOME5,5",
		"BULK25,25,10000",
	},
	"coupons-seasonal.gz": {
		"DIWALI15,15,2000",
		"SAVE10,12",
	},
}

func main() {
	dataDir := flag.String("dir", "data/coupons", "output directory")
	flag.Parse()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	for filename, lines := range files {
		path := filepath.Join(*dataDir, filename)
		if err := writeGzip(path, strings.Join(lines, "\n")+"\n"); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		fmt.Printf("Wrote %s (%d lines)\n", path, len(lines))
	}

	fmt.Printf("\nSet COUPON_FILES=%s,%s\n",
		filepath.Join(*dataDir, "coupons-base.gz"),
		filepath.Join(*dataDir, "coupons-seasonal.gz"))
}

func writeGzip(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		return err
	}
	return zw.Close()
}
