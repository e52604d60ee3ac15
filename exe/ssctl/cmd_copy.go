package main

import (
	"fmt"
)

func runCopy(input string, output string) {
	ist := openStorage(input)
	defer ist.Close()

	ost := openStorage(output)
	defer ost.Close()

	copied := 0
	err := ist.Iter(func(idx uint32, data []byte) error {
		if len(data) == 0 {
			return nil
		}
		_, werr := writeRecord(ost, data)
		if werr == nil {
			copied++
		}
		return werr
	})

	if err != nil {
		log.Fatalf("error copying data: %s", err)
	}
	err = ost.Sync()
	if err != nil {
		log.Fatalf("error syncing output storage: %s", err)
	}
	fmt.Printf("%d slot(s) copied\n", copied)
}
