package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/viert/slotstore/storage"
)

func parseSlots(raw string) []uint32 {
	tokens := strings.Split(raw, ",")
	slots := make([]uint32, 0, len(tokens))
	for _, token := range tokens {
		idx, err := strconv.ParseUint(strings.TrimSpace(token), 10, 32)
		if err != nil {
			log.Fatalf("invalid slot id '%s'", token)
		}
		slots = append(slots, uint32(idx))
	}
	return slots
}

func openStorage(filename string) *storage.Storage {
	st, err := storage.Open(filename)
	if err != nil {
		log.Fatalf("error opening storage: %s", err)
	}
	return st
}

// writeRecord spreads data over free slots first, then appends
func writeRecord(st *storage.Storage, data []byte) ([]uint32, error) {
	plan := st.PlanWrite(len(data))
	if plan == nil {
		return nil, fmt.Errorf("no slots left for %d bytes", len(data))
	}
	for i, chunk := range st.Chunks(data) {
		_, err := st.WriteBlock(plan[i], chunk)
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func runPut(filename string, data string) {
	if data == "" {
		log.Fatal("record data is empty")
	}

	st := openStorage(filename)
	defer st.Close()

	slots, err := writeRecord(st, []byte(data))
	if err != nil {
		log.Fatalf("error writing data: %s", err)
	}
	fmt.Println(strings.Trim(fmt.Sprint(slots), "[]"))
}

func runGet(filename string, ids string) {
	slots := parseSlots(ids)
	st := openStorage(filename)
	defer st.Close()

	for _, idx := range slots {
		_, data, err := st.ReadBlock(idx)
		if err != nil {
			log.Fatalf("error reading slot %d: %s", idx, err)
		}
		os.Stdout.Write(data)
	}
	fmt.Println()
}

func runDelete(filename string, ids string, hard bool) {
	slots := parseSlots(ids)
	st := openStorage(filename)
	defer st.Close()

	for _, idx := range slots {
		_, err := st.DeleteBlock(idx, hard)
		if err != nil {
			log.Fatalf("error deleting slot %d: %s", idx, err)
		}
	}
	fmt.Printf("%d slot(s) freed\n", len(slots))
}
